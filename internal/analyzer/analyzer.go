// Package analyzer summarises a playlist by artist, album and genre.
package analyzer

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/tesh254/tracklist/internal/constants"
	"github.com/tesh254/tracklist/internal/tracklist"
)

// Entry is one slice of a chart.
type Entry struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Chart is a titled, sorted set of counts.
type Chart struct {
	Title   string  `json:"title"`
	Total   int     `json:"total"`
	Entries []Entry `json:"entries"`
}

// Result holds the charts of one playlist. Genres is empty until AddGenres
// is called.
type Result struct {
	Tracks  int   `json:"tracks"`
	Artists Chart `json:"artists"`
	Albums  Chart `json:"albums"`
	Genres  Chart `json:"genres"`
}

// Analyze counts the tracks per primary artist and per album.
func Analyze(tracks []tracklist.Track) *Result {
	artists := make(map[string]int)
	albums := make(map[string]int)

	for _, t := range tracks {
		artist := t.PrimaryArtist()
		if artist == "" {
			artist = constants.UnknownArtist
		}
		artists[artist]++

		album := strings.TrimSpace(t.Album)
		if album == "" {
			album = constants.NoAlbumName
		}
		albums[album]++
	}

	return &Result{
		Tracks:  len(tracks),
		Artists: newChart("Tracks by Artist", artists),
		Albums:  newChart("Tracks by Album", albums),
		Genres:  Chart{Title: "Tracks by Genre"},
	}
}

// AddGenres fills the genre chart. Every track adds one to each genre of its
// primary artist; tracks whose artist has no known genre count as unknown.
func (r *Result) AddGenres(tracks []tracklist.Track, genresByArtistID map[string][]string) {
	genres := make(map[string]int)
	for _, t := range tracks {
		var artistGenres []string
		if len(t.ArtistIDs) > 0 {
			artistGenres = genresByArtistID[t.ArtistIDs[0]]
		}
		if len(artistGenres) == 0 {
			genres[constants.UnknownGenre]++
			continue
		}
		for _, g := range artistGenres {
			genres[g]++
		}
	}
	r.Genres = newChart("Tracks by Genre", genres)
}

// PrimaryArtistIDs returns the distinct primary artist ids of tracks.
func PrimaryArtistIDs(tracks []tracklist.Track) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, t := range tracks {
		if len(t.ArtistIDs) == 0 || t.ArtistIDs[0] == "" || seen[t.ArtistIDs[0]] {
			continue
		}
		seen[t.ArtistIDs[0]] = true
		ids = append(ids, t.ArtistIDs[0])
	}
	return ids
}

func newChart(title string, counts map[string]int) Chart {
	c := Chart{Title: title, Entries: make([]Entry, 0, len(counts))}
	for name, n := range counts {
		c.Total += n
		c.Entries = append(c.Entries, Entry{Name: name, Count: n})
	}
	for i := range c.Entries {
		c.Entries[i].Percent = float64(c.Entries[i].Count) / float64(c.Total) * 100
	}
	sort.Slice(c.Entries, func(i, j int) bool {
		if c.Entries[i].Count != c.Entries[j].Count {
			return c.Entries[i].Count > c.Entries[j].Count
		}
		return c.Entries[i].Name < c.Entries[j].Name
	})
	return c
}

// Top returns at most n entries.
func (c Chart) Top(n int) []Entry {
	if n <= 0 || n >= len(c.Entries) {
		return c.Entries
	}
	return c.Entries[:n]
}

// Render writes the chart as a table.
func (c Chart) Render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(c.Title)
	t.AppendHeader(table.Row{"Name", "Tracks", "Share"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, WidthMax: 60},
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	for _, e := range c.Entries {
		t.AppendRow(table.Row{e.Name, e.Count, fmt.Sprintf("%.1f%%", e.Percent)})
	}
	t.AppendFooter(table.Row{"Total", c.Total, ""})
	t.Render()
}
