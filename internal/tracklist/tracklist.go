// Package tracklist turns a playlist's track listing into a downloadable file.
//
// A listing can come from raw page text (one track per line) or from structured
// track data. Either way the output never contains blank lines and every line
// is trimmed.
package tracklist

import (
	"regexp"
	"strings"
)

// Track is a single entry of a playlist.
type Track struct {
	ID        string   `json:"id,omitempty"`
	Name      string   `json:"song_name"`
	Artists   []string `json:"artists,omitempty"`
	ArtistIDs []string `json:"artist_ids,omitempty"`
	Album     string   `json:"album,omitempty"`
}

// Listing is a named, ordered list of tracks.
type Listing struct {
	Name   string  `json:"name"`
	Tracks []Track `json:"tracks"`
}

var lineBreak = regexp.MustCompile(`\r?\n`)

// SplitLines splits text on newlines, trims each line and drops the empty ones.
func SplitLines(text string) []string {
	var lines []string
	for _, line := range lineBreak.Split(text, -1) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// FromText builds a listing with one track per non-empty line of text.
func FromText(name, text string) *Listing {
	lines := SplitLines(text)
	l := &Listing{
		Name:   strings.TrimSpace(name),
		Tracks: make([]Track, 0, len(lines)),
	}
	for _, line := range lines {
		l.Tracks = append(l.Tracks, Track{Name: line})
	}
	return l
}

// ArtistLine joins the track's artists with a comma.
func (t Track) ArtistLine() string {
	return strings.Join(t.Artists, ", ")
}

// PrimaryArtist returns the first credited artist, or "" when there is none.
func (t Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return strings.TrimSpace(t.Artists[0])
}

// Line renders the track as "<name> By <artists> - <album>", leaving out the
// parts that are unknown.
func (t Track) Line() string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(t.Name))
	if artists := strings.TrimSpace(t.ArtistLine()); artists != "" {
		b.WriteString(" By ")
		b.WriteString(artists)
	}
	if album := strings.TrimSpace(t.Album); album != "" {
		b.WriteString(" - ")
		b.WriteString(album)
	}
	return strings.TrimSpace(b.String())
}

// Lines returns the rendered, non-empty lines of the listing in order.
func (l *Listing) Lines() []string {
	lines := make([]string, 0, len(l.Tracks))
	for _, t := range l.Tracks {
		if line := t.Line(); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Text joins the listing lines with newlines. A non-empty listing ends with a
// trailing newline.
func (l *Listing) Text() string {
	lines := l.Lines()
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// Len reports the number of tracks that render to a non-empty line.
func (l *Listing) Len() int {
	return len(l.Lines())
}
