package tracklist

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"
	"unicode"

	htm "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// Format is an export file format.
type Format string

const (
	FormatText     Format = "txt"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
)

// ErrUnknownFormat is returned for an export format that is not supported.
var ErrUnknownFormat = errors.New("unknown export format")

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatText, FormatCSV, FormatMarkdown, FormatJSON}
}

// ParseFormat parses a format name such as "txt", ".CSV" or "markdown".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "txt", "text":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType returns the MIME type served for a format.
func ContentType(f Format) string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatJSON:
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Filename builds the download name for a listing: whitespace and path
// separators become underscores, one per character.
func Filename(name string, f Format) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "playlist"
	}
	name = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, name)
	return name + "." + string(f)
}

// Encode writes the listing to w in the given format.
func Encode(w io.Writer, l *Listing, f Format) error {
	switch f {
	case FormatText:
		_, err := io.WriteString(w, l.Text())
		return err
	case FormatCSV:
		return encodeCSV(w, l)
	case FormatJSON:
		return encodeJSON(w, l)
	case FormatMarkdown:
		return encodeMarkdown(w, l)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
}

func encodeCSV(w io.Writer, l *Listing) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"song_name", "artists", "album"}); err != nil {
		return err
	}
	for _, t := range l.Tracks {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			continue
		}
		if err := cw.Write([]string{name, strings.TrimSpace(t.ArtistLine()), strings.TrimSpace(t.Album)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type jsonTrack struct {
	SongName string `json:"song_name"`
	Artists  string `json:"artists"`
	Album    string `json:"album"`
}

// encodeJSON writes an object keyed by track id, falling back to the 1-based
// position for tracks without one. Members follow track order. A key that is
// already taken gets the position appended ("<key>-<n>").
func encodeJSON(w io.Writer, l *Listing) error {
	var b bytes.Buffer
	b.WriteString("{")
	used := make(map[string]bool, len(l.Tracks))
	first := true
	for i, t := range l.Tracks {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			continue
		}
		key := uniqueKey(used, t.ID, i+1)

		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.MarshalIndent(jsonTrack{
			SongName: name,
			Artists:  strings.TrimSpace(t.ArtistLine()),
			Album:    strings.TrimSpace(t.Album),
		}, "  ", "  ")
		if err != nil {
			return err
		}
		if !first {
			b.WriteString(",")
		}
		first = false
		b.WriteString("\n  ")
		b.Write(k)
		b.WriteString(": ")
		b.Write(v)
	}
	if !first {
		b.WriteString("\n")
	}
	b.WriteString("}\n")
	_, err := b.WriteTo(w)
	return err
}

func uniqueKey(used map[string]bool, id string, pos int) string {
	key := id
	if key == "" {
		key = strconv.Itoa(pos)
	}
	if used[key] {
		base := key
		key = fmt.Sprintf("%s-%d", base, pos)
		for n := 2; used[key]; n++ {
			key = fmt.Sprintf("%s-%d-%d", base, pos, n)
		}
	}
	used[key] = true
	return key
}

func encodeMarkdown(w io.Writer, l *Listing) error {
	var b strings.Builder
	if l.Name != "" {
		b.WriteString("<h1>" + html.EscapeString(l.Name) + "</h1>")
	}
	b.WriteString("<ol>")
	for _, line := range l.Lines() {
		b.WriteString("<li>" + html.EscapeString(line) + "</li>")
	}
	b.WriteString("</ol>")

	markdown, err := htm.ConvertString(b.String())
	if err != nil {
		return fmt.Errorf("failed to convert listing to markdown: %w", err)
	}
	if !strings.HasSuffix(markdown, "\n") {
		markdown += "\n"
	}
	_, err = io.WriteString(w, markdown)
	return err
}
