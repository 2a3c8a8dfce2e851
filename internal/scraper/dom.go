package scraper

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/tesh254/tracklist/internal/tracklist"
)

// blockElements end a line of text when the element is rendered.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"dd": true, "div": true, "dl": true, "dt": true, "figcaption": true,
	"footer": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "header": true, "li": true, "main": true, "nav": true,
	"ol": true, "p": true, "pre": true, "section": true, "table": true,
	"tr": true, "ul": true,
}

// extractTitle extracts the title from an HTML node
func extractTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
		return n.FirstChild.Data
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := extractTitle(c); title != "" {
			return title
		}
	}

	return ""
}

// extractDescription extracts the meta description from an HTML node
func extractDescription(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "meta" {
		var isDesc, hasContent bool
		var content string

		for _, a := range n.Attr {
			if a.Key == "name" && a.Val == "description" {
				isDesc = true
			}
			if a.Key == "content" {
				content = a.Val
				hasContent = true
			}
		}

		if isDesc && hasContent {
			return content
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if desc := extractDescription(c); desc != "" {
			return desc
		}
	}

	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// querySelector returns the first element in document order matching a simple
// selector: "#id", ".class" or a tag name. A bare word that matches no tag is
// also tried as an id.
func querySelector(doc *html.Node, selector string) *html.Node {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nil
	}

	var match func(*html.Node) bool
	switch {
	case strings.HasPrefix(selector, "#"):
		id := selector[1:]
		match = func(n *html.Node) bool { return attr(n, "id") == id }
	case strings.HasPrefix(selector, "."):
		class := selector[1:]
		match = func(n *html.Node) bool { return hasClass(n, class) }
	default:
		tag := strings.ToLower(selector)
		match = func(n *html.Node) bool { return n.Data == tag }
	}

	if n := findFirst(doc, match); n != nil {
		return n
	}
	if !strings.HasPrefix(selector, "#") && !strings.HasPrefix(selector, ".") {
		return findFirst(doc, func(n *html.Node) bool { return attr(n, "id") == selector })
	}
	return nil
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

// textContent returns the text of n the way it reads on the page: text nodes
// concatenated, block elements and <br> on lines of their own, scripts and
// styles skipped.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "template":
				return
			case "br":
				b.WriteString("\n")
				return
			}
		}

		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			b.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteString("\n")
		}
	}
	walk(n)
	return b.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func childElements(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (tag == "" || c.Data == tag) {
			out = append(out, c)
		}
	}
	return out
}

// structuredTracks reads one track per wrapper div of the list element. A
// wrapper's div children are matched by id: song_name, artists and album.
// Wrappers without a song name are skipped; no wrappers yields nil.
func structuredTracks(list *html.Node) []tracklist.Track {
	var tracks []tracklist.Track
	for _, wrapper := range childElements(list, "div") {
		var t tracklist.Track
		var found bool
		for _, field := range childElements(wrapper, "div") {
			id := attr(field, "id")
			value := collapseSpace(textContent(field))
			switch {
			case strings.Contains(id, "song_name"):
				t.Name = value
				found = true
			case strings.Contains(id, "artists"):
				if value != "" {
					t.Artists = []string{value}
				}
			case strings.Contains(id, "album"):
				t.Album = value
			}
		}
		if !found || t.Name == "" {
			continue
		}
		t.ID = attr(wrapper, "id")
		tracks = append(tracks, t)
	}
	return tracks
}
