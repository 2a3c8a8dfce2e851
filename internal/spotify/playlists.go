package spotify

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/oauth2"

	"github.com/tesh254/tracklist/internal/tracklist"
)

const (
	playlistPageSize = 50
	trackPageSize    = 100
	artistBatchSize  = 50
)

// Playlist is the summary of a playlist as listed for a user.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Owner       string `json:"owner"`
	TrackCount  int    `json:"track_count"`
	URL         string `json:"url"`
}

type apiPlaylist struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
	Owner struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	} `json:"owner"`
	Tracks struct {
		Total int `json:"total"`
	} `json:"tracks"`
}

func (p apiPlaylist) toPlaylist() Playlist {
	owner := p.Owner.DisplayName
	if owner == "" {
		owner = p.Owner.ID
	}
	return Playlist{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Owner:       owner,
		TrackCount:  p.Tracks.Total,
		URL:         p.ExternalURLs.Spotify,
	}
}

type apiTrack struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsLocal bool   `json:"is_local"`
	Album   struct {
		Name string `json:"name"`
	} `json:"album"`
	Artists []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"artists"`
}

func (t apiTrack) toTrack() tracklist.Track {
	out := tracklist.Track{ID: t.ID, Name: strings.TrimSpace(t.Name), Album: strings.TrimSpace(t.Album.Name)}
	for _, a := range t.Artists {
		out.Artists = append(out.Artists, a.Name)
		out.ArtistIDs = append(out.ArtistIDs, a.ID)
	}
	return out
}

// CurrentUserID returns the Spotify id of the token's owner.
func (c *Client) CurrentUserID(ctx context.Context, tok *oauth2.Token) (string, error) {
	var me struct {
		ID string `json:"id"`
	}
	if err := c.get(ctx, tok, "/me", nil, &me); err != nil {
		return "", err
	}
	if me.ID == "" {
		return "", fmt.Errorf("spotify: profile response has no id")
	}
	return me.ID, nil
}

// UserPlaylists returns every playlist of the current user, requesting pages
// of 50 until the reported total has been received.
func (c *Client) UserPlaylists(ctx context.Context, tok *oauth2.Token) ([]Playlist, error) {
	var playlists []Playlist
	seen := make(map[string]bool)
	offset := 0

	for {
		var page struct {
			Items []apiPlaylist `json:"items"`
			Total int           `json:"total"`
		}
		q := url.Values{}
		q.Set("limit", strconv.Itoa(playlistPageSize))
		q.Set("offset", strconv.Itoa(offset))
		if err := c.get(ctx, tok, "/me/playlists", q, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.ID == "" || seen[item.ID] {
				continue
			}
			seen[item.ID] = true
			playlists = append(playlists, item.toPlaylist())
		}

		offset += len(page.Items)
		if len(page.Items) == 0 || offset >= page.Total {
			break
		}
	}
	return playlists, nil
}

// Playlist returns a single playlist's summary.
func (c *Client) Playlist(ctx context.Context, tok *oauth2.Token, id string) (*Playlist, error) {
	var p apiPlaylist
	q := url.Values{}
	q.Set("fields", "id,name,description,external_urls,owner(id,display_name),tracks(total)")
	if err := c.get(ctx, tok, "/playlists/"+url.PathEscape(id), q, &p); err != nil {
		return nil, err
	}
	out := p.toPlaylist()
	return &out, nil
}

// PlaylistTracks returns the tracks of a playlist in playlist order. Entries
// whose track is no longer available are skipped.
func (c *Client) PlaylistTracks(ctx context.Context, tok *oauth2.Token, id string) ([]tracklist.Track, error) {
	var tracks []tracklist.Track

	q := url.Values{}
	q.Set("limit", strconv.Itoa(trackPageSize))
	next := "/playlists/" + url.PathEscape(id) + "/tracks"

	for next != "" {
		var page struct {
			Items []struct {
				Track *apiTrack `json:"track"`
			} `json:"items"`
			Next *string `json:"next"`
		}
		if err := c.get(ctx, tok, next, q, &page); err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			if item.Track == nil || strings.TrimSpace(item.Track.Name) == "" {
				continue
			}
			tracks = append(tracks, item.Track.toTrack())
		}

		// next is absolute and already carries the paging query.
		next, q = "", nil
		if page.Next != nil {
			next = *page.Next
		}
	}
	return tracks, nil
}

// ArtistGenres returns the genres of each artist id, requested in batches of 50.
func (c *Client) ArtistGenres(ctx context.Context, tok *oauth2.Token, ids []string) (map[string][]string, error) {
	genres := make(map[string][]string, len(ids))

	var unique []string
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := genres[id]; ok {
			continue
		}
		genres[id] = nil
		unique = append(unique, id)
	}

	for start := 0; start < len(unique); start += artistBatchSize {
		end := min(start+artistBatchSize, len(unique))

		var page struct {
			Artists []*struct {
				ID     string   `json:"id"`
				Genres []string `json:"genres"`
			} `json:"artists"`
		}
		q := url.Values{}
		q.Set("ids", strings.Join(unique[start:end], ","))
		if err := c.get(ctx, tok, "/artists", q, &page); err != nil {
			return nil, err
		}
		for _, a := range page.Artists {
			if a == nil {
				continue
			}
			genres[a.ID] = a.Genres
		}
	}
	return genres, nil
}
