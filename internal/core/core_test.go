package core

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/tesh254/tracklist/internal/api"
	"github.com/tesh254/tracklist/internal/config"
	"github.com/tesh254/tracklist/internal/spotify"
	"github.com/tesh254/tracklist/internal/storage"
	"github.com/tesh254/tracklist/internal/tracklist"
)

type fakeSpotify struct {
	playlistTracks []tracklist.Track
}

func (f *fakeSpotify) AuthCodeURL(state string) string {
	return "https://accounts.example/authorize?state=" + state
}

func (f *fakeSpotify) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code != "good" {
		return nil, errors.New("bad code")
	}
	return &oauth2.Token{AccessToken: "a1", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}, nil
}

func (f *fakeSpotify) TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return oauth2.StaticTokenSource(tok)
}

func (f *fakeSpotify) CurrentUserID(ctx context.Context, tok *oauth2.Token) (string, error) {
	return "user-1", nil
}

func (f *fakeSpotify) UserPlaylists(ctx context.Context, tok *oauth2.Token) ([]spotify.Playlist, error) {
	return []spotify.Playlist{
		{ID: "pl1", Name: "Road Trip", Description: "long drives", TrackCount: 3},
		{ID: "pl2", Name: "Focus", TrackCount: 0},
	}, nil
}

func (f *fakeSpotify) Playlist(ctx context.Context, tok *oauth2.Token, id string) (*spotify.Playlist, error) {
	switch id {
	case "pl1":
	case "unavailable":
		return nil, &spotify.APIError{Status: 503, Message: "Service unavailable"}
	default:
		return nil, &spotify.APIError{Status: 404, Message: "Not found."}
	}
	return &spotify.Playlist{ID: id, Name: "Road Trip"}, nil
}

func (f *fakeSpotify) PlaylistTracks(ctx context.Context, tok *oauth2.Token, id string) ([]tracklist.Track, error) {
	return f.playlistTracks, nil
}

func (f *fakeSpotify) ArtistGenres(ctx context.Context, tok *oauth2.Token, ids []string) (map[string][]string, error) {
	return map[string][]string{"a": {"rock"}, "b": {"jazz"}}, nil
}

func newTestAPI(t *testing.T) *api.API {
	t.Helper()
	st, err := storage.NewStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	sp := &fakeSpotify{playlistTracks: []tracklist.Track{
		{ID: "t1", Name: "One", Artists: []string{"Alpha"}, ArtistIDs: []string{"a"}, Album: "LP"},
		{ID: "t2", Name: "Two", Artists: []string{"Alpha", "Guest"}, ArtistIDs: []string{"a", "g"}, Album: "LP"},
		{ID: "t3", Name: "Three", Artists: []string{"Bravo"}, ArtistIDs: []string{"b"}},
	}}
	return api.NewAPI(st, sp)
}

func testSettings(baseURL string) *config.Settings {
	return &config.Settings{
		ClientID:     "id",
		ClientSecret: "secret",
		Host:         "127.0.0.1",
		Port:         8080,
		BaseURL:      baseURL,
	}
}
