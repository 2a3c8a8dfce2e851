package api

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/tesh254/tracklist/internal/constants"
	"github.com/tesh254/tracklist/internal/spotify"
	"github.com/tesh254/tracklist/internal/storage"
	"github.com/tesh254/tracklist/internal/tracklist"
)

type tokenSourceFunc func() (*oauth2.Token, error)

func (f tokenSourceFunc) Token() (*oauth2.Token, error) { return f() }

type fakeSpotify struct {
	trackCalls  int
	genreIDs    []string
	refreshFail bool
}

func (f *fakeSpotify) AuthCodeURL(state string) string {
	return "https://accounts.example/authorize?state=" + state
}

func (f *fakeSpotify) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code != "good" {
		return nil, errors.New("bad code")
	}
	return &oauth2.Token{AccessToken: "a1", RefreshToken: "r1", Expiry: time.Now().Add(time.Hour)}, nil
}

func (f *fakeSpotify) TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return tokenSourceFunc(func() (*oauth2.Token, error) {
		if tok.Valid() {
			return tok, nil
		}
		if f.refreshFail || tok.RefreshToken == "" {
			return nil, errors.New("oauth2: token expired and refresh token is not set")
		}
		return &oauth2.Token{AccessToken: "rotated", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}, nil
	})
}

func (f *fakeSpotify) CurrentUserID(ctx context.Context, tok *oauth2.Token) (string, error) {
	return "user-1", nil
}

func (f *fakeSpotify) UserPlaylists(ctx context.Context, tok *oauth2.Token) ([]spotify.Playlist, error) {
	return []spotify.Playlist{{ID: "pl1", Name: "Road Trip", TrackCount: 3}}, nil
}

func (f *fakeSpotify) Playlist(ctx context.Context, tok *oauth2.Token, id string) (*spotify.Playlist, error) {
	return &spotify.Playlist{ID: id, Name: "Road Trip", Description: "long drives"}, nil
}

func (f *fakeSpotify) PlaylistTracks(ctx context.Context, tok *oauth2.Token, id string) ([]tracklist.Track, error) {
	f.trackCalls++
	return []tracklist.Track{
		{ID: "t1", Name: "One", Artists: []string{"Alpha"}, ArtistIDs: []string{"a"}, Album: "LP"},
		{ID: "t2", Name: "Two", Artists: []string{"Alpha"}, ArtistIDs: []string{"a"}, Album: "LP"},
		{ID: "t3", Name: "Three", Artists: []string{"Bravo"}, ArtistIDs: []string{"b"}},
	}, nil
}

func (f *fakeSpotify) ArtistGenres(ctx context.Context, tok *oauth2.Token, ids []string) (map[string][]string, error) {
	f.genreIDs = ids
	return map[string][]string{"a": {"rock"}}, nil
}

func newTestAPI(t *testing.T) (*API, *fakeSpotify, *storage.Storage) {
	t.Helper()
	st, err := storage.NewStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	sp := &fakeSpotify{}
	return NewAPI(st, sp), sp, st
}

func TestLogin(t *testing.T) {
	a, _, st := newTestAPI(t)
	ctx := context.Background()

	userID, err := a.Login(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	tok, err := st.GetUserToken("user-1")
	require.NoError(t, err)
	assert.Equal(t, "a1", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.True(t, a.LoggedIn(ctx, "user-1"))

	_, err = a.Login(ctx, "bad")
	assert.Error(t, err)
}

func TestTokenRefreshesAndPersists(t *testing.T) {
	a, sp, st := newTestAPI(t)
	ctx := context.Background()
	require.NoError(t, st.SaveUserToken(&storage.UserToken{
		UserID: "u", AccessToken: "stale", RefreshToken: "r1", TokenType: "Bearer",
		Expiry: time.Now().Add(-time.Minute),
	}))

	tok, err := a.Token(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, "rotated", tok.AccessToken)

	stored, err := st.GetUserToken("u")
	require.NoError(t, err)
	assert.Equal(t, "rotated", stored.AccessToken)
	assert.Equal(t, "r1", stored.RefreshToken)

	sp.refreshFail = true
	require.NoError(t, st.SaveUserToken(&storage.UserToken{UserID: "v", AccessToken: "x", Expiry: time.Now().Add(-time.Minute)}))
	_, err = a.Token(ctx, "v")
	assert.ErrorIs(t, err, spotify.ErrTokenExpired)
	assert.False(t, a.LoggedIn(ctx, "v"))

	_, err = a.Token(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	assert.False(t, a.LoggedIn(ctx, ""))
}

func TestTracksUsesCache(t *testing.T) {
	a, sp, _ := newTestAPI(t)
	ctx := context.Background()
	_, err := a.Login(ctx, "good")
	require.NoError(t, err)

	rec, err := a.Tracks(ctx, "user-1", "pl1", false)
	require.NoError(t, err)
	assert.Equal(t, "Road Trip", rec.Name)
	assert.Len(t, rec.Tracks, 3)

	_, err = a.Tracks(ctx, "user-1", "pl1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, sp.trackCalls)

	_, err = a.Tracks(ctx, "user-1", "pl1", true)
	require.NoError(t, err)
	assert.Equal(t, 2, sp.trackCalls)

	cached, err := a.CachedPlaylists("user-1")
	require.NoError(t, err)
	assert.Len(t, cached, 1)
}

func TestAnalyze(t *testing.T) {
	a, sp, _ := newTestAPI(t)
	ctx := context.Background()
	_, err := a.Login(ctx, "good")
	require.NoError(t, err)

	r, err := a.Analyze(ctx, "user-1", "pl1", false)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", r.Artists.Entries[0].Name)
	assert.Empty(t, r.Genres.Entries)
	assert.Nil(t, sp.genreIDs)

	r, err = a.Analyze(ctx, "user-1", "pl1", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, sp.genreIDs)
	require.Len(t, r.Genres.Entries, 2)
	assert.Equal(t, "rock", r.Genres.Entries[0].Name)
	assert.Equal(t, constants.UnknownGenre, r.Genres.Entries[1].Name)
}

func TestExport(t *testing.T) {
	a, _, _ := newTestAPI(t)
	ctx := context.Background()
	_, err := a.Login(ctx, "good")
	require.NoError(t, err)

	var buf bytes.Buffer
	name, err := a.Export(ctx, "user-1", "pl1", tracklist.FormatText, &buf)
	require.NoError(t, err)
	assert.Equal(t, "Road_Trip.txt", name)
	assert.Equal(t, "One By Alpha - LP\nTwo By Alpha - LP\nThree By Bravo\n", buf.String())
}

func TestUsersAndLogout(t *testing.T) {
	a, _, _ := newTestAPI(t)
	ctx := context.Background()

	_, err := a.ResolveUser("")
	assert.ErrorIs(t, err, ErrNoUser)

	_, err = a.Login(ctx, "good")
	require.NoError(t, err)
	_, err = a.Tracks(ctx, "user-1", "pl1", false)
	require.NoError(t, err)

	id, err := a.ResolveUser("")
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)
	id, err = a.ResolveUser("explicit")
	require.NoError(t, err)
	assert.Equal(t, "explicit", id)

	users, err := a.Users()
	require.NoError(t, err)
	assert.Len(t, users, 1)

	require.NoError(t, a.Logout("user-1"))
	users, err = a.Users()
	require.NoError(t, err)
	assert.Empty(t, users)
	cached, err := a.CachedPlaylists("")
	require.NoError(t, err)
	assert.Empty(t, cached)
}

func TestPlaylists(t *testing.T) {
	a, _, _ := newTestAPI(t)
	ctx := context.Background()
	_, err := a.Playlists(ctx, "user-1")
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	_, err = a.Login(ctx, "good")
	require.NoError(t, err)
	pls, err := a.Playlists(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Road Trip", pls[0].Name)
}
