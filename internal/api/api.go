// api.go
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"golang.org/x/oauth2"

	"github.com/tesh254/tracklist/internal/analyzer"
	"github.com/tesh254/tracklist/internal/spotify"
	"github.com/tesh254/tracklist/internal/storage"
	"github.com/tesh254/tracklist/internal/tracklist"
)

var (
	// ErrNotLoggedIn is returned when no token is stored for a user.
	ErrNotLoggedIn = errors.New("user is not logged in")
	// ErrNoUser is returned when no user was named and none can be picked.
	ErrNoUser = errors.New("no user given and no single stored user to default to")
)

// Spotify is the part of the Web API client the facade depends on.
// *spotify.Client implements it.
type Spotify interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource
	CurrentUserID(ctx context.Context, tok *oauth2.Token) (string, error)
	UserPlaylists(ctx context.Context, tok *oauth2.Token) ([]spotify.Playlist, error)
	Playlist(ctx context.Context, tok *oauth2.Token, id string) (*spotify.Playlist, error)
	PlaylistTracks(ctx context.Context, tok *oauth2.Token, id string) ([]tracklist.Track, error)
	ArtistGenres(ctx context.Context, tok *oauth2.Token, ids []string) (map[string][]string, error)
}

// API combines token and playlist storage with the Spotify client.
type API struct {
	storage *storage.Storage
	spotify Spotify
	now     func() time.Time
}

// NewAPI creates a new API instance.
func NewAPI(st *storage.Storage, sp Spotify) *API {
	return &API{
		storage: st,
		spotify: sp,
		now:     time.Now,
	}
}

// AuthCodeURL returns the consent URL carrying state.
func (a *API) AuthCodeURL(state string) string {
	return a.spotify.AuthCodeURL(state)
}

// Login exchanges an authorization code, stores the token under the
// Spotify user id and returns that id.
func (a *API) Login(ctx context.Context, code string) (string, error) {
	tok, err := a.spotify.Exchange(ctx, code)
	if err != nil {
		return "", err
	}
	userID, err := a.spotify.CurrentUserID(ctx, tok)
	if err != nil {
		return "", fmt.Errorf("failed to identify user: %w", err)
	}
	if err := a.saveToken(userID, tok); err != nil {
		return "", err
	}
	log.Printf("[INFO] Logged in user %s", userID)
	return userID, nil
}

// Token returns a usable token for the user, refreshing it when it has
// expired. A rotated token is written back to storage.
func (a *API) Token(ctx context.Context, userID string) (*oauth2.Token, error) {
	stored, err := a.storage.GetUserToken(userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotLoggedIn, userID)
		}
		return nil, err
	}
	current := &oauth2.Token{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		TokenType:    stored.TokenType,
		Expiry:       stored.Expiry,
	}
	fresh, err := a.spotify.TokenSource(ctx, current).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", spotify.ErrTokenExpired, err)
	}
	if fresh.AccessToken != current.AccessToken || !fresh.Expiry.Equal(current.Expiry) {
		if fresh.RefreshToken == "" {
			fresh.RefreshToken = current.RefreshToken
		}
		if err := a.saveToken(userID, fresh); err != nil {
			return nil, err
		}
		log.Printf("[INFO] Refreshed token for user %s", userID)
	}
	return fresh, nil
}

// LoggedIn reports whether a usable token exists for the user.
func (a *API) LoggedIn(ctx context.Context, userID string) bool {
	if userID == "" {
		return false
	}
	if a.storage.IsTokenValid(userID, a.now()) {
		return true
	}
	_, err := a.Token(ctx, userID)
	return err == nil
}

func (a *API) saveToken(userID string, tok *oauth2.Token) error {
	tokenType := tok.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return a.storage.SaveUserToken(&storage.UserToken{
		UserID:       userID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tokenType,
		Expiry:       tok.Expiry,
	})
}

// ResolveUser returns userID, or the only stored user when userID is empty.
func (a *API) ResolveUser(userID string) (string, error) {
	if userID != "" {
		return userID, nil
	}
	users, err := a.storage.ListUsers()
	if err != nil {
		return "", err
	}
	if len(users) != 1 {
		return "", ErrNoUser
	}
	return users[0].UserID, nil
}

// Playlists lists the user's playlists.
func (a *API) Playlists(ctx context.Context, userID string) ([]spotify.Playlist, error) {
	tok, err := a.Token(ctx, userID)
	if err != nil {
		return nil, err
	}
	return a.spotify.UserPlaylists(ctx, tok)
}

// Tracks returns a playlist with its tracks. A cached copy owned by the user
// is served unless refresh is set; fetched playlists are cached.
func (a *API) Tracks(ctx context.Context, userID, playlistID string, refresh bool) (*storage.PlaylistRecord, error) {
	if !refresh {
		rec, err := a.storage.GetPlaylist(userID, playlistID)
		if err == nil {
			return rec, nil
		}
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Printf("[WARN] Failed to read cached playlist %s: %v", playlistID, err)
		}
	}

	tok, err := a.Token(ctx, userID)
	if err != nil {
		return nil, err
	}
	p, err := a.spotify.Playlist(ctx, tok, playlistID)
	if err != nil {
		return nil, err
	}
	tracks, err := a.spotify.PlaylistTracks(ctx, tok, playlistID)
	if err != nil {
		return nil, err
	}

	rec := &storage.PlaylistRecord{
		ID:          playlistID,
		UserID:      userID,
		Name:        p.Name,
		Description: p.Description,
		Tracks:      tracks,
		FetchedAt:   a.now(),
	}
	if err := a.storage.SavePlaylist(rec); err != nil {
		log.Printf("[WARN] Failed to cache playlist %s: %v", playlistID, err)
	}
	return rec, nil
}

// Listing returns the playlist as a named listing.
func (a *API) Listing(ctx context.Context, userID, playlistID string) (*tracklist.Listing, error) {
	rec, err := a.Tracks(ctx, userID, playlistID, false)
	if err != nil {
		return nil, err
	}
	return rec.Listing(), nil
}

// Analyze charts the playlist by artist and album, and by genre when
// withGenres is set.
func (a *API) Analyze(ctx context.Context, userID, playlistID string, withGenres bool) (*analyzer.Result, error) {
	rec, err := a.Tracks(ctx, userID, playlistID, false)
	if err != nil {
		return nil, err
	}
	result := analyzer.Analyze(rec.Tracks)
	if !withGenres {
		return result, nil
	}

	tok, err := a.Token(ctx, userID)
	if err != nil {
		return nil, err
	}
	genres, err := a.spotify.ArtistGenres(ctx, tok, analyzer.PrimaryArtistIDs(rec.Tracks))
	if err != nil {
		return nil, err
	}
	result.AddGenres(rec.Tracks, genres)
	return result, nil
}

// Export writes the playlist to w in format f and returns the file name it
// should be saved as.
func (a *API) Export(ctx context.Context, userID, playlistID string, f tracklist.Format, w io.Writer) (string, error) {
	l, err := a.Listing(ctx, userID, playlistID)
	if err != nil {
		return "", err
	}
	if err := tracklist.Encode(w, l, f); err != nil {
		return "", err
	}
	return tracklist.Filename(l.Name, f), nil
}

// Logout forgets the user's token and cached playlists.
func (a *API) Logout(userID string) error {
	if err := a.storage.DeleteUser(userID); err != nil {
		return fmt.Errorf("failed to log out %s: %w", userID, err)
	}
	log.Printf("[INFO] Logged out user %s", userID)
	return nil
}

// Users lists the stored users.
func (a *API) Users() ([]*storage.UserToken, error) {
	return a.storage.ListUsers()
}

// CachedPlaylists lists the playlists cached for a user, or for everyone
// when userID is empty.
func (a *API) CachedPlaylists(userID string) ([]*storage.PlaylistRecord, error) {
	return a.storage.ListPlaylists(userID)
}

// Clean removes every stored token and playlist.
func (a *API) Clean() error {
	return a.storage.Clean()
}
