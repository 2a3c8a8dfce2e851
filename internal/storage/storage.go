package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/tesh254/tracklist/internal/tracklist"
)

// ErrNotFound is returned when a user or playlist is not stored.
var ErrNotFound = errors.New("not found")

var (
	usersBucket     = []byte("users")
	playlistsBucket = []byte("playlists")
)

// UserToken is the OAuth token stored for a Spotify user.
type UserToken struct {
	UserID       string    `json:"user_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"valid_until"`
}

// PlaylistRecord is a cached copy of a playlist's tracks.
type PlaylistRecord struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Tracks      []tracklist.Track `json:"tracks"`
	FetchedAt   time.Time         `json:"fetched_at"`
}

// Listing returns the cached tracks as a named listing.
func (p *PlaylistRecord) Listing() *tracklist.Listing {
	return &tracklist.Listing{Name: p.Name, Tracks: p.Tracks}
}

// Storage manages the bbolt database.
type Storage struct {
	db *bbolt.DB
}

// NewStorage creates or opens a bbolt database, creating its directory.
func NewStorage(dbPath string) (*Storage, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close closes the database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func put(tx *bbolt.Tx, bucket []byte, key string, v any) error {
	b, err := tx.CreateBucketIfNotExists(bucket)
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s entry: %w", bucket, err)
	}
	return b.Put([]byte(key), encoded)
}

func get(tx *bbolt.Tx, bucket []byte, key string, v any) error {
	b := tx.Bucket(bucket)
	if b == nil {
		return ErrNotFound
	}
	raw := b.Get([]byte(key))
	if raw == nil {
		return ErrNotFound
	}
	return json.Unmarshal(raw, v)
}

// SaveUserToken stores a user's token, replacing any previous one.
func (s *Storage) SaveUserToken(tok *UserToken) error {
	if tok.UserID == "" {
		return errors.New("user id is required")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, usersBucket, tok.UserID, tok)
	})
}

// GetUserToken retrieves a user's token.
func (s *Storage) GetUserToken(userID string) (*UserToken, error) {
	var tok UserToken
	err := s.db.View(func(tx *bbolt.Tx) error {
		return get(tx, usersBucket, userID, &tok)
	})
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", userID, err)
	}
	return &tok, nil
}

// IsTokenValid reports whether the user has a token that has not expired at now.
func (s *Storage) IsTokenValid(userID string, now time.Time) bool {
	tok, err := s.GetUserToken(userID)
	if err != nil {
		return false
	}
	return !now.After(tok.Expiry)
}

// ListUsers retrieves every stored token, ordered by user id.
func (s *Storage) ListUsers() ([]*UserToken, error) {
	var users []*UserToken
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(usersBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var tok UserToken
			if err := json.Unmarshal(v, &tok); err != nil {
				// Skip entries that no longer decode.
				return nil
			}
			users = append(users, &tok)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// DeleteUser removes a user's token and every playlist cached for them.
func (s *Storage) DeleteUser(userID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(usersBucket); b != nil {
			if err := b.Delete([]byte(userID)); err != nil {
				return err
			}
		}
		b := tx.Bucket(playlistsBucket)
		if b == nil {
			return nil
		}
		prefix := []byte(playlistKey(userID, ""))
		c := b.Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Seek(prefix) {
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
}

// playlistKey scopes a cached playlist to its owner, so two users caching
// the same playlist keep separate copies.
func playlistKey(userID, id string) string {
	return userID + "/" + id
}

// SavePlaylist stores a playlist under its owner and id.
func (s *Storage) SavePlaylist(rec *PlaylistRecord) error {
	if rec.ID == "" {
		return errors.New("playlist id is required")
	}
	if rec.UserID == "" {
		return errors.New("playlist owner is required")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return put(tx, playlistsBucket, playlistKey(rec.UserID, rec.ID), rec)
	})
}

// GetPlaylist retrieves the copy of a playlist cached for userID.
func (s *Storage) GetPlaylist(userID, id string) (*PlaylistRecord, error) {
	var rec PlaylistRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		return get(tx, playlistsBucket, playlistKey(userID, id), &rec)
	})
	if err != nil {
		return nil, fmt.Errorf("playlist %s: %w", id, err)
	}
	return &rec, nil
}

// ListPlaylists retrieves the cached playlists of a user, or of every user
// when userID is empty, ordered by name.
func (s *Storage) ListPlaylists(userID string) ([]*PlaylistRecord, error) {
	var recs []*PlaylistRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(playlistsBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var rec PlaylistRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return nil
			}
			if userID == "" || rec.UserID == userID {
				recs = append(recs, &rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Name < recs[j].Name })
	return recs, nil
}

// DeletePlaylist removes the copy of a playlist cached for userID.
func (s *Storage) DeletePlaylist(userID, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(playlistsBucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(playlistKey(userID, id)))
	})
}

// Clean drops every bucket.
func (s *Storage) Clean() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{usersBucket, playlistsBucket} {
			if tx.Bucket(name) == nil {
				continue
			}
			if err := tx.DeleteBucket(name); err != nil {
				return fmt.Errorf("failed to delete bucket %s: %w", name, err)
			}
		}
		return nil
	})
}
