package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	s, err := FromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", s.Host)
	assert.Equal(t, 8080, s.Port)
	assert.False(t, s.Debug)
	assert.Equal(t, "http://localhost:8080", s.BaseURL)
	assert.Equal(t, "http://localhost:8080/redirect_after_auth", s.RedirectURL())
	assert.Equal(t, "0.0.0.0:8080", s.Addr())
	assert.Equal(t, 30*time.Second, s.RenderTimeout)
	assert.ErrorIs(t, s.RequireCredentials(), ErrMissingCredentials)
}

func TestPortEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	v := newViper()
	v.Set("port", 7000)

	s, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 9090, s.Port)
	assert.Equal(t, "http://localhost:9090", s.BaseURL)

	t.Setenv("PORT", "nope")
	_, err = FromViper(v)
	assert.Error(t, err)
}

func TestInvalidPort(t *testing.T) {
	t.Setenv("PORT", "")
	v := newViper()
	v.Set("port", 70000)
	_, err := FromViper(v)
	assert.Error(t, err)
}

func TestBaseURLTrimmed(t *testing.T) {
	t.Setenv("PORT", "")
	v := newViper()
	v.Set("base_url", "https://tracks.example.com/")
	s, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "https://tracks.example.com/redirect_after_auth", s.RedirectURL())
}

func TestAuthFile(t *testing.T) {
	t.Setenv("PORT", "")
	path := filepath.Join(t.TempDir(), "app_auth.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"client_id":" file-id ","client_secret":"file-secret"}`), 0o600))

	v := newViper()
	v.Set("auth_file", path)
	s, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "file-id", s.ClientID)
	assert.Equal(t, "file-secret", s.ClientSecret)
	assert.NoError(t, s.RequireCredentials())

	v.Set("client_id", "direct-id")
	s, err = FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "direct-id", s.ClientID)
	assert.Equal(t, "file-secret", s.ClientSecret)

	v = newViper()
	v.Set("auth_file", filepath.Join(t.TempDir(), "missing.json"))
	_, err = FromViper(v)
	assert.Error(t, err)
}
