// Package config is the typed view of the viper configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tesh254/tracklist/internal/constants"
)

// ErrMissingCredentials is returned when no Spotify application credentials
// are configured.
var ErrMissingCredentials = errors.New("spotify client_id and client_secret are required (set them in the config file, the environment or auth_file)")

// Settings holds the resolved configuration.
type Settings struct {
	ClientID      string
	ClientSecret  string
	Host          string
	Port          int
	Debug         bool
	BaseURL       string
	User          string
	DBPath        string
	RenderTimeout time.Duration
}

type appAuth struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", constants.DefaultPort)
	v.SetDefault("debug", false)
	v.SetDefault("render_timeout", 30*time.Second)
}

// FromViper resolves Settings from v. PORT in the environment overrides the
// configured port, and credentials missing from v are read from auth_file.
func FromViper(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		ClientID:      strings.TrimSpace(v.GetString("client_id")),
		ClientSecret:  strings.TrimSpace(v.GetString("client_secret")),
		Host:          v.GetString("host"),
		Port:          v.GetInt("port"),
		Debug:         v.GetBool("debug"),
		BaseURL:       strings.TrimRight(v.GetString("base_url"), "/"),
		User:          v.GetString("user"),
		DBPath:        v.GetString("db"),
		RenderTimeout: v.GetDuration("render_timeout"),
	}

	if env := os.Getenv("PORT"); env != "" {
		port, err := strconv.Atoi(env)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", env, err)
		}
		s.Port = port
	}
	if s.Port <= 0 || s.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", s.Port)
	}
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.BaseURL == "" {
		s.BaseURL = fmt.Sprintf("http://localhost:%d", s.Port)
	}

	if authFile := v.GetString("auth_file"); authFile != "" && (s.ClientID == "" || s.ClientSecret == "") {
		auth, err := readAuthFile(authFile)
		if err != nil {
			return nil, err
		}
		if s.ClientID == "" {
			s.ClientID = auth.ClientID
		}
		if s.ClientSecret == "" {
			s.ClientSecret = auth.ClientSecret
		}
	}
	return s, nil
}

func readAuthFile(path string) (*appAuth, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read auth file: %w", err)
	}
	var auth appAuth
	if err := json.Unmarshal(raw, &auth); err != nil {
		return nil, fmt.Errorf("failed to parse auth file %s: %w", path, err)
	}
	auth.ClientID = strings.TrimSpace(auth.ClientID)
	auth.ClientSecret = strings.TrimSpace(auth.ClientSecret)
	return &auth, nil
}

// RequireCredentials fails when the Spotify credentials are not set.
func (s *Settings) RequireCredentials() error {
	if s.ClientID == "" || s.ClientSecret == "" {
		return ErrMissingCredentials
	}
	return nil
}

// Addr is the host:port the web server listens on.
func (s *Settings) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// RedirectURL is the OAuth callback registered with Spotify.
func (s *Settings) RedirectURL() string {
	return s.BaseURL + "/redirect_after_auth"
}
