// Package spotify is a small client for the parts of the Spotify Web API the
// playlist tools need: the authorization-code flow, the current user, their
// playlists, playlist tracks and artist genres.
//
// Authentication uses golang.org/x/oauth2; the HTTP client it returns
// refreshes expired access tokens with the refresh token.
package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

const (
	AuthURL  = "https://accounts.spotify.com/authorize"
	TokenURL = "https://accounts.spotify.com/api/token"
	APIBase  = "https://api.spotify.com/v1"
)

// Scopes requested during authorization.
var Scopes = []string{
	"playlist-read-private",
	"playlist-read-collaborative",
}

var (
	// ErrNotAuthenticated is returned when a call is made without a token.
	ErrNotAuthenticated = errors.New("spotify: not authenticated")
	// ErrTokenExpired is returned when the API rejects the access token.
	ErrTokenExpired = errors.New("spotify: access token expired, reauthorization needed")
)

// APIError is a non-2xx reply from the Web API.
type APIError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify: api error %d: %s", e.Status, e.Message)
}

// Credentials identify the registered application.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Client talks to the accounts service and the Web API.
type Client struct {
	oauth   *oauth2.Config
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another Web API root.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(base, "/") }
}

// WithEndpoint replaces the accounts service endpoints.
func WithEndpoint(authURL, tokenURL string) Option {
	return func(c *Client) {
		c.oauth.Endpoint.AuthURL = authURL
		c.oauth.Endpoint.TokenURL = tokenURL
	}
}

// WithHTTPClient sets the HTTP client used for token requests and as the
// base transport for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a client for the given application credentials.
func NewClient(creds Credentials, opts ...Option) *Client {
	c := &Client{
		oauth: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURL,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   AuthURL,
				TokenURL:  TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		baseURL: APIBase,
		http:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) withHTTP(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

// AuthCodeURL returns the URL the user is sent to for consent.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, errors.New("spotify: empty authorization code")
	}
	tok, err := c.oauth.Exchange(c.withHTTP(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("spotify: failed to exchange code: %w", err)
	}
	return tok, nil
}

// TokenSource returns a source that refreshes tok when it expires.
func (c *Client) TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return c.oauth.TokenSource(c.withHTTP(ctx), tok)
}

// get issues an authenticated GET against the Web API and decodes the reply
// into out. endpoint is either a path below the base URL or an absolute URL
// returned by the API for paging.
func (c *Client) get(ctx context.Context, tok *oauth2.Token, endpoint string, query url.Values, out any) error {
	if tok == nil || tok.AccessToken == "" {
		return ErrNotAuthenticated
	}

	target := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		target = c.baseURL + endpoint
	}
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("spotify: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	hc := oauth2.NewClient(c.withHTTP(ctx), c.TokenSource(ctx, tok))
	resp, err := hc.Do(req)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) || strings.Contains(err.Error(), "token expired") {
			return fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return fmt.Errorf("spotify: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrTokenExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("spotify: failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var wrapped struct {
		Error APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Error.Message != "" {
		if wrapped.Error.Status == 0 {
			wrapped.Error.Status = resp.StatusCode
		}
		return &wrapped.Error
	}
	return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
}
