// Package scraper fetches playlist pages and extracts their track listing.
//
// This package offers a configurable scraper that can fetch a page either with
// a plain HTTP client or through a headless browser for pages that render
// their track list with JavaScript. It provides functionality to parse HTML,
// extract metadata like title and description, and locate the element that
// holds the track listing.
package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/tesh254/tracklist/internal/constants"
	"github.com/tesh254/tracklist/internal/tracklist"
)

var (
	// ErrNoContent is returned when the listing is requested before a page was loaded.
	ErrNoContent = errors.New("content not found, call GetContent first")
	// ErrListingNotFound is returned when the page has no element matching the list selector.
	ErrListingNotFound = errors.New("track listing element not found")
)

// Config holds configuration options for the scraper.
//
// This struct allows customization of the scraper's behavior including
// request parameters, timeouts, rate limiting and the selectors used to find
// the listing on the page.
type Config struct {
	// UserAgent is the User-Agent header value sent with HTTP requests
	UserAgent string
	// Timeout specifies the maximum duration to wait for a page to load
	Timeout time.Duration
	// RequestDelay specifies the minimum time between requests to the same host
	RequestDelay time.Duration
	// MaxConcurrent limits the total number of concurrent page loads
	MaxConcurrent int
	// Render loads the page in a headless browser instead of a plain GET
	Render bool
	// ListSelector selects the element holding the track listing
	ListSelector string
	// NameSelector selects the element holding the playlist name
	NameSelector string
	// Verbose enables banners, tables and spinners on stdout
	Verbose bool
}

// DefaultConfig returns a default configuration with reasonable values.
//
// The selectors match the ids the playlist page uses for its name and its
// song list.
func DefaultConfig() *Config {
	return &Config{
		UserAgent:     "Mozilla/5.0 (compatible; TracklistScraper/1.0)",
		Timeout:       15 * time.Second,
		RequestDelay:  1 * time.Second,
		MaxConcurrent: 2,
		ListSelector:  "#" + constants.SongListID,
		NameSelector:  "#" + constants.PlaylistNameID,
	}
}

// Metadata holds metadata information extracted from a webpage.
type Metadata struct {
	// Title is the content of the <title> tag
	Title string
	// Description is the content of the meta description tag
	Description string
}

// Fetcher loads a page and returns its HTML.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// Scraper is responsible for loading a playlist page and extracting its listing.
type Scraper struct {
	// URL is the page to scrape
	URL string
	// Verbose mirrors Config.Verbose
	Verbose bool
	// Metadata contains extracted metadata from the scraped content
	Metadata Metadata
	// Content holds the parsed HTML content
	Content *html.Node
	// Config contains all the configuration options for this scraper
	Config *Config

	fetcher Fetcher
	limiter *limiter
}

// limiter enforces the per-host delay and global concurrency shared by the
// scrapers of one extraction run.
type limiter struct {
	delay           time.Duration
	requestSem      chan struct{}
	mutex           sync.Mutex
	lastRequestTime map[string]time.Time
}

func newLimiter(cfg *Config) *limiter {
	n := cfg.MaxConcurrent
	if n < 1 {
		n = 1
	}
	return &limiter{
		delay:           cfg.RequestDelay,
		requestSem:      make(chan struct{}, n),
		lastRequestTime: make(map[string]time.Time),
	}
}

// New creates a new scraper with the given URL and configuration.
//
// If config is nil, default configuration will be used. Pages are fetched
// over HTTP unless config.Render is set.
func New(pageURL string, config *Config) *Scraper {
	if config == nil {
		config = DefaultConfig()
	}
	return newWithFetcher(pageURL, config, newFetcher(config), newLimiter(config))
}

func newFetcher(config *Config) Fetcher {
	if config.Render {
		return NewBrowserFetcher(config)
	}
	return NewHTTPFetcher(config)
}

func newWithFetcher(pageURL string, config *Config, f Fetcher, l *limiter) *Scraper {
	return &Scraper{
		URL:     pageURL,
		Verbose: config.Verbose,
		Config:  config,
		fetcher: f,
		limiter: l,
	}
}

// wait blocks until a request slot is free and the host's delay has passed.
func (l *limiter) wait(ctx context.Context, host string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Acquire semaphore slot (limits concurrent requests)
	select {
	case l.requestSem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	l.mutex.Lock()
	lastReq, exists := l.lastRequestTime[host]
	if exists {
		if elapsed := time.Since(lastReq); elapsed < l.delay {
			l.mutex.Unlock()
			select {
			case <-time.After(l.delay - elapsed):
			case <-ctx.Done():
				<-l.requestSem
				return ctx.Err()
			}
			l.mutex.Lock()
		}
	}
	l.lastRequestTime[host] = time.Now()
	l.mutex.Unlock()
	return nil
}

func (l *limiter) release() {
	<-l.requestSem
}

// GetContent fetches the page and parses it.
//
// The method applies rate limiting and respects the configured timeout. A
// URL without a scheme or with the file scheme is read from disk.
func (s *Scraper) GetContent(ctx context.Context) error {
	s.displayInitBanner()

	if isLocal(s.URL) {
		body, err := readLocal(s.URL)
		if err != nil {
			s.displayError(err)
			return fmt.Errorf("failed to read content: %w", err)
		}
		return s.ParseHTML(bytes.NewReader(body))
	}

	parsedURL, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if err := s.limiter.wait(ctx, parsedURL.Host); err != nil {
		return err
	}
	defer s.limiter.release()

	done := s.startSpinner("Loading " + s.URL)
	body, err := s.fetcher.Fetch(ctx, s.URL)
	close(done)
	if err != nil {
		s.displayError(err)
		return fmt.Errorf("failed to fetch content: %w", err)
	}
	return s.ParseHTML(strings.NewReader(body))
}

// ParseHTML parses an HTML document into the scraper and extracts its metadata.
func (s *Scraper) ParseHTML(r io.Reader) error {
	doc, err := html.Parse(r)
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}
	s.Content = doc
	return s.GetMetadata()
}

// GetMetadata extracts metadata (title, description) from the HTML content.
//
// It requires that GetContent or ParseHTML has been called first.
func (s *Scraper) GetMetadata() error {
	if s.Content == nil {
		return ErrNoContent
	}
	s.Metadata.Title = strings.TrimSpace(extractTitle(s.Content))
	s.Metadata.Description = strings.TrimSpace(extractDescription(s.Content))
	s.displayMetadata()
	return nil
}

// Listing extracts the track listing from the loaded page.
//
// When the list element holds one wrapper div per track with song_name,
// artists and album children, the tracks are read field by field. Otherwise
// the element's text is split into one track per line.
func (s *Scraper) Listing() (*tracklist.Listing, error) {
	if s.Content == nil {
		return nil, ErrNoContent
	}

	list := querySelector(s.Content, s.Config.ListSelector)
	if list == nil {
		return nil, fmt.Errorf("%w: %s", ErrListingNotFound, s.Config.ListSelector)
	}

	name := s.playlistName()
	var listing *tracklist.Listing
	if tracks := structuredTracks(list); len(tracks) > 0 {
		listing = &tracklist.Listing{Name: name, Tracks: tracks}
	} else {
		listing = tracklist.FromText(name, textContent(list))
	}

	s.displayListing(listing)
	return listing, nil
}

func (s *Scraper) playlistName() string {
	if s.Config.NameSelector != "" {
		if n := querySelector(s.Content, s.Config.NameSelector); n != nil {
			if name := collapseSpace(textContent(n)); name != "" {
				return name
			}
		}
	}
	if s.Metadata.Title != "" {
		return s.Metadata.Title
	}
	if u, err := url.Parse(s.URL); err == nil {
		base := strings.TrimSuffix(path.Base(u.Path), path.Ext(u.Path))
		if base != "." && base != "/" && base != "" {
			return base
		}
	}
	return ""
}

// HTTPFetcher loads pages with a plain GET.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates a fetcher using the config's timeout and user agent.
func NewHTTPFetcher(cfg *Config) *HTTPFetcher {
	return &HTTPFetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
	}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") {
		return "", fmt.Errorf("not HTML content: %s", contentType)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return string(body), nil
}
