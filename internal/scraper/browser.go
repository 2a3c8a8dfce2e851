package scraper

import (
	"context"
	"fmt"
	"log"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// BrowserFetcher loads pages in a headless Chromium so that listings built by
// page scripts are present in the returned HTML.
type BrowserFetcher struct {
	cfg *Config
	// Bin is an optional path to the browser binary. Empty lets the launcher
	// find or download one.
	Bin string
}

// NewBrowserFetcher creates a headless browser fetcher.
func NewBrowserFetcher(cfg *Config) *BrowserFetcher {
	return &BrowserFetcher{cfg: cfg}
}

// Fetch implements Fetcher. A browser is launched per call and closed before
// returning.
func (f *BrowserFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	l := launcher.New().Headless(true).Context(ctx)
	if f.Bin != "" {
		l = l.Bin(f.Bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return "", fmt.Errorf("failed to launch browser: %w", err)
	}
	defer l.Kill()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return "", fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer browser.Close()

	// Open a blank page first so the user agent applies to the first request.
	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("failed to open page: %w", err)
	}
	overrideUserAgent(page, f.cfg.UserAgent)
	if err := page.Navigate(pageURL); err != nil {
		return "", fmt.Errorf("failed to navigate to %s: %w", pageURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("failed to load page: %w", err)
	}
	if f.cfg.ListSelector != "" {
		// The list may be filled in after load; wait for it but fall back to
		// whatever rendered if it never shows up.
		_, _ = page.Timeout(f.cfg.Timeout / 2).Element(f.cfg.ListSelector)
	}

	body, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to read page HTML: %w", err)
	}
	return body, nil
}

type userAgentSetter interface {
	SetUserAgent(req *proto.NetworkSetUserAgentOverride) error
}

// overrideUserAgent sets ua on p. A failed override is logged and the page
// keeps the browser's default agent.
func overrideUserAgent(p userAgentSetter, ua string) {
	if ua == "" {
		return
	}
	if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
		log.Printf("[WARN] Failed to set user agent %q: %v", ua, err)
	}
}
