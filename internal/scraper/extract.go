package scraper

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/tesh254/tracklist/internal/tracklist"
)

// Extract loads one page and returns its listing.
func Extract(ctx context.Context, target string, cfg *Config) (*tracklist.Listing, error) {
	s := New(target, cfg)
	if err := s.GetContent(ctx); err != nil {
		return nil, err
	}
	return s.Listing()
}

// ExtractAll loads every target concurrently, bounded by cfg.MaxConcurrent and
// the per-host delay. Listings are returned in the order of targets. The first
// failure cancels the remaining loads.
func ExtractAll(ctx context.Context, targets []string, cfg *Config) ([]*tracklist.Listing, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return extractAll(ctx, targets, cfg, newFetcher(cfg))
}

func extractAll(ctx context.Context, targets []string, cfg *Config, f Fetcher) ([]*tracklist.Listing, error) {
	l := newLimiter(cfg)
	listings := make([]*tracklist.Listing, len(targets))

	g, ctx := errgroup.WithContext(ctx)
	for i, target := range targets {
		g.Go(func() error {
			s := newWithFetcher(target, cfg, f, l)
			if err := s.GetContent(ctx); err != nil {
				return fmt.Errorf("%s: %w", target, err)
			}
			listing, err := s.Listing()
			if err != nil {
				return fmt.Errorf("%s: %w", target, err)
			}
			listings[i] = listing
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return listings, nil
}
