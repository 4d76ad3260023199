package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
)

// RSSOptions parameterise the feed fetcher.
type RSSOptions struct {
	Timeout   time.Duration
	UserAgent string
}

// RSS downloads and parses RSS/Atom feeds.
type RSS struct {
	opts   RSSOptions
	client *http.Client
	logger zerolog.Logger
}

// NewRSS constructs a feed fetcher.
func NewRSS(opts RSSOptions, logger zerolog.Logger) *RSS {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RSS{
		opts:   opts,
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "rss_fetcher").Logger(),
	}
}

// FetchFeed returns up to maxItems entries in feed order.
func (f *RSS) FetchFeed(ctx context.Context, url string, maxItems int) ([]FeedItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if ua := strings.TrimSpace(f.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("feed %s returned status %d", url, resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", url, err)
	}

	entries := feed.Items
	if maxItems > 0 && len(entries) > maxItems {
		entries = entries[:maxItems]
	}

	items := make([]FeedItem, 0, len(entries))
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		title := strings.TrimSpace(entry.Title)
		if title == "" {
			title = "No title"
		}
		item := FeedItem{
			Title:   title,
			Summary: strings.TrimSpace(entry.Description),
			Link:    entry.Link,
		}
		if entry.PublishedParsed != nil {
			published := entry.PublishedParsed.UTC()
			item.Published = &published
		}
		items = append(items, item)
	}

	f.logger.Debug().Str("url", url).Int("items", len(items)).Msg("feed fetched")
	return items, nil
}

var _ FeedFetcher = (*RSS)(nil)
