package news

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"finance-brief/internal/cache"
	"finance-brief/internal/fetcher"
	"finance-brief/internal/ratelimit"
)

// ErrNoFeeds reports a scan where every feed failed.
var ErrNoFeeds = errors.New("news: no feed could be read")

// Item is a scored news entry.
type Item struct {
	Title     string     `json:"title"`
	Summary   string     `json:"summary"`
	Link      string     `json:"link"`
	Published *time.Time `json:"published,omitempty"`
	Source    string     `json:"source"`
	Category  string     `json:"category"`
	Priority  string     `json:"priority"`
	Score     int        `json:"score"`
}

// Match is an item selected by a keyword scan.
type Match struct {
	Item
	Keyword string `json:"keyword"`
}

// Options tune the scanner.
type Options struct {
	Reference Reference
	// DedupPrefix is the number of leading title runes compared when removing
	// duplicates. Zero compares whole titles.
	DedupPrefix int
	// Lookback is how many of the latest items keyword scans consider.
	Lookback int
	Policy   cache.Policy
}

// Scanner aggregates, scores and caches news feeds.
type Scanner struct {
	cache   *cache.Cache
	limiter *ratelimit.Limiter
	fetcher fetcher.FeedFetcher
	opts    Options
	logger  zerolog.Logger
}

// NewScanner constructs a Scanner.
func NewScanner(c *cache.Cache, limiter *ratelimit.Limiter, f fetcher.FeedFetcher, opts Options, logger zerolog.Logger) *Scanner {
	if opts.Lookback <= 0 {
		opts.Lookback = 50
	}
	if opts.DedupPrefix < 0 {
		opts.DedupPrefix = 0
	}
	return &Scanner{
		cache:   c,
		limiter: limiter,
		fetcher: f,
		opts:    opts,
		logger:  logger.With().Str("component", "news").Logger(),
	}
}

// Scan returns the top limit items, optionally restricted to one category.
func (s *Scanner) Scan(ctx context.Context, category string, limit int) cache.Result[[]Item] {
	key := "news_all"
	if category != "" {
		key = "news_" + category
	}
	res := cache.Load(ctx, s.cache, s.opts.Policy, key, func(ctx context.Context) ([]Item, error) {
		return s.collect(ctx, category)
	})
	if limit > 0 && len(res.Value) > limit {
		res.Value = res.Value[:limit]
	}
	return res
}

func (s *Scanner) collect(ctx context.Context, category string) ([]Item, error) {
	ref := s.opts.Reference

	ids := make([]string, 0, len(ref.Feeds))
	for id := range ref.Feeds {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var (
		items    []Item
		attempts int
		failures int
		lastErr  error
	)
	for _, id := range ids {
		feed := ref.Feeds[id]
		if category != "" && feed.Category != category {
			continue
		}
		attempts++

		entries, err := s.fetchFeed(ctx, feed.URL, ref.MaxItemsPerFeed)
		if err != nil {
			failures++
			lastErr = err
			s.logger.Warn().Err(err).Str("feed", id).Msg("feed unavailable")
			continue
		}

		for _, entry := range entries {
			item := Item{
				Title:     entry.Title,
				Summary:   entry.Summary,
				Link:      entry.Link,
				Published: entry.Published,
				Source:    feed.Name,
				Category:  orDefault(feed.Category, "general"),
				Priority:  orDefault(feed.Priority, "medium"),
			}
			item.Score = score(item.Title, item.Summary, ref.KeywordWeights)
			items = append(items, item)
		}
	}

	if attempts > 0 && failures == attempts {
		return nil, fmt.Errorf("%w: %v", ErrNoFeeds, lastErr)
	}

	items = dedupe(items, s.opts.DedupPrefix)
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return priorityRank(items[i].Priority) < priorityRank(items[j].Priority)
	})

	if ref.MaxTotalItems > 0 && len(items) > ref.MaxTotalItems {
		items = items[:ref.MaxTotalItems]
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

func (s *Scanner) fetchFeed(ctx context.Context, url string, maxItems int) ([]fetcher.FeedItem, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limiter: %w", err)
	}
	return s.fetcher.FetchFeed(ctx, url, maxItems)
}

// ScanForKeywords returns items among the latest Lookback whose title or
// summary contains any keyword, ignoring case. Each item reports the first
// keyword that matched.
func (s *Scanner) ScanForKeywords(ctx context.Context, keywords []string, limit int) cache.Result[[]Match] {
	scanned := s.Scan(ctx, "", s.opts.Lookback)
	out := cache.Result[[]Match]{State: scanned.State, Age: scanned.Age, Err: scanned.Err}
	if !scanned.OK() {
		return out
	}

	for _, item := range scanned.Value {
		text := strings.ToUpper(item.Title + " " + item.Summary)
		for _, kw := range keywords {
			kw = strings.TrimSpace(kw)
			if kw == "" {
				continue
			}
			if strings.Contains(text, strings.ToUpper(kw)) {
				out.Value = append(out.Value, Match{Item: item, Keyword: kw})
				break
			}
		}
		if limit > 0 && len(out.Value) >= limit {
			break
		}
	}
	return out
}

// MatchHeadlines returns up to limit titles matching keywords. It fails when
// no news could be read at all, so callers can tell "no match" from "no data".
func (s *Scanner) MatchHeadlines(ctx context.Context, keywords []string, limit int) ([]string, error) {
	res := s.ScanForKeywords(ctx, keywords, limit)
	if !res.OK() {
		return nil, res.Err
	}
	titles := make([]string, 0, len(res.Value))
	for _, m := range res.Value {
		titles = append(titles, m.Title)
	}
	return titles, nil
}

func score(title, summary string, weights Weights) int {
	text := strings.ToUpper(title + " " + summary)
	total := 0
	for _, group := range []struct {
		words  []string
		points int
	}{
		{weights.High, 3},
		{weights.Medium, 2},
		{weights.Low, 1},
	} {
		for _, w := range group.words {
			if w != "" && strings.Contains(text, strings.ToUpper(w)) {
				total += group.points
			}
		}
	}
	return total
}

// dedupe keeps the first item for each lowercase title prefix. Distinct
// stories sharing a long prefix collapse into one.
func dedupe(items []Item, prefix int) []Item {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, item := range items {
		key := strings.ToLower(item.Title)
		if prefix > 0 {
			if runes := []rune(key); len(runes) > prefix {
				key = string(runes[:prefix])
			}
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

func priorityRank(p string) int {
	switch p {
	case "high":
		return 0
	case "low":
		return 2
	default:
		return 1
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
