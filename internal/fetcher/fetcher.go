package fetcher

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNoData reports an upstream that answered but had nothing usable.
var ErrNoData = errors.New("fetcher: no data")

// Bar is one daily OHLCV observation.
type Bar struct {
	Time   time.Time       `json:"time"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// FeedItem is one entry of an RSS or Atom feed.
type FeedItem struct {
	Title     string     `json:"title"`
	Summary   string     `json:"summary"`
	Link      string     `json:"link"`
	Published *time.Time `json:"published,omitempty"`
}

// HistoryFetcher retrieves recent daily bars for a symbol. period follows the
// Yahoo range vocabulary ("1d", "5d", "1mo", ...).
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, symbol, period string) ([]Bar, error)
}

// FeedFetcher retrieves at most maxItems entries from a feed URL.
type FeedFetcher interface {
	FetchFeed(ctx context.Context, url string, maxItems int) ([]FeedItem, error)
}
