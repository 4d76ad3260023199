package fetcher

import (
	"context"
	"fmt"
	"strings"
)

// ChainlinkPrefix marks symbols served by on-chain price feeds, e.g. "cl:ETH-USD".
const ChainlinkPrefix = "cl:"

// Router dispatches symbols to a fetcher by prefix, falling back to a default.
type Router struct {
	fallback HistoryFetcher
	routes   map[string]HistoryFetcher
}

// NewRouter constructs a router with a default fetcher.
func NewRouter(fallback HistoryFetcher) *Router {
	return &Router{fallback: fallback, routes: make(map[string]HistoryFetcher)}
}

// Handle registers fetcher for symbols starting with prefix. The prefix is
// stripped before the call.
func (r *Router) Handle(prefix string, fetcher HistoryFetcher) *Router {
	r.routes[strings.ToLower(prefix)] = fetcher
	return r
}

// FetchHistory implements HistoryFetcher.
func (r *Router) FetchHistory(ctx context.Context, symbol, period string) ([]Bar, error) {
	lower := strings.ToLower(symbol)
	for prefix, f := range r.routes {
		if strings.HasPrefix(lower, prefix) {
			return f.FetchHistory(ctx, symbol[len(prefix):], period)
		}
	}
	if r.fallback == nil {
		return nil, fmt.Errorf("no fetcher configured for %s", symbol)
	}
	return r.fallback.FetchHistory(ctx, symbol, period)
}

var _ HistoryFetcher = (*Router)(nil)
