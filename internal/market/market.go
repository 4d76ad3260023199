package market

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"finance-brief/internal/cache"
	"finance-brief/internal/fetcher"
	"finance-brief/internal/ratelimit"
)

// Instrument names a symbol for display.
type Instrument struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Sector string `json:"sector,omitempty"`
}

// Named is a quote labelled with its instrument and freshness.
type Named struct {
	Instrument
	Quote fetcher.Quote
	State cache.State
	Age   time.Duration
}

// Stale reports whether the quote came from the stale fallback.
func (n Named) Stale() bool { return n.State == cache.Stale }

// Movers groups the strongest gainers and losers.
type Movers struct {
	Gainers []Named
	Losers  []Named
}

// Options tune the market service.
type Options struct {
	// Period is the history range used to derive quotes.
	Period      string
	Policy      cache.Policy
	Indices     []Instrument
	Commodities []Instrument
}

// Service serves cached, rate-limited market quotes.
type Service struct {
	cache   *cache.Cache
	limiter *ratelimit.Limiter
	fetcher fetcher.HistoryFetcher
	opts    Options
	logger  zerolog.Logger
}

// New constructs a market service.
func New(c *cache.Cache, limiter *ratelimit.Limiter, f fetcher.HistoryFetcher, opts Options, logger zerolog.Logger) *Service {
	if opts.Period == "" {
		opts.Period = "5d"
	}
	return &Service{
		cache:   c,
		limiter: limiter,
		fetcher: f,
		opts:    opts,
		logger:  logger.With().Str("component", "market").Logger(),
	}
}

// Quote returns the latest quote for symbol. The limiter is only consulted when
// the cache has no fresh value.
func (s *Service) Quote(ctx context.Context, symbol string) cache.Result[fetcher.Quote] {
	symbol = strings.TrimSpace(symbol)
	key := fmt.Sprintf("%s_%s", symbol, s.opts.Period)
	return cache.Load(ctx, s.cache, s.opts.Policy, key, func(ctx context.Context) (fetcher.Quote, error) {
		bars, err := s.fetch(ctx, symbol, s.opts.Period)
		if err != nil {
			return fetcher.Quote{}, err
		}
		return fetcher.QuoteFromHistory(symbol, bars)
	})
}

// History returns daily bars for symbol over period.
func (s *Service) History(ctx context.Context, symbol, period string) cache.Result[[]fetcher.Bar] {
	symbol = strings.TrimSpace(symbol)
	if period == "" {
		period = s.opts.Period
	}
	key := fmt.Sprintf("history_%s_%s", symbol, period)
	return cache.Load(ctx, s.cache, s.opts.Policy, key, func(ctx context.Context) ([]fetcher.Bar, error) {
		bars, err := s.fetch(ctx, symbol, period)
		if err != nil {
			return nil, err
		}
		if len(bars) == 0 {
			return nil, fmt.Errorf("%w for %s", fetcher.ErrNoData, symbol)
		}
		return bars, nil
	})
}

func (s *Service) fetch(ctx context.Context, symbol, period string) ([]fetcher.Bar, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limiter: %w", err)
	}
	return s.fetcher.FetchHistory(ctx, symbol, period)
}

// Quotes resolves each instrument in order, skipping those with no data.
func (s *Service) Quotes(ctx context.Context, instruments []Instrument) []Named {
	out := make([]Named, 0, len(instruments))
	for _, inst := range instruments {
		res := s.Quote(ctx, inst.Symbol)
		if !res.OK() {
			s.logger.Debug().Err(res.Err).Str("symbol", inst.Symbol).Msg("no quote available")
			continue
		}
		if inst.Name == "" {
			inst.Name = inst.Symbol
		}
		out = append(out, Named{Instrument: inst, Quote: res.Value, State: res.State, Age: res.Age})
	}
	return out
}

// Forex returns the quote for one pair.
func (s *Service) Forex(ctx context.Context, pair Instrument) (Named, bool) {
	named := s.Quotes(ctx, []Instrument{pair})
	if len(named) == 0 {
		return Named{}, false
	}
	return named[0], true
}

// ForexDashboard returns quotes for every pair.
func (s *Service) ForexDashboard(ctx context.Context, pairs []Instrument) []Named {
	return s.Quotes(ctx, pairs)
}

// Indices returns quotes for the watched indices.
func (s *Service) Indices(ctx context.Context) []Named {
	return s.Quotes(ctx, s.opts.Indices)
}

// Commodities returns quotes for the watched commodities.
func (s *Service) Commodities(ctx context.Context) []Named {
	return s.Quotes(ctx, s.opts.Commodities)
}

// Movers ranks the universe by daily change. Gainers are sorted descending,
// losers ascending; each list holds at most limit entries.
func (s *Service) Movers(ctx context.Context, universe []Instrument, limit int) Movers {
	quotes := s.Quotes(ctx, universe)

	var movers Movers
	for _, q := range quotes {
		switch q.Quote.ChangePct.Sign() {
		case 1:
			movers.Gainers = append(movers.Gainers, q)
		case -1:
			movers.Losers = append(movers.Losers, q)
		}
	}
	sort.SliceStable(movers.Gainers, func(i, j int) bool {
		return movers.Gainers[i].Quote.ChangePct.GreaterThan(movers.Gainers[j].Quote.ChangePct)
	})
	sort.SliceStable(movers.Losers, func(i, j int) bool {
		return movers.Losers[i].Quote.ChangePct.LessThan(movers.Losers[j].Quote.ChangePct)
	})
	if limit > 0 {
		if len(movers.Gainers) > limit {
			movers.Gainers = movers.Gainers[:limit]
		}
		if len(movers.Losers) > limit {
			movers.Losers = movers.Losers[:limit]
		}
	}
	return movers
}
