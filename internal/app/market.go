package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"finance-brief/internal/format"
	"finance-brief/internal/market"
)

// ForexOptions configure the forex command.
type ForexOptions struct {
	Pair      string
	Dashboard bool
}

// Forex prints one pair or the whole dashboard.
func (a *App) Forex(ctx context.Context, opts ForexOptions) error {
	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if opts.Dashboard {
		pairs := s.forexPairs
		if len(pairs) == 0 {
			pairs = []market.Instrument{s.forexPair}
		}
		a.println(quoteLines("Forex Dashboard", s.market.ForexDashboard(ctx, pairs)))
		return nil
	}

	pair := s.forexPair
	if opts.Pair != "" {
		pair = lookupPair(s.forexPairs, opts.Pair)
	}
	q, ok := s.market.Forex(ctx, pair)
	if !ok {
		return fmt.Errorf("no data for %s", pair.Symbol)
	}
	a.printf("%s: %s (%s)%s\n", q.Name, format.Price(&q.Quote.Price, 4), format.Change(&q.Quote.ChangePct), format.Stale(q.Stale()))
	a.printf("  High: %s | Low: %s\n", format.Price(&q.Quote.High, 4), format.Price(&q.Quote.Low, 4))
	return nil
}

// lookupPair accepts "AUDUSD", "audusd=x" or a configured symbol.
func lookupPair(pairs []market.Instrument, want string) market.Instrument {
	symbol := strings.ToUpper(strings.TrimSpace(want))
	if !strings.HasSuffix(symbol, "=X") {
		symbol += "=X"
	}
	for _, p := range pairs {
		if p.Symbol == symbol {
			return p
		}
	}
	return market.Instrument{Symbol: symbol, Name: symbol}
}

// Indices prints the watched indices.
func (a *App) Indices(ctx context.Context) error {
	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	a.println(quoteLines("Global Indices", s.market.Indices(ctx)))
	return nil
}

// Commodities prints the watched commodities.
func (a *App) Commodities(ctx context.Context) error {
	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	a.println(quoteLines("Commodities", s.market.Commodities(ctx)))
	return nil
}

// Movers prints the top gainers and losers across the stock universe.
func (a *App) Movers(ctx context.Context, limit int) error {
	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if len(s.universe) == 0 {
		return errors.New("stock universe not loaded; check market.universe_file")
	}
	if limit <= 0 {
		limit = a.Config.Market.MoversLimit
	}

	movers := s.market.Movers(ctx, s.universe, limit)
	a.println(quoteLines("Top Gainers", movers.Gainers))
	a.println("")
	a.println(quoteLines("Top Losers", movers.Losers))
	return nil
}

func quoteLines(title string, quotes []market.Named) string {
	lines := []string{format.SectionHeader(title)}
	if len(quotes) == 0 {
		lines = append(lines, "  "+format.NA)
	}
	for _, q := range quotes {
		lines = append(lines, format.CurrencyLine(q.Name, &q.Quote.Price, &q.Quote.ChangePct)+format.Stale(q.Stale()))
	}
	return strings.Join(lines, "\n")
}
