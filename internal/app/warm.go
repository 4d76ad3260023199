package app

import (
	"context"
	"errors"
	"fmt"

	"finance-brief/internal/market"
)

// WarmOptions configure the cache warm-up.
type WarmOptions struct {
	// Universe also prefetches every stock in the universe file.
	Universe bool
}

// Warm 依次预取所有关注标的的行情，填充缓存。
func (a *App) Warm(ctx context.Context, opts WarmOptions) error {
	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	var targets []market.Instrument
	targets = append(targets, s.forexPair)
	targets = append(targets, s.forexPairs...)
	targets = append(targets, instruments(a.Config.Market.Indices)...)
	targets = append(targets, instruments(a.Config.Market.Commodities)...)
	if opts.Universe {
		targets = append(targets, s.universe...)
	}

	seen := make(map[string]struct{}, len(targets))
	fetched, failed := 0, 0
	for _, in := range targets {
		if _, dup := seen[in.Symbol]; dup || in.Symbol == "" {
			continue
		}
		seen[in.Symbol] = struct{}{}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if res := s.market.Quote(ctx, in.Symbol); !res.OK() {
			failed++
			a.Logger.Warn().Err(res.Err).Str("symbol", in.Symbol).Msg("warm-up fetch failed")
			continue
		}
		fetched++
	}

	if res := s.news.Scan(ctx, "", 0); !res.OK() {
		failed++
		a.Logger.Warn().Err(res.Err).Msg("warm-up news scan failed")
	} else {
		fetched++
	}

	a.printf("Warmed %d entries, %d failed\n", fetched, failed)
	a.Logger.Info().Int("fetched", fetched).Int("failed", failed).Msg("cache warm-up complete")
	if failed > 0 && fetched == 0 {
		return errors.New("warm-up failed for every instrument; check network and logs")
	}
	if failed > 0 {
		return fmt.Errorf("%d instrument(s) failed to warm", failed)
	}
	return nil
}
