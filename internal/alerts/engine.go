package alerts

import (
	"context"

	"github.com/rs/zerolog"

	"finance-brief/internal/cache"
	"finance-brief/internal/fetcher"
)

// QuoteSource resolves the latest quote for a symbol.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) cache.Result[fetcher.Quote]
}

// HeadlineSource returns up to limit recent headlines mentioning any keyword.
// An error means no news could be read; an empty slice means no match.
type HeadlineSource interface {
	MatchHeadlines(ctx context.Context, keywords []string, limit int) ([]string, error)
}

// Recorder receives every transition to triggered, for auditing.
type Recorder interface {
	RecordTrigger(ctx context.Context, alert Alert) error
}

// EngineOptions tune evaluation.
type EngineOptions struct {
	// AllowStale lets quotes served from the stale fallback trigger alerts.
	AllowStale bool
	// EvidenceLimit caps matched headlines kept on a news alert.
	EvidenceLimit int
}

// Engine evaluates pending alerts.
type Engine struct {
	store     *Store
	quotes    QuoteSource
	headlines HeadlineSource
	recorder  Recorder
	opts      EngineOptions
	logger    zerolog.Logger
}

// NewEngine constructs an Engine. recorder may be nil.
func NewEngine(store *Store, quotes QuoteSource, headlines HeadlineSource, recorder Recorder, opts EngineOptions, logger zerolog.Logger) *Engine {
	if opts.EvidenceLimit <= 0 {
		opts.EvidenceLimit = 3
	}
	return &Engine{
		store:     store,
		quotes:    quotes,
		headlines: headlines,
		recorder:  recorder,
		opts:      opts,
		logger:    logger.With().Str("component", "alert_engine").Logger(),
	}
}

// EvaluateAll checks every pending alert in persisted order and returns those
// that triggered during this call. The collection is written once, after all
// alerts were checked. The error only reports a failed write; the triggered
// alerts are returned regardless.
func (e *Engine) EvaluateAll(ctx context.Context) ([]Alert, error) {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()

	alerts := e.store.load()
	var triggered []Alert

	for i := range alerts {
		a := &alerts[i]
		if a.Triggered {
			continue
		}

		var fired bool
		switch a.Kind {
		case KindPrice:
			fired = e.checkPrice(ctx, a)
		case KindVolatility:
			fired = e.checkVolatility(ctx, a)
		case KindNews:
			fired = e.checkNews(ctx, a)
		default:
			e.logger.Warn().Int("id", a.ID).Str("type", string(a.Kind)).Msg("unknown alert type; skipping")
		}
		if !fired {
			continue
		}

		now := e.store.now().In(e.store.loc)
		a.Triggered = true
		a.TriggerTime = &now
		triggered = append(triggered, *a)
		e.logger.Info().Int("id", a.ID).Str("type", string(a.Kind)).Msg("alert triggered")
	}

	saveErr := e.store.save(alerts)
	if saveErr != nil {
		e.logger.Error().Err(saveErr).Int("triggered", len(triggered)).Msg("failed to persist alert evaluation")
	}

	if e.recorder != nil {
		for _, a := range triggered {
			if err := e.recorder.RecordTrigger(ctx, a); err != nil {
				e.logger.Error().Err(err).Int("id", a.ID).Msg("failed to record alert trigger")
			}
		}
	}

	return triggered, saveErr
}

func (e *Engine) quote(ctx context.Context, a *Alert) (fetcher.Quote, bool) {
	if e.quotes == nil || a.Symbol == "" {
		return fetcher.Quote{}, false
	}
	res := e.quotes.Quote(ctx, a.Symbol)
	switch res.State {
	case cache.Fresh:
		return res.Value, true
	case cache.Stale:
		if e.opts.AllowStale {
			return res.Value, true
		}
		e.logger.Debug().Int("id", a.ID).Dur("age", res.Age).Msg("ignoring stale quote")
	default:
		e.logger.Debug().Err(res.Err).Int("id", a.ID).Str("symbol", a.Symbol).Msg("no quote; alert stays pending")
	}
	return fetcher.Quote{}, false
}

func (e *Engine) checkPrice(ctx context.Context, a *Alert) bool {
	if a.Target == nil {
		return false
	}
	q, ok := e.quote(ctx, a)
	if !ok {
		return false
	}

	var hit bool
	switch a.Condition {
	case Above:
		hit = q.Price.GreaterThanOrEqual(*a.Target)
	case Below:
		hit = q.Price.LessThanOrEqual(*a.Target)
	}
	if hit {
		price := q.Price
		a.TriggerPrice = &price
	}
	return hit
}

func (e *Engine) checkVolatility(ctx context.Context, a *Alert) bool {
	if a.ThresholdPct == nil {
		return false
	}
	q, ok := e.quote(ctx, a)
	if !ok {
		return false
	}
	if q.ChangePct.Abs().LessThan(*a.ThresholdPct) {
		return false
	}
	change := q.ChangePct
	a.TriggerChangePct = &change
	return true
}

func (e *Engine) checkNews(ctx context.Context, a *Alert) bool {
	if e.headlines == nil || len(a.Keywords) == 0 {
		return false
	}
	titles, err := e.headlines.MatchHeadlines(ctx, a.Keywords, e.opts.EvidenceLimit)
	if err != nil {
		e.logger.Debug().Err(err).Int("id", a.ID).Msg("no news; alert stays pending")
		return false
	}
	if len(titles) == 0 {
		return false
	}
	if len(titles) > e.opts.EvidenceLimit {
		titles = titles[:e.opts.EvidenceLimit]
	}
	a.MatchedHeadlines = append([]string(nil), titles...)
	return true
}
