package alerts

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"finance-brief/internal/jsonfile"
)

// StoreOptions configure the alert store.
type StoreOptions struct {
	Path     string
	Location *time.Location
	Now      func() time.Time
}

// Store persists the alert collection as one JSON document. Every mutation
// rewrites the whole document under mu.
type Store struct {
	path   string
	loc    *time.Location
	now    func() time.Time
	logger zerolog.Logger

	// write is swapped in tests to observe persistence.
	write func(path string, v any) error

	mu sync.Mutex
}

// NewStore constructs a Store.
func NewStore(opts StoreOptions, logger zerolog.Logger) *Store {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		path:   opts.Path,
		loc:    loc,
		now:    now,
		logger: logger.With().Str("component", "alert_store").Logger(),
		write:  jsonfile.Write,
	}
}

// List returns every alert in persisted order.
func (s *Store) List() []Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Add validates req and appends a new alert.
func (s *Store) Add(req Request) (Alert, error) {
	switch req.Kind {
	case KindPrice:
		if req.Target == nil {
			return Alert{}, fmt.Errorf("%w: target is required", ErrValidation)
		}
		return s.AddPrice(req.Symbol, req.Condition, *req.Target)
	case KindNews:
		return s.AddNews(req.Keywords)
	case KindVolatility:
		if req.ThresholdPct == nil {
			return Alert{}, fmt.Errorf("%w: threshold_pct is required", ErrValidation)
		}
		return s.AddVolatility(req.Symbol, *req.ThresholdPct)
	default:
		return Alert{}, fmt.Errorf("%w: unknown alert type %q", ErrValidation, req.Kind)
	}
}

// AddPrice adds an alert that fires once the price reaches target.
func (s *Store) AddPrice(symbol, condition string, target decimal.Decimal) (Alert, error) {
	cond, err := ParseCondition(condition)
	if err != nil {
		return Alert{}, err
	}
	symbol, err = normalizeSymbol(symbol)
	if err != nil {
		return Alert{}, err
	}
	return s.append(Alert{Kind: KindPrice, Symbol: symbol, Condition: cond, Target: &target})
}

// AddNews adds an alert that fires when any keyword appears in recent news.
func (s *Store) AddNews(keywords []string) (Alert, error) {
	kws, err := normalizeKeywords(keywords)
	if err != nil {
		return Alert{}, err
	}
	return s.append(Alert{Kind: KindNews, Keywords: kws})
}

// AddVolatility adds an alert that fires when the daily move reaches threshold percent.
func (s *Store) AddVolatility(symbol string, threshold decimal.Decimal) (Alert, error) {
	symbol, err := normalizeSymbol(symbol)
	if err != nil {
		return Alert{}, err
	}
	if threshold.IsNegative() {
		return Alert{}, fmt.Errorf("%w: threshold cannot be negative", ErrValidation)
	}
	return s.append(Alert{Kind: KindVolatility, Symbol: symbol, ThresholdPct: &threshold})
}

func (s *Store) append(alert Alert) (Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alerts := s.load()
	alert.ID = nextID(alerts)
	alert.Created = s.now().In(s.loc)
	alerts = append(alerts, alert)

	if err := s.save(alerts); err != nil {
		return Alert{}, err
	}
	s.logger.Info().Int("id", alert.ID).Str("type", string(alert.Kind)).Msg("alert added")
	return alert, nil
}

// Remove deletes the alert with id. A missing id returns ErrNotFound and
// writes nothing.
func (s *Store) Remove(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	alerts := s.load()
	for i, a := range alerts {
		if a.ID != id {
			continue
		}
		alerts = append(alerts[:i], alerts[i+1:]...)
		if err := s.save(alerts); err != nil {
			return err
		}
		s.logger.Info().Int("id", id).Msg("alert removed")
		return nil
	}
	return fmt.Errorf("%w: #%d", ErrNotFound, id)
}

// load must be called with mu held. Unreadable documents read as empty.
func (s *Store) load() []Alert {
	var alerts []Alert
	if _, err := jsonfile.Read(s.path, &alerts); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("alert file unreadable; treating as empty")
		return nil
	}
	return alerts
}

// save must be called with mu held.
func (s *Store) save(alerts []Alert) error {
	if alerts == nil {
		alerts = []Alert{}
	}
	if err := s.write(s.path, alerts); err != nil {
		return fmt.Errorf("save alerts: %w", err)
	}
	return nil
}

func nextID(alerts []Alert) int {
	maxID := 0
	for _, a := range alerts {
		if a.ID > maxID {
			maxID = a.ID
		}
	}
	return maxID + 1
}
