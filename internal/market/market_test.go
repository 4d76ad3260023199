package market

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"finance-brief/internal/cache"
	"finance-brief/internal/fetcher"
	"finance-brief/internal/ratelimit"
)

type stubFetcher struct {
	mu     sync.Mutex
	calls  map[string]int
	closes map[string][2]float64
	fail   bool
}

func (f *stubFetcher) FetchHistory(_ context.Context, symbol, _ string) ([]fetcher.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[symbol]++
	if f.fail {
		return nil, errors.New("upstream down")
	}
	c, ok := f.closes[symbol]
	if !ok {
		return nil, fetcher.ErrNoData
	}
	return []fetcher.Bar{
		{Close: decimal.NewFromFloat(c[0])},
		{Close: decimal.NewFromFloat(c[1])},
	}, nil
}

func newService(t *testing.T, f fetcher.HistoryFetcher, now func() time.Time) (*Service, *ratelimit.Limiter) {
	t.Helper()
	backend, err := cache.NewSQLiteBackend(t.TempDir())
	if err != nil {
		t.Fatalf("backend: %v", err)
	}
	t.Cleanup(func() { backend.Close() })

	c := cache.New(backend, cache.Options{Now: now}, zerolog.Nop())
	limiter := ratelimit.New(30, time.Minute)
	policy := cache.Policy{Namespace: "market_data", TTL: 5 * time.Minute, MaxStale: 24 * time.Hour}
	return New(c, limiter, f, Options{Period: "5d", Policy: policy}, zerolog.Nop()), limiter
}

func TestQuoteUsesCacheBeforeLimiter(t *testing.T) {
	f := &stubFetcher{closes: map[string][2]float64{"BHP.AX": {40, 44}}}
	svc, limiter := newService(t, f, time.Now)
	ctx := context.Background()

	first := svc.Quote(ctx, "BHP.AX")
	second := svc.Quote(ctx, "BHP.AX")

	if first.State != cache.Fresh || second.State != cache.Fresh {
		t.Fatalf("expected fresh quotes, got %s and %s", first.State, second.State)
	}
	if !second.Value.ChangePct.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("change = %s", second.Value.ChangePct)
	}
	if f.calls["BHP.AX"] != 1 {
		t.Fatalf("upstream called %d times", f.calls["BHP.AX"])
	}
	if limiter.InWindow() != 1 {
		t.Fatalf("limiter should record only the miss, got %d", limiter.InWindow())
	}
}

func TestQuoteFallsBackToStale(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	f := &stubFetcher{closes: map[string][2]float64{"^AXJO": {7000, 7070}}}
	svc, _ := newService(t, f, clock)
	ctx := context.Background()

	if res := svc.Quote(ctx, "^AXJO"); res.State != cache.Fresh {
		t.Fatalf("seed: %s", res.State)
	}

	now = now.Add(time.Hour)
	f.fail = true
	res := svc.Quote(ctx, "^AXJO")
	if res.State != cache.Stale || res.Age != time.Hour {
		t.Fatalf("expected stale value aged 1h, got %s %s", res.State, res.Age)
	}
}

func TestQuotesSkipsMissingAndKeepsOrder(t *testing.T) {
	f := &stubFetcher{closes: map[string][2]float64{"A": {1, 2}, "C": {3, 3}}}
	svc, _ := newService(t, f, time.Now)

	got := svc.Quotes(context.Background(), []Instrument{{Symbol: "A", Name: "Alpha"}, {Symbol: "B"}, {Symbol: "C"}})
	if len(got) != 2 || got[0].Symbol != "A" || got[1].Symbol != "C" {
		t.Fatalf("unexpected quotes %+v", got)
	}
	if got[1].Name != "C" {
		t.Fatalf("unnamed instrument should fall back to its symbol, got %q", got[1].Name)
	}
}

func TestMovers(t *testing.T) {
	f := &stubFetcher{closes: map[string][2]float64{
		"UP1":  {100, 101},
		"UP5":  {100, 105},
		"DN2":  {100, 98},
		"DN9":  {100, 91},
		"FLAT": {100, 100},
	}}
	svc, _ := newService(t, f, time.Now)

	universe := []Instrument{{Symbol: "UP1"}, {Symbol: "DN2"}, {Symbol: "FLAT"}, {Symbol: "UP5"}, {Symbol: "DN9"}}
	movers := svc.Movers(context.Background(), universe, 1)

	if len(movers.Gainers) != 1 || movers.Gainers[0].Symbol != "UP5" {
		t.Fatalf("gainers = %+v", movers.Gainers)
	}
	if len(movers.Losers) != 1 || movers.Losers[0].Symbol != "DN9" {
		t.Fatalf("losers = %+v", movers.Losers)
	}
}

func TestLoadUniverse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asx_codes.json")
	doc := `{"stocks":{"WBC.AX":{"name":"Westpac","sector":"Financials"},"BHP.AX":{"name":"BHP Group","sector":"Materials"}}}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	universe, err := LoadUniverse(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(universe) != 2 || universe[0].Symbol != "BHP.AX" || universe[0].Sector != "Materials" {
		t.Fatalf("unexpected universe %+v", universe)
	}
	if Sectors(universe)["WBC.AX"] != "Financials" {
		t.Fatal("sector lookup failed")
	}

	if _, err := LoadUniverse(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("missing reference file should fail")
	}
}
