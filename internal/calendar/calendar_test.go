package calendar

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"finance-brief/internal/cache"
)

const sampleTemplate = `{
  "upcoming_events": [
    {"date": "2026-03-05", "name": "GDP", "country": "AU", "impact": "high", "time": "11:30"},
    {"date": "2026-03-02", "name": "Retail Sales", "country": "AU", "impact": "medium"},
    {"date": "2026-03-03", "name": "ISM Manufacturing", "country": "US", "impact": "high"},
    {"date": "2026-03-01", "name": "Yesterday", "country": "AU"},
    {"date": "2026-03-20", "name": "Too far", "country": "AU"},
    {"date": "soon", "name": "Broken", "country": "AU"}
  ],
  "recurring_events": [
    {"name": "RBA Decision", "country": "AU", "frequency": "8x per year", "impact": "high"},
    {"name": "Nonfarm Payrolls", "country": "US", "frequency": "monthly", "impact": "high"}
  ]
}`

func newService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "economic_calendar_template.json")
	if err := os.WriteFile(path, []byte(sampleTemplate), 0o644); err != nil {
		t.Fatal(err)
	}
	backend, err := cache.NewSQLiteBackend(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatalf("backend: %v", err)
	}
	t.Cleanup(func() { backend.Close() })

	loc, err := time.LoadLocation("Australia/Sydney")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	// 2026-03-01 22:00 UTC is already 2 March in Sydney.
	now := func() time.Time { return time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC) }

	return New(cache.New(backend, cache.Options{Now: now}, zerolog.Nop()), Options{
		TemplatePath: path,
		Location:     loc,
		Now:          now,
		Policy:       cache.Policy{Namespace: "calendar", TTL: time.Hour, MaxStale: 24 * time.Hour},
	}, zerolog.Nop())
}

func TestUpcomingWindowAndOrder(t *testing.T) {
	s := newService(t)

	res := s.Upcoming(context.Background(), 3, "")
	if res.State != cache.Fresh {
		t.Fatalf("state = %s err=%v", res.State, res.Err)
	}
	names := make([]string, 0, len(res.Value))
	for _, ev := range res.Value {
		names = append(names, ev.Name)
	}
	if len(names) != 3 || names[0] != "Retail Sales" || names[1] != "ISM Manufacturing" || names[2] != "GDP" {
		t.Fatalf("unexpected events %v", names)
	}

	res = s.Upcoming(context.Background(), 3, "us")
	if len(res.Value) != 1 || res.Value[0].Name != "ISM Manufacturing" {
		t.Fatalf("country filter failed: %+v", res.Value)
	}
}

func TestRecurring(t *testing.T) {
	s := newService(t)
	got, err := s.Recurring("AU")
	if err != nil {
		t.Fatalf("recurring: %v", err)
	}
	if len(got) != 1 || got[0].Name != "RBA Decision" {
		t.Fatalf("unexpected recurring events %+v", got)
	}
}

func TestFormatEvents(t *testing.T) {
	out := FormatEvents([]Event{
		{Date: "2026-03-02", Name: "Retail Sales", Country: "AU", Impact: "medium"},
		{Date: "2026-03-02", Name: "CPI", Country: "AU", Impact: "high", Time: "11:30"},
	})
	want := "Mon 02 Mar 2026:\n  [MEDIUM] AU Retail Sales\n  [HIGH] AU CPI (11:30)"
	if out != want {
		t.Fatalf("got %q want %q", out, want)
	}
}
