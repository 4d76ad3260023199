package report

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRunIsolatesFailures(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	var cancelled atomic.Bool
	sections := []Section{
		{Name: "Broken", Build: func(context.Context) (string, error) {
			return "", errors.New("feed exploded")
		}},
		{Name: "Slow", Build: func(ctx context.Context) (string, error) {
			select {
			case <-release:
			case <-ctx.Done():
				cancelled.Store(true)
				<-release
			}
			return "too late", nil
		}},
		{Name: "Good", Build: func(context.Context) (string, error) {
			return "DATA", nil
		}},
	}

	o := New(Options{Timeout: 100 * time.Millisecond}, zerolog.Nop())
	start := time.Now()
	results := o.Run(context.Background(), sections)
	elapsed := time.Since(start)

	if elapsed > time.Second {
		t.Fatalf("run took %s; slow section must be abandoned", elapsed)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Status != StatusFailed || results[1].Status != StatusTimedOut || results[2].Status != StatusOK {
		t.Fatalf("statuses = %s %s %s", results[0].Status, results[1].Status, results[2].Status)
	}
	if !errors.Is(results[1].Err, ErrSectionTimeout) {
		t.Fatalf("timeout error = %v", results[1].Err)
	}
	deadline := time.Now().Add(time.Second)
	for !cancelled.Load() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !cancelled.Load() {
		t.Fatal("abandoned section should see its context cancelled")
	}

	out := Compose("Brief", results, 4096, DefaultMarker)
	want := "Brief\n=====\n\n" +
		"[Broken unavailable: feed exploded]\n\n" +
		"[Slow unavailable: timed out after 100ms]\n\n" +
		"DATA"
	if out != want {
		t.Fatalf("got:\n%q\nwant:\n%q", out, want)
	}
}

func TestRunDropsEmptyAndRecoversPanics(t *testing.T) {
	o := New(Options{Timeout: time.Second}, zerolog.Nop())
	results := o.Run(context.Background(), []Section{
		{Name: "Blank", Build: func(context.Context) (string, error) { return "  \n ", nil }},
		{Name: "Panics", Build: func(context.Context) (string, error) { panic("boom") }},
	})

	if results[0].Status != StatusEmpty || results[0].Body() != "" {
		t.Fatalf("blank section should be empty, got %+v", results[0])
	}
	if results[1].Status != StatusFailed || !strings.Contains(results[1].Body(), "boom") {
		t.Fatalf("panic should become a failure, got %+v", results[1])
	}

	out := Compose("H", results, 100, DefaultMarker)
	if out != "H\n=\n\n[Panics unavailable: panic: boom]" {
		t.Fatalf("unexpected composite %q", out)
	}
}

func TestRunDefaultsToOneInFlight(t *testing.T) {
	var (
		mu       sync.Mutex
		inFlight int
		peak     int
	)
	build := func(context.Context) (string, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return "x", nil
	}

	sections := make([]Section, 5)
	for i := range sections {
		sections[i] = Section{Name: "s", Build: build}
	}

	New(Options{Timeout: time.Second}, zerolog.Nop()).Run(context.Background(), sections)
	if peak != 1 {
		t.Fatalf("expected sequential execution, peak=%d", peak)
	}

	peak = 0
	New(Options{Timeout: time.Second, Parallelism: 3}, zerolog.Nop()).Run(context.Background(), sections)
	if peak > 3 {
		t.Fatalf("parallelism bound exceeded, peak=%d", peak)
	}
}

func TestRunKeepsInputOrderUnderParallelism(t *testing.T) {
	delays := []time.Duration{40 * time.Millisecond, 0, 20 * time.Millisecond}
	sections := make([]Section, len(delays))
	for i, d := range delays {
		d, name := d, string(rune('A'+i))
		sections[i] = Section{Name: name, Build: func(context.Context) (string, error) {
			time.Sleep(d)
			return name, nil
		}}
	}

	results := New(Options{Timeout: time.Second, Parallelism: 3}, zerolog.Nop()).Run(context.Background(), sections)
	for i, r := range results {
		if r.Content != string(rune('A'+i)) {
			t.Fatalf("result %d = %q; order must follow input", i, r.Content)
		}
	}
}

func TestRunWithCancelledParent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := New(Options{Timeout: time.Second}, zerolog.Nop()).Run(ctx, []Section{
		{Name: "A", Build: func(ctx context.Context) (string, error) { <-ctx.Done(); return "", ctx.Err() }},
	})
	if results[0].Status != StatusFailed {
		t.Fatalf("cancelled run should fail sections, got %s", results[0].Status)
	}
}

func TestTruncate(t *testing.T) {
	marker := DefaultMarker

	if got := Truncate("short", 100, marker); got != "short" {
		t.Fatalf("text within limit must be unchanged, got %q", got)
	}

	lines := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		lines = append(lines, strings.Repeat("x", 20))
	}
	text := strings.Join(lines, "\n")
	limit := 200

	got := Truncate(text, limit, marker)
	if len([]rune(got)) > limit {
		t.Fatalf("truncated length %d exceeds %d", len([]rune(got)), limit)
	}
	if !strings.HasSuffix(got, marker) {
		t.Fatalf("missing marker: %q", got)
	}
	for _, line := range strings.Split(strings.TrimSuffix(got, marker), "\n") {
		if line != strings.Repeat("x", 20) {
			t.Fatalf("line cut mid-way: %q", line)
		}
	}
}

func TestTruncateBoundaryAndNoBreak(t *testing.T) {
	marker := "\n[cut]"

	// the character after the budget is a newline, so the whole head is kept
	text := "aaaa\nbbbb\ncccc\ndddd"
	if got := Truncate(text, 9+len(marker), marker); got != "aaaa\nbbbb"+marker {
		t.Fatalf("got %q", got)
	}

	if got := Truncate(strings.Repeat("z", 50), 20, marker); got != "[cut]" {
		t.Fatalf("no line break should leave only the marker, got %q", got)
	}

	if got := Truncate("héllo\nwörld\nagain", 12, "~"); got != "héllo\nwörld~" {
		t.Fatalf("lengths are counted in runes, got %q", got)
	}
}
