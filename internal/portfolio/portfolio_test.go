package portfolio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"finance-brief/internal/cache"
	"finance-brief/internal/fetcher"
)

type stubQuotes map[string]float64

func (s stubQuotes) Quote(_ context.Context, symbol string) cache.Result[fetcher.Quote] {
	price, ok := s[symbol]
	if !ok {
		return cache.Result[fetcher.Quote]{State: cache.Absent, Err: cache.ErrUpstreamUnavailable}
	}
	return cache.Result[fetcher.Quote]{
		State: cache.Fresh,
		Value: fetcher.Quote{Symbol: symbol, Price: decimal.NewFromFloat(price), ChangePct: decimal.NewFromInt(1)},
	}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newBook(t *testing.T, quotes stubQuotes) *Book {
	t.Helper()
	path := filepath.Join(t.TempDir(), "portfolio.json")
	sectors := map[string]string{"BHP.AX": "Materials", "CBA.AX": "Financials"}
	return New(path, quotes, sectors, zerolog.Nop())
}

func TestAddMergesAtWeightedAverage(t *testing.T) {
	b := newBook(t, nil)

	if _, merged, err := b.Add("bhp.ax", d("100"), d("40")); err != nil || merged {
		t.Fatalf("first add: merged=%v err=%v", merged, err)
	}
	h, merged, err := b.Add("BHP.AX", d("100"), d("50"))
	if err != nil || !merged {
		t.Fatalf("second add: merged=%v err=%v", merged, err)
	}
	if !h.Shares.Equal(d("200")) || !h.CostPrice.Equal(d("45")) {
		t.Fatalf("unexpected holding %+v", h)
	}

	holdings := b.Holdings()
	if len(holdings) != 1 || holdings[0].Symbol != "BHP.AX" {
		t.Fatalf("holdings should persist merged, got %+v", holdings)
	}
}

func TestAddRejectsInvalid(t *testing.T) {
	b := newBook(t, nil)
	if _, _, err := b.Add("BHP.AX", d("0"), d("40")); !errors.Is(err, ErrInvalid) {
		t.Fatalf("zero shares should be invalid, got %v", err)
	}
	if _, _, err := b.Add(" ", d("1"), d("40")); !errors.Is(err, ErrInvalid) {
		t.Fatalf("blank symbol should be invalid, got %v", err)
	}
}

func TestRemovePartialAndFull(t *testing.T) {
	b := newBook(t, nil)
	_, _, _ = b.Add("CBA.AX", d("10"), d("100"))

	part := d("4")
	h, closed, err := b.Remove("cba.ax", &part)
	if err != nil || closed || !h.Shares.Equal(d("6")) {
		t.Fatalf("partial remove: %+v closed=%v err=%v", h, closed, err)
	}

	if _, closed, err := b.Remove("CBA.AX", nil); err != nil || !closed {
		t.Fatalf("full remove: closed=%v err=%v", closed, err)
	}
	if len(b.Holdings()) != 0 {
		t.Fatal("holding should be gone")
	}
	if _, _, err := b.Remove("CBA.AX", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestValuedAndSectors(t *testing.T) {
	b := newBook(t, stubQuotes{"BHP.AX": 50, "CBA.AX": 150})
	_, _, _ = b.Add("BHP.AX", d("100"), d("40"))
	_, _, _ = b.Add("CBA.AX", d("10"), d("100"))
	_, _, _ = b.Add("XYZ.AX", d("5"), d("1"))

	valued := b.Valued(context.Background())
	if len(valued) != 3 {
		t.Fatalf("expected 3 holdings, got %d", len(valued))
	}
	if !valued[0].PnL.Equal(d("1000")) || !valued[0].PnLPct.Equal(d("25")) {
		t.Fatalf("unexpected P&L %s / %s", valued[0].PnL, valued[0].PnLPct)
	}
	if valued[2].Price != nil || valued[2].MarketValue != nil {
		t.Fatal("unpriced holding must leave price fields empty")
	}

	allocs := b.Sectors(context.Background())
	if len(allocs) != 2 || allocs[0].Sector != "Materials" {
		t.Fatalf("unexpected allocation %+v", allocs)
	}
	total := allocs[0].Pct.Add(allocs[1].Pct)
	if total.Round(6).Cmp(d("100")) != 0 {
		t.Fatalf("allocation should sum to 100, got %s", total)
	}

	out := FormatValued(valued)
	if !strings.Contains(out, "XYZ.AX: 5 @ N/A = N/A") {
		t.Fatalf("unpriced holding should render N/A:\n%s", out)
	}
	if !strings.Contains(out, "BHP.AX: 100 @ 50.00 = $5,000.00 | P&L: +$1,000.00 (+25.00%)") {
		t.Fatalf("unexpected holding line:\n%s", out)
	}
}

func TestCorruptDocumentReadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	b := New(path, nil, nil, zerolog.Nop())
	if len(b.Holdings()) != 0 {
		t.Fatal("corrupt portfolio should read as empty")
	}
}
