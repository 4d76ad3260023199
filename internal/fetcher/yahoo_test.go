package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func f64(v float64) *float64 { return &v }

func TestYahooFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/^AXJO" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("range") != "5d" || r.URL.Query().Get("interval") != "1d" {
			t.Fatalf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"chart": map[string]any{
				"result": []any{map[string]any{
					"timestamp": []int64{1700000000, 1700086400, 1700172800},
					"indicators": map[string]any{
						"quote": []any{map[string]any{
							"open":   []*float64{f64(7000), nil, f64(7100)},
							"high":   []*float64{f64(7050), nil, f64(7200)},
							"low":    []*float64{f64(6990), nil, f64(7090)},
							"close":  []*float64{f64(7000), nil, f64(7140)},
							"volume": []any{100, nil, 300},
						}},
					},
				}},
				"error": nil,
			},
		})
	}))
	defer srv.Close()

	y := NewYahoo(YahooOptions{BaseURL: srv.URL, Timeout: time.Second, UserAgent: "test"}, noopLogger())
	bars, err := y.FetchHistory(context.Background(), "^AXJO", "5d")
	if err != nil {
		t.Fatalf("fetch should succeed: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("null close must be skipped, got %d bars", len(bars))
	}

	q, err := QuoteFromHistory("^AXJO", bars)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !q.Price.Equal(decimal.NewFromInt(7140)) {
		t.Fatalf("price = %s", q.Price)
	}
	if !q.ChangePct.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("change = %s, want 2", q.ChangePct)
	}
	if q.Volume != 300 {
		t.Fatalf("volume = %d", q.Volume)
	}
}

func TestYahooFetchAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"chart": map[string]any{
				"result": nil,
				"error":  map[string]string{"code": "Not Found", "description": "No data found, symbol may be delisted"},
			},
		})
	}))
	defer srv.Close()

	y := NewYahoo(YahooOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	if _, err := y.FetchHistory(context.Background(), "NOPE", "5d"); err == nil {
		t.Fatal("404 should return an error")
	}
}

func TestYahooFetchEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"chart": map[string]any{"result": []any{}}})
	}))
	defer srv.Close()

	y := NewYahoo(YahooOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	if _, err := y.FetchHistory(context.Background(), "BHP.AX", ""); !errors.Is(err, ErrNoData) {
		t.Fatalf("empty result should be ErrNoData, got %v", err)
	}
}

func TestYahooRequiresSymbol(t *testing.T) {
	y := NewYahoo(YahooOptions{}, noopLogger())
	if _, err := y.FetchHistory(context.Background(), " ", "5d"); err == nil {
		t.Fatal("blank symbol should fail")
	}
}

func TestQuoteFromHistoryEdges(t *testing.T) {
	if _, err := QuoteFromHistory("X", nil); !errors.Is(err, ErrNoData) {
		t.Fatalf("empty history should be ErrNoData, got %v", err)
	}

	single := []Bar{{Close: decimal.NewFromInt(10)}}
	q, err := QuoteFromHistory("X", single)
	if err != nil || !q.ChangePct.IsZero() {
		t.Fatalf("single bar should have zero change, got %s err=%v", q.ChangePct, err)
	}

	zeroPrev := []Bar{{Close: decimal.Zero}, {Close: decimal.NewFromInt(10)}}
	q, _ = QuoteFromHistory("X", zeroPrev)
	if !q.ChangePct.IsZero() {
		t.Fatalf("zero previous close should give zero change, got %s", q.ChangePct)
	}
}
