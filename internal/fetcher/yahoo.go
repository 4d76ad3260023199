package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"finance-brief/internal/version"
)

const (
	yahooChartPath     = "/v8/finance/chart/"
	defaultYahooBase   = "https://query1.finance.yahoo.com"
	defaultHistorySpan = "5d"
)

// YahooOptions parameterise the Yahoo chart fetcher.
type YahooOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Yahoo fetches daily history from the Yahoo Finance chart API.
type Yahoo struct {
	opts    YahooOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewYahoo constructs a Yahoo chart fetcher.
func NewYahoo(opts YahooOptions, logger zerolog.Logger) *Yahoo {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultYahooBase
	}

	return &Yahoo{
		opts:    opts,
		logger:  logger.With().Str("component", "yahoo_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchHistory retrieves daily bars for symbol over period.
func (y *Yahoo) FetchHistory(ctx context.Context, symbol, period string) ([]Bar, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if period == "" {
		period = defaultHistorySpan
	}

	query := url.Values{}
	query.Set("range", period)
	query.Set("interval", "1d")
	endpoint := y.baseURL + yahooChartPath + url.PathEscape(symbol) + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(y.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", version.UserAgent())
	}

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var chart chartResponse
	decodeErr := json.Unmarshal(payload, &chart)

	if resp.StatusCode != http.StatusOK {
		return nil, parseChartError(resp.StatusCode, chart, decodeErr, payload)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode chart response: %w", decodeErr)
	}
	if chart.Chart.Error != nil {
		return nil, parseChartError(resp.StatusCode, chart, nil, payload)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, symbol)
	}

	bars := chart.Chart.Result[0].bars()
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, symbol)
	}

	y.logger.Debug().Str("symbol", symbol).Str("period", period).Int("bars", len(bars)).Msg("history fetched")
	return bars, nil
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// bars zips the column arrays, skipping points without a close.
func (r chartResult) bars() []Bar {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	q := r.Indicators.Quote[0]

	bars := make([]Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		closePx := at(q.Close, i)
		if closePx == nil {
			continue
		}
		bar := Bar{
			Time:  time.Unix(ts, 0).UTC(),
			Close: decimal.NewFromFloat(*closePx),
			Open:  decimalOr(at(q.Open, i), *closePx),
			High:  decimalOr(at(q.High, i), *closePx),
			Low:   decimalOr(at(q.Low, i), *closePx),
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			bar.Volume = *q.Volume[i]
		}
		bars = append(bars, bar)
	}
	return bars
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

func decimalOr(v *float64, fallback float64) decimal.Decimal {
	if v == nil {
		return decimal.NewFromFloat(fallback)
	}
	return decimal.NewFromFloat(*v)
}

func parseChartError(status int, chart chartResponse, decodeErr error, payload []byte) error {
	if decodeErr == nil && chart.Chart.Error != nil {
		if chart.Chart.Error.Description != "" {
			return fmt.Errorf("yahoo chart error (%d): %s", status, chart.Chart.Error.Description)
		}
		if chart.Chart.Error.Code != "" {
			return fmt.Errorf("yahoo chart error (%d): %s", status, chart.Chart.Error.Code)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("yahoo chart error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("yahoo chart error (%d)", status)
}

var _ HistoryFetcher = (*Yahoo)(nil)
