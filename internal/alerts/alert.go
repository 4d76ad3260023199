// Package alerts stores alert definitions and evaluates them against live data.
//
// An alert is pending until its condition is observed, then triggered for
// good: a triggered alert is never evaluated again and its trigger evidence is
// written exactly once.
package alerts

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrValidation rejects an add before anything is written.
	ErrValidation = errors.New("alerts: invalid alert")
	// ErrNotFound reports an unknown alert id.
	ErrNotFound = errors.New("alerts: alert not found")
)

// Kind selects the alert predicate.
type Kind string

const (
	KindPrice      Kind = "price"
	KindNews       Kind = "news"
	KindVolatility Kind = "volatility"
)

// Condition is the direction of a price alert.
type Condition string

const (
	Above Condition = "above"
	Below Condition = "below"
)

// ParseCondition accepts "above" or "below", ignoring case.
func ParseCondition(s string) (Condition, error) {
	switch c := Condition(strings.ToLower(strings.TrimSpace(s))); c {
	case Above, Below:
		return c, nil
	default:
		return "", fmt.Errorf("%w: condition must be 'above' or 'below', got %q", ErrValidation, s)
	}
}

// Alert is one persisted alert. Kind-specific fields are empty for other kinds.
type Alert struct {
	ID   int  `json:"id"`
	Kind Kind `json:"type"`

	Symbol       string           `json:"symbol,omitempty"`
	Condition    Condition        `json:"condition,omitempty"`
	Target       *decimal.Decimal `json:"target,omitempty"`
	Keywords     []string         `json:"keywords,omitempty"`
	ThresholdPct *decimal.Decimal `json:"threshold_pct,omitempty"`

	Created   time.Time `json:"created"`
	Triggered bool      `json:"triggered"`

	TriggerTime      *time.Time       `json:"trigger_time,omitempty"`
	TriggerPrice     *decimal.Decimal `json:"trigger_price,omitempty"`
	TriggerChangePct *decimal.Decimal `json:"trigger_change_pct,omitempty"`
	MatchedHeadlines []string         `json:"matched_headlines,omitempty"`
}

// Request carries the arguments of an add for any kind.
type Request struct {
	Kind         Kind             `json:"type"`
	Symbol       string           `json:"symbol"`
	Condition    string           `json:"condition"`
	Target       *decimal.Decimal `json:"target"`
	Keywords     []string         `json:"keywords"`
	ThresholdPct *decimal.Decimal `json:"threshold_pct"`
}

func normalizeSymbol(symbol string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", fmt.Errorf("%w: symbol is required", ErrValidation)
	}
	return symbol, nil
}

func normalizeKeywords(keywords []string) ([]string, error) {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToUpper(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: at least one keyword is required", ErrValidation)
	}
	return out, nil
}
