package fetcher

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Quote summarises the latest bar against the previous close.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	PreviousClose decimal.Decimal `json:"previous_close"`
	ChangePct     decimal.Decimal `json:"change_pct"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	Volume        int64           `json:"volume"`
}

// QuoteFromHistory derives a quote from the last two bars. A single bar is
// compared with itself, giving a zero change.
func QuoteFromHistory(symbol string, bars []Bar) (Quote, error) {
	if len(bars) == 0 {
		return Quote{}, fmt.Errorf("%w for %s", ErrNoData, symbol)
	}

	last := bars[len(bars)-1]
	prev := bars[0]
	if len(bars) > 1 {
		prev = bars[len(bars)-2]
	}

	change := decimal.Zero
	if !prev.Close.IsZero() {
		change = last.Close.Sub(prev.Close).Div(prev.Close).Mul(hundred)
	}

	return Quote{
		Symbol:        symbol,
		Price:         last.Close,
		PreviousClose: prev.Close,
		ChangePct:     change,
		High:          last.High,
		Low:           last.Low,
		Volume:        last.Volume,
	}, nil
}
