package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"finance-brief/internal/cache"
	"finance-brief/internal/fetcher"
	"finance-brief/internal/jsonfile"
)

var (
	// ErrNotFound reports a symbol that is not held.
	ErrNotFound = errors.New("portfolio: holding not found")
	// ErrInvalid reports a rejected mutation.
	ErrInvalid = errors.New("portfolio: invalid holding")
)

var hundred = decimal.NewFromInt(100)

// Holding is one position.
type Holding struct {
	Symbol    string          `json:"symbol"`
	Shares    decimal.Decimal `json:"shares"`
	CostPrice decimal.Decimal `json:"cost_price"`
}

// Valued is a holding priced at the latest quote. Price-derived fields are
// nil when no quote is available.
type Valued struct {
	Holding
	CostBasis    decimal.Decimal
	Price        *decimal.Decimal
	MarketValue  *decimal.Decimal
	PnL          *decimal.Decimal
	PnLPct       *decimal.Decimal
	DayChangePct *decimal.Decimal
	Stale        bool
}

// Allocation is one sector's share of market value.
type Allocation struct {
	Sector string
	Pct    decimal.Decimal
}

// QuoteSource resolves the latest quote for a symbol.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) cache.Result[fetcher.Quote]
}

type document struct {
	Holdings []Holding `json:"holdings"`
}

// Book manages the holdings document.
type Book struct {
	path    string
	quotes  QuoteSource
	sectors map[string]string
	logger  zerolog.Logger

	mu sync.Mutex
}

// New constructs a Book backed by the JSON document at path. sectors maps
// symbols to sector names for allocation.
func New(path string, quotes QuoteSource, sectors map[string]string, logger zerolog.Logger) *Book {
	return &Book{
		path:    path,
		quotes:  quotes,
		sectors: sectors,
		logger:  logger.With().Str("component", "portfolio").Logger(),
	}
}

// Holdings returns the stored positions.
func (b *Book) Holdings() []Holding {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.load().Holdings
}

// Add buys shares at cost. An existing holding is merged at the weighted
// average cost. The bool reports whether a holding was merged.
func (b *Book) Add(symbol string, shares, cost decimal.Decimal) (Holding, bool, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return Holding{}, false, fmt.Errorf("%w: symbol is required", ErrInvalid)
	}
	if !shares.IsPositive() {
		return Holding{}, false, fmt.Errorf("%w: shares must be positive", ErrInvalid)
	}
	if cost.IsNegative() {
		return Holding{}, false, fmt.Errorf("%w: cost price cannot be negative", ErrInvalid)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	doc := b.load()
	for i, h := range doc.Holdings {
		if h.Symbol != symbol {
			continue
		}
		total := h.Shares.Mul(h.CostPrice).Add(shares.Mul(cost))
		h.Shares = h.Shares.Add(shares)
		h.CostPrice = total.Div(h.Shares)
		doc.Holdings[i] = h
		if err := jsonfile.Write(b.path, doc); err != nil {
			return Holding{}, false, fmt.Errorf("save portfolio: %w", err)
		}
		return h, true, nil
	}

	h := Holding{Symbol: symbol, Shares: shares, CostPrice: cost}
	doc.Holdings = append(doc.Holdings, h)
	if err := jsonfile.Write(b.path, doc); err != nil {
		return Holding{}, false, fmt.Errorf("save portfolio: %w", err)
	}
	return h, false, nil
}

// Remove sells shares of symbol; nil or at least the held amount removes the
// whole position. It returns the remaining holding and whether it was closed.
func (b *Book) Remove(symbol string, shares *decimal.Decimal) (Holding, bool, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if shares != nil && !shares.IsPositive() {
		return Holding{}, false, fmt.Errorf("%w: shares must be positive", ErrInvalid)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	doc := b.load()
	for i, h := range doc.Holdings {
		if h.Symbol != symbol {
			continue
		}
		closed := shares == nil || shares.GreaterThanOrEqual(h.Shares)
		if closed {
			doc.Holdings = append(doc.Holdings[:i], doc.Holdings[i+1:]...)
			h.Shares = decimal.Zero
		} else {
			h.Shares = h.Shares.Sub(*shares)
			doc.Holdings[i] = h
		}
		if err := jsonfile.Write(b.path, doc); err != nil {
			return Holding{}, false, fmt.Errorf("save portfolio: %w", err)
		}
		return h, closed, nil
	}
	return Holding{}, false, fmt.Errorf("%w: %s", ErrNotFound, symbol)
}

// Valued prices every holding.
func (b *Book) Valued(ctx context.Context) []Valued {
	holdings := b.Holdings()
	out := make([]Valued, 0, len(holdings))
	for _, h := range holdings {
		v := Valued{Holding: h, CostBasis: h.Shares.Mul(h.CostPrice)}
		res := b.quotes.Quote(ctx, h.Symbol)
		if res.OK() {
			price := res.Value.Price
			value := h.Shares.Mul(price)
			pnl := value.Sub(v.CostBasis)
			pnlPct := decimal.Zero
			if !v.CostBasis.IsZero() {
				pnlPct = pnl.Div(v.CostBasis).Mul(hundred)
			}
			day := res.Value.ChangePct
			v.Price, v.MarketValue, v.PnL, v.PnLPct, v.DayChangePct = &price, &value, &pnl, &pnlPct, &day
			v.Stale = res.State == cache.Stale
		}
		out = append(out, v)
	}
	return out
}

// Sectors splits market value by sector, largest first. Symbols missing from
// the sector map count as "Other"; unpriced holdings are ignored.
func (b *Book) Sectors(ctx context.Context) []Allocation {
	valued := b.Valued(ctx)

	total := decimal.Zero
	bySector := make(map[string]decimal.Decimal)
	for _, v := range valued {
		if v.MarketValue == nil {
			continue
		}
		sector := b.sectors[v.Symbol]
		if sector == "" {
			sector = "Other"
		}
		bySector[sector] = bySector[sector].Add(*v.MarketValue)
		total = total.Add(*v.MarketValue)
	}
	if total.IsZero() {
		return nil
	}

	out := make([]Allocation, 0, len(bySector))
	for sector, value := range bySector {
		out = append(out, Allocation{Sector: sector, Pct: value.Div(total).Mul(hundred)})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Pct.Equal(out[j].Pct) {
			return out[i].Pct.GreaterThan(out[j].Pct)
		}
		return out[i].Sector < out[j].Sector
	})
	return out
}

// load must be called with mu held. A corrupt document reads as empty.
func (b *Book) load() document {
	var doc document
	if _, err := jsonfile.Read(b.path, &doc); err != nil {
		b.logger.Warn().Err(err).Str("path", b.path).Msg("portfolio unreadable; treating as empty")
		return document{}
	}
	return doc
}
