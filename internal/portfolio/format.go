package portfolio

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"finance-brief/internal/format"
)

// FormatValued renders holdings with P&L and totals.
func FormatValued(holdings []Valued) string {
	if len(holdings) == 0 {
		return "Portfolio is empty. Use 'financebrief portfolio add <symbol> <shares> <price>' to add holdings."
	}

	var (
		lines      []string
		totalCost  = decimal.Zero
		totalValue = decimal.Zero
	)
	for _, h := range holdings {
		value := format.NA
		if h.MarketValue != nil {
			value = "$" + format.Price(h.MarketValue, 2)
		}
		line := fmt.Sprintf("  %s: %s @ %s = %s", h.Symbol, h.Shares.String(), format.Price(h.Price, 2), value)
		if h.PnL != nil {
			line += fmt.Sprintf(" | P&L: %s (%s)", money(*h.PnL), format.Change(h.PnLPct))
		}
		if h.DayChangePct != nil {
			line += " | Day: " + format.Change(h.DayChangePct)
		}
		line += format.Stale(h.Stale)
		lines = append(lines, line)

		totalCost = totalCost.Add(h.CostBasis)
		if h.MarketValue != nil {
			totalValue = totalValue.Add(*h.MarketValue)
		}
	}

	pnl := totalValue.Sub(totalCost)
	pnlPct := decimal.Zero
	if !totalCost.IsZero() {
		pnlPct = pnl.Div(totalCost).Mul(hundred)
	}

	lines = append(lines, "",
		"  Total Cost: $"+format.Price(&totalCost, 2),
		"  Total Value: $"+format.Price(&totalValue, 2),
		fmt.Sprintf("  Total P&L: %s (%s)", money(pnl), format.Change(&pnlPct)),
	)
	return strings.Join(lines, "\n")
}

// FormatSectors renders allocations as a dotted table with a bar per 5%.
func FormatSectors(allocs []Allocation) string {
	if len(allocs) == 0 {
		return "No sector data available."
	}
	lines := make([]string, 0, len(allocs))
	for _, a := range allocs {
		label := a.Sector
		if n := len([]rune(label)); n < 30 {
			label += strings.Repeat(".", 30-n)
		}
		pct := a.Pct.InexactFloat64()
		lines = append(lines, fmt.Sprintf("  %s %5.1f%% %s", label, pct, strings.Repeat("#", int(pct/5))))
	}
	return strings.Join(lines, "\n")
}

func money(v decimal.Decimal) string {
	if v.Sign() >= 0 {
		return "+$" + format.Price(&v, 2)
	}
	abs := v.Abs()
	return "-$" + format.Price(&abs, 2)
}
