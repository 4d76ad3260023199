// Package format renders prices, changes and section headers for reports.
package format

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// NA is rendered for any value that could not be obtained.
const NA = "N/A"

// StaleMarker is appended to lines whose value came from a stale cache entry.
const StaleMarker = " *"

var printer = message.NewPrinter(language.English)

// Price renders v with thousands grouping and a fixed number of decimals.
func Price(v *decimal.Decimal, places int) string {
	if v == nil {
		return NA
	}
	return printer.Sprint(number.Decimal(v.Round(int32(places)).InexactFloat64(), number.Scale(places)))
}

// Change renders a percentage with an explicit sign for non-negative values.
func Change(v *decimal.Decimal) string {
	if v == nil {
		return NA
	}
	sign := ""
	if v.Sign() >= 0 {
		sign = "+"
	}
	return sign + v.StringFixed(2) + "%"
}

// PricePlaces picks 4 decimals for sub-10 prices such as FX rates, otherwise 2.
func PricePlaces(v *decimal.Decimal) int {
	if v != nil && v.IsPositive() && v.LessThan(decimal.NewFromInt(10)) {
		return 4
	}
	return 2
}

// CurrencyLine renders "  name: price (change)".
func CurrencyLine(name string, price, change *decimal.Decimal) string {
	return fmt.Sprintf("  %s: %s (%s)", name, Price(price, PricePlaces(price)), Change(change))
}

// SectionHeader renders a bold section title.
func SectionHeader(title string) string {
	return "**" + title + "**"
}

// Stale returns StaleMarker when stale is true.
func Stale(stale bool) string {
	if stale {
		return StaleMarker
	}
	return ""
}
