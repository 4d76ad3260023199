package alerts

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"finance-brief/internal/format"
)

func plain(d *decimal.Decimal) string {
	if d == nil {
		return format.NA
	}
	return d.String()
}

// Describe renders the confirmation for a newly added alert.
func Describe(a Alert) string {
	switch a.Kind {
	case KindPrice:
		return fmt.Sprintf("Alert #%d: Notify when %s goes %s %s", a.ID, a.Symbol, a.Condition, format.Price(a.Target, 2))
	case KindNews:
		return fmt.Sprintf("Alert #%d: Watching news for: %s", a.ID, strings.Join(a.Keywords, ", "))
	case KindVolatility:
		return fmt.Sprintf("Alert #%d: Notify when %s moves more than %s%% in a day", a.ID, a.Symbol, plain(a.ThresholdPct))
	default:
		return fmt.Sprintf("Alert #%d", a.ID)
	}
}

// FormatList renders every alert with its status.
func FormatList(alerts []Alert) string {
	if len(alerts) == 0 {
		return "No active alerts. Use 'financebrief alerts add' to create one."
	}

	lines := make([]string, 0, len(alerts))
	for _, a := range alerts {
		status := "active"
		if a.Triggered {
			status = "TRIGGERED"
		}
		switch a.Kind {
		case KindPrice:
			lines = append(lines, fmt.Sprintf("  #%d [%s] %s %s %s (price alert)", a.ID, status, a.Symbol, a.Condition, format.Price(a.Target, 2)))
		case KindNews:
			lines = append(lines, fmt.Sprintf("  #%d [%s] Keywords: %s (news alert)", a.ID, status, strings.Join(a.Keywords, ", ")))
		case KindVolatility:
			lines = append(lines, fmt.Sprintf("  #%d [%s] %s >%s%% move (volatility alert)", a.ID, status, a.Symbol, plain(a.ThresholdPct)))
		}
	}
	return strings.Join(lines, "\n")
}

// FormatTriggered renders alerts that just fired. It returns "" for none.
func FormatTriggered(triggered []Alert) string {
	if len(triggered) == 0 {
		return ""
	}

	lines := []string{"ALERTS TRIGGERED:"}
	for _, a := range triggered {
		switch a.Kind {
		case KindPrice:
			lines = append(lines, fmt.Sprintf("  #%d %s hit %s (target: %s %s)",
				a.ID, a.Symbol, format.Price(a.TriggerPrice, 2), a.Condition, format.Price(a.Target, 2)))
		case KindVolatility:
			lines = append(lines, fmt.Sprintf("  #%d %s moved %s (threshold: %s%%)",
				a.ID, a.Symbol, format.Change(a.TriggerChangePct), plain(a.ThresholdPct)))
		case KindNews:
			lines = append(lines, fmt.Sprintf("  #%d News match for: %s", a.ID, strings.Join(a.Keywords, ", ")))
			for _, h := range a.MatchedHeadlines {
				lines = append(lines, "    - "+h)
			}
		}
	}
	return strings.Join(lines, "\n")
}
