package cli

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"finance-brief/internal/alerts"
	"finance-brief/internal/app"
)

var historyLimit int

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Manage price, news and volatility alerts",
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List alerts with their status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ListAlerts(cmd.Context())
	},
}

var alertsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an alert",
}

var alertsAddPriceCmd = &cobra.Command{
	Use:     "price SYMBOL above|below TARGET",
	Short:   "Alert when a price crosses a target",
	Example: "  financebrief alerts add price BHP.AX above 50",
	Args:    cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := parseDecimal("target", args[2])
		if err != nil {
			return err
		}
		return getApp().AddAlert(cmd.Context(), app.AddAlertOptions{
			Kind:      alerts.KindPrice,
			Symbol:    args[0],
			Condition: args[1],
			Target:    &target,
		})
	},
}

var alertsAddNewsCmd = &cobra.Command{
	Use:     "news KEYWORD...",
	Short:   "Alert when a keyword appears in recent headlines",
	Example: "  financebrief alerts add news RBA \"rate cut\"",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().AddAlert(cmd.Context(), app.AddAlertOptions{
			Kind:     alerts.KindNews,
			Keywords: args,
		})
	},
}

var alertsAddVolatilityCmd = &cobra.Command{
	Use:     "volatility SYMBOL THRESHOLD_PCT",
	Short:   "Alert when the daily move reaches a percentage",
	Example: "  financebrief alerts add volatility CBA.AX 5",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		threshold, err := parseDecimal("threshold", args[1])
		if err != nil {
			return err
		}
		return getApp().AddAlert(cmd.Context(), app.AddAlertOptions{
			Kind:      alerts.KindVolatility,
			Symbol:    args[0],
			Threshold: &threshold,
		})
	},
}

var alertsRemoveCmd = &cobra.Command{
	Use:   "remove ID",
	Short: "Remove an alert",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid alert id %q", args[0])
		}
		return getApp().RemoveAlert(cmd.Context(), id)
	},
}

var alertsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate pending alerts once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().CheckAlerts(cmd.Context())
	},
}

var alertsHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent triggers from the database audit trail",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}
		return getApp().AlertHistory(cmd.Context(), historyLimit)
	},
}

func parseDecimal(name, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	return d, nil
}

func init() {
	alertsHistoryCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of triggers to display")

	alertsAddCmd.AddCommand(alertsAddPriceCmd, alertsAddNewsCmd, alertsAddVolatilityCmd)
	alertsCmd.AddCommand(alertsListCmd, alertsAddCmd, alertsRemoveCmd, alertsCheckCmd, alertsHistoryCmd)
}
