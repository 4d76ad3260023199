package cli

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Track holdings and P&L",
}

var portfolioShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show holdings at the latest prices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ShowPortfolio(cmd.Context())
	},
}

var portfolioAddCmd = &cobra.Command{
	Use:   "add SYMBOL SHARES COST_PRICE",
	Short: "Add shares at a cost price",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		shares, err := parseDecimal("shares", args[1])
		if err != nil {
			return err
		}
		cost, err := parseDecimal("cost price", args[2])
		if err != nil {
			return err
		}
		return getApp().AddHolding(cmd.Context(), args[0], shares, cost)
	},
}

var portfolioRemoveCmd = &cobra.Command{
	Use:   "remove SYMBOL [SHARES]",
	Short: "Sell shares, or the whole position when SHARES is omitted",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var shares *decimal.Decimal
		if len(args) == 2 {
			d, err := parseDecimal("shares", args[1])
			if err != nil {
				return err
			}
			shares = &d
		}
		return getApp().RemoveHolding(cmd.Context(), args[0], shares)
	},
}

var portfolioSectorsCmd = &cobra.Command{
	Use:   "sectors",
	Short: "Show allocation by sector",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().PortfolioSectors(cmd.Context())
	},
}

func init() {
	portfolioCmd.AddCommand(portfolioShowCmd, portfolioAddCmd, portfolioRemoveCmd, portfolioSectorsCmd)
}
