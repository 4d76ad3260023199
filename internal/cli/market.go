package cli

import (
	"github.com/spf13/cobra"

	"finance-brief/internal/app"
)

var (
	forexPair      string
	forexDashboard bool
	moversLimit    int
)

var forexCmd = &cobra.Command{
	Use:   "forex",
	Short: "Show the default currency pair or the forex dashboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Forex(cmd.Context(), app.ForexOptions{Pair: forexPair, Dashboard: forexDashboard})
	},
}

var indicesCmd = &cobra.Command{
	Use:   "indices",
	Short: "Show watched global indices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Indices(cmd.Context())
	},
}

var commoditiesCmd = &cobra.Command{
	Use:   "commodities",
	Short: "Show watched commodities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Commodities(cmd.Context())
	},
}

var moversCmd = &cobra.Command{
	Use:   "movers",
	Short: "Show top gainers and losers in the stock universe",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Movers(cmd.Context(), moversLimit)
	},
}

func init() {
	forexCmd.Flags().StringVar(&forexPair, "pair", "", "Currency pair, e.g. EURUSD")
	forexCmd.Flags().BoolVar(&forexDashboard, "dashboard", false, "Show every configured pair")
	moversCmd.Flags().IntVar(&moversLimit, "limit", 0, "Entries per side (defaults to market.movers_limit)")
}
