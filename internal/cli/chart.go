package cli

import (
	"github.com/spf13/cobra"

	"finance-brief/internal/app"
)

var (
	chartSymbol    string
	chartPeriod    string
	chartPNGPath   string
	chartCSVPath   string
	chartMaxPoints int
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Export price history as CSV and/or PNG chart",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Chart(cmd.Context(), app.ChartOptions{
			Symbol:    chartSymbol,
			Period:    chartPeriod,
			PNGPath:   chartPNGPath,
			CSVPath:   chartCSVPath,
			MaxPoints: chartMaxPoints,
		})
	},
}

func init() {
	chartCmd.Flags().StringVar(&chartSymbol, "symbol", "", "Ticker, e.g. BHP.AX or cl:ETH-USD")
	chartCmd.Flags().StringVar(&chartPeriod, "period", "1mo", "History range (5d, 1mo, 6mo, 1y, ...)")
	chartCmd.Flags().StringVar(&chartPNGPath, "png", "", "Path to write PNG chart")
	chartCmd.Flags().StringVar(&chartCSVPath, "csv", "", "Path to write CSV data")
	chartCmd.Flags().IntVar(&chartMaxPoints, "max-points", 0, "Maximum data points to export (defaults to config)")
	_ = chartCmd.MarkFlagRequired("symbol")
}
