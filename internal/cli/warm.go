package cli

import (
	"github.com/spf13/cobra"

	"finance-brief/internal/app"
)

var warmUniverse bool

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Prefetch watched instruments and news into the cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Warm(cmd.Context(), app.WarmOptions{Universe: warmUniverse})
	},
}

func init() {
	warmCmd.Flags().BoolVar(&warmUniverse, "universe", false, "Also prefetch the whole stock universe")
}
