package cli

import (
	"github.com/spf13/cobra"

	"finance-brief/internal/app"
)

var briefSend bool

var briefCmd = &cobra.Command{
	Use:   "brief",
	Short: "Build and print the morning brief",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Brief(cmd.Context(), app.BriefOptions{Send: briefSend})
	},
}

func init() {
	briefCmd.Flags().BoolVar(&briefSend, "send", false, "Also deliver the brief through enabled channels")
}
