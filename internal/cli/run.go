package cli

import (
	"github.com/spf13/cobra"
)

var serveListen string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daemon: periodic alert checks and the daily brief",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Run(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the brief and alert store over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Serve(cmd.Context(), serveListen)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (defaults to api.listen)")
}
