package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"finance-brief/internal/app"
	"finance-brief/internal/config"
	"finance-brief/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	appHandle *app.App
)

var rootCmd = &cobra.Command{
	Use:           "financebrief",
	Short:         "Morning finance brief, market data and price/news alerts",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if appHandle != nil || cmd == versionCmd {
			return nil
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		logger, err := logging.NewLogger(cfg.Logging, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		appHandle = app.NewApp(cfg, logger)
		appHandle.Out = cmd.OutOrStdout()
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level defined in config")

	rootCmd.AddCommand(briefCmd)
	rootCmd.AddCommand(alertsCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(calendarCmd)
	rootCmd.AddCommand(portfolioCmd)
	rootCmd.AddCommand(forexCmd)
	rootCmd.AddCommand(indicesCmd)
	rootCmd.AddCommand(commoditiesCmd)
	rootCmd.AddCommand(moversCmd)
	rootCmd.AddCommand(chartCmd)
	rootCmd.AddCommand(warmCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(notifyTestCmd)
	rootCmd.AddCommand(versionCmd)
}

func getApp() *app.App {
	if appHandle == nil {
		panic("application not initialized; PersistentPreRunE not executed")
	}
	return appHandle
}
