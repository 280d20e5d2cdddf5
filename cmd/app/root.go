package main

import (
	"fmt"
	"os"

	"planpass/internal/config"
	"planpass/internal/logger"

	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "planpass",
	Short: "PlanPass - subscription lifecycle service",
	Long: `PlanPass manages user subscriptions to time-boxed plans.

Running planpass without a subcommand starts the HTTP API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		logger.Configure(cfg.LogLevel, cfg.LogFormat)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, sweepCmd, promoteCmd)
}
