package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one expiry sweep and exit",
	Long: `Expire every ACTIVE subscription whose end date has passed, once.

Useful from cron when the long-running sweeper is disabled.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.sweeper.RunOnce(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "expired %d subscription(s), %d skipped, %d failed\n",
			result.Count, result.Skipped, result.Failed)
		return nil
	},
}
