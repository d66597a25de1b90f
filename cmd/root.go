package cmd

import (
	"fmt"
	"os"

	"asset-pipeline/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "asset-pipeline",
	Short: "Asset Pipeline Service",
	Long: `Asset Pipeline loads, imports and hot-reloads game and application assets.
It tracks dependencies between assets, dedupes concurrent loads and serves
lifecycle state over an HTTP API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console format at debug level gives readable CLI errors with
		// ISO8601 timestamps instead of the production epoch encoding.
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			// Absolute fallback if logger creation fails (rare)
			fmt.Println(err)
		}
		os.Exit(1)
	}
}
