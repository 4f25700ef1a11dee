package cmd

import (
	"fmt"
	"os"

	"blueprint-library/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "blueprint-library",
	Short: "Blueprint Library Service",
	Long: `Blueprint Library tracks EVE Online blueprint ownership and industry
jobs for characters and corporations, synchronizing against ESI and serving
the data through a permissioned HTTP API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and reports failures through the standard
// logger.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console format with debug level config to get readable timestamps
		// for CLI usage.
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
