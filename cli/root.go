package cli

import (
	"context"

	"github.com/gear6io/strata/server/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "Atomic write engine for partitioned file-based tables",
	Long: `Strata writes query results into partitioned, file-based tables
atomically with respect to partition metadata. Writes are staged in a
job-private directory and made visible in a single rename step, so
concurrent readers and failed jobs never observe partial state.`,
	Version: "0.1.0",
}

// Execute runs the root command with a context carrying the logger and
// configuration for all subcommands
func Execute(ctx context.Context) error {
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

func getLoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value("logger").(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value("config").(*config.Config); ok {
		return cfg
	}
	return config.LoadDefaultConfig()
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
}
