package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gear6io/strata/cli"
	"github.com/gear6io/strata/server/config"
)

func main() {
	// Load configuration first, falling back to defaults when no file
	// is present
	cfg, err := config.LoadConfig("strata.yml")
	if err != nil {
		cfg = config.LoadDefaultConfig()
	}

	logger, err := config.SetupLogger(cfg)
	if err != nil {
		panic(fmt.Sprintf("failed to setup logger: %v", err))
	}

	ctx := context.WithValue(context.Background(), "config", cfg)
	ctx = context.WithValue(ctx, "logger", logger)

	if err := cli.Execute(ctx); err != nil {
		logger.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
