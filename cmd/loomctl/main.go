// Command loomctl runs weekly loom calculations from the terminal against the
// configured period log.
package main

import (
	"context"
	"fmt"
	"os"
	_ "time/tzdata"

	"go.uber.org/zap"

	"github.com/mamadbah2/loomstock/internal/app"
	"github.com/mamadbah2/loomstock/internal/config"
	"github.com/mamadbah2/loomstock/pkg/logger"
)

func main() {
	root := newRootCmd(buildFromEnv)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// buildFromEnv loads configuration and opens the configured store.
func buildFromEnv(ctx context.Context, envFile string, verbose bool) (*app.App, *zap.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	log, err := logger.NewConsole(level)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.Build(ctx, *cfg, log)
	if err != nil {
		return nil, log, err
	}
	return a, log, nil
}
