// Command scout runs a single acquisition pass and prints the result as JSON.
// It is the ad-hoc companion to the long-running harvester daemon.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cardscout-hq/cardscout-harvester/internal/app"
	"github.com/cardscout-hq/cardscout-harvester/internal/config"
	"github.com/cardscout-hq/cardscout-harvester/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "scout failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	harvester, err := app.NewHarvester(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("init harvester: %w", err)
	}
	defer harvester.Close()

	result, runErr := harvester.RunOnce(ctx)

	// Diagnostics print even when the run fails the strict-live gate, so a
	// blocked run still yields a usable failure report on stdout.
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	return runErr
}
