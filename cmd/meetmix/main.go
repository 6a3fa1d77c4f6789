// Package main provides the entry point for the meetmix dataset generator.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/soundscene/meetmix/internal/bootstrap"
	"github.com/soundscene/meetmix/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Create structured logger
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting meetmix generator",
		slog.String("manifest", cfg.ManifestPath),
		slog.String("output_dir", cfg.OutputDir),
		slog.Int("num_examples", cfg.NumExamples),
		slog.Int("num_speakers", cfg.NumSpeakers),
		slog.Int("max_concurrent_spk", cfg.MaxConcurrentSpeakers),
		slog.Int("max_concurrent_examples", cfg.MaxConcurrentExamples),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
	)

	// Initialize dependencies using bootstrap
	deps, err := bootstrap.NewDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	// Generate until done or interrupted
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := deps.Pipeline.Run(ctx, cfg.NumExamples)
	if err != nil {
		return fmt.Errorf("generation run: %w", err)
	}

	logger.Info("done",
		slog.String("run_id", summary.RunID),
		slog.Int("generated", summary.Generated),
		slog.Int("failed", summary.Failed),
	)
	return nil
}
