package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pthm-cable/fauna/config"
	"github.com/pthm-cable/fauna/scenario"
	"github.com/pthm-cable/fauna/sim"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	scenarioPath := flag.String("scenario", "", "Path to a scenario file (empty = spawn archetype counts)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Uint64("max-ticks", 0, "Stop after N ticks (0 = until interrupted)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	logStats := flag.Bool("log-stats", false, "Output window stats, perf and bookmarks via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	compress := flag.Bool("compress", false, "zstd-compress CSV output")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		slog.Error("invalid log level", "level", *logLevel, "error", err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	var scen *scenario.Scenario
	if *scenarioPath != "" {
		s, err := scenario.Load(*scenarioPath)
		if err != nil {
			logger.Error("failed to load scenario", "error", err)
			os.Exit(1)
		}
		scen = s
	}

	s, err := sim.New(cfg, sim.Options{
		Seed:           *seed,
		Scenario:       scen,
		LogStats:       *logStats,
		StatsWindowSec: *statsWindow,
		OutputDir:      *outputDir,
		Compress:       *compress,
		Logger:         logger,
	})
	if err != nil {
		logger.Error("failed to create simulation", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting simulation",
		"seed", s.Seed(),
		"max_ticks", *maxTicks,
		"output_dir", *outputDir,
	)

	runErr := s.Run(ctx, *maxTicks)
	if err := s.Close(); err != nil {
		logger.Error("failed to close output", "error", err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("simulation failed", "error", runErr)
		os.Exit(1)
	}
	if runErr != nil {
		logger.Info("interrupted", "tick", s.Tick())
	}
}
