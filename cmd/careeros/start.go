package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/twin-peaks-studio/career-os/internal/filter"
	"github.com/twin-peaks-studio/career-os/internal/scheduler"
	"github.com/twin-peaks-studio/career-os/internal/store"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the aggregation daemon",
	Long:  "Start the scheduler daemon; refreshes every tracked search on the configured interval and blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("config loaded",
		"interval", cfg.FetchInterval.String(),
		"sources", len(cfg.Sources),
		"store", cfg.Store.Path,
	)

	sqlStore, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer sqlStore.Close()

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	jobFilter := filter.FromConfig(cfg.Filters)
	n := setupNotifier(cfg, httpClient, logger)
	aggregator := buildAggregator(cfg, httpClient, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.NewScheduler(aggregator, sqlStore, jobFilter, n, cfg.FetchInterval, logger)
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}
