package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/twin-peaks-studio/career-os/internal/adapter"
	"github.com/twin-peaks-studio/career-os/internal/aggregate"
	"github.com/twin-peaks-studio/career-os/internal/config"
	"github.com/twin-peaks-studio/career-os/internal/model"
	"github.com/twin-peaks-studio/career-os/internal/notifier"
	"github.com/twin-peaks-studio/career-os/internal/ratelimit"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "careeros",
	Short: "Job search aggregator",
	Long:  "CareerOS aggregates job listings from Google Jobs, Indeed, and LinkedIn into one deduplicated feed.",
	// Default to `start` so that `careeros` with no args runs the daemon.
	// This preserves compatibility with systemd unit files that invoke the binary directly.
	RunE: runStart,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: CAREEROS_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > CAREEROS_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("CAREEROS_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

// buildAdapters creates one adapter per configured source, in config order.
func buildAdapters(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) []model.SourceAdapter {
	var adapters []model.SourceAdapter
	for _, src := range cfg.Sources {
		switch src {
		case model.SourceGoogle:
			adapters = append(adapters, adapter.NewSerpAdapter(cfg.SerpAPIKey, httpClient, logger))
		case model.SourceIndeed:
			adapters = append(adapters, adapter.NewIndeedAdapter(httpClient, logger))
		case model.SourceLinkedIn:
			adapters = append(adapters, adapter.NewLinkedInAdapter(httpClient, logger))
		}
		logger.Info("registered source", "source", src)
	}
	return adapters
}

func buildAggregator(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) *aggregate.Aggregator {
	adapters := buildAdapters(cfg, httpClient, logger)
	pacer := ratelimit.NewRandomPacer(cfg.Pacing.MinDelay, cfg.Pacing.MaxDelay)
	opts := aggregate.Options{
		MaxJobsPerSource:  cfg.Aggregation.MaxJobsPerSource,
		FilterToWeek:      cfg.Aggregation.FilterToWeek,
		FairnessSource:    model.SourceLinkedIn,
		PerPartitionLimit: cfg.Aggregation.PerPartitionLimit,
		TotalLimit:        cfg.Aggregation.TotalLimit,
	}
	return aggregate.New(adapters, pacer, opts, logger)
}
