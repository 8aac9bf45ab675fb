package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/twin-peaks-studio/career-os/internal/model"
	"github.com/twin-peaks-studio/career-os/internal/store"
)

var (
	fetchLocation string
	fetchJobType  string
	fetchSave     bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <query>",
	Short: "Run one aggregation and print the results",
	Long:  "One-shot aggregation: queries every configured source, merges the results, and prints them. Nothing is persisted unless --save is given.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchLocation, "location", "l", "", "location filter, e.g. \"Austin, TX\" or \"remote\"")
	fetchCmd.Flags().StringVarP(&fetchJobType, "type", "t", "", "employment type: full-time, part-time, or contract")
	fetchCmd.Flags().BoolVar(&fetchSave, "save", false, "persist the results to the store")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	params := model.SearchParams{
		Query:          strings.Join(args, " "),
		Location:       fetchLocation,
		EmploymentType: fetchJobType,
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	aggregator := buildAggregator(cfg, httpClient, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := aggregator.Aggregate(ctx, params)
	if err != nil {
		logger.Error("aggregation failed", "error", err)
		os.Exit(1)
	}

	for _, outcome := range result.Sources {
		if outcome.Err != "" {
			fmt.Printf("%-10s error: %s\n", outcome.Name, outcome.Err)
		} else {
			fmt.Printf("%-10s %d jobs\n", outcome.Name, outcome.Count)
		}
	}
	fmt.Println()

	for _, job := range result.Jobs {
		posted := "n/a"
		if job.PostedAt != nil {
			posted = job.PostedAt.Format("2006-01-02")
		}
		fmt.Printf("%s — %s\n", job.Company, job.Title)
		fmt.Printf("    %s · %s · %s\n", job.Location, posted, job.PrimaryURL())
	}
	fmt.Printf("\n%d jobs\n", len(result.Jobs))

	// Without --save the results flow through a NopStore, so the run is a
	// pure dry run and every job counts as new.
	var jobStore model.JobStore = store.NewNopStore()
	if fetchSave {
		sqlStore, err := store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			logger.Error("failed to open store", "error", err)
			os.Exit(1)
		}
		defer sqlStore.Close()
		jobStore = sqlStore
	}

	newJobs, err := jobStore.UpsertJobs(result.Jobs, "")
	if err != nil {
		logger.Error("saving jobs failed", "error", err)
		os.Exit(1)
	}
	if fetchSave {
		logger.Info("results saved", "new", len(newJobs), "total", len(result.Jobs))
	}

	return nil
}
