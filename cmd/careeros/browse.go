package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/twin-peaks-studio/career-os/internal/browse"
	"github.com/twin-peaks-studio/career-os/internal/model"
	"github.com/twin-peaks-studio/career-os/internal/store"
)

var browseSearchID string

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse stored jobs interactively",
	Long:  "Opens a terminal browser over the stored jobs: all jobs on the left, this week's postings on the right. Enter shows details, o opens the listing in your browser.",
	RunE:  runBrowse,
}

func init() {
	browseCmd.Flags().StringVarP(&browseSearchID, "search", "s", "", "only show jobs linked to this tracked search")
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	jobs, err := browseJobs(s, browseSearchID)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Println("no stored jobs — run `careeros fetch <query> --save` or start the daemon first")
		return nil
	}

	return browse.Run(jobs)
}

// browseJobs loads the jobs to show: the whole store, or only those linked
// to a tracked search when one is requested.
func browseJobs(s *store.SQLiteStore, searchID string) ([]model.Job, error) {
	if searchID != "" {
		return s.ListJobsForSearch(searchID)
	}
	return s.ListJobs()
}
