package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/twin-peaks-studio/career-os/internal/model"
	"github.com/twin-peaks-studio/career-os/internal/store"
)

var (
	searchLocation string
	searchJobType  string
)

var searchesCmd = &cobra.Command{
	Use:   "searches",
	Short: "Manage tracked searches",
}

var searchesAddCmd = &cobra.Command{
	Use:   "add <query>",
	Short: "Track a new search",
	Long:  "Save a search the daemon will refresh on every cycle.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearchesAdd,
}

var searchesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked searches",
	RunE:  runSearchesList,
}

var searchesEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Re-enable a tracked search",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSearchActive(args[0], true)
	},
}

var searchesDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Pause a tracked search",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSearchActive(args[0], false)
	},
}

func init() {
	searchesAddCmd.Flags().StringVarP(&searchLocation, "location", "l", "", "location filter")
	searchesAddCmd.Flags().StringVarP(&searchJobType, "type", "t", "", "employment type: full-time, part-time, or contract")
	searchesCmd.AddCommand(searchesAddCmd)
	searchesCmd.AddCommand(searchesListCmd)
	searchesCmd.AddCommand(searchesEnableCmd)
	searchesCmd.AddCommand(searchesDisableCmd)
	rootCmd.AddCommand(searchesCmd)
}

func openStore() (*store.SQLiteStore, error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	return store.NewSQLiteStore(cfg.Store.Path)
}

func runSearchesAdd(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	search, err := s.AddSearch(model.SearchParams{
		Query:          strings.Join(args, " "),
		Location:       searchLocation,
		EmploymentType: searchJobType,
	})
	if err != nil {
		return err
	}

	fmt.Printf("tracking %q (id %s)\n", search.Query, search.ID)
	return nil
}

func runSearchesList(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	searches, err := s.ListSearches()
	if err != nil {
		return err
	}
	if len(searches) == 0 {
		fmt.Println("no tracked searches — add one with `careeros searches add <query>`")
		return nil
	}

	for _, search := range searches {
		state := "active"
		if !search.IsActive {
			state = "paused"
		}
		last := "never"
		if search.LastFetchedAt != nil {
			last = search.LastFetchedAt.Format("2006-01-02 15:04")
		}
		desc := search.Query
		if search.Location != "" {
			desc += " @ " + search.Location
		}
		fmt.Printf("%s  [%s]  %-40s  last fetched: %s\n", search.ID, state, desc, last)
	}
	return nil
}

func setSearchActive(id string, active bool) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.SetSearchActive(id, active); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if active {
		fmt.Printf("search %s enabled\n", id)
	} else {
		fmt.Printf("search %s disabled\n", id)
	}
	return nil
}
