package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"locvault/internal/config"
	"locvault/internal/logging"
	"locvault/internal/store"
)

var (
	// Global flags
	configPath string
	dbPath     string
	verbose    bool

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "locvault",
	Short: "locvault - local persistent store for location-history datasets",
	Long: `locvault manages uploaded location-history datasets ("originals") and
derived, filtered slices of them ("subsets") in a local SQLite database.

Originals are stored verbatim with a content checksum that is verified on
every load. Deleting an original atomically removes every subset derived
from it. Two originals can be merged with later-write-wins conflict
resolution on overlapping time spans.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if dbPath != "" {
			cfg.Database = dbPath
		}
		if verbose {
			cfg.Logging.Verbose = true
		}
		return logging.Initialize(cfg.Logging.Verbose)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

// openStore opens the configured database for a command invocation.
func openStore() (*store.Store, error) {
	return store.Open(cfg.Database, store.Options{
		ValidateSubsetParent: cfg.Store.ValidateSubsetParent,
		BusyTimeout:          time.Duration(cfg.Store.BusyTimeout) * time.Millisecond,
	})
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "locvault.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to database file (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(subsetCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
