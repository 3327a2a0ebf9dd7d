package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"locvault/internal/timeline"
)

var importName string

// importCmd saves a location-history file as a new original.
var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a location-history JSON file as a new original",
	Long: `Parses a Timeline export (semantic segments or legacy timeline objects),
extracts its date range, and stores it with a content checksum.

Example:
  locvault import trip.json
  locvault import takeout.json --name "2024 archive"`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importName, "name", "", "display name recorded in metadata (defaults to the filename)")
}

func runImport(cmd *cobra.Command, args []string) error {
	path := args[0]
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ds := &timeline.Dataset{}
	if err := json.Unmarshal(raw, ds); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	filename := filepath.Base(path)
	name := importName
	if name == "" {
		name = filename
	}
	meta := map[string]any{"name": name}

	id, err := s.SaveOriginal(cmd.Context(), filename, ds, meta)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %s as original %s (%d segments)\n", filename, id, len(ds.Segments))
	return nil
}
