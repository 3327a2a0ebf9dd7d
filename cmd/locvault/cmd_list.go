package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"locvault/internal/store"
	"locvault/internal/timeline"
)

// listCmd prints the combined overview of originals and subsets.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all originals and subsets",
	RunE:  runList,
}

// showCmd loads and prints a single original.
var showCmd = &cobra.Command{
	Use:   "show [original-id]",
	Short: "Show an original record (verifies its checksum)",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

// statusCmd prints store-level bookkeeping.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store status",
	RunE:  runStatus,
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	overview, err := s.Listing(cmd.Context())
	if err != nil {
		return err
	}

	// The store guarantees no ordering; most-recent-first is a view choice.
	sort.Slice(overview.Originals, func(i, j int) bool {
		return overview.Originals[i].UploadDate.After(overview.Originals[j].UploadDate)
	})
	sort.Slice(overview.Subsets, func(i, j int) bool {
		return overview.Subsets[i].LastUsed.After(overview.Subsets[j].LastUsed)
	})

	fmt.Printf("Originals (%d):\n", len(overview.Originals))
	for _, o := range overview.Originals {
		fmt.Printf("  %s  %-24s %8d bytes  uploaded %s  range %s\n",
			o.ID, o.Filename, o.Size, o.UploadDate.Format(time.RFC3339), formatRange(o.DateRange))
	}

	fmt.Printf("Subsets (%d):\n", len(overview.Subsets))
	for _, sub := range overview.Subsets {
		fmt.Printf("  %s  %-24s %6d points  of %s  last used %s\n",
			sub.ID, sub.Name, sub.Stats.TotalPoints, sub.OriginalID, sub.LastUsed.Format(time.RFC3339))
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	rec, err := s.LoadOriginal(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Original %s\n", rec.ID)
	fmt.Printf("  Filename:    %s\n", rec.Filename)
	fmt.Printf("  Uploaded:    %s\n", rec.UploadDate.Format(time.RFC3339))
	fmt.Printf("  Size:        %d bytes\n", rec.Size)
	fmt.Printf("  Date range:  %s\n", formatRange(rec.DateRange))
	fmt.Printf("  Checksum:    %s\n", rec.Checksum)
	fmt.Printf("  Segments:    %d\n", len(rec.Dataset.Segments))
	if len(rec.Metadata) > 0 {
		fmt.Printf("  Metadata:    %v\n", rec.Metadata)
	}

	ids, err := s.ListSubsetIDs(cmd.Context(), rec.ID)
	if err != nil {
		return err
	}
	fmt.Printf("  Subsets:     %d\n", len(ids))
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	overview, err := s.Listing(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Database:       %s\n", cfg.Database)
	fmt.Printf("Schema version: %d\n", store.CurrentSchemaVersion)
	fmt.Printf("Originals:      %d\n", len(overview.Originals))
	fmt.Printf("Subsets:        %d\n", len(overview.Subsets))

	lastID, err := s.LastOriginalID(cmd.Context())
	switch {
	case err == nil:
		fmt.Printf("Last original:  %s\n", lastID)
	case isNotFound(err):
		fmt.Println("Last original:  (none)")
	default:
		return err
	}
	return nil
}

func formatRange(r timeline.DateRange) string {
	if r.IsZero() {
		return "(unknown)"
	}
	start, end := "?", "?"
	if r.Start != nil {
		start = r.Start.Format(time.RFC3339)
	}
	if r.End != nil {
		end = r.End.Format(time.RFC3339)
	}
	return start + " .. " + end
}
