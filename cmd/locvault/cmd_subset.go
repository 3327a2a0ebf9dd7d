package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"locvault/internal/timeline"
)

var (
	subsetName        string
	subsetFrom        string
	subsetTo          string
	subsetDistance    float64
	subsetTime        float64
	subsetProbability float64
)

// subsetCmd groups subset operations.
var subsetCmd = &cobra.Command{
	Use:   "subset",
	Short: "Manage derived subsets of an original",
}

// subsetCreateCmd stores a filtered point file as a subset. Filtering
// itself happens upstream; locvault records the result and the settings it
// was produced with.
var subsetCreateCmd = &cobra.Command{
	Use:   "create [original-id] [points-file]",
	Short: "Store a filtered point sequence as a subset of an original",
	Long: `Reads a JSON array of filtered points and stores it as an independent
copy referencing the original. The subset stays readable even if the
original is later deleted without the cascading path.

Example:
  locvault subset create 1f0e... week1.json --name "week 1" \
      --from 2024-01-01T00:00:00Z --to 2024-01-08T00:00:00Z --distance 150`,
	Args: cobra.ExactArgs(2),
	RunE: runSubsetCreate,
}

// subsetShowCmd loads a subset, which also touches its last-used time.
var subsetShowCmd = &cobra.Command{
	Use:   "show [subset-id]",
	Short: "Show a subset (updates its last-used time)",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubsetShow,
}

var subsetDeleteCmd = &cobra.Command{
	Use:   "delete [subset-id]",
	Short: "Delete a subset",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubsetDelete,
}

func init() {
	subsetCreateCmd.Flags().StringVar(&subsetName, "name", "", "subset display name (required)")
	subsetCreateCmd.Flags().StringVar(&subsetFrom, "from", "", "range start (RFC3339)")
	subsetCreateCmd.Flags().StringVar(&subsetTo, "to", "", "range end (RFC3339)")
	subsetCreateCmd.Flags().Float64Var(&subsetDistance, "distance", 0, "distance threshold the points were filtered with")
	subsetCreateCmd.Flags().Float64Var(&subsetTime, "time", 0, "time threshold the points were filtered with")
	subsetCreateCmd.Flags().Float64Var(&subsetProbability, "probability", 0, "probability threshold the points were filtered with")
	_ = subsetCreateCmd.MarkFlagRequired("name")

	subsetCmd.AddCommand(subsetCreateCmd)
	subsetCmd.AddCommand(subsetShowCmd)
	subsetCmd.AddCommand(subsetDeleteCmd)
}

func runSubsetCreate(cmd *cobra.Command, args []string) error {
	originalID, pointsPath := args[0], args[1]

	raw, err := os.ReadFile(pointsPath)
	if err != nil {
		return err
	}
	var points []timeline.Point
	if err := json.Unmarshal(raw, &points); err != nil {
		return fmt.Errorf("failed to parse %s: %w", pointsPath, err)
	}

	dr, err := parseRangeFlags()
	if err != nil {
		return err
	}
	settings := timeline.FilterSettings{
		DistanceThreshold:    subsetDistance,
		TimeThreshold:        subsetTime,
		ProbabilityThreshold: subsetProbability,
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := s.SaveSubset(cmd.Context(), originalID, subsetName, points, dr, settings)
	if err != nil {
		return err
	}
	fmt.Printf("Created subset %s (%d points) of original %s\n", id, len(points), originalID)
	return nil
}

func runSubsetShow(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	rec, err := s.LoadSubset(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Subset %s\n", rec.ID)
	fmt.Printf("  Name:        %s\n", rec.Name)
	fmt.Printf("  Original:    %s\n", rec.OriginalID)
	fmt.Printf("  Created:     %s\n", rec.CreatedAt.Format(time.RFC3339))
	fmt.Printf("  Last used:   %s\n", rec.LastUsed.Format(time.RFC3339))
	fmt.Printf("  Date range:  %s\n", formatRange(rec.DateRange))
	fmt.Printf("  Points:      %d\n", rec.Stats.TotalPoints)
	fmt.Printf("  Settings:    distance=%g time=%g probability=%g\n",
		rec.Settings.DistanceThreshold, rec.Settings.TimeThreshold, rec.Settings.ProbabilityThreshold)
	return nil
}

func runSubsetDelete(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.DeleteSubset(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted subset %s\n", args[0])
	return nil
}

func parseRangeFlags() (timeline.DateRange, error) {
	var dr timeline.DateRange
	if subsetFrom != "" {
		t, err := timeline.ParseTimestamp(subsetFrom)
		if err != nil {
			return dr, fmt.Errorf("invalid --from: %w", err)
		}
		dr.Start = &t
	}
	if subsetTo != "" {
		t, err := timeline.ParseTimestamp(subsetTo)
		if err != nil {
			return dr, fmt.Errorf("invalid --to: %w", err)
		}
		dr.End = &t
	}
	return dr, nil
}
