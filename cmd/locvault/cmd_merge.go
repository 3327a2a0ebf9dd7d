package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"locvault/internal/logging"
	"locvault/internal/timeline"
)

var mergeFilename string

// mergeCmd combines two originals into a new one.
var mergeCmd = &cobra.Command{
	Use:   "merge [original-id-a] [original-id-b]",
	Short: "Merge two originals into a new original",
	Long: `Combines two datasets of the same shape. Segments covering the same
(start, end) span collide and the second original's segment wins; the
result is stored as a new original, leaving both inputs untouched.

Example:
  locvault merge 1f0e... 9c2a... --filename merged.json`,
	Args: cobra.ExactArgs(2),
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVar(&mergeFilename, "filename", "merged.json", "filename recorded for the merged original")
}

func runMerge(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	a, err := s.LoadOriginal(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	b, err := s.LoadOriginal(cmd.Context(), args[1])
	if err != nil {
		return err
	}

	merged := timeline.Merge(a.Dataset, b.Dataset)
	logging.Get(logging.CategoryMerge).Info("datasets merged",
		zap.String("a", a.ID),
		zap.String("b", b.ID),
		zap.Int("segments_a", len(a.Dataset.Segments)),
		zap.Int("segments_b", len(b.Dataset.Segments)),
		zap.Int("segments_merged", len(merged.Segments)))

	meta := map[string]any{
		"name":     mergeFilename,
		"mergedOf": []string{a.ID, b.ID},
	}
	id, err := s.SaveOriginal(cmd.Context(), mergeFilename, merged, meta)
	if err != nil {
		return err
	}

	fmt.Printf("Merged %s + %s into %s (%d segments)\n", a.ID, b.ID, id, len(merged.Segments))
	return nil
}
