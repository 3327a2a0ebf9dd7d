package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"locvault/internal/store"
)

// deleteCmd removes an original and cascades into its subsets.
var deleteCmd = &cobra.Command{
	Use:   "delete [original-id]",
	Short: "Delete an original and every subset derived from it",
	Long: `Removes the original and all dependent subsets as a single atomic
operation and reports how many subsets were removed.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	removed, err := s.DeleteOriginal(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Deleted original %s and %d dependent subset(s)\n", args[0], removed)
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
