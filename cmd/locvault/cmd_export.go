package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportOut string

// exportCmd produces the downloadable artifact for a subset: its stored
// point payload plus its name, untransformed.
var exportCmd = &cobra.Command{
	Use:   "export [subset-id]",
	Short: "Export a subset's point payload",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (defaults to stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	w := os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if err := s.ExportSubset(cmd.Context(), args[0], w); err != nil {
		return err
	}
	if exportOut != "" {
		fmt.Printf("Exported subset %s to %s\n", args[0], exportOut)
	}
	return nil
}
