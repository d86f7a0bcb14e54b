package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ductflow/internal/loader"
)

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE...",
		Short: "Store network documents, replacing networks with the same ID",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			networks, _, closeDB, err := a.openServices(nil)
			if err != nil {
				return err
			}
			defer closeDB()

			out := cmd.OutOrStdout()
			for _, path := range args {
				doc, err := loader.LoadFile(path)
				if err != nil {
					return err
				}
				result, err := networks.ImportDocument(cmd.Context(), doc)
				if err != nil {
					return fmt.Errorf("import %s: %w", path, err)
				}

				verb := "Imported"
				if result.Replaced {
					verb = "Replaced"
				}
				fmt.Fprintf(out, "%s %s from %s: %d nodes, %d terminals\n",
					verb, result.NetworkID, path, result.NodeCount, result.Terminals)
			}
			return nil
		},
	}
}
