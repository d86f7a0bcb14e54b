package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newNetworksCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "networks",
		Short:   "List stored networks",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			networks, _, closeDB, err := a.openServices(nil)
			if err != nil {
				return err
			}
			defer closeDB()

			list, err := networks.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No networks stored")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tUNIT\tNODES\tUPDATED")
			for _, n := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
					n.ID, n.Name, n.FlowUnit, n.NodeCount, n.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
}
