package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ductflow/internal/domain"
	"ductflow/internal/loader"
	"ductflow/internal/service"
)

func newComputeCmd(a *app) *cobra.Command {
	var (
		file      string
		networkID string
		start     string
		asJSON    bool
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "compute --start NODE (--file PATH | --network ID)",
		Short: "Compute the total airflow reachable from a start node",
		Example: `  ductflow compute --file level2.yaml --start D1
  ductflow compute --network level-2 --start D1 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (file == "") == (networkID == "") {
				return errors.New("exactly one of --file or --network is required")
			}

			var (
				result *service.ComputeResult
				err    error
			)
			if file != "" {
				result, err = computeFromFile(cmd, a, file, domain.NodeID(start))
			} else {
				result, err = computeFromStore(cmd, a, networkID, domain.NodeID(start))
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			if verbose {
				for _, c := range result.Contributions {
					note := ""
					if !c.Declared {
						note = " (no airflow declared)"
					}
					fmt.Fprintf(out, "  %s via %s: %g %s%s\n", c.Terminal, c.Via, c.Airflow, result.Unit, note)
				}
			}
			fmt.Fprintf(out, "The total airflow is: %g %s\n", result.Total, result.Unit)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "network document to load (yaml or json)")
	cmd.Flags().StringVarP(&networkID, "network", "n", "", "stored network ID")
	cmd.Flags().StringVarP(&start, "start", "s", "", "start node ID")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list every terminal contribution")
	_ = cmd.MarkFlagRequired("start")
	cmd.MarkFlagsMutuallyExclusive("file", "network")

	return cmd
}

// computeFromFile traverses a document straight from disk without a database
func computeFromFile(cmd *cobra.Command, a *app, path string, start domain.NodeID) (*service.ComputeResult, error) {
	doc, err := loader.LoadFile(path)
	if err != nil {
		return nil, err
	}
	svc := service.NewAirflowService(nil, nil, a.airflowOptions(), a.logger)
	return svc.ComputeOn(cmd.Context(), domain.NewNetwork(doc, a.classifier()), start)
}

func computeFromStore(cmd *cobra.Command, a *app, networkID string, start domain.NodeID) (*service.ComputeResult, error) {
	_, airflowSvc, closeDB, err := a.openServices(nil)
	if err != nil {
		return nil, err
	}
	defer closeDB()

	return airflowSvc.Compute(cmd.Context(), networkID, start)
}
