package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/cachesim/results"
)

func newRunsCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List the runs recorded in a results database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			recorder, err := results.Open(dbPath)
			if err != nil {
				return err
			}
			defer recorder.Close()

			runs, err := recorder.Runs()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, run := range runs {
				rows, err := recorder.Results(run.RunID)
				if err != nil {
					return err
				}

				fmt.Fprintf(out, "%s  %s  %dx%dx%d  seed=%d  points=%d\n",
					run.RunID, run.StartTime,
					run.NumSets, run.Associativity, run.LineSize,
					run.Seed, len(rows))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the .sqlite3 results file")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}
