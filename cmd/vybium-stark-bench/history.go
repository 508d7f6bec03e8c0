package main

import (
	"fmt"

	"github.com/spf13/cobra"

	vybiumstarkbench "github.com/vybium/vybium-stark-bench/pkg/vybium-stark-bench"
)

var historyOpts struct {
	store  string
	runID  string
	format string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored runs or re-render one of them",
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyOpts.runID == "" {
			runs, err := vybiumstarkbench.ListRuns(historyOpts.store)
			if err != nil {
				return err
			}
			for _, id := range runs {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		}

		rep, err := vybiumstarkbench.LoadRun(historyOpts.store, historyOpts.runID)
		if err != nil {
			return err
		}
		out, err := rep.Render(historyOpts.format)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyOpts.store, "store", "", "badger directory written by run --store")
	historyCmd.Flags().StringVar(&historyOpts.runID, "run", "", "run ID to render")
	historyCmd.Flags().StringVarP(&historyOpts.format, "format", "f", "markdown", "report format")
	_ = historyCmd.MarkFlagRequired("store")
}
