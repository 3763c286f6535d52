package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/we-worker/All-In-One-Web/internal/syncer"
)

// newStatusCmd reports per-module sync state.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the sync state of every module",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			engine, err := a.engine(ctx)
			if err != nil {
				return err
			}

			statuses := engine.Status(ctx)

			if flagJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")

				return enc.Encode(statuses)
			}

			printStatusTable(statuses)

			return nil
		},
	}
}

func printStatusTable(statuses []syncer.Status) {
	if !stdoutIsTerminal() {
		for _, st := range statuses {
			fmt.Printf("%s\t%s\t%s\t%v\t%s\n",
				st.Name, st.LocalHash, st.CloudHash, st.NeedsSync, st.LastSyncTime)
		}

		return
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MODULE\tLOCAL\tCLOUD\tNEEDS SYNC\tLAST SYNC")

	for _, st := range statuses {
		needs := "no"
		if st.NeedsSync {
			needs = "yes"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			st.Name,
			shortHash(st.LocalHash),
			shortHash(st.CloudHash),
			needs,
			formatSyncTime(st.LastSyncTime),
		)
	}

	w.Flush()
}
