package main

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/ptp-ingest/internal/history"
	"github.com/tonimelisma/ptp-ingest/internal/ingest"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit   int
		runID   string
		outcome string
		runs    bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show what earlier runs imported",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := buildLogger(os.Stderr)

			if _, err := os.Stat(resolvedCfg.HistoryDB); err != nil {
				statusf(cmd.ErrOrStderr(), flagQuiet, "No history recorded yet (%s).\n", resolvedCfg.HistoryDB)
				return nil
			}

			store, err := history.Open(cmd.Context(), resolvedCfg.HistoryDB, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			if runs {
				list, err := store.Runs(cmd.Context(), limit)
				if err != nil {
					return err
				}

				printTable(cmd.OutOrStdout(), runHeaders, runRows(list))

				return nil
			}

			imports, err := store.Imports(cmd.Context(), history.Filter{
				RunID:   runID,
				Outcome: ingest.Outcome(outcome),
				Limit:   limit,
			})
			if err != nil {
				return err
			}

			printTable(cmd.OutOrStdout(), importHeaders, importRows(imports))

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows to show (0 = all)")
	cmd.Flags().StringVar(&runID, "run", "", "only show objects from this run ID")
	cmd.Flags().StringVar(&outcome, "outcome", "", "only show transferred, duplicate or failed objects")
	cmd.Flags().BoolVar(&runs, "runs", false, "list runs instead of objects")

	return cmd
}

var (
	importHeaders = []string{"RECORDED", "OUTCOME", "FILENAME", "SIZE", "CAPTURED", "PATH"}
	runHeaders    = []string{"RUN", "STARTED", "FINISHED", "DEVICES", "TRANSFERRED", "DUPLICATES", "FAILED", "BYTES", "ERROR"}
)

func importRows(imports []history.Import) [][]string {
	rows := make([][]string, 0, len(imports))

	for _, imp := range imports {
		path := imp.Path
		if imp.Outcome == ingest.OutcomeFailed {
			path = imp.Err
		}

		rows = append(rows, []string{
			formatTime(imp.RecordedAt),
			string(imp.Outcome),
			imp.Filename,
			formatSize(imp.Size),
			formatDate(imp.CapturedAt),
			path,
		})
	}

	return rows
}

func runRows(runs []history.Run) [][]string {
	rows := make([][]string, 0, len(runs))

	for _, r := range runs {
		rows = append(rows, []string{
			r.ID,
			formatTime(r.StartedAt),
			formatTime(r.FinishedAt),
			strconv.Itoa(r.Devices),
			strconv.Itoa(r.Transferred),
			strconv.Itoa(r.Duplicates),
			strconv.Itoa(r.Failed),
			formatSize(r.Bytes),
			orDash(r.Err),
		})
	}

	return rows
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
