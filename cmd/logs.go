package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/clinic-ingest/internal/monitoring"
)

var logsLimit int

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "List recent import and verify runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		logs, err := st.ListImportLogs(ctx, logsLimit)
		if err != nil {
			return eris.Wrap(err, "logs: list")
		}
		if len(logs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}
		formatLogs(os.Stdout, logs)

		snap, err := monitoring.NewCollector(st).Collect(ctx, cfg.Metrics.LookbackHours)
		if err != nil {
			return eris.Wrap(err, "logs: health")
		}
		fmt.Fprintln(os.Stdout)
		formatHealth(os.Stdout, snap, monitoring.NewAlerter(cfg.Metrics).Evaluate(snap))
		return nil
	},
}

func init() {
	logsCmd.Flags().IntVar(&logsLimit, "limit", 20, "max number of runs to display")
	rootCmd.AddCommand(logsCmd)
}
