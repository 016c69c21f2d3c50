package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/clinic-ingest/internal/ingest"
	"github.com/sells-group/clinic-ingest/internal/model"
	"github.com/sells-group/clinic-ingest/internal/monitoring"
	"github.com/sells-group/clinic-ingest/internal/normalize"
	"github.com/sells-group/clinic-ingest/internal/store"
)

var importDryRun bool

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import clinic records from a CSV, TSV, JSON or XLSX file",
	Long: "Parses the file (or the first existing sample path when none is given), runs every record " +
		"through the import pipeline and prints a run summary. Exits non-zero when any record failed " +
		"for a reason other than being a duplicate.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("import"); err != nil {
			return err
		}

		path, err := resolveInput(args, cfg.Import.SamplePaths)
		if err != nil {
			return err
		}
		records, err := ingest.ParseFile(path)
		if err != nil {
			return err
		}
		tax, err := loadTaxonomy(cfg)
		if err != nil {
			return err
		}
		zap.L().Info("import: parsed input", zap.String("file", path), zap.Int("records", len(records)))

		if importDryRun {
			formatDryRun(os.Stdout, normalize.New(tax), records)
			return nil
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		metrics := monitoring.NewMetrics()
		opts := []ingest.Option{
			ingest.WithMetrics(metrics),
			ingest.WithMarketing(newCopywriter(cfg.Anthropic)),
		}
		if cfg.Import.CrawlServices {
			opts = append(opts, ingest.WithCrawler(newCrawler(tax, cfg.Crawl, metrics)))
		}
		if cfg.Import.ProbeWebsites {
			opts = append(opts, ingest.WithProber(newProber(cfg.Crawl)))
		}

		im := ingest.New(st, tax, newGeocoder(cfg.Geocode), ingest.OptionsFromConfig(cfg.Import), opts...)
		res, runErr := im.Run(ctx, records, path)

		snap := res.Snapshot()
		formatRunSummary(os.Stdout, snap)

		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			zap.L().Warn("import: write metrics textfile", zap.Error(err))
		}
		checkHealth(context.WithoutCancel(ctx), st)

		if runErr != nil {
			return runErr
		}
		if !snap.Success {
			return eris.Errorf("import: %d record(s) failed", snap.Failed)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "parse and normalize only; print records without writing")
	rootCmd.AddCommand(importCmd)
}

// resolveInput returns the file argument, or the first sample path that
// exists when none was given.
func resolveInput(args, samples []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	for _, p := range samples {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", eris.Errorf("import: no file given and no sample file found (looked for %s)", strings.Join(samples, ", "))
}

// checkHealth evaluates recent runs and posts alerts when a webhook is set.
func checkHealth(ctx context.Context, st store.Store) {
	if cfg.Metrics.AlertWebhook == "" {
		return
	}
	snap, err := monitoring.NewCollector(st).Collect(ctx, cfg.Metrics.LookbackHours)
	if err != nil {
		zap.L().Warn("import: collect health snapshot", zap.Error(err))
		return
	}
	alerter := monitoring.NewAlerter(cfg.Metrics)
	alerter.SendAlerts(ctx, alerter.Evaluate(snap))
}

// formatDryRun prints each normalized record with its tags.
func formatDryRun(out io.Writer, n *normalize.Normalizer, records []model.RawRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ROW\tNAME\tCITY\tSTATE\tPHONE\tSTATUS\tTAGS")
	_, _ = fmt.Fprintln(w, "---\t----\t----\t-----\t-----\t------\t----")
	for i, raw := range records {
		c := n.Normalize(raw)
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1, c.Name, c.City, c.State, c.Phone, c.Status, strings.Join(c.Tags, ","))
	}
	_ = w.Flush()
}
