package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/clinic-ingest/internal/ingest"
	"github.com/sells-group/clinic-ingest/internal/model"
	"github.com/sells-group/clinic-ingest/internal/monitoring"
)

var (
	crawlID  string
	crawlURL string
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Extract offered services from a clinic website",
	Long: "Crawls the website of a stored clinic (--id) and saves the services and signals found, " +
		"or crawls an arbitrary site (--url) and prints the result as JSON.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("crawl"); err != nil {
			return err
		}
		tax, err := loadTaxonomy(cfg)
		if err != nil {
			return err
		}
		metrics := monitoring.NewMetrics()
		cr := newCrawler(tax, cfg.Crawl, metrics)
		defer func() { _ = metrics.WriteTextfile(cfg.Metrics.Textfile) }()

		if crawlURL != "" {
			res := cr.Crawl(ctx, crawlURL)
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		_, res, err := ingest.CrawlStored(ctx, st, cr, crawlID)
		if err != nil {
			return err
		}
		formatCrawl(os.Stdout, res)
		return nil
	},
}

func init() {
	crawlCmd.Flags().StringVar(&crawlID, "id", "", "id of a stored clinic to crawl and update")
	crawlCmd.Flags().StringVar(&crawlURL, "url", "", "website to crawl without storing the result")
	crawlCmd.MarkFlagsMutuallyExclusive("id", "url")
	crawlCmd.MarkFlagsOneRequired("id", "url")
	rootCmd.AddCommand(crawlCmd)
}

// formatCrawl writes the services found, highest confidence first.
func formatCrawl(out io.Writer, res model.CrawlResult) {
	if !res.Success {
		_, _ = fmt.Fprintf(out, "%s: unreachable (%s)\n", res.Website, res.Error)
		return
	}
	_, _ = fmt.Fprintf(out, "%s: %d page(s) crawled, %d failed\n", res.Website, res.PagesCrawled, res.PagesFailed)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CATEGORY\tCONFIDENCE\tPRICE\tMENTIONS")
	_, _ = fmt.Fprintln(w, "--------\t----------\t-----\t--------")
	for _, s := range res.Services {
		_, _ = fmt.Fprintf(w, "%s\t%.2f\t%s\t%d\n", s.Category, s.Confidence, s.Price, s.Mentions)
	}
	_ = w.Flush()
}
