package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/sells-group/clinic-ingest/internal/model"
	"github.com/sells-group/clinic-ingest/internal/monitoring"
)

// maxSampleLen bounds the sample error message shown per type.
const maxSampleLen = 80

// formatRunSummary writes the end-of-run report: counters, then per-type
// error counts with one sample message each.
func formatRunSummary(out io.Writer, r *model.ImportResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s (%s)\n", truncateID(r.ID), r.Kind)
	if r.Source != "" {
		_, _ = fmt.Fprintf(w, "Source:\t%s\n", r.Source)
	}
	_, _ = fmt.Fprintf(w, "Processed:\t%d\n", r.Processed)
	_, _ = fmt.Fprintf(w, "Imported:\t%d\n", r.Imported)
	_, _ = fmt.Fprintf(w, "Updated:\t%d\n", r.Updated)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", r.Failed)
	if !r.FinishedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "Duration:\t%s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}
	status := "success"
	if !r.Success {
		status = "failed"
	}
	if r.Stopped {
		status += " (stopped early)"
	}
	_, _ = fmt.Fprintf(w, "Result:\t%s\n", status)
	_ = w.Flush()

	if len(r.Errors) == 0 {
		return
	}

	counts := make(map[model.ErrorType]int)
	samples := make(map[model.ErrorType]string)
	for _, e := range r.Errors {
		counts[e.Type] += e.Count
		if _, ok := samples[e.Type]; !ok {
			samples[e.Type] = e.Message
		}
	}
	types := make([]model.ErrorType, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		if counts[types[i]] != counts[types[j]] {
			return counts[types[i]] > counts[types[j]]
		}
		return types[i] < types[j]
	})

	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ERROR TYPE\tCOUNT\tSAMPLE")
	_, _ = fmt.Fprintln(w, "----------\t-----\t------")
	for _, t := range types {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", t, counts[t], clip(samples[t], maxSampleLen))
	}
	_ = w.Flush()
}

// formatLogs writes a tabular list of persisted run logs.
func formatLogs(out io.Writer, logs []*model.ImportResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tKIND\tSTARTED\tPROCESSED\tIMPORTED\tUPDATED\tFAILED\tRESULT\tSOURCE")
	_, _ = fmt.Fprintln(w, "--\t----\t-------\t---------\t--------\t-------\t------\t------\t------")
	for _, l := range logs {
		result := "ok"
		switch {
		case l.Stopped:
			result = "stopped"
		case !l.Success:
			result = "failed"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
			truncateID(l.ID),
			l.Kind,
			l.StartedAt.Format("2006-01-02 15:04"),
			l.Processed,
			l.Imported,
			l.Updated,
			l.Failed,
			result,
			clip(l.Source, 40),
		)
	}
	_ = w.Flush()
}

// formatHealth writes the lookback summary and any alerts it triggers.
func formatHealth(out io.Writer, snap *monitoring.HealthSnapshot, alerts []monitoring.Alert) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Last %dh:\t%d run(s), %d failed, %d stopped\n",
		snap.LookbackHours, snap.Runs, snap.FailedRuns, snap.StoppedRuns)
	_, _ = fmt.Fprintf(w, "Records:\t%d processed, %d imported, %d updated, %d duplicates, %d failed\n",
		snap.Processed, snap.Imported, snap.Updated, snap.Duplicates, snap.Failed)
	_, _ = fmt.Fprintf(w, "Failure rate:\t%.1f%%\n", snap.RecordFailRate*100)
	_ = w.Flush()

	for _, a := range alerts {
		_, _ = fmt.Fprintf(out, "ALERT [%s] %s\n", a.Severity, a.Message)
	}
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
