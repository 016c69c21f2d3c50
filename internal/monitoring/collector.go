package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/clinic-ingest/internal/model"
)

// maxLogs bounds how many persisted run logs one collection reads.
const maxLogs = 1000

// HealthSnapshot summarises import runs inside a lookback window.
type HealthSnapshot struct {
	Runs        int `json:"runs"`
	FailedRuns  int `json:"failed_runs"`
	StoppedRuns int `json:"stopped_runs"`

	Processed  int `json:"processed"`
	Imported   int `json:"imported"`
	Updated    int `json:"updated"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`

	// RecordFailRate is non-duplicate failures over processed records.
	RecordFailRate float64                 `json:"record_fail_rate"`
	ErrorCounts    map[model.ErrorType]int `json:"error_counts"`

	LastRunAt     time.Time `json:"last_run_at,omitempty"`
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// ImportLogLister is the slice of the store the collector reads.
type ImportLogLister interface {
	ListImportLogs(ctx context.Context, limit int) ([]*model.ImportResult, error)
}

// Collector builds health snapshots from persisted import logs.
type Collector struct {
	logs ImportLogLister
	now  func() time.Time
}

// NewCollector creates a collector over the given log source.
func NewCollector(logs ImportLogLister) *Collector {
	return &Collector{logs: logs, now: time.Now}
}

// Collect aggregates every run that started within lookbackHours.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*HealthSnapshot, error) {
	now := c.now().UTC()
	snap := &HealthSnapshot{
		ErrorCounts:   make(map[model.ErrorType]int),
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.logs.ListImportLogs(ctx, maxLogs)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list import logs")
	}

	for _, r := range runs {
		if r.StartedAt.Before(cutoff) {
			continue
		}
		snap.Runs++
		if !r.Success {
			snap.FailedRuns++
		}
		if r.Stopped {
			snap.StoppedRuns++
		}
		if r.StartedAt.After(snap.LastRunAt) {
			snap.LastRunAt = r.StartedAt
		}

		snap.Processed += r.Processed
		snap.Imported += r.Imported
		snap.Updated += r.Updated
		for typ, n := range r.ErrorCounts() {
			snap.ErrorCounts[typ] += n
			if typ == model.ErrorDuplicate {
				snap.Duplicates += n
			} else {
				snap.Failed += n
			}
		}
	}

	if snap.Processed > 0 {
		snap.RecordFailRate = float64(snap.Failed) / float64(snap.Processed)
	}
	return snap, nil
}
