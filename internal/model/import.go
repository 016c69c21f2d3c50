package model

import (
	"sort"
	"sync"
	"time"
)

// ErrorEntry is one distinct failure in an import run. Identical failures
// increment Count instead of adding entries.
type ErrorEntry struct {
	Type    ErrorType      `json:"type"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
	Count   int            `json:"count"`
}

// ImportResult aggregates the outcome of one run. It is safe for concurrent
// use by record tasks; Snapshot returns a consistent copy for persistence.
type ImportResult struct {
	mu sync.Mutex

	ID         string        `json:"id"`
	Kind       string        `json:"kind"`
	Source     string        `json:"source,omitempty"`
	Processed  int           `json:"processed"`
	Imported   int           `json:"imported"`
	Updated    int           `json:"updated"`
	Failed     int           `json:"failed"`
	Errors     []*ErrorEntry `json:"errors"`
	SuccessIDs []string      `json:"success_ids"`
	Success    bool          `json:"success"`
	Stopped    bool          `json:"stopped,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`

	maxIDs int
}

// NewImportResult creates an empty result keeping at most maxIDs success ids.
func NewImportResult(id, kind string, maxIDs int, now time.Time) *ImportResult {
	return &ImportResult{
		ID:        id,
		Kind:      kind,
		StartedAt: now,
		maxIDs:    maxIDs,
		Errors:    []*ErrorEntry{},
	}
}

// RecordProcessed counts one record entering the pipeline.
func (r *ImportResult) RecordProcessed() {
	r.mu.Lock()
	r.Processed++
	r.mu.Unlock()
}

// RecordImported counts a newly written record.
func (r *ImportResult) RecordImported(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Imported++
	r.appendID(id)
}

// RecordUpdated counts a record merged onto an existing document.
func (r *ImportResult) RecordUpdated(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Updated++
	r.appendID(id)
}

// RecordFailure counts a failed record and folds identical errors together.
func (r *ImportResult) RecordFailure(typ ErrorType, message string, data map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failed++
	for _, e := range r.Errors {
		if e.Type == typ && e.Message == message {
			e.Count++
			return
		}
	}
	r.Errors = append(r.Errors, &ErrorEntry{Type: typ, Message: message, Data: data, Count: 1})
}

func (r *ImportResult) appendID(id string) {
	if r.maxIDs > 0 && len(r.SuccessIDs) >= r.maxIDs {
		return
	}
	r.SuccessIDs = append(r.SuccessIDs, id)
}

// Finalize stamps the end time and computes Success: a run succeeds when no
// record failed for a reason other than being a duplicate.
func (r *ImportResult) Finalize(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FinishedAt = now
	r.Success = true
	for _, e := range r.Errors {
		if e.Type != ErrorDuplicate {
			r.Success = false
			break
		}
	}
}

// MarkStopped records that the run ended before all batches were scheduled.
func (r *ImportResult) MarkStopped() {
	r.mu.Lock()
	r.Stopped = true
	r.mu.Unlock()
}

// ErrorCounts totals error occurrences per type.
func (r *ImportResult) ErrorCounts() map[ErrorType]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[ErrorType]int)
	for _, e := range r.Errors {
		counts[e.Type] += e.Count
	}
	return counts
}

// Snapshot returns a copy detached from the mutex, errors sorted by count.
func (r *ImportResult) Snapshot() *ImportResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := &ImportResult{
		ID:         r.ID,
		Kind:       r.Kind,
		Source:     r.Source,
		Processed:  r.Processed,
		Imported:   r.Imported,
		Updated:    r.Updated,
		Failed:     r.Failed,
		SuccessIDs: append([]string(nil), r.SuccessIDs...),
		Success:    r.Success,
		Stopped:    r.Stopped,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		maxIDs:     r.maxIDs,
	}
	cp.Errors = make([]*ErrorEntry, len(r.Errors))
	for i, e := range r.Errors {
		ec := *e
		cp.Errors[i] = &ec
	}
	sort.SliceStable(cp.Errors, func(i, j int) bool {
		return cp.Errors[i].Count > cp.Errors[j].Count
	})
	return cp
}
