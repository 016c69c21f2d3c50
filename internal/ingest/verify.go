package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/clinic-ingest/internal/model"
	"github.com/sells-group/clinic-ingest/internal/resilience"
	"github.com/sells-group/clinic-ingest/internal/store"
)

// DefaultVerifiedBy labels verifications made without an explicit reviewer.
const DefaultVerifiedBy = "bulk-verify"

// Verifier marks stored clinics as verified.
type Verifier struct {
	store      store.Store
	batchSize  int
	retryDelay time.Duration
	now        func() time.Time
}

// NewVerifier creates a Verifier writing at most batchSize documents per commit.
func NewVerifier(st store.Store, batchSize int, retryDelay time.Duration) *Verifier {
	if batchSize <= 0 {
		batchSize = store.DefaultWriteBatchSize
	}
	return &Verifier{store: st, batchSize: batchSize, retryDelay: retryDelay, now: time.Now}
}

// ParseIDs splits a comma-separated id list, dropping blanks and repeats.
func ParseIDs(s string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, id := range strings.Split(s, ",") {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Verify stamps each id as verified by the given label and clears its
// needs-review tag. Unknown ids become not_found entries; the run is logged
// like an import.
func (v *Verifier) Verify(ctx context.Context, ids []string, by string) (*model.ImportResult, error) {
	if by == "" {
		by = DefaultVerifiedBy
	}
	now := v.now().UTC()
	result := model.NewImportResult(uuid.NewString(), "verify", len(ids), now)
	result.Source = by
	log := zap.L().With(zap.String("run", result.ID), zap.String("verified_by", by))

	pending := make([]*model.Clinic, 0, len(ids))
	for _, id := range ids {
		result.RecordProcessed()
		c, err := v.store.Get(ctx, id)
		if err != nil {
			result.RecordFailure(model.ClassifyError(err), err.Error(), map[string]any{"id": id})
			log.Warn("verify: record unavailable", zap.String("id", id), zap.Error(err))
			continue
		}
		c.Verified = true
		c.VerifiedBy = by
		c.VerifiedAt = &now
		c.UpdatedAt = now
		c.RemoveTag(model.TagNeedsReview)
		pending = append(pending, c)
	}

	for start := 0; start < len(pending); start += v.batchSize {
		batch := pending[start:min(start+v.batchSize, len(pending))]
		retry := resilience.RetryOnce(v.retryDelay)
		retry.OnRetry = resilience.RetryLogger("verify batch write", zap.Int("size", len(batch)))
		err := resilience.Do(ctx, retry, func(ctx context.Context) error {
			return v.store.PutBatch(ctx, batch)
		})
		for _, c := range batch {
			if err != nil {
				result.RecordFailure(model.ErrorStoreWrite, err.Error(), map[string]any{"id": c.ID})
				log.Warn("verify: write failed", zap.String("id", c.ID), zap.Error(err))
				continue
			}
			result.RecordUpdated(c.ID)
		}
	}

	result.Finalize(v.now().UTC())
	if err := v.store.AppendImportLog(context.WithoutCancel(ctx), result); err != nil {
		return result, eris.Wrap(err, "ingest: persist verify log")
	}
	return result, nil
}
