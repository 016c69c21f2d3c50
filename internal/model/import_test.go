package model

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportResult_RepeatedErrorIncrementsCount(t *testing.T) {
	r := NewImportResult("run-1", "import", 10, time.Now())

	r.RecordFailure(ErrorValidation, `validation: missing required field "name"`, map[string]any{"row": 1})
	r.RecordFailure(ErrorValidation, `validation: missing required field "name"`, map[string]any{"row": 7})
	r.RecordFailure(ErrorDuplicate, "duplicate of acme-austin-tx (address)", nil)

	snap := r.Snapshot()
	require.Len(t, snap.Errors, 2)
	assert.Equal(t, 3, snap.Failed)
	assert.Equal(t, ErrorValidation, snap.Errors[0].Type)
	assert.Equal(t, 2, snap.Errors[0].Count)
	// First occurrence's data is kept.
	assert.Equal(t, 1, snap.Errors[0].Data["row"])
}

func TestImportResult_SuccessIDsBounded(t *testing.T) {
	r := NewImportResult("run-1", "import", 2, time.Now())
	r.RecordImported("a")
	r.RecordImported("b")
	r.RecordUpdated("c")

	snap := r.Snapshot()
	assert.Equal(t, []string{"a", "b"}, snap.SuccessIDs)
	assert.Equal(t, 2, snap.Imported)
	assert.Equal(t, 1, snap.Updated)
}

func TestImportResult_ConcurrentWriters(t *testing.T) {
	r := NewImportResult("run-1", "import", 0, time.Now())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.RecordProcessed()
			if i%2 == 0 {
				r.RecordImported("id")
			} else {
				r.RecordFailure(ErrorInternal, "boom", nil)
			}
		}(i)
	}
	wg.Wait()

	snap := r.Snapshot()
	assert.Equal(t, 50, snap.Processed)
	assert.Equal(t, 25, snap.Imported)
	assert.Equal(t, 25, snap.Failed)
	require.Len(t, snap.Errors, 1)
	assert.Equal(t, 25, snap.Errors[0].Count)
}

func TestImportResult_Finalize(t *testing.T) {
	tests := []struct {
		name    string
		errs    []ErrorType
		success bool
	}{
		{name: "no errors", success: true},
		{name: "duplicates only", errs: []ErrorType{ErrorDuplicate, ErrorDuplicate}, success: true},
		{name: "store write", errs: []ErrorType{ErrorDuplicate, ErrorStoreWrite}, success: false},
		{name: "validation", errs: []ErrorType{ErrorValidation}, success: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewImportResult("run", "import", 0, time.Now())
			for _, e := range tt.errs {
				r.RecordFailure(e, string(e), nil)
			}
			r.Finalize(time.Now())
			assert.Equal(t, tt.success, r.Snapshot().Success)
		})
	}
}

func TestImportResult_ErrorCounts(t *testing.T) {
	r := NewImportResult("run", "import", 0, time.Now())
	r.RecordFailure(ErrorDuplicate, "a", nil)
	r.RecordFailure(ErrorDuplicate, "b", nil)
	r.RecordFailure(ErrorDuplicate, "a", nil)
	r.RecordFailure(ErrorSlugExhausted, "c", nil)

	counts := r.ErrorCounts()
	assert.Equal(t, 3, counts[ErrorDuplicate])
	assert.Equal(t, 1, counts[ErrorSlugExhausted])
}
