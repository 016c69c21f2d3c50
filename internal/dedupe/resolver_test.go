package dedupe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sells-group/clinic-ingest/internal/model"
	"github.com/sells-group/clinic-ingest/internal/store"
)

func clinic(id, name, address, city, state, phone string) *model.Clinic {
	return &model.Clinic{
		ID: id, Name: name, NameKey: name, Address: address,
		City: city, State: state, Phone: phone,
	}
}

func seeded(t *testing.T, cs ...*model.Clinic) *store.MemoryStore {
	t.Helper()
	s := store.NewMemory()
	require.NoError(t, s.PutBatch(context.Background(), cs))
	return s
}

func TestResolve_DecisionTable(t *testing.T) {
	existing := clinic("acme-austin-tx", "acme clinic", "100 Main St", "Austin", "TX", "(512) 555-1234")

	tests := []struct {
		name     string
		incoming *model.Clinic
		want     model.Verdict
	}{
		{
			name:     "same address city state",
			incoming: clinic("", "other name", "100 main st", "AUSTIN", "TX", ""),
			want:     model.Verdict{IsDuplicate: true, MatchedID: "acme-austin-tx", Reason: ReasonAddress},
		},
		{
			name:     "same name same city different address",
			incoming: clinic("", "acme clinic", "200 Oak Ave", "Austin", "TX", ""),
			want:     model.Verdict{IsDuplicate: true, MatchedID: "acme-austin-tx", Reason: ReasonNameCity},
		},
		{
			name:     "same name different city",
			incoming: clinic("", "acme clinic", "5 Elm St", "Dallas", "TX", ""),
			want:     model.Verdict{IsDuplicate: true, IsBranch: true, MatchedID: "acme-austin-tx", Reason: ReasonBranch},
		},
		{
			name:     "different name different address",
			incoming: clinic("", "zen health", "9 Pine Rd", "Austin", "TX", ""),
			want:     model.Verdict{},
		},
		{
			name:     "name prefix is not a match",
			incoming: clinic("", "acme", "9 Pine Rd", "Austin", "TX", ""),
			want:     model.Verdict{},
		},
		{
			name:     "same id ignored",
			incoming: clinic("acme-austin-tx", "acme clinic", "100 Main St", "Austin", "TX", ""),
			want:     model.Verdict{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(seeded(t, existing))
			got, err := r.Resolve(context.Background(), tt.incoming)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_PhoneMatchOnlyWarns(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	existing := clinic("acme-austin-tx", "acme clinic", "100 Main St", "Austin", "TX", "(512) 555-1234")
	r := New(seeded(t, existing))

	got, err := r.Resolve(context.Background(),
		clinic("", "zen health", "9 Pine Rd", "Austin", "TX", "(512) 555-1234"))
	require.NoError(t, err)
	assert.False(t, got.IsDuplicate)
	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, "acme-austin-tx", logs.All()[0].ContextMap()["matched_id"])
}

type failingQuerier struct{}

func (failingQuerier) Query(context.Context, ...store.Filter) ([]*model.Clinic, error) {
	return nil, errors.New("store down")
}

func TestResolve_QueryError(t *testing.T) {
	_, err := New(failingQuerier{}).Resolve(context.Background(),
		clinic("", "acme", "1 Main", "Austin", "TX", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store down")
}

func TestError(t *testing.T) {
	assert.NoError(t, Error(model.Verdict{}))
	assert.NoError(t, Error(model.Verdict{IsDuplicate: true, IsBranch: true}))

	err := Error(model.Verdict{IsDuplicate: true, MatchedID: "x", Reason: ReasonAddress})
	require.Error(t, err)
	assert.Equal(t, model.ErrorDuplicate, model.ClassifyError(err))
}
