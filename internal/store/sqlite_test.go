package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/clinic-ingest/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath, 2)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLiteStore_Contract(t *testing.T) {
	runStoreContract(t, newTestSQLiteStore(t))
}

func TestSQLiteStore_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}

func TestSQLiteStore_PutBatchAcrossChunks(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	var cs []*model.Clinic
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		cs = append(cs, testClinic(id, id, "Austin", "TX"))
	}
	require.NoError(t, st.PutBatch(ctx, cs))

	got, err := st.Query(ctx, Eq(FieldCity, "austin"))
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestSQLiteStore_PutBatchRejectsMissingID(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	err := st.PutBatch(ctx, []*model.Clinic{
		testClinic("a", "a", "Austin", "TX"),
		{Name: "no id"},
	})
	require.Error(t, err)

	// The failing chunk rolled back as a unit.
	ok, err := st.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_PrefixMatchesLiteralWildcards(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, st.Put(ctx, testClinic("p", "100% natural", "Austin", "TX")))

	got, err := st.Query(ctx, Prefix(FieldNameKey, "100%"))
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = st.Query(ctx, Prefix(FieldNameKey, "10_"))
	require.NoError(t, err)
	assert.Empty(t, got)
}
