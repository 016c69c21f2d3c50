package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/clinic-ingest/internal/model"
	"github.com/sells-group/clinic-ingest/internal/store"
)

func seed(t *testing.T, st store.Store, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, st.Put(context.Background(), &model.Clinic{
			ID:   id,
			Slug: id,
			Name: id,
			Tags: []string{model.TagNeedsReview, model.TagLowQuality},
		}))
	}
}

func TestParseIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, ParseIDs(" a, b,,a ,c,"))
	assert.Nil(t, ParseIDs(" , "))
}

func TestVerify(t *testing.T) {
	st := store.NewMemory()
	seed(t, st, "acme-austin-tx", "peak-dallas-tx")
	v := NewVerifier(st, 1, 0)
	v.now = func() time.Time { return fixedNow }

	res, err := v.Verify(context.Background(), []string{"acme-austin-tx", "missing", "peak-dallas-tx"}, "jordan")
	require.NoError(t, err)

	assert.Equal(t, "verify", res.Kind)
	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, model.ErrorNotFound, res.Errors[0].Type)
	assert.Equal(t, "missing", res.Errors[0].Data["id"])
	assert.False(t, res.Success)

	c, err := st.Get(context.Background(), "acme-austin-tx")
	require.NoError(t, err)
	assert.True(t, c.Verified)
	assert.Equal(t, "jordan", c.VerifiedBy)
	require.NotNil(t, c.VerifiedAt)
	assert.True(t, fixedNow.Equal(*c.VerifiedAt))
	assert.Equal(t, []string{model.TagLowQuality}, c.Tags)

	logs, err := st.ListImportLogs(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, res.ID, logs[0].ID)
}

func TestVerify_DefaultLabel(t *testing.T) {
	st := store.NewMemory()
	seed(t, st, "a")

	res, err := NewVerifier(st, 0, 0).Verify(context.Background(), []string{"a"}, "")
	require.NoError(t, err)
	assert.True(t, res.Success)

	c, err := st.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, DefaultVerifiedBy, c.VerifiedBy)
}

func TestVerify_BatchWriteRetry(t *testing.T) {
	mem := store.NewMemory()
	seed(t, mem, "a", "b", "c")

	st := &flakyStore{MemoryStore: mem, failPuts: 1}
	res, err := NewVerifier(st, 2, 0).Verify(context.Background(), []string{"a", "b", "c"}, "ops")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Updated)
	assert.Equal(t, 3, st.puts, "first batch retried once, second batch written directly")
}

func TestVerify_BatchWriteFailure(t *testing.T) {
	mem := store.NewMemory()
	seed(t, mem, "a", "b", "c")

	st := &flakyStore{MemoryStore: mem, failPuts: 2}
	res, err := NewVerifier(st, 2, 0).Verify(context.Background(), []string{"a", "b", "c"}, "ops")
	require.NoError(t, err)

	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 2, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, model.ErrorStoreWrite, res.Errors[0].Type)
	assert.Equal(t, 2, res.Errors[0].Count)
	assert.Equal(t, []string{"c"}, res.SuccessIDs)
}

func TestCrawlStored(t *testing.T) {
	st := store.NewMemory()
	require.NoError(t, st.Put(context.Background(), &model.Clinic{ID: "acme", Name: "Acme", Website: "https://acme.example"}))
	cr := &stubCrawler{result: model.CrawlResult{
		Success:   true,
		CrawledAt: fixedNow,
		Services:  []model.ScrapedService{{Category: "Weight Loss", Confidence: 0.6}},
	}}

	c, res, err := CrawlStored(context.Background(), st, cr, "acme")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, c.ScrapedServices, 1)

	stored, err := st.Get(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "Weight Loss", stored.ScrapedServices[0].Category)
	require.NotNil(t, stored.LastCrawledAt)
}

func TestCrawlStored_Errors(t *testing.T) {
	st := store.NewMemory()
	require.NoError(t, st.Put(context.Background(), &model.Clinic{ID: "nosite", Name: "No Site"}))
	cr := &stubCrawler{}

	_, _, err := CrawlStored(context.Background(), st, cr, "missing")
	require.Error(t, err)
	assert.Equal(t, model.ErrorNotFound, model.ClassifyError(err))

	_, _, err = CrawlStored(context.Background(), st, cr, "nosite")
	require.Error(t, err)
	assert.Empty(t, cr.sites)
}
