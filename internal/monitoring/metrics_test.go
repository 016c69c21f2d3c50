package monitoring

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.IncRecord("imported")
	m.IncGeocode("exact")
	m.IncCrawlPage("ok")
	m.ObserveRecord(time.Second)
	assert.NoError(t, m.WriteTextfile("/nonexistent/dir/metrics.prom"))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.IncRecord("imported")
	m.IncRecord("imported")
	m.IncRecord("duplicate")
	m.IncGeocode("failed")
	m.ObserveRecord(250 * time.Millisecond)

	path := filepath.Join(t.TempDir(), "clinic_ingest.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `clinic_ingest_records_total{outcome="imported"} 2`)
	assert.Contains(t, out, `clinic_ingest_records_total{outcome="duplicate"} 1`)
	assert.Contains(t, out, `clinic_ingest_geocode_total{accuracy="failed"} 1`)
	assert.Contains(t, out, "clinic_ingest_record_duration_seconds_count 1")
}

func TestMetrics_WriteTextfileEmptyPath(t *testing.T) {
	assert.NoError(t, NewMetrics().WriteTextfile(""))
}
