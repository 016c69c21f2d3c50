package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
)

// Metrics bundles the import pipeline's Prometheus collectors. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Registry       *prometheus.Registry
	RecordsTotal   *prometheus.CounterVec
	GeocodeTotal   *prometheus.CounterVec
	CrawlPages     *prometheus.CounterVec
	RecordDuration prometheus.Histogram
}

// NewMetrics registers every collector on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	records := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_ingest_records_total",
			Help: "Records processed by the importer, by outcome.",
		},
		[]string{"outcome"},
	)
	geocodes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_ingest_geocode_total",
			Help: "Geocode lookups by resulting accuracy tier.",
		},
		[]string{"accuracy"},
	)
	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_ingest_crawl_pages_total",
			Help: "Website pages fetched by the service crawler, by result.",
		},
		[]string{"result"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clinic_ingest_record_duration_seconds",
			Help:    "Wall time spent importing one record.",
			Buckets: prometheus.DefBuckets,
		},
	)

	registry.MustRegister(records, geocodes, pages, duration)

	return &Metrics{
		Registry:       registry,
		RecordsTotal:   records,
		GeocodeTotal:   geocodes,
		CrawlPages:     pages,
		RecordDuration: duration,
	}
}

// IncRecord counts one record outcome (imported, updated, duplicate, failed).
func (m *Metrics) IncRecord(outcome string) {
	if m == nil {
		return
	}
	m.RecordsTotal.WithLabelValues(outcome).Inc()
}

// IncGeocode counts one geocode by accuracy tier.
func (m *Metrics) IncGeocode(accuracy string) {
	if m == nil {
		return
	}
	m.GeocodeTotal.WithLabelValues(accuracy).Inc()
}

// IncCrawlPage counts one crawled page (ok, failed).
func (m *Metrics) IncCrawlPage(result string) {
	if m == nil {
		return
	}
	m.CrawlPages.WithLabelValues(result).Inc()
}

// ObserveRecord records how long one record took.
func (m *Metrics) ObserveRecord(d time.Duration) {
	if m == nil {
		return
	}
	m.RecordDuration.Observe(d.Seconds())
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return eris.Wrap(err, "monitoring: write metrics textfile")
	}
	return nil
}
