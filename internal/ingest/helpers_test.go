package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sells-group/clinic-ingest/internal/model"
	"github.com/sells-group/clinic-ingest/internal/store"
	"github.com/sells-group/clinic-ingest/internal/taxonomy"
)

// stubGeocoder returns a fixed coordinate whenever a street address is given.
type stubGeocoder struct {
	mu     sync.Mutex
	calls  int
	onCall func()
}

func (g *stubGeocoder) Geocode(_ context.Context, address, city, state, zip string) model.Outcome[model.GeocodeResult] {
	g.mu.Lock()
	g.calls++
	hook := g.onCall
	g.mu.Unlock()
	if hook != nil {
		hook()
	}
	if address == "" {
		return model.Failed(model.FailedGeocode(), "empty address")
	}
	return model.Ok(model.GeocodeResult{Latitude: 30.2672, Longitude: -97.7431, Accuracy: model.AccuracyExact, Source: "stub"})
}

func (g *stubGeocoder) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type stubCrawler struct {
	result model.CrawlResult
	sites  []string
}

func (c *stubCrawler) Crawl(_ context.Context, website string) model.CrawlResult {
	c.sites = append(c.sites, website)
	return c.result
}

type stubProber bool

func (p stubProber) Reachable(context.Context, string) bool { return bool(p) }

type failingCopy struct{}

func (failingCopy) Generate(context.Context, *model.Clinic) (model.Marketing, error) {
	return model.Marketing{}, errors.New("copy service down")
}

// flakyStore fails the first failPuts calls to Put and PutBatch.
type flakyStore struct {
	*store.MemoryStore
	mu       sync.Mutex
	failPuts int
	puts     int
}

func (s *flakyStore) fail() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.puts <= s.failPuts {
		return errors.New("connection reset")
	}
	return nil
}

func (s *flakyStore) Put(ctx context.Context, c *model.Clinic) error {
	if err := s.fail(); err != nil {
		return err
	}
	return s.MemoryStore.Put(ctx, c)
}

func (s *flakyStore) PutBatch(ctx context.Context, cs []*model.Clinic) error {
	if err := s.fail(); err != nil {
		return err
	}
	return s.MemoryStore.PutBatch(ctx, cs)
}

var fixedNow = time.Date(2026, 3, 2, 15, 4, 5, 0, time.UTC)

func newTestImporter(st store.Store, opts Options, extra ...Option) (*Importer, *stubGeocoder) {
	geo := &stubGeocoder{}
	if opts.BatchSize == 0 {
		opts.BatchSize = 1
	}
	extra = append([]Option{WithClock(func() time.Time { return fixedNow })}, extra...)
	return New(st, taxonomy.Default(), geo, opts, extra...), geo
}

func austinRecord() model.RawRecord {
	return model.RawRecord{
		"name":     "Acme Clinic",
		"address":  "100 Congress Ave",
		"city":     "Austin",
		"state":    "TX",
		"zip":      "78701",
		"phone":    "512-555-1234",
		"website":  "acme.example",
		"services": "testosterone therapy, weight loss",
	}
}
