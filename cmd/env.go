package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/clinic-ingest/internal/config"
	"github.com/sells-group/clinic-ingest/internal/crawl"
	"github.com/sells-group/clinic-ingest/internal/marketing"
	"github.com/sells-group/clinic-ingest/internal/monitoring"
	"github.com/sells-group/clinic-ingest/internal/store"
	"github.com/sells-group/clinic-ingest/internal/taxonomy"
	"github.com/sells-group/clinic-ingest/pkg/anthropic"
	"github.com/sells-group/clinic-ingest/pkg/geocode"
)

// initStore opens the configured store and runs its migration.
func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store)
}

// loadTaxonomy returns the built-in taxonomy or the configured override.
func loadTaxonomy(c *config.Config) (*taxonomy.Taxonomy, error) {
	if c.Taxonomy.File == "" {
		return taxonomy.Default(), nil
	}
	return taxonomy.Load(c.Taxonomy.File)
}

func newGeocoder(c config.GeocodeConfig) *geocode.Geocoder {
	return geocode.New(
		geocode.WithGoogleAPIKey(c.GoogleAPIKey),
		geocode.WithTimeout(time.Duration(c.TimeoutSecs)*time.Second),
		geocode.WithCacheSize(c.CacheSize),
		geocode.WithBreaker(c.BreakerFailures, time.Duration(c.BreakerResetSecs)*time.Second),
	)
}

func newCrawler(tax *taxonomy.Taxonomy, c config.CrawlConfig, m *monitoring.Metrics) *crawl.Crawler {
	return crawl.New(tax, c, crawl.WithMetrics(m))
}

func newProber(c config.CrawlConfig) *crawl.Prober {
	return crawl.NewProber(nil, c.UserAgent, time.Duration(c.PageTimeoutSecs)*time.Second)
}

// newCopywriter uses Claude when a key is configured and falls back to
// template copy otherwise.
func newCopywriter(c config.AnthropicConfig) marketing.Generator {
	if c.Key == "" {
		zap.L().Debug("marketing: no anthropic key, using template copy")
		return marketing.TemplateGenerator{}
	}
	return marketing.NewAnthropicGenerator(anthropic.NewClient(c.Key), c.Model, c.MaxTokens)
}
