// Package ingest drives clinic records from parsed input files through
// normalization, geocoding, duplicate resolution, slugging, scoring and
// persistence. Records run concurrently inside fixed-size batches; a failed
// record becomes an error entry on the run's ImportResult and never stops
// the batch.
package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/clinic-ingest/internal/config"
	"github.com/sells-group/clinic-ingest/internal/dedupe"
	"github.com/sells-group/clinic-ingest/internal/marketing"
	"github.com/sells-group/clinic-ingest/internal/model"
	"github.com/sells-group/clinic-ingest/internal/monitoring"
	"github.com/sells-group/clinic-ingest/internal/normalize"
	"github.com/sells-group/clinic-ingest/internal/quality"
	"github.com/sells-group/clinic-ingest/internal/resilience"
	"github.com/sells-group/clinic-ingest/internal/slug"
	"github.com/sells-group/clinic-ingest/internal/store"
	"github.com/sells-group/clinic-ingest/internal/taxonomy"
)

// Geocoder resolves a postal address. Implementations never fail; a miss
// is reported through the outcome status.
type Geocoder interface {
	Geocode(ctx context.Context, address, city, state, zip string) model.Outcome[model.GeocodeResult]
}

// Crawler extracts services from a clinic website.
type Crawler interface {
	Crawl(ctx context.Context, website string) model.CrawlResult
}

// Prober checks whether a website answers.
type Prober interface {
	Reachable(ctx context.Context, website string) bool
}

// Options tune batching and retries.
type Options struct {
	BatchSize       int
	RecordDelay     time.Duration
	BatchDelay      time.Duration
	StoreRetryDelay time.Duration
	MaxSlugAttempts int
	MaxSuccessIDs   int
}

// OptionsFromConfig converts the import config section.
func OptionsFromConfig(cfg config.ImportConfig) Options {
	return Options{
		BatchSize:       cfg.BatchSize,
		RecordDelay:     time.Duration(cfg.RecordDelayMs) * time.Millisecond,
		BatchDelay:      time.Duration(cfg.BatchDelayMs) * time.Millisecond,
		StoreRetryDelay: time.Duration(cfg.StoreRetryDelayMs) * time.Millisecond,
		MaxSlugAttempts: cfg.MaxSlugAttempts,
		MaxSuccessIDs:   cfg.MaxSuccessIDs,
	}
}

// Option configures an Importer.
type Option func(*Importer)

// WithCrawler crawls each website during import. Its success flag becomes
// the reachability input to scoring.
func WithCrawler(c Crawler) Option {
	return func(im *Importer) { im.crawler = c }
}

// WithProber checks website reachability when no crawler is set.
func WithProber(p Prober) Option {
	return func(im *Importer) { im.prober = p }
}

// WithMarketing sets the copy generator. The default builds copy from the
// record's own fields.
func WithMarketing(g marketing.Generator) Option {
	return func(im *Importer) { im.copywriter = g }
}

// WithMetrics counts records and geocode outcomes.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(im *Importer) { im.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(im *Importer) { im.now = now }
}

// Importer runs import jobs against one store.
type Importer struct {
	store      store.Store
	normalizer *normalize.Normalizer
	geocoder   Geocoder
	resolver   *dedupe.Resolver
	slugs      *slug.Generator
	scorer     *quality.Scorer
	copywriter marketing.Generator
	crawler    Crawler
	prober     Prober
	metrics    *monitoring.Metrics
	opts       Options
	now        func() time.Time
}

// New creates an Importer.
func New(st store.Store, tax *taxonomy.Taxonomy, geo Geocoder, opts Options, extra ...Option) *Importer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	im := &Importer{
		store:      st,
		normalizer: normalize.New(tax),
		geocoder:   geo,
		resolver:   dedupe.New(st),
		slugs:      slug.New(st, tax, opts.MaxSlugAttempts),
		scorer:     quality.New(tax),
		copywriter: marketing.TemplateGenerator{},
		opts:       opts,
		now:        time.Now,
	}
	for _, opt := range extra {
		opt(im)
	}
	return im
}

// Run imports records and persists the finished ImportResult as a log
// entry. Cancelling ctx stops scheduling further batches; records already
// in flight finish and are counted. The returned error covers only the log
// write; per-record failures live on the result.
func (im *Importer) Run(ctx context.Context, records []model.RawRecord, source string) (*model.ImportResult, error) {
	result := model.NewImportResult(uuid.NewString(), "import", im.opts.MaxSuccessIDs, im.now().UTC())
	result.Source = source
	log := zap.L().With(zap.String("run", result.ID), zap.String("source", source))
	log.Info("import: starting",
		zap.Int("records", len(records)),
		zap.Int("batch_size", im.opts.BatchSize),
	)

	var limiter *rate.Limiter
	if im.opts.RecordDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(im.opts.RecordDelay), 1)
	}
	work := context.WithoutCancel(ctx)

	for start := 0; start < len(records); start += im.opts.BatchSize {
		if start > 0 && !pause(ctx, im.opts.BatchDelay) {
			result.MarkStopped()
			log.Warn("import: stopped before batch", zap.Int("next_row", start+1))
			break
		}
		if ctx.Err() != nil {
			result.MarkStopped()
			log.Warn("import: stopped before batch", zap.Int("next_row", start+1))
			break
		}

		end := min(start+im.opts.BatchSize, len(records))
		var g errgroup.Group
		for i, raw := range records[start:end] {
			row := start + i + 1
			g.Go(func() error {
				if limiter != nil {
					_ = limiter.Wait(work)
				}
				im.runRecord(work, result, row, raw)
				return nil
			})
		}
		_ = g.Wait()

		log.Debug("import: batch complete", zap.Int("first_row", start+1), zap.Int("last_row", end))
	}

	result.Finalize(im.now().UTC())
	snap := result.Snapshot()
	log.Info("import: finished",
		zap.Int("processed", snap.Processed),
		zap.Int("imported", snap.Imported),
		zap.Int("updated", snap.Updated),
		zap.Int("failed", snap.Failed),
		zap.Bool("success", snap.Success),
		zap.Bool("stopped", snap.Stopped),
	)

	if err := im.store.AppendImportLog(work, result); err != nil {
		return result, eris.Wrap(err, "ingest: persist import log")
	}
	return result, nil
}

// runRecord processes one record and folds its outcome into result. A panic
// in any stage is recorded as an internal error for that record only.
func (im *Importer) runRecord(ctx context.Context, result *model.ImportResult, row int, raw model.RawRecord) {
	started := im.now()
	result.RecordProcessed()
	log := zap.L().With(zap.String("run", result.ID), zap.Int("row", row))

	var (
		c       *model.Clinic
		updated bool
		err     error
	)
	func() {
		defer func() {
			if p := recover(); p != nil {
				err = eris.Errorf("ingest: panic: %v", p)
			}
		}()
		c, updated, err = im.Process(ctx, raw, result.ID)
	}()
	im.metrics.ObserveRecord(im.now().Sub(started))

	if err != nil {
		typ := model.ClassifyError(err)
		result.RecordFailure(typ, err.Error(), map[string]any{
			"row":  row,
			"name": raw.String("name"),
		})
		im.metrics.IncRecord(string(typ))
		if typ == model.ErrorDuplicate {
			log.Info("import: duplicate skipped", zap.Error(err))
		} else {
			log.Warn("import: record failed", zap.String("type", string(typ)), zap.Error(err))
		}
		return
	}

	if updated {
		result.RecordUpdated(c.ID)
		im.metrics.IncRecord("updated")
	} else {
		result.RecordImported(c.ID)
		im.metrics.IncRecord("imported")
	}
	log.Debug("import: record stored",
		zap.String("id", c.ID),
		zap.Int("quality", c.QualityScore),
		zap.Strings("tags", c.Tags),
	)
}

// Process runs the full pipeline for one raw record and writes the result.
// The bool reports whether an existing document was updated rather than a
// new one created.
func (im *Importer) Process(ctx context.Context, raw model.RawRecord, runID string) (*model.Clinic, bool, error) {
	c := im.normalizer.Normalize(raw)
	if err := normalize.Validate(c); err != nil {
		return nil, false, err
	}

	prev, err := im.existing(ctx, c)
	if err != nil {
		return nil, false, err
	}
	if prev != nil {
		merged, err := im.update(ctx, prev, c, raw, runID)
		return merged, true, err
	}

	im.geocode(ctx, c)

	verdict, err := im.resolver.Resolve(ctx, c)
	if err != nil {
		return nil, false, err
	}
	if err := dedupe.Error(verdict); err != nil {
		return nil, false, err
	}
	if verdict.IsBranch {
		c.IsBranch = true
		c.AddTag(model.TagBranchLocation)
	}

	s, err := im.slugs.Unique(ctx, c.Name, c.City, c.State, c.IsBranch)
	if err != nil {
		return nil, false, err
	}
	c.Slug = s
	c.ID = s
	c.ImportRunID = runID

	im.scorer.Apply(c, im.inspectWebsite(ctx, c))
	marketing.Apply(ctx, im.copywriter, c)

	if err := im.write(ctx, c); err != nil {
		return nil, false, err
	}
	return c, false, nil
}

// existing loads the stored document the record names by id or slug.
func (im *Importer) existing(ctx context.Context, c *model.Clinic) (*model.Clinic, error) {
	for _, key := range []string{c.ID, c.Slug} {
		if key == "" {
			continue
		}
		prev, err := im.store.Get(ctx, key)
		if err == nil {
			return prev, nil
		}
		if !eris.Is(err, model.ErrNotFound) {
			return nil, eris.Wrapf(err, "ingest: load %s", key)
		}
	}
	return nil, nil
}

// resetTags are recomputed on every update.
var resetTags = append([]string{
	model.TagLowQuality,
	model.TagHighQuality,
	model.TagPotentialDuplicate,
}, normalize.ValidationTags...)

// update overlays the non-empty fields of in onto prev and rescores it.
// Identity, creation time, verification and crawl data are kept.
func (im *Importer) update(ctx context.Context, prev, in *model.Clinic, raw model.RawRecord, runID string) (*model.Clinic, error) {
	m := *prev
	m.Tags = append([]string{}, prev.Tags...)
	hadGaps := false
	for _, t := range normalize.ValidationTags {
		if m.HasTag(t) {
			hadGaps = true
		}
	}
	for _, t := range resetTags {
		m.RemoveTag(t)
	}

	m.Name, m.NameKey = in.Name, in.NameKey
	moved := overlay(&m.Address, in.Address)
	moved = overlay(&m.City, in.City) || moved
	moved = overlay(&m.State, in.State) || moved
	moved = overlay(&m.Zip, in.Zip) || moved
	if in.Phone != "" && in.Phone != model.PhoneInvalid {
		m.Phone = in.Phone
	}
	overlay(&m.Website, in.Website)
	if len(in.Services) > 0 {
		m.Services = in.Services
	}
	if raw.String("tier") != "" {
		m.Tier = in.Tier
	}
	switch {
	case raw.String("status") != "":
		m.Status = normalize.Status(raw.String("status"))
	case hadGaps && m.Status == model.StatusPaused:
		m.Status = model.StatusActive
	}
	normalize.Tag(&m)

	if moved || !m.Geo.Valid() {
		im.geocode(ctx, &m)
	}
	im.scorer.Apply(&m, im.inspectWebsite(ctx, &m))
	if m.Marketing.Placeholder || m.Marketing.Headline == "" {
		m.RemoveTag(model.TagNeedsReview)
		marketing.Apply(ctx, im.copywriter, &m)
	}

	m.ImportRunID = runID
	m.UpdatedAt = im.now().UTC()
	if err := im.write(ctx, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func overlay(dst *string, v string) bool {
	if v == "" || v == *dst {
		return false
	}
	*dst = v
	return true
}

func (im *Importer) geocode(ctx context.Context, c *model.Clinic) {
	out := im.geocoder.Geocode(ctx, c.Address, c.City, c.State, c.Zip)
	c.Geo = out.Value
	im.metrics.IncGeocode(string(c.Geo.Accuracy))
	if !out.IsOK() {
		zap.L().Debug("import: geocode degraded",
			zap.String("name", c.Name),
			zap.String("status", string(out.Status)),
			zap.String("reason", out.Reason),
		)
	}
}

// inspectWebsite reports reachability, crawling the site when a crawler is
// configured and storing what it found.
func (im *Importer) inspectWebsite(ctx context.Context, c *model.Clinic) bool {
	if c.Website == "" {
		return false
	}
	if im.crawler != nil {
		res := im.crawler.Crawl(ctx, c.Website)
		ApplyCrawl(c, res)
		return res.Success
	}
	if im.prober != nil {
		return im.prober.Reachable(ctx, c.Website)
	}
	return false
}

// ApplyCrawl stores a crawl result on c. Failed crawls only stamp the time
// so earlier results survive an outage.
func ApplyCrawl(c *model.Clinic, res model.CrawlResult) {
	at := res.CrawledAt
	c.LastCrawledAt = &at
	if !res.Success {
		return
	}
	c.ScrapedServices = res.Services
	signals := res.Signals
	c.Signals = &signals
}

// write persists c, retrying once after the configured delay.
func (im *Importer) write(ctx context.Context, c *model.Clinic) error {
	retry := resilience.RetryOnce(im.opts.StoreRetryDelay)
	retry.OnRetry = resilience.RetryLogger("store write", zap.String("id", c.ID))
	err := resilience.Do(ctx, retry, func(ctx context.Context) error {
		return im.store.Put(ctx, c)
	})
	if err != nil {
		return &model.StoreWriteError{Key: c.ID, Err: err}
	}
	return nil
}

// pause waits d between batches. It reports false when ctx ends first.
func pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
