// Package crawl extracts the services a clinic advertises on its website.
// It fetches the homepage plus a bounded set of same-site candidate pages,
// scans structured text blocks against the service taxonomy and merges the
// hits into one confidence-ranked entry per category.
package crawl

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/clinic-ingest/internal/config"
	"github.com/sells-group/clinic-ingest/internal/model"
	"github.com/sells-group/clinic-ingest/internal/monitoring"
	"github.com/sells-group/clinic-ingest/internal/taxonomy"
)

var skipExtensions = map[string]bool{
	".pdf": true, ".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".svg": true, ".webp": true, ".zip": true, ".mp4": true, ".doc": true, ".docx": true,
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithHTTPClient sets the client used for page fetches.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Crawler) {
		c.client = hc
	}
}

// WithMetrics counts fetched pages.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(c *Crawler) {
		c.metrics = m
	}
}

// Crawler runs service-extraction crawls. It is safe for concurrent use.
type Crawler struct {
	tax           *taxonomy.Taxonomy
	fetcher       *Fetcher
	matcher       *PathMatcher
	client        *http.Client
	metrics       *monitoring.Metrics
	maxCandidates int
	concurrency   int
	pageTimeout   time.Duration
	now           func() time.Time
}

// New builds a Crawler from the crawl config.
func New(tax *taxonomy.Taxonomy, cfg config.CrawlConfig, opts ...Option) *Crawler {
	c := &Crawler{
		tax:           tax,
		matcher:       NewPathMatcher(cfg.ExcludePaths),
		maxCandidates: cfg.MaxCandidates,
		concurrency:   cfg.Concurrency,
		pageTimeout:   time.Duration(cfg.PageTimeoutSecs) * time.Second,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxCandidates <= 0 {
		c.maxCandidates = 10
	}
	if c.concurrency <= 0 {
		c.concurrency = 4
	}
	if c.pageTimeout <= 0 {
		c.pageTimeout = 10 * time.Second
	}
	c.fetcher = NewFetcher(c.client, cfg.UserAgent, int64(cfg.MaxBodyKB)*1024, cfg.CacheSize)
	return c
}

// Crawl never fails: an unreachable homepage yields Success=false with an
// empty service list, and failed candidate pages only add to PagesFailed.
func (c *Crawler) Crawl(ctx context.Context, website string) model.CrawlResult {
	res := model.CrawlResult{
		Website:   website,
		Services:  []model.ScrapedService{},
		CrawledAt: c.now().UTC(),
	}
	log := zap.L().With(zap.String("website", website))

	home, err := normalizeURL(website)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Website = home.String()

	page, doc, err := c.load(ctx, home.String())
	if err != nil {
		log.Warn("crawl: homepage unreachable", zap.Error(err))
		res.Error = err.Error()
		res.PagesFailed = 1
		return res
	}
	res.Success = true
	res.PagesCrawled = 1

	x := extractor{tax: c.tax}
	candidates := c.candidates(doc, home)

	perPage := make([][]occurrence, len(candidates)+1)
	texts := make([]string, len(candidates)+1)
	failed := make([]bool, len(candidates)+1)
	perPage[0], texts[0] = x.page(doc, page.URL)

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, link := range candidates {
		g.Go(func() error {
			p, d, err := c.load(ctx, link)
			if err == nil && !landedOnSite(p.URL, home, page.URL) {
				err = eris.Errorf("crawl: %s redirected off site to %s", link, p.URL)
			}
			if err != nil {
				log.Debug("crawl: page skipped", zap.String("url", link), zap.Error(err))
				failed[i+1] = true
				return nil
			}
			perPage[i+1], texts[i+1] = x.page(d, p.URL)
			return nil
		})
	}
	_ = g.Wait()

	var all []occurrence
	for i := 1; i < len(perPage); i++ {
		if failed[i] {
			res.PagesFailed++
		} else {
			res.PagesCrawled++
		}
	}
	for _, occ := range perPage {
		all = append(all, occ...)
	}

	res.Services = merge(all)
	res.Signals = x.signals(texts)

	log.Debug("crawl: complete",
		zap.Int("pages", res.PagesCrawled),
		zap.Int("failed", res.PagesFailed),
		zap.Int("services", len(res.Services)),
	)
	return res
}

// load fetches and parses one page under the per-page timeout.
func (c *Crawler) load(ctx context.Context, rawURL string) (*Page, *goquery.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, c.pageTimeout)
	defer cancel()

	p, err := c.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		c.metrics.IncCrawlPage("failed")
		return nil, nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		c.metrics.IncCrawlPage("failed")
		return nil, nil, eris.Wrapf(err, "crawl: parse %s", rawURL)
	}
	c.metrics.IncCrawlPage("ok")
	return p, doc, nil
}

// candidates picks same-site links whose anchor text or path mentions a
// service keyword or an indicator phrase, in document order.
func (c *Crawler) candidates(doc *goquery.Document, home *url.URL) []string {
	seen := map[string]bool{home.String(): true}
	var out []string

	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if len(out) >= c.maxCandidates {
			return false
		}
		u := resolveLink(home, a.AttrOr("href", ""))
		if u == nil || !sameSite(u, home) || c.matcher.Excluded(u) {
			return true
		}
		if skipExtensions[strings.ToLower(path.Ext(u.Path))] {
			return true
		}
		key := u.String()
		if seen[key] {
			return true
		}

		label := strings.ToLower(collapse(a.Text()) + " " + pathWords(u.Path))
		if !c.tax.ContainsKeyword(label) && !taxonomy.ContainsAny(label, c.tax.IndicatorPhrases) {
			return true
		}
		seen[key] = true
		out = append(out, key)
		return true
	})
	return out
}

func resolveLink(base *url.URL, href string) *url.URL {
	href = strings.TrimSpace(href)
	lower := strings.ToLower(href)
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(lower, "javascript:") ||
		strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "tel:") {
		return nil
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil
	}
	u := base.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil
	}
	u.Fragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u
}

// pathWords turns "/mens-health/low_t" into "mens health low t".
func pathWords(p string) string {
	return strings.Join(strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == '-' || r == '_' || r == '.'
	}), " ")
}
