package ingest

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/clinic-ingest/internal/model"
	"github.com/sells-group/clinic-ingest/internal/store"
)

// CrawlStored crawls the website of the stored clinic id and writes the
// extracted services and signals back onto its document.
func CrawlStored(ctx context.Context, st store.Store, cr Crawler, id string) (*model.Clinic, model.CrawlResult, error) {
	c, err := st.Get(ctx, id)
	if err != nil {
		return nil, model.CrawlResult{}, err
	}
	if c.Website == "" {
		return c, model.CrawlResult{}, eris.Errorf("ingest: clinic %s has no website", id)
	}

	res := cr.Crawl(ctx, c.Website)
	ApplyCrawl(c, res)
	c.UpdatedAt = time.Now().UTC()
	if err := st.Put(ctx, c); err != nil {
		return c, res, eris.Wrapf(err, "ingest: store crawl for %s", id)
	}
	return c, res, nil
}
