package crawl

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotisserie/eris"
)

// Page is a fetched HTML document.
type Page struct {
	URL    string
	Status int
	Body   []byte
}

// Fetcher GETs pages with a fixed user agent and body cap, remembering
// successful pages in an LRU so a probe and a crawl of the same site do not
// fetch the homepage twice.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBody   int64
	cache     *lru.Cache[string, *Page]
}

// NewFetcher builds a Fetcher. cacheSize <= 0 disables the page cache.
func NewFetcher(client *http.Client, userAgent string, maxBody int64, cacheSize int) *Fetcher {
	if client == nil {
		client = defaultHTTPClient()
	}
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	f := &Fetcher{client: client, userAgent: userAgent, maxBody: maxBody}
	if cacheSize > 0 {
		if c, err := lru.New[string, *Page](cacheSize); err == nil {
			f.cache = c
		}
	}
	return f
}

func defaultHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 15 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: 10 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

// Fetch GETs rawURL. Blocked, error-status and transport failures are
// returned as errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if f.cache != nil {
		if p, ok := f.cache.Get(rawURL); ok {
			return p, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "crawl: create request")
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "crawl: fetch %s", rawURL)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return nil, eris.Wrapf(err, "crawl: read %s", rawURL)
	}

	if reason := blockReason(resp, body); reason != "" {
		return nil, eris.Errorf("crawl: %s blocked (%s)", rawURL, reason)
	}
	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("crawl: %s returned status %d", rawURL, resp.StatusCode)
	}

	p := &Page{URL: resp.Request.URL.String(), Status: resp.StatusCode, Body: body}
	if f.cache != nil {
		f.cache.Add(rawURL, p)
	}
	return p, nil
}

// normalizeURL adds a scheme when missing and a root path when empty.
func normalizeURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, eris.New("crawl: empty url")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, eris.Wrap(err, "crawl: parse url")
	}
	if u.Host == "" {
		return nil, eris.Errorf("crawl: no host in %q", raw)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	u.Fragment = ""
	return u, nil
}

// sameSite compares hosts ignoring case and a leading "www.".
func sameSite(a, b *url.URL) bool {
	strip := func(h string) string {
		return strings.TrimPrefix(strings.ToLower(h), "www.")
	}
	return strip(a.Hostname()) == strip(b.Hostname())
}

// landedOnSite reports whether a fetched page's final URL, after redirects,
// is on the same site as the requested homepage or the URL the homepage
// itself resolved to.
func landedOnSite(finalURL string, home *url.URL, homeFinal string) bool {
	u, err := url.Parse(finalURL)
	if err != nil || u.Host == "" {
		return false
	}
	if sameSite(u, home) {
		return true
	}
	if hf, err := url.Parse(homeFinal); err == nil && hf.Host != "" {
		return sameSite(u, hf)
	}
	return false
}
