package crawl

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Prober answers whether a website responds at all. It is the cheap
// reachability check used for scoring when no full crawl runs.
type Prober struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

// NewProber builds a Prober. A nil client gets the crawler's default.
func NewProber(client *http.Client, userAgent string, timeout time.Duration) *Prober {
	if client == nil {
		client = defaultHTTPClient()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Prober{client: client, userAgent: userAgent, timeout: timeout}
}

// Reachable tries HEAD and, when that fails or is refused, GET. Any status
// below 400 counts as reachable.
func (p *Prober) Reachable(ctx context.Context, website string) bool {
	u, err := normalizeURL(website)
	if err != nil {
		return false
	}
	target := u.String()

	if p.try(ctx, http.MethodHead, target) {
		return true
	}
	ok := p.try(ctx, http.MethodGet, target)
	if !ok {
		zap.L().Debug("crawl: website unreachable", zap.String("url", target))
	}
	return ok
}

func (p *Prober) try(ctx context.Context, method, target string) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode < 400
}
