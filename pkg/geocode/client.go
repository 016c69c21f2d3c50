// Package geocode turns postal addresses into coordinates. Google is the
// primary provider when a key is configured; the Census geocoder is the
// no-credential fallback.
package geocode

import (
	"context"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/sells-group/clinic-ingest/internal/model"
	"github.com/sells-group/clinic-ingest/internal/resilience"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultCacheSize = 1024
)

// Option configures the Geocoder.
type Option func(*Geocoder)

// WithGoogleAPIKey enables Google as the primary provider.
func WithGoogleAPIKey(key string) Option {
	return func(g *Geocoder) {
		g.googleKey = key
	}
}

// WithHTTPClient sets the HTTP client used by both providers.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *Geocoder) {
		g.httpClient = hc
	}
}

// WithTimeout bounds each provider call.
func WithTimeout(d time.Duration) Option {
	return func(g *Geocoder) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithCacheSize sets the result cache size. Zero or less disables caching.
func WithCacheSize(n int) Option {
	return func(g *Geocoder) {
		g.cacheSize = n
	}
}

// WithBreaker configures the circuit breaker around the primary provider.
func WithBreaker(failures int, reset time.Duration) Option {
	return func(g *Geocoder) {
		g.breakerFailures = failures
		g.breakerReset = reset
	}
}

// WithProviders replaces the provider chain. primary may be nil.
func WithProviders(primary, fallback Provider) Option {
	return func(g *Geocoder) {
		g.primary = primary
		g.fallback = fallback
	}
}

// Geocoder is the adapter the import pipeline calls. It never returns an
// error: a total failure is a Failed outcome holding (0,0).
type Geocoder struct {
	primary  Provider
	fallback Provider
	breaker  *resilience.CircuitBreaker
	cache    *lru.Cache[string, model.GeocodeResult]

	httpClient      *http.Client
	googleKey       string
	timeout         time.Duration
	cacheSize       int
	breakerFailures int
	breakerReset    time.Duration
}

// New builds a Geocoder. Callers throttle between calls; the adapter does
// not rate limit.
func New(opts ...Option) *Geocoder {
	g := &Geocoder{
		timeout:   defaultTimeout,
		cacheSize: defaultCacheSize,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.httpClient == nil {
		g.httpClient = &http.Client{Timeout: g.timeout}
	}
	if g.primary == nil && g.fallback == nil {
		if g.googleKey != "" {
			g.primary = NewGoogleProvider(g.googleKey, g.httpClient)
		}
		g.fallback = NewCensusProvider(g.httpClient)
	}
	if g.cacheSize > 0 {
		c, err := lru.New[string, model.GeocodeResult](g.cacheSize)
		if err == nil {
			g.cache = c
		}
	}
	g.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: g.breakerFailures,
		ResetTimeout:     g.breakerReset,
		ShouldTrip:       resilience.IsTransient,
		OnStateChange: func(from, to resilience.CircuitState) {
			zap.L().Warn("geocode: primary breaker state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return g
}

// Geocode resolves an address. The outcome is Ok when the first provider
// tried matched, Degraded when only the fallback matched after the primary
// failed, and Failed with a zero coordinate otherwise.
func (g *Geocoder) Geocode(ctx context.Context, address, city, state, zip string) model.Outcome[model.GeocodeResult] {
	oneLine := FormatOneLine(address, city, state, zip)
	if oneLine == "" {
		return model.Failed(model.FailedGeocode(), "empty address")
	}

	key := strings.ToLower(oneLine)
	if g.cache != nil {
		if res, ok := g.cache.Get(key); ok {
			return model.Ok(res)
		}
	}

	log := zap.L().With(zap.String("address", oneLine))

	var primaryErr error
	if g.primary != nil {
		res, err := resilience.ExecuteVal(ctx, g.breaker, func(ctx context.Context) (model.GeocodeResult, error) {
			return g.call(ctx, g.primary, oneLine)
		})
		if err == nil {
			g.remember(key, res)
			return model.Ok(res)
		}
		primaryErr = err
		log.Debug("geocode: primary failed, trying fallback",
			zap.String("provider", g.primary.Name()), zap.Error(err))
	}

	if g.fallback != nil {
		res, err := g.call(ctx, g.fallback, oneLine)
		if err == nil {
			g.remember(key, res)
			if primaryErr != nil {
				return model.Degraded(res, g.primary.Name()+": "+primaryErr.Error())
			}
			return model.Ok(res)
		}
		log.Warn("geocode: no provider matched",
			zap.String("provider", g.fallback.Name()), zap.Error(err))
		return model.Failed(model.FailedGeocode(), err.Error())
	}

	reason := "no provider configured"
	if primaryErr != nil {
		reason = primaryErr.Error()
	}
	return model.Failed(model.FailedGeocode(), reason)
}

func (g *Geocoder) call(ctx context.Context, p Provider, oneLine string) (model.GeocodeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return p.Geocode(ctx, oneLine)
}

func (g *Geocoder) remember(key string, res model.GeocodeResult) {
	if g.cache != nil {
		g.cache.Add(key, res)
	}
}
