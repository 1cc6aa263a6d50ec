package geo

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bloodbuddy/donor-cli/internal/metrics"
	"github.com/bloodbuddy/donor-cli/internal/resilience"
	"github.com/bloodbuddy/donor-cli/pkg/geocode"
)

// Source tells where a Location came from.
type Source string

const (
	SourceGeocoder Source = "geocoder"
	SourceFallback Source = "fallback"
)

// Location is a resolved donor position.
type Location struct {
	Latitude  float64
	Longitude float64
	City      string
	Source    Source
}

// ResolverConfig holds the resolver's timing and query settings.
type ResolverConfig struct {
	// Qualifier is appended to every address, e.g. "Maharashtra, India".
	Qualifier string
	// Timeout bounds a single geocoder call. Default 8s.
	Timeout time.Duration
	// PostDelay is slept after each successful network resolution.
	PostDelay time.Duration
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithCache reuses results for repeated addresses. Cache hits skip the post delay.
func WithCache(c *geocode.Cache) ResolverOption {
	return func(r *Resolver) { r.cache = c }
}

// WithBreaker replaces the default circuit breaker around the geocoder.
func WithBreaker(b *resilience.Breaker) ResolverOption {
	return func(r *Resolver) {
		if b != nil {
			r.breaker = b
		}
	}
}

// WithMetrics records geocoder latency and cache lookups.
func WithMetrics(m *metrics.Metrics) ResolverOption {
	return func(r *Resolver) { r.metrics = m }
}

// WithRand makes fallback sampling deterministic.
func WithRand(rng *rand.Rand) ResolverOption {
	return func(r *Resolver) { r.rng = rng }
}

// Resolver turns an address into a Location. It never fails: anything that
// goes wrong with the geocoder degrades to a point in the fallback region.
type Resolver struct {
	client  geocode.Client
	cache   *geocode.Cache
	breaker *resilience.Breaker
	region  Region
	cfg     ResolverConfig
	metrics *metrics.Metrics

	mu  sync.Mutex
	rng *rand.Rand

	sleep func(ctx context.Context, d time.Duration)
}

// NewResolver creates a Resolver. A nil client disables geocoding entirely.
func NewResolver(client geocode.Client, region Region, cfg ResolverConfig, opts ...ResolverOption) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	r := &Resolver{
		client:  client,
		region:  region,
		cfg:     cfg,
		breaker: resilience.NewBreaker(resilience.BreakerConfig{}),
		sleep:   sleepCtx,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Region returns the fallback box.
func (r *Resolver) Region() Region {
	return r.region
}

// Resolve geocodes address, falling back to a random point in the region.
func (r *Resolver) Resolve(ctx context.Context, address string) Location {
	address = strings.TrimSpace(address)
	if address == "" || r.client == nil {
		return r.Fallback()
	}

	query := address
	if r.cfg.Qualifier != "" {
		query = address + ", " + r.cfg.Qualifier
	}

	candidates, cached := r.cache.Get(query)
	if r.cache != nil {
		r.metrics.IncCache(cached)
	}
	if !cached {
		var err error
		candidates, err = r.search(ctx, query)
		if err != nil {
			lvl := zap.DebugLevel
			if errors.Is(err, resilience.ErrOpen) {
				lvl = zap.WarnLevel
			}
			zap.L().Log(lvl, "geo: geocode failed, using fallback",
				zap.String("address", address),
				zap.Error(err),
			)
			return r.Fallback()
		}
		r.cache.Set(query, candidates)
	}

	if len(candidates) == 0 {
		zap.L().Debug("geo: no geocode match, using fallback", zap.String("address", address))
		return r.Fallback()
	}

	best := candidates[0]
	if !cached {
		r.sleep(ctx, r.cfg.PostDelay)
	}
	return Location{
		Latitude:  best.Latitude,
		Longitude: best.Longitude,
		City:      address,
		Source:    SourceGeocoder,
	}
}

// Fallback samples a point in the region.
func (r *Resolver) Fallback() Location {
	r.mu.Lock()
	lat, lon := r.region.Sample(r.rng)
	r.mu.Unlock()
	return Location{Latitude: lat, Longitude: lon, City: r.region.Name, Source: SourceFallback}
}

func (r *Resolver) search(ctx context.Context, query string) ([]geocode.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	start := time.Now()
	candidates, err := resilience.Execute(ctx, r.breaker, func(ctx context.Context) ([]geocode.Candidate, error) {
		return r.client.Search(ctx, query)
	})

	result := "ok"
	switch {
	case errors.Is(err, resilience.ErrOpen):
		result = "open"
	case err != nil:
		result = "error"
	case len(candidates) == 0:
		result = "empty"
	}
	r.metrics.ObserveGeocode(result, time.Since(start))
	return candidates, err
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
