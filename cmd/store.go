package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bloodbuddy/donor-cli/internal/config"
	"github.com/bloodbuddy/donor-cli/internal/db"
	"github.com/bloodbuddy/donor-cli/internal/geo"
	"github.com/bloodbuddy/donor-cli/internal/metrics"
	"github.com/bloodbuddy/donor-cli/internal/resilience"
	"github.com/bloodbuddy/donor-cli/internal/store"
	"github.com/bloodbuddy/donor-cli/pkg/geocode"
)

const defaultSQLitePath = "bloodbuddy.db"

// initStore opens the configured store and applies its schema. Connecting to
// a remote database is retried while the error looks transient.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	var st store.Store
	err := resilience.Do(ctx, resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		ShouldRetry:    func(err error) bool { return c.Store.Driver != "sqlite" && resilience.IsTransient(err) },
		OnRetry:        resilience.RetryLogger("store connect"),
	}, func(ctx context.Context) error {
		var err error
		st, err = openStore(ctx, c.Store)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	zap.L().Debug("store ready", zap.String("driver", c.Store.Driver))
	return st, nil
}

func openStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case "sqlite":
		dsn := sc.DatabaseURL
		if dsn == "" {
			dsn = defaultSQLitePath
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, sc.DatabaseURL, &db.PoolConfig{MaxConns: sc.MaxConns, MinConns: sc.MinConns})
	case "mongo":
		return store.NewMongo(ctx, sc.DatabaseURL, sc.Database, sc.Collection)
	case "memory":
		return store.NewMemory(), nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}
}

// newResolver builds the address resolver. With geocoding disabled every
// donor gets a point in the fallback region.
func newResolver(c *config.Config, m *metrics.Metrics) *geo.Resolver {
	var client geocode.Client
	if !c.Geocode.Disabled {
		client = geocode.NewClient(
			geocode.WithBaseURL(c.Geocode.BaseURL),
			geocode.WithUserAgent(c.Geocode.UserAgent),
			geocode.WithRateLimit(c.Geocode.RatePerSec),
		)
	}

	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		FailureThreshold: c.Geocode.BreakerThreshold,
		ResetTimeout:     c.Geocode.BreakerReset(),
		OnStateChange: func(from, to resilience.State) {
			zap.L().Warn("geocoder circuit breaker",
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
	})

	opts := []geo.ResolverOption{geo.WithBreaker(breaker), geo.WithMetrics(m)}
	if ttl := c.Geocode.CacheTTL(); ttl > 0 {
		opts = append(opts, geo.WithCache(geocode.NewCache(ttl)))
	}

	return geo.NewResolver(client, c.Fallback, geo.ResolverConfig{
		Qualifier: c.Geocode.Qualifier,
		Timeout:   c.Geocode.Timeout(),
		PostDelay: c.Geocode.PostDelay(),
	}, opts...)
}
