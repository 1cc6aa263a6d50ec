package geo

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bloodbuddy/donor-cli/internal/metrics"
	"github.com/bloodbuddy/donor-cli/internal/resilience"
	"github.com/bloodbuddy/donor-cli/internal/validate"
	"github.com/bloodbuddy/donor-cli/pkg/geocode"
)

func newTestResolver(client geocode.Client, opts ...ResolverOption) (*Resolver, *[]time.Duration) {
	opts = append([]ResolverOption{WithRand(rand.New(rand.NewPCG(1, 1)))}, opts...)
	r := NewResolver(client, Amravati, ResolverConfig{
		Qualifier: "Maharashtra, India",
		Timeout:   time.Second,
		PostDelay: time.Second,
	}, opts...)
	var slept []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) { slept = append(slept, d) }
	return r, &slept
}

func assertFallback(t *testing.T, loc Location) {
	t.Helper()
	assert.Equal(t, SourceFallback, loc.Source)
	assert.Equal(t, "Amravati", loc.City)
	assert.True(t, validate.ValidCoordinate(loc.Latitude, loc.Longitude))
	assert.True(t, loc.Latitude >= Amravati.MinLat && loc.Latitude <= Amravati.MaxLat)
	assert.True(t, loc.Longitude >= Amravati.MinLon && loc.Longitude <= Amravati.MaxLon)
}

func TestResolve_Geocoded(t *testing.T) {
	gc := new(mockGeocoder)
	gc.On("Search", mock.Anything, "Camp Road, Amravati, Maharashtra, India").
		Return([]geocode.Candidate{{Latitude: 20.93, Longitude: 77.75}, {Latitude: 1, Longitude: 1}}, nil)

	r, slept := newTestResolver(gc)
	loc := r.Resolve(context.Background(), "  Camp Road, Amravati ")

	assert.Equal(t, SourceGeocoder, loc.Source)
	assert.Equal(t, 20.93, loc.Latitude)
	assert.Equal(t, 77.75, loc.Longitude)
	assert.Equal(t, "Camp Road, Amravati", loc.City)
	assert.Equal(t, []time.Duration{time.Second}, *slept)
	gc.AssertExpectations(t)
}

func TestResolve_EmptyAddressSkipsGeocoder(t *testing.T) {
	gc := new(mockGeocoder)
	r, slept := newTestResolver(gc)

	assertFallback(t, r.Resolve(context.Background(), "   "))
	assert.Empty(t, *slept)
	gc.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestResolve_NoCandidates(t *testing.T) {
	gc := new(mockGeocoder)
	gc.On("Search", mock.Anything, mock.Anything).Return([]geocode.Candidate{}, nil)

	r, slept := newTestResolver(gc)
	assertFallback(t, r.Resolve(context.Background(), "Nowhere Lane"))
	assert.Empty(t, *slept, "fallback path never sleeps")
}

func TestResolve_ClientError(t *testing.T) {
	gc := new(mockGeocoder)
	gc.On("Search", mock.Anything, mock.Anything).Return(nil, errors.New("geocode: nominatim returned status 503"))

	r, slept := newTestResolver(gc)
	assertFallback(t, r.Resolve(context.Background(), "Rajapeth"))
	assert.Empty(t, *slept)
}

func TestResolve_NilClient(t *testing.T) {
	r, _ := newTestResolver(nil)
	assertFallback(t, r.Resolve(context.Background(), "Rajapeth"))
}

func TestResolve_TimeoutBoundsCall(t *testing.T) {
	gc := new(mockGeocoder)
	gc.On("Search", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)

	r := NewResolver(gc, Amravati, ResolverConfig{Timeout: 20 * time.Millisecond})
	start := time.Now()
	loc := r.Resolve(context.Background(), "Slow Street")
	assert.Equal(t, SourceFallback, loc.Source)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestResolve_BreakerOpensAndSkipsGeocoder(t *testing.T) {
	gc := new(mockGeocoder)
	gc.On("Search", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused")).Times(2)

	breaker := resilience.NewBreaker(resilience.BreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour})
	r, _ := newTestResolver(gc, WithBreaker(breaker))

	for _, addr := range []string{"a street", "b street", "c street", "d street"} {
		assertFallback(t, r.Resolve(context.Background(), addr))
	}
	assert.Equal(t, resilience.Open, breaker.State())
	gc.AssertNumberOfCalls(t, "Search", 2)
}

func TestResolve_CacheHitSkipsNetworkAndDelay(t *testing.T) {
	gc := new(mockGeocoder)
	gc.On("Search", mock.Anything, mock.Anything).
		Return([]geocode.Candidate{{Latitude: 20.95, Longitude: 77.76}}, nil).Once()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	r, slept := newTestResolver(gc, WithCache(geocode.NewCache(time.Minute)), WithMetrics(m))

	first := r.Resolve(context.Background(), "Badnera Road")
	second := r.Resolve(context.Background(), "badnera   road")

	assert.Equal(t, SourceGeocoder, first.Source)
	assert.Equal(t, SourceGeocoder, second.Source)
	assert.Equal(t, first.Latitude, second.Latitude)
	assert.Len(t, *slept, 1)
	gc.AssertNumberOfCalls(t, "Search", 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.GeocodeCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GeocodeCache.WithLabelValues("miss")))
}

func TestResolve_ErrorsAreNotCached(t *testing.T) {
	gc := new(mockGeocoder)
	gc.On("Search", mock.Anything, mock.Anything).Return(nil, errors.New("boom")).Once()
	gc.On("Search", mock.Anything, mock.Anything).
		Return([]geocode.Candidate{{Latitude: 20.95, Longitude: 77.76}}, nil).Once()

	r, _ := newTestResolver(gc, WithCache(geocode.NewCache(time.Minute)))

	assert.Equal(t, SourceFallback, r.Resolve(context.Background(), "Camp").Source)
	assert.Equal(t, SourceGeocoder, r.Resolve(context.Background(), "Camp").Source)
}

func TestSleepCtx_HonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	sleepCtx(ctx, time.Hour)
	assert.Less(t, time.Since(start), time.Second)
}

func TestResolver_FallbackAlwaysValid(t *testing.T) {
	r := NewResolver(nil, Amravati, ResolverConfig{})
	for range 200 {
		loc := r.Fallback()
		require.True(t, validate.ValidCoordinate(loc.Latitude, loc.Longitude))
	}
}
