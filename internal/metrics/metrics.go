// Package metrics exposes Prometheus instruments for ingestion, geocoding and
// nearby queries. All methods are safe on a nil *Metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the donor registry.
type Metrics struct {
	// Ingest row outcomes: inserted, invalid_name, invalid_mobile, duplicate, batch_duplicate, empty
	RowOutcome *prometheus.CounterVec

	// Location source per resolved row: geocoder, fallback
	LocationSource *prometheus.CounterVec

	// Geocoder round-trip latency by result: ok, empty, error, open
	GeocodeLatency *prometheus.HistogramVec

	// Geocode cache lookups by result: hit, miss
	GeocodeCache *prometheus.CounterVec

	// Nearby query outcomes: ok, empty, error
	NearbyQueries *prometheus.CounterVec

	NearbyLatency prometheus.Histogram
}

// New registers all instruments on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		RowOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodbuddy_ingest_rows_total",
			Help: "Ingested spreadsheet rows by outcome",
		}, []string{"outcome"}),

		LocationSource: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodbuddy_location_source_total",
			Help: "Resolved donor locations by source",
		}, []string{"source"}),

		GeocodeLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bloodbuddy_geocode_duration_seconds",
			Help:    "Duration of geocoder calls by result",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
		}, []string{"result"}),

		GeocodeCache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodbuddy_geocode_cache_total",
			Help: "Geocode cache lookups by result",
		}, []string{"result"}),

		NearbyQueries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodbuddy_nearby_queries_total",
			Help: "Nearby donor queries by outcome",
		}, []string{"outcome"}),

		NearbyLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bloodbuddy_nearby_duration_seconds",
			Help:    "Duration of nearby donor queries including the store scan",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncRow records one ingest row outcome.
func (m *Metrics) IncRow(outcome string) {
	if m != nil {
		m.RowOutcome.WithLabelValues(outcome).Inc()
	}
}

// IncLocation records where a donor location came from.
func (m *Metrics) IncLocation(source string) {
	if m != nil {
		m.LocationSource.WithLabelValues(source).Inc()
	}
}

// ObserveGeocode records a geocoder call.
func (m *Metrics) ObserveGeocode(result string, d time.Duration) {
	if m != nil {
		m.GeocodeLatency.WithLabelValues(result).Observe(d.Seconds())
	}
}

// IncCache records a geocode cache lookup.
func (m *Metrics) IncCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.GeocodeCache.WithLabelValues(result).Inc()
}

// ObserveNearby records a nearby query.
func (m *Metrics) ObserveNearby(outcome string, d time.Duration) {
	if m != nil {
		m.NearbyQueries.WithLabelValues(outcome).Inc()
		m.NearbyLatency.Observe(d.Seconds())
	}
}
