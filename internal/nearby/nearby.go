// Package nearby ranks registered donors by great-circle distance from a
// query point.
package nearby

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/bloodbuddy/donor-cli/internal/geo"
	"github.com/bloodbuddy/donor-cli/internal/metrics"
	"github.com/bloodbuddy/donor-cli/internal/model"
	"github.com/bloodbuddy/donor-cli/internal/store"
)

// DefaultLimit applies when a query leaves Limit unset.
const DefaultLimit = 10

var (
	// ErrNoDonors means no donor matched the blood group filter.
	ErrNoDonors = eris.New("nearby: no donors found")
	// ErrNegativeLimit rejects a Limit below zero.
	ErrNegativeLimit = eris.New("nearby: limit must not be negative")
)

// Query describes a proximity search.
type Query struct {
	Latitude   float64
	Longitude  float64
	BloodGroup string
	// Limit caps the result. Nil means DefaultLimit; zero returns an empty page.
	Limit *int
}

// LimitPtr returns a pointer to n for use as Query.Limit.
func LimitPtr(n int) *int {
	return &n
}

// DonorDistance is a donor annotated with its distance from the query point.
type DonorDistance struct {
	model.Donor
	DistanceKM float64 `json:"distance_km"`
}

// Result is the ranked answer to a Query.
type Result struct {
	Count  int             `json:"count"`
	Donors []DonorDistance `json:"donors"`
}

// Engine answers proximity queries against a Store.
type Engine struct {
	store   store.Store
	metrics *metrics.Metrics
}

// NewEngine creates an Engine. m may be nil.
func NewEngine(st store.Store, m *metrics.Metrics) *Engine {
	return &Engine{store: st, metrics: m}
}

// Nearby scans every donor, keeps those matching q.BloodGroup (all donors
// when empty) and returns the closest q.Limit in ascending distance. Ties
// keep store order.
func (e *Engine) Nearby(ctx context.Context, q Query) (*Result, error) {
	start := time.Now()
	limit := DefaultLimit
	if q.Limit != nil {
		if *q.Limit < 0 {
			return nil, ErrNegativeLimit
		}
		limit = *q.Limit
	}

	donors, err := e.store.ListDonors(ctx)
	if err != nil {
		e.metrics.ObserveNearby("error", time.Since(start))
		return nil, eris.Wrap(err, "nearby: list donors")
	}

	ranked := make([]DonorDistance, 0, len(donors))
	for _, d := range donors {
		if q.BloodGroup != "" && d.Group() != q.BloodGroup {
			continue
		}
		km := geo.HaversineKM(q.Latitude, q.Longitude, d.Latitude, d.Longitude)
		ranked = append(ranked, DonorDistance{Donor: d, DistanceKM: geo.RoundKM(km)})
	}
	if len(ranked) == 0 {
		e.metrics.ObserveNearby("empty", time.Since(start))
		return nil, ErrNoDonors
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceKM < ranked[j].DistanceKM
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	e.metrics.ObserveNearby("ok", time.Since(start))
	zap.L().Debug("nearby: query answered",
		zap.Float64("lat", q.Latitude),
		zap.Float64("lon", q.Longitude),
		zap.String("blood_group", q.BloodGroup),
		zap.Int("count", len(ranked)),
	)
	return &Result{Count: len(ranked), Donors: ranked}, nil
}

// GeoJSON renders the result as a FeatureCollection for map display.
func (r *Result) GeoJSON() *geojson.FeatureCollection {
	points := make([]geo.Point, 0, len(r.Donors))
	for _, d := range r.Donors {
		points = append(points, geo.Point{
			ID:        d.ID,
			Latitude:  d.Latitude,
			Longitude: d.Longitude,
			Properties: map[string]any{
				"name":        d.Name,
				"contact":     d.Contact,
				"blood_group": d.Group(),
				"city":        d.City,
				"distance_km": d.DistanceKM,
			},
		})
	}
	return geo.FeatureCollection(points)
}
