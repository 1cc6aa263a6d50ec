// Package geo resolves donor addresses to coordinates, with a bounded random
// fallback region, and computes great-circle distances.
package geo

import (
	"math"
	"math/rand/v2"

	"github.com/rotisserie/eris"

	"github.com/bloodbuddy/donor-cli/internal/validate"
)

// Region is a lat/lon bounding box used when an address cannot be geocoded.
type Region struct {
	Name   string  `yaml:"name" mapstructure:"name"`
	MinLat float64 `yaml:"min_lat" mapstructure:"min_lat"`
	MaxLat float64 `yaml:"max_lat" mapstructure:"max_lat"`
	MinLon float64 `yaml:"min_lon" mapstructure:"min_lon"`
	MaxLon float64 `yaml:"max_lon" mapstructure:"max_lon"`
}

// Amravati is the default fallback box.
var Amravati = Region{Name: "Amravati", MinLat: 20.90, MaxLat: 21.05, MinLon: 77.70, MaxLon: 77.85}

// Validate rejects boxes that could yield an out-of-range coordinate.
func (r Region) Validate() error {
	if r.Name == "" {
		return eris.New("geo: fallback region name is required")
	}
	for _, v := range []float64{r.MinLat, r.MaxLat, r.MinLon, r.MaxLon} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return eris.Errorf("geo: fallback region %s has a non-finite bound", r.Name)
		}
	}
	if r.MinLat > r.MaxLat || r.MinLon > r.MaxLon {
		return eris.Errorf("geo: fallback region %s has min > max", r.Name)
	}
	if !validate.ValidCoordinate(r.MinLat, r.MinLon) || !validate.ValidCoordinate(r.MaxLat, r.MaxLon) {
		return eris.Errorf("geo: fallback region %s is outside lat [-90,90] / lon [-180,180]", r.Name)
	}
	return nil
}

// Sample returns a uniform random point inside the box. A nil rng uses the
// package-level source.
func (r Region) Sample(rng *rand.Rand) (lat, lon float64) {
	f := rand.Float64
	if rng != nil {
		f = rng.Float64
	}
	lat = r.MinLat + f()*(r.MaxLat-r.MinLat)
	lon = r.MinLon + f()*(r.MaxLon-r.MinLon)
	return lat, lon
}
