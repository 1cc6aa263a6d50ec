package geo

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Point is a located feature with arbitrary properties.
type Point struct {
	ID         string
	Latitude   float64
	Longitude  float64
	Properties map[string]any
}

// FeatureCollection converts points to a GeoJSON FeatureCollection. GeoJSON
// orders coordinates lon, lat.
func FeatureCollection(points []Point) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(points))}
	for _, p := range points {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         p.ID,
			Geometry:   geom.NewPointFlat(geom.XY, []float64{p.Longitude, p.Latitude}),
			Properties: p.Properties,
		})
	}
	return fc
}
