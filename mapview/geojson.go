package mapview

import (
	geojson "github.com/paulmach/go.geojson"
)

// ToGeoJSON renders the marker set as a FeatureCollection for clients
// that consume GeoJSON layers directly.
func ToGeoJSON(markers []Marker) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, m := range markers {
		f := geojson.NewPointFeature([]float64{m.Lng, m.Lat})
		f.ID = m.ID
		f.SetProperty("type", string(m.Type))
		f.SetProperty("status", string(m.Status))
		fc.AddFeature(f)
	}
	return fc
}
