package geocode

import (
	"context"
	"fmt"

	"hazard-service/metrics"
	"hazard-service/models"
)

// Geocoder resolves coordinates to human-readable addresses and back.
// Implementations are injected explicitly; nothing in this package is an
// ambient global.
type Geocoder interface {
	// ReverseGeocode resolves (lat, lng) to a formatted address.
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
	// ForwardGeocode resolves a free-text query to a location.
	ForwardGeocode(ctx context.Context, query string) (*models.Location, error)
}

// FormatCoordinates renders the coordinate-string fallback address. It is
// load-bearing: report submission must always be able to produce an
// address, so this never fails.
func FormatCoordinates(lat, lng float64) string {
	return fmt.Sprintf("%.6f, %.6f", lat, lng)
}

// ResolveOrFallback reverse-geocodes and degrades to the coordinate
// string on any failure, never blocking the caller.
func ResolveOrFallback(ctx context.Context, g Geocoder, lat, lng float64) models.Location {
	if g != nil {
		if addr, err := g.ReverseGeocode(ctx, lat, lng); err == nil && addr != "" {
			return models.Location{Lat: lat, Lng: lng, Address: addr}
		}
	}
	metrics.GeocodeLookupsTotal.WithLabelValues("fallback").Inc()
	return models.Location{Lat: lat, Lng: lng, Address: FormatCoordinates(lat, lng)}
}
