package mapview

import (
	"context"
	"sync"

	"hazard-service/geocode"
	"hazard-service/models"
)

// Marker is one hazard pin, keyed by report id.
type Marker struct {
	ID     string              `json:"id"`
	Type   models.HazardType   `json:"type"`
	Status models.HazardStatus `json:"status"`
	Lat    float64             `json:"lat"`
	Lng    float64             `json:"lng"`
}

// Surface holds the current hazard marker set and resolves map
// selections. The geocoder is injected; there is no ambient map SDK.
type Surface struct {
	geocoder geocode.Geocoder

	mu      sync.RWMutex
	markers map[string]Marker
}

func NewSurface(geocoder geocode.Geocoder) *Surface {
	return &Surface{
		geocoder: geocoder,
		markers:  make(map[string]Marker),
	}
}

// ReplaceMarkers clears all prior markers and redraws from the given
// report list. Keyed by id, so a re-render never duplicates a marker.
func (s *Surface) ReplaceMarkers(reports []models.HazardReport) {
	next := make(map[string]Marker, len(reports))
	for _, r := range reports {
		next[r.ID] = Marker{
			ID:     r.ID,
			Type:   r.Type,
			Status: r.Status,
			Lat:    r.Location.Lat,
			Lng:    r.Location.Lng,
		}
	}
	s.mu.Lock()
	s.markers = next
	s.mu.Unlock()
}

// UpsertMarker places or moves the marker for a single report.
func (s *Surface) UpsertMarker(r *models.HazardReport) {
	s.mu.Lock()
	s.markers[r.ID] = Marker{
		ID:     r.ID,
		Type:   r.Type,
		Status: r.Status,
		Lat:    r.Location.Lat,
		Lng:    r.Location.Lng,
	}
	s.mu.Unlock()
}

// Markers returns the current marker set.
func (s *Surface) Markers() []Marker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Marker, 0, len(s.markers))
	for _, m := range s.markers {
		out = append(out, m)
	}
	return out
}

// MarkersInViewport returns the markers inside the bounding box. A nil
// viewport returns everything.
func (s *Surface) MarkersInViewport(vp *models.ViewPort) []Marker {
	if vp == nil {
		return s.Markers()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Marker{}
	for _, m := range s.markers {
		if vp.Contains(m.Lat, m.Lng) {
			out = append(out, m)
		}
	}
	return out
}

// Marker returns the marker for a report id, used when a pin is
// activated.
func (s *Surface) Marker(id string) (Marker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markers[id]
	return m, ok
}

// SelectLocation resolves a map click to a Location. The selection is
// optimistic: a geocoding failure degrades to the coordinate-string
// address instead of dropping the click.
func (s *Surface) SelectLocation(ctx context.Context, lat, lng float64) models.Location {
	return geocode.ResolveOrFallback(ctx, s.geocoder, lat, lng)
}

// SearchLocation resolves a free-text query to a Location for centering
// the map. Unlike selection there is no coordinate fallback; an
// unresolvable query is an error.
func (s *Surface) SearchLocation(ctx context.Context, query string) (*models.Location, error) {
	return s.geocoder.ForwardGeocode(ctx, query)
}
