package mapview

import (
	"context"
	"errors"
	"testing"

	"hazard-service/models"
)

type failingGeocoder struct{}

func (failingGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	return "", errors.New("geocoder down")
}

func (failingGeocoder) ForwardGeocode(ctx context.Context, query string) (*models.Location, error) {
	return nil, errors.New("geocoder down")
}

func testReports() []models.HazardReport {
	return []models.HazardReport{
		{ID: "r1", Type: models.HazardPothole, Status: models.StatusActive,
			Location: models.Location{Lat: 40.0, Lng: -74.0, Address: "A"}},
		{ID: "r2", Type: models.HazardWaterlogging, Status: models.StatusInvestigating,
			Location: models.Location{Lat: 41.0, Lng: -73.0, Address: "B"}},
		{ID: "r3", Type: models.HazardOther, Status: models.StatusResolved,
			Location: models.Location{Lat: 10.0, Lng: 10.0, Address: "C"}},
	}
}

func TestReplaceMarkersNoDuplicates(t *testing.T) {
	s := NewSurface(nil)

	// Redrawing the same list must not duplicate markers.
	s.ReplaceMarkers(testReports())
	s.ReplaceMarkers(testReports())

	if got := len(s.Markers()); got != 3 {
		t.Errorf("expected 3 markers after redraw, got %d", got)
	}
}

func TestReplaceMarkersClearsPrior(t *testing.T) {
	s := NewSurface(nil)

	s.ReplaceMarkers(testReports())
	s.ReplaceMarkers(testReports()[:1])

	if got := len(s.Markers()); got != 1 {
		t.Errorf("expected prior markers cleared, got %d markers", got)
	}
	if _, ok := s.Marker("r3"); ok {
		t.Error("expected marker r3 removed on redraw")
	}
}

func TestUpsertMarkerMovesExisting(t *testing.T) {
	s := NewSurface(nil)
	s.ReplaceMarkers(testReports())

	moved := testReports()[0]
	moved.Location.Lat = 42.0
	s.UpsertMarker(&moved)

	if got := len(s.Markers()); got != 3 {
		t.Errorf("expected upsert to keep marker count at 3, got %d", got)
	}
	m, ok := s.Marker("r1")
	if !ok || m.Lat != 42.0 {
		t.Errorf("expected marker r1 moved to 42.0, got %+v", m)
	}
}

func TestMarkersInViewport(t *testing.T) {
	s := NewSurface(nil)
	s.ReplaceMarkers(testReports())

	vp := &models.ViewPort{LatMin: 39.0, LonMin: -75.0, LatMax: 41.5, LonMax: -72.0}
	markers := s.MarkersInViewport(vp)

	if len(markers) != 2 {
		t.Fatalf("expected 2 markers in viewport, got %d", len(markers))
	}
	for _, m := range markers {
		if m.ID == "r3" {
			t.Error("marker r3 is outside the viewport")
		}
	}
}

func TestMarkersInViewportNilReturnsAll(t *testing.T) {
	s := NewSurface(nil)
	s.ReplaceMarkers(testReports())

	if got := len(s.MarkersInViewport(nil)); got != 3 {
		t.Errorf("expected all markers without a viewport, got %d", got)
	}
}

func TestSelectLocationFallsBackToCoordinates(t *testing.T) {
	s := NewSurface(failingGeocoder{})

	// A geocode failure must still emit the selection with a
	// coordinate-string address.
	loc := s.SelectLocation(context.Background(), 40.712775, -74.005973)
	if loc.Address != "40.712775, -74.005973" {
		t.Errorf("expected coordinate-string address, got %q", loc.Address)
	}
	if loc.Lat != 40.712775 || loc.Lng != -74.005973 {
		t.Errorf("expected click coordinates preserved, got %f,%f", loc.Lat, loc.Lng)
	}
}

func TestToGeoJSON(t *testing.T) {
	s := NewSurface(nil)
	s.ReplaceMarkers(testReports())

	fc := ToGeoJSON(s.Markers())
	if len(fc.Features) != 3 {
		t.Fatalf("expected 3 features, got %d", len(fc.Features))
	}
	for _, f := range fc.Features {
		if f.Geometry == nil || !f.Geometry.IsPoint() {
			t.Errorf("expected point geometry, got %+v", f.Geometry)
		}
		if _, err := f.PropertyString("type"); err != nil {
			t.Errorf("expected type property: %v", err)
		}
	}
}
