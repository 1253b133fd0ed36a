package geocode

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestCachedGeocoderHit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT address FROM geocode_cache").
		WillReturnRows(sqlmock.NewRows([]string{"address"}).AddRow("Cached Ave"))

	// The inner geocoder must not be consulted on a hit.
	inner := &stubGeocoder{err: errors.New("should not be called")}
	c := NewCachedGeocoder(inner, db, time.Hour)

	addr, err := c.ReverseGeocode(context.Background(), 40.0, -74.0)
	if err != nil {
		t.Fatalf("ReverseGeocode: unexpected error: %v", err)
	}
	if addr != "Cached Ave" {
		t.Errorf("expected cached address, got %q", addr)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCachedGeocoderMissFillsCache(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT address FROM geocode_cache").
		WillReturnRows(sqlmock.NewRows([]string{"address"}))
	mock.ExpectExec("INSERT INTO geocode_cache").
		WillReturnResult(sqlmock.NewResult(1, 1))

	inner := &stubGeocoder{address: "Fresh Ave"}
	c := NewCachedGeocoder(inner, db, time.Hour)

	addr, err := c.ReverseGeocode(context.Background(), 40.0, -74.0)
	if err != nil {
		t.Fatalf("ReverseGeocode: unexpected error: %v", err)
	}
	if addr != "Fresh Ave" {
		t.Errorf("expected remote address, got %q", addr)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCachedGeocoderPropagatesRemoteFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT address FROM geocode_cache").
		WillReturnRows(sqlmock.NewRows([]string{"address"}))

	inner := &stubGeocoder{err: errors.New("geocoder down")}
	c := NewCachedGeocoder(inner, db, time.Hour)

	if _, err := c.ReverseGeocode(context.Background(), 40.0, -74.0); err == nil {
		t.Fatal("expected error when remote geocoder fails on a cache miss")
	}
}

func TestRoundToGridStable(t *testing.T) {
	// Nearby coordinates within the grid size share a cell.
	a := roundToGrid(40.712775)
	b := roundToGrid(40.712800)
	if a != b {
		t.Errorf("expected nearby coordinates to share a grid cell, got %f and %f", a, b)
	}

	far := roundToGrid(40.722775)
	if a == far {
		t.Errorf("expected distant coordinates in different cells")
	}
}
