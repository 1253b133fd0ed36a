package geocode

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"hazard-service/metrics"
	"hazard-service/models"

	"github.com/apex/log"
)

// cacheGridSize is the grid size in meters for coordinate rounding.
// Nearby clicks resolve to the same cached address.
const cacheGridSize = 100.0

// CachedGeocoder wraps a Geocoder with a MySQL-backed grid cache for
// reverse lookups. Forward lookups pass through.
type CachedGeocoder struct {
	inner Geocoder
	db    *sql.DB
	ttl   time.Duration
}

func NewCachedGeocoder(inner Geocoder, db *sql.DB, ttl time.Duration) *CachedGeocoder {
	return &CachedGeocoder{inner: inner, db: db, ttl: ttl}
}

// InitCacheTable creates the geocode cache table if it doesn't exist.
func (c *CachedGeocoder) InitCacheTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS geocode_cache (
			id INT AUTO_INCREMENT PRIMARY KEY,
			lat_grid DOUBLE NOT NULL,
			lng_grid DOUBLE NOT NULL,
			address VARCHAR(512) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			expires_at TIMESTAMP NOT NULL,
			UNIQUE KEY idx_lat_lng (lat_grid, lng_grid),
			INDEX idx_expires (expires_at)
		)`
	if _, err := c.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create geocode_cache table: %w", err)
	}
	log.Info("Geocode_cache table verified/created")
	return nil
}

// roundToGrid rounds a coordinate to the cache grid size so nearby
// coordinates share a cache entry.
func roundToGrid(coord float64) float64 {
	// At the equator 1 degree is roughly 111,320 meters.
	metersPerDegree := 111320.0
	gridDegrees := cacheGridSize / metersPerDegree
	return math.Round(coord/gridDegrees) * gridDegrees
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	latGrid := roundToGrid(lat)
	lngGrid := roundToGrid(lng)

	if addr, err := c.getFromCache(ctx, latGrid, lngGrid); err == nil && addr != "" {
		log.Debugf("Geocode cache hit for (%.6f, %.6f)", lat, lng)
		metrics.GeocodeLookupsTotal.WithLabelValues("cache").Inc()
		return addr, nil
	}

	addr, err := c.inner.ReverseGeocode(ctx, lat, lng)
	if err != nil {
		return "", err
	}
	metrics.GeocodeLookupsTotal.WithLabelValues("remote").Inc()

	if err := c.putInCache(ctx, latGrid, lngGrid, addr); err != nil {
		log.Warnf("Failed to cache geocode result: %v", err)
	}
	return addr, nil
}

func (c *CachedGeocoder) ForwardGeocode(ctx context.Context, query string) (*models.Location, error) {
	return c.inner.ForwardGeocode(ctx, query)
}

func (c *CachedGeocoder) getFromCache(ctx context.Context, latGrid, lngGrid float64) (string, error) {
	var addr string
	err := c.db.QueryRowContext(ctx,
		`SELECT address FROM geocode_cache
		 WHERE lat_grid = ? AND lng_grid = ? AND expires_at > NOW()`,
		latGrid, lngGrid).Scan(&addr)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return addr, nil
}

func (c *CachedGeocoder) putInCache(ctx context.Context, latGrid, lngGrid float64, addr string) error {
	expiresAt := time.Now().Add(c.ttl)
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO geocode_cache (lat_grid, lng_grid, address, expires_at)
		 VALUES (?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE address = VALUES(address), expires_at = VALUES(expires_at)`,
		latGrid, lngGrid, addr, expiresAt)
	return err
}
