package location

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"hazard-service/geocode"
	"hazard-service/models"

	"github.com/apex/log"
)

// Position errors mirror the geolocation capability's failure modes.
var (
	ErrGeolocationUnavailable = errors.New("geolocation is not available")
	ErrPermissionDenied       = errors.New("location permission denied")
	ErrPositionUnavailable    = errors.New("position unavailable")
	ErrTimeout                = errors.New("timed out acquiring position")
	// ErrLocating is returned when a locate is already in flight; the
	// caller must not start a second one.
	ErrLocating = errors.New("a locate operation is already in progress")
)

// Position is a raw device fix.
type Position struct {
	Lat float64
	Lng float64
}

// PositionSource acquires the current device position. HighAccuracy
// requests the best available fix; implementations must not serve a
// cached position.
type PositionSource interface {
	Position(ctx context.Context, highAccuracy bool) (Position, error)
}

// SourceFunc adapts a function to a PositionSource, for sources built
// per request from a client-supplied fix.
type SourceFunc func(ctx context.Context, highAccuracy bool) (Position, error)

func (f SourceFunc) Position(ctx context.Context, highAccuracy bool) (Position, error) {
	return f(ctx, highAccuracy)
}

// Provider resolves a device position to a full Location. At most one
// acquisition runs at a time.
type Provider struct {
	geocoder geocode.Geocoder
	timeout  time.Duration
	locating atomic.Bool
}

func NewProvider(geocoder geocode.Geocoder) *Provider {
	return &Provider{
		geocoder: geocoder,
		timeout:  10 * time.Second,
	}
}

// CurrentLocation acquires a high-accuracy position from the source
// within the bounded timeout and resolves it to an address, falling back
// to the formatted coordinate string when geocoding is unavailable. The
// fallback always succeeds; only position acquisition can fail.
func (p *Provider) CurrentLocation(ctx context.Context, source PositionSource) (*models.Location, error) {
	if source == nil {
		return nil, ErrGeolocationUnavailable
	}
	if !p.locating.CompareAndSwap(false, true) {
		return nil, ErrLocating
	}
	defer p.locating.Store(false)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	pos, err := source.Position(ctx, true)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, err
	}

	loc := geocode.ResolveOrFallback(ctx, p.geocoder, pos.Lat, pos.Lng)
	log.Debugf("Resolved current location to %q", loc.Address)
	return &loc, nil
}
