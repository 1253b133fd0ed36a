package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"hazard-service/models"

	"github.com/apex/log"
)

const (
	// userAgent is required by the Nominatim usage policy.
	userAgent = "hazard-service/1.0"
	// Nominatim allows at most 1 request per second.
	minRequestInterval = time.Second
)

// NominatimClient is a Geocoder backed by the OSM Nominatim API, with
// the rate limiting its usage policy requires.
type NominatimClient struct {
	baseURL       string
	httpClient    *http.Client
	lastRequest   time.Time
	rateLimitLock sync.Mutex
}

func NewNominatimClient(baseURL string) *NominatimClient {
	return &NominatimClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type nominatimResponse struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// enforceRateLimit ensures we don't exceed Nominatim's rate limit.
func (c *NominatimClient) enforceRateLimit() {
	c.rateLimitLock.Lock()
	defer c.rateLimitLock.Unlock()

	elapsed := time.Since(c.lastRequest)
	if elapsed < minRequestInterval {
		time.Sleep(minRequestInterval - elapsed)
	}
	c.lastRequest = time.Now()
}

// ReverseGeocode resolves coordinates to a display address.
func (c *NominatimClient) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	c.enforceRateLimit()

	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("lat", fmt.Sprintf("%f", lat))
	params.Set("lon", fmt.Sprintf("%f", lng))

	var resp nominatimResponse
	if err := c.get(ctx, c.baseURL+"/reverse?"+params.Encode(), &resp); err != nil {
		return "", err
	}
	if resp.DisplayName == "" {
		return "", fmt.Errorf("no address found for %f,%f", lat, lng)
	}

	return resp.DisplayName, nil
}

// ForwardGeocode resolves a free-text query to the best matching location.
func (c *NominatimClient) ForwardGeocode(ctx context.Context, query string) (*models.Location, error) {
	c.enforceRateLimit()

	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("q", query)
	params.Set("limit", "1")

	var results []nominatimResponse
	if err := c.get(ctx, c.baseURL+"/search?"+params.Encode(), &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no results for %q", query)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("bad latitude in geocode response: %w", err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("bad longitude in geocode response: %w", err)
	}

	return &models.Location{Lat: lat, Lng: lng, Address: results[0].DisplayName}, nil
}

func (c *NominatimClient) get(ctx context.Context, fullURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warnf("Geocoder returned status %d for %s", resp.StatusCode, fullURL)
		return fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode geocode response: %w", err)
	}
	return nil
}
