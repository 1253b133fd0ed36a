package detection

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hazard-service/models"
)

func TestMapClass(t *testing.T) {
	tests := []struct {
		class    string
		expected models.HazardType
	}{
		{"pothole", models.HazardPothole},
		{"Pothole", models.HazardPothole},
		{"water_logging", models.HazardWaterlogging},
		{"waterlogging", models.HazardWaterlogging},
		{"WATERLOGGING", models.HazardWaterlogging},
		{"garbage", models.HazardOther},
		{"damaged_road", models.HazardOther},
		{"blocked_drain", models.HazardOther},
		{"streetlight", models.HazardOther},
		{"", models.HazardOther},
	}

	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			got := MapClass(tt.class)
			assert.Equal(t, tt.expected, got)
			// The class map never produces "unknown"; that is reserved
			// for total detection failure.
			assert.NotEqual(t, models.HazardUnknown, got)
		})
	}
}

func TestDetectFromURLPicksHighestConfidence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req detectRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-key", req.APIKey)
		assert.Equal(t, "url", req.Inputs.Image.Type)
		assert.Equal(t, "http://example.com/road.jpg", req.Inputs.Image.Value)

		var resp detectResponse
		resp.Predictions.ObjectDetection.Predictions = []prediction{
			{Class: "garbage", Confidence: 0.41},
			{Class: "water_logging", Confidence: 0.93},
			{Class: "pothole", Confidence: 0.72},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	result := c.DetectFromURL(context.Background(), "http://example.com/road.jpg")

	assert.Equal(t, models.HazardWaterlogging, result.Type)
	assert.Equal(t, 0.93, result.Confidence)
	assert.Len(t, result.DetectedObjects, 3)
}

func TestDetectFromBase64NoPredictions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"predictions":{"object_detection":{"predictions":[]}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	result := c.DetectFromBase64(context.Background(), "aGVsbG8=")

	// No clear prediction falls back to a low-confidence "other", not
	// to "unknown".
	assert.Equal(t, models.HazardOther, result.Type)
	assert.Equal(t, 0.5, result.Confidence)
}

func TestDetectServiceDownReturnsUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	srv.Close() // unreachable endpoint

	c := NewClient(srv.URL, "test-key")
	result := c.DetectFromURL(context.Background(), "http://example.com/road.jpg")

	assert.Equal(t, models.HazardUnknown, result.Type)
	assert.Equal(t, 0.0, result.Confidence)
}

func TestDetectServiceErrorStatusReturnsUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	result := c.DetectFromURL(context.Background(), "http://example.com/road.jpg")

	assert.Equal(t, models.HazardUnknown, result.Type)
	assert.Equal(t, 0.0, result.Confidence)
}

func TestSimulateShape(t *testing.T) {
	// The simulated path is intentionally nondeterministic; assert only
	// shape and range, never a specific type.
	for i := 0; i < 50; i++ {
		result := Simulate()

		assert.True(t, models.ValidType(result.Type), "unexpected type %q", result.Type)
		assert.GreaterOrEqual(t, result.Confidence, 0.6)
		assert.LessOrEqual(t, result.Confidence, 1.0)
		require.Len(t, result.DetectedObjects, 1)
		assert.Equal(t, string(result.Type), result.DetectedObjects[0].Class)
	}
}

func TestResultOrDefault(t *testing.T) {
	assert.Equal(t, models.HazardPothole,
		ResultOrDefault(&models.HazardDetectionResult{Type: models.HazardPothole, Confidence: 0.8}))
	// A failed detection still lets the user submit with the default
	// category.
	assert.Equal(t, models.HazardOther,
		ResultOrDefault(&models.HazardDetectionResult{Type: models.HazardUnknown, Confidence: 0}))
	assert.Equal(t, models.HazardOther, ResultOrDefault(nil))
}
