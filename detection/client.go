package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"hazard-service/metrics"
	"hazard-service/models"

	"github.com/apex/log"
)

// classMap is the fixed lookup from detector classes to domain hazard
// types. Keys are matched case-insensitively; anything unrecognized maps
// to "other". "unknown" is reserved for total detection failure and is
// never produced by the map.
var classMap = map[string]models.HazardType{
	"pothole":       models.HazardPothole,
	"water_logging": models.HazardWaterlogging,
	"waterlogging":  models.HazardWaterlogging,
	"garbage":       models.HazardOther,
	"damaged_road":  models.HazardOther,
	"blocked_drain": models.HazardOther,
}

// MapClass resolves a raw detector class to a hazard type.
func MapClass(class string) models.HazardType {
	if t, ok := classMap[strings.ToLower(class)]; ok {
		return t
	}
	return models.HazardOther
}

// Client handles communication with the hazard detection inference
// service.
type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

func NewClient(apiURL, apiKey string) *Client {
	return &Client{
		apiURL: apiURL,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type imageInput struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type detectRequest struct {
	APIKey string `json:"api_key"`
	Inputs struct {
		Image imageInput `json:"image"`
	} `json:"inputs"`
}

type prediction struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

type detectResponse struct {
	Predictions struct {
		ObjectDetection struct {
			Predictions []prediction `json:"predictions"`
		} `json:"object_detection"`
	} `json:"predictions"`
}

// unknownResult is the soft-failure result: detection never blocks a
// report submission.
func unknownResult() *models.HazardDetectionResult {
	return &models.HazardDetectionResult{
		Type:            models.HazardUnknown,
		Confidence:      0,
		DetectedObjects: []models.DetectedObject{},
	}
}

// DetectFromURL classifies the image behind a publicly resolvable URL.
func (c *Client) DetectFromURL(ctx context.Context, imageURL string) *models.HazardDetectionResult {
	return c.detect(ctx, imageInput{Type: "url", Value: imageURL})
}

// DetectFromBase64 classifies base64-encoded image data.
func (c *Client) DetectFromBase64(ctx context.Context, data string) *models.HazardDetectionResult {
	return c.detect(ctx, imageInput{Type: "base64", Value: data})
}

func (c *Client) detect(ctx context.Context, image imageInput) *models.HazardDetectionResult {
	start := time.Now()
	defer func() {
		metrics.DetectionDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	reqBody := detectRequest{APIKey: c.apiKey}
	reqBody.Inputs.Image = image

	payload, err := json.Marshal(reqBody)
	if err != nil {
		log.Errorf("Failed to marshal detection request: %v", err)
		metrics.DetectionRequestsTotal.WithLabelValues("unknown").Inc()
		return unknownResult()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(payload))
	if err != nil {
		log.Errorf("Failed to create detection request: %v", err)
		metrics.DetectionRequestsTotal.WithLabelValues("unknown").Inc()
		return unknownResult()
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Errorf("Failed to call detection service: %v", err)
		metrics.DetectionRequestsTotal.WithLabelValues("unknown").Inc()
		return unknownResult()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Errorf("Detection service returned status %d", resp.StatusCode)
		metrics.DetectionRequestsTotal.WithLabelValues("unknown").Inc()
		return unknownResult()
	}

	var result detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Errorf("Failed to decode detection response: %v", err)
		metrics.DetectionRequestsTotal.WithLabelValues("unknown").Inc()
		return unknownResult()
	}

	metrics.DetectionRequestsTotal.WithLabelValues("detected").Inc()
	return processDetections(result.Predictions.ObjectDetection.Predictions)
}

// processDetections picks the highest-confidence prediction and maps it
// to a hazard type. No clear prediction falls back to {other, 0.5}.
func processDetections(detections []prediction) *models.HazardDetectionResult {
	if len(detections) == 0 {
		return &models.HazardDetectionResult{
			Type:            models.HazardOther,
			Confidence:      0.5,
			DetectedObjects: []models.DetectedObject{},
		}
	}

	best := detections[0]
	for _, d := range detections[1:] {
		if d.Confidence > best.Confidence {
			best = d
		}
	}

	objects := make([]models.DetectedObject, len(detections))
	for i, d := range detections {
		objects[i] = models.DetectedObject{Class: d.Class, Confidence: d.Confidence}
	}

	log.Infof("Detected %q with confidence %.2f (%d objects)", best.Class, best.Confidence, len(detections))
	return &models.HazardDetectionResult{
		Type:            MapClass(best.Class),
		Confidence:      best.Confidence,
		DetectedObjects: objects,
	}
}

// Simulate fabricates a plausible detection for the demo path where no
// network classification is performed. Callers must not assume a
// specific type; only the shape and the [0.6, 1.0] confidence range are
// guaranteed.
func Simulate() *models.HazardDetectionResult {
	types := []models.HazardType{models.HazardPothole, models.HazardWaterlogging, models.HazardOther}
	t := types[rand.Intn(len(types))]
	confidence := 0.6 + rand.Float64()*0.4

	metrics.DetectionRequestsTotal.WithLabelValues("simulated").Inc()
	return &models.HazardDetectionResult{
		Type:       t,
		Confidence: confidence,
		DetectedObjects: []models.DetectedObject{
			{Class: string(t), Confidence: confidence},
		},
	}
}

// ResultOrDefault returns the detected type when usable, falling back to
// the user-facing default category so submission is always possible.
func ResultOrDefault(r *models.HazardDetectionResult) models.HazardType {
	if r == nil || r.Type == models.HazardUnknown || !models.ValidType(r.Type) {
		return models.HazardOther
	}
	return r.Type
}
