package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"hazard-service/database"
	"hazard-service/detection"
	"hazard-service/imagestore"
	"hazard-service/location"
	"hazard-service/mapview"
	"hazard-service/metrics"
	"hazard-service/middleware"
	"hazard-service/models"
	ws "hazard-service/websocket"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

type HazardHandler struct {
	hazardService *database.HazardService
	surface       *mapview.Surface
	locator       *location.Provider
	detector      *detection.Client
	images        *imagestore.Store
	hub           *ws.Hub
}

func NewHazardHandler(
	hazardService *database.HazardService,
	surface *mapview.Surface,
	locator *location.Provider,
	detector *detection.Client,
	images *imagestore.Store,
	hub *ws.Hub,
) *HazardHandler {
	return &HazardHandler{
		hazardService: hazardService,
		surface:       surface,
		locator:       locator,
		detector:      detector,
		images:        images,
		hub:           hub,
	}
}

// HealthCheck returns a simple health status
func (h *HazardHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "hazard-service",
	})
}

func (h *HazardHandler) CreateReport(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	args := &models.CreateReportRequest{}
	if err := c.BindJSON(args); err != nil {
		log.Errorf("Failed to get the argument in /reports call: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read JSON input"})
		return
	}

	if err := args.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.hazardService.CreateReport(c.Request.Context(), args, user.ID)
	if err != nil {
		log.Errorf("Error creating hazard report: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create hazard report"})
		return
	}

	metrics.ReportsCreatedTotal.WithLabelValues(string(report.Type)).Inc()
	h.surface.UpsertMarker(report)
	h.hub.BroadcastEvent(ws.EventReportCreated, report)

	c.JSON(http.StatusCreated, report)
}

func (h *HazardHandler) GetReports(c *gin.Context) {
	reports, err := h.hazardService.GetReports(c.Request.Context())
	if err != nil {
		log.Errorf("Error fetching hazard reports: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load hazard reports"})
		return
	}

	c.IndentedJSON(http.StatusOK, &models.ReportsResponse{Reports: reports})
}

func (h *HazardHandler) GetReportsByReporter(c *gin.Context) {
	reporter, ok := c.GetQuery("reporter")
	if !ok || reporter == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reporter query parameter is required"})
		return
	}

	reports, err := h.hazardService.GetReportsByReporter(c.Request.Context(), reporter)
	if err != nil {
		log.Errorf("Error fetching reports for reporter %s: %v", reporter, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load your reports"})
		return
	}

	c.IndentedJSON(http.StatusOK, &models.ReportsResponse{Reports: reports})
}

func (h *HazardHandler) GetReportByID(c *gin.Context) {
	id := c.Param("id")

	report, err := h.hazardService.GetReportByID(c.Request.Context(), id)
	if err != nil {
		log.Errorf("Error fetching hazard report %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load hazard details"})
		return
	}
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *HazardHandler) UpdateReport(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id := c.Param("id")

	args := &models.UpdateReportRequest{}
	if err := c.BindJSON(args); err != nil {
		log.Errorf("Failed to get the argument in update report call: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read JSON input"})
		return
	}

	if err := args.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, err := h.hazardService.GetReportByID(c.Request.Context(), id)
	if err != nil {
		log.Errorf("Error fetching hazard report %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load hazard details"})
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	if existing.ReportedBy != user.ID {
		log.Warnf("User %s attempted to update report %s owned by %s", user.ID, id, existing.ReportedBy)
		c.JSON(http.StatusForbidden, gin.H{"error": "only the reporter can update this report"})
		return
	}

	report, err := h.hazardService.UpdateReport(c.Request.Context(), id, args)
	if err != nil {
		log.Errorf("Error updating hazard report %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update hazard report"})
		return
	}

	h.surface.UpsertMarker(report)
	h.hub.BroadcastEvent(ws.EventReportUpdated, report)

	c.JSON(http.StatusOK, report)
}

func (h *HazardHandler) VoteReport(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id := c.Param("id")

	report, err := h.hazardService.GetReportByID(c.Request.Context(), id)
	if err != nil {
		log.Errorf("Error fetching hazard report %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register vote"})
		return
	}
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}

	voted, votes, err := h.hazardService.ToggleVote(c.Request.Context(), id, user.ID)
	if err != nil {
		log.Errorf("Error voting for hazard report %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register vote"})
		return
	}

	direction := "unvoted"
	if voted {
		direction = "voted"
	}
	metrics.VotesToggledTotal.WithLabelValues(direction).Inc()
	h.hub.BroadcastEvent(ws.EventVoteChanged, gin.H{"id": id, "votes": votes})

	c.JSON(http.StatusOK, &models.VoteResponse{Voted: voted, Votes: votes})
}

// VoteStatus returns whether the authenticated user currently has a
// vote on the report, so clients can render the toggle state.
func (h *HazardHandler) VoteStatus(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id := c.Param("id")

	report, err := h.hazardService.GetReportByID(c.Request.Context(), id)
	if err != nil {
		log.Errorf("Error fetching hazard report %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load vote status"})
		return
	}
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}

	voted, err := h.hazardService.HasVoted(c.Request.Context(), id, user.ID)
	if err != nil {
		log.Errorf("Error checking vote status for %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load vote status"})
		return
	}

	c.JSON(http.StatusOK, &models.VoteResponse{Voted: voted, Votes: report.Votes})
}

func (h *HazardHandler) MapMarkers(c *gin.Context) {
	vp, err := viewportFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reports, err := h.hazardService.GetReports(c.Request.Context())
	if err != nil {
		log.Errorf("Error fetching reports for map: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load map markers"})
		return
	}

	// Prior markers are cleared before redrawing on every list change.
	h.surface.ReplaceMarkers(reports)
	markers := h.surface.MarkersInViewport(vp)

	if c.Query("aggregate") == "true" && vp != nil {
		a := mapview.NewAggregator(vp)
		for _, m := range markers {
			a.AddMarker(m)
		}
		c.IndentedJSON(http.StatusOK, gin.H{"clusters": a.ToArray()})
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"markers": markers})
}

func (h *HazardHandler) MapMarkersGeoJSON(c *gin.Context) {
	vp, err := viewportFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reports, err := h.hazardService.GetReports(c.Request.Context())
	if err != nil {
		log.Errorf("Error fetching reports for geojson: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load map markers"})
		return
	}

	h.surface.ReplaceMarkers(reports)
	c.JSON(http.StatusOK, mapview.ToGeoJSON(h.surface.MarkersInViewport(vp)))
}

func (h *HazardHandler) SelectLocation(c *gin.Context) {
	args := &models.SelectLocationRequest{}
	if err := c.BindJSON(args); err != nil {
		log.Errorf("Failed to get the argument in /location/select call: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read JSON input"})
		return
	}

	if args.Lat < -90 || args.Lat > 90 || args.Lng < -180 || args.Lng > 180 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})
		return
	}

	// Always yields a location; geocode failure degrades to the
	// coordinate string.
	loc := h.surface.SelectLocation(c.Request.Context(), args.Lat, args.Lng)
	c.JSON(http.StatusOK, loc)
}

// CurrentLocation resolves the client's raw device fix to a full
// Location through the provider: one acquisition at a time, bounded,
// with the coordinate-string fallback when geocoding is down.
func (h *HazardHandler) CurrentLocation(c *gin.Context) {
	args := &models.CurrentLocationRequest{}
	if err := c.BindJSON(args); err != nil {
		log.Errorf("Failed to get the argument in /location/current call: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read JSON input"})
		return
	}

	var source location.PositionSource
	if args.Lat != nil && args.Lng != nil {
		if *args.Lat < -90 || *args.Lat > 90 || *args.Lng < -180 || *args.Lng > 180 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})
			return
		}
		lat, lng := *args.Lat, *args.Lng
		source = location.SourceFunc(func(ctx context.Context, highAccuracy bool) (location.Position, error) {
			return location.Position{Lat: lat, Lng: lng}, nil
		})
	}

	loc, err := h.locator.CurrentLocation(c.Request.Context(), source)
	switch {
	case errors.Is(err, location.ErrGeolocationUnavailable):
		c.JSON(http.StatusBadRequest, gin.H{"error": "device position is required"})
		return
	case errors.Is(err, location.ErrLocating):
		c.JSON(http.StatusConflict, gin.H{"error": "a locate operation is already in progress"})
		return
	case err != nil:
		log.Errorf("Error resolving current location: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to resolve current location"})
		return
	}

	c.JSON(http.StatusOK, loc)
}

// SearchLocation resolves a free-text query to map coordinates.
func (h *HazardHandler) SearchLocation(c *gin.Context) {
	query, ok := c.GetQuery("q")
	if !ok || query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q query parameter is required"})
		return
	}

	loc, err := h.surface.SearchLocation(c.Request.Context(), query)
	if err != nil {
		log.Warnf("Location search for %q failed: %v", query, err)
		c.JSON(http.StatusNotFound, gin.H{"error": "no location found"})
		return
	}

	c.JSON(http.StatusOK, loc)
}

func (h *HazardHandler) Detect(c *gin.Context) {
	args := &models.DetectRequest{}
	if err := c.BindJSON(args); err != nil {
		log.Errorf("Failed to get the argument in /detect call: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read JSON input"})
		return
	}

	if args.Simulate {
		c.JSON(http.StatusOK, detection.Simulate())
		return
	}

	switch {
	case args.ImageURL != "":
		c.JSON(http.StatusOK, h.detector.DetectFromURL(c.Request.Context(), args.ImageURL))
	case args.ImageBase64 != "":
		c.JSON(http.StatusOK, h.detector.DetectFromBase64(c.Request.Context(), args.ImageBase64))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "image_url or image_base64 is required"})
	}
}

func (h *HazardHandler) UploadImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}

	f, err := file.Open()
	if err != nil {
		log.Errorf("Failed to open uploaded image: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read image"})
		return
	}
	defer f.Close()

	url, err := h.images.Save(f, file.Filename)
	if err != nil {
		log.Errorf("Failed to store uploaded image: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, &models.ImageUploadResponse{ImageURL: url})
}

func (h *HazardHandler) UpsertProfile(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	args := &models.Profile{}
	if err := c.BindJSON(args); err != nil {
		log.Errorf("Failed to get the argument in /profile call: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read JSON input"})
		return
	}
	args.ID = user.ID

	if err := h.hazardService.UpsertProfile(c.Request.Context(), args); err != nil {
		log.Errorf("Error upserting profile for %s: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save profile"})
		return
	}

	c.Status(http.StatusOK)
}

func (h *HazardHandler) GetProfile(c *gin.Context) {
	id := c.Param("id")

	profile, err := h.hazardService.GetProfile(c.Request.Context(), id)
	if err != nil {
		log.Errorf("Error fetching profile %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}

	c.JSON(http.StatusOK, profile)
}

// viewportFromQuery parses the optional sw/ne bounding box parameters.
// All four must be present to form a viewport.
func viewportFromQuery(c *gin.Context) (*models.ViewPort, error) {
	latMinStr, hasLatMin := c.GetQuery("sw_lat")
	lonMinStr, hasLonMin := c.GetQuery("sw_lng")
	latMaxStr, hasLatMax := c.GetQuery("ne_lat")
	lonMaxStr, hasLonMax := c.GetQuery("ne_lng")

	if !hasLatMin && !hasLonMin && !hasLatMax && !hasLonMax {
		return nil, nil
	}
	if !(hasLatMin && hasLonMin && hasLatMax && hasLonMax) {
		return nil, fmt.Errorf("all of sw_lat, sw_lng, ne_lat, ne_lng are required")
	}

	latMin, err := strconv.ParseFloat(latMinStr, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing sw_lat: %v", err)
	}
	lonMin, err := strconv.ParseFloat(lonMinStr, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing sw_lng: %v", err)
	}
	latMax, err := strconv.ParseFloat(latMaxStr, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing ne_lat: %v", err)
	}
	lonMax, err := strconv.ParseFloat(lonMaxStr, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing ne_lng: %v", err)
	}

	return &models.ViewPort{
		LatMin: latMin,
		LonMin: lonMin,
		LatMax: latMax,
		LonMax: lonMax,
	}, nil
}
