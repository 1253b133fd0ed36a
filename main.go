package main

import (
	"fmt"
	"strconv"
	"time"

	"hazard-service/config"
	"hazard-service/database"
	"hazard-service/detection"
	"hazard-service/geocode"
	"hazard-service/handlers"
	"hazard-service/imagestore"
	"hazard-service/location"
	"hazard-service/mapview"
	"hazard-service/metrics"
	"hazard-service/middleware"
	"hazard-service/utils"
	"hazard-service/version"
	ws "hazard-service/websocket"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	EndPointHealth          = "/health"
	EndPointReports         = "/reports"
	EndPointReport          = "/reports/:id"
	EndPointReportVote      = "/reports/:id/vote"
	EndPointMyReports       = "/reports/by_reporter"
	EndPointMapMarkers      = "/map/markers"
	EndPointMapGeoJSON      = "/map/markers.geojson"
	EndPointSelectLocation  = "/location/select"
	EndPointSearchLocation  = "/location/search"
	EndPointCurrentLocation = "/location/current"
	EndPointDetect          = "/detect"
	EndPointImages          = "/images"
	EndPointProfile         = "/profile"
	EndPointProfileByID     = "/profiles/:id"
	EndPointLive            = "/ws/live"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Warn(".env file not found, using system environment variables")
	}

	cfg := config.Load()

	log.Info("Starting the hazard service...")

	// Connect to database
	db, err := utils.DBConnect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize database schema
	if err := database.InitSchema(db); err != nil {
		log.Fatalf("Failed to initialize database schema: %v", err)
	}

	metrics.Register()

	// Geocoder: Nominatim behind a db-backed grid cache. Injected into
	// the map surface; no package-global SDK object.
	cacheTTL := time.Duration(cfg.GeocodeCacheTTLDays) * 24 * time.Hour
	geocoder := geocode.NewCachedGeocoder(geocode.NewNominatimClient(cfg.GeocoderBaseURL), db, cacheTTL)
	if err := geocoder.InitCacheTable(); err != nil {
		log.Fatalf("Failed to initialize geocode cache: %v", err)
	}

	// Initialize services
	hazardService := database.NewHazardService(db)
	surface := mapview.NewSurface(geocoder)
	locator := location.NewProvider(geocoder)
	detector := detection.NewClient(cfg.DetectionAPIURL, cfg.DetectionAPIKey)

	images, err := imagestore.NewStore(cfg.ImageDir, cfg.PublicBaseURL, cfg.MaxImageSizeMB)
	if err != nil {
		log.Fatalf("Failed to initialize image store: %v", err)
	}

	hub := ws.NewHub()
	go hub.Run()

	// Initialize handlers
	hazardHandler := handlers.NewHazardHandler(hazardService, surface, locator, detector, images, hub)
	wsHandler := handlers.NewWebSocketHandler(hub)

	// Setup router
	router := gin.Default()
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/version", func(c *gin.Context) {
		c.JSON(200, version.Get("hazard-service"))
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET(EndPointHealth, hazardHandler.HealthCheck)
	router.Static("/images", images.Dir())

	auth := middleware.AuthMiddleware(cfg.JWTSecret)

	apiV3 := router.Group("/api/v3")
	{
		apiV3.POST(EndPointReports, auth, hazardHandler.CreateReport)
		apiV3.GET(EndPointReports, hazardHandler.GetReports)
		apiV3.GET(EndPointMyReports, hazardHandler.GetReportsByReporter)
		apiV3.GET(EndPointReport, hazardHandler.GetReportByID)
		apiV3.PATCH(EndPointReport, auth, hazardHandler.UpdateReport)
		apiV3.POST(EndPointReportVote, auth, hazardHandler.VoteReport)
		apiV3.GET(EndPointReportVote, auth, hazardHandler.VoteStatus)

		apiV3.GET(EndPointMapMarkers, hazardHandler.MapMarkers)
		apiV3.GET(EndPointMapGeoJSON, hazardHandler.MapMarkersGeoJSON)
		apiV3.POST(EndPointSelectLocation, hazardHandler.SelectLocation)
		apiV3.GET(EndPointSearchLocation, hazardHandler.SearchLocation)
		apiV3.POST(EndPointCurrentLocation, hazardHandler.CurrentLocation)

		apiV3.POST(EndPointDetect, hazardHandler.Detect)
		apiV3.POST(EndPointImages, auth, hazardHandler.UploadImage)

		apiV3.POST(EndPointProfile, auth, hazardHandler.UpsertProfile)
		apiV3.GET(EndPointProfileByID, hazardHandler.GetProfile)

		apiV3.GET(EndPointLive, wsHandler.Live)
	}

	// Get server port from config
	serverPort, err := strconv.Atoi(cfg.Port)
	if err != nil {
		log.Fatalf("Invalid PORT configuration: %v", err)
	}

	// Start server
	log.Infof("Hazard service starting on port %d", serverPort)
	if err := router.Run(fmt.Sprintf(":%d", serverPort)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
