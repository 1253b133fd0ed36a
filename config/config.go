package config

import (
	"os"
	"strconv"
)

// Config holds all configuration for the hazard service
type Config struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Server configuration
	Port string

	// Auth configuration
	JWTSecret string

	// Hazard detection API
	DetectionAPIURL string
	DetectionAPIKey string

	// Geocoding
	GeocoderBaseURL     string
	GeocodeCacheTTLDays int

	// Image storage
	ImageDir       string
	PublicBaseURL  string
	MaxImageSizeMB int
}

// Load loads configuration from environment variables
func Load() *Config {
	config := &Config{
		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "server"),
		DBPassword: getEnv("DB_PASSWORD", "secret"),
		DBName:     getEnv("DB_NAME", "hazards"),

		// Server defaults
		Port: getEnv("PORT", "8080"),

		JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),

		DetectionAPIURL: getEnv("DETECTION_API_URL", "https://detect.roboflow.com/infer/workflows/urbanfix/custom-workflow"),
		DetectionAPIKey: getEnv("DETECTION_API_KEY", ""),

		GeocoderBaseURL:     getEnv("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"),
		GeocodeCacheTTLDays: getIntEnv("GEOCODE_CACHE_TTL_DAYS", 365),

		ImageDir:       getEnv("IMAGE_DIR", "./images"),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		MaxImageSizeMB: getIntEnv("MAX_IMAGE_SIZE_MB", 10),
	}

	return config
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv gets an integer environment variable or returns a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
