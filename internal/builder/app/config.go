package app

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIURL   string   // Required: base URL of the portfolio API
	AuthURL  string   // Required: base URL of the auth provider, JWKS at /.well-known/jwks.json
	Issuer   string   // Optional: expected token issuer (default: folio-auth)
	Audience []string // Optional: accepted token audiences, comma separated

	RequiredScopes []string // Optional: any one of these scopes is required on authenticated routes

	DatabaseFile string        // Optional: path to SQLite database file for the media library (default: ./folio.db)
	DraftCache   string        // Optional: draft cache backend (memory, redis) (default: memory)
	RedisAddr    string        // Optional: redis address when DraftCache is redis (default: localhost:6379)
	RedisPass    string        // Optional: redis password
	RedisDB      int           // Optional: redis database number (default: 0)
	DraftTTL     time.Duration // Optional: idle draft lifetime (default: 24h)

	MediaProvider          string // Optional: image host (cloudinary, s3); empty disables uploads
	CloudinaryCloudName    string
	CloudinaryUploadPreset string // Optional: unsigned preset (default: portbuilder)
	S3Bucket               string
	S3PublicBaseURL        string
	AWSRegion              string
	MaxUploadBytes         int64 // Optional: multipart upload cap (default: 10 MiB)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Idle draft sweep interval (default: 5m)
	JWKSRefreshInterval  time.Duration // JWKS refresh interval (default: 15m)
}

// LoadConfig reads the environment. A .env file in the working directory is
// loaded first when present.
func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg := Config{
		APIURL:   getEnvOrDefault("FOLIO_API_URL", "http://localhost:3000"),
		AuthURL:  getEnvOrDefault("AUTH_URL", "http://localhost:8081"),
		Issuer:   getEnvOrDefault("AUTH_ISSUER", "folio-auth"),
		Audience: getEnvListOrDefault("AUTH_AUDIENCE", nil),

		RequiredScopes: getEnvListOrDefault("AUTH_REQUIRED_SCOPES", nil),

		DatabaseFile: getEnvOrDefault("FOLIO_DATABASE_FILE", "folio.db"),
		DraftCache:   strings.ToLower(getEnvOrDefault("DRAFT_CACHE", "memory")),
		RedisAddr:    getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPass:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:      getEnvIntOrDefault("REDIS_DB", 0),
		DraftTTL:     getEnvDurationOrDefault("DRAFT_TTL", 24*time.Hour),

		MediaProvider:          strings.ToLower(os.Getenv("MEDIA_PROVIDER")),
		CloudinaryCloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryUploadPreset: getEnvOrDefault("CLOUDINARY_UPLOAD_PRESET", "portbuilder"),
		S3Bucket:               os.Getenv("S3_BUCKET"),
		S3PublicBaseURL:        os.Getenv("S3_PUBLIC_BASE_URL"),
		AWSRegion:              getEnvOrDefault("AWS_REGION", "ap-southeast-2"),
		MaxUploadBytes:         int64(getEnvIntOrDefault("MAX_UPLOAD_BYTES", 10<<20)),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 5*time.Minute),
		JWKSRefreshInterval:  getEnvDurationOrDefault("JWKS_REFRESH_INTERVAL", 15*time.Minute),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for part := range strings.SplitSeq(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
