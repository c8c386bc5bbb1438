// Package config loads and validates the API server's configuration from
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Set CORS_ORIGINS to a comma-separated list; empty allows none.
	CORSOrigins []string

	// JWTSecret signs bearer tokens. Required.
	JWTSecret string

	// TokenTTL is the lifetime of issued tokens. Defaults to 168h.
	TokenTTL time.Duration

	// MaxBodyBytes caps photo upload bodies. Defaults to 5 MiB.
	MaxBodyBytes int64

	// MaxDocumentBytes caps every other request body. Defaults to 256 KiB.
	MaxDocumentBytes int64

	// MigrateOnStart applies pending goose migrations at startup. Defaults to true.
	MigrateOnStart bool

	S3 S3
}

// S3 addresses the bucket holding profile photos.
type S3 struct {
	Endpoint  string // empty means AWS itself
	Region    string // defaults to us-east-1
	Bucket    string // defaults to packsync
	AccessKey string
	SecretKey string
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set, or the
// first variable that cannot be parsed.
func Load() (Config, error) {
	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitCSV(os.Getenv("CORS_ORIGINS")),
		S3: S3{
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			Region:    getEnv("S3_REGION", "us-east-1"),
			Bucket:    getEnv("S3_BUCKET", "packsync"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
		},
	}

	var err error
	if cfg.TokenTTL, err = time.ParseDuration(getEnv("TOKEN_TTL", "168h")); err != nil || cfg.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("invalid TOKEN_TTL %q", os.Getenv("TOKEN_TTL"))
	}
	if cfg.MaxBodyBytes, err = strconv.ParseInt(getEnv("MAX_BODY_BYTES", "5242880"), 10, 64); err != nil || cfg.MaxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("invalid MAX_BODY_BYTES %q", os.Getenv("MAX_BODY_BYTES"))
	}
	if cfg.MaxDocumentBytes, err = strconv.ParseInt(getEnv("MAX_DOCUMENT_BYTES", "262144"), 10, 64); err != nil || cfg.MaxDocumentBytes <= 0 {
		return Config{}, fmt.Errorf("invalid MAX_DOCUMENT_BYTES %q", os.Getenv("MAX_DOCUMENT_BYTES"))
	}
	if cfg.MigrateOnStart, err = strconv.ParseBool(getEnv("MIGRATE_ON_START", "true")); err != nil {
		return Config{}, fmt.Errorf("invalid MIGRATE_ON_START %q", os.Getenv("MIGRATE_ON_START"))
	}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
