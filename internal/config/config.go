// Package config loads flowtrackd server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	DatabaseURL string // FLOWTRACK_DATABASE_URL (required)
	HTTPAddr    string // FLOWTRACK_HTTP_ADDR (default ":8080")
	NATSURL     string // FLOWTRACK_NATS_URL (optional, empty = no realtime events)

	// Auth settings
	JWTSecret       string        // FLOWTRACK_JWT_SECRET (required)
	AccessTokenTTL  time.Duration // FLOWTRACK_ACCESS_TOKEN_TTL (default 15m)
	RefreshTokenTTL time.Duration // FLOWTRACK_REFRESH_TOKEN_TTL (default 168h)

	// Export settings
	ExportInterval   time.Duration // FLOWTRACK_EXPORT_INTERVAL (default 0 = disabled)
	ExportS3Bucket   string        // FLOWTRACK_EXPORT_S3_BUCKET (enables S3 when set)
	ExportS3Endpoint string        // FLOWTRACK_EXPORT_S3_ENDPOINT (custom endpoint for MinIO)
	ExportS3Region   string        // FLOWTRACK_EXPORT_S3_REGION (default "us-east-1")
	ExportS3Key      string        // FLOWTRACK_EXPORT_S3_KEY (default "flowtrack/tasks.jsonl")
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:      os.Getenv("FLOWTRACK_DATABASE_URL"),
		HTTPAddr:         envOrDefault("FLOWTRACK_HTTP_ADDR", ":8080"),
		NATSURL:          os.Getenv("FLOWTRACK_NATS_URL"),
		JWTSecret:        os.Getenv("FLOWTRACK_JWT_SECRET"),
		ExportS3Bucket:   os.Getenv("FLOWTRACK_EXPORT_S3_BUCKET"),
		ExportS3Endpoint: os.Getenv("FLOWTRACK_EXPORT_S3_ENDPOINT"),
		ExportS3Region:   envOrDefault("FLOWTRACK_EXPORT_S3_REGION", "us-east-1"),
		ExportS3Key:      envOrDefault("FLOWTRACK_EXPORT_S3_KEY", "flowtrack/tasks.jsonl"),
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("FLOWTRACK_DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return nil, fmt.Errorf("FLOWTRACK_JWT_SECRET is required")
	}

	for _, d := range []struct {
		key      string
		fallback string
		dst      *time.Duration
	}{
		{"FLOWTRACK_ACCESS_TOKEN_TTL", "15m", &c.AccessTokenTTL},
		{"FLOWTRACK_REFRESH_TOKEN_TTL", "168h", &c.RefreshTokenTTL},
		{"FLOWTRACK_EXPORT_INTERVAL", "0s", &c.ExportInterval},
	} {
		v, err := time.ParseDuration(envOrDefault(d.key, d.fallback))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = v
	}

	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
