package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries the process-wide settings read once at startup. Endpoint
// settings here are only the seed for the registry's reserved default entry;
// runtime endpoint management happens through the registry itself.
type Config struct {
	Host string
	Port string

	// Defaults for the reserved "default" OCR endpoint
	OCRAPIURL      string
	RequestTimeout time.Duration
	MaxRetries     int
	RetryDelay     time.Duration

	// Upload limits
	MaxFileSize        int64
	MaxRequestBodySize int64

	// Endpoint registry persistence
	EndpointsFile      string
	AzureAccountName   string
	AzureAccountKey    string
	EndpointsContainer string
	EndpointsBlob      string

	CORSOrigins []string
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// UseBlobStore reports whether the registry document should live in Azure
// Blob Storage instead of the local filesystem.
func (c *Config) UseBlobStore() bool {
	return c.AzureAccountName != "" && c.AzureAccountKey != ""
}

func LoadFromEnv() (*Config, error) {
	// Optional .env file, same precedence as the shell environment
	_ = godotenv.Load()

	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		OCRAPIURL:          getEnvOrDefault("OCR_API_URL", "http://3.108.164.82:1428/upload"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		MaxRetries:         int(parseIntOrDefault("MAX_RETRIES", 3)),
		RetryDelay:         parseDurationOrDefault("RETRY_DELAY", 1*time.Second),
		MaxFileSize:        parseIntOrDefault("MAX_FILE_SIZE", 10*1024*1024),         // 10MB
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 16*1024*1024), // 16MB
		EndpointsFile:      getEnvOrDefault("ENDPOINTS_FILE", "api_endpoints.json"),
		AzureAccountName:   os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureAccountKey:    os.Getenv("AZURE_STORAGE_KEY"),
		EndpointsContainer: getEnvOrDefault("ENDPOINTS_CONTAINER", "config"),
		EndpointsBlob:      getEnvOrDefault("ENDPOINTS_BLOB", "api_endpoints.json"),
		CORSOrigins:        splitOrigins(getEnvOrDefault("CORS_ORIGINS", "*")),
	}

	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.OCRAPIURL == "" {
		return nil, fmt.Errorf("OCR_API_URL is required")
	}
	if _, err := url.ParseRequestURI(cfg.OCRAPIURL); err != nil {
		return nil, fmt.Errorf("invalid OCR_API_URL: %w", err)
	}
	if cfg.RequestTimeout <= 0 || cfg.RetryDelay <= 0 {
		return nil, fmt.Errorf("timeouts must be > 0 (got request=%s, retry_delay=%s)",
			cfg.RequestTimeout, cfg.RetryDelay)
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("MAX_RETRIES must be >= 0 (got %d)", cfg.MaxRetries)
	}
	if cfg.MaxFileSize <= 0 || cfg.MaxRequestBodySize <= 0 {
		return nil, fmt.Errorf("upload limits must be > 0 (got file=%d, body=%d)",
			cfg.MaxFileSize, cfg.MaxRequestBodySize)
	}
	return cfg, nil
}

func splitOrigins(value string) []string {
	parts := strings.Split(value, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
		// The original deployment configured plain seconds
		if secs, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
