// Package config loads configuration from environment variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all docmirror configuration.
type Config struct {
	// OAuth application
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	TokenFile    string

	// Platform API
	APIBaseURL           string
	HTTPTimeout          time.Duration
	RateLimitDefaultWait time.Duration
	RateLimitMaxAttempts int // 0 = retry forever

	// Output
	DownloadDir string

	// Storage backend ("local" or "s3", default: "local")
	StorageBackend string
	S3Endpoint     string
	S3Bucket       string
	S3Prefix       string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string

	// Metrics (optional, empty = disabled)
	MetricsAddr string
}

// Defaults for the platform endpoints.
const (
	DefaultAPIBaseURL  = "https://api.procore.com/rest/v1.0"
	DefaultAuthURL     = "https://login.procore.com/oauth/authorize"
	DefaultTokenURL    = "https://login.procore.com/oauth/token"
	DefaultRedirectURI = "urn:ietf:wg:oauth:2.0:oob"
)

// Load reads configuration from environment variables with defaults.
// Variables from envFile (if it exists) are loaded first; variables already
// set in the environment win.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		ClientID:             envOr("PROCORE_CLIENT_ID", ""),
		ClientSecret:         envOr("PROCORE_CLIENT_SECRET", ""),
		RedirectURI:          envOr("PROCORE_REDIRECT_URI", DefaultRedirectURI),
		AuthURL:              envOr("PROCORE_AUTH_URL", DefaultAuthURL),
		TokenURL:             envOr("PROCORE_TOKEN_URL", DefaultTokenURL),
		TokenFile:            envOr("TOKEN_FILE", ""),
		APIBaseURL:           envOr("PROCORE_API_URL", DefaultAPIBaseURL),
		HTTPTimeout:          envDuration("HTTP_TIMEOUT", 30*time.Second),
		RateLimitDefaultWait: envDuration("RATE_LIMIT_DEFAULT_WAIT", 60*time.Second),
		RateLimitMaxAttempts: envInt("RATE_LIMIT_MAX_ATTEMPTS", 0),
		DownloadDir:          envOr("DOWNLOAD_DIR", "procore_downloads"),
		StorageBackend:       envOr("STORAGE_BACKEND", "local"),
		S3Endpoint:           envOr("S3_ENDPOINT", ""),
		S3Bucket:             envOr("S3_BUCKET", ""),
		S3Prefix:             envOr("S3_PREFIX", ""),
		S3Region:             envOr("S3_REGION", "us-east-1"),
		S3AccessKey:          envOr("S3_ACCESS_KEY", ""),
		S3SecretKey:          envOr("S3_SECRET_KEY", ""),
		LogLevel:             envOr("LOG_LEVEL", "warn"),
		LogFormat:            envOr("LOG_FORMAT", "console"),
		LogFile:              envOr("LOG_FILE", ""),
		MetricsAddr:          envOr("METRICS_ADDR", ""),
	}

	if cfg.RateLimitMaxAttempts < 0 {
		return nil, fmt.Errorf("RATE_LIMIT_MAX_ATTEMPTS must be >= 0")
	}

	return cfg, nil
}

// ValidateStorage checks the storage backend settings. Only commands that
// write files call it.
func (c *Config) ValidateStorage() error {
	switch c.StorageBackend {
	case "local":
		if c.DownloadDir == "" {
			return fmt.Errorf("DOWNLOAD_DIR is required for the local storage backend")
		}
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 storage backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	return nil
}

// ValidateCredentials checks that the OAuth application is configured.
func (c *Config) ValidateCredentials() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return fmt.Errorf("client ID and secret are required (PROCORE_CLIENT_ID, PROCORE_CLIENT_SECRET)")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

// envDuration accepts Go durations ("90s") or plain seconds ("90").
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
