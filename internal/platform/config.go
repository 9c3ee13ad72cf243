// Package platform wires the conference back-office HTTP service: config,
// routes, middleware, and the server lifecycle.
package platform

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the platform service.
type Config struct {
	DataDir     string
	BindAddress string
	Port        int
	BaseURL     string

	// AdminKeyHash is the bcrypt hash of the back-office admin key.
	// Generate one with `zurichjs hashkey <key>`.
	AdminKeyHash string

	PublicMetrics bool

	StripeWebhookSecret string
	StripeAPIKey        string

	ResendAPIKey string // optional - if empty, emails are logged
	EmailFrom    string

	RateLimitWindow  time.Duration
	RateLimitMax     int
	RateLimitCleanup time.Duration
	RateLimitExempt  []string // wildcard identifier patterns, e.g. "10.0.*"
	EmailPacingDelay time.Duration
}

// StoreDir returns the directory holding the platform database.
func (c *Config) StoreDir() string {
	return filepath.Join(c.DataDir, "store")
}

// LoadConfig loads the service configuration from environment variables.
// A .env file is loaded if present but not required.
func LoadConfig() (*Config, error) {
	// Best-effort .env loading (not required)
	_ = godotenv.Load()

	port, err := envOrDefaultInt("CONF_PORT", 8880)
	if err != nil {
		return nil, err
	}
	window, err := envOrDefaultDuration("CONF_RATE_LIMIT_WINDOW", time.Minute)
	if err != nil {
		return nil, err
	}
	maxRequests, err := envOrDefaultInt("CONF_RATE_LIMIT_MAX", 60)
	if err != nil {
		return nil, err
	}
	cleanup, err := envOrDefaultDuration("CONF_RATE_LIMIT_CLEANUP", time.Minute)
	if err != nil {
		return nil, err
	}
	pacing, err := envOrDefaultDuration("CONF_EMAIL_PACING_DELAY", 600*time.Millisecond)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir:             envOrDefault("CONF_DATA_DIR", "/data"),
		BindAddress:         envOrDefault("CONF_BIND_ADDRESS", "0.0.0.0"),
		Port:                port,
		BaseURL:             strings.TrimSpace(os.Getenv("CONF_BASE_URL")),
		AdminKeyHash:        strings.TrimSpace(os.Getenv("CONF_ADMIN_KEY_HASH")),
		PublicMetrics:       envBool("CONF_PUBLIC_METRICS"),
		StripeWebhookSecret: strings.TrimSpace(os.Getenv("STRIPE_WEBHOOK_SECRET")),
		StripeAPIKey:        strings.TrimSpace(os.Getenv("STRIPE_API_KEY")),
		ResendAPIKey:        strings.TrimSpace(os.Getenv("RESEND_API_KEY")),
		EmailFrom:           envOrDefault("CONF_EMAIL_FROM", "tickets@zurichjs.com"),
		RateLimitWindow:     window,
		RateLimitMax:        maxRequests,
		RateLimitCleanup:    cleanup,
		RateLimitExempt:     splitList(os.Getenv("CONF_RATE_LIMIT_EXEMPT")),
		EmailPacingDelay:    pacing,
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate platform config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.AdminKeyHash == "" {
		missing = append(missing, "CONF_ADMIN_KEY_HASH")
	}
	if c.BaseURL == "" {
		missing = append(missing, "CONF_BASE_URL")
	}
	if c.StripeWebhookSecret == "" {
		missing = append(missing, "STRIPE_WEBHOOK_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("CONF_PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("CONF_RATE_LIMIT_WINDOW must be greater than 0, got %s", c.RateLimitWindow)
	}
	if c.RateLimitMax <= 0 {
		return fmt.Errorf("CONF_RATE_LIMIT_MAX must be greater than 0, got %d", c.RateLimitMax)
	}

	parsedBaseURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("CONF_BASE_URL must be a valid URL: %w", err)
	}
	if parsedBaseURL.Scheme != "http" && parsedBaseURL.Scheme != "https" {
		return fmt.Errorf("CONF_BASE_URL must use http or https scheme")
	}
	if parsedBaseURL.Host == "" {
		return fmt.Errorf("CONF_BASE_URL must include a host")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) (int, error) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
		}
		return n, nil
	}
	return fallback, nil
}

func envOrDefaultDuration(key string, fallback time.Duration) (time.Duration, error) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid duration (e.g. 1m, 30s): %w", key, err)
		}
		return d, nil
	}
	return fallback, nil
}

func envBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
