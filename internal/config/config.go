package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server config
	Server ServerConfig

	// database config
	Database DatabaseConfig

	// direct provider config
	Gemini GeminiConfig

	// backend proxy config
	Proxy ProxyConfig

	// retry/backoff tuning
	Retry RetryConfig

	// metrics collector tuning
	Metrics MetricsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	BaseURL     string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL string
}

// GeminiConfig holds direct provider configuration.
type GeminiConfig struct {
	APIKey          string
	BaseURL         string
	Temperature     float64
	MaxOutputTokens int
}

// ProxyConfig holds configuration for the authenticated proxy strategy.
type ProxyConfig struct {
	BaseURL     string
	BearerToken string
	UserID      string
}

// RetryConfig tunes the outbound retry policy.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// MetricsConfig tunes the call metrics collector.
type MetricsConfig struct {
	MaxEntries int
	StorageKey string
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	// This is useful for local development but not required in production
	// where env vars are typically set by the orchestration platform
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Server = ServerConfig{
		Port:        getEnvOrDefault("SERVER_PORT", "8080"),
		Environment: getEnvOrDefault("APP_ENV", "development"),
		BaseURL:     getEnvOrDefault("BASE_URL", "http://localhost:8080"),
	}

	cfg.Database = DatabaseConfig{
		URL: os.Getenv("DATABASE_URL"),
	}

	temperature, err := strconv.ParseFloat(getEnvOrDefault("GEMINI_TEMPERATURE", "0.7"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid GEMINI_TEMPERATURE: %w", err)
	}

	maxTokens, err := strconv.Atoi(getEnvOrDefault("GEMINI_MAX_OUTPUT_TOKENS", "2048"))
	if err != nil {
		return nil, fmt.Errorf("invalid GEMINI_MAX_OUTPUT_TOKENS: %w", err)
	}

	cfg.Gemini = GeminiConfig{
		APIKey:          os.Getenv("GEMINI_API_KEY"),
		BaseURL:         getEnvOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash"),
		Temperature:     temperature,
		MaxOutputTokens: maxTokens,
	}

	cfg.Proxy = ProxyConfig{
		BaseURL:     os.Getenv("PROXY_BASE_URL"),
		BearerToken: os.Getenv("PROXY_BEARER_TOKEN"),
		UserID:      os.Getenv("PROXY_USER_ID"),
	}

	maxAttempts, err := strconv.Atoi(getEnvOrDefault("RETRY_MAX_ATTEMPTS", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid RETRY_MAX_ATTEMPTS: %w", err)
	}

	initialBackoffMs, err := strconv.Atoi(getEnvOrDefault("RETRY_INITIAL_BACKOFF_MS", "1000"))
	if err != nil {
		return nil, fmt.Errorf("invalid RETRY_INITIAL_BACKOFF_MS: %w", err)
	}

	maxBackoffMs, err := strconv.Atoi(getEnvOrDefault("RETRY_MAX_BACKOFF_MS", "10000"))
	if err != nil {
		return nil, fmt.Errorf("invalid RETRY_MAX_BACKOFF_MS: %w", err)
	}

	cfg.Retry = RetryConfig{
		MaxAttempts:    maxAttempts,
		InitialBackoff: time.Duration(initialBackoffMs) * time.Millisecond,
		MaxBackoff:     time.Duration(maxBackoffMs) * time.Millisecond,
	}

	maxEntries, err := strconv.Atoi(getEnvOrDefault("METRICS_MAX_ENTRIES", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid METRICS_MAX_ENTRIES: %w", err)
	}

	cfg.Metrics = MetricsConfig{
		MaxEntries: maxEntries,
		StorageKey: getEnvOrDefault("METRICS_STORAGE_KEY", "ai_call_metrics"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks that all required configuration is present and valid.
// Fail fast at startup rather than when a missing value is first used.
func (c *Config) validate() error {
	var errs []error

	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}

	// At least one backend strategy must be usable
	if c.Gemini.APIKey == "" && c.Proxy.BaseURL == "" {
		errs = append(errs, errors.New("either GEMINI_API_KEY or PROXY_BASE_URL must be set"))
	}

	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("RETRY_MAX_ATTEMPTS must be at least 1"))
	}

	if c.Metrics.MaxEntries < 1 {
		errs = append(errs, errors.New("METRICS_MAX_ENTRIES must be at least 1"))
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.Server.Environment] {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of: development, staging, production (got: %s)", c.Server.Environment))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%w", errors.Join(errs...))
	}

	return nil
}

// getEnvOrDefault returns the .env value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// MustLoad is like Load but panics on error.
// Used in main() where its required to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
