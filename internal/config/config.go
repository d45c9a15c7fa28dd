// Package config handles application configuration from environment variables
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Signing key (oracle only). Either a path to a file holding the raw
	// 32-byte key (or its hex encoding), or the hex key directly.
	SigningKeyFile string
	SigningKeyHex  string

	// Completion service (oracle only)
	CompletionURL    string
	CompletionModel  string
	CompletionAPIKey string

	// Upstream feature aggregator (oracle only; optional)
	AggregatorURL string

	// Database (admission service; optional, uses in-memory if not set)
	DatabaseURL string

	// Expected enclave measurements for bootstrap, hex, comma-separated
	// (admission service only)
	Measurements string

	// Security
	RateLimitRPM int
}

// Defaults
const (
	DefaultPort            = "8080"
	DefaultEnv             = "development"
	DefaultLogLevel        = "info"
	DefaultCompletionURL   = "https://api.openai.com"
	DefaultCompletionModel = "gpt-4o-mini"
	DefaultRateLimit       = 60
)

// Load reads oracle configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := fromEnv()

	if err := cfg.validateOracle(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadAdmission reads configuration for the ledger-side admission service.
// It does not require a signing key; the admission service only verifies.
func LoadAdmission() (*Config, error) {
	_ = godotenv.Load()

	cfg := fromEnv()

	if err := cfg.validateAdmission(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv() *Config {
	return &Config{
		Port:             getEnv("PORT", DefaultPort),
		Env:              getEnv("ENV", DefaultEnv),
		LogLevel:         getEnv("LOG_LEVEL", DefaultLogLevel),
		SigningKeyFile:   os.Getenv("SIGNING_KEY_FILE"),
		SigningKeyHex:    os.Getenv("SIGNING_KEY"),
		CompletionURL:    getEnv("COMPLETION_URL", DefaultCompletionURL),
		CompletionModel:  getEnv("COMPLETION_MODEL", DefaultCompletionModel),
		CompletionAPIKey: os.Getenv("COMPLETION_API_KEY"),
		AggregatorURL:    os.Getenv("AGGREGATOR_URL"),
		DatabaseURL:      os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		Measurements:     os.Getenv("ENCLAVE_MEASUREMENTS"),
		RateLimitRPM:     int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateLimit)),
	}
}

func (c *Config) validateOracle() error {
	if c.SigningKeyFile == "" && c.SigningKeyHex == "" {
		return fmt.Errorf("SIGNING_KEY_FILE or SIGNING_KEY is required")
	}

	if c.SigningKeyHex != "" {
		key := strings.TrimPrefix(c.SigningKeyHex, "0x")
		if len(key) != 64 {
			return fmt.Errorf("SIGNING_KEY must be 64 hex characters (with or without 0x prefix)")
		}
		if _, err := hex.DecodeString(key); err != nil {
			return fmt.Errorf("SIGNING_KEY must be valid hex: %w", err)
		}
	}

	if c.CompletionURL == "" {
		return fmt.Errorf("COMPLETION_URL is required")
	}

	return nil
}

func (c *Config) validateAdmission() error {
	// Measurements are only needed when bootstrapping a fresh store; the
	// store itself decides whether bootstrap runs. Validate shape if set.
	if c.Measurements != "" {
		parts := strings.Split(c.Measurements, ",")
		if len(parts) != 4 {
			return fmt.Errorf("ENCLAVE_MEASUREMENTS must contain exactly 4 comma-separated hex values")
		}
		for i, p := range parts {
			if _, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(p), "0x")); err != nil {
				return fmt.Errorf("ENCLAVE_MEASUREMENTS[%d] must be valid hex: %w", i, err)
			}
		}
	}
	return nil
}

// MeasurementBytes decodes the configured measurements into raw byte slices.
func (c *Config) MeasurementBytes() ([][]byte, error) {
	if c.Measurements == "" {
		return nil, nil
	}
	parts := strings.Split(c.Measurements, ",")
	out := make([][]byte, 0, len(parts))
	for _, p := range parts {
		b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(p), "0x"))
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}
