package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the teller client and bankd
type Config struct {
	// Environment
	Env string

	// Remote wallet service
	BankURL        string
	RequestTimeout time.Duration

	// Market data proxy (defaults to the wallet service base URL)
	MarketDataURL string

	// Local store / notifier
	RedisURL      string
	RedisPassword string

	// When the remote wallet service is unreachable, serve the last cached
	// balance instead of failing (availability over consistency).
	FallbackToCache bool

	// bankd only
	Port      string
	JWTSecret string
}

// Load loads configuration from the environment, reading a .env file first
// when one is present.
func Load() (*Config, error) {
	// Missing .env is not an error; real env vars win either way.
	_ = godotenv.Load()

	cfg := &Config{
		Env:             getEnv("ENV", "development"),
		BankURL:         getEnv("BANK_URL", "http://localhost:8080"),
		RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 15*time.Second),
		MarketDataURL:   getEnv("MARKET_DATA_URL", ""),
		RedisURL:        getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		FallbackToCache: getEnvAsBool("FALLBACK_TO_CACHE", true),
		Port:            getEnv("PORT", "8080"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
	}

	if cfg.MarketDataURL == "" {
		cfg.MarketDataURL = cfg.BankURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present
func (c *Config) Validate() error {
	if c.BankURL == "" {
		return fmt.Errorf("BANK_URL is required")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	return nil
}

// ValidateServer checks the extra settings bankd needs
func (c *Config) ValidateServer() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
