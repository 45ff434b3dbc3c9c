// Package config loads application configuration from the environment. The
// Config is constructed once at startup and passed down explicitly; nothing
// in this codebase reads configuration from globals after boot.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion     string
	DynamoDBTable string

	// Authentication. With a JWKS endpoint configured, tokens are RS256
	// verified against the provider's key set; otherwise JWTSecret enables
	// HS256 (development). Neither configured means dev-mode identity.
	AuthIssuer       string
	AuthAudience     []string
	AuthJWKSEndpoint string
	JWTSecret        string
	KeySetTTL        time.Duration

	// Logging and features
	LogLevel    string
	EnableCORS  bool
	CORSOrigins []string
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		AWSRegion:     getEnv("AWS_REGION", "ap-northeast-1"),
		DynamoDBTable: getEnv("TABLE_NAME", "milestone-manager"),

		AuthIssuer:       getEnv("AUTH_ISSUER", ""),
		AuthAudience:     getEnvList("AUTH_AUDIENCE"),
		AuthJWKSEndpoint: getEnv("AUTH_JWKS_ENDPOINT", ""),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		KeySetTTL:        getEnvDuration("KEY_SET_TTL", 15*time.Minute),

		LogLevel:    getEnv("LOG_LEVEL", "info"),
		EnableCORS:  getEnvBool("ENABLE_CORS", true),
		CORSOrigins: getEnvList("CORS_ORIGINS"),
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.DynamoDBTable == "" {
			return fmt.Errorf("TABLE_NAME is required")
		}
		if c.AuthJWKSEndpoint == "" && c.JWTSecret == "" {
			return fmt.Errorf("AUTH_JWKS_ENDPOINT or JWT_SECRET is required in production")
		}
	}
	if c.KeySetTTL <= 0 {
		return fmt.Errorf("KEY_SET_TTL must be positive")
	}
	return nil
}

// IsDevelopment checks if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
