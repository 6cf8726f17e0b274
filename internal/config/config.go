// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"peercall-backend/pkg/constants"
	"peercall-backend/pkg/env"
)

// Config holds all configuration for the service
type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	CORS      CORSConfig
	JWT       JWTConfig
	Metrics   MetricsConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int
	Environment string // development, staging, production
	ServiceName string
}

// WebSocketConfig holds signaling transport configuration
type WebSocketConfig struct {
	MaxConnections int
}

// CORSConfig holds the origin allowlist shared by the HTTP API and
// the WebSocket upgrade check
type CORSConfig struct {
	AllowedOrigins []string
}

// JWTConfig holds token configuration
type JWTConfig struct {
	Secret      string
	TokenExpiry time.Duration
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level    string // debug, info, warn, error
	Format   string // json, console
	Output   string // stdout, file
	FilePath string
}

const devFallbackSecret = "dev-secret-change-me-before-deploying"

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        env.GetInt("PORT", 8080),
			Environment: env.GetString("ENV", "development"),
			ServiceName: env.GetString("SERVICE_NAME", "signaling-service"),
		},
		WebSocket: WebSocketConfig{
			MaxConnections: env.GetInt("WS_MAX_CONNECTIONS", constants.DefaultMaxConnections),
		},
		CORS: CORSConfig{
			AllowedOrigins: env.GetStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		JWT: JWTConfig{
			Secret:      env.GetStringFromFile("JWT_SECRET", devFallbackSecret),
			TokenExpiry: env.GetDuration("JWT_TOKEN_EXPIRY", constants.AccessTokenExpiry),
		},
		Metrics: MetricsConfig{
			Enabled: env.GetBool("METRICS_ENABLED", true),
		},
		Log: LogConfig{
			Level:    env.GetString("LOG_LEVEL", "info"),
			Format:   env.GetString("LOG_FORMAT", "json"),
			Output:   env.GetString("LOG_OUTPUT", "stdout"),
			FilePath: env.GetString("LOG_FILE_PATH", "logs/signaling.log"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.WebSocket.MaxConnections < 1 {
		return fmt.Errorf("WS_MAX_CONNECTIONS must be positive")
	}

	if c.IsProduction() {
		if c.JWT.Secret == "" || c.JWT.Secret == devFallbackSecret {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
		}
	}

	return nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
