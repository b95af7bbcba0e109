// Package config reads application configuration from environment
// variables, applying defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Logging   LoggingConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig describes connectivity to Postgres.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN renders the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level  string
	Format string // text|json
}

// AuthConfig holds session settings and the bootstrap admin credentials.
type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	AdminEmail string
	AdminName  string
	AdminPIN   string
}

// RateLimitConfig throttles the administrative mutating endpoints.
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

const (
	defaultHost            = "0.0.0.0"
	defaultPort            = 8080
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultLoggingLevel    = "info"
	defaultLoggingFormat   = "text"
	defaultTokenTTL        = 24 * time.Hour
	defaultRateLimit       = 30
	defaultRateWindow      = time.Minute
)

// Load reads configuration from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Host:            valueOrDefault("SERVER_HOST", defaultHost),
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			IdleTimeout:     defaultIdleTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Database: DatabaseConfig{
			Host:     valueOrDefault("DATABASE_HOST", "localhost"),
			Port:     parseIntWithDefault("DATABASE_PORT", 5432),
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			Name:     os.Getenv("POSTGRES_DB"),
			SSLMode:  valueOrDefault("DATABASE_SSLMODE", "disable"),
		},
		Logging: LoggingConfig{
			Level:  valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format: valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
		},
		Auth: AuthConfig{
			JWTSecret:  os.Getenv("JWT_SECRET"),
			TokenTTL:   defaultTokenTTL,
			AdminEmail: os.Getenv("ADMIN_EMAIL"),
			AdminName:  valueOrDefault("ADMIN_NAME", "Operations"),
			AdminPIN:   os.Getenv("ADMIN_PIN"),
		},
		RateLimit: RateLimitConfig{
			Limit:  parseIntWithDefault("RATE_LIMIT", defaultRateLimit),
			Window: defaultRateWindow,
		},
	}

	port, err := parsePort("SERVER_PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	if v := os.Getenv("TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TOKEN_TTL: %w", err)
		}
		cfg.Auth.TokenTTL = d
	}
	if v := os.Getenv("RATE_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RATE_WINDOW: %w", err)
		}
		cfg.RateLimit.Window = d
	}

	if cfg.Auth.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}
