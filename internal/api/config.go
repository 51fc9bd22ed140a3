// Package api provides the HTTP server for the dog breed prediction service.
package api

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/tphakala/dogbreed-go/internal/conf"
	"github.com/tphakala/dogbreed-go/internal/logger"
)

// GetLogger returns the api package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// Default constants for the HTTP server.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultBodyLimit       = "1M"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Server binding
	Host string
	Port int

	AllowedOrigins []string // CORS allowed origins

	// Timeouts
	ReadTimeout     time.Duration // Maximum duration for reading request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum time to wait for next request
	ShutdownTimeout time.Duration // Maximum time to wait for graceful shutdown

	// Limits
	BodyLimit string // Maximum request body size (e.g., "1M", "10M")

	RateLimitEnabled bool
	RateLimit        float64 // requests per second per client
	RateBurst        int

	MetricsEnabled bool
	Debug          bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:            8000,
		AllowedOrigins:  []string{"http://localhost:5173", "http://localhost:3000"},
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		BodyLimit:       DefaultBodyLimit,
		MetricsEnabled:  true,
	}
}

// ConfigFromSettings creates a Config from the application settings.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()
	server := settings.Server

	cfg.Host = server.Host
	cfg.Port = server.Port
	if len(server.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = server.AllowedOrigins
	}
	if server.ReadTimeout > 0 {
		cfg.ReadTimeout = server.ReadTimeout
	}
	if server.WriteTimeout > 0 {
		cfg.WriteTimeout = server.WriteTimeout
	}
	if server.ShutdownTimeout > 0 {
		cfg.ShutdownTimeout = server.ShutdownTimeout
	}
	if server.BodyLimit != "" {
		cfg.BodyLimit = server.BodyLimit
	}

	cfg.RateLimitEnabled = server.RateLimit.Enabled
	cfg.RateLimit = server.RateLimit.Rate
	cfg.RateBurst = server.RateLimit.Burst

	cfg.MetricsEnabled = settings.Metrics.Enabled
	cfg.Debug = settings.Debug
	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if c.RateLimitEnabled && (c.RateLimit <= 0 || c.RateBurst < 1) {
		return fmt.Errorf("rate limit needs a positive rate and burst")
	}
	return nil
}

// Address returns the full address string for the server to listen on.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
