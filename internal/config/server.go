package config

import (
	"fmt"
	"time"

	"github.com/rezkam/demand/internal/env"
)

// ServerConfig holds all configuration for the server binary.
type ServerConfig struct {
	Source          SourceConfig
	Cache           CacheConfig
	Retry           RetryConfig
	Matrix          MatrixConfig
	HTTP            HTTPConfig
	Observability   ObservabilityConfig
	ShutdownTimeout time.Duration `env:"DEMAND_SHUTDOWN_TIMEOUT" default:"10s"`

	// WarmupInterval is the period of the cache warmer; zero disables it.
	WarmupInterval time.Duration `env:"DEMAND_WARMUP_INTERVAL" default:"5m"`
}

// HTTPConfig holds HTTP server configuration.
// Zero values fall back to the HTTP server defaults.
type HTTPConfig struct {
	Host              string        `env:"DEMAND_HTTP_HOST"`
	Port              string        `env:"DEMAND_HTTP_PORT"`
	ReadTimeout       time.Duration `env:"DEMAND_HTTP_READ_TIMEOUT"`
	WriteTimeout      time.Duration `env:"DEMAND_HTTP_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `env:"DEMAND_HTTP_IDLE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `env:"DEMAND_HTTP_READ_HEADER_TIMEOUT"`
	MaxHeaderBytes    int           `env:"DEMAND_HTTP_MAX_HEADER_BYTES"`
	MaxBodyBytes      int64         `env:"DEMAND_HTTP_MAX_BODY_BYTES"`
}

// ObservabilityConfig holds observability configuration.
type ObservabilityConfig struct {
	OTelEnabled bool   `env:"DEMAND_OTEL_ENABLED"`
	ServiceName string `env:"OTEL_SERVICE_NAME" default:"demand"`
}

// LoadServerConfig loads and validates server configuration from environment.
func LoadServerConfig() (*ServerConfig, error) {
	cfg := &ServerConfig{}

	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}

	return cfg, nil
}
