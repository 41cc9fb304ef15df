package config

import (
	"fmt"

	"github.com/rezkam/demand/internal/env"
)

// CLIConfig holds all configuration for the demandctl binary.
type CLIConfig struct {
	Source        SourceConfig
	Cache         CacheConfig
	Retry         RetryConfig
	Matrix        MatrixConfig
	Observability ObservabilityConfig
}

// LoadCLIConfig loads and validates demandctl configuration from environment.
func LoadCLIConfig() (*CLIConfig, error) {
	cfg := &CLIConfig{}

	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load cli config: %w", err)
	}

	return cfg, nil
}
