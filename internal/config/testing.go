package config

import (
	"fmt"

	"github.com/rezkam/demand/internal/env"
)

// TestConfig holds configuration for integration tests.
// Suites skip themselves when their backend is not configured.
type TestConfig struct {
	DatabaseDSN string `env:"DEMAND_TEST_DB_DSN"`
	GCSBucket   string `env:"DEMAND_TEST_GCS_BUCKET"`
}

// LoadTestConfig loads test configuration from environment.
func LoadTestConfig() (*TestConfig, error) {
	cfg := &TestConfig{}

	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load test config: %w", err)
	}

	return cfg, nil
}
