package config

import (
	"fmt"
	"time"

	"github.com/rezkam/demand/internal/domain"
)

// MatrixConfig configures the matrix window and how views load it.
type MatrixConfig struct {
	Months int `env:"DEMAND_MATRIX_MONTHS" default:"12"`
	// StartMonth pins the first column ("2025-01"); empty means the current month.
	StartMonth string `env:"DEMAND_MATRIX_START_MONTH"`

	Debounce         time.Duration `env:"DEMAND_DEBOUNCE" default:"800ms"`
	LoadTimeout      time.Duration `env:"DEMAND_LOAD_TIMEOUT" default:"2m"`
	StrictExtraction bool          `env:"DEMAND_STRICT_EXTRACTION"`
}

// Validate validates the matrix configuration.
func (c *MatrixConfig) Validate() error {
	if c.Months <= 0 {
		return fmt.Errorf("DEMAND_MATRIX_MONTHS must be > 0, got %d", c.Months)
	}
	if c.StartMonth != "" {
		if _, err := domain.ParseMonthKey(c.StartMonth); err != nil {
			return fmt.Errorf("DEMAND_MATRIX_START_MONTH: %w", err)
		}
	}
	return nil
}

// Window returns the configured month window. now is used when no start month is pinned.
func (c *MatrixConfig) Window(now time.Time) domain.MonthWindow {
	if c.StartMonth != "" {
		if start, err := domain.ParseMonthKey(c.StartMonth); err == nil {
			return domain.NewMonthWindow(start, c.Months)
		}
	}
	return domain.NewMonthWindow(now, c.Months)
}

// RetryConfig configures load retries.
type RetryConfig struct {
	BaseDelay   time.Duration `env:"DEMAND_RETRY_BASE_DELAY" default:"1s"`
	MaxDelay    time.Duration `env:"DEMAND_RETRY_MAX_DELAY" default:"30s"`
	MaxAttempts int           `env:"DEMAND_RETRY_MAX_ATTEMPTS" default:"5"`
}

// Validate validates the retry configuration.
func (c *RetryConfig) Validate() error {
	if c.BaseDelay <= 0 || c.MaxDelay < c.BaseDelay {
		return fmt.Errorf("DEMAND_RETRY_MAX_DELAY (%s) must be >= DEMAND_RETRY_BASE_DELAY (%s) > 0", c.MaxDelay, c.BaseDelay)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("DEMAND_RETRY_MAX_ATTEMPTS must be >= 1")
	}
	return nil
}
