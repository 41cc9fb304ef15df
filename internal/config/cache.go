package config

import (
	"fmt"
	"time"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// CacheConfig configures the matrix cache and its invalidation breaker.
type CacheConfig struct {
	Backend   string        `env:"DEMAND_CACHE_BACKEND" default:"memory"` // memory, redis
	RedisURL  string        `env:"DEMAND_REDIS_URL"`
	Namespace string        `env:"DEMAND_CACHE_NAMESPACE" default:"default"`
	TTL       time.Duration `env:"DEMAND_CACHE_TTL" default:"10m"`

	// Cooldown is the minimum spacing between two invalidations of one view.
	Cooldown time.Duration `env:"DEMAND_CACHE_COOLDOWN" default:"1s"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	switch c.Backend {
	case CacheMemory:
	case CacheRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("DEMAND_REDIS_URL is required when DEMAND_CACHE_BACKEND is 'redis'")
		}
	default:
		return fmt.Errorf("unsupported DEMAND_CACHE_BACKEND %q: use memory or redis", c.Backend)
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("DEMAND_CACHE_COOLDOWN must be >= 0")
	}
	return nil
}
