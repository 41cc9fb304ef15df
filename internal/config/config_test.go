package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerConfig_Defaults(t *testing.T) {
	cfg, err := LoadServerConfig()
	require.NoError(t, err)

	assert.Equal(t, SourceSQLite, cfg.Source.Type)
	assert.Equal(t, "./demand.db", cfg.Source.SQLitePath)
	assert.True(t, cfg.Source.AutoMigrate)

	assert.Equal(t, CacheMemory, cfg.Cache.Backend)
	assert.Equal(t, time.Second, cfg.Cache.Cooldown)

	assert.Equal(t, time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, 30*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)

	assert.Equal(t, 12, cfg.Matrix.Months)
	assert.Equal(t, 800*time.Millisecond, cfg.Matrix.Debounce)
	assert.False(t, cfg.Matrix.StrictExtraction)

	assert.False(t, cfg.Observability.OTelEnabled)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 5*time.Minute, cfg.WarmupInterval)
	assert.Zero(t, cfg.HTTP.ReadTimeout, "zero means server default")
}

func TestLoadServerConfig_WithEnv(t *testing.T) {
	t.Setenv("DEMAND_SOURCE_TYPE", "postgres")
	t.Setenv("DEMAND_DB_DSN", "postgres://demand:secret@db:5432/demand")
	t.Setenv("DEMAND_CACHE_BACKEND", "redis")
	t.Setenv("DEMAND_REDIS_URL", "redis://cache:6379/0")
	t.Setenv("DEMAND_CACHE_COOLDOWN", "250ms")
	t.Setenv("DEMAND_STRICT_EXTRACTION", "true")
	t.Setenv("DEMAND_MATRIX_START_MONTH", "2025-04")
	t.Setenv("DEMAND_HTTP_PORT", "9090")

	cfg, err := LoadServerConfig()
	require.NoError(t, err)

	assert.Equal(t, SourcePostgres, cfg.Source.Type)
	assert.Equal(t, "postgres://demand:secret@db:5432/demand", cfg.Source.DSN)
	assert.Equal(t, CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, 250*time.Millisecond, cfg.Cache.Cooldown)
	assert.True(t, cfg.Matrix.StrictExtraction)
	assert.Equal(t, "9090", cfg.HTTP.Port)

	w := cfg.Matrix.Window(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, 12, w.Count)
}

func TestLoadServerConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "postgres without dsn",
			env:     map[string]string{"DEMAND_SOURCE_TYPE": "postgres"},
			wantErr: "DEMAND_DB_DSN is required",
		},
		{
			name:    "fs without snapshot",
			env:     map[string]string{"DEMAND_SOURCE_TYPE": "fs"},
			wantErr: "DEMAND_SNAPSHOT_PATH is required",
		},
		{
			name:    "gcs without bucket",
			env:     map[string]string{"DEMAND_SOURCE_TYPE": "gcs"},
			wantErr: "DEMAND_GCS_BUCKET is required",
		},
		{
			name:    "unknown source",
			env:     map[string]string{"DEMAND_SOURCE_TYPE": "mysql"},
			wantErr: "unsupported DEMAND_SOURCE_TYPE",
		},
		{
			name:    "redis without url",
			env:     map[string]string{"DEMAND_CACHE_BACKEND": "redis"},
			wantErr: "DEMAND_REDIS_URL is required",
		},
		{
			name:    "bad start month",
			env:     map[string]string{"DEMAND_MATRIX_START_MONTH": "April"},
			wantErr: "DEMAND_MATRIX_START_MONTH",
		},
		{
			name:    "max delay below base",
			env:     map[string]string{"DEMAND_RETRY_BASE_DELAY": "5s", "DEMAND_RETRY_MAX_DELAY": "1s"},
			wantErr: "DEMAND_RETRY_MAX_DELAY",
		},
		{
			name:    "bad duration",
			env:     map[string]string{"DEMAND_DEBOUNCE": "soon"},
			wantErr: "DEMAND_DEBOUNCE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadServerConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadCLIConfig(t *testing.T) {
	t.Setenv("DEMAND_SOURCE_TYPE", "fs")
	t.Setenv("DEMAND_SNAPSHOT_PATH", "/tmp/snapshot.json")

	cfg, err := LoadCLIConfig()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/snapshot.json", cfg.Source.SnapshotPath)
	assert.Equal(t, 12, cfg.Matrix.Months)
}
