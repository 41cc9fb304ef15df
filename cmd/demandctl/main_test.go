package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/demand/internal/application/demand"
	"github.com/rezkam/demand/internal/config"
	"github.com/rezkam/demand/internal/domain"
	"github.com/rezkam/demand/internal/storage/compliance"
	"github.com/rezkam/demand/internal/storage/snapshot"
)

func testConfig(source config.SourceConfig) *config.CLIConfig {
	return &config.CLIConfig{
		Source: source,
		Cache:  config.CacheConfig{Backend: config.CacheMemory, Namespace: "test", Cooldown: time.Second},
		Retry:  config.RetryConfig{BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, MaxAttempts: 1},
		Matrix: config.MatrixConfig{Months: 12, StartMonth: "2025-01", Debounce: time.Millisecond, LoadTimeout: time.Minute},
	}
}

func writeSnapshotFile(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixture.json")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, snapshot.Encode(f, compliance.Fixture()))
	require.NoError(t, f.Close())
	return path
}

// sqliteConfig returns a config whose SQLite directory holds the compliance fixture.
func sqliteConfig(t *testing.T) *config.CLIConfig {
	t.Helper()

	cfg := testConfig(config.SourceConfig{Type: config.SourceSQLite, SQLitePath: filepath.Join(t.TempDir(), "demand.db"), AutoMigrate: true})
	_, _, err := execute(t, cfg, "", "import", writeSnapshotFile(t))
	require.NoError(t, err)
	return cfg
}

func execute(t *testing.T, cfg *config.CLIConfig, stdin string, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&cli{cfg: cfg})
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestImport_SQLite(t *testing.T) {
	cfg := testConfig(config.SourceConfig{Type: config.SourceSQLite, SQLitePath: filepath.Join(t.TempDir(), "demand.db"), AutoMigrate: true})

	out, _, err := execute(t, cfg, "", "import", writeSnapshotFile(t))
	require.NoError(t, err)

	var stats importStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, importStats{Source: config.SourceSQLite, Skills: 3, Clients: 2, Staff: 2, Tasks: 4}, stats)
}

func TestImport_FS(t *testing.T) {
	target := filepath.Join(t.TempDir(), "snapshots", "current.json")
	cfg := testConfig(config.SourceConfig{Type: config.SourceFS, SnapshotPath: target})

	_, _, err := execute(t, cfg, "", "import", writeSnapshotFile(t))
	require.NoError(t, err)

	out, _, err := execute(t, cfg, "", "matrix")
	require.NoError(t, err)
	assert.Contains(t, out, "demand: 228h")
}

func TestImport_RejectsMalformedSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"tasks":[{"id":"x","recurrence":{"pattern":"MONTHLY","startDate":"not-a-date"}}]}`), 0o600))

	cfg := testConfig(config.SourceConfig{Type: config.SourceSQLite, SQLitePath: filepath.Join(t.TempDir(), "demand.db")})
	_, _, err := execute(t, cfg, "", "import", path)
	assert.Error(t, err)
}

func TestMatrix(t *testing.T) {
	cfg := sqliteConfig(t)

	t.Run("table", func(t *testing.T) {
		out, _, err := execute(t, cfg, "", "matrix")
		require.NoError(t, err)

		assert.Contains(t, out, "2025-01")
		assert.Contains(t, out, "Audit")
		assert.Contains(t, out, "strategy: skill-based")
		assert.Contains(t, out, "demand: 228h")
	})

	t.Run("json with client filter", func(t *testing.T) {
		out, _, err := execute(t, cfg, "", "matrix", "--json", "--client", "globex")
		require.NoError(t, err)

		var result demand.LoadResult
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.InDelta(t, 48.0, result.Filtered.TotalDemand, 1e-9)
	})

	t.Run("empty skill selection", func(t *testing.T) {
		out, _, err := execute(t, cfg, "", "matrix", "--skill=")
		require.NoError(t, err)
		assert.Contains(t, out, "demand: 0h")
	})

	t.Run("staff specific", func(t *testing.T) {
		out, _, err := execute(t, cfg, "", "matrix", "--staff", "ana", "--staff-mode", "specific")
		require.NoError(t, err)
		assert.Contains(t, out, "Ana Lind")
		assert.Contains(t, out, "strategy: staff-based")
		assert.Contains(t, out, "demand: 60h")
	})

	t.Run("client view", func(t *testing.T) {
		out, _, err := execute(t, cfg, "", "matrix", "--view", "clients")
		require.NoError(t, err)
		assert.Contains(t, out, "Acme AB")
		assert.Contains(t, out, "dimension: client")
	})

	t.Run("half month range", func(t *testing.T) {
		_, _, err := execute(t, cfg, "", "matrix", "--month-start", "1")
		assert.ErrorContains(t, err, "--month-start and --month-end")
	})

	t.Run("unknown view", func(t *testing.T) {
		_, _, err := execute(t, cfg, "", "matrix", "--view", "staff")
		assert.ErrorContains(t, err, "unknown view")
	})
}

func TestCell(t *testing.T) {
	cfg := sqliteConfig(t)

	out, _, err := execute(t, cfg, "", "cell", "Tax", "2025-03")
	require.NoError(t, err)
	assert.Contains(t, out, "t1")
	assert.Contains(t, out, "t3")
	assert.Contains(t, out, "2 tasks, 9h")

	_, _, err = execute(t, cfg, "", "cell", "Legal", "2025-03")
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	cfg := sqliteConfig(t)

	stdin := strings.Join([]string{
		`{"skills":["Tax"]}`,
		`{"skills":`,
		`{"staffMode":"some"}`,
		``,
		`{"skills":["Audit"]}`,
	}, "\n")

	out, errOut, err := execute(t, cfg, stdin, "watch", "--timeout", "10s")
	require.NoError(t, err)

	assert.Contains(t, out, "#2 skill-based 120h")
	assert.Contains(t, errOut, "line 2: invalid filter")
	assert.Contains(t, errOut, "line 3:")
}

func TestWatch_EmptyInput(t *testing.T) {
	cfg := sqliteConfig(t)

	out, _, err := execute(t, cfg, "", "watch")
	require.NoError(t, err)
	assert.Empty(t, out)
}

// oneWriteWriter accepts its first write and fails every later one.
type oneWriteWriter struct {
	bytes.Buffer
	writes int
}

func (w *oneWriteWriter) Write(p []byte) (int, error) {
	w.writes++
	if w.writes > 1 {
		return 0, errors.New("broken pipe")
	}
	return w.Buffer.Write(p)
}

func TestPrintUpdate_ReportsTableWriteFailure(t *testing.T) {
	out := &oneWriteWriter{}
	var errOut bytes.Buffer
	m := &domain.DemandMatrix{
		Skills:     []string{"Tax"},
		Months:     []domain.MonthColumn{{Key: "2025-01", Label: "Jan 2025"}},
		DataPoints: []domain.DataPoint{{SkillType: "Tax", Month: "2025-01", DemandHours: 3}},
		Strategy:   domain.StrategySkillBased,
	}

	printUpdate(out, &errOut, demand.ViewUpdate{Token: 4, Result: &demand.LoadResult{Filtered: m, Attempts: 1}}, true)

	assert.Contains(t, out.String(), "#4 skill-based")
	assert.Contains(t, errOut.String(), "#4: failed to print matrix: broken pipe")
}
