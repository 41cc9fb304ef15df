package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/demand/internal/application/demand"
	"github.com/rezkam/demand/internal/domain"
	"github.com/rezkam/demand/internal/infrastructure/http/handler"
	"github.com/rezkam/demand/internal/infrastructure/http/response"
	"github.com/rezkam/demand/internal/storage/compliance"
	"github.com/rezkam/demand/internal/storage/snapshot"
)

var window = domain.NewMonthWindow(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 12)

// fakeLoader serves canned results or errors.
type fakeLoader struct {
	loadFn func(ctx context.Context, req demand.LoadRequest) (*demand.LoadResult, error)
}

func (f *fakeLoader) LoadWithRetry(ctx context.Context, req demand.LoadRequest) (*demand.LoadResult, error) {
	return f.loadFn(ctx, req)
}

func newFixtureServer(t *testing.T) (*httptest.Server, *demand.CacheController) {
	t.Helper()

	dir := snapshot.NewDirectory(snapshot.Static{Snapshot: compliance.Fixture()})
	skillCache := demand.NewCacheController(demand.NewMemoryStore(), demand.WithCooldown(time.Hour))
	clientCache := demand.NewCacheController(demand.NewMemoryStore())

	srv := handler.NewServer(
		handler.ViewHandle{
			Name:      "skills",
			Dimension: domain.DimensionSkill,
			Loader:    demand.NewLoader(dir, skillCache, demand.WithWindow(window)),
			Cache:     skillCache,
		},
		handler.ViewHandle{
			Name:      "clients",
			Dimension: domain.DimensionClient,
			Loader: demand.NewLoader(dir, clientCache,
				demand.WithWindow(window),
				demand.WithBuilder(demand.NewBuilder(domain.DimensionClient))),
			Cache: clientCache,
		},
	)

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts, skillCache
}

func get(t *testing.T, url string, out any) int {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestListViews(t *testing.T) {
	ts, _ := newFixtureServer(t)

	var body struct {
		Views []handler.ViewSummary `json:"views"`
	}
	status := get(t, ts.URL+"/v1/views", &body)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []handler.ViewSummary{
		{Name: "clients", Dimension: domain.DimensionClient},
		{Name: "skills", Dimension: domain.DimensionSkill},
	}, body.Views)
}

func TestGetMatrix(t *testing.T) {
	ts, _ := newFixtureServer(t)

	t.Run("unfiltered", func(t *testing.T) {
		var result demand.LoadResult
		status := get(t, ts.URL+"/v1/views/skills/matrix", &result)

		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, domain.StrategySkillBased, result.Strategy)
		assert.InDelta(t, 228.0, result.Filtered.TotalDemand, 1e-9)
		assert.Len(t, result.Filtered.Months, 12)
		assert.NotEmpty(t, result.RequestID)
	})

	t.Run("filtered by client", func(t *testing.T) {
		var result demand.LoadResult
		status := get(t, ts.URL+"/v1/views/skills/matrix?client=globex", &result)

		require.Equal(t, http.StatusOK, status)
		assert.InDelta(t, 48.0, result.Filtered.TotalDemand, 1e-9)
		assert.InDelta(t, 228.0, result.Full.TotalDemand, 1e-9)
	})

	t.Run("empty skill selection selects nothing", func(t *testing.T) {
		var result demand.LoadResult
		status := get(t, ts.URL+"/v1/views/skills/matrix?skill=", &result)

		require.Equal(t, http.StatusOK, status)
		assert.Zero(t, result.Filtered.TotalDemand)
	})

	t.Run("specific staff switches strategy", func(t *testing.T) {
		var result demand.LoadResult
		status := get(t, ts.URL+"/v1/views/skills/matrix?staff=ANA&staff_mode=specific", &result)

		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, domain.StrategyStaffBased, result.Strategy)
		assert.InDelta(t, 60.0, result.Filtered.TotalDemand, 1e-9)
	})

	t.Run("month range", func(t *testing.T) {
		var result demand.LoadResult
		status := get(t, ts.URL+"/v1/views/skills/matrix?month_start=0&month_end=2", &result)

		require.Equal(t, http.StatusOK, status)
		assert.Len(t, result.Filtered.Months, 3)
		assert.InDelta(t, 57.0, result.Filtered.TotalDemand, 1e-9)
	})

	t.Run("client view", func(t *testing.T) {
		var result demand.LoadResult
		status := get(t, ts.URL+"/v1/views/clients/matrix", &result)

		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, domain.DimensionClient, result.Filtered.Dimension)
	})
}

func TestGetMatrix_Validation(t *testing.T) {
	ts, _ := newFixtureServer(t)

	tests := []struct {
		name  string
		query string
		field string
	}{
		{name: "bad staff mode", query: "staff_mode=some", field: "staffMode"},
		{name: "half month range", query: "month_start=1", field: "monthRange"},
		{name: "non numeric month", query: "month_start=a&month_end=2", field: "month_start"},
		{name: "inverted month range", query: "month_start=3&month_end=1", field: "monthRange"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body response.ErrorResponse
			status := get(t, ts.URL+"/v1/views/skills/matrix?"+tt.query, &body)

			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, response.CodeValidation, body.Error.Code)
			require.Len(t, body.Error.Details, 1)
			assert.Equal(t, tt.field, body.Error.Details[0].Field)
		})
	}
}

func TestUnknownView(t *testing.T) {
	ts, _ := newFixtureServer(t)

	var body response.ErrorResponse
	status := get(t, ts.URL+"/v1/views/staff/matrix", &body)

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, response.CodeNotFound, body.Error.Code)
}

func TestQueryMatrix(t *testing.T) {
	ts, _ := newFixtureServer(t)

	post := func(t *testing.T, body string) (*http.Response, demand.LoadResult) {
		t.Helper()
		resp, err := http.Post(ts.URL+"/v1/views/skills/matrix/query", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })

		var result demand.LoadResult
		if resp.StatusCode == http.StatusOK {
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		}
		return resp, result
	}

	t.Run("skills filter", func(t *testing.T) {
		resp, result := post(t, `{"skills":["Audit"]}`)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []string{"Audit"}, result.Filtered.Skills)
		assert.InDelta(t, 120.0, result.Filtered.TotalDemand, 1e-9)
	})

	t.Run("unassigned only", func(t *testing.T) {
		resp, result := post(t, `{"staffMode":"none"}`)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.InDelta(t, 48.0, result.Filtered.TotalDemand, 1e-9)
	})

	t.Run("empty body is unfiltered", func(t *testing.T) {
		resp, result := post(t, ``)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.InDelta(t, 228.0, result.Filtered.TotalDemand, 1e-9)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, _ := post(t, `{"skills":`)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetCell(t *testing.T) {
	ts, _ := newFixtureServer(t)

	t.Run("skill cell", func(t *testing.T) {
		var cell handler.CellResponse
		status := get(t, ts.URL+"/v1/views/skills/cells/Tax/2025-03", &cell)

		require.Equal(t, http.StatusOK, status)
		assert.InDelta(t, 9.0, cell.Hours, 1e-9)
		assert.Len(t, cell.Entries, 2)
	})

	t.Run("filter applies to drill-down", func(t *testing.T) {
		var cell handler.CellResponse
		status := get(t, ts.URL+"/v1/views/skills/cells/Tax/2025-03?client=acme", &cell)

		require.Equal(t, http.StatusOK, status)
		require.Len(t, cell.Entries, 1)
		assert.Equal(t, "t1", cell.Entries[0].RecurringTaskID)
	})

	t.Run("escaped staff label", func(t *testing.T) {
		var cell handler.CellResponse
		status := get(t, ts.URL+"/v1/views/skills/cells/Ana%20Lind/2025-06?staff=ana&staff_mode=specific", &cell)

		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Ana Lind", cell.Key)
		assert.InDelta(t, 5.0, cell.Hours, 1e-9)
	})

	t.Run("unknown bucket", func(t *testing.T) {
		status := get(t, ts.URL+"/v1/views/skills/cells/Legal/2025-03", nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("month outside window", func(t *testing.T) {
		status := get(t, ts.URL+"/v1/views/skills/cells/Tax/2031-01", nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("malformed month", func(t *testing.T) {
		status := get(t, ts.URL+"/v1/views/skills/cells/Tax/March", nil)
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestInvalidate_BreakerDropsSecondRequest(t *testing.T) {
	ts, _ := newFixtureServer(t)

	invalidate := func() handler.InvalidateResponse {
		resp, err := http.Post(ts.URL+"/v1/views/skills/invalidate", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out handler.InvalidateResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out
	}

	first := invalidate()
	second := invalidate()

	assert.True(t, first.Applied)
	assert.False(t, second.Applied)
	assert.Equal(t, "cooldown active", second.Reason)
	assert.NotEmpty(t, second.RetryIn)
}

func TestLoaderErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "source unavailable",
			err:        &domain.LoadError{Op: "list_recurring_tasks", Attempts: 5, Err: errors.New("connection refused")},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   response.CodeSourceUnavailable,
		},
		{
			name:       "inconsistent aggregation",
			err:        &domain.AggregationConsistencyError{Expected: domain.StrategyStaffBased, Actual: domain.StrategySkillBased},
			wantStatus: http.StatusInternalServerError,
			wantCode:   response.CodeAggregationInconsistent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID string
			loader := &fakeLoader{loadFn: func(_ context.Context, req demand.LoadRequest) (*demand.LoadResult, error) {
				gotID = req.RequestID
				return nil, tt.err
			}}
			srv := handler.NewServer(handler.ViewHandle{Name: "skills", Loader: loader})

			w := httptest.NewRecorder()
			srv.Routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/views/skills/matrix", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			var body response.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.Empty(t, gotID, "no request id middleware in this router")
		})
	}
}

func TestInvalidate_NoCache(t *testing.T) {
	srv := handler.NewServer(handler.ViewHandle{Name: "skills", Loader: &fakeLoader{}})

	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/views/skills/invalidate", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
