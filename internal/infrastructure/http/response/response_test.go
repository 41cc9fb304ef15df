package response_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/demand/internal/domain"
	"github.com/rezkam/demand/internal/infrastructure/http/response"
)

// unencodableType fails during JSON encoding.
type unencodableType struct{}

func (unencodableType) MarshalJSON() ([]byte, error) {
	return nil, errors.New("boom")
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.ErrorResponse {
	t.Helper()

	var body response.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestOK_EncodingFailure_Returns500WithErrorJSON(t *testing.T) {
	w := httptest.NewRecorder()

	response.OK(w, unencodableType{})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	body := decode(t, w)
	assert.Equal(t, response.CodeInternal, body.Error.Code)
	assert.Equal(t, "failed to encode response", body.Error.Message)
}

func TestOK_WritesJSON(t *testing.T) {
	w := httptest.NewRecorder()

	response.OK(w, map[string]string{"status": "ok"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestFromDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "consistency",
			err:        &domain.AggregationConsistencyError{Expected: domain.StrategyStaffBased, Actual: domain.StrategySkillBased},
			wantStatus: http.StatusInternalServerError,
			wantCode:   response.CodeAggregationInconsistent,
		},
		{
			name:       "load exhausted",
			err:        fmt.Errorf("load: %w", &domain.LoadError{Op: "list_skills", Attempts: 5, Err: errors.New("refused")}),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   response.CodeSourceUnavailable,
		},
		{
			name:       "strict extraction",
			err:        fmt.Errorf("strict extraction failed: %w", &domain.ExtractionError{TaskID: "x1", Field: "skillType", Reason: "unknown skill"}),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   response.CodeInvalidSourceData,
		},
		{
			name:       "bad staff mode",
			err:        fmt.Errorf("%w: %q", domain.ErrInvalidStaffFilterMode, "some"),
			wantStatus: http.StatusBadRequest,
			wantCode:   response.CodeValidation,
		},
		{
			name:       "bad month range",
			err:        domain.ErrInvalidMonthRange,
			wantStatus: http.StatusBadRequest,
			wantCode:   response.CodeValidation,
		},
		{
			name:       "unknown cell",
			err:        fmt.Errorf("%w: Tax/2030-01", domain.ErrCellNotFound),
			wantStatus: http.StatusNotFound,
			wantCode:   response.CodeNotFound,
		},
		{
			name:       "timeout",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   response.CodeTimeout,
		},
		{
			name:       "unknown",
			err:        errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   response.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/", nil)

			response.FromDomainError(w, r, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decode(t, w)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.NotNil(t, body.Error.Details)
		})
	}
}

func TestInternalError_HidesCause(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	response.InternalError(w, r, errors.New("password=hunter2"))

	assert.NotContains(t, w.Body.String(), "hunter2")
}
