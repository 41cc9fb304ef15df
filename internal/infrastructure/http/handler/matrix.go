package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rezkam/demand/internal/application/demand"
	"github.com/rezkam/demand/internal/domain"
	"github.com/rezkam/demand/internal/infrastructure/http/response"
)

// GetMatrix handles GET /api/v1/views/{view}/matrix.
func (s *Server) GetMatrix(w http.ResponseWriter, r *http.Request) {
	v, ok := s.viewFromRequest(w, r)
	if !ok {
		return
	}

	req, err := parseFilter(r.URL.Query())
	if err != nil {
		writeFilterError(w, r, err)
		return
	}

	s.serveMatrix(w, r, v, req)
}

// QueryMatrix handles POST /api/v1/views/{view}/matrix/query.
// An empty body is an unfiltered query.
func (s *Server) QueryMatrix(w http.ResponseWriter, r *http.Request) {
	v, ok := s.viewFromRequest(w, r)
	if !ok {
		return
	}

	var req demand.FilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.ValidationError(w, "body", "must be a JSON filter object")
		return
	}

	s.serveMatrix(w, r, v, req)
}

func (s *Server) serveMatrix(w http.ResponseWriter, r *http.Request, v ViewHandle, req demand.FilterRequest) {
	result, err := s.load(r, v, req)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, result)
}

// CellResponse is the drill-down of one matrix cell.
type CellResponse struct {
	View      string                      `json:"view"`
	Key       string                      `json:"key"`
	Month     string                      `json:"month"`
	Hours     float64                     `json:"hours"`
	Entries   []domain.TaskBreakdownEntry `json:"entries"`
	RequestID string                      `json:"requestId"`
}

// GetCell handles GET /api/v1/views/{view}/cells/{key}/{month}.
// The cell is looked up in the filtered matrix for the query's filter.
func (s *Server) GetCell(w http.ResponseWriter, r *http.Request) {
	v, ok := s.viewFromRequest(w, r)
	if !ok {
		return
	}

	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil {
		response.ValidationError(w, "key", "must be a valid path segment")
		return
	}
	month := chi.URLParam(r, "month")
	if _, err := domain.ParseMonthKey(month); err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	req, err := parseFilter(r.URL.Query())
	if err != nil {
		writeFilterError(w, r, err)
		return
	}

	result, err := s.load(r, v, req)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	entries, err := demand.CellDetail(result.Filtered, key, month)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	var hours float64
	for _, e := range entries {
		hours += e.MonthlyHours
	}
	response.OK(w, CellResponse{
		View:      v.Name,
		Key:       key,
		Month:     month,
		Hours:     hours,
		Entries:   entries,
		RequestID: result.RequestID,
	})
}

// InvalidateResponse reports the outcome of an invalidation request.
type InvalidateResponse struct {
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
	RetryIn string `json:"retryIn,omitempty"`
}

// Invalidate handles POST /api/v1/views/{view}/invalidate.
// A request dropped by the breaker is not an error: the cached matrix stays in use.
func (s *Server) Invalidate(w http.ResponseWriter, r *http.Request) {
	v, ok := s.viewFromRequest(w, r)
	if !ok {
		return
	}
	if v.Cache == nil {
		response.NotFound(w, "cache")
		return
	}

	outcome, err := v.Cache.RequestInvalidation(r.Context(), "api request")
	if err != nil {
		response.InternalError(w, r, err)
		return
	}

	resp := InvalidateResponse{Applied: outcome.Applied}
	if outcome.Blocked != nil {
		resp.Reason = outcome.Blocked.Reason
		if outcome.Blocked.RetryIn > 0 {
			resp.RetryIn = outcome.Blocked.RetryIn.String()
		}
	}
	response.OK(w, resp)
}

func (s *Server) load(r *http.Request, v ViewHandle, req demand.FilterRequest) (*demand.LoadResult, error) {
	filter, err := req.ToFilterState()
	if err != nil {
		return nil, err
	}
	return v.Loader.LoadWithRetry(r.Context(), demand.LoadRequest{
		Filter:    filter,
		RequestID: middleware.GetReqID(r.Context()),
	})
}
