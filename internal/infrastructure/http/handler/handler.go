// Package handler implements the demand matrix HTTP API.
package handler

import (
	"context"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/demand/internal/application/demand"
	"github.com/rezkam/demand/internal/domain"
	"github.com/rezkam/demand/internal/infrastructure/http/response"
)

// MatrixLoader loads a view's matrix for one filter state.
type MatrixLoader interface {
	LoadWithRetry(ctx context.Context, req demand.LoadRequest) (*demand.LoadResult, error)
}

// Invalidator accepts cache invalidation requests.
type Invalidator interface {
	RequestInvalidation(ctx context.Context, reason string) (demand.InvalidationOutcome, error)
}

// ViewHandle exposes one matrix view over HTTP.
type ViewHandle struct {
	Name      string
	Dimension domain.Dimension
	Loader    MatrixLoader
	Cache     Invalidator // optional
}

// Server serves the demand API for a fixed set of views.
//
// Each request goes straight to the view's loader. Requests never supersede
// each other here; stale-response protection belongs to interactive clients
// holding a demand.View.
type Server struct {
	views map[string]ViewHandle
	names []string
}

// NewServer creates a Server for views. Later handles replace earlier ones
// with the same name.
func NewServer(views ...ViewHandle) *Server {
	s := &Server{views: make(map[string]ViewHandle, len(views))}
	for _, v := range views {
		if _, dup := s.views[v.Name]; !dup {
			s.names = append(s.names, v.Name)
		}
		s.views[v.Name] = v
	}
	slices.Sort(s.names)
	return s
}

// Routes returns the API router. Mount it under /api.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/v1/views", s.ListViews)
	r.Route("/v1/views/{view}", func(r chi.Router) {
		r.Get("/matrix", s.GetMatrix)
		r.Post("/matrix/query", s.QueryMatrix)
		r.Get("/cells/{key}/{month}", s.GetCell)
		r.Post("/invalidate", s.Invalidate)
	})

	return r
}

// viewFromRequest resolves the {view} path parameter, writing 404 when unknown.
func (s *Server) viewFromRequest(w http.ResponseWriter, r *http.Request) (ViewHandle, bool) {
	v, ok := s.views[chi.URLParam(r, "view")]
	if !ok {
		response.NotFound(w, "view")
		return ViewHandle{}, false
	}
	return v, true
}

// ViewSummary describes an available view.
type ViewSummary struct {
	Name      string           `json:"name"`
	Dimension domain.Dimension `json:"dimension"`
}

// ListViews handles GET /api/v1/views.
func (s *Server) ListViews(w http.ResponseWriter, _ *http.Request) {
	out := make([]ViewSummary, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, ViewSummary{Name: name, Dimension: s.views[name].Dimension})
	}
	response.OK(w, map[string]any{"views": out})
}
