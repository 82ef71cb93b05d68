package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/magebay99/multiexporter-hack/internal/exportservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *exportservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/formats", h.ListFormats)
	r.Get("/plan", h.Plan)

	r.Get("/preferences", h.GetPreferences)
	r.Put("/preferences", h.UpdatePreferences)

	r.Post("/export", h.Export)

	// History.
	r.Get("/runs", h.ListRuns)
	r.Get("/runs/{id}", h.GetRun)
	r.Get("/search", h.Search)
	r.Get("/verify", h.Verify)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
