package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/magebay99/multiexporter-hack/internal/exportservice"
	"github.com/magebay99/multiexporter-hack/internal/history"
)

// Handler holds API route handlers.
type Handler struct {
	svc *exportservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *exportservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListFormats handles GET /api/formats.
//
//	@Summary		List output formats and the preferences each one uses
//	@Tags			formats
//	@Produce		json
//	@Success		200	{object}	FormatsResponse
//	@Security		BearerAuth
//	@Router			/formats [get]
func (h *Handler) ListFormats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, FormatsResponse{Formats: h.svc.Formats()})
}

// Plan handles GET /api/plan.
//
//	@Summary		Compute the export plan for the scene
//	@Tags			export
//	@Produce		json
//	@Success		200	{object}	PlanView
//	@Failure		404	{object}	errResponse
//	@Failure		422	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/plan [get]
func (h *Handler) Plan(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Plan(r.Context())
	if err != nil {
		writeError(w, "plan", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GetPreferences handles GET /api/preferences.
//
//	@Summary		Read the export preferences stored in the scene
//	@Tags			preferences
//	@Produce		json
//	@Success		200	{object}	Preferences
//	@Failure		422	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/preferences [get]
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.svc.Preferences(r.Context())
	if err != nil {
		writeError(w, "get preferences", err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// UpdatePreferences handles PUT /api/preferences.
//
//	@Summary		Update preference record keys
//	@Tags			preferences
//	@Accept			json
//	@Produce		json
//	@Param			body	body		UpdatePreferencesRequest	true	"Record keys and values"
//	@Success		200		{object}	Preferences
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/preferences [put]
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req UpdatePreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if len(req) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("at least one key is required"))
		return
	}
	cfg, err := h.svc.SetPreferences(r.Context(), req)
	if err != nil {
		writeError(w, "update preferences", err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// Export handles POST /api/export.
//
//	@Summary		Run an export of the scene
//	@Tags			export
//	@Produce		json
//	@Param			retry	query		int		false	"Retry failed jobs up to this many times"
//	@Param			dry_run	query		bool	false	"Record targets without writing files"
//	@Success		200		{object}	ExportReport
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/export [post]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := exportservice.ExportRequest{}
	if v := q.Get("retry"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("retry must be a non-negative integer"))
			return
		}
		req.Retry = n
	}
	req.DryRun, _ = strconv.ParseBool(q.Get("dry_run"))

	report, err := h.svc.Export(r.Context(), req)
	if err != nil {
		writeError(w, "export", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ListRuns handles GET /api/runs.
//
//	@Summary		List recorded export runs, newest first
//	@Tags			history
//	@Produce		json
//	@Param			limit	query		int	false	"Page size"
//	@Param			offset	query		int	false	"Page offset"
//	@Success		200		{object}	RunListResponse
//	@Security		BearerAuth
//	@Router			/runs [get]
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	runs, total, err := h.svc.Runs(r.Context(), limit, offset)
	if err != nil {
		writeError(w, "list runs", err)
		return
	}
	writeJSON(w, http.StatusOK, RunListResponse{Runs: runs, Total: total})
}

// GetRun handles GET /api/runs/{id}.
//
//	@Summary		Get one run and its job outcomes
//	@Tags			history
//	@Produce		json
//	@Param			id	path		string	true	"Run ID"
//	@Success		200	{object}	RunDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/runs/{id} [get]
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, outcomes, err := h.svc.Run(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get run", err)
		return
	}
	writeJSON(w, http.StatusOK, RunDetail{Run: *run, Outcomes: outcomes})
}

// Search handles GET /api/search.
//
//	@Summary		Search job outcomes by label, path or error
//	@Tags			history
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Verify handles GET /api/verify.
//
//	@Summary		Report exported files that changed or disappeared
//	@Tags			history
//	@Produce		json
//	@Success		200	{object}	map[string]any
//	@Failure		422	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/verify [get]
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	drift, err := h.svc.Verify(r.Context(), "")
	if err != nil {
		writeError(w, "verify", err)
		return
	}
	if drift == nil {
		drift = []history.Drift{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"drift": drift})
}
