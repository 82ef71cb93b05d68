package api

import (
	"github.com/magebay99/multiexporter-hack/internal/exportservice"
	"github.com/magebay99/multiexporter-hack/internal/history"
	"github.com/magebay99/multiexporter-hack/internal/prefs"
)

// FormatInfo is one output format (aliased from the domain layer).
type FormatInfo = exportservice.FormatInfo

// PlanView is the export plan response (aliased from the domain layer).
type PlanView = exportservice.PlanView

// Preferences is the stored export configuration (aliased from the domain layer).
type Preferences = prefs.Config

// ExportReport is the response of a finished export (aliased from the domain layer).
type ExportReport = exportservice.ExportReport

// FormatsResponse wraps the format list.
type FormatsResponse struct {
	Formats []FormatInfo `json:"formats" validate:"required"`
}

// UpdatePreferencesRequest maps record keys to their new values.
type UpdatePreferencesRequest map[string]string

// RunListResponse wraps paginated run listings.
type RunListResponse struct {
	Runs  []history.Run `json:"runs" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// RunDetail is one run with its job outcomes.
type RunDetail struct {
	Run      history.Run       `json:"run" validate:"required"`
	Outcomes []history.Outcome `json:"outcomes" validate:"required"`
}

// SearchResponse wraps outcome search hits.
type SearchResponse struct {
	Results []history.Outcome `json:"results" validate:"required"`
}
