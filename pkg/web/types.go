// Package web exposes playbook runs, run logs and playbook files over HTTP.
package web

import "github.com/dukex/soarflow/pkg/models"

// RunStartedResponse is returned when a run is accepted.
type RunStartedResponse struct {
	RunID    string `json:"run_id"`
	Playbook string `json:"playbook"`
}

// RunDetailResponse is a run with its full log.
type RunDetailResponse struct {
	Run  *models.RunRecord `json:"run"`
	Logs []models.LogEntry `json:"logs"`
}

// ListRunsQuery holds the query parameters of GET /runs.
type ListRunsQuery struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=1000"`
}

// MessageResponse acknowledges a playbook file operation.
type MessageResponse struct {
	Message string `json:"message"`
	Name    string `json:"name,omitempty"`
	File    string `json:"file,omitempty"`
}
