package api

import (
	"encoding/json"

	"github.com/clouddeck/stackd/internal/events"
	"github.com/clouddeck/stackd/internal/stack"
)

// SaveRequest is the JSON body for POST /v1/workspaces/{name}.
type SaveRequest struct {
	Template   json.RawMessage `json:"template"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

// AcceptedResponse is returned when a mutation has been launched. The
// operation continues after the response; poll the workspace for its
// terminal state.
type AcceptedResponse struct {
	Workspace string `json:"workspace"`
	Status    string `json:"status"`
}

// ListResponse is returned by GET /v1/workspaces.
type ListResponse struct {
	Workspaces []string `json:"workspaces"`
}

// ResourcesResponse is returned by GET /v1/workspaces/{name}/resources.
type ResourcesResponse struct {
	Resources []stack.Resource `json:"resources"`
}

// OutputsResponse is returned by GET /v1/workspaces/{name}/outputs.
type OutputsResponse struct {
	Outputs map[string]any `json:"outputs"`
}

// EventsResponse is returned by GET /v1/workspaces/{name}/events,
// most recent first.
type EventsResponse struct {
	Events []stack.WorkspaceEvent `json:"events"`
}

// TemplateResponse is returned by GET /v1/workspaces/{name}/template.
type TemplateResponse struct {
	Template json.RawMessage `json:"template"`
}

// TransitionsResponse is returned by GET /v1/events.
type TransitionsResponse struct {
	Events []events.Transition `json:"events"`
	// LastID is the cursor to pass as ?since= on the next poll.
	LastID int64 `json:"last_id"`
}

// ErrorResponse is returned on errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Workspaces    int    `json:"workspaces"`
}
