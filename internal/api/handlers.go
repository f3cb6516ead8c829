package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clouddeck/stackd/internal/events"
	"github.com/clouddeck/stackd/internal/stack"
)

// handleHealthz handles GET /healthz (no auth).
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	names, err := s.stacks.List()
	if err != nil {
		s.logger.Error("failed to list workspaces", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list workspaces")
		return
	}

	respondJSON(w, http.StatusOK, HealthzResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Workspaces:    len(names),
	})
}

// handleList handles GET /v1/workspaces.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	names, err := s.stacks.List()
	if err != nil {
		s.writeStackError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ListResponse{Workspaces: names})
}

// handleInfo handles GET /v1/workspaces/{name}.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.stacks.Info(chi.URLParam(r, "name"))
	if err != nil {
		s.writeStackError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

// handleSave handles POST /v1/workspaces/{name}. The provisioning run
// continues after the 202; clients poll the workspace for completion.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Template) == 0 {
		s.writeError(w, http.StatusBadRequest, "template is required")
		return
	}

	params := req.Parameters
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}

	if err := s.stacks.Save(name, req.Template, params); err != nil {
		s.writeStackError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, AcceptedResponse{
		Workspace: name,
		Status:    "in_progress",
	})
}

// handleDestroy handles DELETE /v1/workspaces/{name}.
func (s *Server) handleDestroy(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := s.stacks.Destroy(name); err != nil {
		s.writeStackError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, AcceptedResponse{
		Workspace: name,
		Status:    "in_progress",
	})
}

// handleResources handles GET /v1/workspaces/{name}/resources.
func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	resources, err := s.stacks.Resources(chi.URLParam(r, "name"))
	if err != nil {
		s.writeStackError(w, err)
		return
	}
	if resources == nil {
		resources = []stack.Resource{}
	}
	respondJSON(w, http.StatusOK, ResourcesResponse{Resources: resources})
}

// handleOutputs handles GET /v1/workspaces/{name}/outputs.
func (s *Server) handleOutputs(w http.ResponseWriter, r *http.Request) {
	outputs, err := s.stacks.Outputs(chi.URLParam(r, "name"))
	if err != nil {
		s.writeStackError(w, err)
		return
	}
	if outputs == nil {
		outputs = map[string]any{}
	}
	respondJSON(w, http.StatusOK, OutputsResponse{Outputs: outputs})
}

// handleEvents handles GET /v1/workspaces/{name}/events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	evs, err := s.stacks.Events(chi.URLParam(r, "name"))
	if err != nil {
		s.writeStackError(w, err)
		return
	}
	if evs == nil {
		evs = []stack.WorkspaceEvent{}
	}
	respondJSON(w, http.StatusOK, EventsResponse{Events: evs})
}

// handleTemplate handles GET /v1/workspaces/{name}/template.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.stacks.Template(chi.URLParam(r, "name"))
	if err != nil {
		s.writeStackError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, TemplateResponse{Template: json.RawMessage(tmpl)})
}

// handleTransitions handles GET /v1/events. ?since=<id> resumes the feed
// after a previously seen transition ID.
func (s *Server) handleTransitions(w http.ResponseWriter, r *http.Request) {
	var since int64
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid since parameter")
			return
		}
		since = parsed
	}

	var snapshot []events.Transition
	if s.hub != nil {
		snapshot = s.hub.SnapshotSince(since)
	}
	if snapshot == nil {
		snapshot = []events.Transition{}
	}

	lastID := since
	if n := len(snapshot); n > 0 {
		lastID = snapshot[n-1].ID
	}

	respondJSON(w, http.StatusOK, TransitionsResponse{
		Events: snapshot,
		LastID: lastID,
	})
}

// writeStackError maps workspace-layer errors onto HTTP statuses.
func (s *Server) writeStackError(w http.ResponseWriter, err error) {
	var cmdErr *stack.CommandError
	switch {
	case errors.Is(err, stack.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, stack.ErrBusy):
		s.writeError(w, http.StatusConflict, "workspace is busy")
	case errors.Is(err, stack.ErrUnimplemented):
		s.writeError(w, http.StatusNotImplemented, err.Error())
	case errors.As(err, &cmdErr):
		s.writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("workspace operation failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
