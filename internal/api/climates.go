package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vistecsol/ha-midea-ac/internal/bridges/midea"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200

	// maxQueryParamLen limits path and query parameter length.
	maxQueryParamLen = 100
)

// climateResponse is one entity with its reconciliation status.
type climateResponse struct {
	State    midea.ClimateState `json:"state"`
	Snapshot bool               `json:"snapshot"`
	Pending  bool               `json:"pending"`
}

// commandRequest is the body of POST /climates/{id}/commands.
type commandRequest struct {
	Command    string         `json:"command"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// handleListClimates returns every managed entity.
func (s *Server) handleListClimates(w http.ResponseWriter, _ *http.Request) {
	states := s.climates.States()
	writeJSON(w, http.StatusOK, map[string]any{
		"climates": states,
		"count":    len(states),
	})
}

// handleGetClimate returns a single entity.
func (s *Server) handleGetClimate(w http.ResponseWriter, r *http.Request) {
	climate, ok := s.lookupClimate(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, climateResponse{
		State:    climate.State(),
		Snapshot: climate.HasSnapshot(),
		Pending:  climate.Pending(),
	})
}

// handleClimateCommand runs a command against an entity and returns the
// state published after the flush.
func (s *Server) handleClimateCommand(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	if deviceID == "" || len(deviceID) > maxQueryParamLen {
		writeBadRequest(w, "invalid device ID")
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Command == "" {
		writeValidationError(w, "command is required")
		return
	}

	state, err := s.climates.ExecuteCommand(r.Context(), deviceID, req.Command, req.Parameters)
	if err != nil {
		s.writeCommandError(w, r, deviceID, req.Command, err)
		return
	}

	s.logger.Info("climate command applied",
		"device_id", deviceID,
		"command", req.Command,
		"subject", r.Context().Value(ctxKeySubject),
		"request_id", r.Context().Value(ctxKeyRequestID),
	)
	writeJSON(w, http.StatusOK, map[string]any{"state": state})
}

func (s *Server) writeCommandError(w http.ResponseWriter, r *http.Request, deviceID, command string, err error) {
	status, code := commandErrorStatus(err)
	switch code {
	case ErrCodeNotFound:
		writeNotFound(w, "climate not found")
	case ErrCodeInternal:
		s.logger.Error("climate command failed",
			"device_id", deviceID,
			"command", command,
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w, "command failed")
	default:
		if code == ErrCodeApplyFailed {
			s.logger.Warn("climate command failed",
				"device_id", deviceID,
				"command", command,
				"error", err,
				"request_id", r.Context().Value(ctxKeyRequestID),
			)
		}
		writeError(w, status, code, err.Error())
	}
}

// handleGetClimateHistory returns state history entries for an entity.
func (s *Server) handleGetClimateHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if _, ok := s.lookupClimate(w, r); !ok {
		return
	}

	if s.history == nil {
		writeUnavailable(w, "state history unavailable")
		return
	}

	deviceID := chi.URLParam(r, "id")
	entries, err := s.history.GetHistory(r.Context(), deviceID, limit)
	if err != nil {
		s.logger.Error("failed to load climate history", "device_id", deviceID, "error", err)
		writeInternalError(w, "failed to load climate history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": deviceID,
		"history":   entries,
		"count":     len(entries),
	})
}

// lookupClimate resolves the {id} URL parameter, writing the error response
// when it does not name a managed entity.
func (s *Server) lookupClimate(w http.ResponseWriter, r *http.Request) (*midea.Climate, bool) {
	deviceID := chi.URLParam(r, "id")
	if deviceID == "" || len(deviceID) > maxQueryParamLen {
		writeBadRequest(w, "invalid device ID")
		return nil, false
	}

	climate, ok := s.climates.Climate(deviceID)
	if !ok {
		writeNotFound(w, "climate not found")
		return nil, false
	}
	return climate, true
}

// parseHistoryLimit parses the limit query parameter with bounds enforcement.
func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	if limit > maxHistoryLimit {
		return 0, fmt.Errorf("limit exceeds maximum")
	}

	return limit, nil
}
