package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"kestrel-hq/secretd/pkg/history"
	"kestrel-hq/secretd/pkg/secret"
)

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Error string `json:"error"`
}

// secretResponse carries the current secret value.
type secretResponse struct {
	Secret string `json:"secret"`
}

// statusResponse aggregates cache state with daemon-level fields.
type statusResponse struct {
	secret.ServiceStatus
	HistoryEnabled bool       `json:"history_enabled"`
	NextReconcile  *time.Time `json:"next_reconcile,omitempty"`
}

// rotationsResponse wraps the rotation history listing.
type rotationsResponse struct {
	Rotations []history.Event `json:"rotations"`
	Count     int             `json:"count"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// handleSecret serves GET /secret: the current value via a fresh source
// read, placeholder or sentinel included.
func (s *Server) handleSecret(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, secretResponse{Secret: s.cache.Get()})
}

// handleSecretInfo serves GET /secret/info: the diagnostic snapshot with
// symlink resolution and cache metadata.
func (s *Server) handleSecretInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, s.cache.Info())
}

// handleReload serves POST /secret/reload: a synchronous manual
// reconciliation. The response reports whether the observed value changed.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, s.cache.TriggerReload())
}

// handleStatus serves GET /status: the aggregate service flags.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := statusResponse{
		ServiceStatus:  s.cache.Status(),
		HistoryEnabled: s.historyStore != nil,
	}
	if s.scheduler != nil {
		resp.NextReconcile = s.scheduler.NextRun()
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleRotations serves GET /rotations?limit=N: the most recent observed
// rotations, newest first. Fingerprints only; raw values are never stored.
func (s *Server) handleRotations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if s.historyStore == nil {
		writeError(w, http.StatusNotFound, "rotation history is disabled")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	events, err := s.historyStore.Recent(r.Context(), limit)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to list rotation history",
			"error", err,
			"request_id", GetRequestID(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list rotation history")
		return
	}

	writeJSON(w, http.StatusOK, rotationsResponse{
		Rotations: events,
		Count:     len(events),
	})
}
