package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/mcdev12/sumrush/go/internal/quiz"
	"github.com/mcdev12/sumrush/go/internal/results"
	"github.com/mcdev12/sumrush/go/internal/session"
	"github.com/rs/zerolog/log"
)

// ResultsProvider serves round history. Results outlive their sessions, so
// these lookups never consult the session manager.
type ResultsProvider interface {
	ListResults(ctx context.Context, sessionID uuid.UUID, limit int) ([]results.Result, error)
	Stats(ctx context.Context, sessionID uuid.UUID) (*results.Stats, error)
}

// DifficultyInfo describes one selectable level.
type DifficultyInfo struct {
	Level        quiz.Difficulty `json:"level"`
	TimeLimitSec int             `json:"time_limit_sec"`
	UpperBound   int             `json:"upper_bound"`
}

// SessionList is the body of GET /api/sessions.
type SessionList struct {
	Sessions []string `json:"sessions"`
}

// SessionDisconnector drops the live connections of a removed session.
type SessionDisconnector interface {
	CloseSession(sessionID uuid.UUID) int
}

// StateHandler handles HTTP requests for session state and history
type StateHandler struct {
	sessions    SessionProvider
	results     ResultsProvider
	connections SessionDisconnector
}

// NewStateHandler creates a new state handler
func NewStateHandler(sessions SessionProvider, results ResultsProvider, connections SessionDisconnector) *StateHandler {
	return &StateHandler{
		sessions:    sessions,
		results:     results,
		connections: connections,
	}
}

// HandleCreateSession handles POST /api/sessions
func (h *StateHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()
	writeJSON(w, http.StatusCreated, s.Snapshot())
}

// HandleListSessions handles GET /api/sessions
func (h *StateHandler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	ids := h.sessions.List()
	resp := SessionList{Sessions: make([]string, 0, len(ids))}
	for _, id := range ids {
		resp.Sessions = append(resp.Sessions, id.String())
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleGetSessionState handles GET /api/sessions/{id}/state
func (h *StateHandler) HandleGetSessionState(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	s, err := h.sessions.Get(sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to get session")
		http.Error(w, "Failed to get session state", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, s.Snapshot())
}

// HandleDeleteSession handles DELETE /api/sessions/{id}
func (h *StateHandler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	if err := h.sessions.Remove(sessionID); errors.Is(err, session.ErrSessionNotFound) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	} else if err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to remove session")
		http.Error(w, "Failed to remove session", http.StatusInternalServerError)
		return
	}
	h.connections.CloseSession(sessionID)

	w.WriteHeader(http.StatusNoContent)
}

// HandleGetResults handles GET /api/sessions/{id}/results?limit=
func (h *StateHandler) HandleGetResults(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	list, err := h.results.ListResults(r.Context(), sessionID, limit)
	if errors.Is(err, results.ErrInvalidLimit) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to list results")
		http.Error(w, "Failed to list results", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []results.Result{}
	}

	writeJSON(w, http.StatusOK, list)
}

// HandleGetStats handles GET /api/sessions/{id}/stats
func (h *StateHandler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	stats, err := h.results.Stats(r.Context(), sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to compute stats")
		http.Error(w, "Failed to compute stats", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// HandleListDifficulties handles GET /api/difficulties
func (h *StateHandler) HandleListDifficulties(w http.ResponseWriter, r *http.Request) {
	var out []DifficultyInfo
	for _, d := range quiz.Difficulties() {
		p, _ := d.Preset()
		out = append(out, DifficultyInfo{Level: d, TimeLimitSec: p.TimeLimitSec, UpperBound: p.UpperBound})
	}
	writeJSON(w, http.StatusOK, out)
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/difficulties", h.HandleListDifficulties)
	mux.HandleFunc("POST /api/sessions", h.HandleCreateSession)
	mux.HandleFunc("GET /api/sessions", h.HandleListSessions)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.HandleDeleteSession)
	mux.HandleFunc("GET /api/sessions/{id}/state", h.HandleGetSessionState)
	mux.HandleFunc("GET /api/sessions/{id}/results", h.HandleGetResults)
	mux.HandleFunc("GET /api/sessions/{id}/stats", h.HandleGetStats)
}

func parseSessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid session ID format", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
