package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/mcdev12/sumrush/go/internal/session"
	"github.com/rs/zerolog/log"
)

// SessionProvider is the part of session.Manager the gateway needs.
type SessionProvider interface {
	Create() *session.Session
	Get(id uuid.UUID) (*session.Session, error)
	Remove(id uuid.UUID) error
	List() []uuid.UUID
	Stats() session.Stats
}

// WebSocketHandler handles WebSocket upgrade requests for quiz sessions
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	sessions          SessionProvider
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager, sessions SessionProvider) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		sessions:          sessions,
	}
}

// HandleQuizConnection attaches a WebSocket to the session named by the
// session_id query parameter, or to a new session when it is absent.
func (h *WebSocketHandler) HandleQuizConnection(w http.ResponseWriter, r *http.Request) {
	var s *session.Session

	if sessionIDStr := r.URL.Query().Get("session_id"); sessionIDStr == "" {
		s = h.sessions.Create()
	} else {
		sessionID, err := uuid.Parse(sessionIDStr)
		if err != nil {
			http.Error(w, "invalid session_id format", http.StatusBadRequest)
			return
		}
		s, err = h.sessions.Get(sessionID)
		if errors.Is(err, session.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "failed to load session", http.StatusInternalServerError)
			return
		}
	}

	// The upgrader has already replied to the client on failure.
	if err := h.connectionManager.UpgradeConnection(w, r, s); err != nil {
		log.Error().
			Err(err).
			Str("session_id", s.ID().String()).
			Msg("failed to upgrade WebSocket connection")
	}
}

type connectionStatsResponse struct {
	ConnectionStats
	Sessions     int `json:"sessions"`
	ActiveRounds int `json:"active_rounds"`
	QueuedJobs   int `json:"queued_jobs"`
}

// HandleConnectionStats returns statistics about active connections and sessions
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	sessionStats := h.sessions.Stats()
	resp := connectionStatsResponse{
		ConnectionStats: h.connectionManager.GetConnectionStats(),
		Sessions:        sessionStats.Sessions,
		ActiveRounds:    sessionStats.ActiveRounds,
		QueuedJobs:      sessionStats.QueuedJobs,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/quiz", h.HandleQuizConnection)
	mux.HandleFunc("GET /ws/stats", h.HandleConnectionStats)
}
