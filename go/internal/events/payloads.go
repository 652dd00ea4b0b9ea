// Package events defines the round lifecycle events shared between the
// session layer, the websocket gateway and the event bus publisher.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type names a round lifecycle event.
type Type string

const (
	TypeRoundStarted      Type = "RoundStarted"
	TypeRoundEnded        Type = "RoundEnded"
	TypeDifficultyCleared Type = "DifficultyCleared"
)

// Envelope wraps a payload with routing metadata.
type Envelope struct {
	ID        uuid.UUID       `json:"eventId"`
	Type      Type            `json:"eventType"`
	SessionID uuid.UUID       `json:"sessionId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload into a fresh envelope.
func NewEnvelope(sessionID uuid.UUID, eventType Type, payload any, at time.Time) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		ID:        uuid.New(),
		Type:      eventType,
		SessionID: sessionID,
		Timestamp: at.UTC(),
		Payload:   data,
	}, nil
}

// RoundStartedPayload is emitted when a difficulty is selected or a new game begins.
type RoundStartedPayload struct {
	Round        int       `json:"round"`
	Difficulty   string    `json:"difficulty"`
	A            int       `json:"a"`
	B            int       `json:"b"`
	TimeLimitSec int       `json:"time_limit_sec"`
	StartedAt    time.Time `json:"started_at"`
}

// RoundEndedPayload is emitted once per round when it ends, including rounds
// the player leaves early.
type RoundEndedPayload struct {
	Round       int       `json:"round"`
	Difficulty  string    `json:"difficulty"`
	Outcome     string    `json:"outcome"`
	Answer      string    `json:"answer"`
	Solution    int       `json:"solution"`
	TimeLeftSec int       `json:"time_left_sec"`
	Streak      int       `json:"streak"`
	EndedAt     time.Time `json:"ended_at"`
}

// DifficultyClearedPayload is emitted when the player returns to difficulty selection.
type DifficultyClearedPayload struct {
	Previous  string    `json:"previous"`
	ClearedAt time.Time `json:"cleared_at"`
}
