package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/sumrush/go/internal/quiz"
)

// Snapshot is an immutable view of a session for rendering.
type Snapshot struct {
	SessionID  uuid.UUID       `json:"session_id"`
	Phase      quiz.Phase      `json:"phase"`
	Difficulty quiz.Difficulty `json:"difficulty,omitempty"`
	Preset     *quiz.Preset    `json:"preset,omitempty"`
	Problem    *quiz.Problem   `json:"problem,omitempty"`
	State      quiz.RoundState `json:"state"`
	Outcome    quiz.Outcome    `json:"outcome,omitempty"`
	Round      int             `json:"round"`
	Streak     int             `json:"streak"`
	BestStreak int             `json:"best_streak"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Listener receives a snapshot after every state transition. It is called
// with the session locked, so it must not block or call back into the session.
type Listener func(Snapshot)
