package results

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/sumrush/go/internal/quiz"
)

// Result is one concluded round.
type Result struct {
	ID          uuid.UUID       `json:"id"`
	SessionID   uuid.UUID       `json:"session_id"`
	Round       int             `json:"round"`
	Difficulty  quiz.Difficulty `json:"difficulty"`
	A           int             `json:"a"`
	B           int             `json:"b"`
	Answer      string          `json:"answer"`
	Outcome     quiz.Outcome    `json:"outcome"`
	TimeLeftSec int             `json:"time_left_sec"`
	FinishedAt  time.Time       `json:"finished_at"`
}

// DifficultyStats aggregates rounds played at one difficulty.
type DifficultyStats struct {
	Played     int `json:"played"`
	Correct    int `json:"correct"`
	Wrong      int `json:"wrong"`
	Timeout    int `json:"timeout"`
	BestStreak int `json:"best_streak"`
}

// Stats summarises a session's history.
type Stats struct {
	SessionID     uuid.UUID                           `json:"session_id"`
	TotalPlayed   int                                 `json:"total_played"`
	CurrentStreak int                                 `json:"current_streak"`
	BestStreak    int                                 `json:"best_streak"`
	ByDifficulty  map[quiz.Difficulty]DifficultyStats `json:"by_difficulty"`
}
