package results

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/sumrush/go/internal/quiz"
	"github.com/rs/zerolog/log"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Repository defines what the results app layer needs from storage.
type Repository interface {
	InsertResult(ctx context.Context, r Result) error
	// ListResults returns the newest results first.
	ListResults(ctx context.Context, sessionID uuid.UUID, limit int) ([]Result, error)
	// ListAllResults returns every result for the session, oldest first.
	ListAllResults(ctx context.Context, sessionID uuid.UUID) ([]Result, error)
}

// App handles round history business logic.
type App struct {
	repo Repository
}

// NewApp creates a new results App
func NewApp(repo Repository) *App {
	return &App{
		repo: repo,
	}
}

// RecordResult validates and stores a concluded round.
func (a *App) RecordResult(ctx context.Context, r Result) error {
	if err := validateResult(r); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if err := a.repo.InsertResult(ctx, r); err != nil {
		return fmt.Errorf("failed to insert result: %w", err)
	}

	log.Debug().
		Str("session_id", r.SessionID.String()).
		Int("round", r.Round).
		Str("outcome", string(r.Outcome)).
		Msg("recorded round result")
	return nil
}

// ListResults returns up to limit recent results; zero selects DefaultListLimit.
func (a *App) ListResults(ctx context.Context, sessionID uuid.UUID, limit int) ([]Result, error) {
	if limit == 0 {
		limit = DefaultListLimit
	}
	if limit < 0 || limit > MaxListLimit {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidLimit, limit, MaxListLimit)
	}

	rs, err := a.repo.ListResults(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	return rs, nil
}

// Stats computes per-difficulty counts and correct-answer streaks.
func (a *App) Stats(ctx context.Context, sessionID uuid.UUID) (*Stats, error) {
	rs, err := a.repo.ListAllResults(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	return computeStats(sessionID, rs), nil
}

func computeStats(sessionID uuid.UUID, rs []Result) *Stats {
	stats := &Stats{
		SessionID:    sessionID,
		ByDifficulty: make(map[quiz.Difficulty]DifficultyStats),
	}
	streakByDifficulty := make(map[quiz.Difficulty]int)

	for _, r := range rs {
		ds := stats.ByDifficulty[r.Difficulty]
		ds.Played++
		stats.TotalPlayed++

		switch r.Outcome {
		case quiz.OutcomeCorrect:
			ds.Correct++
			stats.CurrentStreak++
			streakByDifficulty[r.Difficulty]++
			stats.BestStreak = max(stats.BestStreak, stats.CurrentStreak)
			ds.BestStreak = max(ds.BestStreak, streakByDifficulty[r.Difficulty])
		case quiz.OutcomeWrong:
			ds.Wrong++
			stats.CurrentStreak = 0
			streakByDifficulty[r.Difficulty] = 0
		case quiz.OutcomeTimeout:
			ds.Timeout++
			stats.CurrentStreak = 0
			streakByDifficulty[r.Difficulty] = 0
		}
		stats.ByDifficulty[r.Difficulty] = ds
	}
	return stats
}

func validateResult(r Result) error {
	if r.SessionID == uuid.Nil {
		return fmt.Errorf("%w: session_id is required", ErrInvalidResult)
	}
	if !r.Difficulty.Valid() {
		return fmt.Errorf("%w: difficulty %q", ErrInvalidResult, r.Difficulty)
	}
	switch r.Outcome {
	case quiz.OutcomeCorrect, quiz.OutcomeWrong, quiz.OutcomeTimeout:
	default:
		return fmt.Errorf("%w: outcome %q", ErrInvalidResult, r.Outcome)
	}
	if r.TimeLeftSec < 0 {
		return fmt.Errorf("%w: negative time_left_sec", ErrInvalidResult)
	}
	return nil
}
