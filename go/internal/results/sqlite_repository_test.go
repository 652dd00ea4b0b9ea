package results

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/mcdev12/sumrush/go/internal/quiz"
)

func openTestSQLite(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := OpenSQLiteRepository(context.Background(), filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_RoundTrip(t *testing.T) {
	repo := openTestSQLite(t)
	app := NewApp(repo)
	ctx := context.Background()
	sessionID := uuid.New()
	other := uuid.New()

	want := []Result{
		newResult(sessionID, 1, quiz.DifficultyEasy, quiz.OutcomeCorrect),
		newResult(sessionID, 2, quiz.DifficultyEasy, quiz.OutcomeWrong),
		newResult(sessionID, 3, quiz.DifficultyHard, quiz.OutcomeTimeout),
	}
	for _, r := range append(want, newResult(other, 1, quiz.DifficultyMedium, quiz.OutcomeCorrect)) {
		if err := app.RecordResult(ctx, r); err != nil {
			t.Fatalf("RecordResult: %v", err)
		}
	}
	// Re-inserting an existing id is ignored.
	if err := repo.InsertResult(ctx, want[0]); err != nil {
		t.Fatalf("duplicate InsertResult: %v", err)
	}

	all, err := repo.ListAllResults(ctx, sessionID)
	if err != nil {
		t.Fatalf("ListAllResults: %v", err)
	}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Errorf("ListAllResults mismatch (-want +got):\n%s", diff)
	}

	recent, err := app.ListResults(ctx, sessionID, 2)
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if diff := cmp.Diff([]Result{want[2], want[1]}, recent); diff != "" {
		t.Errorf("ListResults mismatch (-want +got):\n%s", diff)
	}

	stats, err := app.Stats(ctx, sessionID)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalPlayed != 3 || stats.BestStreak != 1 {
		t.Errorf("stats = played %d best %d, want 3/1", stats.TotalPlayed, stats.BestStreak)
	}
}

func TestSQLiteRepository_RequiresPath(t *testing.T) {
	if _, err := OpenSQLiteRepository(context.Background(), "  "); err == nil {
		t.Error("OpenSQLiteRepository with blank path succeeded, want error")
	}
}
