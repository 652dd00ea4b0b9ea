package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/sumrush/go/internal/events"
	"github.com/mcdev12/sumrush/go/internal/quiz"
)

func TestManager_GetRemove(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	s := m.Create()

	got, err := m.Get(s.ID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != s {
		t.Error("Get returned a different session")
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d, want 1", m.Len())
	}

	if err := m.Remove(s.ID()); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := m.Get(s.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get after Remove: err = %v, want %v", err, ErrSessionNotFound)
	}
	if err := m.Remove(s.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second Remove: err = %v, want %v", err, ErrSessionNotFound)
	}
	if err := s.NewGame(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("NewGame on removed session: err = %v, want %v", err, ErrSessionClosed)
	}
	if _, err := m.Get(uuid.New()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get unknown: err = %v, want %v", err, ErrSessionNotFound)
	}
}

func TestManager_Stats(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	a := m.Create()
	b := m.Create()
	defer a.Close()
	defer b.Close()

	if err := a.SelectDifficulty(quiz.DifficultyEasy); err != nil {
		t.Fatalf("SelectDifficulty: %v", err)
	}

	// One RoundStarted publish is waiting because no workers are running.
	want := Stats{Sessions: 2, ActiveRounds: 1, QueuedJobs: 1}
	if diff := cmp.Diff(want, m.Stats()); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
	if got := m.List(); len(got) != 2 {
		t.Errorf("List returned %d ids, want 2", len(got))
	}
}

func TestManager_RunDrainsQueueOnShutdown(t *testing.T) {
	m, _, rec, pub := newTestManager(t)
	s := m.Create()

	if err := s.SelectDifficulty(quiz.DifficultyEasy); err != nil {
		t.Fatalf("SelectDifficulty: %v", err)
	}
	if _, err := s.SubmitAnswer("8"); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if err := s.ChangeDifficulty(); err != nil {
		t.Fatalf("ChangeDifficulty: %v", err)
	}
	// Clearing an already cleared difficulty publishes nothing.
	if err := s.ChangeDifficulty(); err != nil {
		t.Fatalf("ChangeDifficulty: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantTypes := []events.Type{
		events.TypeRoundStarted,
		events.TypeRoundEnded,
		events.TypeDifficultyCleared,
	}
	if diff := cmp.Diff(wantTypes, pub.published()); diff != "" {
		t.Errorf("published mismatch (-want +got):\n%s", diff)
	}

	got := rec.recorded()
	if len(got) != 1 {
		t.Fatalf("recorded %d results, want 1", len(got))
	}
	r := got[0]
	if r.SessionID != s.ID() || r.Round != 1 || r.Difficulty != quiz.DifficultyEasy {
		t.Errorf("result identity = %s/%d/%s", r.SessionID, r.Round, r.Difficulty)
	}
	if r.A != 3 || r.B != 4 || r.Answer != "8" || r.Outcome != quiz.OutcomeWrong {
		t.Errorf("result = %+v", r)
	}
	if m.Len() != 0 {
		t.Errorf("Len after shutdown = %d, want 0", m.Len())
	}
}

func TestManager_RunRecordsWhileRunning(t *testing.T) {
	m, _, rec, _ := newTestManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	s := m.Create()
	if err := s.SelectDifficulty(quiz.DifficultyHard); err != nil {
		t.Fatalf("SelectDifficulty: %v", err)
	}
	if _, err := s.SubmitAnswer("7"); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for len(rec.recorded()) == 0 {
		select {
		case <-deadline:
			t.Fatal("result was not recorded")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if got := rec.recorded()[0].Outcome; got != quiz.OutcomeCorrect {
		t.Errorf("outcome = %s, want %s", got, quiz.OutcomeCorrect)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestManager_ReapIdle(t *testing.T) {
	m, fc, _, _ := newTestManager(t)
	idle := m.Create()
	watched := m.Create()
	busy := m.Create()

	unsubscribe := watched.Subscribe(func(Snapshot) {})
	defer unsubscribe()

	fc.Advance(20 * time.Minute)
	if err := busy.SetAnswerText(""); err != nil {
		t.Fatalf("SetAnswerText: %v", err)
	}
	fc.Advance(15 * time.Minute)

	if n := m.reapIdle(fc.Now()); n != 1 {
		t.Fatalf("reaped %d sessions, want 1", n)
	}
	if _, err := m.Get(idle.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("idle session still present: err = %v", err)
	}
	for _, s := range []*Session{watched, busy} {
		if _, err := m.Get(s.ID()); err != nil {
			t.Errorf("session %s reaped: %v", s.ID(), err)
		}
	}
}

func TestManager_QueueFullDropsJob(t *testing.T) {
	fc := clockwork.NewFakeClock()
	m := NewManager(Config{NumWorkers: 1, QueueSize: 1}, &fakeRecorder{}, &fakePublisher{},
		WithClock(fc),
	)
	s := m.Create()
	defer s.Close()

	if err := s.SelectDifficulty(quiz.DifficultyEasy); err != nil {
		t.Fatalf("SelectDifficulty: %v", err)
	}
	// The queue holds RoundStarted; the result and RoundEnded jobs are dropped.
	if _, err := s.SubmitAnswer("1"); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if got := m.Stats().QueuedJobs; got != 1 {
		t.Errorf("queued jobs = %d, want 1", got)
	}
}

func TestManager_ReapSkipsActiveRound(t *testing.T) {
	m, fc, _, _ := newTestManager(t)
	s := m.Create()

	if err := s.SelectDifficulty(quiz.DifficultyEasy); err != nil {
		t.Fatalf("SelectDifficulty: %v", err)
	}
	if n := m.reapIdle(fc.Now().Add(time.Hour)); n != 0 {
		t.Fatalf("reaped %d sessions with a round running, want 0", n)
	}
	if _, err := m.Get(s.ID()); err != nil {
		t.Fatalf("session reaped mid-round: %v", err)
	}

	if _, err := s.SubmitAnswer("7"); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if n := m.reapIdle(fc.Now().Add(time.Hour)); n != 1 {
		t.Fatalf("reaped %d sessions after the round ended, want 1", n)
	}
}
