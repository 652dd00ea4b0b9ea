package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/sumrush/go/internal/countdown"
	"github.com/mcdev12/sumrush/go/internal/events"
	"github.com/mcdev12/sumrush/go/internal/quiz"
	"github.com/mcdev12/sumrush/go/internal/results"
	"github.com/rs/zerolog/log"
)

// Session serialises access to one player's RoundController. Commands from
// the gateway and ticks from the countdown goroutine both go through mu.
type Session struct {
	id      uuid.UUID
	clock   clockwork.Clock
	enqueue func(job)

	mu             sync.Mutex
	ctrl           *quiz.RoundController
	countdown      *countdown.Countdown
	round          int
	streak         int
	bestStreak     int
	lastActivity   time.Time
	closed         bool
	listeners      map[uint64]Listener
	nextListenerID uint64
}

func newSession(id uuid.UUID, clock clockwork.Clock, src quiz.NumberSource, enqueue func(job)) *Session {
	s := &Session{
		id:           id,
		clock:        clock,
		enqueue:      enqueue,
		lastActivity: clock.Now(),
		listeners:    make(map[uint64]Listener),
	}
	s.countdown = countdown.New(clock, s.handleTick, countdown.WithName(id.String()))
	s.ctrl = quiz.NewRoundController(
		quiz.WithNumberSource(src),
		quiz.WithCountdown(s.countdown),
	)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// SelectDifficulty starts a round at d.
func (s *Session) SelectDifficulty(d quiz.Difficulty) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	s.touch()

	if _, ok := d.Preset(); !ok {
		return quiz.ErrUnknownDifficulty
	}
	s.abandonRound()
	if err := s.ctrl.SelectDifficulty(d); err != nil {
		return err
	}
	s.roundStarted()
	s.notify()
	return nil
}

// ChangeDifficulty returns to difficulty selection.
func (s *Session) ChangeDifficulty() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	s.touch()

	previous := s.ctrl.Difficulty()
	s.abandonRound()
	s.ctrl.ChangeDifficulty()
	if previous != quiz.DifficultyNone {
		now := s.clock.Now()
		s.publish(events.TypeDifficultyCleared, events.DifficultyClearedPayload{
			Previous:  string(previous),
			ClearedAt: now,
		})
		log.Info().
			Str("session_id", s.id.String()).
			Str("previous", string(previous)).
			Msg("difficulty cleared")
	}
	s.notify()
	return nil
}

// NewGame starts another round at the current difficulty.
func (s *Session) NewGame() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	s.touch()

	if s.ctrl.Difficulty() == quiz.DifficultyNone {
		return quiz.ErrNoDifficulty
	}
	s.abandonRound()
	if err := s.ctrl.NewGame(); err != nil {
		return err
	}
	s.roundStarted()
	s.notify()
	return nil
}

// SetAnswerText mirrors the answer field so every connected view stays in sync.
func (s *Session) SetAnswerText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	s.touch()

	s.ctrl.SetAnswerText(text)
	s.notify()
	return nil
}

// SubmitAnswer evaluates raw and ends the round.
func (s *Session) SubmitAnswer(raw string) (quiz.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return quiz.OutcomeNone, ErrSessionClosed
	}
	s.touch()

	outcome, err := s.ctrl.SubmitAnswer(raw)
	if err != nil {
		return outcome, err
	}
	s.roundEnded()
	s.notify()
	return outcome, nil
}

// Snapshot returns the current view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Subscribe registers l and returns a function that removes it.
func (s *Session) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextListenerID
	s.nextListenerID++
	s.listeners[id] = l

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Close stops the countdown and drops all listeners. Further commands fail
// with ErrSessionClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.countdown.Stop()
	s.listeners = make(map[uint64]Listener)
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// reapable reports whether an unwatched session with no round running has
// gone idle long enough to drop.
func (s *Session) reapable(now time.Time, idle time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners) == 0 &&
		s.ctrl.Phase() != quiz.PhaseRoundActive &&
		now.Sub(s.lastActivity) >= idle
}

func (s *Session) active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.Phase() == quiz.PhaseRoundActive
}

// handleTick runs on the countdown goroutine.
func (s *Session) handleTick(generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.countdown.IsCurrent(generation) {
		log.Debug().
			Str("session_id", s.id.String()).
			Uint64("generation", generation).
			Msg("discarding stale tick")
		return
	}

	if s.ctrl.Tick() {
		s.roundEnded()
	}
	s.notify()
}

// The helpers below must be called with mu held.

func (s *Session) touch() {
	s.lastActivity = s.clock.Now()
}

func (s *Session) roundStarted() {
	s.round++
	problem, _ := s.ctrl.Problem()
	preset := s.ctrl.Preset()

	s.publish(events.TypeRoundStarted, events.RoundStartedPayload{
		Round:        s.round,
		Difficulty:   string(s.ctrl.Difficulty()),
		A:            problem.A,
		B:            problem.B,
		TimeLimitSec: preset.TimeLimitSec,
		StartedAt:    s.clock.Now(),
	})

	log.Info().
		Str("session_id", s.id.String()).
		Str("difficulty", string(s.ctrl.Difficulty())).
		Int("round", s.round).
		Int("time_limit_sec", preset.TimeLimitSec).
		Msg("round started")
}

// abandonRound scores a round that is left before it ends as wrong, so
// rerolling a problem breaks the streak like a miss does.
func (s *Session) abandonRound() {
	if s.ctrl.Phase() != quiz.PhaseRoundActive {
		return
	}
	log.Info().
		Str("session_id", s.id.String()).
		Int("round", s.round).
		Msg("round abandoned")
	s.finishRound(quiz.OutcomeWrong)
}

func (s *Session) roundEnded() {
	s.finishRound(s.ctrl.Outcome())
}

func (s *Session) finishRound(outcome quiz.Outcome) {
	if outcome == quiz.OutcomeCorrect {
		s.streak++
		s.bestStreak = max(s.bestStreak, s.streak)
	} else {
		s.streak = 0
	}

	now := s.clock.Now()
	problem, _ := s.ctrl.Problem()
	state := s.ctrl.State()

	result := results.Result{
		ID:          uuid.New(),
		SessionID:   s.id,
		Round:       s.round,
		Difficulty:  s.ctrl.Difficulty(),
		A:           problem.A,
		B:           problem.B,
		Answer:      state.AnswerText,
		Outcome:     outcome,
		TimeLeftSec: state.TimeLeftSec,
		FinishedAt:  now.UTC(),
	}
	s.enqueue(job{
		sessionID: s.id,
		kind:      "record_result",
		run: func(ctx context.Context, m *Manager) error {
			return m.recorder.RecordResult(ctx, result)
		},
	})

	s.publish(events.TypeRoundEnded, events.RoundEndedPayload{
		Round:       s.round,
		Difficulty:  string(result.Difficulty),
		Outcome:     string(outcome),
		Answer:      result.Answer,
		Solution:    problem.Solution(),
		TimeLeftSec: state.TimeLeftSec,
		Streak:      s.streak,
		EndedAt:     now,
	})

	log.Info().
		Str("session_id", s.id.String()).
		Int("round", s.round).
		Str("outcome", string(outcome)).
		Int("time_left_sec", state.TimeLeftSec).
		Msg("round ended")
}

func (s *Session) publish(t events.Type, payload any) {
	env, err := events.NewEnvelope(s.id, t, payload, s.clock.Now())
	if err != nil {
		log.Error().Err(err).Str("session_id", s.id.String()).Msg("failed to build event")
		return
	}
	s.enqueue(job{
		sessionID: s.id,
		kind:      fmt.Sprintf("publish_%s", t),
		run: func(ctx context.Context, m *Manager) error {
			return m.publisher.Publish(ctx, env)
		},
	})
}

func (s *Session) notify() {
	if len(s.listeners) == 0 {
		return
	}
	snap := s.snapshot()
	for _, l := range s.listeners {
		l(snap)
	}
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		SessionID:  s.id,
		Phase:      s.ctrl.Phase(),
		Difficulty: s.ctrl.Difficulty(),
		State:      s.ctrl.State(),
		Outcome:    s.ctrl.Outcome(),
		Round:      s.round,
		Streak:     s.streak,
		BestStreak: s.bestStreak,
		UpdatedAt:  s.clock.Now().UTC(),
	}
	if p, ok := s.ctrl.Problem(); ok {
		preset := s.ctrl.Preset()
		snap.Problem = &p
		snap.Preset = &preset
	}
	return snap
}
