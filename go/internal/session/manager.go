// Package session hosts live quiz sessions. Each session wraps one
// RoundController and its countdown behind a mutex; the Manager owns the
// sessions, reaps idle ones and runs the side effects of round transitions
// (result recording and event publishing) on a worker pool.
package session

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/sumrush/go/internal/events"
	"github.com/mcdev12/sumrush/go/internal/quiz"
	"github.com/mcdev12/sumrush/go/internal/random"
	"github.com/mcdev12/sumrush/go/internal/results"
	"github.com/rs/zerolog/log"
)

const drainTimeout = 5 * time.Second

// Recorder persists concluded rounds.
type Recorder interface {
	RecordResult(ctx context.Context, r results.Result) error
}

// Publisher forwards lifecycle events to the bus.
type Publisher interface {
	Publish(ctx context.Context, env events.Envelope) error
}

// Config tunes the manager.
type Config struct {
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"SESSION_IDLE_TIMEOUT"`
	ReapInterval time.Duration `yaml:"reap_interval" env:"SESSION_REAP_INTERVAL"`
	NumWorkers   int           `yaml:"num_workers" env:"SESSION_WORKERS"`
	QueueSize    int           `yaml:"queue_size" env:"SESSION_QUEUE_SIZE"`
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:  30 * time.Minute,
		ReapInterval: time.Minute,
		NumWorkers:   4,
		QueueSize:    256,
	}
}

// Stats describes the manager at a point in time.
type Stats struct {
	Sessions     int `json:"sessions"`
	ActiveRounds int `json:"active_rounds"`
	QueuedJobs   int `json:"queued_jobs"`
}

// job is a side effect of a round transition. Jobs for one session always
// land on the same worker so they run in the order they were enqueued.
type job struct {
	sessionID uuid.UUID
	kind      string
	run       func(ctx context.Context, m *Manager) error
}

// Manager owns all live sessions.
type Manager struct {
	cfg       Config
	clock     clockwork.Clock
	recorder  Recorder
	publisher Publisher
	newSource func() quiz.NumberSource

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session

	workChs []chan job
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock sets the clock used for countdowns and idle tracking.
func WithClock(clock clockwork.Clock) ManagerOption {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithSourceFactory sets how each new session gets its number source.
func WithSourceFactory(f func() quiz.NumberSource) ManagerOption {
	return func(m *Manager) {
		m.newSource = f
	}
}

// NewManager creates a manager. Zero values in cfg fall back to DefaultConfig.
func NewManager(cfg Config, recorder Recorder, publisher Publisher, opts ...ManagerOption) *Manager {
	def := DefaultConfig()
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = def.ReapInterval
	}
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = def.NumWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}

	m := &Manager{
		cfg:       cfg,
		clock:     clockwork.NewRealClock(),
		recorder:  recorder,
		publisher: publisher,
		newSource: func() quiz.NumberSource { return random.NewAutoSource() },
		sessions:  make(map[uuid.UUID]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.workChs = make([]chan job, cfg.NumWorkers)
	for i := range m.workChs {
		m.workChs[i] = make(chan job, cfg.QueueSize)
	}
	return m
}

// Create starts a new session in the difficulty selection state.
func (m *Manager) Create() *Session {
	s := newSession(uuid.New(), m.clock, m.newSource(), m.enqueue)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	count := len(m.sessions)
	m.mu.Unlock()

	log.Info().
		Str("session_id", s.ID().String()).
		Int("sessions", count).
		Msg("session created")
	return s
}

// Get returns the session with id.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Remove closes and forgets the session with id.
func (m *Manager) Remove(id uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	log.Info().Str("session_id", id.String()).Msg("session removed")
	return nil
}

// List returns the IDs of all live sessions in a stable order.
func (m *Manager) List() []uuid.UUID {
	m.mu.RLock()
	ids := make([]uuid.UUID, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Stats reports session and queue counts.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	st := Stats{Sessions: len(sessions)}
	for _, s := range sessions {
		if s.active() {
			st.ActiveRounds++
		}
	}
	for _, ch := range m.workChs {
		st.QueuedJobs += len(ch)
	}
	return st
}

// Run starts the workers and the idle reaper and blocks until ctx is done.
// Jobs still queued at shutdown are drained before Run returns.
func (m *Manager) Run(ctx context.Context) error {
	log.Info().
		Int("workers", len(m.workChs)).
		Dur("idle_timeout", m.cfg.IdleTimeout).
		Msg("session manager started")

	var wg sync.WaitGroup
	for i, ch := range m.workChs {
		wg.Add(1)
		go m.worker(ctx, &wg, i, ch)
	}

	ticker := m.clock.NewTicker(m.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("session manager shutting down")
			m.closeAll()
			wg.Wait()
			log.Info().Msg("all session workers shut down")
			return nil
		case now := <-ticker.Chan():
			m.reapIdle(now)
		}
	}
}

func (m *Manager) worker(ctx context.Context, wg *sync.WaitGroup, workerID int, ch <-chan job) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			m.drain(workerID, ch)
			return
		case j := <-ch:
			m.runJob(ctx, workerID, j)
		}
	}
}

// drain runs whatever is left on ch with a fresh deadline, since the
// caller's context is already cancelled.
func (m *Manager) drain(workerID int, ch <-chan job) {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	for {
		select {
		case j := <-ch:
			m.runJob(ctx, workerID, j)
		default:
			return
		}
	}
}

func (m *Manager) runJob(ctx context.Context, workerID int, j job) {
	if err := j.run(ctx, m); err != nil {
		log.Error().
			Err(err).
			Str("session_id", j.sessionID.String()).
			Str("job", j.kind).
			Int("worker_id", workerID).
			Msg("session job failed")
	}
}

// enqueue never blocks; it is called with a session lock held.
func (m *Manager) enqueue(j job) {
	ch := m.workChs[m.shard(j.sessionID)]
	select {
	case ch <- j:
	default:
		log.Warn().
			Str("session_id", j.sessionID.String()).
			Str("job", j.kind).
			Msg("session job queue full, dropping job")
	}
}

func (m *Manager) shard(id uuid.UUID) int {
	h := fnv.New32a()
	h.Write(id[:])
	return int(h.Sum32() % uint32(len(m.workChs)))
}

func (m *Manager) reapIdle(now time.Time) int {
	m.mu.Lock()
	var reaped []*Session
	for id, s := range m.sessions {
		if s.reapable(now, m.cfg.IdleTimeout) {
			delete(m.sessions, id)
			reaped = append(reaped, s)
		}
	}
	m.mu.Unlock()

	for _, s := range reaped {
		s.Close()
		log.Info().Str("session_id", s.ID().String()).Msg("reaped idle session")
	}
	return len(reaped)
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[uuid.UUID]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
