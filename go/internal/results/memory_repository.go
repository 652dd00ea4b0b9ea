package results

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository keeps results in process memory. It is the default store
// when no database is configured.
type MemoryRepository struct {
	mu      sync.RWMutex
	results map[uuid.UUID][]Result
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		results: make(map[uuid.UUID][]Result),
	}
}

func (m *MemoryRepository) InsertResult(ctx context.Context, r Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[r.SessionID] = append(m.results[r.SessionID], r)
	return nil
}

func (m *MemoryRepository) ListResults(ctx context.Context, sessionID uuid.UUID, limit int) ([]Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.results[sessionID]
	n := min(limit, len(all))
	out := make([]Result, 0, n)
	for i := len(all) - 1; i >= len(all)-n; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (m *MemoryRepository) ListAllResults(ctx context.Context, sessionID uuid.UUID) ([]Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Result(nil), m.results[sessionID]...), nil
}
