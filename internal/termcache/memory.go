package termcache

import (
	"context"
	"sync"

	"github.com/starford/bilimsoz/internal/apperr"
	"github.com/starford/bilimsoz/internal/models"
)

// MemoryBackend keeps entries in process memory. Nothing survives a restart.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[models.Subject]Entry
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[models.Subject]Entry)}
}

func (m *MemoryBackend) Load(_ context.Context, subject models.Subject) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[subject]
	if !ok {
		return nil, apperr.ErrCacheMiss
	}
	e.Terms = append([]models.Term(nil), e.Terms...)
	return &e, nil
}

func (m *MemoryBackend) Save(_ context.Context, e *Entry) error {
	stored := *e
	stored.Terms = append([]models.Term(nil), e.Terms...)

	m.mu.Lock()
	m.entries[e.Subject] = stored
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Clear(_ context.Context) error {
	m.mu.Lock()
	m.entries = make(map[models.Subject]Entry)
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Close() error { return nil }

var _ Backend = (*MemoryBackend)(nil)
