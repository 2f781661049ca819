package leaderboard

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository хранит рекорды в памяти процесса
type MemoryRepository struct {
	mu         sync.RWMutex
	entries    []Entry
	maxEntries int
	closed     bool
}

// NewMemoryRepository создаёт репозиторий; maxEntries <= 0 означает 1000
func NewMemoryRepository(maxEntries int) *MemoryRepository {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &MemoryRepository{maxEntries: maxEntries}
}

func (r *MemoryRepository) Submit(_ context.Context, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}

	i := sort.Search(len(r.entries), func(i int) bool { return ranksBefore(e, r.entries[i]) })
	r.entries = append(r.entries, Entry{})
	copy(r.entries[i+1:], r.entries[i:])
	r.entries[i] = e

	if len(r.entries) > r.maxEntries {
		r.entries = r.entries[:r.maxEntries]
	}
	return nil
}

func (r *MemoryRepository) Top(_ context.Context, limit int) ([]Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrClosed
	}
	limit = NormalizeLimit(limit)
	if limit > len(r.entries) {
		limit = len(r.entries)
	}
	out := make([]Entry, limit)
	copy(out, r.entries[:limit])
	return out, nil
}

func (r *MemoryRepository) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}
