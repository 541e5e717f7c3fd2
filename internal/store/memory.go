package store

import (
	"context"
	"sync"
	"time"

	"github.com/rsilvagit/go-airdrop/internal/model"
)

// MemoryStore is the process-local Store used when no Redis URL is configured.
// It forgets everything on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	results []model.ScanResult // newest first
	runs    map[string]time.Time
}

func NewMemory() *MemoryStore {
	return &MemoryStore{runs: make(map[string]time.Time)}
}

func (m *MemoryStore) SaveResult(_ context.Context, res model.ScanResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append([]model.ScanResult{res}, m.results...)
	if len(m.results) > historyLimit {
		m.results = m.results[:historyLimit]
	}
	return nil
}

func (m *MemoryStore) LastResult(_ context.Context) (model.ScanResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.results) == 0 {
		return model.ScanResult{}, ErrNotFound
	}
	return m.results[0], nil
}

func (m *MemoryStore) Results(_ context.Context, since time.Time) ([]model.ScanResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.ScanResult
	for _, r := range m.results {
		if !r.ScanTime.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryStore) MarkRun(_ context.Context, job string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[job] = at
	return nil
}

func (m *MemoryStore) LastRun(_ context.Context, job string) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.runs[job]
	if !ok {
		return time.Time{}, ErrNotFound
	}
	return t, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
