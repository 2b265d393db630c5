package cache

import (
	"context"
	"sync"
	"time"

	"SmartPortfolio/internal/model"
)

type memEntry struct {
	data     []byte
	storedAt time.Time
}

// Memory is an in-process Store. Records are stored encoded so callers
// never share pointers with the cache.
type Memory struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memEntry
	now     func() time.Time
}

// NewMemory creates an in-memory store. A zero ttl never expires entries.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, entries: make(map[string]memEntry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, ticker string) (*model.FundamentalRecord, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[ticker]
	m.mu.RUnlock()
	if !ok || expired(e.storedAt, m.ttl, m.now()) {
		return nil, false, nil
	}
	rec, err := decode(e.data)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

func (m *Memory) Put(_ context.Context, rec *model.FundamentalRecord) error {
	data, err := encode(rec)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.entries[rec.Ticker] = memEntry{data: data, storedAt: m.now()}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
