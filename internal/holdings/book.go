// Package holdings tracks the user's current share counts. The book lives
// in memory only; a file can seed it at startup but is never written.
package holdings

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrEmptyTicker    = errors.New("ticker is required")
	ErrNegativeShares = errors.New("shares must not be negative")
)

// Book is a concurrency-safe ticker → shares map.
type Book struct {
	mu     sync.RWMutex
	shares map[string]int
}

// NewBook creates a book seeded with initial (copied).
func NewBook(initial map[string]int) *Book {
	b := &Book{shares: make(map[string]int, len(initial))}
	for t, n := range initial {
		if t = normalize(t); t != "" && n >= 0 {
			b.shares[t] = n
		}
	}
	return b
}

// Open creates a book seeded from a holdings file; an empty path gives an
// empty book.
func Open(path string) (*Book, error) {
	if path == "" {
		return NewBook(nil), nil
	}
	seed, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewBook(seed), nil
}

// Set records the current share count for ticker. Zero removes the entry.
func (b *Book) Set(ticker string, shares int) error {
	ticker = normalize(ticker)
	if ticker == "" {
		return ErrEmptyTicker
	}
	if shares < 0 {
		return fmt.Errorf("%s: %w", ticker, ErrNegativeShares)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if shares == 0 {
		delete(b.shares, ticker)
		return nil
	}
	b.shares[ticker] = shares
	return nil
}

// Get returns the share count for ticker, 0 when not held.
func (b *Book) Get(ticker string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.shares[normalize(ticker)]
}

// Snapshot returns a copy of all holdings.
func (b *Book) Snapshot() map[string]int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]int, len(b.shares))
	for t, n := range b.shares {
		out[t] = n
	}
	return out
}
