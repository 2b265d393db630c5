// Package cache keeps recently fetched fundamentals so repeated refreshes
// within the TTL do not hit the providers again.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"SmartPortfolio/internal/model"
)

// Store is a TTL cache of fundamentals keyed by ticker.
type Store interface {
	// Get returns the cached record and true on a fresh hit.
	Get(ctx context.Context, ticker string) (*model.FundamentalRecord, bool, error)
	Put(ctx context.Context, rec *model.FundamentalRecord) error
	Close() error
}

func encode(rec *model.FundamentalRecord) ([]byte, error) {
	data, err := msgpack.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", rec.Ticker, err)
	}
	return data, nil
}

func decode(data []byte) (*model.FundamentalRecord, error) {
	var rec model.FundamentalRecord
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode cached record: %w", err)
	}
	return &rec, nil
}

func expired(storedAt time.Time, ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(storedAt) >= ttl
}
