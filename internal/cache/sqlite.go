package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"SmartPortfolio/internal/model"
)

// SQLite is a Store that survives restarts.
type SQLite struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
	log zerolog.Logger
}

// NewSQLite opens (or creates) the cache database and runs migrations.
func NewSQLite(path string, ttl time.Duration, log zerolog.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS fundamentals_cache (
		ticker    TEXT PRIMARY KEY,
		payload   BLOB NOT NULL,
		stored_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache: %w", err)
	}

	s := &SQLite{db: db, ttl: ttl, now: time.Now, log: log.With().Str("component", "cache").Logger()}
	s.log.Info().Str("path", path).Dur("ttl", ttl).Msg("sqlite cache opened")
	return s, nil
}

func (s *SQLite) Get(ctx context.Context, ticker string) (*model.FundamentalRecord, bool, error) {
	var (
		payload  []byte
		storedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, stored_at FROM fundamentals_cache WHERE ticker = ?`, ticker,
	).Scan(&payload, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache %s: %w", ticker, err)
	}
	if expired(time.Unix(storedAt, 0), s.ttl, s.now()) {
		return nil, false, nil
	}
	rec, err := decode(payload)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

func (s *SQLite) Put(ctx context.Context, rec *model.FundamentalRecord) error {
	data, err := encode(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO fundamentals_cache (ticker, payload, stored_at) VALUES (?, ?, ?)
		 ON CONFLICT(ticker) DO UPDATE SET payload = excluded.payload, stored_at = excluded.stored_at`,
		rec.Ticker, data, s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("write cache %s: %w", rec.Ticker, err)
	}
	return nil
}

// Purge removes entries older than the TTL and returns how many were dropped.
func (s *SQLite) Purge(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.ttl).Unix()
	res, err := s.db.ExecContext(ctx, `DELETE FROM fundamentals_cache WHERE stored_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
