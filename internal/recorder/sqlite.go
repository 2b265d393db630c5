package recorder

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while a refresh writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			timestamp   INTEGER NOT NULL,
			pool        TEXT,
			state       TEXT,
			tickers     INTEGER,
			scored      INTEGER,
			allocated   INTEGER,
			skipped     TEXT,
			issues      INTEGER,
			amount      REAL,
			threshold   REAL,
			max_pe      REAL,
			sector_pen  INTEGER,
			duration_ms INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS allocations (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id         TEXT NOT NULL REFERENCES runs(id),
			rank           INTEGER,
			ticker         TEXT,
			name           TEXT,
			sector         TEXT,
			score          REAL,
			price          REAL,
			fraction       REAL,
			investment     REAL,
			target_shares  INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alloc_run ON allocations(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_alloc_ticker ON allocations(ticker)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores the run and its allocation rows in one transaction.
// Holdings and rebalance actions are not stored.
func (r *SQLiteRecorder) RecordRun(snap *RunSnapshot) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := snap.ID
	if id == "" {
		id = uuid.New().String()
	}
	started := snap.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	res := snap.Result
	p := res.Params

	tx, err := r.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs
		(id, timestamp, pool, state, tickers, scored, allocated, skipped, issues,
		 amount, threshold, max_pe, sector_pen, duration_ms)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		id, started.Unix(), snap.Pool, string(res.State()), snap.Tickers,
		len(res.Scored), len(res.Allocations), strings.Join(snap.Skipped, ","), snap.Issues,
		p.Allocation.Amount, p.Allocation.Threshold, p.Allocation.MaxPE, p.SectorPenalty,
		snap.Duration.Milliseconds(),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO allocations
		(run_id, rank, ticker, name, sector, score, price, fraction, investment,
		 target_shares)
		VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return "", fmt.Errorf("prepare allocation insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range res.Allocations {
		var price any
		if row.Price != nil {
			price = *row.Price
		}
		if _, err := stmt.Exec(id, i+1, row.Ticker, row.Name, row.SectorOrUnknown(),
			row.Score, price, row.Fraction, row.Investment,
			row.TargetShares); err != nil {
			return "", fmt.Errorf("insert allocation %s: %w", row.Ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// RecentRuns returns the newest runs first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(`SELECT id, timestamp, pool, state, tickers, scored, allocated,
		amount, threshold, duration_ms FROM runs ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			s  RunSummary
			ts int64
		)
		if err := rows.Scan(&s.ID, &ts, &s.Pool, &s.State, &s.Tickers, &s.Scored, &s.Allocated,
			&s.Amount, &s.Threshold, &s.DurationMs); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.StartedAt = time.Unix(ts, 0)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
