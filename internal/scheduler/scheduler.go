package scheduler

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"SmartPortfolio/internal/collector"
	"SmartPortfolio/internal/export"
	"SmartPortfolio/internal/holdings"
	"SmartPortfolio/internal/notifier"
	"SmartPortfolio/internal/recorder"
	"SmartPortfolio/internal/strategy"
)

// ErrNoResult is returned before the first refresh has completed.
var ErrNoResult = errors.New("no result yet")

// Fetcher collects fundamentals for a ticker list.
type Fetcher interface {
	Collect(ctx context.Context, tickers []string) *collector.Batch
}

// Snapshot is the outcome of the latest refresh.
type Snapshot struct {
	RunID   string            `json:"run_id"`
	Pool    string            `json:"pool"`
	At      time.Time         `json:"at"`
	Tickers int               `json:"tickers"`
	Skipped []string          `json:"skipped,omitempty"`
	Issues  []collector.Issue `json:"issues,omitempty"`
	Result  *strategy.Result  `json:"result"`
	State   strategy.State    `json:"state"`
	Exports []string          `json:"exports,omitempty"`
}

// Options configures a Scheduler.
type Options struct {
	Pool    string
	Tickers []string
	Params  strategy.Params // Holdings is ignored; the book is used
	Sink    export.Sink     // optional CSV destination for every refresh
	Log     zerolog.Logger
}

// Scheduler runs the refresh pipeline on a cron schedule and answers
// commands against the latest result.
type Scheduler struct {
	cron     *cron.Cron
	fetcher  Fetcher
	book     *holdings.Book
	notifier notifier.Notifier
	recorder recorder.Recorder
	opts     Options
	log      zerolog.Logger

	refreshMu sync.Mutex // one refresh at a time
	mu        sync.RWMutex
	latest    *Snapshot
}

// NewScheduler creates a new Scheduler.
func NewScheduler(f Fetcher, book *holdings.Book, n notifier.Notifier, rec recorder.Recorder, opts Options) *Scheduler {
	log := opts.Log.With().Str("component", "scheduler").Logger()
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if n == nil {
		n = notifier.LogNotifier{Log: log}
	}
	cronLog := cron.PrintfLogger(&log)
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		fetcher:  f,
		book:     book,
		notifier: n,
		recorder: rec,
		opts:     opts,
		log:      log,
	}
}

// Register adds the refresh job. An empty spec registers nothing.
func (s *Scheduler) Register(ctx context.Context, refreshCron string) error {
	if refreshCron == "" {
		return nil
	}
	if _, err := s.cron.AddFunc(refreshCron, func() { s.refreshTask(ctx) }); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunNow executes the scheduled refresh immediately, notification included.
func (s *Scheduler) RunNow(ctx context.Context) {
	s.refreshTask(ctx)
}

func (s *Scheduler) refreshTask(ctx context.Context) {
	s.log.Info().Str("pool", s.opts.Pool).Msg("running refresh task")
	snap, err := s.Refresh(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("refresh")
		s.trySend(ctx, fmt.Sprintf("❌ Refresh failed: %v", err))
		return
	}
	s.trySend(ctx, notifier.FormatSignals(snap.Result, snap.Pool, snap.At))
	if snap.State == strategy.StateReady {
		s.trySend(ctx, notifier.FormatRebalance(snap.Result))
	}
}

// Refresh collects, evaluates, records and exports, then publishes the
// snapshot as the latest result.
func (s *Scheduler) Refresh(ctx context.Context) (*Snapshot, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	started := time.Now()
	batch := s.fetcher.Collect(ctx, s.opts.Tickers)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}

	params := s.opts.Params
	params.Holdings = s.book.Snapshot()
	res := strategy.Evaluate(batch.Records, params)

	snap := &Snapshot{
		Pool:    s.opts.Pool,
		At:      started,
		Tickers: len(s.opts.Tickers),
		Skipped: batch.Skipped,
		Issues:  batch.Issues,
		Result:  res,
		State:   res.State(),
	}

	id, err := s.recorder.RecordRun(&recorder.RunSnapshot{
		StartedAt: started,
		Duration:  time.Since(started),
		Pool:      s.opts.Pool,
		Tickers:   len(s.opts.Tickers),
		Skipped:   batch.Skipped,
		Issues:    len(batch.Issues),
		Result:    res,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("record run")
	}
	snap.RunID = id

	if s.opts.Sink != nil {
		names, err := export.Result(ctx, s.opts.Sink, res, started)
		if err != nil {
			s.log.Error().Err(err).Msg("export")
		}
		snap.Exports = names
	}

	// holdings edited while recording or exporting must not be lost
	s.mu.Lock()
	if current := s.book.Snapshot(); !maps.Equal(current, params.Holdings) {
		snap.Result = res.WithHoldings(current)
	}
	s.latest = snap
	s.mu.Unlock()

	s.log.Info().
		Str("run_id", id).
		Str("state", string(snap.State)).
		Int("scored", len(res.Scored)).
		Int("allocated", len(res.Allocations)).
		Dur("took", time.Since(started)).
		Msg("refresh complete")
	return snap, nil
}

// Latest returns the most recent snapshot, or nil before the first refresh.
func (s *Scheduler) Latest() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// SetHolding updates the book and recomputes only the rebalance table of
// the latest result. It returns the updated result, or nil when nothing
// has been scored yet.
func (s *Scheduler) SetHolding(ticker string, shares int) (*strategy.Result, error) {
	if err := s.book.Set(ticker, shares); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return nil, nil
	}
	next := *s.latest
	next.Result = s.latest.Result.WithHoldings(s.book.Snapshot())
	s.latest = &next
	return next.Result, nil
}

// Holdings returns a copy of the holdings book.
func (s *Scheduler) Holdings() map[string]int {
	return s.book.Snapshot()
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	// "/signals@MyBot" in group chats
	name := strings.ToLower(strings.SplitN(fields[0], "@", 2)[0])

	switch name {
	case "/signals":
		snap := s.Latest()
		if snap == nil {
			return noResultReply
		}
		return notifier.FormatSignals(snap.Result, snap.Pool, snap.At)
	case "/rebalance":
		snap := s.Latest()
		if snap == nil {
			return noResultReply
		}
		return notifier.FormatRebalance(snap.Result)
	case "/holdings":
		return notifier.FormatHoldings(s.Holdings())
	case "/hold":
		return s.handleHold(fields[1:])
	case "/refresh":
		snap, err := s.Refresh(ctx)
		if err != nil {
			return fmt.Sprintf("❌ Refresh failed: %v", err)
		}
		return notifier.FormatRefresh(snap.Result, snap.Tickers, len(snap.Skipped), time.Since(snap.At)) +
			"\n\n" + notifier.FormatSignals(snap.Result, snap.Pool, snap.At)
	default:
		return notifier.FormatHelp()
	}
}

const noResultReply = "No results yet. Send /refresh to fetch data."

func (s *Scheduler) handleHold(args []string) string {
	if len(args) != 2 {
		return "Usage: /hold TICKER SHARES"
	}
	shares, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Sprintf("Invalid share count %q", args[1])
	}
	res, err := s.SetHolding(args[0], shares)
	if err != nil {
		return fmt.Sprintf("❌ %v", err)
	}
	ticker := strings.ToUpper(strings.TrimSpace(args[0]))
	reply := fmt.Sprintf("✅ %s set to %d shares.", ticker, s.book.Get(ticker))
	if res != nil && res.State() == strategy.StateReady {
		reply += "\n\n" + notifier.FormatRebalance(res)
	}
	return reply
}

type retrySender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	var err error
	if r, ok := s.notifier.(retrySender); ok {
		err = r.SendWithRetry(ctx, text, 3)
	} else {
		err = s.notifier.Send(ctx, text)
	}
	if err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}
