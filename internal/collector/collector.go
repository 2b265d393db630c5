package collector

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"SmartPortfolio/internal/cache"
	"SmartPortfolio/internal/model"
)

// Source is a provider together with its call policy.
type Source struct {
	Provider Provider
	Limiter  *rate.Limiter // nil means unlimited
	Retries  int
	Timeout  time.Duration
}

// Issue is a provider failure for one ticker.
type Issue struct {
	Ticker   string `json:"ticker"`
	Provider string `json:"provider"`
	Err      string `json:"error"`
}

// Batch is the outcome of one collection cycle.
type Batch struct {
	Records   []model.FundamentalRecord
	Skipped   []string
	Issues    []Issue
	CacheHits int
	FetchedAt time.Time
}

// Collector fetches fundamentals for many tickers through an ordered
// chain of providers.
type Collector struct {
	sources []Source
	sectors map[string]string
	store   cache.Store
	workers int
	backoff time.Duration
	log     zerolog.Logger
}

// Option configures a Collector.
type Option func(*Collector)

// WithSectors sets the ticker → sector map used when no provider has one.
func WithSectors(sectors map[string]string) Option {
	return func(c *Collector) { c.sectors = sectors }
}

// WithCache consults store before any provider.
func WithCache(store cache.Store) Option {
	return func(c *Collector) { c.store = store }
}

// WithWorkers bounds the number of tickers fetched in parallel.
func WithWorkers(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithBackoff sets the base delay between retries.
func WithBackoff(d time.Duration) Option {
	return func(c *Collector) { c.backoff = d }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Collector) { c.log = log }
}

// New creates a Collector trying sources in the given order.
func New(sources []Source, opts ...Option) *Collector {
	c := &Collector{
		sources: sources,
		workers: 4,
		backoff: 500 * time.Millisecond,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("component", "collector").Logger()
	return c
}

// Collect fetches every ticker. Records follow the input order; tickers
// no provider could serve are listed in Skipped. It never fails: provider
// errors are logged and reported in Issues.
func (c *Collector) Collect(ctx context.Context, tickers []string) *Batch {
	batch := &Batch{FetchedAt: time.Now()}
	if len(tickers) == 0 {
		return batch
	}

	type slot struct {
		rec    *model.FundamentalRecord
		issues []Issue
		cached bool
	}
	slots := make([]slot, len(tickers))

	jobs := make(chan int)
	var wg sync.WaitGroup
	workers := min(c.workers, len(tickers))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				rec, issues, cached := c.fetchOne(ctx, tickers[i])
				slots[i] = slot{rec: rec, issues: issues, cached: cached}
			}
		}()
	}
	for i := range tickers {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for i, s := range slots {
		batch.Issues = append(batch.Issues, s.issues...)
		if s.cached {
			batch.CacheHits++
		}
		if s.rec == nil {
			batch.Skipped = append(batch.Skipped, tickers[i])
			continue
		}
		batch.Records = append(batch.Records, *s.rec)
	}

	c.log.Info().
		Int("tickers", len(tickers)).
		Int("records", len(batch.Records)).
		Int("skipped", len(batch.Skipped)).
		Int("cache_hits", batch.CacheHits).
		Int("issues", len(batch.Issues)).
		Msg("collection finished")
	return batch
}

// fetchOne merges provider answers for a single ticker. A nil record means
// every provider failed.
func (c *Collector) fetchOne(ctx context.Context, ticker string) (*model.FundamentalRecord, []Issue, bool) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	if c.store != nil {
		rec, ok, err := c.store.Get(ctx, ticker)
		if err != nil {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("cache read failed")
		} else if ok {
			return rec, nil, true
		}
	}

	var (
		merged *model.FundamentalRecord
		issues []Issue
	)
	for _, src := range c.sources {
		if merged != nil && merged.Complete() {
			break
		}
		rec, err := c.call(ctx, src, ticker)
		if err != nil {
			c.log.Warn().Err(err).Str("ticker", ticker).Str("provider", src.Provider.Name()).Msg("provider failed")
			issues = append(issues, Issue{Ticker: ticker, Provider: src.Provider.Name(), Err: err.Error()})
			continue
		}
		if merged == nil {
			merged = &model.FundamentalRecord{Ticker: ticker}
		}
		merge(merged, rec)
	}
	if merged == nil {
		return nil, issues, false
	}

	if merged.Name == "" {
		merged.Name = ticker
	}
	if merged.Sector == "" {
		merged.Sector = c.sectors[ticker]
	}
	if merged.Sector == "" {
		merged.Sector = model.UnknownSector
	}

	if c.store != nil {
		if err := c.store.Put(ctx, merged); err != nil {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("cache write failed")
		}
	}
	return merged, issues, false
}

// call runs one provider with rate limiting, a per-attempt timeout and
// exponential backoff between retries.
func (c *Collector) call(ctx context.Context, src Source, ticker string) (*model.FundamentalRecord, error) {
	var lastErr error
	for attempt := 0; attempt <= src.Retries; attempt++ {
		if attempt > 0 {
			delay := c.backoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		if src.Limiter != nil {
			if err := src.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if src.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, src.Timeout)
		}
		rec, err := src.Provider.FetchFundamentals(attemptCtx, ticker)
		cancel()
		if err == nil {
			return rec, nil
		}
		lastErr = err
		if ctx.Err() != nil || !retryable(err) {
			break
		}
		c.log.Debug().Err(err).Str("ticker", ticker).Str("provider", src.Provider.Name()).Int("attempt", attempt+1).Msg("retrying")
	}
	return nil, lastErr
}

// merge fills every field of dst that is still missing from src.
func merge(dst, src *model.FundamentalRecord) {
	if src == nil {
		return
	}
	if dst.Name == "" {
		dst.Name = strings.TrimSpace(src.Name)
	}
	if dst.Sector == "" {
		dst.Sector = strings.TrimSpace(src.Sector)
	}
	for d := model.Ratio(0); d < model.RatioCount; d++ {
		if dst.Ratio(d) == nil {
			if v := src.Ratio(d); v != nil {
				dst.SetRatio(d, model.Float(*v))
			}
		}
	}
	if dst.Price == nil && src.Price != nil {
		dst.Price = model.Float(*src.Price)
	}
}
