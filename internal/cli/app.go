package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"SmartPortfolio/internal/cache"
	"SmartPortfolio/internal/collector"
	"SmartPortfolio/internal/config"
	"SmartPortfolio/internal/export"
	"SmartPortfolio/internal/holdings"
	"SmartPortfolio/internal/recorder"
	"SmartPortfolio/internal/strategy"
)

// app holds the components shared by the subcommands.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	collector *collector.Collector
	book      *holdings.Book
	recorder  recorder.Recorder
	sink      export.Sink
	closers   []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn().Err(err).Msg("close")
		}
	}
}

// params turns the strategy section of the config into pipeline params.
func params(cfg *config.Config) strategy.Params {
	return strategy.Params{
		Allocation: strategy.AllocationParams{
			Threshold: cfg.Strategy.ScoreThreshold,
			MaxPE:     cfg.Strategy.MaxPE,
			Amount:    cfg.Strategy.InvestmentAmount,
		},
		SectorPenalty: cfg.Strategy.SectorPenalty,
	}
}

// newApp wires collector, cache, holdings, recorder and export sink.
func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger, withRecorder bool) (*app, error) {
	a := &app{cfg: cfg, log: log}

	sources, err := collector.NewSources(cfg)
	if err != nil {
		return nil, err
	}
	opts := []collector.Option{
		collector.WithLogger(log),
		collector.WithWorkers(cfg.Collector.Workers),
		collector.WithSectors(cfg.Universe.Sectors),
	}
	if cfg.Cache.Enabled {
		var store cache.Store
		if cfg.Cache.Path != "" {
			s, err := cache.NewSQLite(cfg.Cache.Path, cfg.Cache.TTL, log)
			if err != nil {
				return nil, err
			}
			if n, err := s.Purge(ctx); err != nil {
				log.Warn().Err(err).Msg("purge fundamentals cache")
			} else if n > 0 {
				log.Debug().Int64("rows", n).Msg("purged expired cache entries")
			}
			store = s
		} else {
			store = cache.NewMemory(cfg.Cache.TTL)
		}
		a.closers = append(a.closers, store.Close)
		opts = append(opts, collector.WithCache(store))
	}
	a.collector = collector.New(sources, opts...)

	if a.book, err = holdings.Open(cfg.HoldingsFile); err != nil {
		a.Close()
		return nil, err
	}

	a.recorder = recorder.NewNoopRecorder()
	if withRecorder && cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			a.recorder = sr
			a.closers = append(a.closers, sr.Close)
		}
	}

	switch {
	case cfg.Export.S3Bucket != "":
		s3sink, err := export.NewS3Sink(ctx, cfg.Export.S3Bucket, cfg.Export.S3Prefix, cfg.Export.S3Region)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init s3 export: %w", err)
		}
		a.sink = s3sink
	case cfg.Export.Dir != "":
		a.sink = export.DirSink{Dir: cfg.Export.Dir}
	}
	return a, nil
}
