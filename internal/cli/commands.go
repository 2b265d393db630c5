// Package cli implements the portfolio command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"SmartPortfolio/internal/calculator"
	"SmartPortfolio/internal/config"
	"SmartPortfolio/internal/export"
	"SmartPortfolio/internal/logger"
	"SmartPortfolio/internal/notifier"
	"SmartPortfolio/internal/scheduler"
	"SmartPortfolio/internal/server"
	"SmartPortfolio/internal/strategy"
)

type globalFlags struct {
	configPath string
	logLevel   string
	pretty     bool
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "portfolio",
		Short:         "SmartPortfolio - value/growth stock scoring and allocation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultConfig := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultConfig = v
	}
	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", defaultConfig, "configuration file path")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&g.pretty, "pretty", false, "human-readable console logs")

	rootCmd.AddCommand(newScoreCmd(g))
	rootCmd.AddCommand(newProjectCmd(g))
	rootCmd.AddCommand(newServeCmd(g))
	return rootCmd
}

// load reads the config and builds the logger. Log output goes to stderr so
// tables on stdout stay clean.
func (g *globalFlags) load() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.pretty {
		cfg.Log.Pretty = true
	}
	log := logger.NewWithWriter(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty}, os.Stderr)
	return cfg, log, nil
}

func newScoreCmd(g *globalFlags) *cobra.Command {
	var (
		pool      string
		amount    float64
		threshold float64
		maxPE     float64
		penalty   bool
		exportDir string
		offline   bool
		noExport  bool
		raw       bool
	)

	cmd := &cobra.Command{
		Use:   "score [TICKER...]",
		Short: "Fetch fundamentals, score, allocate and print the rebalance list",
		Long: `Fetch fundamentals for the configured pool (or the given tickers), score them,
allocate the investment amount and compare the result with current holdings.
Example: portfolio score --pool AU --amount 2000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.load()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("pool") {
				cfg.Universe.Pool = strings.ToUpper(pool)
			}
			if flags.Changed("amount") {
				cfg.Strategy.InvestmentAmount = amount
			}
			if flags.Changed("threshold") {
				cfg.Strategy.ScoreThreshold = threshold
			}
			if flags.Changed("max-pe") {
				cfg.Strategy.MaxPE = maxPE
			}
			if flags.Changed("sector-penalty") {
				cfg.Strategy.SectorPenalty = penalty
			}
			if flags.Changed("export-dir") {
				cfg.Export.Dir = exportDir
				cfg.Export.S3Bucket = ""
			}
			if noExport {
				cfg.Export.Dir, cfg.Export.S3Bucket = "", ""
			}
			if offline {
				cfg.Providers = []config.ProviderConfig{{Name: config.ProviderMock}}
				cfg.Cache.Enabled = false
			}

			tickers := cfg.Tickers()
			validate := cfg.Validate
			if len(args) > 0 {
				tickers = make([]string, 0, len(args))
				for _, a := range args {
					tickers = append(tickers, strings.ToUpper(a))
				}
				validate = cfg.ValidateFields
			}
			if err := validate(); err != nil {
				return err
			}
			if err := cfg.ValidateProviders(); err != nil {
				return err
			}
			return runScore(cmd, cfg, log, tickers, raw)
		},
	}

	cmd.Flags().StringVar(&pool, "pool", "", "ticker pool (US, AU, MIXED or a configured pool)")
	cmd.Flags().Float64Var(&amount, "amount", 0, "amount to invest")
	cmd.Flags().Float64Var(&threshold, "threshold", strategy.DefaultScoreThreshold, "minimum score to buy")
	cmd.Flags().Float64Var(&maxPE, "max-pe", 0, "exclude tickers whose PE is not below this value (0 = off)")
	cmd.Flags().BoolVar(&penalty, "sector-penalty", false, "discount scores of crowded sectors")
	cmd.Flags().StringVar(&exportDir, "export-dir", "", "directory for CSV exports")
	cmd.Flags().BoolVar(&noExport, "no-export", false, "skip CSV export")
	cmd.Flags().BoolVar(&raw, "raw", false, "also print raw fundamentals and scores of every ticker")
	cmd.Flags().BoolVar(&offline, "offline", false, "use the built-in demo dataset instead of live providers")
	return cmd
}

func runScore(cmd *cobra.Command, cfg *config.Config, log zerolog.Logger, tickers []string, raw bool) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cfg, log, false)
	if err != nil {
		return err
	}
	defer a.Close()

	batch := a.collector.Collect(ctx, tickers)
	p := params(cfg)
	p.Holdings = a.book.Snapshot()
	res := strategy.Evaluate(batch.Records, p)

	out := cmd.OutOrStdout()
	if raw {
		renderRaw(out, res.Scored)
	}
	renderResult(out, res, cfg.Universe.Pool)
	if len(batch.Skipped) > 0 {
		fmt.Fprintln(out, warnStyle.Render("No data: "+strings.Join(batch.Skipped, ", ")))
	}

	if a.sink != nil && res.State() == strategy.StateReady {
		names, err := export.Result(ctx, a.sink, res, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Exported %s\n", strings.Join(names, ", "))
	}
	return nil
}

func newProjectCmd(g *globalFlags) *cobra.Command {
	var p calculator.ProjectionParams

	cmd := &cobra.Command{
		Use:   "project",
		Short: "Project wealth growth with fortnightly contributions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := g.load()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if !flags.Changed("lump-sum") {
				p.LumpSum = cfg.Projection.LumpSum
			}
			if !flags.Changed("contribution") {
				p.Contribution = cfg.Projection.Contribution
			}
			if !flags.Changed("rate") {
				p.AnnualRate = cfg.Projection.AnnualRate
			}
			if !flags.Changed("years") {
				p.Years = cfg.Projection.Years
			}
			points, err := calculator.Project(p)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf(
				"Projection: %s lump sum, %s per fortnight, %.2f%% a year",
				notifier.Money(p.LumpSum), notifier.Money(p.Contribution), p.AnnualRate)))
			renderProjection(out, points)
			return nil
		},
	}

	cmd.Flags().Float64Var(&p.LumpSum, "lump-sum", 0, "initial investment")
	cmd.Flags().Float64Var(&p.Contribution, "contribution", 0, "amount added every fortnight")
	cmd.Flags().Float64Var(&p.AnnualRate, "rate", 0, "expected annual return in percent")
	cmd.Flags().IntVar(&p.Years, "years", 0, "number of years")
	return cmd
}

func newServeCmd(g *globalFlags) *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler, Telegram bot and HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := g.load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.ValidateProviders(); err != nil {
				return err
			}
			if os.Getenv("RUN_ON_START") == "true" {
				runNow = true
			}
			return runServe(cfg, log, runNow)
		},
	}
	cmd.Flags().BoolVar(&runNow, "run-now", false, "refresh immediately on start")
	return cmd
}

func runServe(cfg *config.Config, log zerolog.Logger, runNow bool) error {
	log.Info().Str("pool", cfg.Universe.Pool).Int("tickers", len(cfg.Tickers())).Msg("SmartPortfolio starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		n  notifier.Notifier = notifier.LogNotifier{Log: log}
		tg *notifier.TelegramNotifier
	)
	if cfg.Telegram.BotToken != "" {
		tg = notifier.NewTelegramNotifier("", cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		n = tg
	} else {
		log.Warn().Msg("telegram not configured, reports go to the log")
	}

	sched := scheduler.NewScheduler(a.collector, a.book, n, a.recorder, scheduler.Options{
		Pool:    cfg.Universe.Pool,
		Tickers: cfg.Tickers(),
		Params:  params(cfg),
		Sink:    a.sink,
		Log:     log,
	})
	if err := sched.Register(ctx, cfg.Schedule.RefreshCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tg != nil {
		go tg.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	srv := server.New(server.Config{
		Addr:    cfg.Server.Addr,
		Log:     log,
		Service: sched,
		Runs:    a.recorder,
		Projection: calculator.ProjectionParams{
			LumpSum:      cfg.Projection.LumpSum,
			Contribution: cfg.Projection.Contribution,
			AnnualRate:   cfg.Projection.AnnualRate,
			Years:        cfg.Projection.Years,
		},
	})
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if runNow {
		log.Info().Msg("running refresh on start")
		go sched.RunNow(ctx)
	}

	log.Info().Msg("SmartPortfolio is running. Press Ctrl+C to stop.")
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received, stopping...")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	log.Info().Msg("SmartPortfolio stopped")
	return nil
}
