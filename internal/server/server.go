package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"SmartPortfolio/internal/calculator"
	"SmartPortfolio/internal/recorder"
	"SmartPortfolio/internal/scheduler"
	"SmartPortfolio/internal/strategy"
)

// Service is the portfolio state the API reads and edits.
type Service interface {
	Latest() *scheduler.Snapshot
	Refresh(ctx context.Context) (*scheduler.Snapshot, error)
	SetHolding(ticker string, shares int) (*strategy.Result, error)
	Holdings() map[string]int
}

// RunLister lists recorded refresh runs.
type RunLister interface {
	RecentRuns(limit int) ([]recorder.RunSummary, error)
}

// Config holds server configuration.
type Config struct {
	Addr       string
	Log        zerolog.Logger
	Service    Service
	Runs       RunLister // optional
	Projection calculator.ProjectionParams
}

// Server is the HTTP API.
type Server struct {
	router     *chi.Mux
	server     *http.Server
	log        zerolog.Logger
	svc        Service
	runs       RunLister
	projection calculator.ProjectionParams
}

// New creates a new HTTP server.
func New(cfg Config) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		log:        cfg.Log.With().Str("component", "server").Logger(),
		svc:        cfg.Service,
		runs:       cfg.Runs,
		projection: cfg.Projection,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // POST /api/refresh waits for the providers
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/signals", s.handleSignals)
		r.Get("/signals.csv", s.handleSignalsCSV)
		r.Get("/scores", s.handleScores)
		r.Get("/rebalance", s.handleRebalance)
		r.Get("/rebalance.csv", s.handleRebalanceCSV)
		r.Get("/holdings", s.handleHoldings)
		r.Put("/holdings/{ticker}", s.handleSetHolding)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/projection", s.handleProjection)
		r.Get("/runs", s.handleRuns)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
