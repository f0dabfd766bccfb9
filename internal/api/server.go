// Package api exposes the tracker over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/DieselDot/Trademind/internal/dashboard"
	"github.com/DieselDot/Trademind/internal/logging"
	"github.com/DieselDot/Trademind/internal/store"
	"github.com/DieselDot/Trademind/internal/tracker"
)

// UserHeader names the request header that selects the user.
const UserHeader = "X-User-ID"

// Config holds server configuration
type Config struct {
	Addr           string
	DevMode        bool
	RequestTimeout time.Duration
	AllowedOrigins []string
	// DefaultUser serves requests without a user header.
	DefaultUser string
	Log         zerolog.Logger

	Store    store.DataStore
	Tracker  *tracker.Service
	Composer *dashboard.Composer
}

// Server represents the HTTP server
type Server struct {
	router      *chi.Mux
	server      *http.Server
	log         zerolog.Logger
	store       store.DataStore
	tracker     *tracker.Service
	composer    *dashboard.Composer
	defaultUser string
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		log:         cfg.Log.With().Str("component", "server").Logger(),
		store:       cfg.Store,
		tracker:     cfg.Tracker,
		composer:    cfg.Composer,
		defaultUser: cfg.DefaultUser,
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.setupMiddleware(cfg.DevMode, timeout, origins)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: timeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool, timeout time.Duration, origins []string) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(timeout))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", UserHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/history", s.handleHistory)
		r.Get("/pnl", s.handlePnL)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleStartSession)
			r.Get("/active", s.handleActiveSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Post("/trades", s.handleLogTrade)
				r.Delete("/trades/{tradeID}", s.handleDeleteTrade)
				r.Post("/end", s.handleEndSession)
			})
		})

		r.Route("/rules", func(r chi.Router) {
			r.Get("/", s.handleListRules)
			r.Post("/", s.handleCreateRule)
			r.Put("/{id}", s.handleUpdateRule)
			r.Post("/{id}/toggle", s.handleToggleRule)
			r.Delete("/{id}", s.handleDeleteRule)
		})

		r.Route("/journal", func(r chi.Router) {
			r.Get("/", s.handleListJournal)
			r.Post("/", s.handleWriteJournal)
			r.Get("/days", s.handleJournalDays)
			r.Put("/{id}", s.handleWriteJournal)
			r.Delete("/{id}", s.handleDeleteJournal)
		})
	})
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		reqLog := s.log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
		next.ServeHTTP(ww, r.WithContext(logging.WithLogger(r.Context(), reqLog)))

		logging.LogAPICall(reqLog, r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}
