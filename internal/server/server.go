// Package server implements the idsheet HTTP API.
//
// The API exposes the same pipeline as the CLI: presets, layout planning, and
// crop sessions from which a print sheet is rendered and downloaded.
//
//	GET    /health
//	GET    /api/v1/presets
//	POST   /api/v1/layout
//	POST   /api/v1/sessions
//	GET    /api/v1/sessions/{id}
//	PUT    /api/v1/sessions/{id}/image
//	PUT    /api/v1/sessions/{id}/crop
//	POST   /api/v1/sessions/{id}/sheet
//	DELETE /api/v1/sessions/{id}
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/idsheet/pkg/pipeline"
	"github.com/matzehuels/idsheet/pkg/session"
)

// Default server settings.
const (
	DefaultAddr           = ":8080"
	DefaultMaxUploadBytes = 20 << 20
	DefaultCleanupEvery   = time.Minute
	requestTimeout        = 2 * time.Minute
)

// Config configures a Server.
type Config struct {
	Addr           string
	SessionTTL     time.Duration
	MaxUploadBytes int64

	// Defaults seeds every request's pipeline options. Presets set here
	// are the ones the API resolves and lists.
	Defaults pipeline.Options
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = session.DefaultTTL
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}
}

// Server serves the HTTP API.
type Server struct {
	cfg        Config
	runner     *pipeline.Runner
	sessions   session.Store
	logger     *log.Logger
	router     *chi.Mux
	httpServer *http.Server
}

// New creates a server backed by runner and sessions. A nil logger uses
// log.Default().
func New(cfg Config, runner *pipeline.Runner, sessions session.Store, logger *log.Logger) *Server {
	cfg.setDefaults()
	if logger == nil {
		logger = log.Default()
	}
	if runner == nil {
		runner = pipeline.NewRunner(nil, nil, logger)
	}
	if sessions == nil {
		sessions = session.NewMemoryStore()
	}

	r := chi.NewRouter()
	s := &Server{
		cfg:      cfg,
		runner:   runner,
		sessions: sessions,
		logger:   logger,
		router:   r,
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpHooks)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	s.routes()

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      requestTimeout + 10*time.Second,
		IdleTimeout:       time.Minute,
	}
	return s
}

func (s *Server) routes() {
	s.router.NotFound(s.notFound)
	s.router.MethodNotAllowed(s.methodNotAllowed)
	s.router.Get("/health", s.health)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/presets", s.presets)
		r.Post("/layout", s.layout)

		r.Post("/sessions", s.createSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Put("/image", s.replaceImage)
			r.Put("/crop", s.updateCrop)
			r.Post("/sheet", s.sheet)
		})
	})
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
// Expired sessions are purged in the background while the server runs.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.cleanupLoop(ctx, DefaultCleanupEvery)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	return s.Shutdown(shutdownCtx)
}

// Shutdown gracefully stops the server and closes the session store.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	err := s.httpServer.Shutdown(ctx)
	if cerr := s.sessions.Close(); err == nil {
		err = cerr
	}
	return err
}

func (s *Server) cleanupLoop(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.sessions.Cleanup(ctx); err != nil {
				s.logger.Warn("session cleanup failed", "err", err)
			}
		}
	}
}
