package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"bifrost/internal/config"
	"bifrost/internal/httpserver/deps"
	"bifrost/internal/httpserver/mw"
	"bifrost/internal/httpserver/routes"
	"bifrost/internal/logger"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	http         *http.Server
	logger       logger.Logger
	started      time.Time
	throttleStop chan struct{}
}

// New builds the HTTP server (router, middlewares, route registration).
// There is deliberately no global request timeout: proxied calls carry a
// per-service deadline, and a blanket one would cut long streams short.
func New(cfg *config.Config, loggerClient logger.Logger, d deps.Deps) *Server {
	r := chi.NewRouter()

	throttleStop := make(chan struct{})

	r.Use(middleware.GetHead)
	r.Use(middleware.RequestID) // X-Request-ID on each request
	r.Use(middleware.Recoverer) // never crash the process on panic
	r.Use(mw.Log(loggerClient)) // structured access logs
	r.Use(mw.Throttle(mw.ThrottleConfig{
		RPS:        cfg.ThrottleRPS,
		Burst:      cfg.ThrottleBurst,
		TrustProxy: cfg.TrustProxy,
	}, throttleStop))

	routes.RegisterAll(r, d)

	s := &http.Server{
		Addr:              cfg.ListenPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return &Server{
		http:         s,
		logger:       loggerClient,
		started:      d.StartTime,
		throttleStop: throttleStop,
	}
}

// Start runs the HTTP server (blocks until error or shutdown).
func (s *Server) Start() error {
	s.logger.Infof("HTTP server listening on %s", s.http.Addr)
	err := s.http.ListenAndServe()
	// http.ErrServerClosed is expected on graceful shutdown.
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server with the provided context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down...")
	close(s.throttleStop)
	return s.http.Shutdown(ctx)
}
