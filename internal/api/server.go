// Package api exposes the draft service over HTTP: save, restore, and
// delete routes plus health and metrics endpoints.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bracketlab/autodraft/internal/auth"
	"github.com/bracketlab/autodraft/internal/draftstore"
	"github.com/bracketlab/autodraft/internal/observability"
	"github.com/bracketlab/autodraft/pkg/models"
)

// Config configures the draft service.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// MaxDataSize is the per-type serialized snapshot ceiling in bytes.
	// Types without an entry use DefaultMaxSize.
	MaxDataSize map[models.SessionType]int

	// DefaultMaxSize is the snapshot ceiling for unlisted types.
	DefaultMaxSize int

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// ApplyDefaults fills zero fields with production defaults.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.DefaultMaxSize <= 0 {
		c.DefaultMaxSize = 512 * 1024
	}
	if c.MaxDataSize == nil {
		c.MaxDataSize = map[models.SessionType]int{
			models.SessionCreation: 2 * 1024 * 1024,
			models.SessionPlay:     256 * 1024,
		}
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

// Server serves the draft API.
type Server struct {
	cfg     Config
	store   draftstore.Store
	auth    *auth.Service
	logger  *observability.Logger
	metrics *observability.Metrics

	httpServer *http.Server
}

// NewServer wires the draft API together.
func NewServer(cfg Config, store draftstore.Store, authService *auth.Service, logger *observability.Logger, metrics *observability.Metrics) *Server {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{})
	}
	return &Server{
		cfg:     cfg,
		store:   store,
		auth:    authService,
		logger:  logger,
		metrics: metrics,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	requireUser := auth.RequireUser(s.auth, s.logger.Slog())
	mux.Handle("/api/drafts/save", requireUser(http.HandlerFunc(s.handleSave)))
	mux.Handle("/api/drafts/restore", requireUser(http.HandlerFunc(s.handleRestore)))
	mux.Handle("/api/drafts/delete", requireUser(http.HandlerFunc(s.handleDelete)))

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	return s.instrument(mux)
}

// Start runs the HTTP server until the context ends, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()
	s.logger.Info(ctx, "draft service listening", "addr", s.cfg.Addr)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) maxSizeFor(sessionType models.SessionType) int {
	if size, ok := s.cfg.MaxDataSize[sessionType]; ok && size > 0 {
		return size
	}
	return s.cfg.DefaultMaxSize
}

// maxBodySize bounds the request body at the largest per-type snapshot
// ceiling plus envelope headroom, so the size guard (413) fires before the
// raw body limit does.
func (s *Server) maxBodySize() int64 {
	max := s.cfg.DefaultMaxSize
	for _, size := range s.cfg.MaxDataSize {
		if size > max {
			max = size
		}
	}
	return int64(max) + 64*1024
}
