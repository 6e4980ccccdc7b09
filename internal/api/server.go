package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	mw "github.com/tphakala/rfscan-go/internal/api/middleware"
	v1 "github.com/tphakala/rfscan-go/internal/api/v1"
	"github.com/tphakala/rfscan-go/internal/conf"
	"github.com/tphakala/rfscan-go/internal/datastore"
	"github.com/tphakala/rfscan-go/internal/logger"
	"github.com/tphakala/rfscan-go/internal/observability"
)

const (
	readTimeout     = 30 * time.Second
	idleTimeout     = 120 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Server is the HTTP server for the JSON API.
// It owns the Echo instance, the middleware stack and the v1 controller.
type Server struct {
	echo     *echo.Echo
	server   *http.Server
	settings *conf.APISettings
	logger   logger.Logger

	store   *datastore.Store
	scanner v1.Scanner
	stats   v1.StatsSource
	metrics *observability.Metrics

	controller *v1.Controller
	addr       net.Addr
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithScanner attaches the scan orchestrator.
func WithScanner(sc v1.Scanner) ServerOption {
	return func(s *Server) {
		s.scanner = sc
	}
}

// WithStats sets the statistics source.
func WithStats(src v1.StatsSource) ServerOption {
	return func(s *Server) {
		s.stats = src
	}
}

// WithMetrics enables HTTP request metrics.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// New creates the API server. store is required.
func New(settings *conf.APISettings, store *datastore.Store, opts ...ServerOption) (*Server, error) {
	if settings == nil || store == nil {
		return nil, fmt.Errorf("api server requires settings and a datastore")
	}

	s := &Server{
		settings: settings,
		store:    store,
		logger:   logger.Global().Module("api"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.setupMiddleware()
	s.controller = v1.New(s.echo, s.store, s.scanner, s.stats)

	return s, nil
}

func (s *Server) setupMiddleware() {
	// Recovery first so panics in later middleware are caught too
	s.echo.Use(echomw.Recover())
	s.echo.Use(mw.NewRequestLogger(s.logger))

	if s.metrics != nil {
		s.echo.Use(mw.NewMetrics(s.metrics.HTTP))
	}

	security := mw.DefaultSecurityConfig()
	if len(s.settings.AllowedOrigins) > 0 {
		security.AllowedOrigins = s.settings.AllowedOrigins
	}
	s.echo.Use(mw.NewCORS(security))
	s.echo.Use(mw.NewBodyLimit(security.BodyLimit))
	s.echo.Use(mw.NewSecureHeaders())
}

// Start binds the listen address and serves until ctx is cancelled.
// The server goroutines are tracked by wg.
func (s *Server) Start(ctx context.Context, wg *sync.WaitGroup) error {
	listener, err := net.Listen("tcp", s.settings.Listen)
	if err != nil {
		return fmt.Errorf("api listen on %s: %w", s.settings.Listen, err)
	}
	s.addr = listener.Addr()

	// No write timeout: the status stream is long lived
	s.server = &http.Server{
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	wg.Go(func() {
		s.logger.Info("API server starting", logger.String("address", s.addr.String()))
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", logger.Error(err))
		}
	})

	wg.Go(func() {
		<-ctx.Done()
		if err := s.Shutdown(); err != nil {
			s.logger.Error("API server shutdown error", logger.Error(err))
		}
	})
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown() error {
	s.controller.Shutdown()
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	s.logger.Info("API server stopped")
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
