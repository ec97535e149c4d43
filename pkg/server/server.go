package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/MatthiasGr/trusted-connector/pkg/config"
	"github.com/MatthiasGr/trusted-connector/pkg/policy/engine"
	"github.com/MatthiasGr/trusted-connector/pkg/policy/manager"
	"github.com/MatthiasGr/trusted-connector/pkg/telemetry/health"
	"github.com/MatthiasGr/trusted-connector/pkg/telemetry/metrics"
)

// Options carries the components the server exposes. Engine and Manager are
// required; the telemetry components are optional.
type Options struct {
	Engine  *engine.Engine
	Manager manager.PolicyManager
	Health  *health.Checker
	Metrics *metrics.Collector
	Tracer  trace.Tracer
	Version health.VersionInfo
	Logger  *slog.Logger
}

// Server is the HTTP front end of the policy decision point.
type Server struct {
	config    *config.ServerConfig
	telemetry *config.TelemetryConfig
	engine    *engine.Engine
	manager   manager.PolicyManager
	health    *health.Checker
	metrics   *metrics.Collector
	tracer    trace.Tracer
	version   health.VersionInfo
	logger    *slog.Logger
	validate  *validator.Validate

	httpServer   *http.Server
	listener     net.Listener
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a server for cfg.Server that reports through the
// telemetry endpoints configured in cfg.Telemetry.
func NewServer(cfg *config.Config, opts Options) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if opts.Engine == nil {
		return nil, errors.New("engine cannot be nil")
	}
	if opts.Manager == nil {
		return nil, errors.New("policy manager cannot be nil")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/MatthiasGr/trusted-connector/pkg/server")
	}
	checker := opts.Health
	if checker == nil {
		checker = health.New(cfg.Telemetry.Health.CheckTimeout)
		checker.RegisterCheck("policy", health.PolicyCheck(opts.Manager))
	}

	return &Server{
		config:    &cfg.Server,
		telemetry: &cfg.Telemetry,
		engine:    opts.Engine,
		manager:   opts.Manager,
		health:    checker,
		metrics:   opts.Metrics,
		tracer:    tracer,
		version:   opts.Version,
		logger:    logger.With("component", "server"),
		validate:  newValidator(),
	}, nil
}

// Start listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return errors.New("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting policy server", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	}
}

// Shutdown gracefully shuts down the server, waiting at most the configured
// shutdown timeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("policy server stopped")
	})

	return shutdownErr
}

// Addr returns the address the server listens on, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// setupRoutes configures HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	s.route(mux, "POST /v1/decisions", s.handleDecision)
	s.route(mux, "POST /v1/transformations", s.handleTransformation)
	s.route(mux, "PUT /v1/policy", s.handlePutPolicy)
	s.route(mux, "GET /v1/policy", s.handleGetPolicy)
	s.route(mux, "GET /v1/policy/versions", s.handleVersions)
	s.route(mux, "GET /v1/rules", s.handleRules)
	s.route(mux, "POST /v1/query", s.handleQuery)

	mux.Handle(s.telemetry.Health.LivenessPath, s.health.LivenessHandler())
	mux.Handle(s.telemetry.Health.ReadinessPath, s.health.ReadinessHandler())
	mux.Handle("/version", health.VersionHandler(s.version))
	if s.metrics != nil && s.telemetry.Metrics.Enabled {
		mux.Handle(s.telemetry.Metrics.Path, s.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = recoveryMiddleware(s.logger)(handler)
	handler = loggingMiddleware(s.logger)(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

// route registers an API handler with tracing and request metrics labelled
// by pattern.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	var handler http.Handler = h
	handler = metricsMiddleware(s.metrics, pattern)(handler)
	handler = tracingMiddleware(s.tracer, pattern)(handler)
	mux.Handle(pattern, handler)
}
