// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ManuGH/routegate/internal/config"
	"github.com/rs/zerolog"
)

// shutdownGrace bounds the teardown that follows a listener failure or a
// canceled run context. The per-server bound is ServerConfig.ShutdownTimeout.
const shutdownGrace = 30 * time.Second

// ShutdownHook is a cleanup function run during graceful shutdown.
// Hooks run in reverse registration order.
type ShutdownHook func(ctx context.Context) error

// Manager owns the daemon lifecycle: it brings the listeners up and tears
// everything down in order once the run context ends.
type Manager interface {
	// Start starts all configured servers and blocks until shutdown
	Start(ctx context.Context) error

	// Shutdown gracefully shuts down all servers
	Shutdown(ctx context.Context) error

	// RegisterShutdownHook registers a function to be called during shutdown
	RegisterShutdownHook(name string, hook ShutdownHook)
}

type manager struct {
	serverCfg config.ServerConfig
	deps      Deps

	gateServer    *http.Server
	metricsServer *http.Server

	// Hooks run LIFO during shutdown.
	shutdownHooks []namedHook

	started  bool
	stopping bool
	mu       sync.Mutex

	logger zerolog.Logger
}

// namedHook pairs a shutdown hook with a name for logging.
type namedHook struct {
	name string
	hook ShutdownHook
}

// NewManager creates a daemon manager from the server configuration and
// validated dependencies.
func NewManager(serverCfg config.ServerConfig, deps Deps) (Manager, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}

	return &manager{
		serverCfg: serverCfg,
		deps:      deps,
		logger:    deps.Logger.With().Str("component", "manager").Logger(),
	}, nil
}

// Start brings up the metrics server (when configured) and the gate server,
// then blocks until the context is canceled or a listener fails. Either way
// a bounded shutdown runs before Start returns.
func (m *manager) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("start context is nil")
	}

	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("manager already started")
	}
	m.started = true
	m.mu.Unlock()

	m.logger.Info().
		Str("listen", m.serverCfg.ListenAddr).
		Dur("read_timeout", m.serverCfg.ReadTimeout).
		Dur("write_timeout", m.serverCfg.WriteTimeout).
		Dur("shutdown_timeout", m.serverCfg.ShutdownTimeout).
		Msg("Starting daemon manager")

	errChan := make(chan error, 2)
	m.startMetricsServer(errChan)
	m.startGateServer(errChan)

	var cause error
	select {
	case err := <-errChan:
		m.logger.Error().Err(err).Msg("Server failed, initiating shutdown")
		cause = err
	case <-ctx.Done():
		m.logger.Info().Msg("Shutdown signal received")
	}

	// Teardown gets a detached but bounded context so a canceled run
	// context cannot cut it short.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()

	if err := m.Shutdown(shutdownCtx); err != nil {
		if cause != nil {
			return fmt.Errorf("server error and shutdown failure: %w", errors.Join(cause, err))
		}
		return err
	}
	return cause
}

// startGateServer launches the gate listener. With TLS enabled a bad
// certificate pair fails the listener instead of silently serving plaintext.
func (m *manager) startGateServer(errChan chan<- error) {
	m.gateServer = &http.Server{
		Addr:              m.serverCfg.ListenAddr,
		Handler:           m.deps.GateHandler,
		ReadTimeout:       m.serverCfg.ReadTimeout,
		ReadHeaderTimeout: m.serverCfg.ReadTimeout / 2,
		WriteTimeout:      m.serverCfg.WriteTimeout,
		IdleTimeout:       m.serverCfg.IdleTimeout,
		MaxHeaderBytes:    m.serverCfg.MaxHeaderBytes,
	}

	listen := m.gateServer.ListenAndServe
	scheme := "HTTP"
	if m.deps.Config.TLSEnabled {
		cert, key := m.deps.Config.TLSCert, m.deps.Config.TLSKey
		listen = func() error { return m.gateServer.ListenAndServeTLS(cert, key) }
		scheme = "HTTPS"
	}

	m.logger.Info().
		Str("addr", m.serverCfg.ListenAddr).
		Str("scheme", scheme).
		Msg("Gate server listening")
	m.launch("gate", listen, errChan)
}

// startMetricsServer launches the metrics listener when both a handler and
// an address are configured. The metrics endpoint always speaks plain HTTP.
func (m *manager) startMetricsServer(errChan chan<- error) {
	if m.deps.MetricsHandler == nil || m.deps.MetricsAddr == "" {
		return
	}

	m.metricsServer = &http.Server{
		Addr:              m.deps.MetricsAddr,
		Handler:           m.deps.MetricsHandler,
		ReadHeaderTimeout: m.serverCfg.ReadTimeout / 2,
	}

	m.logger.Info().
		Str("addr", m.deps.MetricsAddr).
		Msg("Metrics server listening")
	m.launch("metrics", m.metricsServer.ListenAndServe, errChan)
}

// launch runs listen in a goroutine and reports failures on errChan.
// A clean close after Shutdown is not a failure.
func (m *manager) launch(name string, listen func() error, errChan chan<- error) {
	go func() {
		if err := listen(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error().
				Err(err).
				Str("event", name+".server.failed").
				Msg("Server failed")
			errChan <- fmt.Errorf("%s server: %w", name, err)
		}
	}()
}

// Shutdown stops both servers and runs the registered hooks. It is
// idempotent while stopping and returns ErrManagerNotStarted when the
// manager never ran.
func (m *manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("shutdown context is nil")
	}

	m.mu.Lock()
	if m.stopping {
		m.mu.Unlock()
		return nil
	}
	if !m.started {
		m.mu.Unlock()
		return ErrManagerNotStarted
	}
	m.stopping = true
	hooks := append([]namedHook(nil), m.shutdownHooks...)
	m.mu.Unlock()

	m.logger.Info().Msg("Shutting down daemon manager")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.serverCfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	for _, s := range []struct {
		name string
		srv  *http.Server
	}{
		{"gate", m.gateServer},
		{"metrics", m.metricsServer},
	} {
		if s.srv == nil {
			continue
		}
		m.logger.Debug().Str("server", s.name).Msg("Shutting down server")
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("%s server shutdown: %w", s.name, err))
		}
	}

	errs = append(errs, m.runHooks(shutdownCtx, hooks)...)

	if len(errs) > 0 {
		m.logger.Error().
			Int("error_count", len(errs)).
			Msg("Shutdown completed with errors")
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	m.logger.Info().Msg("Daemon manager stopped cleanly")
	return nil
}

// runHooks executes hooks in reverse registration order so later subsystems
// release before the ones they depend on.
func (m *manager) runHooks(ctx context.Context, hooks []namedHook) []error {
	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		start := time.Now()
		if err := h.hook(ctx); err != nil {
			m.logger.Error().
				Err(err).
				Str("hook", h.name).
				Dur("duration", time.Since(start)).
				Msg("Shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", h.name, err))
			continue
		}
		m.logger.Debug().
			Str("hook", h.name).
			Dur("duration", time.Since(start)).
			Msg("Shutdown hook completed")
	}
	return errs
}

// RegisterShutdownHook adds a named cleanup step. Hooks registered later
// run earlier during shutdown.
func (m *manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.shutdownHooks = append(m.shutdownHooks, namedHook{name: name, hook: hook})
	m.logger.Debug().Str("hook", name).Msg("Registered shutdown hook")
}
