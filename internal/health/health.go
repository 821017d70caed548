// SPDX-License-Identifier: MIT

// Package health implements the liveness and readiness probes behind
// /healthz and /readyz, with pluggable per-component checkers.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ManuGH/routegate/internal/log"
)

// Status is the health state of a component or of the whole service.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult is the outcome of a single component check.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse is the /healthz payload.
type HealthResponse struct {
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// ReadinessResponse is the /readyz payload.
type ReadinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker probes one component.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager runs the registered checkers and serves the probe endpoints.
type Manager struct {
	version  string
	checkers []Checker
}

// NewManager creates a health check manager reporting the given version.
func NewManager(version string) *Manager {
	return &Manager{
		version:  version,
		checkers: make([]Checker, 0),
	}
}

// RegisterChecker adds a component checker. Registration happens during
// server construction; the manager is read-only once serving.
func (m *Manager) RegisterChecker(checker Checker) {
	m.checkers = append(m.checkers, checker)
}

// runChecks executes every registered checker and folds the results into an
// overall status. Unhealthy dominates degraded.
func (m *Manager) runChecks(ctx context.Context) (map[string]CheckResult, Status) {
	checks := make(map[string]CheckResult, len(m.checkers))
	overall := StatusHealthy

	for _, checker := range m.checkers {
		result := checker.Check(ctx)
		checks[checker.Name()] = result

		switch result.Status {
		case StatusUnhealthy:
			overall = StatusUnhealthy
		case StatusDegraded:
			if overall != StatusUnhealthy {
				overall = StatusDegraded
			}
		}
	}

	return checks, overall
}

// Health answers the liveness probe. The process being able to respond is
// the signal; component results are attached only in verbose mode and never
// change the HTTP status.
func (m *Manager) Health(ctx context.Context, verbose bool) HealthResponse {
	resp := HealthResponse{
		Status:    StatusHealthy,
		Version:   m.version,
		Timestamp: time.Now(),
	}

	if verbose && len(m.checkers) > 0 {
		resp.Checks, resp.Status = m.runChecks(ctx)
	}

	return resp
}

// Ready answers the readiness probe. Any unhealthy component takes the
// service out of rotation; degraded components keep serving.
func (m *Manager) Ready(ctx context.Context) ReadinessResponse {
	resp := ReadinessResponse{
		Ready:     true,
		Status:    StatusHealthy,
		Timestamp: time.Now(),
	}

	if len(m.checkers) == 0 {
		return resp
	}

	resp.Checks, resp.Status = m.runChecks(ctx)
	resp.Ready = resp.Status != StatusUnhealthy
	return resp
}

// ServeHealth handles GET /healthz. Always 200 while the process lives.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "health")
	verbose := r.URL.Query().Get("verbose") == "true"

	resp := m.Health(r.Context(), verbose)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str("event", "health.encode_error").Msg("failed to encode health response")
	}

	logger.Debug().
		Str("event", "health.checked").
		Str("status", string(resp.Status)).
		Bool("verbose", verbose).
		Msg("health check performed")
}

// ServeReady handles GET /readyz. 503 while any strict dependency is down.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "readiness")

	resp := m.Ready(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if resp.Ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str("event", "readiness.encode_error").Msg("failed to encode readiness response")
	}

	logger.Debug().
		Str("event", "readiness.checked").
		Str("status", string(resp.Status)).
		Bool("ready", resp.Ready).
		Msg("readiness check performed")
}

// BackendChecker probes an upstream collaborator (session backend, profile
// store) through an injected probe func. A nil probe reports healthy so
// optional backends do not block startup.
type BackendChecker struct {
	name   string
	probe  func(ctx context.Context) error
	strict bool
}

// NewBackendChecker creates a checker for an upstream backend. With strict
// set, a failing probe marks the component unhealthy and flips readiness;
// otherwise it only degrades.
func NewBackendChecker(name string, probe func(ctx context.Context) error, strict bool) *BackendChecker {
	return &BackendChecker{
		name:   name,
		probe:  probe,
		strict: strict,
	}
}

func (c *BackendChecker) Name() string {
	return c.name
}

func (c *BackendChecker) Check(ctx context.Context) CheckResult {
	if c.probe == nil {
		return CheckResult{
			Status:  StatusHealthy,
			Message: "not configured (optional)",
		}
	}

	if err := c.probe(ctx); err != nil {
		status := StatusDegraded
		if c.strict {
			status = StatusUnhealthy
		}
		return CheckResult{
			Status:  status,
			Error:   err.Error(),
			Message: "backend unreachable",
		}
	}

	return CheckResult{
		Status:  StatusHealthy,
		Message: "backend reachable",
	}
}

// RouteTableChecker verifies a compiled route table is loaded.
type RouteTableChecker struct {
	snapshot func() (version string, patterns int)
}

// NewRouteTableChecker creates a checker over the active route table snapshot.
func NewRouteTableChecker(snapshot func() (version string, patterns int)) *RouteTableChecker {
	return &RouteTableChecker{
		snapshot: snapshot,
	}
}

func (c *RouteTableChecker) Name() string {
	return "route_table"
}

func (c *RouteTableChecker) Check(ctx context.Context) CheckResult {
	if c.snapshot == nil {
		return CheckResult{
			Status: StatusUnhealthy,
			Error:  "no route table source",
		}
	}

	version, patterns := c.snapshot()
	if patterns == 0 {
		return CheckResult{
			Status:  StatusUnhealthy,
			Error:   "route table empty",
			Message: fmt.Sprintf("version %s", version),
		}
	}

	return CheckResult{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("version %s, %d patterns", version, patterns),
	}
}

// FileChecker verifies a file the server depends on (TLS certificate, key)
// exists and is non-empty. An empty path reports healthy.
type FileChecker struct {
	name string
	path string
}

// NewFileChecker creates a checker for a required file.
func NewFileChecker(name, path string) *FileChecker {
	return &FileChecker{
		name: name,
		path: path,
	}
}

func (c *FileChecker) Name() string {
	return c.name
}

func (c *FileChecker) Check(ctx context.Context) CheckResult {
	if c.path == "" {
		return CheckResult{
			Status:  StatusHealthy,
			Message: "not configured (optional)",
		}
	}

	info, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return CheckResult{
				Status:  StatusUnhealthy,
				Error:   "file not found",
				Message: c.path,
			}
		}
		return CheckResult{
			Status: StatusUnhealthy,
			Error:  err.Error(),
		}
	}

	if info.IsDir() {
		return CheckResult{
			Status: StatusUnhealthy,
			Error:  "expected file, got directory",
		}
	}

	if info.Size() == 0 {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "file is empty",
		}
	}

	return CheckResult{
		Status:  StatusHealthy,
		Message: "file exists and readable",
	}
}
