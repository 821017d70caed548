// SPDX-License-Identifier: MIT

package daemon

import (
	"net/http"

	"github.com/ManuGH/routegate/internal/config"
	"github.com/rs/zerolog"
)

// Deps contains dependencies required by the daemon Manager.
// This allows for clean dependency injection and easier testing.
type Deps struct {
	// Logger is the structured logger for the daemon
	Logger zerolog.Logger

	// Config is the resolved application configuration (session backend,
	// profile store, guard, routes, TLS)
	Config config.AppConfig

	// GateHandler is the HTTP handler for the gate server: decision API,
	// ops endpoints, system probes and, in proxy mode, the reverse proxy
	GateHandler http.Handler

	// MetricsHandler is the HTTP handler for Prometheus metrics (if enabled)
	MetricsHandler http.Handler

	// MetricsAddr is the metrics listen address; empty disables the
	// dedicated metrics server
	MetricsAddr string
}

// Validate checks if the dependencies are valid.
func (d *Deps) Validate() error {
	if d.Logger.GetLevel() == zerolog.Disabled {
		return ErrMissingLogger
	}
	if d.GateHandler == nil {
		return ErrMissingGateHandler
	}
	// Config validation is done by config.Loader
	return nil
}
