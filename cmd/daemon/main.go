// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ManuGH/routegate/internal/config"
	"github.com/ManuGH/routegate/internal/daemon"
	"github.com/ManuGH/routegate/internal/gate"
	"github.com/ManuGH/routegate/internal/health"
	rglog "github.com/ManuGH/routegate/internal/log"
	rgnet "github.com/ManuGH/routegate/internal/platform/net"
	"github.com/ManuGH/routegate/internal/telemetry"
	rgtls "github.com/ManuGH/routegate/internal/tls"
	"github.com/ManuGH/routegate/internal/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// displayURL renders a configured backend URL for startup logs.
func displayURL(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "(not set)"
	}
	return rgnet.Redacted(raw)
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "config" {
		os.Exit(runConfigCLI(os.Args[2:]))
	}

	// Handle command-line flags
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		os.Exit(0)
	}

	// Configure logger with safe defaults until config is loaded
	rglog.Configure(rglog.Config{
		Level:   "info",
		Service: "routegate",
		Version: version.Version,
	})

	logger := rglog.WithComponent("daemon")

	// Create a context that listens for the interrupt signal from the OS
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Determine config path:
	// - Explicit via --config
	// - Otherwise auto-load ${ROUTEGATE_DATA}/config.yaml if it exists
	explicitConfigPath := strings.TrimSpace(*configPath)
	effectiveConfigPath := explicitConfigPath
	if effectiveConfigPath == "" {
		dataDir := strings.TrimSpace(config.ParseString("ROUTEGATE_DATA", "/tmp"))
		if dataDir == "" {
			dataDir = "/tmp"
		}
		autoPath := filepath.Join(dataDir, "config.yaml")
		if _, err := os.Stat(autoPath); err == nil {
			effectiveConfigPath = autoPath
		}
	}

	// Load configuration with precedence: ENV > File > Defaults
	loader := config.NewLoader(effectiveConfigPath, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		// Log failure using default logger
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}

	// Re-configure logger with loaded configuration
	rglog.Configure(rglog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})

	// Log config source
	if explicitConfigPath != "" {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "file").
			Str("path", explicitConfigPath).
			Msg("loaded configuration from file")
	} else if effectiveConfigPath != "" {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "file(auto)").
			Str("path", effectiveConfigPath).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	// -------------------------------------------------------------------------
	// Pre-flight Checks (Fail Fast)
	// -------------------------------------------------------------------------
	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "startup.check_failed").
			Msg("Startup checks failed. Please verify configuration and permissions.")
	}
	// -------------------------------------------------------------------------

	// Egress allowlist: when enabled, every configured backend must clear
	// the rules before the gate is allowed to talk to it.
	if cfg.Network.Outbound.Enabled {
		rules, err := rgnet.Allowlist{
			Hosts:   cfg.Network.Outbound.Allow.Hosts,
			CIDRs:   cfg.Network.Outbound.Allow.CIDRs,
			Ports:   cfg.Network.Outbound.Allow.Ports,
			Schemes: cfg.Network.Outbound.Allow.Schemes,
		}.Compile()
		if err != nil {
			logger.Fatal().
				Err(err).
				Str("event", "egress.allowlist_invalid").
				Msg("egress allowlist could not be compiled")
		}
		egressTargets := map[string]string{
			"session backend": cfg.Session.BaseURL,
			"profile store":   cfg.Profile.BaseURL,
		}
		if cfg.Mode == config.ModeProxy {
			egressTargets["upstream"] = cfg.UpstreamURL
		}
		for name, raw := range egressTargets {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			if err := rules.CheckURL(ctx, raw); err != nil {
				logger.Fatal().
					Err(err).
					Str("event", "egress.denied").
					Str("target", name).
					Msg("backend URL rejected by egress allowlist")
			}
		}
	}

	// Parse server configuration (ENV > YAML > defaults)
	serverCfg := config.ParseServerConfigForApp(cfg)

	// Auto-generate TLS certificates if enabled but not provided
	if cfg.TLSCert != "" || cfg.TLSKey != "" {
		// User provided explicit paths, use them as-is
		if cfg.TLSCert != "" && cfg.TLSKey != "" {
			logger.Info().
				Str("cert", cfg.TLSCert).
				Str("key", cfg.TLSKey).
				Msg("Using user-provided TLS certificates")
		} else {
			logger.Fatal().
				Str("event", "tls.config.invalid").
				Str("cert", cfg.TLSCert).
				Str("key", cfg.TLSKey).
				Msg("Both ROUTEGATE_TLS_CERT and ROUTEGATE_TLS_KEY must be set together")
		}
	} else if cfg.TLSEnabled {
		// Auto-generate self-signed certificates
		tlsCfg := rgtls.Config{
			CertPath: cfg.TLSCert,
			KeyPath:  cfg.TLSKey,
			Logger:   logger,
		}
		certPath, keyPath, err := rgtls.EnsureCertificates(tlsCfg)
		if err != nil {
			logger.Fatal().
				Err(err).
				Str("event", "tls.ensure.failed").
				Msg("Failed to ensure TLS certificates")
		}
		cfg.TLSCert = certPath
		cfg.TLSKey = keyPath
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("build_date", version.Date).
		Str("addr", serverCfg.ListenAddr).
		Msg("starting routegate")

	// Log key configuration
	logger.Info().Msgf("→ Session backend: %s", displayURL(cfg.Session.BaseURL))
	logger.Info().Msgf("→ Profile store: %s", displayURL(cfg.Profile.BaseURL))
	logger.Info().Msgf("→ Routes: %s (%d tables)", cfg.Routes.Version, len(cfg.Routes.Tables))
	if cfg.Mode == config.ModeProxy {
		logger.Info().Msgf("→ Mode: proxy (upstream: %s)", displayURL(cfg.UpstreamURL))
	} else {
		logger.Info().Msg("→ Mode: forwardauth")
	}
	if cfg.APIToken != "" || len(cfg.APITokens) > 0 {
		logger.Info().Msg("→ API token: configured")
	} else {
		logger.Warn().
			Str("security", "weak").
			Msg("→ API token: NOT configured (ops endpoints locked). Set ROUTEGATE_API_TOKEN to use them.")
	}
	if cfg.Guard.Secret != "" {
		logger.Info().Msg("→ Guard secret: configured")
	} else {
		logger.Warn().
			Str("security", "weak").
			Msg("→ Guard secret: NOT configured. Loop-guard cookies will not survive a restart; set ROUTEGATE_GUARD_SECRET.")
	}
	if cfg.TLSCert != "" && cfg.TLSKey != "" {
		logger.Info().Msgf("→ TLS: enabled (cert: %s, key: %s)", cfg.TLSCert, cfg.TLSKey)
	}
	logger.Info().Msgf("→ Data dir: %s", cfg.DataDir)

	// Hot reload support: watch config file and allow SIGHUP-triggered reload.
	configMgrPath := effectiveConfigPath
	if configMgrPath == "" {
		configMgrPath = filepath.Join(cfg.DataDir, "config.yaml")
	}
	cfgHolder := config.NewConfigHolder(cfg, config.NewLoader(configMgrPath, version.Version), configMgrPath)
	cfg = cfgHolder.Get()

	// Tracing: noop provider when disabled, so middleware wiring stays uniform.
	tracerProvider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: version.Version,
		Environment:    "production",
		ExporterType:   cfg.Tracing.Protocol,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SamplingRate:   1.0,
	})
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "telemetry.init.failed").
			Msg("failed to initialize tracing")
	}

	// Outbound client used for session and profile backend calls. The otelhttp
	// transport propagates trace context to the backends; per-call deadlines
	// come from the resolver and provider, the client timeout is a safety net.
	outboundClient := &http.Client{
		Timeout:   15 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	// Create the gate server
	gateSrv, err := gate.New(cfg, gate.WithHTTPClient(outboundClient))
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "gate.creation.failed").
			Msg("failed to create gate server")
	}

	handler, err := gateSrv.Handler()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "gate.handler.failed").
			Msg("failed to build gate handler")
	}

	// Build daemon dependencies
	metricsAddr := ""
	if cfg.MetricsEnabled {
		metricsAddr = strings.TrimSpace(cfg.MetricsAddr)
		if metricsAddr == "" {
			metricsAddr = ":9090"
		}
	}

	deps := daemon.Deps{
		Logger:         logger,
		Config:         cfg,
		GateHandler:    handler,
		MetricsHandler: promhttp.Handler(),
		MetricsAddr:    metricsAddr,
	}

	// Create daemon manager
	mgr, err := daemon.NewManager(serverCfg, deps)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "manager.creation.failed").
			Msg("failed to create daemon manager")
	}

	mgr.RegisterShutdownHook("config_watcher", func(context.Context) error {
		cfgHolder.Stop()
		return nil
	})
	mgr.RegisterShutdownHook("tracer", func(ctx context.Context) error {
		return tracerProvider.Shutdown(ctx)
	})

	// Start daemon app (blocks until shutdown)
	app := daemon.NewApp(logger, mgr, cfgHolder, gateSrv)
	if err := app.Run(ctx); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "manager.failed").
			Msg("daemon app failed")
	}

	logger.Info().Msg("server exiting")
}
