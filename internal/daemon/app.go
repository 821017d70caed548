// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/routegate/internal/config"
	"github.com/ManuGH/routegate/internal/gate"
	"github.com/rs/zerolog"
)

// reloadTimeout bounds a single SIGHUP-triggered config reload.
const reloadTimeout = 10 * time.Second

// App owns the long-lived runtime lifecycle (config watcher, reload wiring)
// and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	cfgHolder    *config.ConfigHolder
	gateServer   *gate.Server
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator.
func NewApp(logger zerolog.Logger, manager Manager, cfgHolder *config.ConfigHolder, gateServer *gate.Server) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		cfgHolder:    cfgHolder,
		gateServer:   gateServer,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run starts the owned background subsystems and blocks until ctx is
// canceled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.cfgHolder != nil {
		// Watcher startup is best-effort; the daemon still serves with the
		// boot-time config when the watcher cannot run.
		if err := a.cfgHolder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).Str("event", "config.watcher_start_failed").Msg("failed to start config watcher")
		}
		a.applyReloads(ctx, g)
		a.watchReloadSignal(ctx, g)
	}

	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}

// applyReloads feeds every config swap into the gate server. A rejected
// snapshot keeps the previous one serving.
func (a *App) applyReloads(ctx context.Context, g *errgroup.Group) {
	if a.gateServer == nil {
		return
	}

	applyCh := make(chan config.AppConfig, 1)
	a.cfgHolder.RegisterListener(applyCh)

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case cfg := <-applyCh:
				if err := a.gateServer.ApplySnapshot(cfg); err != nil {
					a.logger.Warn().
						Err(err).
						Str("event", "config.apply_failed").
						Msg("reloaded config rejected, keeping previous snapshot")
				}
			}
		}
	})
}

// watchReloadSignal reloads the config file on SIGHUP. Each reload runs
// under its own deadline, detached from the run context so a shutdown in
// progress cannot abort a reload halfway through a swap.
func (a *App) watchReloadSignal(ctx context.Context, g *errgroup.Group) {
	if a.reloadSignal == nil {
		return
	}

	g.Go(func() error {
		hupChan := make(chan os.Signal, 1)
		signal.Notify(hupChan, a.reloadSignal)
		defer signal.Stop(hupChan)

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-hupChan:
				a.logger.Info().
					Str("event", "config.reload_signal").
					Str("signal", a.reloadSignal.String()).
					Msg("received reload signal, reloading config")

				reloadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reloadTimeout)
				err := a.cfgHolder.Reload(reloadCtx)
				cancel()
				if err != nil {
					a.logger.Warn().
						Err(err).
						Str("event", "config.reload_failed").
						Msg("config reload failed")
				}
			}
		}
	})
}
