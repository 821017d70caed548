// SPDX-License-Identifier: MIT

// devstack runs a local stand-in for routegate's two upstream collaborators,
// the session backend and the profile store, on a single listener. Point both
// base URLs of a gate at it and drive every decision path with the seeded
// fixture tokens.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ManuGH/routegate/internal/devstack"
	rglog "github.com/ManuGH/routegate/internal/log"
	"github.com/ManuGH/routegate/internal/persistence/sqlite"
	"github.com/ManuGH/routegate/internal/version"
)

func main() {
	listenAddr := flag.String("listen", "127.0.0.1:4000", "listen address")
	backend := flag.String("backend", "memory", "store backend: memory, sqlite, badger or redis")
	dataPath := flag.String("path", "", "database file (sqlite), data directory (badger) or server address (redis)")
	sessionTTL := flag.Duration("session-ttl", 30*time.Minute, "expiry horizon for refreshed sessions")
	seed := flag.Bool("seed", true, "write the default fixture set on startup")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("routegate-devstack %s\n", version.Version)
		os.Exit(0)
	}

	rglog.Configure(rglog.Config{Service: "routegate-devstack", Version: version.Version})
	logger := rglog.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A sqlite fixture file that survived a previous run gets a quick
	// integrity pass before we serve from it.
	if *backend == "sqlite" && *dataPath != "" {
		if _, statErr := os.Stat(*dataPath); statErr == nil {
			issues, checkErr := sqlite.Check(*dataPath, sqlite.CheckQuick)
			if checkErr != nil {
				logger.Fatal().Err(checkErr).
					Str("event", "devstack.check_failed").
					Str("path", *dataPath).
					Msg("cannot check fixture database")
			}
			if issues != nil {
				logger.Fatal().
					Str("event", "devstack.fixtures_corrupt").
					Str("path", *dataPath).
					Strs("issues", issues).
					Msg("fixture database failed its integrity check; delete the file and reseed")
			}
		}
	}

	store, err := devstack.OpenStore(*backend, *dataPath)
	if err != nil {
		logger.Fatal().Err(err).
			Str("event", "devstack.store_failed").
			Str("backend", *backend).
			Msg("cannot open store")
	}
	defer func() { _ = store.Close() }()

	srv := devstack.NewServer(store, devstack.WithSessionTTL(*sessionTTL))
	if *seed {
		if err := srv.Seed(ctx); err != nil {
			logger.Fatal().Err(err).
				Str("event", "devstack.seed_failed").
				Msg("cannot seed fixtures")
		}
	}

	httpServer := &http.Server{
		Addr:              *listenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	base := "http://" + displayAddr(*listenAddr)
	logger.Info().
		Str("event", "startup").
		Str("version", version.Version).
		Str("listen", *listenAddr).
		Str("backend", *backend).
		Msg("devstack starting")
	logger.Info().Msgf("→ Session backend: %s/v1/session", base)
	logger.Info().Msgf("→ Profile store: %s/v1/profiles/{id}/status", base)
	if *seed {
		logger.Info().Msgf("→ Fixtures seeded. Try: curl -H 'Authorization: Bearer %s' %s/v1/session", devstack.TokenUser, base)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.Fatal().Err(err).
			Str("event", "devstack.server_failed").
			Msg("server failed")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
	}
	logger.Info().Msg("devstack exiting")
}

// displayAddr turns a listen address into something a curl line can use.
func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}
