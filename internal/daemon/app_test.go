// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/routegate/internal/log"
	"go.uber.org/goleak"
)

// fakeManager implements Manager for App lifecycle tests.
type fakeManager struct {
	startErr    error
	shutdownErr error
	started     chan struct{}
}

func newFakeManager() *fakeManager {
	return &fakeManager{started: make(chan struct{})}
}

func (f *fakeManager) Start(ctx context.Context) error {
	close(f.started)
	if f.startErr != nil {
		return f.startErr
	}
	<-ctx.Done()
	return nil
}

func (f *fakeManager) Shutdown(context.Context) error { return f.shutdownErr }

func (f *fakeManager) RegisterShutdownHook(string, ShutdownHook) {}

func TestApp_MissingManager(t *testing.T) {
	app := NewApp(log.WithComponent("test"), nil, nil, nil)

	err := app.Run(context.Background())
	if !errors.Is(err, ErrMissingManager) {
		t.Fatalf("Run() error = %v, want %v", err, ErrMissingManager)
	}
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	mgr := newFakeManager()
	app := NewApp(log.WithComponent("test"), mgr, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Run(ctx)
	}()

	select {
	case <-mgr.started:
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not start")
	}

	cancel()

	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}

func TestApp_PropagatesManagerError(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	mgr := newFakeManager()
	mgr.startErr = errors.New("listen failed")
	app := NewApp(log.WithComponent("test"), mgr, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := app.Run(ctx)
	if err == nil || !strings.Contains(err.Error(), "listen failed") {
		t.Fatalf("Run() error = %v, want manager start error", err)
	}
}
