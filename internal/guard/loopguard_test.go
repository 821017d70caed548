// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package guard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopGuard_NonRedirectClearsState(t *testing.T) {
	t.Parallel()

	g := NewLoopGuard(0, 0)
	now := time.Now()
	prior := &State{WindowStart: now.Add(-time.Second), Count: 2}

	got, next := g.Apply(Allow(ReasonGuestPublic), "/home", prior, now, false)

	assert.Equal(t, KindAllow, got.Kind)
	assert.Equal(t, ReasonGuestPublic, got.Reason)
	assert.Nil(t, next, "a rendered page must clear the guard state")
}

func TestLoopGuard_FirstRedirectOpensWindow(t *testing.T) {
	t.Parallel()

	g := NewLoopGuard(0, 0)
	now := time.Now()

	got, next := g.Apply(RedirectTo("/login", ReasonGuestProtected), "/saved", nil, now, false)

	assert.Equal(t, KindRedirect, got.Kind)
	require.NotNil(t, next)
	assert.Equal(t, now, next.WindowStart)
	assert.Equal(t, 1, next.Count)
	assert.Equal(t, "/saved", next.LastFrom)
	assert.Equal(t, "/login", next.LastTo)
}

func TestLoopGuard_SecondRedirectKeepsWindowStart(t *testing.T) {
	t.Parallel()

	g := NewLoopGuard(0, 0)
	now := time.Now()
	start := now.Add(-time.Second)
	prior := &State{WindowStart: start, Count: 1, LastFrom: "/saved", LastTo: "/login"}

	got, next := g.Apply(RedirectTo("/home", ReasonRootLanding), "/", prior, now, false)

	assert.Equal(t, KindRedirect, got.Kind)
	require.NotNil(t, next)
	assert.Equal(t, start, next.WindowStart)
	assert.Equal(t, 2, next.Count)
	assert.Equal(t, "/", next.LastFrom)
	assert.Equal(t, "/home", next.LastTo)
}

func TestLoopGuard_ThirdRedirectInWindowBreaks(t *testing.T) {
	t.Parallel()

	g := NewLoopGuard(0, 0)
	now := time.Now()
	prior := &State{WindowStart: now.Add(-2 * time.Second), Count: 2}

	got, next := g.Apply(RedirectTo("/login", ReasonGuestProtected), "/saved", prior, now, false)

	assert.Equal(t, KindAllow, got.Kind)
	assert.Equal(t, ReasonLoopBreak, got.Reason)
	assert.Empty(t, got.Target)
	assert.Nil(t, next, "breaking the loop must clear the guard state")
}

func TestLoopGuard_WindowBoundaryStillCounts(t *testing.T) {
	t.Parallel()

	g := NewLoopGuard(0, 0)
	now := time.Now()
	prior := &State{WindowStart: now.Add(-DefaultWindow), Count: 2}

	got, _ := g.Apply(RedirectTo("/login", ReasonGuestProtected), "/saved", prior, now, false)

	assert.Equal(t, ReasonLoopBreak, got.Reason)
}

func TestLoopGuard_ExpiredWindowResets(t *testing.T) {
	t.Parallel()

	g := NewLoopGuard(0, 0)
	now := time.Now()
	prior := &State{WindowStart: now.Add(-6 * time.Second), Count: 5}

	got, next := g.Apply(RedirectTo("/login", ReasonGuestProtected), "/saved", prior, now, false)

	assert.Equal(t, KindRedirect, got.Kind)
	require.NotNil(t, next)
	assert.Equal(t, now, next.WindowStart)
	assert.Equal(t, 1, next.Count)
}

func TestLoopGuard_FutureWindowStartResets(t *testing.T) {
	t.Parallel()

	g := NewLoopGuard(0, 0)
	now := time.Now()
	prior := &State{WindowStart: now.Add(time.Minute), Count: 9}

	got, next := g.Apply(RedirectTo("/login", ReasonGuestProtected), "/saved", prior, now, false)

	assert.Equal(t, KindRedirect, got.Kind)
	require.NotNil(t, next)
	assert.Equal(t, 1, next.Count)
}

func TestLoopGuard_PrefetchBypassesOverride(t *testing.T) {
	t.Parallel()

	g := NewLoopGuard(0, 0)
	now := time.Now()
	prior := &State{WindowStart: now.Add(-time.Second), Count: 2}

	got, next := g.Apply(RedirectTo("/login", ReasonGuestProtected), "/saved", prior, now, true)

	assert.Equal(t, KindRedirect, got.Kind, "prefetch must not trigger the override")
	assert.Same(t, prior, next, "prefetch must not mutate the guard state")
}

func TestLoopGuard_PrefetchDoesNotStartWindow(t *testing.T) {
	t.Parallel()

	g := NewLoopGuard(0, 0)

	got, next := g.Apply(RedirectTo("/login", ReasonGuestProtected), "/saved", nil, time.Now(), true)

	assert.Equal(t, KindRedirect, got.Kind)
	assert.Nil(t, next)
}
