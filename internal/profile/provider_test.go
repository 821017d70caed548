package profile

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/routegate/internal/resilience"
)

type storeResult struct {
	rec Record
	err error
}

type scriptedStore struct {
	mu      sync.Mutex
	results []storeResult
	calls   [][]string
}

func (s *scriptedStore) GetStatus(ctx context.Context, userID string, fields []string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, append([]string(nil), fields...))
	i := len(s.calls) - 1
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	r := s.results[i]
	return r.rec, r.err
}

func unknownFieldErr(field string) error {
	return &StoreError{Sentinel: ErrUnknownField, Operation: "get_status", Status: 400, Field: field}
}

func TestFetchSuccess(t *testing.T) {
	store := &scriptedStore{results: []storeResult{
		{rec: Record{Role: "business owner", OnboardingComplete: false, OnboardingStep: "deal-breakers"}},
	}}
	p := NewProvider(store, nil, time.Second)

	status := p.Fetch(context.Background(), "u-1")

	require.True(t, status.Known)
	assert.Equal(t, RoleBusinessOwner, status.Role)
	assert.False(t, status.OnboardingComplete)
	assert.Equal(t, StepDealBreakers, status.OnboardingStep)
	require.Len(t, store.calls, 1)
	assert.True(t, reflect.DeepEqual(store.calls[0], PrimaryFields), "primary fields on first call")
}

func TestFetchSchemaDriftRetriesReduced(t *testing.T) {
	store := &scriptedStore{results: []storeResult{
		{err: unknownFieldErr("interests_count")},
		{rec: Record{Role: "User", OnboardingComplete: true}},
	}}
	p := NewProvider(store, nil, time.Second)

	status := p.Fetch(context.Background(), "u-1")

	require.True(t, status.Known)
	assert.True(t, status.OnboardingComplete)
	require.Len(t, store.calls, 2)
	assert.True(t, reflect.DeepEqual(store.calls[1], ReducedFields), "reduced fields on the retry")
}

func TestFetchSchemaDriftRetriesExactlyOnce(t *testing.T) {
	store := &scriptedStore{results: []storeResult{
		{err: unknownFieldErr("interests_count")},
		{err: unknownFieldErr("role")},
	}}
	p := NewProvider(store, nil, time.Second)

	status := p.Fetch(context.Background(), "u-1")

	assert.False(t, status.Known)
	assert.Len(t, store.calls, 2, "no second fallback")
}

func TestFetchMissingRowIsUnknown(t *testing.T) {
	store := &scriptedStore{results: []storeResult{
		{err: &StoreError{Sentinel: ErrNotFound, Operation: "get_status", Status: 404}},
	}}
	p := NewProvider(store, nil, time.Second)

	status := p.Fetch(context.Background(), "u-1")

	assert.False(t, status.Known)
	assert.False(t, status.OnboardingComplete, "absence must not synthesize an incomplete onboarding")
}

func TestFetchStoreFailureIsUnknown(t *testing.T) {
	store := &scriptedStore{results: []storeResult{
		{err: &StoreError{Sentinel: ErrStoreError, Operation: "get_status", Status: 503}},
	}}
	p := NewProvider(store, nil, time.Second)

	status := p.Fetch(context.Background(), "u-1")

	assert.False(t, status.Known)
}

func TestFetchMissingRowDoesNotTripBreaker(t *testing.T) {
	store := &scriptedStore{results: []storeResult{
		{err: &StoreError{Sentinel: ErrNotFound, Operation: "get_status", Status: 404}},
		{rec: Record{Role: "User", OnboardingComplete: true}},
	}}
	breaker := resilience.NewCircuitBreaker("profile_store_test_absent", 1, time.Hour)
	p := NewProvider(store, breaker, time.Second)

	first := p.Fetch(context.Background(), "u-1")
	assert.False(t, first.Known)
	assert.Equal(t, resilience.StateClosed, breaker.State())

	second := p.Fetch(context.Background(), "u-1")
	assert.True(t, second.Known)
}

func TestFetchOpenBreakerShortCircuits(t *testing.T) {
	store := &scriptedStore{results: []storeResult{
		{err: &StoreError{Sentinel: ErrStoreError, Operation: "get_status", Status: 500}},
	}}
	breaker := resilience.NewCircuitBreaker("profile_store_test_open", 1, time.Hour)
	p := NewProvider(store, breaker, time.Second)

	first := p.Fetch(context.Background(), "u-1")
	assert.False(t, first.Known)
	require.Equal(t, resilience.StateOpen, breaker.State())

	second := p.Fetch(context.Background(), "u-1")
	assert.False(t, second.Known)
	assert.Len(t, store.calls, 1, "open breaker must not reach the store")
}
