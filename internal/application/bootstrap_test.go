package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carlmn/rentsync/internal/ports"
)

func TestBootstrapSucceedsOnFirstAttempt(t *testing.T) {
	t.Parallel()

	rental := newFakeRental()
	r := newTestReconciler(rental, newFakeMarket(), ports.SystemClock{})

	require.NoError(t, r.Bootstrap(context.Background()))
	assert.Equal(t, 1, rental.authCalls)
}

func TestBootstrapRetriesUntilLoginSucceeds(t *testing.T) {
	t.Parallel()

	rental := newFakeRental()
	rental.authErr = errors.New("connection refused")
	r := newTestReconciler(rental, newFakeMarket(), ports.SystemClock{})

	done := make(chan error, 1)
	go func() { done <- r.Bootstrap(context.Background()) }()

	// Let a few attempts fail, then bring the rental API "up".
	assert.Eventually(t, func() bool {
		rental.mu.Lock()
		defer rental.mu.Unlock()
		return rental.authCalls >= 3
	}, time.Second, time.Millisecond)

	rental.mu.Lock()
	rental.authErr = nil
	rental.mu.Unlock()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("bootstrap did not finish after login recovered")
	}
}

func TestBootstrapRetriesWhenCredentialSourceFails(t *testing.T) {
	t.Parallel()

	rental := newFakeRental()
	creds := &fakeCredentials{err: errors.New("credential file missing")}
	r := NewReconciler(rental, newFakeMarket(), creds, ports.SystemClock{}, zerolog.Nop(), Config{
		BootstrapGrace: time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Bootstrap(ctx) }()

	assert.Eventually(t, func() bool {
		creds.mu.Lock()
		defer creds.mu.Unlock()
		return creds.calls >= 3
	}, time.Second, time.Millisecond)
	// Login is never attempted without a credential.
	assert.Equal(t, 0, rental.authCalls)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestBootstrapStopsOnContextCancellation(t *testing.T) {
	t.Parallel()

	rental := newFakeRental()
	rental.authErr = errors.New("still down")
	r := newTestReconciler(rental, newFakeMarket(), ports.SystemClock{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, r.Bootstrap(ctx), context.Canceled)
}
