package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func failN(cb *CircuitBreaker, n int) {
	for i := 0; i < n; i++ {
		cb.Execute(context.Background(), func() error { return errBoom })
	}
}

func TestBreakerStaysClosedOnSuccess(t *testing.T) {
	cb := New("test", Config{FailureThreshold: 3})

	for i := 0; i < 10; i++ {
		require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
	}

	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb := New("test", Config{FailureThreshold: 3, Timeout: time.Minute})

	failN(cb, 3)
	assert.Equal(t, StateOpen, cb.State())

	err := cb.Execute(context.Background(), func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreakerSuccessResetsConsecutiveFailures(t *testing.T) {
	cb := New("test", Config{FailureThreshold: 3, Timeout: time.Minute})

	failN(cb, 2)
	require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
	failN(cb, 2)

	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerHalfOpensAfterTimeoutAndRecloses(t *testing.T) {
	cb := New("test", Config{
		FailureThreshold: 2,
		SuccessThreshold: 2,
		MaxRequests:      2,
		Timeout:          10 * time.Millisecond,
	})

	failN(cb, 2)
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
	require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))

	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := New("test", Config{
		FailureThreshold: 2,
		Timeout:          10 * time.Millisecond,
	})

	failN(cb, 2)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, StateHalfOpen, cb.State())

	failN(cb, 1)
	assert.Equal(t, StateOpen, cb.State())
}

func TestBreakerCounts(t *testing.T) {
	cb := New("test", Config{FailureThreshold: 10})

	cb.Execute(context.Background(), func() error { return nil })
	cb.Execute(context.Background(), func() error { return errBoom })

	counts := cb.Counts()
	assert.Equal(t, uint32(2), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalSuccesses)
	assert.Equal(t, uint32(1), counts.TotalFailures)
}
