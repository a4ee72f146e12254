package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNotFound = errors.New("not found")

func TestBreaker_TripsOnConsecutiveFailures(t *testing.T) {
	cfg := DefaultBreakerConfig("test")
	cfg.ConsecutiveFailures = 3
	cb := NewBreaker(cfg, zerolog.Nop())

	fail := func() (interface{}, error) { return nil, errors.New("503") }
	for i := 0; i < 3; i++ {
		_, _ = cb.Execute(fail)
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())
	_, err := cb.Execute(func() (interface{}, error) { return "ok", nil })
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestBreaker_IgnoresSuccessfulErrors(t *testing.T) {
	cfg := DefaultBreakerConfig("test")
	cfg.ConsecutiveFailures = 2
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, errNotFound)
	}
	cb := NewBreaker(cfg, zerolog.Nop())

	for i := 0; i < 5; i++ {
		_, err := cb.Execute(func() (interface{}, error) { return nil, errNotFound })
		require.ErrorIs(t, err, errNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestRetryExecutor_RetriesUntilSuccess(t *testing.T) {
	exec := NewRetryExecutor(RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond})

	calls := 0
	err := Run(context.Background(), exec, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExecutor_SkipsPermanentErrors(t *testing.T) {
	permanent := errors.New("constraint violation")
	exec := NewRetryExecutor(RetryConfig{
		MaxRetries:  5,
		BaseDelay:   time.Millisecond,
		ShouldRetry: func(err error) bool { return !errors.Is(err, permanent) },
	})

	calls := 0
	err := Run(context.Background(), exec, func() error {
		calls++
		return permanent
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
