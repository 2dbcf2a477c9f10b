package circuitbreaker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"app-groups-sync/internal/common/errors"
	"app-groups-sync/internal/common/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoBreakerAdapter(t *testing.T) {
	logger := logging.NewNopLogger()

	t.Run("basic operation", func(t *testing.T) {
		cb := NewGoBreaker("test-basic", Config{
			MaxFailures:           2,
			Timeout:               100 * time.Millisecond,
			MaxConcurrentRequests: 1,
		}, logger)

		assert.Equal(t, StateClosed, cb.State())
		assert.Equal(t, "test-basic", cb.Name())

		err := cb.Observe(func() error {
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("circuit opens after failures but calls still run", func(t *testing.T) {
		cb := NewGoBreaker("test-failures", Config{
			MaxFailures:           3,
			Timeout:               time.Second,
			MaxConcurrentRequests: 1,
		}, logger)

		for i := 0; i < 3; i++ {
			err := cb.Observe(func() error {
				return fmt.Errorf("failure %d", i)
			})
			assert.Error(t, err)
		}

		assert.Equal(t, StateOpen, cb.State())
		assert.True(t, cb.IsOpen())

		called := false
		err := cb.Observe(func() error {
			called = true
			return nil
		})
		require.NoError(t, err)
		assert.True(t, called)
		assert.True(t, cb.IsOpen(), "calls made while open are not recorded")
	})

	t.Run("errors pass through unchanged", func(t *testing.T) {
		cb := NewGoBreaker("test-passthrough", DefaultConfig(), logger)
		want := errors.ConnectionError("dial failed", nil)

		err := cb.Observe(func() error { return want })
		assert.Same(t, want, err)
	})

	t.Run("circuit transitions to half-open and closes", func(t *testing.T) {
		cb := NewGoBreaker("test-half-open", Config{
			MaxFailures:           2,
			Timeout:               50 * time.Millisecond,
			MaxConcurrentRequests: 1,
		}, logger)

		for i := 0; i < 2; i++ {
			_ = cb.Observe(func() error {
				return fmt.Errorf("failure")
			})
		}
		assert.Equal(t, StateOpen, cb.State())

		time.Sleep(60 * time.Millisecond)

		err := cb.Observe(func() error {
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("not found errors don't trip breaker", func(t *testing.T) {
		cb := NewGoBreaker("test-not-found", Config{
			MaxFailures:           2,
			Timeout:               time.Second,
			MaxConcurrentRequests: 1,
		}, logger)

		for i := 0; i < 5; i++ {
			err := cb.Observe(func() error {
				return errors.NotFoundError("group g1")
			})
			assert.Error(t, err)
		}
		assert.Equal(t, StateClosed, cb.State())

		for i := 0; i < 2; i++ {
			_ = cb.Observe(func() error {
				return errors.ConnectionError("dial failed", nil)
			})
		}
		assert.Equal(t, StateOpen, cb.State())
	})

	t.Run("cancelled callers don't trip breaker", func(t *testing.T) {
		cb := NewGoBreaker("test-cancel", Config{
			MaxFailures:           1,
			Timeout:               time.Second,
			MaxConcurrentRequests: 1,
		}, logger)

		err := cb.Observe(func() error {
			return fmt.Errorf("request failed: %w", context.Canceled)
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("invalid config falls back to defaults", func(t *testing.T) {
		cb := NewGoBreaker("test-invalid", Config{}, logger)
		require.NotNil(t, cb)
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("stats", func(t *testing.T) {
		cb := NewGoBreaker("test-stats", DefaultConfig(), logger)
		_ = cb.Observe(func() error { return nil })
		_ = cb.Observe(func() error { return fmt.Errorf("x") })

		stats := cb.Stats()
		assert.Equal(t, "test-stats", stats.Name)
		assert.Equal(t, "closed", stats.State)
		assert.Equal(t, 1, stats.Successes)
		assert.Equal(t, 1, stats.Failures)
	})
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.NoError(t, HTTPConfig.Validate())
	assert.Error(t, Config{MaxFailures: 0, Timeout: time.Second, MaxConcurrentRequests: 1}.Validate())
	assert.Error(t, Config{MaxFailures: 1, Timeout: 0, MaxConcurrentRequests: 1}.Validate())
	assert.Error(t, Config{MaxFailures: 1, Timeout: time.Second, MaxConcurrentRequests: 0}.Validate())
}
