package tianapi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestRateLimiter_Allow(t *testing.T) {
	t.Run("allows request within burst", func(t *testing.T) {
		limiter := NewRateLimiter(10.0, 5)
		require.NoError(t, limiter.Allow(context.Background()))
	})

	t.Run("blocks request exceeding rate", func(t *testing.T) {
		limiter := NewRateLimiter(1.0, 1)
		require.NoError(t, limiter.Allow(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		assert.Error(t, limiter.Allow(ctx), "second token is a second away")
	})

	t.Run("non-positive rate disables limiting", func(t *testing.T) {
		limiter := NewRateLimiter(0, 0)
		assert.Equal(t, rate.Inf, limiter.Limit())
		for i := 0; i < 100; i++ {
			require.NoError(t, limiter.Allow(context.Background()))
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		limiter := NewRateLimiter(1.0, 1)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Error(t, limiter.Allow(ctx))
	})
}

func TestDefaultConfig_RetryWaitsForNextSecond(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 1, cfg.Burst)

	limiter := NewRateLimiter(cfg.RatePerSecond, cfg.Burst)
	require.NoError(t, limiter.Allow(context.Background()))

	// A sweep retry backs off 500ms; the upstream still allows one call per second.
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	assert.Error(t, limiter.Allow(ctx))
}
