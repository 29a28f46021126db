//go:build integration

package redis

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/internal/testinfra"
)

func TestRateLimiter_SlidingWindow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Redis test in short mode")
	}

	ctx := context.Background()
	svc, err := testinfra.StartRedis(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Terminate(context.Background()) })

	port, err := strconv.Atoi(svc.Port)
	require.NoError(t, err)

	client, err := NewClient(ctx, Config{Host: svc.Host, Port: port}, ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	limiter := NewRateLimiter(client, "test:")

	for i := int64(0); i < 3; i++ {
		res, err := limiter.Allow(ctx, "writes:alice", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := limiter.Allow(ctx, "writes:alice", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryIn, time.Duration(0))

	other, err := limiter.Allow(ctx, "writes:bob", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	require.NoError(t, limiter.Reset(ctx, "writes:alice"))
	res, err = limiter.Allow(ctx, "writes:alice", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
