package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redispkg "github.com/dmitrymomot/fsmkit/pkg/redis"
)

func TestConnect(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("connects to a healthy server", func(t *testing.T) {
		t.Parallel()
		mr := miniredis.RunT(t)

		client, err := redispkg.Connect(ctx, redispkg.Config{
			ConnectionURL:  "redis://" + mr.Addr(),
			RetryAttempts:  3,
			RetryInterval:  10 * time.Millisecond,
			ConnectTimeout: 2 * time.Second,
		})
		require.NoError(t, err)
		t.Cleanup(func() { client.Close() })

		require.NoError(t, client.Ping(ctx).Err())
	})

	t.Run("malformed connection url", func(t *testing.T) {
		t.Parallel()
		_, err := redispkg.Connect(ctx, redispkg.Config{
			ConnectionURL:  "not-a-url",
			RetryAttempts:  1,
			RetryInterval:  10 * time.Millisecond,
			ConnectTimeout: time.Second,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, redispkg.ErrFailedToParseConnString)
	})

	t.Run("unreachable server exhausts retries", func(t *testing.T) {
		t.Parallel()
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		_, err := redispkg.Connect(ctx, redispkg.Config{
			ConnectionURL:  "redis://" + addr,
			RetryAttempts:  2,
			RetryInterval:  10 * time.Millisecond,
			ConnectTimeout: time.Second,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, redispkg.ErrNotReady)
	})
}

func TestHealthcheck(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client, err := redispkg.Connect(ctx, redispkg.Config{
		ConnectionURL:  "redis://" + mr.Addr(),
		RetryAttempts:  1,
		RetryInterval:  10 * time.Millisecond,
		ConnectTimeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	probe := redispkg.Healthcheck(client)
	require.NoError(t, probe(ctx))

	mr.Close()
	err = probe(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, redispkg.ErrHealthcheckFailed)
}
