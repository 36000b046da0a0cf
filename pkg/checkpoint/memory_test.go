package checkpoint_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fsmkit/pkg/checkpoint"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("load without save", func(t *testing.T) {
		t.Parallel()
		store := checkpoint.NewMemory()
		_, err := store.Load(ctx)
		assert.ErrorIs(t, err, checkpoint.ErrNoCheckpoint)
	})

	t.Run("save then load", func(t *testing.T) {
		t.Parallel()
		store := checkpoint.NewMemory()
		require.NoError(t, store.Save(ctx, "Running_picking"))

		state, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Running_picking", state)
	})

	t.Run("save overwrites", func(t *testing.T) {
		t.Parallel()
		store := checkpoint.NewMemory()
		require.NoError(t, store.Save(ctx, "Running_picking"))
		require.NoError(t, store.Save(ctx, "Running_placing"))

		state, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Running_placing", state)
	})

	t.Run("clear removes checkpoint", func(t *testing.T) {
		t.Parallel()
		store := checkpoint.NewMemory()
		require.NoError(t, store.Save(ctx, "Running_picking"))
		require.NoError(t, store.Clear(ctx))

		_, err := store.Load(ctx)
		assert.ErrorIs(t, err, checkpoint.ErrNoCheckpoint)
	})

	t.Run("concurrent access", func(t *testing.T) {
		t.Parallel()
		store := checkpoint.NewMemory()

		var wg sync.WaitGroup
		for i := range 32 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = store.Save(ctx, fmt.Sprintf("state_%d", i))
				_, _ = store.Load(ctx)
			}()
		}
		wg.Wait()

		state, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Contains(t, state, "state_")
	})
}
