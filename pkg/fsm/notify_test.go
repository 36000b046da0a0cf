package fsm_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fsmkit/pkg/fsm"
)

func recvResult(t *testing.T, sub *fsm.Subscription) fsm.Result {
	t.Helper()
	select {
	case res, ok := <-sub.Events():
		require.True(t, ok, "subscription channel closed unexpectedly")
		return res
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for transition event")
		return fsm.Result{}
	}
}

func TestWatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("subscriber receives each transition", func(t *testing.T) {
		t.Parallel()
		m := newCellMachine(t)
		sub := m.Watch(ctx)
		defer sub.Close()

		_, err := m.Trigger(ctx, fsm.TriggerStart)
		require.NoError(t, err)
		_, err = m.Trigger(ctx, "finished_picking")
		require.NoError(t, err)

		res := recvResult(t, sub)
		assert.Equal(t, fsm.TriggerStart, res.Trigger)
		assert.Equal(t, fsm.State("Running_picking"), res.To)

		res = recvResult(t, sub)
		assert.Equal(t, fsm.Trigger("finished_picking"), res.Trigger)
	})

	t.Run("failed triggers publish nothing", func(t *testing.T) {
		t.Parallel()
		m := newCellMachine(t)
		sub := m.Watch(ctx)
		defer sub.Close()

		_, err := m.Trigger(ctx, fsm.TriggerReset)
		require.Error(t, err)

		select {
		case res := <-sub.Events():
			t.Fatalf("unexpected event for rejected trigger: %+v", res)
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("multiple subscribers each get the event", func(t *testing.T) {
		t.Parallel()
		m := newCellMachine(t)
		a := m.Watch(ctx)
		defer a.Close()
		b := m.Watch(ctx)
		defer b.Close()

		_, err := m.Trigger(ctx, fsm.TriggerStart)
		require.NoError(t, err)

		assert.Equal(t, fsm.State("Running_picking"), recvResult(t, a).To)
		assert.Equal(t, fsm.State("Running_picking"), recvResult(t, b).To)
	})

	t.Run("closed subscription stops receiving", func(t *testing.T) {
		t.Parallel()
		m := newCellMachine(t)
		sub := m.Watch(ctx)
		sub.Close()
		sub.Close() // idempotent

		_, err := m.Trigger(ctx, fsm.TriggerStart)
		require.NoError(t, err)

		_, ok := <-sub.Events()
		assert.False(t, ok)
	})

	t.Run("context cancellation closes the subscription", func(t *testing.T) {
		t.Parallel()
		m := newCellMachine(t)
		subCtx, cancel := context.WithCancel(context.Background())
		sub := m.Watch(subCtx)
		cancel()

		require.Eventually(t, func() bool {
			select {
			case _, ok := <-sub.Events():
				return !ok
			default:
				return false
			}
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("machine close ends all subscriptions", func(t *testing.T) {
		t.Parallel()
		m := newCellMachine(t)
		sub := m.Watch(ctx)

		require.NoError(t, m.Close())

		select {
		case _, ok := <-sub.Events():
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("subscription not closed on machine shutdown")
		}
	})

	t.Run("slow subscriber never blocks the engine", func(t *testing.T) {
		t.Parallel()
		m := newCellMachine(t, fsm.WithSelfLoop("retry", "Running_picking"))
		sub := m.Watch(ctx)
		defer sub.Close()

		_, err := m.Trigger(ctx, fsm.TriggerStart)
		require.NoError(t, err)
		// Overflow the subscriber buffer without draining it; every trigger
		// must still return promptly.
		for range 40 {
			_, err = m.Trigger(ctx, "retry")
			require.NoError(t, err)
		}
		assert.Equal(t, fsm.State("Running_picking"), m.Current())
	})
}
