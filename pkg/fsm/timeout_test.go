package fsm_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fsmkit/pkg/fsm"
)

func waitForState(t *testing.T, m *fsm.Machine, want fsm.State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return m.Current() == want
	}, 2*time.Second, 5*time.Millisecond, "machine never reached %q, stuck at %q", want, m.Current())
}

func TestStateTimeout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("declared timeout fires the trigger", func(t *testing.T) {
		t.Parallel()
		m := newCellMachine(t,
			fsm.WithTimeout("Running_picking", 30*time.Millisecond, "finished_picking"),
		)

		_, err := m.Trigger(ctx, fsm.TriggerStart)
		require.NoError(t, err)
		waitForState(t, m, "Running_placing")

		hist := m.History(10)
		require.Len(t, hist, 2)
		require.NotNil(t, hist[0].Duration)
		assert.GreaterOrEqual(t, *hist[0].Duration, 30*time.Millisecond)
	})

	t.Run("timeout defaults to fault trigger", func(t *testing.T) {
		t.Parallel()
		m := newCellMachine(t,
			fsm.WithTimeout("Running_picking", 20*time.Millisecond, fsm.TriggerToFault),
		)

		_, err := m.Trigger(ctx, fsm.TriggerStart)
		require.NoError(t, err)
		waitForState(t, m, fsm.StateFault)
	})

	t.Run("manual exit disarms the pending timeout", func(t *testing.T) {
		t.Parallel()
		m := newCellMachine(t,
			fsm.WithTimeout("Running_picking", 30*time.Millisecond, fsm.TriggerToFault),
		)

		_, err := m.Trigger(ctx, fsm.TriggerStart)
		require.NoError(t, err)
		_, err = m.Trigger(ctx, "finished_picking")
		require.NoError(t, err)

		// Wait well past the original deadline; the stale timer must not fire.
		time.Sleep(80 * time.Millisecond)
		assert.Equal(t, fsm.State("Running_placing"), m.Current())
	})

	t.Run("re-entry re-arms the timeout", func(t *testing.T) {
		t.Parallel()
		m := newCellMachine(t,
			fsm.WithSelfLoop("retry", "Running_picking"),
			fsm.WithTimeout("Running_picking", 50*time.Millisecond, fsm.TriggerToFault),
		)

		_, err := m.Trigger(ctx, fsm.TriggerStart)
		require.NoError(t, err)
		time.Sleep(30 * time.Millisecond)
		_, err = m.Trigger(ctx, "retry")
		require.NoError(t, err)

		// The old deadline has passed but re-entry reset the clock.
		time.Sleep(30 * time.Millisecond)
		assert.Equal(t, fsm.State("Running_picking"), m.Current())
		waitForState(t, m, fsm.StateFault)
	})

	t.Run("hook can arm a timeout at runtime", func(t *testing.T) {
		t.Parallel()
		m := newCellMachine(t,
			fsm.WithEnterHook("Running_picking", func(ctx context.Context, e fsm.Event) error {
				e.ArmTimeout(20*time.Millisecond, "finished_picking")
				return nil
			}),
		)

		_, err := m.Trigger(ctx, fsm.TriggerStart)
		require.NoError(t, err)
		waitForState(t, m, "Running_placing")
	})

	t.Run("hook can disarm a declared timeout", func(t *testing.T) {
		t.Parallel()
		m := newCellMachine(t,
			fsm.WithTimeout("Running_picking", 20*time.Millisecond, fsm.TriggerToFault),
			fsm.WithEnterHook("Running_picking", func(ctx context.Context, e fsm.Event) error {
				e.DisarmTimeout()
				return nil
			}),
		)

		_, err := m.Trigger(ctx, fsm.TriggerStart)
		require.NoError(t, err)
		time.Sleep(60 * time.Millisecond)
		assert.Equal(t, fsm.State("Running_picking"), m.Current())
	})

	t.Run("close cancels a pending timeout", func(t *testing.T) {
		t.Parallel()
		m := newCellMachine(t,
			fsm.WithTimeout("Running_picking", 20*time.Millisecond, fsm.TriggerToFault),
		)

		_, err := m.Trigger(ctx, fsm.TriggerStart)
		require.NoError(t, err)
		require.NoError(t, m.Close())

		time.Sleep(60 * time.Millisecond)
		assert.Equal(t, fsm.State("Running_picking"), m.Current(), "closed machine must not transition")
	})
}
