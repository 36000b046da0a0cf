package fsm_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fsmkit/pkg/fsm"
)

func TestHistoryLedger(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("duration backfilled on exit", func(t *testing.T) {
		t.Parallel()
		m := newCellMachine(t)

		_, err := m.Trigger(ctx, fsm.TriggerStart)
		require.NoError(t, err)
		time.Sleep(20 * time.Millisecond)
		_, err = m.Trigger(ctx, "finished_picking")
		require.NoError(t, err)

		hist := m.History(10)
		require.Len(t, hist, 2)

		// Closed interval: state has been left, duration is known.
		require.NotNil(t, hist[0].Duration)
		assert.GreaterOrEqual(t, *hist[0].Duration, 20*time.Millisecond)

		// Open interval: still in this state.
		assert.Nil(t, hist[1].Duration)
	})

	t.Run("entries carry unique ids and timestamps", func(t *testing.T) {
		t.Parallel()
		m := newCellMachine(t)

		_, err := m.Trigger(ctx, fsm.TriggerStart)
		require.NoError(t, err)
		_, err = m.Trigger(ctx, "finished_picking")
		require.NoError(t, err)

		hist := m.History(10)
		require.Len(t, hist, 2)
		assert.NotEmpty(t, hist[0].ID)
		assert.NotEmpty(t, hist[1].ID)
		assert.NotEqual(t, hist[0].ID, hist[1].ID)
		assert.False(t, hist[0].EnteredAt.IsZero())
		assert.False(t, hist[1].EnteredAt.Before(hist[0].EnteredAt))
	})

	t.Run("ledger bounded by history size", func(t *testing.T) {
		t.Parallel()
		m := newCellMachine(t, fsm.WithHistorySize(3), fsm.WithSelfLoop("retry", "Running_picking"))

		_, err := m.Trigger(ctx, fsm.TriggerStart)
		require.NoError(t, err)
		for range 5 {
			_, err = m.Trigger(ctx, "retry")
			require.NoError(t, err)
		}

		hist := m.History(100)
		require.Len(t, hist, 3, "oldest entries evicted past the configured size")
		for _, e := range hist {
			assert.Equal(t, fsm.State("Running_picking"), e.State)
		}
		// All evicted entries were closed; only the newest stays open.
		assert.NotNil(t, hist[0].Duration)
		assert.NotNil(t, hist[1].Duration)
		assert.Nil(t, hist[2].Duration)
	})

	t.Run("last n returns newest entries in order", func(t *testing.T) {
		t.Parallel()
		m := newCellMachine(t)

		_, err := m.Trigger(ctx, fsm.TriggerStart)
		require.NoError(t, err)
		_, err = m.Trigger(ctx, "finished_picking")
		require.NoError(t, err)
		_, err = m.Trigger(ctx, fsm.TriggerToFault)
		require.NoError(t, err)

		hist := m.History(2)
		require.Len(t, hist, 2)
		assert.Equal(t, fsm.State("Running_placing"), hist[0].State)
		assert.Equal(t, fsm.StateFault, hist[1].State)
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		t.Parallel()
		m := newCellMachine(t)

		_, err := m.Trigger(ctx, fsm.TriggerStart)
		require.NoError(t, err)

		hist := m.History(10)
		require.Len(t, hist, 1)
		hist[0].State = "tampered"

		again := m.History(10)
		assert.Equal(t, fsm.State("Running_picking"), again[0].State)
	})
}
