package fsm_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fsmkit/pkg/fsm"
)

const cellDefinition = `
groups:
  - name: Running
    children: [picking, placing, homing]
transitions:
  - trigger: start
    source: ready
    dest: Running_picking
  - trigger: finished_picking
    source: Running_picking
    dest: Running_placing
  - trigger: finished_placing
    source: Running_placing
    dest: Running_homing
timeouts:
  - state: Running_picking
    after: 5s
    trigger: finished_picking
  - state: Running_homing
    after: 250ms
history_size: 50
recovery: false
`

func TestParseDefinition(t *testing.T) {
	t.Parallel()

	t.Run("full definition", func(t *testing.T) {
		t.Parallel()
		def, err := fsm.ParseDefinition(strings.NewReader(cellDefinition))
		require.NoError(t, err)

		require.Len(t, def.Groups, 1)
		assert.Equal(t, "Running", def.Groups[0].Name)
		assert.Len(t, def.Groups[0].Children, 3)
		require.Len(t, def.Transitions, 3)
		assert.Equal(t, fsm.State("Running_picking"), def.Transitions[0].Dest)

		require.Len(t, def.Timeouts, 2)
		assert.Equal(t, 5*time.Second, def.Timeouts[0].After)
		assert.Equal(t, fsm.Trigger("finished_picking"), def.Timeouts[0].Trigger)
		assert.Equal(t, 250*time.Millisecond, def.Timeouts[1].After)
		assert.Empty(t, def.Timeouts[1].Trigger)

		assert.Equal(t, 50, def.HistorySize)
		require.NotNil(t, def.Recovery)
		assert.False(t, *def.Recovery)
	})

	t.Run("invalid duration", func(t *testing.T) {
		t.Parallel()
		_, err := fsm.ParseDefinition(strings.NewReader(`
timeouts:
  - state: Running_picking
    after: soon
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid timeout")
	})

	t.Run("unknown fields rejected", func(t *testing.T) {
		t.Parallel()
		_, err := fsm.ParseDefinition(strings.NewReader(`
states: [a]
hooks:
  - state: a
`))
		require.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()
		_, err := fsm.ParseDefinition(strings.NewReader("states: ["))
		require.Error(t, err)
	})
}

func TestLoadDefinition(t *testing.T) {
	t.Parallel()

	t.Run("reads file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "machine.yaml")
		require.NoError(t, os.WriteFile(path, []byte(cellDefinition), 0o600))

		def, err := fsm.LoadDefinition(path)
		require.NoError(t, err)
		assert.Len(t, def.Transitions, 3)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := fsm.LoadDefinition(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})
}

func TestDefinitionOptions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	def, err := fsm.ParseDefinition(strings.NewReader(cellDefinition))
	require.NoError(t, err)

	m, err := fsm.New(def.Options()...)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })

	// The declarative machine behaves like its option-built equivalent.
	_, err = m.Trigger(ctx, fsm.TriggerStart)
	require.NoError(t, err)
	assert.Equal(t, fsm.State("Running_picking"), m.Current())

	_, err = m.Trigger(ctx, "finished_placing")
	require.Error(t, err)
	assert.True(t, fsm.IsInvalidTransitionError(err))

	// Omitted timeout trigger defaults to to_fault.
	_, err = m.Trigger(ctx, "finished_picking")
	require.NoError(t, err)
	_, err = m.Trigger(ctx, "finished_placing")
	require.NoError(t, err)
	waitForState(t, m, fsm.StateFault)
}
