package main

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/fsmkit/pkg/fsm"
)

// cell wires the demo pick-and-place loop on top of the machine definition:
// each Running_* state spawns a background task that advances to the next
// step after a short delay, unless failure simulation is switched on.
type cell struct {
	stepDelay       time.Duration
	simulateFailure atomic.Bool
	log             *slog.Logger
}

// hookOptions returns the per-state hook registrations of the demo cell.
func (c *cell) hookOptions() []fsm.Option {
	steps := map[fsm.State]fsm.Trigger{
		"Running_picking": "finished_picking",
		"Running_placing": "finished_placing",
		"Running_homing":  "finished_homing",
	}

	opts := make([]fsm.Option, 0, len(steps)+1)
	for state, next := range steps {
		opts = append(opts, fsm.WithEnterHook(state, c.autoAdvance(next)))
	}
	opts = append(opts, fsm.WithEnterHook(fsm.StateFault, func(ctx context.Context, e fsm.Event) error {
		c.log.WarnContext(ctx, "cell faulted",
			slog.String("from", string(e.Src)),
			slog.String("trigger", string(e.Trigger)))
		return nil
	}))
	return opts
}

// autoAdvance fires the next step trigger after the step delay. The task is
// scoped to the spawning state: a manual exit (or fault) cancels it before
// it can act on a stale state.
func (c *cell) autoAdvance(next fsm.Trigger) fsm.Hook {
	return func(_ context.Context, e fsm.Event) error {
		m := e.Machine()
		state := e.Dst
		e.Go(func(ctx context.Context) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.stepDelay):
			}

			trig := next
			if c.simulateFailure.Load() {
				c.log.Info("simulating failure", slog.String("state", string(state)))
				trig = fsm.TriggerToFault
			}
			if _, err := m.Trigger(ctx, trig); err != nil && !fsm.IsInvalidTransitionError(err) && !errors.Is(err, fsm.ErrMachineClosed) {
				c.log.Error("auto-advance failed",
					slog.String("trigger", string(trig)),
					slog.Any("error", err))
			}
		})
		return nil
	}
}
