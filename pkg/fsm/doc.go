// Package fsm implements a recoverable finite-state-machine engine for
// driving automation and machine-control processes.
//
// A machine is declared once - states (optionally grouped for naming),
// triggers with their transition rules, per-state hooks and auto-timeouts -
// and compiled into an immutable transition table at construction. Every
// machine carries the built-in states ready and fault and the built-in
// triggers start (ready to the first declared state), to_fault (any state to
// fault) and reset (fault back to ready), so external supervision always has
// one unambiguous recovery path.
//
// # Declaring a machine
//
//	m, err := fsm.New(
//	    fsm.WithGroup("Running", "picking", "placing"),
//	    fsm.WithTransition("finished_picking", "Running_picking", "Running_placing"),
//	    fsm.WithTimeout("Running_picking", 5*time.Second, fsm.TriggerToFault),
//	    fsm.WithHooks("Running_placing", fsm.Hooks{
//	        OnEnter: func(ctx context.Context, e fsm.Event) error {
//	            e.Go(func(ctx context.Context) {
//	                // long-running motion command, cancelled on state exit
//	            })
//	            return nil
//	        },
//	    }),
//	)
//
// # Execution model
//
// All trigger invocations - from transports, timers, or hook-spawned tasks -
// serialize through one exclusive critical section; two transitions never run
// concurrently on the same instance. Hooks run synchronously inside that
// section and must not block; long work goes through Event.Go, which spawns a
// background task whose context is cancelled when the spawning state is
// exited. Hook errors and panics are caught, logged, and converted into a
// forced transition to fault.
//
// Invalid triggers are reported to the caller and never change state:
//
//	if _, err := m.Trigger(ctx, "finished_picking"); fsm.IsInvalidTransitionError(err) {
//	    // trigger not applicable in the current state
//	}
//
// # History and recovery
//
// Every entered state is appended to a bounded history ledger with its entry
// time; the previous entry's duration is backfilled on each transition. The
// most recent non-built-in state doubles as the recovery snapshot: with
// recovery enabled, Start prefers the generated recover__<state> rule over
// the plain start trigger, optionally reading the snapshot from a
// checkpoint.Store that survives process restarts.
package fsm
