package fsm

import (
	"context"
	"time"
)

// Hook runs synchronously inside the machine's critical section when a state
// is entered or exited. Hooks must not block on unbounded external work; long
// running work belongs in a background task spawned via Event.Go. Returning
// an error forces the machine into the fault state.
type Hook func(ctx context.Context, e Event) error

// Timeout declares an auto-timeout for a state: if the state is not exited
// within After, Trigger is submitted as if externally invoked.
type Timeout struct {
	After   time.Duration
	Trigger Trigger
}

// Hooks is the explicit per-state registration record. There is no implicit
// hook discovery; callers pass these at construction via WithHooks.
type Hooks struct {
	OnEnter Hook
	OnExit  Hook
	Timeout *Timeout
}

type hookPhase uint8

const (
	phaseEnter hookPhase = iota
	phaseExit
)

// Event describes the transition a hook is running for and grants the hook
// its in-section capabilities. It is only valid for the duration of the hook
// call.
type Event struct {
	Trigger Trigger
	Src     State
	Dst     State

	m     *Machine
	phase hookPhase
}

// ArmTimeout starts (or replaces) the auto-timeout guarding the state being
// entered. Only enter hooks may arm; calls from exit hooks are ignored, since
// the countdown for the exited state has already been disarmed.
func (e Event) ArmTimeout(after time.Duration, trig Trigger) {
	if e.phase != phaseEnter || e.m == nil {
		return
	}
	e.m.timer.arm(after, trig)
}

// DisarmTimeout cancels the active auto-timeout, if any.
func (e Event) DisarmTimeout() {
	if e.m == nil {
		return
	}
	e.m.timer.disarm()
}

// Go spawns a background task scoped to the state being entered. The task's
// context is cancelled when that state is exited; cancellation is requested
// before the next state's enter hook runs and is not awaited, so tasks must
// check ctx promptly to avoid acting on stale state. Go returns immediately.
func (e Event) Go(fn func(ctx context.Context)) {
	if e.m == nil || fn == nil {
		return
	}
	ctx := e.m.taskCtx
	go fn(ctx)
}

// Machine returns the machine the event belongs to, for firing follow-up
// triggers from background tasks. Hooks themselves must not call
// Machine().Trigger; the machine lock is held while hooks run.
func (e Event) Machine() *Machine { return e.m }
