package fsm

import (
	"errors"
	"fmt"
)

var (
	// ErrMachineClosed is returned by Trigger and Start after Close was called.
	ErrMachineClosed = errors.New("machine is closed")
	// ErrNoStates indicates that a machine was built without any declared states.
	ErrNoStates = errors.New("machine requires at least one declared state")
)

// DuplicateStateError indicates that the same state id was declared twice,
// or that a declared state collides with one of the built-in states.
type DuplicateStateError struct {
	State State
}

func (e *DuplicateStateError) Error() string {
	return fmt.Sprintf("duplicate state id %q", e.State)
}

// DuplicateTriggerError indicates that two rules were declared for the same
// (trigger, source) pair, making resolution ambiguous.
type DuplicateTriggerError struct {
	Trigger Trigger
	Source  State
}

func (e *DuplicateTriggerError) Error() string {
	return fmt.Sprintf("duplicate rule for trigger %q from state %q", e.Trigger, e.Source)
}

// DanglingReferenceError indicates that a transition rule names a state that
// was never declared.
type DanglingReferenceError struct {
	Trigger Trigger
	State   State
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("rule for trigger %q references undeclared state %q", e.Trigger, e.State)
}

// UnknownTriggerError indicates that the trigger name is not declared anywhere
// in the machine's graph. The machine state is unchanged.
type UnknownTriggerError struct {
	Trigger Trigger
}

func (e *UnknownTriggerError) Error() string {
	return fmt.Sprintf("unknown trigger %q", e.Trigger)
}

// InvalidTransitionError indicates that the trigger exists but no rule matches
// the current state, or the matched rule is an undeclared self-loop. The
// machine state is unchanged.
type InvalidTransitionError struct {
	State   State
	Trigger Trigger
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("trigger %q is not valid in state %q", e.Trigger, e.State)
}

// HookPhase identifies which hook of a state failed.
type HookPhase string

const (
	PhaseEnter HookPhase = "enter"
	PhaseExit  HookPhase = "exit"
)

// HookFailureError reports a state hook that returned an error or panicked.
// The machine has already been forced into the fault state by the time the
// caller sees this error.
type HookFailureError struct {
	State   State
	Trigger Trigger
	Phase   HookPhase
	Err     error
}

func (e *HookFailureError) Error() string {
	return fmt.Sprintf("%s hook of state %q failed during trigger %q: %v", e.Phase, e.State, e.Trigger, e.Err)
}

func (e *HookFailureError) Unwrap() error { return e.Err }

func IsDuplicateStateError(err error) bool {
	var e *DuplicateStateError
	return errors.As(err, &e)
}

func IsDuplicateTriggerError(err error) bool {
	var e *DuplicateTriggerError
	return errors.As(err, &e)
}

func IsDanglingReferenceError(err error) bool {
	var e *DanglingReferenceError
	return errors.As(err, &e)
}

func IsUnknownTriggerError(err error) bool {
	var e *UnknownTriggerError
	return errors.As(err, &e)
}

func IsInvalidTransitionError(err error) bool {
	var e *InvalidTransitionError
	return errors.As(err, &e)
}

func IsHookFailureError(err error) bool {
	var e *HookFailureError
	return errors.As(err, &e)
}
