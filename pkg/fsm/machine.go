package fsm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/fsmkit/pkg/checkpoint"
)

// Result reports a completed transition: which trigger ran and the states on
// either side of it.
type Result struct {
	Trigger Trigger   `json:"trigger"`
	From    State     `json:"from"`
	To      State     `json:"to"`
	At      time.Time `json:"at"`
}

// Machine is one finite-state-machine instance: the validated graph plus the
// mutable runtime (current state, history, auto-timeout, background tasks).
// All trigger invocations - external, timer-driven, or from hook-spawned
// tasks - serialize through one critical section; no two transitions ever run
// concurrently on the same instance.
type Machine struct {
	graph    *Graph
	hooks    map[State]Hooks
	log      *slog.Logger
	store    checkpoint.Store
	recovery bool

	// mu is the exclusive execution section of the transition engine.
	mu sync.Mutex

	// view guards the snapshot fields below for lock-free readers; writers
	// hold both mu and view so reads never wait on a running hook.
	view    sync.RWMutex
	current State
	hist    *ledger

	timer    *stateTimer
	notifier *notifier

	taskCtx    context.Context
	taskCancel context.CancelFunc

	closed bool
}

// New builds a machine from the declared states, groups, transitions and
// hooks. Construction fails with DuplicateStateError, DuplicateTriggerError
// or DanglingReferenceError when the declarations are inconsistent; such
// errors are fatal and no machine is created.
func New(opts ...Option) (*Machine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	graph, err := newGraph(cfg.states, cfg.rules)
	if err != nil {
		return nil, err
	}

	hooks := make(map[State]Hooks, len(cfg.hooks))
	for s, h := range cfg.hooks {
		if !graph.HasState(s) {
			return nil, &DanglingReferenceError{State: s}
		}
		if h.Timeout != nil && !graph.HasTrigger(h.Timeout.Trigger) {
			return nil, &UnknownTriggerError{Trigger: h.Timeout.Trigger}
		}
		hooks[s] = *h
	}

	m := &Machine{
		graph:    graph,
		hooks:    hooks,
		log:      cfg.logger,
		store:    cfg.store,
		recovery: cfg.recovery,
		current:  StateReady,
		hist:     newLedger(cfg.historySize),
		notifier: newNotifier(),
	}
	m.timer = newStateTimer(m)
	m.taskCtx, m.taskCancel = context.WithCancel(context.Background())
	return m, nil
}

// MustNew is like New but panics on construction errors, for machines whose
// declarations are static and must be valid for the process to start.
func MustNew(opts ...Option) *Machine {
	m, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("fsm: failed to build machine: %v", err))
	}
	return m
}

// Graph returns the machine's immutable transition table.
func (m *Machine) Graph() *Graph { return m.graph }

// Current returns the current state. It never blocks on a running transition.
func (m *Machine) Current() State {
	m.view.RLock()
	defer m.view.RUnlock()
	return m.current
}

// LastState returns the most recent recoverable state, or "" when none was
// recorded. Built-in states are never recorded as recoverable.
func (m *Machine) LastState() State {
	m.view.RLock()
	defer m.view.RUnlock()
	return m.hist.lastState
}

// History returns copies of the n most recently entered states in insertion
// order. The live entry has a nil Duration.
func (m *Machine) History(n int) []Entry {
	m.view.RLock()
	defer m.view.RUnlock()
	return m.hist.last(n)
}

// CanTrigger reports whether the trigger would currently resolve to a valid
// transition. Advisory only: the state may change before a following Trigger
// call executes.
func (m *Machine) CanTrigger(trig Trigger) bool {
	cur := m.Current()
	rule, ok := m.graph.Resolve(cur, trig)
	if !ok {
		return false
	}
	if rule.Dest == cur && rule.Source != rule.Dest {
		return false
	}
	return true
}

// Watch subscribes to transition results. The subscription is closed when ctx
// is cancelled or the machine is closed; slow consumers drop events rather
// than stalling the engine.
func (m *Machine) Watch(ctx context.Context) *Subscription {
	return m.notifier.subscribe(ctx)
}

// Trigger executes the named trigger. Calls serialize in arrival order; a
// trigger that is invalid for the state reached by the time it executes
// returns InvalidTransitionError with no state change. A hook failure is
// caught, logged, and converted into a forced to_fault transition; the
// returned Result then describes the forced transition and the error is a
// HookFailureError.
func (m *Machine) Trigger(ctx context.Context, trig Trigger) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Result{}, ErrMachineClosed
	}
	return m.triggerLocked(ctx, trig)
}

// Start enters the machine from ready. With recovery enabled and a recorded
// last state S, the generated recover__S rule is preferred; when no such rule
// exists (or nothing was recorded) the plain start trigger runs.
func (m *Machine) Start(ctx context.Context) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Result{}, ErrMachineClosed
	}
	if m.recovery {
		if s := m.recoveryState(ctx); s != "" {
			if rt := RecoveryTrigger(s); m.graph.HasTrigger(rt) {
				m.log.InfoContext(ctx, "recovering into last recorded state",
					slog.String("state", string(s)))
				return m.triggerLocked(ctx, rt)
			}
		}
	}
	return m.triggerLocked(ctx, TriggerStart)
}

// Close tears the instance down: the auto-timeout is cancelled, background
// tasks receive their cancellation signal, and subscriptions are closed.
// Further Trigger/Start calls return ErrMachineClosed.
func (m *Machine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.timer.disarm()
	m.taskCancel()
	m.notifier.close()
	return nil
}

// recoveryState resolves the state to recover into: the checkpoint store
// when configured, the in-memory snapshot otherwise.
func (m *Machine) recoveryState(ctx context.Context) State {
	if m.store != nil {
		s, err := m.store.Load(ctx)
		switch {
		case err == nil && s != "":
			st := State(s)
			if st != StateReady && st != StateFault && m.graph.HasState(st) {
				return st
			}
		case err != nil && !errors.Is(err, checkpoint.ErrNoCheckpoint):
			m.log.WarnContext(ctx, "failed to load checkpoint, falling back to in-memory snapshot",
				slog.Any("error", err))
		}
	}
	m.view.RLock()
	defer m.view.RUnlock()
	return m.hist.lastState
}

// triggerFromTimer is the auto-timeout expiry path. The generation is checked
// only after the machine lock is acquired: a manual exit disarms (bumping the
// generation) inside the same critical section that switches state, so a
// stale expiry can never observe, let alone act on, the old state.
func (m *Machine) triggerFromTimer(gen uint64, trig Trigger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || !m.timer.live(gen) {
		return
	}
	ctx := context.Background()
	m.log.InfoContext(ctx, "auto-timeout elapsed",
		slog.String("state", string(m.current)),
		slog.String("trigger", string(trig)))
	if _, err := m.triggerLocked(ctx, trig); err != nil && !IsHookFailureError(err) {
		m.log.ErrorContext(ctx, "auto-timeout trigger failed",
			slog.String("trigger", string(trig)),
			slog.Any("error", err))
	}
}

func (m *Machine) triggerLocked(ctx context.Context, trig Trigger) (Result, error) {
	cur := m.current
	if !m.graph.HasTrigger(trig) {
		return Result{}, &UnknownTriggerError{Trigger: trig}
	}
	rule, ok := m.graph.Resolve(cur, trig)
	if !ok {
		return Result{}, &InvalidTransitionError{State: cur, Trigger: trig}
	}
	// Self-transitions must be declared explicitly; a wildcard rule resolving
	// back into the current state is a no-op guard failure.
	if rule.Dest == cur && rule.Source != rule.Dest {
		return Result{}, &InvalidTransitionError{State: cur, Trigger: trig}
	}
	return m.applyLocked(ctx, trig, cur, rule.Dest)
}

// applyLocked performs one transition inside the critical section:
// disarm timeout, cancel state tasks, exit hook, state switch + history,
// timeout spec + enter hook, notify.
func (m *Machine) applyLocked(ctx context.Context, trig Trigger, src, dst State) (Result, error) {
	m.timer.disarm()
	m.cancelTasksLocked()

	if h, ok := m.hooks[src]; ok && h.OnExit != nil {
		ev := Event{Trigger: trig, Src: src, Dst: dst, m: m, phase: phaseExit}
		if err := runHook(ctx, h.OnExit, ev); err != nil {
			return m.faultLocked(ctx, trig, src, PhaseExit, err)
		}
	}

	m.enterLocked(ctx, dst)

	if h, ok := m.hooks[dst]; ok {
		if h.Timeout != nil {
			m.timer.arm(h.Timeout.After, h.Timeout.Trigger)
		}
		if h.OnEnter != nil {
			ev := Event{Trigger: trig, Src: src, Dst: dst, m: m, phase: phaseEnter}
			if err := runHook(ctx, h.OnEnter, ev); err != nil {
				return m.faultLocked(ctx, trig, dst, PhaseEnter, err)
			}
		}
	}

	res := Result{Trigger: trig, From: src, To: dst, At: time.Now()}
	m.log.DebugContext(ctx, "transition executed",
		slog.String("trigger", string(trig)),
		slog.String("from", string(src)),
		slog.String("to", string(dst)))
	m.notifier.publish(res)
	return res, nil
}

// enterLocked switches the current state, records history, and maintains the
// recoverable snapshot (in memory and, when configured, in the checkpoint
// store). Checkpoint write failures are logged, never fatal to the transition.
func (m *Machine) enterLocked(ctx context.Context, dst State) {
	now := time.Now()

	m.view.Lock()
	m.current = dst
	m.hist.record(dst, now)
	switch dst {
	case StateFault:
		// keep the snapshot: fault is what recovery exists for
	case StateReady:
		if !m.recovery {
			m.hist.lastState = ""
		}
	default:
		m.hist.lastState = dst
	}
	m.view.Unlock()

	m.taskCtx, m.taskCancel = context.WithCancel(context.Background())

	if m.store != nil && dst != StateReady && dst != StateFault {
		if err := m.store.Save(ctx, string(dst)); err != nil {
			m.log.WarnContext(ctx, "failed to checkpoint last state",
				slog.String("state", string(dst)),
				slog.Any("error", err))
		}
	}
}

// faultLocked converts a hook failure into a forced transition to fault. The
// failing state's hooks are not re-invoked; fault's own enter hook runs but
// its failure is only logged to keep the fail-safe path terminal.
func (m *Machine) faultLocked(ctx context.Context, trig Trigger, state State, phase HookPhase, hookErr error) (Result, error) {
	ferr := &HookFailureError{State: state, Trigger: trig, Phase: phase, Err: hookErr}
	m.log.ErrorContext(ctx, "state hook failed, forcing fault",
		slog.String("state", string(state)),
		slog.String("phase", string(phase)),
		slog.String("trigger", string(trig)),
		slog.Any("error", hookErr))

	src := m.current
	if src == StateFault {
		return Result{Trigger: trig, From: src, To: StateFault, At: time.Now()}, ferr
	}

	m.timer.disarm()
	m.cancelTasksLocked()
	m.enterLocked(ctx, StateFault)

	if h, ok := m.hooks[StateFault]; ok {
		if h.Timeout != nil {
			m.timer.arm(h.Timeout.After, h.Timeout.Trigger)
		}
		if h.OnEnter != nil {
			ev := Event{Trigger: TriggerToFault, Src: src, Dst: StateFault, m: m, phase: phaseEnter}
			if err := runHook(ctx, h.OnEnter, ev); err != nil {
				m.log.ErrorContext(ctx, "fault enter hook failed",
					slog.Any("error", err))
			}
		}
	}

	res := Result{Trigger: TriggerToFault, From: src, To: StateFault, At: time.Now()}
	m.notifier.publish(res)
	return res, ferr
}

func (m *Machine) cancelTasksLocked() {
	if m.taskCancel != nil {
		m.taskCancel()
	}
}

// runHook invokes a hook, converting panics into errors so a misbehaving hook
// can never leave the machine stuck in an inconsistent state.
func runHook(ctx context.Context, h Hook, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook panicked: %v", r)
		}
	}()
	return h(ctx, ev)
}
