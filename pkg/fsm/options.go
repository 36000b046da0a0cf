package fsm

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/fsmkit/pkg/checkpoint"
)

// Option configures a machine during construction.
type Option func(*config)

type config struct {
	states      []State
	rules       []ruleDecl
	hooks       map[State]*Hooks
	historySize int
	recovery    bool
	store       checkpoint.Store
	logger      *slog.Logger
}

func defaultConfig() *config {
	return &config{
		hooks:       make(map[State]*Hooks),
		historySize: DefaultHistorySize,
		recovery:    true,
		logger:      slog.New(slog.DiscardHandler),
	}
}

// WithStates declares ungrouped leaf states in order; the first declared
// state of the machine is the destination of the built-in start trigger.
func WithStates(states ...State) Option {
	return func(c *config) {
		c.states = append(c.states, states...)
	}
}

// WithGroup declares a group of leaf states. Grouping is purely a naming
// convenience: group "Running" with child "picking" yields the state id
// "Running_picking". Groups have no runtime identity of their own.
func WithGroup(name string, children ...string) Option {
	return func(c *config) {
		for _, child := range children {
			c.states = append(c.states, State(name+"_"+child))
		}
	}
}

// WithTransition declares a rule: trig moves the machine from source to dest.
// Use Wildcard as source for a rule applicable from any state. A trigger may
// own several rules for different sources.
func WithTransition(trig Trigger, source, dest State) Option {
	return func(c *config) {
		c.rules = append(c.rules, ruleDecl{trigger: trig, source: source, dest: dest})
	}
}

// WithWildcardTransition declares a rule applicable from any current state.
func WithWildcardTransition(trig Trigger, dest State) Option {
	return WithTransition(trig, Wildcard, dest)
}

// WithSelfLoop explicitly allows trig to re-enter the given state. Without
// such a declaration a transition resolving back into the current state is
// rejected as invalid.
func WithSelfLoop(trig Trigger, state State) Option {
	return WithTransition(trig, state, state)
}

// WithHooks registers the enter/exit hooks and optional auto-timeout for a
// state. Registering twice replaces the previous record.
func WithHooks(state State, hooks Hooks) Option {
	return func(c *config) {
		h := hooks
		c.hooks[state] = &h
	}
}

// WithEnterHook registers just an enter hook, merging with any hooks already
// registered for the state.
func WithEnterHook(state State, hook Hook) Option {
	return func(c *config) {
		c.hookFor(state).OnEnter = hook
	}
}

// WithExitHook registers just an exit hook, merging with any hooks already
// registered for the state.
func WithExitHook(state State, hook Hook) Option {
	return func(c *config) {
		c.hookFor(state).OnExit = hook
	}
}

// WithTimeout declares an auto-timeout for a state without registering any
// hook bodies: if the state is not exited within after, trig fires.
func WithTimeout(state State, after time.Duration, trig Trigger) Option {
	return func(c *config) {
		c.hookFor(state).Timeout = &Timeout{After: after, Trigger: trig}
	}
}

func (c *config) hookFor(state State) *Hooks {
	h, ok := c.hooks[state]
	if !ok {
		h = &Hooks{}
		c.hooks[state] = h
	}
	return h
}

// WithHistorySize bounds the history ledger. Values <= 0 fall back to
// DefaultHistorySize.
func WithHistorySize(n int) Option {
	return func(c *config) {
		c.historySize = n
	}
}

// WithRecovery toggles last-state recovery. Enabled by default; when
// disabled, Start always uses the plain start trigger and entering ready
// clears the recorded snapshot.
func WithRecovery(enabled bool) Option {
	return func(c *config) {
		c.recovery = enabled
	}
}

// WithCheckpoint attaches a store that persists the last recoverable state
// across process restarts. The machine saves on every recoverable state
// entry and loads once in Start.
func WithCheckpoint(store checkpoint.Store) Option {
	return func(c *config) {
		c.store = store
	}
}

// WithLogger supplies a structured logger. Logs are discarded when omitted.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
