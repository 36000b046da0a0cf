package fsm

import "strings"

// State is an opaque, globally unique identifier of a leaf state.
type State string

func (s State) String() string { return string(s) }

// Trigger is the name of an event that may cause a transition.
type Trigger string

func (t Trigger) String() string { return string(t) }

// Built-in states present in every machine.
const (
	StateReady State = "ready"
	StateFault State = "fault"
)

// Built-in triggers merged into every machine's graph.
const (
	TriggerStart   Trigger = "start"
	TriggerReset   Trigger = "reset"
	TriggerToFault Trigger = "to_fault"
)

// Wildcard matches any current state when used as a rule source.
const Wildcard State = "*"

// RecoveryPrefix prefixes the generated per-state recovery triggers,
// e.g. "recover__Running_placing".
const RecoveryPrefix = "recover__"

// RecoveryTrigger returns the trigger that resumes directly into the given state.
func RecoveryTrigger(s State) Trigger {
	return Trigger(RecoveryPrefix + string(s))
}

// Rule associates a source state (or Wildcard) with a destination state.
type Rule struct {
	Source State
	Dest   State
}

// Edge is one transition of the graph export, suitable for diagram rendering.
type Edge struct {
	From    State   `json:"from"`
	To      State   `json:"to"`
	Trigger Trigger `json:"trigger"`
}

// GraphData is a static description of the machine's graph: states as nodes,
// trigger rules as edges. It is safe to share; external renderers consume it.
type GraphData struct {
	States []State `json:"states"`
	Edges  []Edge  `json:"edges"`
}

type ruleDecl struct {
	trigger Trigger
	source  State
	dest    State
}

// Graph is the immutable, validated transition table of a machine. It has no
// runtime behavior beyond rule resolution and introspection.
type Graph struct {
	states   []State // declaration order, built-ins appended last
	stateSet map[State]struct{}
	rules    map[Trigger][]Rule // declaration order per trigger
	triggers []Trigger          // declaration order
}

// newGraph compiles declared states and transition rules into a flat table,
// merging the built-in ready/fault states, start/to_fault/reset triggers and
// the generated recover__<state> rules.
func newGraph(states []State, decls []ruleDecl) (*Graph, error) {
	if len(states) == 0 {
		return nil, ErrNoStates
	}

	g := &Graph{
		stateSet: make(map[State]struct{}, len(states)+2),
		rules:    make(map[Trigger][]Rule),
	}

	for _, s := range states {
		if _, ok := g.stateSet[s]; ok {
			return nil, &DuplicateStateError{State: s}
		}
		if s == StateReady || s == StateFault || s == Wildcard {
			return nil, &DuplicateStateError{State: s}
		}
		g.stateSet[s] = struct{}{}
		g.states = append(g.states, s)
	}
	for _, s := range []State{StateReady, StateFault} {
		g.stateSet[s] = struct{}{}
		g.states = append(g.states, s)
	}

	for _, d := range decls {
		if err := g.addRule(d.trigger, d.source, d.dest); err != nil {
			return nil, err
		}
	}

	// Built-in rules give every machine one unambiguous lifecycle: start out
	// of ready, collapse into fault from anywhere, reset back to ready.
	// User declarations for the same (trigger, source) pair take precedence.
	if !g.hasRuleFrom(TriggerStart, StateReady) {
		if err := g.addRule(TriggerStart, StateReady, states[0]); err != nil {
			return nil, err
		}
	}
	if !g.hasRuleFrom(TriggerToFault, Wildcard) {
		if err := g.addRule(TriggerToFault, Wildcard, StateFault); err != nil {
			return nil, err
		}
	}
	if !g.hasRuleFrom(TriggerReset, StateFault) {
		if err := g.addRule(TriggerReset, StateFault, StateReady); err != nil {
			return nil, err
		}
	}

	// One recovery rule per declared leaf so Start can resume into a
	// previously recorded state.
	for _, s := range states {
		rt := RecoveryTrigger(s)
		if g.hasRuleFrom(rt, StateReady) {
			continue
		}
		if err := g.addRule(rt, StateReady, s); err != nil {
			return nil, err
		}
	}

	return g, nil
}

func (g *Graph) addRule(trig Trigger, source, dest State) error {
	if source != Wildcard {
		if _, ok := g.stateSet[source]; !ok {
			return &DanglingReferenceError{Trigger: trig, State: source}
		}
	}
	if _, ok := g.stateSet[dest]; !ok {
		return &DanglingReferenceError{Trigger: trig, State: dest}
	}
	if g.hasRuleFrom(trig, source) {
		return &DuplicateTriggerError{Trigger: trig, Source: source}
	}
	if _, ok := g.rules[trig]; !ok {
		g.triggers = append(g.triggers, trig)
	}
	g.rules[trig] = append(g.rules[trig], Rule{Source: source, Dest: dest})
	return nil
}

func (g *Graph) hasRuleFrom(trig Trigger, source State) bool {
	for _, r := range g.rules[trig] {
		if r.Source == source {
			return true
		}
	}
	return false
}

// HasState reports whether the state id is part of the graph.
func (g *Graph) HasState(s State) bool {
	_, ok := g.stateSet[s]
	return ok
}

// HasTrigger reports whether the trigger is declared anywhere in the graph.
func (g *Graph) HasTrigger(trig Trigger) bool {
	_, ok := g.rules[trig]
	return ok
}

// Resolve finds the rule applying to the (current state, trigger) pair.
// An exact-source rule always wins over a wildcard rule.
func (g *Graph) Resolve(current State, trig Trigger) (Rule, bool) {
	rules, ok := g.rules[trig]
	if !ok {
		return Rule{}, false
	}
	var wildcard *Rule
	for i := range rules {
		switch rules[i].Source {
		case current:
			return rules[i], true
		case Wildcard:
			if wildcard == nil {
				wildcard = &rules[i]
			}
		}
	}
	if wildcard != nil {
		return *wildcard, true
	}
	return Rule{}, false
}

// States returns all state ids in declaration order, built-ins last.
func (g *Graph) States() []State {
	out := make([]State, len(g.states))
	copy(out, g.states)
	return out
}

// Triggers returns all trigger names in declaration order.
func (g *Graph) Triggers() []Trigger {
	out := make([]Trigger, len(g.triggers))
	copy(out, g.triggers)
	return out
}

// RecoveryTriggers returns the generated recover__ triggers only.
func (g *Graph) RecoveryTriggers() []Trigger {
	var out []Trigger
	for _, t := range g.triggers {
		if strings.HasPrefix(string(t), RecoveryPrefix) {
			out = append(out, t)
		}
	}
	return out
}

// Data exports the graph for introspection and diagram rendering. Recovery
// triggers are omitted to keep diagrams readable; they all share the same
// ready → <state> shape.
func (g *Graph) Data() GraphData {
	data := GraphData{States: g.States()}
	for _, t := range g.triggers {
		if strings.HasPrefix(string(t), RecoveryPrefix) {
			continue
		}
		for _, r := range g.rules[t] {
			data.Edges = append(data.Edges, Edge{From: r.Source, To: r.Dest, Trigger: t})
		}
	}
	return data
}
