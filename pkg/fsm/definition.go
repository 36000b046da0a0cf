package fsm

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Definition is a declarative machine description, typically loaded from a
// YAML file. It covers the static parts of a machine - states, groups,
// transition rules, auto-timeouts and engine settings; hook bodies are code
// and are registered separately via options.
//
//	groups:
//	  - name: Running
//	    children: [picking, placing, homing]
//	transitions:
//	  - trigger: start
//	    source: ready
//	    dest: Running_picking
//	  - trigger: finished_picking
//	    source: Running_picking
//	    dest: Running_placing
//	timeouts:
//	  - state: Running_picking
//	    after: 5s
//	    trigger: to_fault
type Definition struct {
	States      []State                `yaml:"states"`
	Groups      []GroupDefinition      `yaml:"groups"`
	Transitions []TransitionDefinition `yaml:"transitions"`
	Timeouts    []TimeoutDefinition    `yaml:"timeouts"`
	HistorySize int                    `yaml:"history_size"`
	Recovery    *bool                  `yaml:"recovery"`
}

// GroupDefinition declares a naming group of leaf states.
type GroupDefinition struct {
	Name     string   `yaml:"name"`
	Children []string `yaml:"children"`
}

// TransitionDefinition declares one rule of a trigger.
type TransitionDefinition struct {
	Trigger Trigger `yaml:"trigger"`
	Source  State   `yaml:"source"`
	Dest    State   `yaml:"dest"`
}

// TimeoutDefinition declares an auto-timeout for a state. After accepts Go
// duration strings ("5s", "1m30s").
type TimeoutDefinition struct {
	State   State         `yaml:"state"`
	After   time.Duration `yaml:"after"`
	Trigger Trigger       `yaml:"trigger"`
}

func (t *TimeoutDefinition) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		State   State   `yaml:"state"`
		After   string  `yaml:"after"`
		Trigger Trigger `yaml:"trigger"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	after, err := time.ParseDuration(raw.After)
	if err != nil {
		return fmt.Errorf("invalid timeout for state %q: %w", raw.State, err)
	}
	t.State = raw.State
	t.After = after
	t.Trigger = raw.Trigger
	return nil
}

// ParseDefinition decodes a YAML machine definition.
func ParseDefinition(r io.Reader) (Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return Definition{}, fmt.Errorf("failed to parse machine definition: %w", err)
	}
	return def, nil
}

// LoadDefinition reads and decodes a YAML machine definition file.
func LoadDefinition(path string) (Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return Definition{}, fmt.Errorf("failed to open machine definition: %w", err)
	}
	defer f.Close()
	return ParseDefinition(f)
}

// Options expands the definition into construction options. Append hook and
// infrastructure options (WithHooks, WithLogger, WithCheckpoint) after these.
func (d Definition) Options() []Option {
	var opts []Option
	if len(d.States) > 0 {
		opts = append(opts, WithStates(d.States...))
	}
	for _, g := range d.Groups {
		opts = append(opts, WithGroup(g.Name, g.Children...))
	}
	for _, t := range d.Transitions {
		opts = append(opts, WithTransition(t.Trigger, t.Source, t.Dest))
	}
	for _, t := range d.Timeouts {
		tt := t.Trigger
		if tt == "" {
			tt = TriggerToFault
		}
		opts = append(opts, WithTimeout(t.State, t.After, tt))
	}
	if d.HistorySize > 0 {
		opts = append(opts, WithHistorySize(d.HistorySize))
	}
	if d.Recovery != nil {
		opts = append(opts, WithRecovery(*d.Recovery))
	}
	return opts
}
