package fsmhttp

import (
	"fmt"
	"strings"

	"github.com/dmitrymomot/fsmkit/pkg/fsm"
)

// Mermaid produces a Mermaid flowchart for the machine's graph. Shapes carry
// semantics: ready is a circle, fault a subroutine box, everything else a
// rectangle; wildcard rules render as dotted edges from a shared "any state"
// node. The current state, when given, is highlighted.
func Mermaid(data fsm.GraphData, current fsm.State) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	hasWildcard := false
	for _, e := range data.Edges {
		if e.From == fsm.Wildcard {
			hasWildcard = true
			break
		}
	}

	for _, s := range data.States {
		opener, closer := "[", "]"
		switch s {
		case fsm.StateReady:
			opener, closer = "((", "))"
		case fsm.StateFault:
			opener, closer = "[[", "]]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", mermaidID(s), opener, s, closer)
	}
	if hasWildcard {
		sb.WriteString("    any_state{{\"any state\"}}\n")
	}

	for _, e := range data.Edges {
		from := mermaidID(e.From)
		arrow := fmt.Sprintf("-- \"%s\" -->", e.Trigger)
		if e.From == fsm.Wildcard {
			from = "any_state"
			arrow = fmt.Sprintf("-. \"%s\" .->", e.Trigger)
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", from, arrow, mermaidID(e.To))
	}

	if current != "" {
		fmt.Fprintf(&sb, "    style %s fill:#2f9e44,color:#fff\n", mermaidID(current))
	}

	return sb.String()
}

// mermaidID sanitizes a state id into a Mermaid-safe node identifier.
func mermaidID(s fsm.State) string {
	id := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, string(s))
	if id == "" {
		id = "unnamed"
	}
	return "s_" + id
}
