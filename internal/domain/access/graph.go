package access

import (
	"fmt"

	"github.com/awalterschulze/gographviz"
)

// Edge is one transition of the terminal state machine.
type Edge struct {
	From  TerminalState
	To    TerminalState
	Label string
}

// Edges lists every transition the scheduler may take.
func Edges() []Edge {
	return []Edge{
		{From: StateIdle, To: StateScanning, Label: "tick, gates clear"},
		{From: StateScanning, To: StateGranted, Label: "identified, policy allow"},
		{From: StateScanning, To: StateDenied, Label: "unknown or policy deny"},
		{From: StateScanning, To: StateEmergency, Label: "threat detected"},
		{From: StateScanning, To: StateIdle, Label: "no signal, timeout, detector error"},
		{From: StateGranted, To: StateIdle, Label: "window expired"},
		{From: StateDenied, To: StateIdle, Label: "window expired"},
		{From: StateEmergency, To: StateIdle, Label: "window expired"},
		{From: StateIdle, To: StateUnavailable, Label: "acquisition failed"},
		{From: StateUnavailable, To: StateIdle, Label: "acquisition recovered"},
	}
}

// Graph renders the state machine as a Graphviz DOT document, annotating
// suppressing states with their window.
func Graph(windows Windows) (string, error) {
	const graphName = "terminal"

	g := gographviz.NewGraph()
	if err := g.SetName(graphName); err != nil {
		return "", fmt.Errorf("name graph: %w", err)
	}

	if err := g.SetDir(true); err != nil {
		return "", fmt.Errorf("direct graph: %w", err)
	}

	for state := StateIdle; state <= StateUnavailable; state++ {
		label := state.String()

		switch state {
		case StateGranted:
			label += "\\n" + windows.Granted.String()
		case StateDenied:
			label += "\\n" + windows.Denied.String()
		case StateEmergency:
			label += "\\n" + windows.Emergency.String()
		case StateIdle, StateScanning, StateUnavailable:
		}

		attrs := map[string]string{"label": quote(label)}
		if state == StateEmergency {
			attrs["color"] = "red"
		}

		if err := g.AddNode(graphName, state.String(), attrs); err != nil {
			return "", fmt.Errorf("add node %s: %w", state, err)
		}
	}

	for _, edge := range Edges() {
		attrs := map[string]string{"label": quote(edge.Label)}
		if err := g.AddEdge(edge.From.String(), edge.To.String(), true, attrs); err != nil {
			return "", fmt.Errorf("add edge %s->%s: %w", edge.From, edge.To, err)
		}
	}

	return g.String(), nil
}

// quote wraps a DOT label; labels never contain quotes.
func quote(label string) string {
	return `"` + label + `"`
}
