package tracegraph

import (
	"testing"

	"github.com/logminer/logminer/internal/model"
)

func evt(label string) model.Event {
	return model.Event{Type: model.NewEventType(label)}
}

func TestBuildChainsLinksInitialAndTerminal(t *testing.T) {
	traces := [][]model.Event{
		{evt("a"), evt("b"), evt("c")},
	}

	g, err := BuildChains(traces)
	if err != nil {
		t.Fatalf("BuildChains: %v", err)
	}

	if g.NumNodes() != 5 { // INITIAL, a, b, c, TERMINAL
		t.Fatalf("expected 5 nodes, got %d", g.NumNodes())
	}

	initial := g.Node(g.Initial)
	trans := initial.TransitionsWithRelation(g.Ordering())
	if len(trans) != 1 {
		t.Fatalf("expected INITIAL to have exactly one outgoing ordering transition, got %d", len(trans))
	}
	if got := g.Node(trans[0].Target).Event.Type.Label; got != "a" {
		t.Fatalf("expected INITIAL -> a, got %s", got)
	}
}

func TestBuildChainsRejectsEmptyTrace(t *testing.T) {
	if _, err := BuildChains([][]model.Event{{}}); err == nil {
		t.Fatal("expected an error for an empty trace")
	}
}

func TestBuildChainsRejectsSentinelEventType(t *testing.T) {
	traces := [][]model.Event{{{Type: model.Initial}}}
	if _, err := BuildChains(traces); err == nil {
		t.Fatal("expected an error when a trace uses a reserved sentinel event type")
	}
}

func TestBuildChainsDeclaresExtraRelations(t *testing.T) {
	traces := [][]model.Event{{evt("a"), evt("b")}}

	g, err := BuildChains(traces, "concurrent")
	if err != nil {
		t.Fatalf("BuildChains: %v", err)
	}

	rels := g.Relations()
	found := false
	for _, r := range rels {
		if r == "concurrent" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected declared relations to include %q, got %v", "concurrent", rels)
	}
}
