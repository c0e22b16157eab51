package ktails

import (
	"testing"

	"github.com/logminer/logminer/internal/model"
	"github.com/logminer/logminer/pkg/invariant"
	"github.com/logminer/logminer/pkg/tracegraph"
)

func evt(label string) model.Event {
	return model.Event{Type: model.NewEventType(label)}
}

func TestKEqualsOneTailMatchesSameNextStep(t *testing.T) {
	g, err := tracegraph.BuildChains([][]model.Event{
		{evt("a"), evt("b")},
		{evt("a"), evt("c")},
	})
	if err != nil {
		t.Fatalf("BuildChains: %v", err)
	}

	m := NewMatcher(g)

	// Node 2 (trace 0) and node 4 (trace 1) are both "a"; they are
	// followed by different labels so they are not 1-equivalent, but they
	// share a type, which is all 0-equivalence compares.
	var aNodes []tracegraph.NodeID
	for id := tracegraph.NodeID(0); int(id) < g.NumNodes(); id++ {
		if g.Node(id).Event.Type.Label == "a" {
			aNodes = append(aNodes, id)
		}
	}
	if len(aNodes) != 2 {
		t.Fatalf("expected two 'a' nodes, got %d", len(aNodes))
	}

	if !m.KEquals(aNodes[0], aNodes[1], 0) {
		t.Errorf("expected the two 'a' occurrences to be 0-equivalent")
	}
	if m.KEquals(aNodes[0], aNodes[1], 1) {
		t.Errorf("expected the two 'a' occurrences to NOT be 1-equivalent (they diverge to b vs c)")
	}
}

func TestPerformKTailsGroupsEquivalentNodesIntoOnePartition(t *testing.T) {
	g, err := tracegraph.BuildChains([][]model.Event{
		{evt("a"), evt("b")},
		{evt("a"), evt("b")},
	})
	if err != nil {
		t.Fatalf("BuildChains: %v", err)
	}

	pg := PerformKTails(g, 2, invariant.NewSet())

	// Two traces of a->b with k=2 collapse each event type's two
	// occurrences into a single partition, plus the two sentinels.
	if got := len(pg.Nodes()); got != 4 {
		t.Fatalf("expected 4 partitions (INITIAL, a, b, TERMINAL), got %d", got)
	}
}
