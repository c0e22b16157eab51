package partgraph

import (
	"testing"

	"github.com/logminer/logminer/internal/model"
	"github.com/logminer/logminer/pkg/invariant"
)

// TestGetCounterexampleFindsNFbyViaTheLaterLargerIDBranch exercises the case
// where the DFS in pathViaType visits a non-witnessing branch to the target
// before the witnessing one (forced here by partition ID ordering, since
// Outgoing returns IDs ascending). A visited set keyed only on the node
// would mark the target "seen" on the failed first attempt and refuse to
// revisit it on the branch that actually proves the violation.
func TestGetCounterexampleFindsNFbyViaTheLaterLargerIDBranch(t *testing.T) {
	tg := buildGraph(t, [][]model.Event{
		{evt("a"), evt("b")}, // a -> b -> TERMINAL, no witness
		{evt("a"), evt("w")}, // a -> w -> TERMINAL, witnesses NFby(a,w)
	})
	pg := InitializeFrom(tg, invariant.NewSet())

	inv := invariant.Invariant{
		Left:  model.NewEventType("a"),
		Right: model.NewEventType("w"),
		Kind:  invariant.NFby,
	}

	cx, ok := pg.GetCounterexample(inv)
	if !ok {
		t.Fatal("expected a counterexample: a is followed by w on the second trace")
	}
	if len(cx) == 0 {
		t.Fatal("expected a non-empty counterexample path")
	}

	var sawW bool
	for _, id := range cx {
		if pg.Partition(id).Type().Label == "w" {
			sawW = true
		}
	}
	if !sawW {
		t.Fatalf("expected the counterexample to pass through the w partition, got %v", cx)
	}
}
