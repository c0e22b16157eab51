package partgraph

import (
	"testing"

	"github.com/logminer/logminer/internal/model"
	"github.com/logminer/logminer/pkg/invariant"
	"github.com/logminer/logminer/pkg/tracegraph"
)

func evt(label string) model.Event {
	return model.Event{Type: model.NewEventType(label)}
}

func buildGraph(t *testing.T, traces [][]model.Event) *tracegraph.TraceGraph {
	t.Helper()
	g, err := tracegraph.BuildChains(traces)
	if err != nil {
		t.Fatalf("BuildChains: %v", err)
	}
	return g
}

func TestInitializeFromGroupsAllNodesOfOneTypeByDefault(t *testing.T) {
	tg := buildGraph(t, [][]model.Event{
		{evt("a"), evt("b")},
		{evt("a"), evt("c")},
	})

	pg := InitializeFrom(tg, invariant.NewSet())

	// INITIAL, a, b, c, TERMINAL: one coarse partition per distinct type.
	if got := len(pg.Nodes()); got != 5 {
		t.Fatalf("expected 5 partitions, got %d", got)
	}
}

func TestGetCounterexampleFindsAFbyViolationAtCoarsePartitioning(t *testing.T) {
	tg := buildGraph(t, [][]model.Event{
		{evt("a"), evt("b")},
		{evt("a"), evt("c")},
	})
	pg := InitializeFrom(tg, invariant.NewSet())

	inv := invariant.Invariant{
		Left:  model.NewEventType("a"),
		Right: model.NewEventType("b"),
		Kind:  invariant.AFby,
	}

	cx, ok := pg.GetCounterexample(inv)
	if !ok {
		t.Fatal("expected a counterexample: the a->c trace never reaches b")
	}
	if len(cx) == 0 {
		t.Fatal("expected a non-empty counterexample path")
	}
}

func TestApplySplitThenMergeAllRoundTrips(t *testing.T) {
	tg := buildGraph(t, [][]model.Event{
		{evt("a"), evt("b")},
		{evt("a"), evt("c")},
	})
	pg := InitializeFrom(tg, invariant.NewSet())

	var aPartition *Partition
	for _, p := range pg.Nodes() {
		if p.Type().Label == "a" {
			aPartition = p
		}
	}
	if aPartition == nil {
		t.Fatal("expected an 'a' partition")
	}
	if aPartition.Len() != 2 {
		t.Fatalf("expected 2 occurrences of 'a' in one coarse partition, got %d", aPartition.Len())
	}

	nodes := aPartition.Nodes()
	split := &PartitionMultiSplit{
		Target: aPartition.ID(),
		Groups: [][]tracegraph.NodeID{{nodes[0]}, {nodes[1]}},
	}

	inverse, err := pg.Apply(split)
	if err != nil {
		t.Fatalf("Apply(split): %v", err)
	}
	if got := len(pg.Nodes()); got != 6 {
		t.Fatalf("expected 6 partitions after the split, got %d", got)
	}

	// Every node of the two new partitions must be owned by exactly one of
	// them, never left pointing at whatever partition happens to sit at
	// PartitionID(0) (the INITIAL partition).
	for _, p := range pg.Nodes() {
		if p.IsSentinel() {
			continue
		}
		for _, n := range p.Nodes() {
			if owner := pg.Owner(n); owner != p.ID() {
				t.Fatalf("node %d: Owner() = %d, want its actual partition %d", n, owner, p.ID())
			}
		}
	}

	if _, err := pg.Apply(inverse); err != nil {
		t.Fatalf("Apply(inverse): %v", err)
	}
	if got := len(pg.Nodes()); got != 5 {
		t.Fatalf("expected 5 partitions after undoing the split, got %d", got)
	}
	for _, p := range pg.Nodes() {
		for _, n := range p.Nodes() {
			if owner := pg.Owner(n); owner != p.ID() {
				t.Fatalf("node %d: Owner() = %d after merge-back, want its actual partition %d", n, owner, p.ID())
			}
		}
	}
}

func TestApplySplitThenMergeBackPreservesOwnership(t *testing.T) {
	tg := buildGraph(t, [][]model.Event{
		{evt("a"), evt("b")},
		{evt("a"), evt("c")},
	})
	pg := InitializeFrom(tg, invariant.NewSet())

	var aPartition *Partition
	for _, p := range pg.Nodes() {
		if p.Type().Label == "a" {
			aPartition = p
		}
	}
	nodes := aPartition.Nodes()
	split := &PartitionMultiSplit{
		Target: aPartition.ID(),
		Groups: [][]tracegraph.NodeID{{nodes[0]}, {nodes[1]}},
	}
	mergeBack, err := pg.Apply(split)
	if err != nil {
		t.Fatalf("Apply(split): %v", err)
	}

	if _, err := pg.Apply(mergeBack); err != nil {
		t.Fatalf("Apply(mergeBack): %v", err)
	}

	var merged *Partition
	for _, p := range pg.Nodes() {
		if p.Type().Label == "a" {
			merged = p
		}
	}
	if merged == nil || merged.Len() != 2 {
		t.Fatalf("expected a single 2-node 'a' partition after merging back, got %v", merged)
	}
	for _, n := range merged.Nodes() {
		if owner := pg.Owner(n); owner != merged.ID() {
			t.Fatalf("node %d: Owner() = %d, want the merged partition %d", n, owner, merged.ID())
		}
	}

	// A real induced edge out of INITIAL must land on the merged 'a'
	// partition, not be corrupted by a stale owner entry.
	out := pg.Outgoing(pg.Partition(pg.Initial()), tracegraph.DefaultRelation)
	if len(out) != 1 || out[0] != merged.ID() {
		t.Fatalf("expected INITIAL's only outgoing edge to target the merged partition %d, got %v", merged.ID(), out)
	}
}
