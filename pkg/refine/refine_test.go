package refine

import (
	"context"
	"testing"

	"github.com/logminer/logminer/internal/model"
	"github.com/logminer/logminer/pkg/invariant"
	"github.com/logminer/logminer/pkg/partgraph"
	"github.com/logminer/logminer/pkg/telemetry"
	"github.com/logminer/logminer/pkg/tracegraph"
)

func evt(label string) model.Event {
	return model.Event{Type: model.NewEventType(label)}
}

func TestRunSplitsThePartitionOnAnAFbyCounterexample(t *testing.T) {
	tg, err := tracegraph.BuildChains([][]model.Event{
		{evt("a"), evt("b")},
		{evt("a"), evt("c")},
	})
	if err != nil {
		t.Fatalf("BuildChains: %v", err)
	}

	pg := partgraph.InitializeFrom(tg, invariant.NewSet())

	afby := invariant.Invariant{
		Left:  model.NewEventType("a"),
		Right: model.NewEventType("b"),
		Kind:  invariant.AFby,
	}
	pending := invariant.NewSet()
	pending.Add(afby)

	if _, ok := pg.GetCounterexample(afby); !ok {
		t.Fatal("expected AFby(a,b) to be violated before refinement")
	}

	stats := Run(context.Background(), telemetry.NewTracer("test"), pg, pending)

	if stats.Splits == 0 {
		t.Fatal("expected at least one split of the a partition")
	}
	// The a->c trace itself never reaches b, so AFby(a,b) fails on every
	// partition graph of these traces: once the two a occurrences sit in
	// separate partitions no split is left and the invariant is retired.
	if len(stats.Retired) != 1 {
		t.Fatalf("expected AFby(a,b) to be retired after the split, got %v", stats.Retired)
	}
	if _, ok := pg.GetCounterexample(afby); !ok {
		t.Fatal("expected the a->c trace to remain a counterexample to AFby(a,b)")
	}
	aParts := 0
	for _, p := range pg.Nodes() {
		if p.Type().Label != "a" {
			continue
		}
		aParts++
		if out := pg.Outgoing(p, tracegraph.DefaultRelation); len(out) != 1 {
			t.Fatalf("expected each a partition to have a single successor, got %v", out)
		}
	}
	if aParts != 2 {
		t.Fatalf("expected the a partition to be split in two, got %d a partitions", aParts)
	}
}

func TestRunRetiresAnUnsatisfiableInvariant(t *testing.T) {
	tg, err := tracegraph.BuildChains([][]model.Event{
		{evt("a")},
	})
	if err != nil {
		t.Fatalf("BuildChains: %v", err)
	}
	pg := partgraph.InitializeFrom(tg, invariant.NewSet())

	// "z" never occurs, so AP(z, a) (a must be preceded by z) is violated
	// and has no split that could ever satisfy it: a's only occurrence
	// is a singleton partition with no z to carve out.
	unsat := invariant.Invariant{
		Left:  model.NewEventType("z"),
		Right: model.NewEventType("a"),
		Kind:  invariant.AP,
	}
	pending := invariant.NewSet()
	pending.Add(unsat)

	stats := Run(context.Background(), telemetry.NewTracer("test"), pg, pending)

	if len(stats.Retired) != 1 {
		t.Fatalf("expected exactly one retired invariant, got %d: %v", len(stats.Retired), stats.Retired)
	}
}
