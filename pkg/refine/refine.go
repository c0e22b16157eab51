// Package refine implements the counterexample-guided partition-split
// loop: repeatedly split a partition on a live counterexample path until
// every invariant is satisfied or proven unreachable.
package refine

import (
	"context"
	"sort"

	"github.com/logminer/logminer/internal/model"
	"github.com/logminer/logminer/pkg/invariant"
	"github.com/logminer/logminer/pkg/partgraph"
	"github.com/logminer/logminer/pkg/telemetry"
	"github.com/logminer/logminer/pkg/tracegraph"
)

// Stats summarizes one refinement run.
type Stats struct {
	Splits  int
	Retired []invariant.Invariant
}

// Run drives the split loop to a fixed point over g, using unsatisfied as
// the initial working set of invariants. Every invariant ends up either
// applied (no counterexample remains) or in Stats.Retired (no split could
// be found to eliminate its counterexample, which the driver reports as
// an UnsatisfiableInvariant).
//
// Recompute granularity here is coarse: each round
// re-derives counterexamples for every still-pending invariant rather than
// only those that traversed the partition just split. This trades the
// described incremental optimization for a simpler, still-correct and
// still-deterministic loop.
func Run(ctx context.Context, tracer *telemetry.Tracer, g *partgraph.PartitionGraph, unsatisfied *invariant.Set) Stats {
	var stats Stats
	pending := unsatisfied.Sorted()

	ctx, runSpan := tracer.StartSpan(ctx, "refine.Run")
	runSpan.SetAttribute("pending_invariants", len(pending))
	defer tracer.EndSpan(runSpan)

	for round := 0; len(pending) > 0; round++ {
		_, roundSpan := tracer.StartSpan(ctx, "refine.round")
		roundSpan.SetAttribute("round", round)
		roundSpan.SetAttribute("pending", len(pending))

		var next []invariant.Invariant
		progressed := false
		for _, inv := range pending {
			cx, ok := g.GetCounterexample(inv)
			if !ok {
				continue // satisfied; drop silently, not a retirement
			}
			split, ok := chooseSplit(g, inv, cx)
			if !ok {
				stats.Retired = append(stats.Retired, inv)
				continue
			}
			if _, err := g.Apply(split); err != nil {
				stats.Retired = append(stats.Retired, inv)
				continue
			}
			stats.Splits++
			progressed = true
			next = append(next, inv)
		}

		roundSpan.SetAttribute("splits_so_far", stats.Splits)
		tracer.EndSpan(roundSpan)

		if !progressed {
			break
		}
		pending = next
	}

	runSpan.SetAttribute("total_splits", stats.Splits)
	runSpan.SetAttribute("retired", len(stats.Retired))
	return stats
}

type splitCandidate struct {
	position int
	target   partgraph.PartitionID
	stay     []tracegraph.NodeID
	leave    []tracegraph.NodeID
}

func less(a, b splitCandidate) bool {
	if a.position != b.position {
		return a.position < b.position
	}
	if len(a.leave) != len(b.leave) {
		return len(a.leave) < len(b.leave)
	}
	return a.target < b.target
}

// chooseSplit applies a fixed preference order to the candidate splits
// that would eliminate cx: closest to origin, then smallest |G_leave|,
// then stable tie-break on partition identity.
func chooseSplit(g *partgraph.PartitionGraph, inv invariant.Invariant, cx partgraph.Counterexample) (*partgraph.PartitionMultiSplit, bool) {
	candidates := splitCandidates(g, inv, cx)
	if len(candidates) == 0 {
		return nil, false
	}
	sort.Slice(candidates, func(i, j int) bool { return less(candidates[i], candidates[j]) })
	best := candidates[0]
	return &partgraph.PartitionMultiSplit{
		Target: best.target,
		Groups: [][]tracegraph.NodeID{best.stay, best.leave},
	}, true
}

func splitCandidates(g *partgraph.PartitionGraph, inv invariant.Invariant, cx partgraph.Counterexample) []splitCandidate {
	tg := g.TraceGraph()
	relevant := relevantType(inv)

	var out []splitCandidate
	for i, pid := range cx {
		p := g.Partition(pid)
		if p == nil || p.IsSentinel() || p.Type() != relevant || p.Len() < 2 {
			continue
		}
		leave := witnessNodes(tg, inv, p.Nodes())
		if len(leave) == 0 || len(leave) == p.Len() {
			continue
		}
		stay := complement(p.Nodes(), leave)
		out = append(out, splitCandidate{position: i, target: pid, stay: stay, leave: leave})
	}
	return out
}

// relevantType names the event type whose partition carries the witness
// for each invariant kind: the left operand for AFby/NFby/IntrBy (the
// repeated or escaping event), the right operand for AP (the event that
// must never be reached without its predecessor).
func relevantType(inv invariant.Invariant) model.EventType {
	if inv.Kind == invariant.AP {
		return inv.Right
	}
	return inv.Left
}

func witnessNodes(tg *tracegraph.TraceGraph, inv invariant.Invariant, nodes []tracegraph.NodeID) []tracegraph.NodeID {
	var out []tracegraph.NodeID
	for _, n := range nodes {
		if isWitness(tg, inv, n) {
			out = append(out, n)
		}
	}
	return out
}

func isWitness(tg *tracegraph.TraceGraph, inv invariant.Invariant, n tracegraph.NodeID) bool {
	switch inv.Kind {
	case invariant.AFby:
		return rawPathAvoiding(tg, n, tg.Terminal, map[model.EventType]bool{inv.Right: true})
	case invariant.NFby:
		return rawPathViaType(tg, n, tg.Terminal, inv.Right)
	case invariant.AP:
		return rawPathAvoiding(tg, tg.Initial, n, map[model.EventType]bool{inv.Left: true})
	case invariant.IntrBy:
		return rawFirstTypeAfterAvoiding(tg, n, inv.Left, inv.Right)
	default:
		return false
	}
}

func complement(all, subset []tracegraph.NodeID) []tracegraph.NodeID {
	excl := make(map[tracegraph.NodeID]bool, len(subset))
	for _, n := range subset {
		excl[n] = true
	}
	var out []tracegraph.NodeID
	for _, n := range all {
		if !excl[n] {
			out = append(out, n)
		}
	}
	return out
}
