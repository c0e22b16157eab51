// Package coarsen implements the greedy, invariant-preserving pairwise
// merge loop, guided by k-tails equivalence.
package coarsen

import (
	"context"
	"sort"

	"github.com/logminer/logminer/pkg/checkpoint"
	"github.com/logminer/logminer/pkg/invariant"
	"github.com/logminer/logminer/pkg/ktails"
	"github.com/logminer/logminer/pkg/partgraph"
	"github.com/logminer/logminer/pkg/telemetry"
)

// Stats summarizes one coarsening run.
type Stats struct {
	Merges int
}

// Run greedily merges k-equivalent same-type partition pairs of g as long
// as doing so leaves every invariant in invariants satisfied, processing a
// deterministic worklist seeded by initial candidate pairs and replenished
// with newly induced neighbor pairs after each accepted merge. Sentinel
// partitions and cross-type pairs are never candidates.
//
// cp is optional: when non-nil, the worklist and tried set are snapshotted
// into it after every accepted or rejected pair. Run always seeds its
// worklist from g; it does not read a worklist saved in cp back.
func Run(ctx context.Context, tracer *telemetry.Tracer, g *partgraph.PartitionGraph, invariants *invariant.Set, k int, cp *checkpoint.Checkpoint) Stats {
	var stats Stats
	m := ktails.NewMatcher(g.TraceGraph())

	_, span := tracer.StartSpan(ctx, "coarsen.Run")
	defer tracer.EndSpan(span)

	worklist := seedWorklist(g, m, k)
	tried := make(map[pairKey]bool)
	span.SetAttribute("seed_candidates", len(worklist))

	for len(worklist) > 0 {
		pair := worklist[0]
		worklist = worklist[1:]
		if tried[pair.key()] {
			continue
		}
		tried[pair.key()] = true

		pa, pb := g.Partition(pair.a), g.Partition(pair.b)
		if pa == nil || pb == nil {
			continue // one side already absorbed by an earlier merge
		}

		merge := &partgraph.PartitionMerge{A: pair.a, B: pair.b}
		inverse, err := g.Apply(merge)
		if err != nil {
			continue
		}
		if invariantsHold(g, invariants) {
			stats.Merges++
			worklist = append(worklist, neighborCandidates(g, m, k, mergedPartitionID(inverse))...)
			saveCheckpoint(cp, worklist, tried, stats.Merges)
			continue
		}
		if _, undoErr := g.Apply(inverse); undoErr != nil {
			panic("coarsen: failed to invert a rejected merge, partition graph corrupted")
		}
		saveCheckpoint(cp, worklist, tried, stats.Merges)
	}

	span.SetAttribute("merges", stats.Merges)
	if cp != nil {
		cp.SetPhase("complete")
		cp.Save()
	}
	return stats
}

func saveCheckpoint(cp *checkpoint.Checkpoint, worklist []pair, tried map[pairKey]bool, merges int) {
	if cp == nil {
		return
	}
	wl := make([]checkpoint.PairState, len(worklist))
	for i, p := range worklist {
		wl[i] = checkpoint.PairState{A: p.a, B: p.b}
	}
	tr := make([]checkpoint.PairState, 0, len(tried))
	for k := range tried {
		tr = append(tr, checkpoint.PairState{A: k.a, B: k.b})
	}
	cp.Update(wl, tr, merges)
	cp.Save()
}

type pairKey struct{ a, b partgraph.PartitionID }

type pair struct{ a, b partgraph.PartitionID }

func (p pair) key() pairKey {
	if p.a < p.b {
		return pairKey{p.a, p.b}
	}
	return pairKey{p.b, p.a}
}

// seedWorklist enumerates every same-type, non-sentinel, k-equivalent
// partition pair, ordered deterministically by partition identifier pair.
func seedWorklist(g *partgraph.PartitionGraph, m *ktails.Matcher, k int) []pair {
	nodes := g.Nodes()
	var out []pair
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			if candidatePair(m, k, nodes[i], nodes[j]) {
				out = append(out, pair{nodes[i].ID(), nodes[j].ID()})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].a != out[j].a {
			return out[i].a < out[j].a
		}
		return out[i].b < out[j].b
	})
	return out
}

func candidatePair(m *ktails.Matcher, k int, a, b *partgraph.Partition) bool {
	if a.IsSentinel() || b.IsSentinel() || a.Type() != b.Type() {
		return false
	}
	return m.KEquals(a.Nodes()[0], b.Nodes()[0], k)
}

// neighborCandidates enumerates new candidate pairs introduced by merging
// into merged: every other same-type, k-equivalent, non-sentinel partition.
func neighborCandidates(g *partgraph.PartitionGraph, m *ktails.Matcher, k int, merged partgraph.PartitionID) []pair {
	p := g.Partition(merged)
	if p == nil {
		return nil
	}
	var out []pair
	for _, q := range g.Nodes() {
		if q.ID() == merged {
			continue
		}
		if candidatePair(m, k, p, q) {
			out = append(out, pair{merged, q.ID()})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].b < out[j].b })
	return out
}

func invariantsHold(g *partgraph.PartitionGraph, invariants *invariant.Set) bool {
	for _, inv := range invariants.Items() {
		if _, hasCounterexample := g.GetCounterexample(inv); hasCounterexample {
			return false
		}
	}
	return true
}

// mergedPartitionID recovers the id of the partition the merge created by
// reading it off the inverse PartitionMultiSplit's target.
func mergedPartitionID(inverse partgraph.Operation) partgraph.PartitionID {
	split, ok := inverse.(*partgraph.PartitionMultiSplit)
	if !ok {
		return 0
	}
	return split.Target
}
