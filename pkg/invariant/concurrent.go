package invariant

import (
	"github.com/logminer/logminer/internal/model"
	"github.com/logminer/logminer/pkg/tracegraph"
)

// MineNeverConcurrent emits NeverConcurrent(a,b) for every pair of event
// types that are never vector-clock-incomparable in any trace of a
// DAGs-shaped trace graph, the partial-order variant enabled by the
// mineNeverConcurrentWith configuration option. Mining is skipped (an
// empty set is returned) for Chains-shaped graphs, which carry no vector
// clocks.
func MineNeverConcurrent(g *tracegraph.TraceGraph) *Set {
	result := NewSet()
	if g.Shape != tracegraph.DAGs {
		return result
	}

	concurrentPairs := make(map[[2]model.EventType]bool)
	allPairs := make(map[[2]model.EventType]bool)

	for i := range g.Traces {
		t := &g.Traces[i]
		for _, u := range t.Nodes {
			for _, v := range t.Nodes {
				if u == v {
					continue
				}
				a, b := g.Node(u).Event.Type, g.Node(v).Event.Type
				if a == b {
					continue
				}
				key := orderedPair(a, b)
				allPairs[key] = true
				if g.Clocks[u].ConcurrentWith(g.Clocks[v]) {
					concurrentPairs[key] = true
				}
			}
		}
	}

	for key := range allPairs {
		if !concurrentPairs[key] {
			result.Add(Invariant{Left: key[0], Right: key[1], Kind: NeverConcurrent})
		}
	}
	return result
}

func orderedPair(a, b model.EventType) [2]model.EventType {
	if a.Less(b) {
		return [2]model.EventType{a, b}
	}
	return [2]model.EventType{b, a}
}
