package ktails

import (
	"sort"

	"github.com/logminer/logminer/pkg/invariant"
	"github.com/logminer/logminer/pkg/partgraph"
	"github.com/logminer/logminer/pkg/tracegraph"
)

// PerformKTails partitions g's non-sentinel event nodes into equivalence
// classes of kEquals(_, _, k) and returns the resulting partition graph,
// seeded with mined invariants for downstream refinement/coarsening.
// Classes are
// built by scanning nodes in id order and joining each node to the first
// existing class it is k-equivalent to its representative, which is
// deterministic given a fixed node enumeration order.
func PerformKTails(g *tracegraph.TraceGraph, k int, mined *invariant.Set) *partgraph.PartitionGraph {
	m := NewMatcher(g)

	var classes [][]tracegraph.NodeID
	for id := tracegraph.NodeID(0); int(id) < g.NumNodes(); id++ {
		if g.Node(id).Event.Type.IsSentinel() {
			continue
		}
		placed := false
		for ci, class := range classes {
			if m.KEquals(class[0], id, k) {
				classes[ci] = append(classes[ci], id)
				placed = true
				break
			}
		}
		if !placed {
			classes = append(classes, []tracegraph.NodeID{id})
		}
	}

	sort.Slice(classes, func(i, j int) bool { return classes[i][0] < classes[j][0] })
	return partgraph.InitializeFromGroups(g, mined, classes)
}
