package invariant

import (
	"github.com/logminer/logminer/internal/model"
	"github.com/logminer/logminer/internal/ordmap"
	"github.com/logminer/logminer/pkg/tracegraph"
)

// MineClosure computes AFby, AP, and NFby invariants by closing the
// trace-graph reachability relation instead of walking a single linear
// relation path (the TransitiveClosureInvMiner equivalent, selected by the
// useTransitiveClosureMining configuration option). It must produce the
// same AFby/AP/NFby set as Mine, but it cannot derive
// IntrBy from closure alone, so it never emits that kind.
func MineClosure(g *tracegraph.TraceGraph, relation string, opts MineOptions) (*Set, error) {
	eventCnts := ordmap.New[model.EventType, int]()
	// afbySatisfied[a][b]: every occurrence of a seen so far reaches b.
	afbySatisfied := ordmap.New[model.EventType, *ordmap.Map[model.EventType, bool]]()
	// apSatisfied[a][b]: every occurrence of b seen so far is reached from a.
	apSatisfied := ordmap.New[model.EventType, *ordmap.Map[model.EventType, bool]]()
	// reachCounts[a][b]: number of times closure found a before b, for NFby.
	reachCounts := ordmap.New[model.EventType, *ordmap.Map[model.EventType, int]]()
	// traceCnts[a]: number of traces a occurs in, for AFby(INITIAL, a).
	traceCnts := make(map[model.EventType]int)

	for i := range g.Traces {
		t := &g.Traces[i]
		reach := forwardClosure(g, t, relation)
		counted := make(map[model.EventType]bool)

		for _, u := range t.Nodes {
			a := g.Node(u).Event.Type
			eventCnts.Set(a, eventCnts.GetOr(a, 0)+1)
			if !counted[a] {
				counted[a] = true
				traceCnts[a]++
			}

			reachedTypes := make(map[model.EventType]bool)
			for _, v := range reach[u] {
				reachedTypes[g.Node(v).Event.Type] = true
				b := g.Node(v).Event.Type
				row := reachCounts.GetOr(a, nil)
				if row == nil {
					row = ordmap.New[model.EventType, int]()
					reachCounts.Set(a, row)
				}
				row.Set(b, row.GetOr(b, 0)+1)
			}

			for _, b := range otherTypes(g, a) {
				markSatisfied(afbySatisfied, a, b, reachedTypes[b])
			}
		}

		// AP needs, per occurrence of b, whether some a transitively
		// precedes it -- the inverse direction of the same closure.
		for _, v := range t.Nodes {
			b := g.Node(v).Event.Type
			precededBy := make(map[model.EventType]bool)
			for _, u := range t.Nodes {
				if u == v {
					continue
				}
				for _, w := range reach[u] {
					if w == v {
						precededBy[g.Node(u).Event.Type] = true
						break
					}
				}
			}
			for _, a := range otherTypes(g, b) {
				markSatisfied(apSatisfied, a, b, precededBy[a])
			}
		}
	}

	result := NewSet()
	types := eventCnts.Keys()
	for _, a := range types {
		aCount := eventCnts.GetOr(a, 0)
		for _, b := range types {
			if a == b {
				continue
			}
			bCount := eventCnts.GetOr(b, 0)

			if row, ok := afbySatisfied.Get(a); ok && aCount > 0 {
				if row.GetOr(b, false) {
					result.Add(Invariant{Left: a, Right: b, Kind: AFby, Support: supportFor(opts, aCount)})
				}
			}

			count := 0
			if row, ok := reachCounts.Get(a); ok {
				count = row.GetOr(b, 0)
			}
			if aCount > 0 && bCount > 0 && count == 0 {
				result.Add(Invariant{Left: a, Right: b, Kind: NFby, Support: supportFor(opts, aCount)})
			}

			if row, ok := apSatisfied.Get(a); ok && bCount > 0 {
				if row.GetOr(b, false) {
					result.Add(Invariant{Left: a, Right: b, Kind: AP, Support: supportFor(opts, aCount)})
				}
			}
		}
	}
	for _, ty := range types {
		if traceCnts[ty] == len(g.Traces) {
			result.Add(Invariant{Left: model.Initial, Right: ty, Kind: AFby})
		}
	}
	return result, nil
}

func supportFor(opts MineOptions, count int) int {
	if !opts.SupportCount {
		return 0
	}
	return count
}

func markSatisfied(m *ordmap.Map[model.EventType, *ordmap.Map[model.EventType, bool]], a, b model.EventType, reached bool) {
	row, ok := m.Get(a)
	if !ok {
		row = ordmap.New[model.EventType, bool]()
		m.Set(a, row)
	}
	if !row.Has(b) {
		row.Set(b, reached)
		return
	}
	row.Set(b, row.GetOr(b, false) && reached)
}

func otherTypes(g *tracegraph.TraceGraph, self model.EventType) []model.EventType {
	var out []model.EventType
	seen := make(map[model.EventType]bool)
	for i := 0; i < g.NumNodes(); i++ {
		t := g.Node(tracegraph.NodeID(i)).Event.Type
		if t == self || t.IsSentinel() || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// forwardClosure returns, for every non-sentinel node in t, the set of
// non-sentinel nodes transitively reachable from it via edges tagged with
// relation.
func forwardClosure(g *tracegraph.TraceGraph, t *tracegraph.Trace, relation string) map[tracegraph.NodeID][]tracegraph.NodeID {
	direct := make(map[tracegraph.NodeID][]tracegraph.NodeID, len(t.Nodes))
	for _, id := range t.Nodes {
		for _, tr := range g.Node(id).Out {
			if tr.Rel.Has(relation) && tr.Target != g.Terminal {
				direct[id] = append(direct[id], tr.Target)
			}
		}
	}

	reach := make(map[tracegraph.NodeID][]tracegraph.NodeID, len(t.Nodes))
	for _, id := range t.Nodes {
		reach[id] = bfs(direct, id)
	}
	return reach
}

func bfs(direct map[tracegraph.NodeID][]tracegraph.NodeID, start tracegraph.NodeID) []tracegraph.NodeID {
	visited := map[tracegraph.NodeID]bool{start: true}
	queue := append([]tracegraph.NodeID{}, direct[start]...)
	for _, n := range queue {
		visited[n] = true
	}
	var out []tracegraph.NodeID
	for i := 0; i < len(queue); i++ {
		n := queue[i]
		out = append(out, n)
		for _, nxt := range direct[n] {
			if !visited[nxt] {
				visited[nxt] = true
				queue = append(queue, nxt)
			}
		}
	}
	return out
}
