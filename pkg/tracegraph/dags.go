package tracegraph

import (
	"fmt"

	"github.com/logminer/logminer/internal/bitset"
	"github.com/logminer/logminer/internal/model"
)

// ClockedEvent pairs an Event with the vector clock observed for it, the
// input unit for BuildDAGs.
type ClockedEvent struct {
	Event model.Event
	Clock model.VectorClock
}

// BuildDAGs constructs a DAGs-shaped TraceGraph from per-trace events
// carrying vector-clock timestamps. A transition u -> v is added iff
// clock(u) immediately precedes clock(v) under the componentwise partial
// order, i.e. clock(u) < clock(v) and no event w in the trace has
// clock(u) < clock(w) < clock(v) (no intermediate event). Traces whose
// clocks admit a cycle (two distinct events with identical clocks, which
// can never be produced by a consistent vector-clock implementation) are
// rejected.
func BuildDAGs(traces [][]ClockedEvent, relations ...string) (*TraceGraph, error) {
	g := &TraceGraph{
		Shape:    DAGs,
		arena:    &arena{},
		ordering: DefaultRelation,
		Types:    bitset.NewTable(),
		Clocks:   make(map[NodeID]model.VectorClock),
	}
	g.declareRelation(DefaultRelation)
	for _, r := range relations {
		g.declareRelation(r)
	}

	g.Initial = g.arena.newNode(model.Event{Type: model.Initial})
	g.Terminal = g.arena.newNode(model.Event{Type: model.Terminal})

	for ti, evts := range traces {
		if len(evts) == 0 {
			return nil, fmt.Errorf("tracegraph: trace %d is empty", ti)
		}
		plain := make([]model.Event, len(evts))
		for i, ce := range evts {
			if ce.Event.Type.IsSentinel() {
				return nil, fmt.Errorf("tracegraph: trace %d uses a reserved sentinel event type", ti)
			}
			plain[i] = ce.Event
		}
		g.internAll(plain)

		ids := make([]NodeID, len(evts))
		for i, ce := range evts {
			ids[i] = g.arena.newNode(ce.Event)
			g.Clocks[ids[i]] = ce.Clock.Clone()
		}

		for i := 0; i < len(evts); i++ {
			for j := i + 1; j < len(evts); j++ {
				if evts[i].Clock.CompareTo(evts[j].Clock) == model.Equal {
					return nil, fmt.Errorf("tracegraph: trace %d has two distinct events with identical vector clocks, inconsistent clock", ti)
				}
			}
		}

		roots, sinks := buildImmediatePredecessorEdges(g, ids, evts)

		trace := Trace{Initial: g.Initial, Terminal: g.Terminal, Nodes: topoOrder(g, ids)}
		for _, root := range roots {
			g.arena.addTransition(g.Initial, root, g.ordering)
			for _, r := range relations {
				g.arena.addTransition(g.Initial, root, r)
			}
		}
		for _, sink := range sinks {
			g.arena.addTransition(sink, g.Terminal, g.ordering)
			for _, r := range relations {
				g.arena.addTransition(sink, g.Terminal, r)
			}
		}
		g.Traces = append(g.Traces, trace)
	}
	return g, nil
}

// buildImmediatePredecessorEdges adds u->v for every pair with clock(u)
// immediately preceding clock(v), and returns the trace-local roots (no
// predecessor) and sinks (no successor).
func buildImmediatePredecessorEdges(g *TraceGraph, ids []NodeID, evts []ClockedEvent) (roots, sinks []NodeID) {
	n := len(evts)
	hasPred := make([]bool, n)
	hasSucc := make([]bool, n)

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if evts[i].Clock.CompareTo(evts[j].Clock) != model.Less {
				continue
			}
			// i < j. It is immediate iff no k has i < k < j.
			immediate := true
			for k := 0; k < n; k++ {
				if k == i || k == j {
					continue
				}
				if evts[i].Clock.CompareTo(evts[k].Clock) == model.Less &&
					evts[k].Clock.CompareTo(evts[j].Clock) == model.Less {
					immediate = false
					break
				}
			}
			if immediate {
				g.arena.addTransition(ids[i], ids[j], g.ordering)
				hasSucc[i] = true
				hasPred[j] = true
			}
		}
	}

	for i := range evts {
		if !hasPred[i] {
			roots = append(roots, ids[i])
		}
		if !hasSucc[i] {
			sinks = append(sinks, ids[i])
		}
	}
	return roots, sinks
}

// topoOrder returns ids in a deterministic topological order (Kahn's
// algorithm, ties broken by input position) so that Trace.Nodes[0] and
// Trace.Nodes[len-1] are valid ordering-relation endpoints for
// BiRelationalPath even on DAGs-shaped traces.
func topoOrder(g *TraceGraph, ids []NodeID) []NodeID {
	indexOf := make(map[NodeID]int, len(ids))
	for i, id := range ids {
		indexOf[id] = i
	}
	inDegree := make(map[NodeID]int, len(ids))
	for _, id := range ids {
		inDegree[id] = 0
	}
	for _, id := range ids {
		for _, t := range g.Node(id).Out {
			if _, ok := indexOf[t.Target]; ok {
				inDegree[t.Target]++
			}
		}
	}

	var ready []NodeID
	for _, id := range ids {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	out := make([]NodeID, 0, len(ids))
	for len(ready) > 0 {
		// Pick the lowest original-index ready node for determinism.
		bestPos := 0
		for i := 1; i < len(ready); i++ {
			if indexOf[ready[i]] < indexOf[ready[bestPos]] {
				bestPos = i
			}
		}
		n := ready[bestPos]
		ready = append(ready[:bestPos], ready[bestPos+1:]...)
		out = append(out, n)

		for _, t := range g.Node(n).Out {
			if _, ok := indexOf[t.Target]; !ok {
				continue
			}
			inDegree[t.Target]--
			if inDegree[t.Target] == 0 {
				ready = append(ready, t.Target)
			}
		}
	}
	return out
}
