package tracegraph

import (
	"fmt"

	"github.com/logminer/logminer/internal/bitset"
	"github.com/logminer/logminer/internal/model"
)

// BuildChains constructs a Chains-shaped TraceGraph: one node per event, in
// order, wired with the ordering relation and bracketed by the shared
// INITIAL/TERMINAL sentinels. Every extra relation in relations is attached
// as an additional tag on the same ordering-relation transitions (a Chains
// trace is already totally ordered, so a secondary relation never adds a new
// edge, only a new tag on an existing one).
func BuildChains(traces [][]model.Event, relations ...string) (*TraceGraph, error) {
	g := &TraceGraph{
		Shape:    Chains,
		arena:    &arena{},
		ordering: DefaultRelation,
		Types:    bitset.NewTable(),
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
		for _, e := range evts {
			if e.Type.IsSentinel() {
				return nil, fmt.Errorf("tracegraph: trace %d uses a reserved sentinel event type", ti)
			}
		}
		g.internAll(evts)

		trace := Trace{Initial: g.Initial, Terminal: g.Terminal}
		prev := g.Initial
		for _, e := range evts {
			id := g.arena.newNode(e)
			g.arena.addTransition(prev, id, g.ordering)
			for _, r := range relations {
				g.arena.addTransition(prev, id, r)
			}
			trace.Nodes = append(trace.Nodes, id)
			prev = id
		}
		g.arena.addTransition(prev, g.Terminal, g.ordering)
		for _, r := range relations {
			g.arena.addTransition(prev, g.Terminal, r)
		}
		g.Traces = append(g.Traces, trace)
	}
	return g, nil
}
