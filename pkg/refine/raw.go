package refine

import (
	"github.com/logminer/logminer/internal/model"
	"github.com/logminer/logminer/pkg/tracegraph"
)

// The helpers below mirror pkg/partgraph's counterexample path search, but
// walk the raw trace graph at event-node granularity rather than the
// current partition graph, so refinement can ask "does this specific
// underlying event node individually witness the violation" independent
// of how nodes happen to be grouped right now.

func rawPathAvoiding(g *tracegraph.TraceGraph, from, to tracegraph.NodeID, avoid map[model.EventType]bool) bool {
	rel := g.Ordering()
	visited := map[tracegraph.NodeID]bool{from: true}
	var dfs func(cur tracegraph.NodeID) bool
	dfs = func(cur tracegraph.NodeID) bool {
		if cur == to {
			return true
		}
		for _, t := range g.Node(cur).TransitionsWithRelation(rel) {
			if visited[t.Target] {
				continue
			}
			if t.Target != to && avoid[g.Node(t.Target).Event.Type] {
				continue
			}
			visited[t.Target] = true
			if dfs(t.Target) {
				return true
			}
		}
		return false
	}
	return dfs(from)
}

func rawPathViaType(g *tracegraph.TraceGraph, from, to tracegraph.NodeID, want model.EventType) bool {
	rel := g.Ordering()
	visited := map[tracegraph.NodeID]bool{from: true}
	var dfs func(cur tracegraph.NodeID, sawWant bool) bool
	dfs = func(cur tracegraph.NodeID, sawWant bool) bool {
		sawWant = sawWant || g.Node(cur).Event.Type == want
		if cur == to && sawWant {
			return true
		}
		for _, t := range g.Node(cur).TransitionsWithRelation(rel) {
			if visited[t.Target] {
				continue
			}
			visited[t.Target] = true
			if dfs(t.Target, sawWant) {
				return true
			}
		}
		return false
	}
	return dfs(from, g.Node(from).Event.Type == want)
}

func rawFirstTypeAfterAvoiding(g *tracegraph.TraceGraph, from tracegraph.NodeID, want, avoid model.EventType) bool {
	rel := g.Ordering()
	visited := map[tracegraph.NodeID]bool{from: true}
	var dfs func(cur tracegraph.NodeID) bool
	dfs = func(cur tracegraph.NodeID) bool {
		if cur != from && g.Node(cur).Event.Type == want {
			return true
		}
		for _, t := range g.Node(cur).TransitionsWithRelation(rel) {
			if visited[t.Target] {
				continue
			}
			if g.Node(t.Target).Event.Type == avoid {
				continue
			}
			visited[t.Target] = true
			if dfs(t.Target) {
				return true
			}
		}
		return false
	}
	return dfs(from)
}
