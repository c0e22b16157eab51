package partgraph

import (
	"github.com/logminer/logminer/internal/model"
	"github.com/logminer/logminer/pkg/invariant"
)

// Counterexample is a sequence of partitions, beginning at the INITIAL
// partition, witnessing a violation of some invariant on the current
// partition graph.
type Counterexample []PartitionID

// GetCounterexample searches the current partition graph, via its ordering
// relation, for a path witnessing a violation of inv. It reports ok=false
// when no violation exists (the invariant currently holds) or when inv's
// kind has no partition-graph-level counterexample search defined, which is
// the case for NeverConcurrent: concurrency is a trace-graph vector-clock
// property that partitions do not carry.
func (g *PartitionGraph) GetCounterexample(inv invariant.Invariant) (Counterexample, bool) {
	rel := g.trace.Ordering()
	switch inv.Kind {
	case invariant.AFby:
		return g.counterAFby(rel, inv.Left, inv.Right)
	case invariant.AP:
		return g.counterAP(rel, inv.Left, inv.Right)
	case invariant.NFby:
		return g.counterNFby(rel, inv.Left, inv.Right)
	case invariant.IntrBy:
		return g.counterIntrBy(rel, inv.Left, inv.Right)
	default:
		return nil, false
	}
}

// counterAFby finds a path INITIAL ~> p(a) ~> TERMINAL whose suffix after
// p(a) never visits a partition of type b, violating AFby(a,b).
func (g *PartitionGraph) counterAFby(rel string, a, b model.EventType) (Counterexample, bool) {
	for _, pa := range g.partitionsOfType(a) {
		prefix, ok := g.pathFromInitial(rel, pa.ID())
		if !ok {
			continue
		}
		suffix, ok := g.pathAvoiding(rel, pa.ID(), g.terminal, map[model.EventType]bool{b: true})
		if !ok {
			continue
		}
		return append(prefix[:len(prefix)-1], suffix...), true
	}
	return nil, false
}

// counterAP finds a path INITIAL ~> p(b) that never visits a partition of
// type a, violating AP(a,b).
func (g *PartitionGraph) counterAP(rel string, a, b model.EventType) (Counterexample, bool) {
	for _, pb := range g.partitionsOfType(b) {
		path, ok := g.pathAvoiding(rel, g.initial, pb.ID(), map[model.EventType]bool{a: true})
		if ok {
			return path, true
		}
	}
	return nil, false
}

// counterNFby finds a path INITIAL ~> p(a) ~> ... ~> p(b), violating
// NFby(a,b) (a is followed by b somewhere).
func (g *PartitionGraph) counterNFby(rel string, a, b model.EventType) (Counterexample, bool) {
	for _, pa := range g.partitionsOfType(a) {
		prefix, ok := g.pathFromInitial(rel, pa.ID())
		if !ok {
			continue
		}
		suffix, ok := g.pathViaType(rel, pa.ID(), g.terminal, b)
		if !ok {
			continue
		}
		return append(prefix[:len(prefix)-1], suffix...), true
	}
	return nil, false
}

// counterIntrBy finds two successive occurrences of a, pa1 then pa2, along
// a path that contains no partition of type b in between, violating
// IntrBy(a,b) (b is claimed to always intervene between successive a's).
func (g *PartitionGraph) counterIntrBy(rel string, a, b model.EventType) (Counterexample, bool) {
	for _, pa1 := range g.partitionsOfType(a) {
		prefix, ok := g.pathFromInitial(rel, pa1.ID())
		if !ok {
			continue
		}
		suffix, ok := g.firstTypeAfterAvoiding(rel, pa1.ID(), a, b)
		if !ok {
			continue
		}
		return append(prefix[:len(prefix)-1], suffix...), true
	}
	return nil, false
}

func (g *PartitionGraph) partitionsOfType(t model.EventType) []*Partition {
	var out []*Partition
	for _, id := range g.order {
		if p := g.partitions[id]; p.typ == t {
			out = append(out, p)
		}
	}
	return out
}

// pathFromInitial returns a shortest path (BFS, ordering relation) from the
// INITIAL partition to target.
func (g *PartitionGraph) pathFromInitial(rel string, target PartitionID) (Counterexample, bool) {
	return g.bfsPath(rel, g.initial, target)
}

func (g *PartitionGraph) bfsPath(rel string, from, to PartitionID) (Counterexample, bool) {
	if from == to {
		return Counterexample{from}, true
	}
	prev := map[PartitionID]PartitionID{from: from}
	queue := []PartitionID{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.Outgoing(g.partitions[cur], rel) {
			if _, ok := prev[next]; ok {
				continue
			}
			prev[next] = cur
			if next == to {
				return reconstructPath(prev, from, to), true
			}
			queue = append(queue, next)
		}
	}
	return nil, false
}

func reconstructPath(prev map[PartitionID]PartitionID, from, to PartitionID) Counterexample {
	var rev Counterexample
	for cur := to; ; {
		rev = append(rev, cur)
		if cur == from {
			break
		}
		cur = prev[cur]
	}
	out := make(Counterexample, len(rev))
	for i, id := range rev {
		out[len(rev)-1-i] = id
	}
	return out
}

// pathAvoiding does a DFS from `from` (inclusive) to `to` (inclusive) via
// rel, never stepping into an intermediate partition whose type is in
// avoid. from and to themselves are never excluded by avoid.
func (g *PartitionGraph) pathAvoiding(rel string, from, to PartitionID, avoid map[model.EventType]bool) (Counterexample, bool) {
	visited := map[PartitionID]bool{from: true}
	var path Counterexample
	var dfs func(cur PartitionID) bool
	dfs = func(cur PartitionID) bool {
		path = append(path, cur)
		if cur == to {
			return true
		}
		for _, next := range g.Outgoing(g.partitions[cur], rel) {
			if visited[next] {
				continue
			}
			if next != to && avoid[g.partitions[next].typ] {
				continue
			}
			visited[next] = true
			if dfs(next) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}
	if dfs(from) {
		return path, true
	}
	return nil, false
}

// pathViaType does a DFS from `from` to `to` via rel that must pass through
// at least one partition of type want (from and to themselves count).
//
// A node can be reached two meaningfully different ways: before want has
// been seen, or after. Visiting it with sawWant=false must not block a
// later visit with sawWant=true, or some real NFby counterexamples go
// undetected, so the visited set is keyed on (node, sawWant), not just node.
type viaTypeState struct {
	node    PartitionID
	sawWant bool
}

func (g *PartitionGraph) pathViaType(rel string, from, to PartitionID, want model.EventType) (Counterexample, bool) {
	startSaw := g.partitions[from].typ == want
	visited := map[viaTypeState]bool{{from, startSaw}: true}
	var path Counterexample
	var dfs func(cur PartitionID, sawWant bool) bool
	dfs = func(cur PartitionID, sawWant bool) bool {
		path = append(path, cur)
		if cur == to && sawWant {
			return true
		}
		for _, next := range g.Outgoing(g.partitions[cur], rel) {
			nextSaw := sawWant || g.partitions[next].typ == want
			state := viaTypeState{next, nextSaw}
			if visited[state] {
				continue
			}
			visited[state] = true
			if dfs(next, nextSaw) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}
	if dfs(from, startSaw) {
		return path, true
	}
	return nil, false
}

// firstTypeAfterAvoiding does a DFS from `from` (exclusive) for the first
// reachable partition of type want, failing any branch that passes through
// a partition of type avoid before reaching it. from's own type is not
// re-matched as the target.
func (g *PartitionGraph) firstTypeAfterAvoiding(rel string, from PartitionID, want, avoid model.EventType) (Counterexample, bool) {
	visited := map[PartitionID]bool{from: true}
	var path Counterexample
	var dfs func(cur PartitionID) bool
	dfs = func(cur PartitionID) bool {
		path = append(path, cur)
		if cur != from && g.partitions[cur].typ == want {
			return true
		}
		for _, next := range g.Outgoing(g.partitions[cur], rel) {
			if visited[next] {
				continue
			}
			if g.partitions[next].typ == avoid {
				continue
			}
			visited[next] = true
			if dfs(next) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}
	if dfs(from) {
		return path, true
	}
	return nil, false
}
