package tracegraph

import (
	"strconv"

	"github.com/logminer/logminer/internal/bitset"
	"github.com/logminer/logminer/internal/model"
)

// Shape distinguishes a totally-ordered (Chains) trace graph from a
// partially-ordered (DAGs) one.
type Shape int

const (
	// Chains holds traces that are linear chains (totally ordered traces).
	Chains Shape = iota
	// DAGs holds traces whose events are only partially ordered.
	DAGs
)

// Trace is a connected subgraph rooted at the shared INITIAL node and sunk
// at the shared TERMINAL node, holding the event nodes of one input
// partition in discovery order.
type Trace struct {
	Initial  NodeID
	Terminal NodeID
	// Nodes holds this trace's non-sentinel event nodes. For Chains graphs
	// this is the total order; for DAGs graphs it is a topological order
	// consistent with the vector-clock partial order.
	Nodes []NodeID
}

// TraceGraph is the disjoint union of traces plus a single shared INITIAL
// and TERMINAL sentinel that every trace points from/to.
type TraceGraph struct {
	Shape    Shape
	Initial  NodeID
	Terminal NodeID
	Traces   []Trace

	arena     *arena
	relations []string // declared relations, ordering relation first
	ordering  string
	Types     *bitset.Table

	// Clocks holds the vector clock observed for each node of a DAGs-shaped
	// graph, keyed by node id. It is nil for Chains-shaped graphs and is
	// consulted only by the partial-order NeverConcurrent miner.
	Clocks map[NodeID]model.VectorClock
}

// Ordering returns the ordering relation used to construct g (default "t").
func (g *TraceGraph) Ordering() string { return g.ordering }

// Relations returns the declared relations of g, ordering relation first,
// in declaration order.
func (g *TraceGraph) Relations() []string {
	out := make([]string, len(g.relations))
	copy(out, g.relations)
	return out
}

// Node returns the node for id.
func (g *TraceGraph) Node(id NodeID) *Node { return g.arena.node(id) }

// NumNodes returns the total number of arena-allocated nodes, including the
// two sentinels.
func (g *TraceGraph) NumNodes() int { return len(g.arena.nodes) }

func (g *TraceGraph) declareRelation(r string) {
	for _, x := range g.relations {
		if x == r {
			return
		}
	}
	g.relations = append(g.relations, r)
}

func (g *TraceGraph) internAll(evts []model.Event) {
	for _, e := range evts {
		g.Types.Intern(e.Type)
	}
}

// SingleRelationPaths returns the connected components of trace t restricted
// to relation r, each as a RelationPath. The ordering relation always
// produces exactly one component spanning the whole trace; other relations
// may be sparser and yield several.
func (t *Trace) SingleRelationPaths(g *TraceGraph, r string) ([]*RelationPath, error) {
	assigned := make(map[NodeID]bool, len(t.Nodes))
	var paths []*RelationPath

	inComponent := func(id NodeID) bool {
		return len(g.Node(id).TransitionsWithRelation(r)) > 0 || hasIncomingRelation(g, t, id, r)
	}

	for _, id := range t.Nodes {
		if assigned[id] {
			continue
		}
		if !inComponent(id) {
			continue
		}
		first := id
		for {
			pred, ok := incomingRelationNode(g, t, first, r)
			if !ok {
				break
			}
			first = pred
		}
		last := first
		assigned[first] = true
		cur := first
		for {
			outs := g.Node(cur).TransitionsExactRelation(r)
			if len(outs) == 0 {
				outs = g.Node(cur).TransitionsWithRelation(r)
			}
			if len(outs) == 0 {
				break
			}
			next := outs[0].Target
			if next == g.Terminal {
				break
			}
			assigned[next] = true
			last = next
			cur = next
		}

		initialConnected := false
		for _, tr := range g.Node(g.Initial).Out {
			if tr.Target == first && tr.Rel.Has(r) {
				initialConnected = true
				break
			}
		}

		paths = append(paths, newRelationPath(g, first, last, r, g.ordering, !initialConnected))
	}

	if r == g.ordering && len(paths) != 1 {
		return nil, &WellFormednessError{Msg: "multiple relation subgraphs for the ordering relation"}
	}
	return paths, nil
}

func hasIncomingRelation(g *TraceGraph, t *Trace, id NodeID, r string) bool {
	_, ok := incomingRelationNode(g, t, id, r)
	return ok
}

// incomingRelationNode does a linear scan for the unique predecessor of id
// along relation r within t. Trace sizes in this system are small enough
// that this is preferable to maintaining reverse adjacency in the arena.
func incomingRelationNode(g *TraceGraph, t *Trace, id NodeID, r string) (NodeID, bool) {
	candidates := t.Nodes
	for _, cand := range candidates {
		for _, tr := range g.Node(cand).Out {
			if tr.Target == id && tr.Rel.Has(r) {
				return cand, true
			}
		}
	}
	return 0, false
}

// BiRelationalPath returns a single relation path spanning the whole
// ordering-relation span of t, preferring r-transitions but falling back to
// the ordering relation, per the bi-relational walking supplement used when
// multipleRelations is enabled and r is not the ordering relation.
func (t *Trace) BiRelationalPath(g *TraceGraph, r string) *RelationPath {
	if len(t.Nodes) == 0 {
		return newRelationPath(g, g.Terminal, g.Terminal, r, g.ordering, true)
	}
	first := t.Nodes[0]
	last := t.Nodes[len(t.Nodes)-1]

	initialConnected := false
	for _, tr := range g.Node(g.Initial).Out {
		if tr.Target == first && tr.Rel.Has(r) {
			initialConnected = true
			break
		}
	}
	return newRelationPath(g, first, last, r, g.ordering, !initialConnected)
}

// WellFormednessError reports a violation of the trace-graph well-formedness
// invariants: a relation-path node with multiple r-transitions, a missing
// ordering transition, or an inconsistency between the two walker
// termination conditions.
type WellFormednessError struct {
	Node NodeID
	Msg  string
}

func (e *WellFormednessError) Error() string {
	if e.Node == 0 {
		return "well-formedness violation: " + e.Msg
	}
	return "well-formedness violation at node " + strconv.Itoa(int(e.Node)) + ": " + e.Msg
}
