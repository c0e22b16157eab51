// Package tracegraph implements the event-node arena, the trace/trace-graph
// data model, and the relation-path walker: a DAG or
// chain of event nodes with labeled, relation-tagged transitions and a
// linear-pass walker that counts occurrence, followed-by, precedes, and
// interrupted-by statistics along one relation.
//
// Nodes are arena-allocated and referenced by a stable NodeID rather than by
// pointer, which keeps cyclic trace graphs (manually constructed fixtures)
// representable without breaking equality or memoization, per the design
// note on cyclic graphs.
package tracegraph

import (
	"sort"

	"github.com/logminer/logminer/internal/model"
)

// NodeID stably identifies an EventNode within one TraceGraph's arena.
type NodeID int32

// DefaultRelation is the default ordering relation ("t" for time).
const DefaultRelation = "t"

// RelationSet is the set of relation tags carried by a single transition.
// Cardinality is always small (a handful of named relations), so a sorted
// slice is cheaper and just as deterministic as a bitmap.
type RelationSet struct {
	tags []string
}

// NewRelationSet returns a RelationSet containing tags.
func NewRelationSet(tags ...string) RelationSet {
	var rs RelationSet
	for _, t := range tags {
		rs.Add(t)
	}
	return rs
}

// Add inserts tag into the set if not already present, keeping tags sorted.
func (r *RelationSet) Add(tag string) {
	for _, t := range r.tags {
		if t == tag {
			return
		}
	}
	r.tags = append(r.tags, tag)
	sort.Strings(r.tags)
}

// Has reports whether tag is a member of the set (an "intersecting" test).
func (r RelationSet) Has(tag string) bool {
	for _, t := range r.tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Exact reports whether the set is exactly {tags} (an "exact relation"
// test as used by the relation-path well-formedness checks).
func (r RelationSet) Exact(tags ...string) bool {
	if len(r.tags) != len(tags) {
		return false
	}
	want := NewRelationSet(tags...)
	for i, t := range r.tags {
		if t != want.tags[i] {
			return false
		}
	}
	return true
}

// Tags returns the sorted relation tags.
func (r RelationSet) Tags() []string { return r.tags }

// Transition is an edge from one EventNode to another, tagged with the set
// of relations it participates in.
type Transition struct {
	Target NodeID
	Rel    RelationSet
}

// Node is an occurrence of an Event inside some trace.
type Node struct {
	ID    NodeID
	Event model.Event
	Out   []Transition
}

// TransitionsWithRelation returns every outgoing transition whose relation
// set contains rel (an "intersecting" match).
func (n *Node) TransitionsWithRelation(rel string) []Transition {
	var out []Transition
	for _, t := range n.Out {
		if t.Rel.Has(rel) {
			out = append(out, t)
		}
	}
	return out
}

// TransitionsExactRelation returns every outgoing transition whose relation
// set is exactly {tags}.
func (n *Node) TransitionsExactRelation(tags ...string) []Transition {
	var out []Transition
	for _, t := range n.Out {
		if t.Rel.Exact(tags...) {
			out = append(out, t)
		}
	}
	return out
}

// arena is the stable-identifier node store shared by a TraceGraph.
type arena struct {
	nodes []Node
}

func (a *arena) newNode(e model.Event) NodeID {
	id := NodeID(len(a.nodes))
	a.nodes = append(a.nodes, Node{ID: id, Event: e})
	return id
}

func (a *arena) node(id NodeID) *Node { return &a.nodes[id] }

func (a *arena) addTransition(from, to NodeID, rel string) {
	n := &a.nodes[from]
	for i := range n.Out {
		if n.Out[i].Target == to {
			n.Out[i].Rel.Add(rel)
			return
		}
	}
	n.Out = append(n.Out, Transition{Target: to, Rel: NewRelationSet(rel)})
}
