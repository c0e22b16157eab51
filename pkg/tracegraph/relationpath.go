package tracegraph

import (
	"github.com/logminer/logminer/internal/bitset"
	"github.com/logminer/logminer/internal/model"
	"github.com/logminer/logminer/internal/ordmap"
)

// RelationPath is a view of a single trace restricted to a primary relation
// r and an ordering relation, holding the first and last non-sentinel
// nodes and memoized count tables. Tables are lazily computed on first
// access and cached for the lifetime of the RelationPath.
type RelationPath struct {
	graph    *TraceGraph
	first    NodeID
	last     NodeID
	relation string
	ordering string

	initialTransitivelyConnected bool

	computed bool
	computeErr error

	seen               *bitset.Set
	eventCounts        *ordmap.Map[model.EventType, int]
	followedByCounts   *ordmap.Map[model.EventType, *ordmap.Map[model.EventType, int]]
	precedesCounts     *ordmap.Map[model.EventType, *ordmap.Map[model.EventType, int]]
	possibleInterrupts *ordmap.Map[model.EventType, *bitset.Set]
}

func newRelationPath(g *TraceGraph, first, last NodeID, relation, ordering string, initialTransitivelyConnected bool) *RelationPath {
	return &RelationPath{
		graph:                         g,
		first:                         first,
		last:                          last,
		relation:                      relation,
		ordering:                      ordering,
		initialTransitivelyConnected: initialTransitivelyConnected,
	}
}

// FirstNode returns the first non-INITIAL node in this relation path.
func (rp *RelationPath) FirstNode() NodeID { return rp.first }

// LastNode returns the final non-TERMINAL node in this relation path.
func (rp *RelationPath) LastNode() NodeID { return rp.last }

// Relation returns the relation this path is over.
func (rp *RelationPath) Relation() string { return rp.relation }

// Seen returns the event types encountered along the path, in a stable
// (interning-table) order.
func (rp *RelationPath) Seen() ([]model.EventType, error) {
	if err := rp.ensure(); err != nil {
		return nil, err
	}
	return rp.seen.Types(rp.graph.Types), nil
}

// EventCounts returns the number of occurrences of each event type along
// the path, keyed in first-encounter order.
func (rp *RelationPath) EventCounts() (*ordmap.Map[model.EventType, int], error) {
	if err := rp.ensure(); err != nil {
		return nil, err
	}
	return rp.eventCounts, nil
}

// FollowedByCounts returns followedByCounts[a][b]: the value of
// eventCounts[a] at the latest instant b was visited.
func (rp *RelationPath) FollowedByCounts() (*ordmap.Map[model.EventType, *ordmap.Map[model.EventType, int]], error) {
	if err := rp.ensure(); err != nil {
		return nil, err
	}
	return rp.followedByCounts, nil
}

// PrecedesCounts returns precedesCounts[a][b]: the number of occurrences of
// b while a was in the seen set.
func (rp *RelationPath) PrecedesCounts() (*ordmap.Map[model.EventType, *ordmap.Map[model.EventType, int]], error) {
	if err := rp.ensure(); err != nil {
		return nil, err
	}
	return rp.precedesCounts, nil
}

// PossibleInterrupts returns, per event type b, the set of types that
// interrupt it: types that appeared strictly between every consecutive pair
// of b-occurrences in this path.
func (rp *RelationPath) PossibleInterrupts() (*ordmap.Map[model.EventType, *bitset.Set], error) {
	if err := rp.ensure(); err != nil {
		return nil, err
	}
	return rp.possibleInterrupts, nil
}

func (rp *RelationPath) ensure() error {
	if rp.computed {
		return rp.computeErr
	}
	rp.computed = true
	rp.computeErr = rp.compute()
	return rp.computeErr
}

// compute performs a single forward pass over the trace. The
// open question about the walker's two disagreeing termination conditions
// (break on reaching the last node vs. break on exhausted transitions) is
// resolved here by treating "current node is the path's last node" and
// "current node has no transition to advance on" as the two legitimate
// ways to stop, and reporting a WellFormednessError the moment they
// disagree: reaching the end of transitions before the last node, or vice
// versa, both indicate a malformed relation subgraph.
func (rp *RelationPath) compute() error {
	g := rp.graph
	types := g.Types

	rp.seen = bitset.NewSet()
	rp.eventCounts = ordmap.New[model.EventType, int]()
	rp.followedByCounts = ordmap.New[model.EventType, *ordmap.Map[model.EventType, int]]()
	rp.precedesCounts = ordmap.New[model.EventType, *ordmap.Map[model.EventType, int]]()
	rp.possibleInterrupts = ordmap.New[model.EventType, *bitset.Set]()

	var history []model.EventType // most-recent-first

	hasImmediateIncoming := !rp.initialTransitivelyConnected
	cur := rp.first

	for {
		node := g.Node(cur)
		ordTrans := node.TransitionsWithRelation(rp.ordering)
		exactRelTrans := node.TransitionsExactRelation(rp.relation)

		if len(ordTrans) != 1 {
			return &WellFormednessError{Node: cur, Msg: "node does not have exactly one outgoing ordering-relation transition"}
		}
		if len(exactRelTrans) > 1 {
			return &WellFormednessError{Node: cur, Msg: "node has more than one outgoing " + rp.relation + " transition"}
		}

		relTrans := node.TransitionsWithRelation(rp.relation)
		hasImmediateOutgoing := len(relTrans) == 1

		if hasImmediateOutgoing || hasImmediateIncoming {
			hasImmediateIncoming = hasImmediateOutgoing
			b := node.Event.Type
			bID := types.Intern(b)

			for _, a := range rp.seen.Types(types) {
				rp.bumpPrecedes(a, b)
			}
			for _, a := range rp.seen.Types(types) {
				rp.setFollowedBy(a, b, rp.eventCounts.GetOr(a, 0))
			}

			if cnt := rp.eventCounts.GetOr(b, 0); cnt > 0 {
				between := typesBetween(history, b, types)
				if existing, ok := rp.possibleInterrupts.Get(b); ok {
					existing.IntersectWith(between)
				} else {
					rp.possibleInterrupts.Set(b, between)
				}
			}

			rp.seen.Add(bID)
			history = append([]model.EventType{b}, history...)
			rp.eventCounts.Set(b, rp.eventCounts.GetOr(b, 0)+1)
		}

		atLast := cur == rp.last

		var next NodeID
		hasNext := false
		if hasImmediateOutgoing {
			next, hasNext = relTrans[0].Target, true
		} else {
			next, hasNext = ordTrans[0].Target, true
		}
		if next == g.Terminal {
			hasNext = false
		}

		switch {
		case atLast && !hasNext:
			return nil
		case atLast && hasNext:
			return &WellFormednessError{Node: cur, Msg: "path reached its last node but a transition remains unconsumed"}
		case !atLast && !hasNext:
			return &WellFormednessError{Node: cur, Msg: "path ran out of transitions before reaching its last node"}
		default:
			cur = next
		}
	}
}

func (rp *RelationPath) bumpPrecedes(a, b model.EventType) {
	row, ok := rp.precedesCounts.Get(a)
	if !ok {
		row = ordmap.New[model.EventType, int]()
		rp.precedesCounts.Set(a, row)
	}
	row.Set(b, row.GetOr(b, 0)+1)
}

func (rp *RelationPath) setFollowedBy(a, b model.EventType, eventCountA int) {
	row, ok := rp.followedByCounts.Get(a)
	if !ok {
		row = ordmap.New[model.EventType, int]()
		rp.followedByCounts.Set(a, row)
	}
	row.Set(b, eventCountA)
}

// typesBetween returns the set of event types in history strictly before
// the most recent prior occurrence of b (history is most-recent-first).
func typesBetween(history []model.EventType, b model.EventType, types *bitset.Table) *bitset.Set {
	out := bitset.NewSet()
	for _, a := range history {
		if a == b {
			break
		}
		out.Add(types.Intern(a))
	}
	return out
}
