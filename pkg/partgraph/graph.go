package partgraph

import (
	"sort"

	"github.com/logminer/logminer/internal/model"
	"github.com/logminer/logminer/pkg/invariant"
	"github.com/logminer/logminer/pkg/tracegraph"
)

// PartitionGraph is the quotient graph over a TraceGraph's event nodes: its
// nodes are Partitions, and an edge P --r--> Q is induced whenever some node
// of P has an r-transition to some node of Q.
type PartitionGraph struct {
	trace      *tracegraph.TraceGraph
	invariants *invariant.Set

	partitions map[PartitionID]*Partition
	order      []PartitionID // partition creation order, for deterministic iteration
	owner      map[tracegraph.NodeID]PartitionID

	initial, terminal PartitionID
	nextID            PartitionID
}

// InitializeFrom builds the coarsest partition graph over tg: one partition
// per event-type cluster, plus singleton partitions for INITIAL and
// TERMINAL. minedInvariants is retained as the invariant set the graph must
// remain consistent with.
func InitializeFrom(tg *tracegraph.TraceGraph, minedInvariants *invariant.Set) *PartitionGraph {
	g := &PartitionGraph{
		trace:      tg,
		invariants: minedInvariants,
		partitions: make(map[PartitionID]*Partition),
		owner:      make(map[tracegraph.NodeID]PartitionID),
	}

	byType := make(map[model.EventType][]tracegraph.NodeID)
	var order []model.EventType
	seen := make(map[model.EventType]bool)
	for id := tracegraph.NodeID(0); int(id) < tg.NumNodes(); id++ {
		n := tg.Node(id)
		if n.Event.Type.IsSentinel() {
			continue
		}
		if !seen[n.Event.Type] {
			seen[n.Event.Type] = true
			order = append(order, n.Event.Type)
		}
		byType[n.Event.Type] = append(byType[n.Event.Type], id)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].Less(order[j]) })

	g.initial = g.addPartition(model.Initial, true, []tracegraph.NodeID{tg.Initial})
	for _, t := range order {
		g.addPartition(t, false, byType[t])
	}
	g.terminal = g.addPartition(model.Terminal, true, []tracegraph.NodeID{tg.Terminal})

	return g
}

// InitializeFromGroups builds a partition graph from an explicit grouping
// of tg's non-sentinel event nodes (one partition per group, each group
// homogeneous in event type), plus the usual INITIAL/TERMINAL singletons.
// It is used by performKTails to seed a partition graph from k-tails
// equivalence classes rather than the coarsest per-type grouping.
func InitializeFromGroups(tg *tracegraph.TraceGraph, minedInvariants *invariant.Set, groups [][]tracegraph.NodeID) *PartitionGraph {
	g := &PartitionGraph{
		trace:      tg,
		invariants: minedInvariants,
		partitions: make(map[PartitionID]*Partition),
		owner:      make(map[tracegraph.NodeID]PartitionID),
	}

	g.initial = g.addPartition(model.Initial, true, []tracegraph.NodeID{tg.Initial})
	for _, grp := range groups {
		if len(grp) == 0 {
			continue
		}
		typ := tg.Node(grp[0]).Event.Type
		g.addPartition(typ, false, grp)
	}
	g.terminal = g.addPartition(model.Terminal, true, []tracegraph.NodeID{tg.Terminal})

	return g
}

func (g *PartitionGraph) addPartition(typ model.EventType, sentinel bool, nodes []tracegraph.NodeID) PartitionID {
	id := g.nextID
	g.nextID++
	p := newPartition(id, typ, sentinel, nodes)
	g.partitions[id] = p
	g.order = append(g.order, id)
	for _, n := range nodes {
		g.owner[n] = id
	}
	return id
}

func (g *PartitionGraph) removePartition(id PartitionID) {
	p := g.partitions[id]
	if p == nil {
		return
	}
	for _, n := range p.nodes {
		if g.owner[n] == id {
			delete(g.owner, n)
		}
	}
	delete(g.partitions, id)
	for i, x := range g.order {
		if x == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
}

// Nodes returns the current partitions, in creation order.
func (g *PartitionGraph) Nodes() []*Partition {
	out := make([]*Partition, len(g.order))
	for i, id := range g.order {
		out[i] = g.partitions[id]
	}
	return out
}

// Partition returns the partition with the given id, or nil.
func (g *PartitionGraph) Partition(id PartitionID) *Partition { return g.partitions[id] }

// TraceGraph returns the immutable originating trace graph.
func (g *PartitionGraph) TraceGraph() *tracegraph.TraceGraph { return g.trace }

// Relations returns the declared relations of the originating trace graph.
func (g *PartitionGraph) Relations() []string { return g.trace.Relations() }

// Invariants returns the invariant set the graph was initialized with.
func (g *PartitionGraph) Invariants() *invariant.Set { return g.invariants }

// Owner returns the partition currently owning node n.
func (g *PartitionGraph) Owner(n tracegraph.NodeID) PartitionID { return g.owner[n] }

// Initial and Terminal return the sentinel partitions.
func (g *PartitionGraph) Initial() PartitionID  { return g.initial }
func (g *PartitionGraph) Terminal() PartitionID { return g.terminal }

// Outgoing returns the set of partitions with an induced r-transition from
// p, computed lazily and cached on p until the next Apply invalidates it.
func (g *PartitionGraph) Outgoing(p *Partition, rel string) []PartitionID {
	if p.cached {
		if ids, ok := p.outCache[rel]; ok {
			return ids
		}
	} else {
		p.outCache = make(map[string][]PartitionID)
		p.cached = true
	}

	seen := make(map[PartitionID]bool)
	for _, n := range p.nodes {
		for _, t := range g.trace.Node(n).TransitionsWithRelation(rel) {
			seen[g.owner[t.Target]] = true
		}
	}
	var ids []PartitionID
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	p.outCache[rel] = ids
	return ids
}

// Apply runs op against g: on success it returns op's inverse Operation;
// on failure g is left exactly as it was.
func (g *PartitionGraph) Apply(op Operation) (Operation, error) {
	return op.Apply(g)
}

func (g *PartitionGraph) invalidateAll() {
	for _, p := range g.partitions {
		p.cached = false
		p.outCache = nil
	}
}
