package partgraph

import (
	"fmt"
	"io"
	"sort"
)

// NodeRow is one exported partition-graph node: (nodeId, eventType,
// isInitial, isTerminal), the row shape used by GraphExportFormatter's
// nodeToString.
type NodeRow struct {
	ID         PartitionID
	EventType  string
	IsInitial  bool
	IsTerminal bool
}

// EdgeRow is one exported partition-graph edge: (src, dst, relation,
// frequency), the row shape used by GraphExportFormatter's
// edgeToStringWithProb.
type EdgeRow struct {
	Src, Dst  PartitionID
	Relation  string
	Frequency int
}

// Rows returns the current partition graph as node and edge rows, in
// deterministic order (node id ascending, then edge relation then dst).
func (g *PartitionGraph) Rows() ([]NodeRow, []EdgeRow) {
	nodes := make([]NodeRow, 0, len(g.order))
	for _, id := range g.order {
		p := g.partitions[id]
		nodes = append(nodes, NodeRow{
			ID:         id,
			EventType:  p.typ.String(),
			IsInitial:  id == g.initial,
			IsTerminal: id == g.terminal,
		})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	var edges []EdgeRow
	for _, id := range g.order {
		p := g.partitions[id]
		for _, rel := range g.Relations() {
			for _, dst := range g.Outgoing(p, rel) {
				freq := 0
				for _, n := range p.nodes {
					freq += len(g.trace.Node(n).TransitionsExactRelation(rel))
				}
				edges = append(edges, EdgeRow{Src: id, Dst: dst, Relation: rel, Frequency: freq})
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Src != edges[j].Src {
			return edges[i].Src < edges[j].Src
		}
		if edges[i].Relation != edges[j].Relation {
			return edges[i].Relation < edges[j].Relation
		}
		return edges[i].Dst < edges[j].Dst
	})
	return nodes, edges
}

// WriteDOT renders the partition graph as a Graphviz dot file, grounded on
// the node/edge string shapes of GraphExportFormatter's DOT subclass.
func WriteDOT(w io.Writer, g *PartitionGraph) error {
	nodes, edges := g.Rows()
	if _, err := fmt.Fprintln(w, "digraph G {"); err != nil {
		return err
	}
	for _, n := range nodes {
		shape := "box"
		if n.IsInitial || n.IsTerminal {
			shape = "circle"
		}
		if _, err := fmt.Fprintf(w, "  %d [label=%q shape=%s];\n", n.ID, n.EventType, shape); err != nil {
			return err
		}
	}
	for _, e := range edges {
		if _, err := fmt.Fprintf(w, "  %d -> %d [label=%q];\n", e.Src, e.Dst, fmt.Sprintf("%s:%d", e.Relation, e.Frequency)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}
