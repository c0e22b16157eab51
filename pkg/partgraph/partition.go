// Package partgraph implements the quotient "partition graph" whose nodes
// are sets of event nodes, the reversible Operation protocol that mutates
// it, and counterexample search used by the refinement engine.
package partgraph

import (
	"github.com/logminer/logminer/internal/model"
	"github.com/logminer/logminer/pkg/tracegraph"
)

// PartitionID stably identifies a Partition within one PartitionGraph.
type PartitionID int32

// Partition is a non-empty set of event nodes of identical event type.
type Partition struct {
	id   PartitionID
	typ  model.EventType
	sent bool // true for the singleton INITIAL/TERMINAL partitions

	nodes   []tracegraph.NodeID
	nodeSet map[tracegraph.NodeID]bool

	outCache map[string][]PartitionID
	cached   bool
}

// ID returns the partition's stable identifier.
func (p *Partition) ID() PartitionID { return p.id }

// Type returns the shared event type of every node in the partition.
func (p *Partition) Type() model.EventType { return p.typ }

// IsSentinel reports whether this is the singleton INITIAL or TERMINAL
// partition, which must never be split or merged with another.
func (p *Partition) IsSentinel() bool { return p.sent }

// Nodes returns the event nodes of the partition, in the order they were
// added.
func (p *Partition) Nodes() []tracegraph.NodeID {
	out := make([]tracegraph.NodeID, len(p.nodes))
	copy(out, p.nodes)
	return out
}

// Len returns the number of event nodes in the partition.
func (p *Partition) Len() int { return len(p.nodes) }

// Has reports whether n belongs to the partition.
func (p *Partition) Has(n tracegraph.NodeID) bool { return p.nodeSet[n] }

func newPartition(id PartitionID, typ model.EventType, sentinel bool, nodes []tracegraph.NodeID) *Partition {
	p := &Partition{
		id:      id,
		typ:     typ,
		sent:    sentinel,
		nodeSet: make(map[tracegraph.NodeID]bool, len(nodes)),
	}
	for _, n := range nodes {
		p.nodes = append(p.nodes, n)
		p.nodeSet[n] = true
	}
	return p
}
