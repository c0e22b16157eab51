package partgraph

import (
	"fmt"

	"github.com/logminer/logminer/internal/model"
	"github.com/logminer/logminer/pkg/tracegraph"
)

// Operation is a reversible mutation of a PartitionGraph: a successful
// Apply returns the inverse Operation; a failed Apply leaves the graph
// exactly as it was, with no partial mutation.
type Operation interface {
	Apply(g *PartitionGraph) (Operation, error)
}

// PartitionMultiSplit replaces Target with len(Groups) new partitions, one
// per group, where Groups is a partition (in the set sense) of Target's
// event-node set into >=2 non-empty groups.
type PartitionMultiSplit struct {
	Target PartitionID
	Groups [][]tracegraph.NodeID
}

// Apply implements Operation.
func (op *PartitionMultiSplit) Apply(g *PartitionGraph) (Operation, error) {
	p := g.partitions[op.Target]
	if p == nil {
		return nil, fmt.Errorf("partgraph: split of unknown partition %d", op.Target)
	}
	if p.IsSentinel() {
		return nil, fmt.Errorf("partgraph: cannot split sentinel partition %d", op.Target)
	}
	if len(op.Groups) < 2 {
		return nil, fmt.Errorf("partgraph: split of partition %d needs at least 2 groups, got %d", op.Target, len(op.Groups))
	}

	want := make(map[tracegraph.NodeID]bool, p.Len())
	for _, n := range p.nodes {
		want[n] = true
	}
	seen := make(map[tracegraph.NodeID]bool, p.Len())
	for gi, grp := range op.Groups {
		if len(grp) == 0 {
			return nil, fmt.Errorf("partgraph: split group %d of partition %d is empty", gi, op.Target)
		}
		for _, n := range grp {
			if !want[n] {
				return nil, fmt.Errorf("partgraph: split group %d of partition %d references node %d not in the partition", gi, op.Target, n)
			}
			if seen[n] {
				return nil, fmt.Errorf("partgraph: split groups of partition %d overlap on node %d", op.Target, n)
			}
			seen[n] = true
		}
	}
	if len(seen) != len(want) {
		return nil, fmt.Errorf("partgraph: split groups of partition %d do not cover the full node set", op.Target)
	}

	newIDs := make([]PartitionID, len(op.Groups))
	for i, grp := range op.Groups {
		newIDs[i] = g.addPartition(p.typ, false, grp)
	}
	g.removePartition(op.Target)
	g.invalidateAll()

	inverse := &PartitionMergeAll{Targets: newIDs, typ: p.typ, groups: op.Groups}
	return inverse, nil
}

// PartitionMerge unions two partitions of identical event type into one,
// coalescing induced edges. Neither may be a sentinel partition.
type PartitionMerge struct {
	A, B PartitionID
}

// Apply implements Operation.
func (op *PartitionMerge) Apply(g *PartitionGraph) (Operation, error) {
	pa := g.partitions[op.A]
	pb := g.partitions[op.B]
	if pa == nil || pb == nil {
		return nil, fmt.Errorf("partgraph: merge of unknown partition(s) %d, %d", op.A, op.B)
	}
	if pa.IsSentinel() || pb.IsSentinel() {
		return nil, fmt.Errorf("partgraph: cannot merge sentinel partitions")
	}
	if pa.typ != pb.typ {
		return nil, fmt.Errorf("partgraph: cannot merge partitions of different event types %v, %v", pa.typ, pb.typ)
	}
	if op.A == op.B {
		return nil, fmt.Errorf("partgraph: cannot merge a partition with itself")
	}

	groupA := pa.Nodes()
	groupB := pb.Nodes()
	merged := append(append([]tracegraph.NodeID{}, groupA...), groupB...)

	newID := g.addPartition(pa.typ, false, merged)
	g.removePartition(op.A)
	g.removePartition(op.B)
	g.invalidateAll()

	inverse := &PartitionMultiSplit{
		Target: newID,
		Groups: [][]tracegraph.NodeID{groupA, groupB},
	}
	return inverse, nil
}

// PartitionMergeAll is the inverse of an n-ary PartitionMultiSplit (n >= 2):
// it merges every partition in Targets back into a single partition with
// the original grouping, so that re-splitting reconstructs the prior state
// exactly rather than only pairwise. A fresh partition id is always
// allocated; reversibility is up to isomorphism, not identity.
type PartitionMergeAll struct {
	Targets []PartitionID
	typ     model.EventType
	groups  [][]tracegraph.NodeID
}

// Apply implements Operation.
func (op *PartitionMergeAll) Apply(g *PartitionGraph) (Operation, error) {
	if len(op.Targets) < 2 {
		return nil, fmt.Errorf("partgraph: merge-all needs at least 2 partitions, got %d", len(op.Targets))
	}
	var merged []tracegraph.NodeID
	for _, id := range op.Targets {
		p := g.partitions[id]
		if p == nil {
			return nil, fmt.Errorf("partgraph: merge-all of unknown partition %d", id)
		}
		if p.IsSentinel() {
			return nil, fmt.Errorf("partgraph: cannot merge sentinel partition %d", id)
		}
		if p.typ != op.typ {
			return nil, fmt.Errorf("partgraph: merge-all partition %d has type %v, want %v", id, p.typ, op.typ)
		}
		merged = append(merged, p.Nodes()...)
	}

	newID := g.addPartition(op.typ, false, merged)
	for _, id := range op.Targets {
		g.removePartition(id)
	}
	g.invalidateAll()

	inverse := &PartitionMultiSplit{Target: newID, Groups: op.groups}
	return inverse, nil
}
