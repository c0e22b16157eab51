// Package bitset provides event-type-indexed and node-indexed set
// operations backed by github.com/RoaringBitmap/roaring, a compressed
// bitmap library well suited to fast set algebra over integer identifiers.
// EventType and NodeID values are interned to dense uint32 ids through a
// Table so that seen-sets, interrupt candidate sets, and k-tails
// neighbor-signature checks can use bitmap intersection instead of map
// allocation.
package bitset

import (
	"sort"

	"github.com/RoaringBitmap/roaring"

	"github.com/logminer/logminer/internal/model"
)

// Table interns EventTypes to stable, dense uint32 identifiers. A Table is
// shared by every RelationPath and Miner operating over one TraceGraph so
// that bitmaps produced by different paths can be intersected directly.
type Table struct {
	ids   map[model.EventType]uint32
	types []model.EventType
}

// NewTable returns an empty interning table.
func NewTable() *Table {
	return &Table{ids: make(map[model.EventType]uint32)}
}

// Intern returns the id for t, assigning a new one on first sight.
func (tb *Table) Intern(t model.EventType) uint32 {
	if id, ok := tb.ids[t]; ok {
		return id
	}
	id := uint32(len(tb.types))
	tb.ids[t] = id
	tb.types = append(tb.types, t)
	return id
}

// ID returns the id for t and whether it has been interned.
func (tb *Table) ID(t model.EventType) (uint32, bool) {
	id, ok := tb.ids[t]
	return id, ok
}

// Type returns the EventType for id.
func (tb *Table) Type(id uint32) model.EventType { return tb.types[id] }

// Set is an insertion-agnostic set of interned ids.
type Set struct {
	bm *roaring.Bitmap
}

// NewSet returns an empty set.
func NewSet() *Set { return &Set{bm: roaring.New()} }

// Add inserts id into the set.
func (s *Set) Add(id uint32) { s.bm.Add(id) }

// Has reports whether id is a member.
func (s *Set) Has(id uint32) bool { return s.bm.Contains(id) }

// Len returns the cardinality of the set.
func (s *Set) Len() int { return int(s.bm.GetCardinality()) }

// Clone returns an independent copy of s.
func (s *Set) Clone() *Set { return &Set{bm: s.bm.Clone()} }

// IntersectWith mutates s to be the intersection of s and o.
func (s *Set) IntersectWith(o *Set) { s.bm.And(o.bm) }

// UnionWith mutates s to be the union of s and o.
func (s *Set) UnionWith(o *Set) { s.bm.Or(o.bm) }

// Equals reports whether s and o contain the same ids.
func (s *Set) Equals(o *Set) bool { return s.bm.Equals(o.bm) }

// ToSlice returns the sorted ids in the set.
func (s *Set) ToSlice() []uint32 { return s.bm.ToArray() }

// Types returns the event types in the set, resolved through tb and sorted
// by EventType.Less.
func (s *Set) Types(tb *Table) []model.EventType {
	ids := s.ToSlice()
	out := make([]model.EventType, 0, len(ids))
	for _, id := range ids {
		out = append(out, tb.Type(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
