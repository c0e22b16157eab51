// Package invariant mines temporal invariants over event-type pairs from a
// trace graph: AlwaysFollowedBy, AlwaysPrecedes, NeverFollowedBy,
// InterruptedBy, and the partial-order NeverConcurrent variant.
package invariant

import (
	"fmt"

	"github.com/logminer/logminer/internal/model"
)

// Kind identifies the shape of a temporal invariant.
type Kind int

const (
	// AFby: every occurrence of Left is eventually followed by Right.
	AFby Kind = iota
	// AP: every occurrence of Right is preceded by Left.
	AP
	// NFby: no occurrence of Left is ever followed by Right.
	NFby
	// IntrBy: Right appears between every consecutive pair of Left
	// occurrences.
	IntrBy
	// NeverConcurrent: Left and Right are never vector-clock-incomparable
	// in any trace (partial-order inputs only).
	NeverConcurrent
)

// String renders the kind the way the invariant file format expects.
func (k Kind) String() string {
	switch k {
	case AFby:
		return "AFby"
	case AP:
		return "AP"
	case NFby:
		return "NFby"
	case IntrBy:
		return "IntrBy"
	case NeverConcurrent:
		return "NeverConcurrent"
	default:
		return "?"
	}
}

// Invariant is a triple (Left, Right, Kind) plus an optional positive
// support count. Equality ignores the support count. INITIAL may appear
// only on the left of AFby ("eventually x"); TERMINAL may appear only on
// the right.
type Invariant struct {
	Left    model.EventType
	Right   model.EventType
	Kind    Kind
	Support int // 0 means "not requested / not computed"
}

// Equal reports structural equality, ignoring Support.
func (i Invariant) Equal(o Invariant) bool {
	return i.Left == o.Left && i.Right == o.Right && i.Kind == o.Kind
}

// String renders the invariant as "<left> <kind> <right>", optionally
// suffixed with " [support=N]".
func (i Invariant) String() string {
	if i.Support > 0 {
		return fmt.Sprintf("%s %s %s [support=%d]", i.Left, i.Kind, i.Right, i.Support)
	}
	return fmt.Sprintf("%s %s %s", i.Left, i.Kind, i.Right)
}

// Set is an ordered, deduplicated collection of invariants.
type Set struct {
	items []Invariant
}

// NewSet returns an empty invariant set.
func NewSet() *Set { return &Set{} }

// Add inserts inv if no structurally equal invariant is already present.
func (s *Set) Add(inv Invariant) {
	for _, x := range s.items {
		if x.Equal(inv) {
			return
		}
	}
	s.items = append(s.items, inv)
}

// AddAll merges every invariant of o into s.
func (s *Set) AddAll(o *Set) {
	for _, inv := range o.items {
		s.Add(inv)
	}
}

// Items returns the invariants in the order they were added.
func (s *Set) Items() []Invariant { return s.items }

// Len returns the number of invariants.
func (s *Set) Len() int { return len(s.items) }

// Remove deletes every invariant structurally equal to inv.
func (s *Set) Remove(inv Invariant) {
	out := s.items[:0]
	for _, x := range s.items {
		if !x.Equal(inv) {
			out = append(out, x)
		}
	}
	s.items = out
}

// Sorted returns a copy of the invariants ordered by kind, then left label,
// then right label, for deterministic invariant-file ordering.
func (s *Set) Sorted() []Invariant {
	out := make([]Invariant, len(s.items))
	copy(out, s.items)
	sortInvariants(out)
	return out
}

func sortInvariants(inv []Invariant) {
	less := func(i, j int) bool {
		a, b := inv[i], inv[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Left != b.Left {
			return a.Left.Less(b.Left)
		}
		return a.Right.Less(b.Right)
	}
	// Small N; insertion sort keeps this dependency-free and stable.
	for i := 1; i < len(inv); i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			inv[j], inv[j-1] = inv[j-1], inv[j]
		}
	}
}
