// Package ktails implements bounded-depth behavioral equivalence on
// event nodes ("k-tails") and the partition graph it seeds (spec
// component F), grounded on KTailsTests.java's recursive equivalence and
// the generalized-k-tails literature it tests against.
package ktails

import (
	"sort"

	"github.com/logminer/logminer/pkg/tracegraph"
)

type cacheKey struct {
	a, b tracegraph.NodeID
	k    int
}

// Matcher evaluates kEquals over a single TraceGraph, memoizing results
// within the lifetime of the Matcher (a single query batch).
type Matcher struct {
	g     *tracegraph.TraceGraph
	cache map[cacheKey]bool
}

// NewMatcher returns a Matcher for g with a fresh memoization cache.
func NewMatcher(g *tracegraph.TraceGraph) *Matcher {
	return &Matcher{g: g, cache: make(map[cacheKey]bool)}
}

// KEquals reports whether a and b are k-tails equivalent: same event type,
// and (for k >= 1) a bijection exists between a's and b's outgoing
// neighbors, matched on identical relation sets, such that every paired
// neighbor is (k-1)-equivalent. Negative k is treated as 0. The relation
// is symmetric and reflexive.
func (m *Matcher) KEquals(a, b tracegraph.NodeID, k int) bool {
	if k < 0 {
		k = 0
	}
	key := canonicalKey(a, b, k)
	if v, ok := m.cache[key]; ok {
		return v
	}
	// Guard recursive self-reference (a cyclic trace graph can make a node
	// transitively depend on its own equivalence) by seeding an optimistic
	// true before recursing; k strictly decreases on every recursive call,
	// so this can only be consulted again within the same bounded descent.
	m.cache[key] = true
	res := m.compute(a, b, k)
	m.cache[key] = res
	return res
}

func canonicalKey(a, b tracegraph.NodeID, k int) cacheKey {
	if a > b {
		a, b = b, a
	}
	return cacheKey{a, b, k}
}

func (m *Matcher) compute(a, b tracegraph.NodeID, k int) bool {
	na, nb := m.g.Node(a), m.g.Node(b)
	if na.Event.Type != nb.Event.Type {
		return false
	}
	if a == b {
		return true
	}
	if k == 0 {
		return true
	}
	if len(na.Out) != len(nb.Out) {
		return false
	}
	if len(na.Out) == 0 {
		return true
	}
	return m.bijectionExists(na.Out, nb.Out, k-1)
}

// bijectionExists backtracks over a deterministic (type, then node id)
// ordering of outA to find a matching partner in outB for every entry,
// requiring identical relation tags and (k)-equivalent targets.
func (m *Matcher) bijectionExists(outA, outB []tracegraph.Transition, k int) bool {
	n := len(outA)
	orderA := orderTransitions(m.g, outA)
	orderB := orderTransitions(m.g, outB)
	used := make([]bool, n)

	var try func(i int) bool
	try = func(i int) bool {
		if i == n {
			return true
		}
		ta := outA[orderA[i]]
		for _, jb := range orderB {
			if used[jb] {
				continue
			}
			tb := outB[jb]
			if !sameTags(ta.Rel.Tags(), tb.Rel.Tags()) {
				continue
			}
			if !m.KEquals(ta.Target, tb.Target, k) {
				continue
			}
			used[jb] = true
			if try(i + 1) {
				return true
			}
			used[jb] = false
		}
		return false
	}
	return try(0)
}

func sameTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// orderTransitions returns indices into ts sorted by (target event type,
// target node id), a stable, deterministic tie-break order.
func orderTransitions(g *tracegraph.TraceGraph, ts []tracegraph.Transition) []int {
	idx := make([]int, len(ts))
	for i := range ts {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool {
		ti, tj := g.Node(ts[idx[i]].Target), g.Node(ts[idx[j]].Target)
		if ti.Event.Type != tj.Event.Type {
			return ti.Event.Type.Less(tj.Event.Type)
		}
		return ts[idx[i]].Target < ts[idx[j]].Target
	})
	return idx
}

