package invariant

import (
	"github.com/logminer/logminer/internal/bitset"
	"github.com/logminer/logminer/internal/model"
	"github.com/logminer/logminer/internal/ordmap"
	"github.com/logminer/logminer/pkg/tracegraph"
)

// MineOptions configures a single invariant-mining run, corresponding to
// the subset of the configuration surface the core miner itself
// consumes (the remaining options - supportCountThreshold,
// ignoreInvsOverETypeSet - are post-filters applied by the driver; see
// filter.go).
type MineOptions struct {
	// MultipleRelations enables per-relation independent mining and
	// bi-relational paths for relations other than the ordering relation.
	MultipleRelations bool
	// SupportCount requests that each invariant carry a support count
	// (the left-hand-side event count).
	SupportCount bool
	// IgnoreIntrBy omits InterruptedBy invariants from the mined set.
	IgnoreIntrBy bool
}

// MineAll mines invariants over every relation declared on g (the
// ChainWalkingTOInvMiner equivalent of computeInvariants(g, ...) without an
// explicit relation), merging the per-relation results.
func MineAll(g *tracegraph.TraceGraph, opts MineOptions) (*Set, error) {
	result := NewSet()
	for _, r := range g.Relations() {
		tmp, err := Mine(g, r, opts)
		if err != nil {
			return nil, err
		}
		result.AddAll(tmp)
	}
	return result, nil
}

// Mine mines AFby, AP, NFby and (unless opts.IgnoreIntrBy) IntrBy
// invariants for relation from a linear walk of every trace's relation
// path(s): AFby/NFby/AP are
// derivable from aggregate occurrence, followed-by, and precedes counts;
// IntrBy from the per-path candidate-interrupt sets.
func Mine(g *tracegraph.TraceGraph, relation string, opts MineOptions) (*Set, error) {
	paths, err := relationPathsFor(g, relation, opts.MultipleRelations)
	if err != nil {
		return nil, err
	}

	gEventCnts := ordmap.New[model.EventType, int]()
	gFollowedBy := ordmap.New[model.EventType, *ordmap.Map[model.EventType, int]]()
	gPrecedes := ordmap.New[model.EventType, *ordmap.Map[model.EventType, int]]()
	gInterrupts := ordmap.New[model.EventType, *bitset.Set]()
	var alwaysFollowsInitial *bitset.Set

	for _, rp := range paths {
		seen, err := rp.Seen()
		if err != nil {
			return nil, err
		}
		eventCounts, err := rp.EventCounts()
		if err != nil {
			return nil, err
		}
		followedBy, err := rp.FollowedByCounts()
		if err != nil {
			return nil, err
		}
		precedes, err := rp.PrecedesCounts()
		if err != nil {
			return nil, err
		}
		interrupts, err := rp.PossibleInterrupts()
		if err != nil {
			return nil, err
		}

		eventCounts.Each(func(t model.EventType, c int) {
			gEventCnts.Set(t, gEventCnts.GetOr(t, 0)+c)
		})
		addCounts(followedBy, gFollowedBy)
		addCounts(precedes, gPrecedes)
		intersectInterrupts(interrupts, gInterrupts)

		pathSeen := bitset.NewSet()
		for _, t := range seen {
			pathSeen.Add(g.Types.Intern(t))
		}
		if alwaysFollowsInitial == nil {
			alwaysFollowsInitial = pathSeen
		} else {
			alwaysFollowsInitial.IntersectWith(pathSeen)
		}
	}

	result := extractInvariants(g, gEventCnts, gFollowedBy, gPrecedes, gInterrupts, alwaysFollowsInitial, opts)
	return result, nil
}

// relationPathsFor gathers the relation paths to mine over for relation,
// following the Java driver's branching: a bi-relational path when
// multipleRelations is set and relation differs from the ordering
// relation, otherwise the relation's connected-component paths (which must
// be exactly one when relation is the ordering relation itself).
func relationPathsFor(g *tracegraph.TraceGraph, relation string, multipleRelations bool) ([]*tracegraph.RelationPath, error) {
	var paths []*tracegraph.RelationPath
	for i := range g.Traces {
		t := &g.Traces[i]
		if multipleRelations && relation != g.Ordering() {
			paths = append(paths, t.BiRelationalPath(g, relation))
			continue
		}
		sub, err := t.SingleRelationPaths(g, relation)
		if err != nil {
			return nil, err
		}
		paths = append(paths, sub...)
	}
	return paths, nil
}

func addCounts(src, dst *ordmap.Map[model.EventType, *ordmap.Map[model.EventType, int]]) {
	src.Each(func(a model.EventType, row *ordmap.Map[model.EventType, int]) {
		dstRow, ok := dst.Get(a)
		if !ok {
			dstRow = ordmap.New[model.EventType, int]()
			dst.Set(a, dstRow)
		}
		row.Each(func(b model.EventType, c int) {
			dstRow.Set(b, dstRow.GetOr(b, 0)+c)
		})
	})
}

// intersectInterrupts merges src into dst the way ChainWalkingTOInvMiner's
// intersectInterrupts does: a type seen for the first time is adopted
// as-is, a type already present has its candidate set intersected.
func intersectInterrupts(src, dst *ordmap.Map[model.EventType, *bitset.Set]) {
	src.Each(func(b model.EventType, s *bitset.Set) {
		if existing, ok := dst.Get(b); ok {
			existing.IntersectWith(s)
		} else {
			dst.Set(b, s.Clone())
		}
	})
}

func extractInvariants(
	g *tracegraph.TraceGraph,
	eventCnts *ordmap.Map[model.EventType, int],
	followedByCnts *ordmap.Map[model.EventType, *ordmap.Map[model.EventType, int]],
	precedesCnts *ordmap.Map[model.EventType, *ordmap.Map[model.EventType, int]],
	possibleInterrupts *ordmap.Map[model.EventType, *bitset.Set],
	alwaysFollowsInitial *bitset.Set,
	opts MineOptions,
) *Set {
	result := NewSet()
	types := eventCnts.Keys()

	support := func(a model.EventType) int {
		if !opts.SupportCount {
			return 0
		}
		return eventCnts.GetOr(a, 0)
	}

	for _, a := range types {
		aCount := eventCnts.GetOr(a, 0)
		row, hasRow := followedByCnts.Get(a)
		for _, b := range types {
			if a == b {
				continue
			}
			fby := 0
			if hasRow {
				fby = row.GetOr(b, 0)
			}
			if aCount > 0 && fby == aCount {
				result.Add(Invariant{Left: a, Right: b, Kind: AFby, Support: support(a)})
			}
			bCount := eventCnts.GetOr(b, 0)
			if aCount > 0 && bCount > 0 && fby == 0 {
				result.Add(Invariant{Left: a, Right: b, Kind: NFby, Support: support(a)})
			}

			prow, hasPRow := precedesCnts.Get(a)
			prec := 0
			if hasPRow {
				prec = prow.GetOr(b, 0)
			}
			if bCount > 0 && prec == bCount {
				result.Add(Invariant{Left: a, Right: b, Kind: AP, Support: support(a)})
			}
		}

		if !opts.IgnoreIntrBy {
			if interrupts, ok := possibleInterrupts.Get(a); ok {
				for _, b := range interrupts.Types(g.Types) {
					result.Add(Invariant{Left: a, Right: b, Kind: IntrBy, Support: support(a)})
				}
			}
		}
	}

	if alwaysFollowsInitial != nil {
		for _, t := range alwaysFollowsInitial.Types(g.Types) {
			if t.IsSentinel() {
				continue
			}
			result.Add(Invariant{Left: model.Initial, Right: t, Kind: AFby})
		}
	}

	return result
}

