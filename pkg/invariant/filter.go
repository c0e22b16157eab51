package invariant

import "github.com/logminer/logminer/internal/model"

// FilterOptions holds the driver-level post-filters applied after mining
// rather than inside the core miner itself.
type FilterOptions struct {
	// SupportCountThreshold drops invariants whose support is <= threshold.
	// Zero disables the filter.
	SupportCountThreshold int
	// IgnoreOverETypeSet drops invariants all of whose operand types lie in
	// this set.
	IgnoreOverETypeSet map[model.EventType]bool
}

// Filter applies blacklist-then-threshold filtering: the ignore set is
// checked before the support-count threshold.
func Filter(s *Set, opts FilterOptions) *Set {
	out := NewSet()
	for _, inv := range s.Items() {
		if opts.IgnoreOverETypeSet != nil &&
			opts.IgnoreOverETypeSet[inv.Left] && opts.IgnoreOverETypeSet[inv.Right] {
			continue
		}
		if opts.SupportCountThreshold > 0 && inv.Support <= opts.SupportCountThreshold {
			continue
		}
		out.Add(inv)
	}
	return out
}
