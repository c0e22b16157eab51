package invariant

import (
	"fmt"
	"io"
)

// WriteText writes s to w, one invariant per line, "<left> <kind> <right>"
// optionally suffixed " [support=N]", ordered by kind, then left label,
// then right label, for a stable invariant-file output order.
func WriteText(w io.Writer, s *Set) error {
	for _, inv := range s.Sorted() {
		if _, err := fmt.Fprintln(w, inv.String()); err != nil {
			return err
		}
	}
	return nil
}
