package poller

import (
	"github.com/alertium/alertium/catalog"
)

// Diff returns the badges from current whose ids are not present in seen,
// preserving the fetch order. Pure set-difference; current is never mutated.
func Diff(current []catalog.Badge, seen map[string]bool) []catalog.Badge {
	var out []catalog.Badge
	for _, b := range current {
		if !seen[b.ID] {
			out = append(out, b)
		}
	}
	return out
}
