package comparer

import (
	"time"

	"github.com/google/go-cmp/cmp"
)

// TimeWithinTolerance aceita timestamps que diferem até toleranceMs.
// Útil para CreatedAt/UpdatedAt que passam por um store com precisão menor.
func TimeWithinTolerance(toleranceMs int) cmp.Option {
	tolerance := time.Duration(toleranceMs) * time.Millisecond

	return cmp.Comparer(func(x, y time.Time) bool {
		return x.Sub(y).Abs() <= tolerance
	})
}
