package usecase

import (
	"fmt"

	"retail-reports/internal/domain"
)

// Dedupe collapses rows sharing the same identity key, keeping the first
// occurrence in current row order. Reference joins and the extraction layer
// can multiply rows; this gate restores the declared identity after them.
//
// The survivor is picked, not merged: non-key values of later duplicates are
// lost. Callers that care which duplicate survives must sort first
// (Frame.SortBy); row order is the contract.
//
// A missing identity column is fatal: without it the row identity is
// undefined. An empty identity key disables the gate.
func Dedupe(f *domain.Frame, identityKey []string) (int, error) {
	if f == nil || len(identityKey) == 0 || f.Len() == 0 {
		return 0, nil
	}
	for _, col := range identityKey {
		if !f.HasColumn(col) {
			return 0, fmt.Errorf("identity column %q missing from batch", col)
		}
	}

	seen := make(map[string]bool, f.Len())
	keys := make([]string, f.Len())
	for i := 0; i < f.Len(); i++ {
		keys[i] = f.CompositeKey(i, identityKey, "|")
	}

	before := f.Len()
	i := 0
	f.Filter(func(domain.Row) bool {
		key := keys[i]
		i++
		if seen[key] {
			return false
		}
		seen[key] = true
		return true
	})
	return before - f.Len(), nil
}
