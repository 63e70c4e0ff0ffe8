package usecase

import (
	"fmt"

	"retail-reports/internal/domain"
)

// TieBreak decides which reference row wins when the same full key
// (item, color, size) maps to more than one canonical code. The source data
// does contain such duplicates; which one is "right" is unspecified upstream,
// so the strategy is injectable instead of hardcoded.
type TieBreak int

const (
	// TieBreakFirst keeps the first occurrence in reference order.
	TieBreakFirst TieBreak = iota
	// TieBreakMaxCode keeps the lexicographically greatest code.
	TieBreakMaxCode
	// TieBreakError refuses ambiguous references outright.
	TieBreakError
)

// cascade key sets, finest first. The item-only level is always attempted
// last.
var cascadeLevels = []struct {
	columns []string
	level   domain.MatchLevel
}{
	{[]string{domain.ColProduct, domain.ColColor, domain.ColSize}, domain.MatchLevelItemColorSize},
	{[]string{domain.ColProduct, domain.ColColor}, domain.MatchLevelItemColor},
	{[]string{domain.ColProduct}, domain.MatchLevelItem},
}

// EnrichBarcodes attaches the canonical BARCODE column to base by trying
// progressively coarser key sets against the reference batch. The first key
// set that matches at least one row anywhere in the batch wins for the whole
// batch; rows that only match at a coarser level stay unresolved. That
// all-or-nothing commitment is deliberate: mixing levels per row would match
// rows against codes of the wrong granularity.
//
// When base has no item column the batch is returned untouched with
// MatchLevelNone. When no level matches at all, the BARCODE column is still
// added, all null.
func EnrichBarcodes(base, refs *domain.Frame, prioritizeSize bool, tie TieBreak) (domain.MatchLevel, domain.Diagnostics, error) {
	var diag domain.Diagnostics

	if base == nil || !base.HasColumn(domain.ColProduct) {
		return domain.MatchLevelNone, diag, nil
	}

	index, ambiguous, err := buildReferenceIndex(refs, tie)
	if err != nil {
		return domain.MatchLevelNone, diag, err
	}
	diag.AmbiguousReferenceKeys = ambiguous

	for _, candidate := range cascadeLevels {
		if candidate.level == domain.MatchLevelItemColorSize && !prioritizeSize {
			continue
		}
		if !base.HasColumns(candidate.columns...) {
			continue
		}

		codes := index.codesFor(candidate.columns)
		matched := make(map[int]string)
		for i := 0; i < base.Len(); i++ {
			if code, ok := codes[base.CompositeKey(i, candidate.columns, "::")]; ok {
				matched[i] = code
			}
		}
		if len(matched) == 0 {
			// Zero matches at this level: the join is discarded entirely
			// before trying the next, coarser key set.
			continue
		}

		base.AddColumn(domain.ColBarcode, nil)
		for i, code := range matched {
			base.SetValue(i, domain.ColBarcode, code)
		}
		diag.BarcodeLevel = candidate.level
		diag.UnresolvedBarcodes = base.Len() - len(matched)
		return candidate.level, diag, nil
	}

	base.AddColumn(domain.ColBarcode, nil)
	diag.UnresolvedBarcodes = base.Len()
	return domain.MatchLevelNone, diag, nil
}

// referenceIndex holds the reference batch deduplicated on the full key.
// Per-level code maps are derived from it so every cascade level sees the
// same single code per unique full key.
type referenceIndex struct {
	refs *domain.Frame
	keep []int
}

func buildReferenceIndex(refs *domain.Frame, tie TieBreak) (*referenceIndex, int, error) {
	idx := &referenceIndex{refs: refs}
	if refs == nil || !refs.HasColumn(domain.ColProduct) {
		return idx, 0, nil
	}

	fullKey := []string{domain.ColProduct, domain.ColColor, domain.ColSize}
	chosen := make(map[string]int, refs.Len())
	ambiguous := map[string]bool{}
	var order []string

	for i := 0; i < refs.Len(); i++ {
		key := refs.CompositeKey(i, fullKey, "::")
		prev, seen := chosen[key]
		if !seen {
			chosen[key] = i
			order = append(order, key)
			continue
		}
		ambiguous[key] = true
		switch tie {
		case TieBreakFirst:
			// keep prev
		case TieBreakMaxCode:
			if codeAt(refs, i) > codeAt(refs, prev) {
				chosen[key] = i
			}
		case TieBreakError:
			return nil, len(ambiguous), fmt.Errorf("ambiguous reference key %q", key)
		}
	}

	idx.keep = make([]int, 0, len(order))
	for _, key := range order {
		idx.keep = append(idx.keep, chosen[key])
	}
	return idx, len(ambiguous), nil
}

// codesFor builds key -> code for one cascade level from the deduplicated
// reference rows. Within a level the first occurrence wins, keeping the
// choice deterministic in reference order.
func (x *referenceIndex) codesFor(columns []string) map[string]string {
	codes := make(map[string]string, len(x.keep))
	for _, i := range x.keep {
		code := codeAt(x.refs, i)
		if code == "" {
			continue
		}
		key := x.refs.CompositeKey(i, columns, "::")
		if _, ok := codes[key]; !ok {
			codes[key] = code
		}
	}
	return codes
}

func codeAt(refs *domain.Frame, i int) string {
	v := refs.Value(i, domain.ColBarcode)
	if !domain.HasText(v) {
		return ""
	}
	return domain.Text(v)
}
