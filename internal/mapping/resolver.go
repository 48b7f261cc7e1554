// Package mapping resolves extracted line items against the part-number
// catalog. Resolution is pure and deterministic: the same items and the same
// catalog snapshot always produce the same mappings.
package mapping

import (
	"sort"
	"strings"

	"receiving-backend/internal/catalog"
	"receiving-backend/internal/extraction"
)

// FieldMapping links one extracted line item to a catalog part number.
// PartNumberID is nil while the line is unresolved.
type FieldMapping struct {
	ItemIndex    int     `json:"itemIndex"`
	PartNumberID *string `json:"partNumberId"`
	Confidence   float64 `json:"confidence"`
	Manual       bool    `json:"manual"`
}

// Resolved reports whether the mapping points at a part number.
func (m FieldMapping) Resolved() bool {
	return m.PartNumberID != nil && *m.PartNumberID != ""
}

// Confidence assigned per match kind. Exact code matches are trusted;
// normalized matches carry a penalty so they surface in review.
const (
	exactMatchConfidence      = 1.0
	normalizedMatchConfidence = 0.7
)

// Resolve maps every line item to a part number suggestion. Items with no
// candidate get a nil PartNumberID and zero confidence. The output always has
// exactly one mapping per item, in item order.
func Resolve(items []extraction.LineItem, parts []catalog.PartNumber) []FieldMapping {
	byCode := make(map[string]catalog.PartNumber, len(parts))
	byNormalized := make(map[string][]catalog.PartNumber, len(parts))
	for _, p := range parts {
		if !p.Active {
			continue
		}
		byCode[p.Code] = p
		norm := normalizeCode(p.Code)
		byNormalized[norm] = append(byNormalized[norm], p)
	}

	mappings := make([]FieldMapping, len(items))
	for i, item := range items {
		mappings[i] = FieldMapping{ItemIndex: i}

		if p, ok := byCode[item.ProductCode]; ok {
			id := p.ID
			mappings[i].PartNumberID = &id
			mappings[i].Confidence = exactMatchConfidence
			continue
		}

		candidates := byNormalized[normalizeCode(item.ProductCode)]
		if len(candidates) == 0 {
			continue
		}
		// Deterministic choice among normalized-equal candidates.
		sort.Slice(candidates, func(a, b int) bool { return candidates[a].ID < candidates[b].ID })
		id := candidates[0].ID
		mappings[i].PartNumberID = &id
		mappings[i].Confidence = normalizedMatchConfidence
	}
	return mappings
}

// Merge combines a fresh resolution with the current mappings, keeping every
// manual override in place. Both slices are indexed by item; current wins for
// manual entries, suggested wins otherwise.
func Merge(current, suggested []FieldMapping) []FieldMapping {
	merged := make([]FieldMapping, len(suggested))
	copy(merged, suggested)
	for i := range merged {
		if i < len(current) && current[i].Manual {
			merged[i] = current[i]
		}
	}
	return merged
}

// AnyUnresolved reports whether at least one mapping is missing a part number.
func AnyUnresolved(mappings []FieldMapping) bool {
	for _, m := range mappings {
		if !m.Resolved() {
			return true
		}
	}
	return false
}

// Equal reports whether two mapping sets are identical.
func Equal(a, b []FieldMapping) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ItemIndex != b[i].ItemIndex || a[i].Confidence != b[i].Confidence || a[i].Manual != b[i].Manual {
			return false
		}
		av, bv := "", ""
		if a[i].PartNumberID != nil {
			av = *a[i].PartNumberID
		}
		if b[i].PartNumberID != nil {
			bv = *b[i].PartNumberID
		}
		if av != bv {
			return false
		}
	}
	return true
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
