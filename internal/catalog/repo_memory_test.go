package catalog

import (
	"context"
	"testing"
)

func TestMemoryLookupPartNumbersStableOrder(t *testing.T) {
	m := NewMemoryLookup()
	m.PutPartNumber(PartNumber{ID: "pn-c", Code: "BR-100", Description: "duplicate code", Active: true})
	m.PutPartNumber(PartNumber{ID: "pn-a", Code: "BR-100", Description: "duplicate code", Active: true})
	m.PutPartNumber(PartNumber{ID: "pn-b", Code: "AA-001", Description: "first by code", Active: true})
	m.PutPartNumber(PartNumber{ID: "pn-d", Code: "ZZ-999", Description: "inactive", Active: false})

	want := []string{"pn-b", "pn-a", "pn-c"}
	for run := 0; run < 10; run++ {
		parts, err := m.PartNumbers(context.Background())
		if err != nil {
			t.Fatalf("part numbers: %v", err)
		}
		if len(parts) != len(want) {
			t.Fatalf("expected %d parts, got %d", len(want), len(parts))
		}
		for i, p := range parts {
			if p.ID != want[i] {
				t.Fatalf("run %d: expected order %v, got %s at %d", run, want, p.ID, i)
			}
		}
	}
}
