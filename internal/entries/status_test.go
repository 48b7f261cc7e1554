package entries

import (
	"testing"

	"receiving-backend/internal/extraction"
	"receiving-backend/internal/mapping"
)

func TestParseStatusAliases(t *testing.T) {
	cases := []struct {
		raw  string
		want Status
	}{
		{"PENDING_CONFIRMATION", StatusPendingConfirmation},
		{"pending", StatusPendingConfirmation},
		{"CONFIRMED", StatusCompleted},
		{"completed", StatusCompleted},
		{" pending_project ", StatusPendingProject},
	}
	for _, tc := range cases {
		got, err := ParseStatus(tc.raw)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("parse %q: got %s, want %s", tc.raw, got, tc.want)
		}
	}
	if _, err := ParseStatus("NOPE"); err == nil {
		t.Fatal("unknown status must error")
	}
}

func TestEffectiveStatusDerivation(t *testing.T) {
	pn := "pn-1"
	resolved := []mapping.FieldMapping{{ItemIndex: 0, PartNumberID: &pn, Confidence: 1.0}}
	unresolved := []mapping.FieldMapping{{ItemIndex: 0}}

	cases := []struct {
		name  string
		entry Entry
		want  Status
	}{
		{
			name: "low risk resolved",
			entry: Entry{
				Status:     StatusPendingConfirmation,
				Mappings:   resolved,
				Confidence: extraction.ConfidenceScore{RiskLevel: extraction.RiskLow},
			},
			want: StatusPendingConfirmation,
		},
		{
			name: "low risk unresolved",
			entry: Entry{
				Status:     StatusPendingConfirmation,
				Mappings:   unresolved,
				Confidence: extraction.ConfidenceScore{RiskLevel: extraction.RiskLow},
			},
			want: StatusPendingApproval,
		},
		{
			name: "high risk unreviewed",
			entry: Entry{
				Status:     StatusPendingConfirmation,
				Mappings:   resolved,
				Confidence: extraction.ConfidenceScore{RiskLevel: extraction.RiskHigh},
			},
			want: StatusPendingApproval,
		},
		{
			name: "high risk reviewed",
			entry: Entry{
				Status:     StatusPendingConfirmation,
				Mappings:   resolved,
				Reviewed:   true,
				Confidence: extraction.ConfidenceScore{RiskLevel: extraction.RiskHigh},
			},
			want: StatusPendingConfirmation,
		},
		{
			name: "derivation only applies before confirmation",
			entry: Entry{
				Status:     StatusProcessing,
				Mappings:   unresolved,
				Confidence: extraction.ConfidenceScore{RiskLevel: extraction.RiskHigh},
			},
			want: StatusProcessing,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.entry.EffectiveStatus(); got != tc.want {
				t.Fatalf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestDocumentRef(t *testing.T) {
	e := Entry{DocumentNumber: "1234", DocumentSeries: "1"}
	if e.DocumentRef() != "1234/1" {
		t.Fatalf("unexpected ref %s", e.DocumentRef())
	}
	e.DocumentSeries = ""
	if e.DocumentRef() != "1234" {
		t.Fatalf("unexpected ref %s", e.DocumentRef())
	}
}
