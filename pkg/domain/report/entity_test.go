package report

import (
	"testing"
	"time"

	"github.com/sarifscope/api/pkg/domain/shared"
	"github.com/sarifscope/api/pkg/parsers/sarif"
)

func normalizedDoc() *sarif.NormalizedDocument {
	doc := &sarif.NormalizedDocument{
		Metadata: sarif.Metadata{
			SarifVersion: "2.1.0",
			ToolNames:    []string{"ExampleScanner"},
			UploadedAt:   time.Now().UTC(),
			FileName:     "scan.sarif",
		},
		Stats: sarif.NewStats(),
		Findings: []sarif.NormalizedFinding{
			{ID: "0-0-R1", RuleID: "R1", Severity: sarif.SeverityWarning, Message: "m", DedupeKey: "k1"},
			{ID: "0-1-R2", RuleID: "R2", Severity: sarif.SeverityError, Message: "n", DedupeKey: "k2"},
		},
	}
	doc.Stats.TotalFindings = 2
	doc.Stats.BySeverity[sarif.SeverityWarning] = 1
	doc.Stats.BySeverity[sarif.SeverityError] = 1
	return doc
}

func TestNew(t *testing.T) {
	rep, err := New(normalizedDoc())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.ID().IsZero() {
		t.Error("expected generated id")
	}
	if rep.FileName() != "scan.sarif" {
		t.Errorf("expected file name scan.sarif, got %s", rep.FileName())
	}
	if rep.TotalFindings() != 2 {
		t.Errorf("expected 2 findings, got %d", rep.TotalFindings())
	}
	counts := rep.BySeverity()
	if len(counts) != len(sarif.Severities) {
		t.Errorf("expected all severities present, got %d", len(counts))
	}
	if counts[sarif.SeverityWarning] != 1 {
		t.Errorf("expected 1 warning, got %d", counts[sarif.SeverityWarning])
	}
}

func TestNew_NilDocument(t *testing.T) {
	if _, err := New(nil); !shared.IsValidation(err) {
		t.Errorf("expected validation error, got: %v", err)
	}
}

func TestNewFinding(t *testing.T) {
	rep, _ := New(normalizedDoc())

	f, err := NewFinding(rep.ID(), sarif.NormalizedFinding{
		RuleID: "R1", Severity: sarif.SeverityError, DedupeKey: "k",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.ReportID().Equals(rep.ID()) {
		t.Error("expected report linkage")
	}
	if f.Severity() != sarif.SeverityError {
		t.Errorf("expected error severity, got %s", f.Severity())
	}

	t.Run("rejects zero report id", func(t *testing.T) {
		_, err := NewFinding(shared.ID{}, sarif.NormalizedFinding{DedupeKey: "k"})
		if !shared.IsValidation(err) {
			t.Errorf("expected validation error, got: %v", err)
		}
	})

	t.Run("rejects missing dedupe key", func(t *testing.T) {
		_, err := NewFinding(rep.ID(), sarif.NormalizedFinding{})
		if !shared.IsValidation(err) {
			t.Errorf("expected validation error, got: %v", err)
		}
	})
}

func TestFindingsFromDocument(t *testing.T) {
	doc := normalizedDoc()
	rep, _ := New(doc)

	findings, err := FindingsFromDocument(rep.ID(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(findings) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(findings))
	}
	if findings[0].Payload().RuleID != "R1" {
		t.Errorf("expected payload preserved, got %+v", findings[0].Payload())
	}
}
