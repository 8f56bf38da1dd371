package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sarifscope/api/internal/config"
	"github.com/sarifscope/api/pkg/domain/report"
	"github.com/sarifscope/api/pkg/domain/shared"
	"github.com/sarifscope/api/pkg/logger"
	"github.com/sarifscope/api/pkg/pagination"
	"github.com/sarifscope/api/pkg/parsers/sarif"
)

// memoryReportRepo is an in-memory report.Repository for tests.
type memoryReportRepo struct {
	reports  map[string]*report.Report
	findings map[string][]*report.Finding
}

func newMemoryReportRepo() *memoryReportRepo {
	return &memoryReportRepo{
		reports:  make(map[string]*report.Report),
		findings: make(map[string][]*report.Finding),
	}
}

func (m *memoryReportRepo) Create(_ context.Context, rep *report.Report, findings []*report.Finding) error {
	m.reports[rep.ID().String()] = rep
	m.findings[rep.ID().String()] = findings
	return nil
}

func (m *memoryReportRepo) GetByID(_ context.Context, id shared.ID) (*report.Report, error) {
	rep, ok := m.reports[id.String()]
	if !ok {
		return nil, report.ErrReportNotFound
	}
	return rep, nil
}

func (m *memoryReportRepo) List(_ context.Context, page pagination.Pagination) (pagination.Result[*report.Report], error) {
	var reports []*report.Report
	for _, rep := range m.reports {
		reports = append(reports, rep)
	}
	return pagination.NewResult(reports, int64(len(reports)), page), nil
}

func (m *memoryReportRepo) Delete(_ context.Context, id shared.ID) error {
	if _, ok := m.reports[id.String()]; !ok {
		return report.ErrReportNotFound
	}
	delete(m.reports, id.String())
	delete(m.findings, id.String())
	return nil
}

func (m *memoryReportRepo) ListFindings(_ context.Context, filter report.FindingFilter, page pagination.Pagination) (pagination.Result[*report.Finding], error) {
	var out []*report.Finding
	for _, findings := range m.findings {
		for _, f := range findings {
			if filter.ReportID != nil && !f.ReportID().Equals(*filter.ReportID) {
				continue
			}
			if filter.Severity != nil && f.Severity() != *filter.Severity {
				continue
			}
			if filter.RuleID != nil && f.Payload().RuleID != *filter.RuleID {
				continue
			}
			if filter.Search != nil && !strings.Contains(f.Payload().Message, *filter.Search) {
				continue
			}
			out = append(out, f)
		}
	}
	return pagination.NewResult(out, int64(len(out)), page), nil
}

func (m *memoryReportRepo) GetFinding(_ context.Context, id shared.ID) (*report.Finding, error) {
	for _, findings := range m.findings {
		for _, f := range findings {
			if f.ID().Equals(id) {
				return f, nil
			}
		}
	}
	return nil, report.ErrFindingNotFound
}

func (m *memoryReportRepo) CountBySeverity(_ context.Context, reportID *shared.ID) (map[sarif.Severity]int, error) {
	counts := make(map[sarif.Severity]int)
	for _, findings := range m.findings {
		for _, f := range findings {
			if reportID != nil && !f.ReportID().Equals(*reportID) {
				continue
			}
			counts[f.Severity()]++
		}
	}
	return counts, nil
}

var ingestSARIF = `{
  "version": "2.1.0",
  "runs": [
    {
      "tool": {
        "driver": {
          "name": "ExampleScanner",
          "rules": [
            {"id": "RULE1", "defaultConfiguration": {"level": "warning"}}
          ]
        }
      },
      "results": [
        {"ruleId": "RULE1", "message": {"text": "first"}},
        {"ruleId": "RULE1", "level": "error", "message": {"text": "second"}}
      ]
    }
  ]
}`

func newTestService(cfg config.IngestConfig) (*ReportService, *memoryReportRepo) {
	repo := newMemoryReportRepo()
	return NewReportService(repo, cfg, logger.NewNop()), repo
}

func TestReportService_Ingest(t *testing.T) {
	svc, repo := newTestService(config.IngestConfig{StoreRaw: true})

	res, err := svc.Ingest(context.Background(), IngestInput{
		Data:     []byte(ingestSARIF),
		FileName: "scan.sarif",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Report.TotalFindings() != 2 {
		t.Errorf("expected 2 findings, got %d", res.Report.TotalFindings())
	}
	if len(repo.findings[res.Report.ID().String()]) != 2 {
		t.Error("expected findings persisted")
	}
	if res.Document.Findings[0].Severity != sarif.SeverityWarning {
		t.Errorf("expected rule default severity, got %s", res.Document.Findings[0].Severity)
	}
}

func TestReportService_Ingest_Errors(t *testing.T) {
	svc, _ := newTestService(config.IngestConfig{})

	t.Run("empty input", func(t *testing.T) {
		_, err := svc.Ingest(context.Background(), IngestInput{})
		if !errors.Is(err, sarif.ErrEmptyInput) {
			t.Errorf("expected ErrEmptyInput, got: %v", err)
		}
	})

	t.Run("schema error", func(t *testing.T) {
		_, err := svc.Ingest(context.Background(), IngestInput{Data: []byte(`{}`)})
		if !errors.Is(err, sarif.ErrSchema) {
			t.Errorf("expected ErrSchema, got: %v", err)
		}
	})

	t.Run("findings cap", func(t *testing.T) {
		capped, _ := newTestService(config.IngestConfig{MaxFindings: 1})
		_, err := capped.Ingest(context.Background(), IngestInput{Data: []byte(ingestSARIF)})
		if !errors.Is(err, report.ErrTooManyFindings) {
			t.Errorf("expected ErrTooManyFindings, got: %v", err)
		}
	})
}

func TestReportService_Ingest_StripsRaw(t *testing.T) {
	svc, repo := newTestService(config.IngestConfig{StoreRaw: false})

	res, err := svc.Ingest(context.Background(), IngestInput{Data: []byte(ingestSARIF)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, f := range repo.findings[res.Report.ID().String()] {
		if f.Payload().Raw != nil {
			t.Error("expected raw results stripped")
		}
	}
}

func TestReportService_ListFindings(t *testing.T) {
	svc, _ := newTestService(config.IngestConfig{StoreRaw: true})
	res, err := svc.Ingest(context.Background(), IngestInput{Data: []byte(ingestSARIF)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("by severity", func(t *testing.T) {
		out, err := svc.ListFindings(context.Background(), ListFindingsInput{Severity: "error"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Total != 1 {
			t.Errorf("expected 1 error finding, got %d", out.Total)
		}
	})

	t.Run("invalid severity", func(t *testing.T) {
		_, err := svc.ListFindings(context.Background(), ListFindingsInput{Severity: "critical"})
		if !shared.IsValidation(err) {
			t.Errorf("expected validation error, got: %v", err)
		}
	})

	t.Run("by report", func(t *testing.T) {
		out, err := svc.ListFindings(context.Background(), ListFindingsInput{ReportID: res.Report.ID().String()})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Total != 2 {
			t.Errorf("expected 2 findings, got %d", out.Total)
		}
	})
}

func TestReportService_SeverityStats(t *testing.T) {
	svc, _ := newTestService(config.IngestConfig{StoreRaw: true})
	if _, err := svc.Ingest(context.Background(), IngestInput{Data: []byte(ingestSARIF)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats, err := svc.SeverityStats(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stats) != len(sarif.Severities) {
		t.Errorf("expected all severities present, got %d", len(stats))
	}
	if stats[sarif.SeverityWarning] != 1 || stats[sarif.SeverityError] != 1 {
		t.Errorf("unexpected counts: %v", stats)
	}
}

func TestReportService_DeleteReport(t *testing.T) {
	svc, _ := newTestService(config.IngestConfig{StoreRaw: true})
	res, err := svc.Ingest(context.Background(), IngestInput{Data: []byte(ingestSARIF)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.DeleteReport(context.Background(), res.Report.ID().String()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.GetReport(context.Background(), res.Report.ID().String()); !errors.Is(err, report.ErrReportNotFound) {
		t.Errorf("expected ErrReportNotFound, got: %v", err)
	}

	t.Run("invalid id", func(t *testing.T) {
		if err := svc.DeleteReport(context.Background(), "not-a-uuid"); !shared.IsValidation(err) {
			t.Errorf("expected validation error, got: %v", err)
		}
	})
}
