package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sarifscope/api/internal/config"
	"github.com/sarifscope/api/internal/metrics"
	"github.com/sarifscope/api/pkg/domain/report"
	"github.com/sarifscope/api/pkg/domain/shared"
	"github.com/sarifscope/api/pkg/logger"
	"github.com/sarifscope/api/pkg/pagination"
	"github.com/sarifscope/api/pkg/parsers/sarif"
)

// ReportService handles SARIF report ingestion and retrieval.
type ReportService struct {
	repo   report.Repository
	cfg    config.IngestConfig
	logger *logger.Logger
}

// NewReportService creates a new ReportService.
func NewReportService(
	repo report.Repository,
	cfg config.IngestConfig,
	log *logger.Logger,
) *ReportService {
	return &ReportService{
		repo:   repo,
		cfg:    cfg,
		logger: log.With("service", "report"),
	}
}

// IngestInput represents the input for ingesting a SARIF report.
type IngestInput struct {
	Data     []byte
	FileName string
}

// IngestResult is the outcome of a successful ingestion.
type IngestResult struct {
	Report   *report.Report
	Document *sarif.NormalizedDocument
}

// Ingest validates, normalizes and persists a SARIF report.
func (s *ReportService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	start := time.Now()
	metrics.ReportSizeBytes.Observe(float64(len(input.Data)))

	doc, err := sarif.NormalizeBytes(input.Data, sarif.Options{FileName: input.FileName})
	if err != nil {
		metrics.ReportsIngestedTotal.WithLabelValues(ingestOutcome(err)).Inc()
		return nil, err
	}

	if s.cfg.MaxFindings > 0 && doc.Stats.TotalFindings > s.cfg.MaxFindings {
		metrics.ReportsIngestedTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: %d findings, limit %d",
			report.ErrTooManyFindings, doc.Stats.TotalFindings, s.cfg.MaxFindings)
	}

	if !s.cfg.StoreRaw {
		for i := range doc.Findings {
			doc.Findings[i].Raw = nil
		}
	}

	rep, err := report.New(doc)
	if err != nil {
		return nil, err
	}
	findings, err := report.FindingsFromDocument(rep.ID(), doc)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, rep, findings); err != nil {
		s.logger.Error("storing report failed", "error", err, "file", input.FileName)
		return nil, fmt.Errorf("storing report: %w", err)
	}

	for sev, n := range doc.Stats.BySeverity {
		if n > 0 {
			metrics.FindingsNormalizedTotal.WithLabelValues(sev.String()).Add(float64(n))
		}
	}
	metrics.ReportsIngestedTotal.WithLabelValues("ok").Inc()
	metrics.ReportsStored.Inc()
	metrics.ReportIngestDuration.Observe(time.Since(start).Seconds())

	s.logger.Info("report ingested",
		"report_id", rep.ID().String(),
		"file", input.FileName,
		"findings", doc.Stats.TotalFindings,
		"tools", doc.Metadata.ToolNames,
	)

	return &IngestResult{Report: rep, Document: doc}, nil
}

// ingestOutcome maps a validation error to a metrics label.
func ingestOutcome(err error) string {
	var schemaErr *sarif.SchemaError
	switch {
	case errors.Is(err, sarif.ErrEmptyInput):
		return "empty"
	case errors.As(err, &schemaErr):
		metrics.SchemaViolationsTotal.Add(float64(len(schemaErr.Fields)))
		return "schema_error"
	case errors.Is(err, sarif.ErrInvalidJSON):
		return "invalid_json"
	default:
		return "error"
	}
}

// Preview validates and normalizes without persisting anything.
func (s *ReportService) Preview(ctx context.Context, input IngestInput) (*sarif.NormalizedDocument, error) {
	return sarif.NormalizeBytes(input.Data, sarif.Options{FileName: input.FileName})
}

// GetReport returns a report by ID.
func (s *ReportService) GetReport(ctx context.Context, id string) (*report.Report, error) {
	reportID, err := shared.IDFromString(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid report id", shared.ErrValidation)
	}
	return s.repo.GetByID(ctx, reportID)
}

// ListReports returns stored reports, newest first.
func (s *ReportService) ListReports(ctx context.Context, page, perPage int) (pagination.Result[*report.Report], error) {
	return s.repo.List(ctx, pagination.New(page, perPage))
}

// DeleteReport removes a report and its findings.
func (s *ReportService) DeleteReport(ctx context.Context, id string) error {
	reportID, err := shared.IDFromString(id)
	if err != nil {
		return fmt.Errorf("%w: invalid report id", shared.ErrValidation)
	}
	if err := s.repo.Delete(ctx, reportID); err != nil {
		return err
	}
	metrics.ReportsStored.Dec()
	s.logger.Info("report deleted", "report_id", id)
	return nil
}

// ListFindingsInput represents the input for listing findings.
type ListFindingsInput struct {
	ReportID   string
	Severity   string
	RuleID     string
	Tool       string
	PathPrefix string
	Search     string
	Sort       string
	Page       int
	PerPage    int
}

// ListFindings returns findings matching the filter.
func (s *ReportService) ListFindings(ctx context.Context, input ListFindingsInput) (pagination.Result[*report.Finding], error) {
	filter := report.NewFindingFilter()

	if input.ReportID != "" {
		id, err := shared.IDFromString(input.ReportID)
		if err != nil {
			return pagination.Result[*report.Finding]{}, fmt.Errorf("%w: invalid report id", shared.ErrValidation)
		}
		filter = filter.WithReportID(id)
	}
	if input.Severity != "" {
		sev := sarif.Severity(input.Severity)
		if !sev.IsValid() {
			return pagination.Result[*report.Finding]{}, fmt.Errorf("%w: invalid severity %q", shared.ErrValidation, input.Severity)
		}
		filter = filter.WithSeverity(sev)
	}
	if input.RuleID != "" {
		filter = filter.WithRuleID(input.RuleID)
	}
	if input.Tool != "" {
		filter = filter.WithTool(input.Tool)
	}
	if input.PathPrefix != "" {
		filter = filter.WithPathPrefix(input.PathPrefix)
	}
	if input.Search != "" {
		filter = filter.WithSearch(input.Search)
	}
	filter.Sort = input.Sort

	return s.repo.ListFindings(ctx, filter, pagination.New(input.Page, input.PerPage))
}

// GetFinding returns a finding by ID.
func (s *ReportService) GetFinding(ctx context.Context, id string) (*report.Finding, error) {
	findingID, err := shared.IDFromString(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid finding id", shared.ErrValidation)
	}
	return s.repo.GetFinding(ctx, findingID)
}

// SeverityStats returns finding counts per severity, across all reports
// or scoped to one report when reportID is non-empty. All canonical
// severities are present in the result.
func (s *ReportService) SeverityStats(ctx context.Context, reportID string) (map[sarif.Severity]int, error) {
	var scope *shared.ID
	if reportID != "" {
		id, err := shared.IDFromString(reportID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid report id", shared.ErrValidation)
		}
		scope = &id
	}

	counts, err := s.repo.CountBySeverity(ctx, scope)
	if err != nil {
		return nil, err
	}

	full := make(map[sarif.Severity]int, len(sarif.Severities))
	for _, sev := range sarif.Severities {
		full[sev] = counts[sev]
	}
	return full, nil
}
