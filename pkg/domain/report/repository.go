package report

import (
	"context"

	"github.com/sarifscope/api/pkg/domain/shared"
	"github.com/sarifscope/api/pkg/pagination"
	"github.com/sarifscope/api/pkg/parsers/sarif"
)

// Repository defines the interface for report persistence.
type Repository interface {
	// Create persists a report and its findings atomically.
	Create(ctx context.Context, rep *Report, findings []*Finding) error

	// GetByID retrieves a report by its ID.
	GetByID(ctx context.Context, id shared.ID) (*Report, error)

	// List retrieves reports with pagination, newest first.
	List(ctx context.Context, page pagination.Pagination) (pagination.Result[*Report], error)

	// Delete removes a report and its findings.
	Delete(ctx context.Context, id shared.ID) error

	// ListFindings retrieves findings with filtering and pagination.
	ListFindings(ctx context.Context, filter FindingFilter, page pagination.Pagination) (pagination.Result[*Finding], error)

	// GetFinding retrieves a single finding by its ID.
	GetFinding(ctx context.Context, id shared.ID) (*Finding, error)

	// CountBySeverity returns finding counts per severity across all
	// stored reports, or for one report when reportID is non-nil.
	CountBySeverity(ctx context.Context, reportID *shared.ID) (map[sarif.Severity]int, error)
}

// FindingFilter defines the filtering options for listing findings.
type FindingFilter struct {
	ReportID   *shared.ID      // Filter by owning report
	Severity   *sarif.Severity // Filter by canonical severity
	RuleID     *string         // Filter by rule id
	Tool       *string         // Filter by tool name
	PathPrefix *string         // Filter by primary file path prefix
	Search     *string         // Substring match on message
	Sort       string          // Sort expression, e.g. "-created_at"
}

// NewFindingFilter creates an empty finding filter.
func NewFindingFilter() FindingFilter {
	return FindingFilter{}
}

// WithReportID adds a report filter.
func (f FindingFilter) WithReportID(id shared.ID) FindingFilter {
	f.ReportID = &id
	return f
}

// WithSeverity adds a severity filter.
func (f FindingFilter) WithSeverity(sev sarif.Severity) FindingFilter {
	f.Severity = &sev
	return f
}

// WithRuleID adds a rule id filter.
func (f FindingFilter) WithRuleID(ruleID string) FindingFilter {
	f.RuleID = &ruleID
	return f
}

// WithTool adds a tool name filter.
func (f FindingFilter) WithTool(tool string) FindingFilter {
	f.Tool = &tool
	return f
}

// WithPathPrefix adds a file path prefix filter.
func (f FindingFilter) WithPathPrefix(prefix string) FindingFilter {
	f.PathPrefix = &prefix
	return f
}

// WithSearch adds a message search filter.
func (f FindingFilter) WithSearch(q string) FindingFilter {
	f.Search = &q
	return f
}
