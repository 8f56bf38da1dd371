package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/sarifscope/api/internal/metrics"
	"github.com/sarifscope/api/pkg/domain/report"
	"github.com/sarifscope/api/pkg/domain/shared"
	"github.com/sarifscope/api/pkg/pagination"
	"github.com/sarifscope/api/pkg/parsers/sarif"
)

// ReportRepository implements report.Repository using PostgreSQL.
type ReportRepository struct {
	db *DB
}

// NewReportRepository creates a new report repository.
func NewReportRepository(db *DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportSelectQuery = `
	SELECT
		id, file_name, sarif_version, tool_names, total_findings, by_severity, uploaded_at, created_at
	FROM reports
`

func (r *ReportRepository) scanReport(row interface{ Scan(...any) error }) (*report.Report, error) {
	var (
		id            string
		fileName      sql.NullString
		sarifVersion  string
		toolNames     pq.StringArray
		totalFindings int
		bySeverityRaw []byte
		uploadedAt    time.Time
		createdAt     time.Time
	)

	err := row.Scan(&id, &fileName, &sarifVersion, &toolNames, &totalFindings, &bySeverityRaw, &uploadedAt, &createdAt)
	if err != nil {
		return nil, err
	}

	bySeverity := make(map[sarif.Severity]int)
	if err := fromJSONB(bySeverityRaw, &bySeverity); err != nil {
		return nil, fmt.Errorf("decode severity counts: %w", err)
	}

	rid, _ := shared.IDFromString(id)
	return report.Reconstitute(
		rid, fileName.String, sarifVersion, toolNames,
		totalFindings, bySeverity, uploadedAt, createdAt,
	), nil
}

// Create persists a report and its findings atomically.
func (r *ReportRepository) Create(ctx context.Context, rep *report.Report, findings []*report.Finding) error {
	start := time.Now()
	defer func() {
		metrics.StorageQueryDuration.WithLabelValues("create_report").Observe(time.Since(start).Seconds())
	}()

	bySeverity, err := toJSONB(rep.BySeverity())
	if err != nil {
		return fmt.Errorf("encode severity counts: %w", err)
	}

	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO reports (
				id, file_name, sarif_version, tool_names, total_findings, by_severity, uploaded_at, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		_, err := tx.ExecContext(ctx, query,
			rep.ID().String(),
			nullString(rep.FileName()),
			rep.SarifVersion(),
			pq.Array(rep.ToolNames()),
			rep.TotalFindings(),
			bySeverity,
			rep.UploadedAt(),
			rep.CreatedAt(),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return shared.ErrAlreadyExists
			}
			return fmt.Errorf("create report: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO findings (
				id, report_id, rule_id, severity, tool_name, file_path, message, dedupe_key, payload, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`)
		if err != nil {
			return fmt.Errorf("prepare finding insert: %w", err)
		}
		defer stmt.Close()

		for _, f := range findings {
			payload, err := toJSONB(f.Payload())
			if err != nil {
				return fmt.Errorf("encode finding payload: %w", err)
			}

			nf := f.Payload()
			var filePath string
			if nf.Location != nil {
				filePath = nf.Location.File
			}

			if _, err := stmt.ExecContext(ctx,
				f.ID().String(),
				f.ReportID().String(),
				nullString(nf.RuleID),
				nf.Severity.String(),
				nullString(nf.Tool.Name),
				nullString(filePath),
				nf.Message,
				nf.DedupeKey,
				payload,
				f.CreatedAt(),
			); err != nil {
				return fmt.Errorf("create finding: %w", err)
			}
		}

		return nil
	})
}

// GetByID retrieves a report by ID.
func (r *ReportRepository) GetByID(ctx context.Context, id shared.ID) (*report.Report, error) {
	query := reportSelectQuery + " WHERE id = $1"
	row := r.db.QueryRowContext(ctx, query, id.String())

	rep, err := r.scanReport(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, report.ErrReportNotFound
		}
		return nil, fmt.Errorf("get report: %w", err)
	}

	return rep, nil
}

// List retrieves reports with pagination, newest first.
func (r *ReportRepository) List(ctx context.Context, page pagination.Pagination) (pagination.Result[*report.Report], error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reports").Scan(&total); err != nil {
		return pagination.Result[*report.Report]{}, fmt.Errorf("count reports: %w", err)
	}

	query := reportSelectQuery + " ORDER BY created_at DESC LIMIT $1 OFFSET $2"
	rows, err := r.db.QueryContext(ctx, query, page.Limit(), page.Offset())
	if err != nil {
		return pagination.Result[*report.Report]{}, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []*report.Report
	for rows.Next() {
		rep, err := r.scanReport(rows)
		if err != nil {
			return pagination.Result[*report.Report]{}, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return pagination.Result[*report.Report]{}, fmt.Errorf("iterate reports: %w", err)
	}

	return pagination.NewResult(reports, total, page), nil
}

// Delete removes a report. Findings cascade via the foreign key.
func (r *ReportRepository) Delete(ctx context.Context, id shared.ID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM reports WHERE id = $1", id.String())
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return report.ErrReportNotFound
	}

	return nil
}

const findingSelectQuery = `
	SELECT id, report_id, payload, created_at
	FROM findings
`

// findingSortFields maps request sort fields to columns.
var findingSortFields = map[string]string{
	"created_at": "created_at",
	"severity":   "severity",
	"rule_id":    "rule_id",
	"file_path":  "file_path",
}

func (r *ReportRepository) scanFinding(row interface{ Scan(...any) error }) (*report.Finding, error) {
	var (
		id        string
		reportID  string
		payload   []byte
		createdAt time.Time
	)

	if err := row.Scan(&id, &reportID, &payload, &createdAt); err != nil {
		return nil, err
	}

	var nf sarif.NormalizedFinding
	if err := fromJSONB(payload, &nf); err != nil {
		return nil, fmt.Errorf("decode finding payload: %w", err)
	}

	fid, _ := shared.IDFromString(id)
	rid, _ := shared.IDFromString(reportID)
	return report.ReconstituteFinding(fid, rid, nf, createdAt), nil
}

// buildFindingWhere builds the WHERE clause and args for a finding filter.
func buildFindingWhere(filter report.FindingFilter) (string, []any) {
	var conditions []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ReportID != nil {
		conditions = append(conditions, "report_id = "+arg(filter.ReportID.String()))
	}
	if filter.Severity != nil {
		conditions = append(conditions, "severity = "+arg(filter.Severity.String()))
	}
	if filter.RuleID != nil {
		conditions = append(conditions, "rule_id = "+arg(*filter.RuleID))
	}
	if filter.Tool != nil {
		conditions = append(conditions, "tool_name = "+arg(*filter.Tool))
	}
	if filter.PathPrefix != nil {
		conditions = append(conditions, "file_path LIKE "+arg(escapeLikePattern(*filter.PathPrefix)+"%"))
	}
	if filter.Search != nil {
		conditions = append(conditions, "message ILIKE "+arg(wrapLikePattern(*filter.Search)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// ListFindings retrieves findings with filtering and pagination.
func (r *ReportRepository) ListFindings(ctx context.Context, filter report.FindingFilter, page pagination.Pagination) (pagination.Result[*report.Finding], error) {
	start := time.Now()
	defer func() {
		metrics.StorageQueryDuration.WithLabelValues("list_findings").Observe(time.Since(start).Seconds())
	}()

	where, args := buildFindingWhere(filter)

	var total int64
	countQuery := "SELECT COUNT(*) FROM findings" + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return pagination.Result[*report.Finding]{}, fmt.Errorf("count findings: %w", err)
	}

	orderBy := pagination.NewSortOption(findingSortFields).
		Parse(filter.Sort).
		SQLWithDefault("created_at DESC")

	query := fmt.Sprintf("%s%s ORDER BY %s LIMIT $%d OFFSET $%d",
		findingSelectQuery, where, orderBy, len(args)+1, len(args)+2)
	args = append(args, page.Limit(), page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return pagination.Result[*report.Finding]{}, fmt.Errorf("list findings: %w", err)
	}
	defer rows.Close()

	var findings []*report.Finding
	for rows.Next() {
		f, err := r.scanFinding(rows)
		if err != nil {
			return pagination.Result[*report.Finding]{}, fmt.Errorf("scan finding: %w", err)
		}
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return pagination.Result[*report.Finding]{}, fmt.Errorf("iterate findings: %w", err)
	}

	return pagination.NewResult(findings, total, page), nil
}

// GetFinding retrieves a finding by ID.
func (r *ReportRepository) GetFinding(ctx context.Context, id shared.ID) (*report.Finding, error) {
	query := findingSelectQuery + " WHERE id = $1"
	row := r.db.QueryRowContext(ctx, query, id.String())

	f, err := r.scanFinding(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, report.ErrFindingNotFound
		}
		return nil, fmt.Errorf("get finding: %w", err)
	}

	return f, nil
}

// CountBySeverity returns finding counts grouped by severity.
func (r *ReportRepository) CountBySeverity(ctx context.Context, reportID *shared.ID) (map[sarif.Severity]int, error) {
	query := "SELECT severity, COUNT(*) FROM findings"
	var args []any
	if reportID != nil {
		query += " WHERE report_id = $1"
		args = append(args, reportID.String())
	}
	query += " GROUP BY severity"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count by severity: %w", err)
	}
	defer rows.Close()

	counts := make(map[sarif.Severity]int)
	for rows.Next() {
		var sev string
		var n int
		if err := rows.Scan(&sev, &n); err != nil {
			return nil, fmt.Errorf("scan severity count: %w", err)
		}
		counts[sarif.Severity(sev)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate severity counts: %w", err)
	}

	return counts, nil
}
