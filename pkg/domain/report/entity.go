// Package report holds the uploaded-report aggregate: a normalized
// SARIF document plus its stored findings.
package report

import (
	"fmt"
	"time"

	"github.com/sarifscope/api/pkg/domain/shared"
	"github.com/sarifscope/api/pkg/parsers/sarif"
)

// Report represents one ingested SARIF document.
type Report struct {
	id            shared.ID
	fileName      string
	sarifVersion  string
	toolNames     []string
	totalFindings int
	bySeverity    map[sarif.Severity]int
	uploadedAt    time.Time
	createdAt     time.Time
}

// New creates a Report from a normalized document.
func New(doc *sarif.NormalizedDocument) (*Report, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: normalized document is required", shared.ErrValidation)
	}

	bySeverity := make(map[sarif.Severity]int, len(doc.Stats.BySeverity))
	for sev, n := range doc.Stats.BySeverity {
		bySeverity[sev] = n
	}

	return &Report{
		id:            shared.NewID(),
		fileName:      doc.Metadata.FileName,
		sarifVersion:  doc.Metadata.SarifVersion,
		toolNames:     append([]string(nil), doc.Metadata.ToolNames...),
		totalFindings: doc.Stats.TotalFindings,
		bySeverity:    bySeverity,
		uploadedAt:    doc.Metadata.UploadedAt,
		createdAt:     time.Now().UTC(),
	}, nil
}

// Reconstitute recreates a Report from persistence.
func Reconstitute(
	id shared.ID,
	fileName, sarifVersion string,
	toolNames []string,
	totalFindings int,
	bySeverity map[sarif.Severity]int,
	uploadedAt, createdAt time.Time,
) *Report {
	return &Report{
		id:            id,
		fileName:      fileName,
		sarifVersion:  sarifVersion,
		toolNames:     toolNames,
		totalFindings: totalFindings,
		bySeverity:    bySeverity,
		uploadedAt:    uploadedAt,
		createdAt:     createdAt,
	}
}

// Getters
func (r *Report) ID() shared.ID       { return r.id }
func (r *Report) FileName() string    { return r.fileName }
func (r *Report) SarifVersion() string { return r.sarifVersion }
func (r *Report) ToolNames() []string { return r.toolNames }
func (r *Report) TotalFindings() int  { return r.totalFindings }
func (r *Report) UploadedAt() time.Time { return r.uploadedAt }
func (r *Report) CreatedAt() time.Time  { return r.createdAt }

// BySeverity returns the severity counts. All canonical severities are
// present in the map.
func (r *Report) BySeverity() map[sarif.Severity]int {
	counts := make(map[sarif.Severity]int, len(sarif.Severities))
	for _, sev := range sarif.Severities {
		counts[sev] = r.bySeverity[sev]
	}
	return counts
}

// Finding represents one stored normalized finding tied to a report.
type Finding struct {
	id        shared.ID
	reportID  shared.ID
	payload   sarif.NormalizedFinding
	createdAt time.Time
}

// NewFinding creates a stored Finding from a normalized finding.
func NewFinding(reportID shared.ID, payload sarif.NormalizedFinding) (*Finding, error) {
	if reportID.IsZero() {
		return nil, fmt.Errorf("%w: report id is required", shared.ErrValidation)
	}
	if payload.DedupeKey == "" {
		return nil, fmt.Errorf("%w: finding dedupe key is required", shared.ErrValidation)
	}

	return &Finding{
		id:        shared.NewID(),
		reportID:  reportID,
		payload:   payload,
		createdAt: time.Now().UTC(),
	}, nil
}

// ReconstituteFinding recreates a Finding from persistence.
func ReconstituteFinding(
	id, reportID shared.ID,
	payload sarif.NormalizedFinding,
	createdAt time.Time,
) *Finding {
	return &Finding{
		id:        id,
		reportID:  reportID,
		payload:   payload,
		createdAt: createdAt,
	}
}

// Getters
func (f *Finding) ID() shared.ID       { return f.id }
func (f *Finding) ReportID() shared.ID { return f.reportID }
func (f *Finding) CreatedAt() time.Time { return f.createdAt }

// Payload returns the normalized finding.
func (f *Finding) Payload() sarif.NormalizedFinding { return f.payload }

// Severity returns the finding's canonical severity.
func (f *Finding) Severity() sarif.Severity { return f.payload.Severity }

// DedupeKey returns the content fingerprint used for duplicate detection.
func (f *Finding) DedupeKey() string { return f.payload.DedupeKey }

// FindingsFromDocument converts every finding of a normalized document
// into stored findings for the given report.
func FindingsFromDocument(reportID shared.ID, doc *sarif.NormalizedDocument) ([]*Finding, error) {
	findings := make([]*Finding, 0, len(doc.Findings))
	for _, nf := range doc.Findings {
		f, err := NewFinding(reportID, nf)
		if err != nil {
			return nil, err
		}
		findings = append(findings, f)
	}
	return findings, nil
}
