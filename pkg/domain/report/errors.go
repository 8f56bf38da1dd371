package report

import "errors"

var (
	// ErrReportNotFound is returned when a report is not found.
	ErrReportNotFound = errors.New("report not found")

	// ErrFindingNotFound is returned when a finding is not found.
	ErrFindingNotFound = errors.New("finding not found")

	// ErrTooManyFindings is returned when a report exceeds the
	// configured findings cap.
	ErrTooManyFindings = errors.New("report exceeds findings limit")
)
