package sarif

import (
	"path/filepath"
	"strconv"
	"strings"
)

// GroupByFile groups findings by primary file path. Findings without a
// location land under "<unknown>".
func GroupByFile(findings []NormalizedFinding) map[string][]NormalizedFinding {
	grouped := make(map[string][]NormalizedFinding)
	for _, f := range findings {
		path := "<unknown>"
		if f.Location != nil && f.Location.File != "" {
			path = f.Location.File
		}
		grouped[path] = append(grouped[path], f)
	}
	return grouped
}

// GroupByRule groups findings by rule ID.
func GroupByRule(findings []NormalizedFinding) map[string][]NormalizedFinding {
	grouped := make(map[string][]NormalizedFinding)
	for _, f := range findings {
		grouped[f.RuleID] = append(grouped[f.RuleID], f)
	}
	return grouped
}

// GroupBySeverity groups findings by canonical severity.
func GroupBySeverity(findings []NormalizedFinding) map[Severity][]NormalizedFinding {
	grouped := make(map[Severity][]NormalizedFinding)
	for _, f := range findings {
		grouped[f.Severity] = append(grouped[f.Severity], f)
	}
	return grouped
}

// FilterBySeverity keeps findings with any of the given severities.
func FilterBySeverity(findings []NormalizedFinding, severities ...Severity) []NormalizedFinding {
	want := make(map[Severity]bool, len(severities))
	for _, s := range severities {
		want[s] = true
	}

	var filtered []NormalizedFinding
	for _, f := range findings {
		if want[f.Severity] {
			filtered = append(filtered, f)
		}
	}
	return filtered
}

// FilterByExtension filters findings by primary file extension.
func FilterByExtension(findings []NormalizedFinding, extensions ...string) []NormalizedFinding {
	extMap := make(map[string]bool)
	for _, ext := range extensions {
		ext = strings.TrimPrefix(ext, ".")
		extMap["."+ext] = true
	}

	var filtered []NormalizedFinding
	for _, f := range findings {
		if f.Location == nil {
			continue
		}
		if extMap[filepath.Ext(f.Location.File)] {
			filtered = append(filtered, f)
		}
	}
	return filtered
}

// FilterByPath filters findings by primary file path prefix.
func FilterByPath(findings []NormalizedFinding, pathPrefix string) []NormalizedFinding {
	var filtered []NormalizedFinding
	for _, f := range findings {
		if f.Location != nil && strings.HasPrefix(f.Location.File, pathPrefix) {
			filtered = append(filtered, f)
		}
	}
	return filtered
}

// Deduplicate removes findings sharing a dedupe key, keeping the first
// occurrence of each. Input order is preserved.
func Deduplicate(findings []NormalizedFinding) []NormalizedFinding {
	seen := make(map[string]bool, len(findings))
	var unique []NormalizedFinding

	for _, f := range findings {
		if seen[f.DedupeKey] {
			continue
		}
		seen[f.DedupeKey] = true
		unique = append(unique, f)
	}
	return unique
}

// AffectedFiles returns the unique primary file paths, in first-seen order.
func AffectedFiles(findings []NormalizedFinding) []string {
	set := newStringSet()
	for _, f := range findings {
		if f.Location != nil && f.Location.File != "" {
			set.add(f.Location.File)
		}
	}
	return set.values()
}

// UniqueRules returns the unique rule IDs, in first-seen order.
func UniqueRules(findings []NormalizedFinding) []string {
	set := newStringSet()
	for _, f := range findings {
		if f.RuleID != "" {
			set.add(f.RuleID)
		}
	}
	return set.values()
}

// SeverityScore converts a canonical severity to a 0-10 numeric scale
// for sorting and threshold checks.
func SeverityScore(s Severity) float64 {
	switch s {
	case SeverityError:
		return 8.0
	case SeverityWarning:
		return 5.0
	case SeverityNote, SeverityInformational:
		return 2.0
	case SeverityReview, SeverityOpen:
		return 4.0
	case SeverityNone, SeverityPass:
		return 0.0
	default:
		return 5.0
	}
}

// FormatLocation renders a finding's primary location as
// "file.go:10:5", or "file.go:10-15:5" when the region spans lines.
func FormatLocation(f *NormalizedFinding) string {
	loc := f.Location
	if loc == nil || loc.File == "" {
		return ""
	}

	parts := []string{loc.File}
	if loc.StartLine != nil {
		lineStr := strconv.Itoa(*loc.StartLine)
		if loc.EndLine != nil && *loc.EndLine != *loc.StartLine {
			lineStr += "-" + strconv.Itoa(*loc.EndLine)
		}
		parts = append(parts, lineStr)

		if loc.StartColumn != nil {
			parts = append(parts, strconv.Itoa(*loc.StartColumn))
		}
	}
	return strings.Join(parts, ":")
}

// MergeDocuments combines normalized documents into one: findings
// concatenate in argument order, stats recompute, and metadata keeps
// the first document's version and file name.
func MergeDocuments(docs ...*NormalizedDocument) *NormalizedDocument {
	merged := &NormalizedDocument{
		Stats:    NewStats(),
		Findings: []NormalizedFinding{},
	}

	toolNames := newStringSet()
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		if merged.Metadata.SarifVersion == "" {
			merged.Metadata = doc.Metadata
		}
		toolNames.addAll(doc.Metadata.ToolNames)
		for _, f := range doc.Findings {
			merged.Stats.BySeverity[f.Severity]++
			merged.Findings = append(merged.Findings, f)
		}
	}

	merged.Metadata.ToolNames = toolNames.values()
	merged.Stats.TotalFindings = len(merged.Findings)
	return merged
}
