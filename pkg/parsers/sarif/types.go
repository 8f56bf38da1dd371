// Package sarif provides a permissive validator and normalizer for SARIF
// (Static Analysis Results Interchange Format) v2.x documents.
// Specification: https://docs.oasis-open.org/sarif/sarif/v2.1.0/sarif-v2.1.0.html
package sarif

// Document represents the root SARIF log object.
type Document struct {
	Version string `json:"version"`
	Schema  string `json:"$schema,omitempty"`
	Runs    []Run  `json:"runs"`
}

// Run represents a single run of an analysis tool.
type Run struct {
	Tool              Tool               `json:"tool"`
	AutomationDetails *AutomationDetails `json:"automationDetails,omitempty"`
	Results           []Result           `json:"results,omitempty"`
	Properties        Properties         `json:"properties,omitempty"`
}

// AutomationDetails identifies the run within an automation hierarchy.
type AutomationDetails struct {
	ID   string `json:"id,omitempty"`
	GUID string `json:"guid,omitempty"`
}

// Tool describes the analysis tool that produced the results.
type Tool struct {
	Driver Driver `json:"driver"`
}

// Driver describes the tool's primary component.
type Driver struct {
	Name           string     `json:"name"`
	Version        string     `json:"version,omitempty"`
	Organization   string     `json:"organization,omitempty"`
	InformationURI string     `json:"informationUri,omitempty"`
	Rules          []Rule     `json:"rules,omitempty"`
	Properties     Properties `json:"properties,omitempty"`
}

// Rule describes a rule or check definition. Rule ids should be unique
// within a run's rule list; uniqueness is not enforced by the validator
// and the first match wins on lookup.
type Rule struct {
	ID                   string                    `json:"id"`
	Name                 string                    `json:"name,omitempty"`
	ShortDescription     *MultiformatMessageString `json:"shortDescription,omitempty"`
	FullDescription      *MultiformatMessageString `json:"fullDescription,omitempty"`
	Help                 *MultiformatMessageString `json:"help,omitempty"`
	HelpURI              string                    `json:"helpUri,omitempty"`
	DefaultConfiguration *ReportingConfiguration   `json:"defaultConfiguration,omitempty"`
	Properties           Properties                `json:"properties,omitempty"`
}

// ReportingConfiguration specifies the default configuration for a rule.
// Some producers emit "severity" instead of the standard "level"; both are
// kept so the normalizer can fall back across them.
type ReportingConfiguration struct {
	Enabled  bool    `json:"enabled,omitempty"`
	Level    string  `json:"level,omitempty"`
	Severity string  `json:"severity,omitempty"`
	Rank     float64 `json:"rank,omitempty"`
}

// Result represents a single result reported by a tool.
//
// RuleIndex is a pointer so an absent index can be told apart from a
// legitimate index of zero.
type Result struct {
	RuleID              string            `json:"ruleId,omitempty"`
	RuleIndex           *int              `json:"ruleIndex,omitempty"`
	Kind                string            `json:"kind,omitempty"`
	Level               string            `json:"level,omitempty"`
	BaselineState       string            `json:"baselineState,omitempty"`
	Message             *Message          `json:"message"`
	Locations           []Location        `json:"locations,omitempty"`
	RelatedLocations    []Location        `json:"relatedLocations,omitempty"`
	Fixes               []Fix             `json:"fixes,omitempty"`
	Fingerprints        map[string]string `json:"fingerprints,omitempty"`
	PartialFingerprints map[string]string `json:"partialFingerprints,omitempty"`
	Properties          Properties        `json:"properties,omitempty"`
	ID                  string            `json:"id,omitempty"`
	GUID                string            `json:"guid,omitempty"`
}

// Message represents a message to the user.
type Message struct {
	Text     string `json:"text,omitempty"`
	Markdown string `json:"markdown,omitempty"`
}

// MultiformatMessageString represents a message in multiple formats.
type MultiformatMessageString struct {
	Text     string `json:"text,omitempty"`
	Markdown string `json:"markdown,omitempty"`
}

// Location represents a location in an artifact.
type Location struct {
	PhysicalLocation *PhysicalLocation `json:"physicalLocation,omitempty"`
	Message          *Message          `json:"message,omitempty"`
}

// PhysicalLocation represents a physical location in an artifact.
type PhysicalLocation struct {
	ArtifactLocation *ArtifactLocation `json:"artifactLocation,omitempty"`
	Region           *Region           `json:"region,omitempty"`
}

// ArtifactLocation represents the location of an artifact.
type ArtifactLocation struct {
	URI       string `json:"uri,omitempty"`
	URIBaseID string `json:"uriBaseId,omitempty"`
}

// Region represents a region within an artifact. SARIF line and column
// numbers are 1-based, so a zero value means the bound is absent.
type Region struct {
	StartLine   int              `json:"startLine,omitempty"`
	StartColumn int              `json:"startColumn,omitempty"`
	EndLine     int              `json:"endLine,omitempty"`
	EndColumn   int              `json:"endColumn,omitempty"`
	Snippet     *ArtifactContent `json:"snippet,omitempty"`
}

// ArtifactContent represents the content of an artifact.
type ArtifactContent struct {
	Text string `json:"text,omitempty"`
}

// Fix represents a proposed fix for a result.
type Fix struct {
	Description *Message `json:"description,omitempty"`
}

// Properties is an open property bag. Unknown keys are preserved and
// passed through unvalidated.
type Properties map[string]any

// Severity is the canonical severity of a normalized finding.
type Severity string

// The closed set of canonical severities. Any level that does not
// lower-case into this set is forced to SeverityUnknown.
const (
	SeverityError         Severity = "error"
	SeverityWarning       Severity = "warning"
	SeverityNote          Severity = "note"
	SeverityNone          Severity = "none"
	SeverityPass          Severity = "pass"
	SeverityOpen          Severity = "open"
	SeverityReview        Severity = "review"
	SeverityInformational Severity = "informational"
	SeverityUnknown       Severity = "unknown"
)

// Severities lists all canonical severities in display order.
var Severities = []Severity{
	SeverityError,
	SeverityWarning,
	SeverityNote,
	SeverityNone,
	SeverityPass,
	SeverityOpen,
	SeverityReview,
	SeverityInformational,
	SeverityUnknown,
}

// IsValid checks if the severity is one of the canonical values.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityError, SeverityWarning, SeverityNote, SeverityNone,
		SeverityPass, SeverityOpen, SeverityReview, SeverityInformational,
		SeverityUnknown:
		return true
	default:
		return false
	}
}

// String returns the severity as a string.
func (s Severity) String() string { return string(s) }
