package sarif

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// fingerprintKeys are the named algorithms consulted, in priority order,
// when building the dedupe key. Only present values are included.
var fingerprintKeys = []string{
	"primaryLocationFingerprint",
	"primaryLocationFingerprint/v2",
}

// dedupeSep separates the dedupe key inputs. It never occurs in URIs or
// rule ids, so distinct field tuples cannot collide by concatenation.
const dedupeSep = "\x1f"

// Options configures a normalization call.
type Options struct {
	// FileName is the caller-supplied display name for the uploaded
	// document. It is never inferred from content.
	FileName string
}

// ToolSummary identifies the tool that produced a finding.
type ToolSummary struct {
	Name           string `json:"name"`
	Version        string `json:"version,omitempty"`
	InformationURI string `json:"informationUri,omitempty"`
}

// NormalizedLocation is the single primary location surfaced for a
// finding. Bounds are pointers: absent means the producer did not report
// them, which is distinct from line or column zero.
type NormalizedLocation struct {
	File        string `json:"file"`
	URIBaseID   string `json:"uriBaseId,omitempty"`
	StartLine   *int   `json:"startLine,omitempty"`
	StartColumn *int   `json:"startColumn,omitempty"`
	EndLine     *int   `json:"endLine,omitempty"`
	EndColumn   *int   `json:"endColumn,omitempty"`
	Snippet     string `json:"snippet,omitempty"`
}

// NormalizedFinding is the UI-ready representation of one SARIF result.
// It holds a copy of its source result but no reference to the run.
type NormalizedFinding struct {
	ID                  string              `json:"id"`
	RuleID              string              `json:"ruleId"`
	RuleName            string              `json:"ruleName,omitempty"`
	RuleDescription     string              `json:"ruleDescription,omitempty"`
	Severity            Severity            `json:"severity"`
	Message             string              `json:"message"`
	Tool                ToolSummary         `json:"tool"`
	Location            *NormalizedLocation `json:"location,omitempty"`
	Remediation         string              `json:"remediation,omitempty"`
	HelpURI             string              `json:"helpUri,omitempty"`
	Tags                []string            `json:"tags"`
	PartialFingerprints map[string]string   `json:"partialFingerprints,omitempty"`
	Fingerprints        map[string]string   `json:"fingerprints,omitempty"`
	Properties          Properties          `json:"properties,omitempty"`
	DedupeKey           string              `json:"dedupeKey"`
	Raw                 *Result             `json:"raw,omitempty"`
}

// Metadata describes the normalized document as a whole.
type Metadata struct {
	SarifVersion string    `json:"sarifVersion"`
	ToolNames    []string  `json:"toolNames"`
	UploadedAt   time.Time `json:"uploadedAt"`
	FileName     string    `json:"fileName,omitempty"`
}

// Stats holds aggregate finding counts. BySeverity always carries all
// nine canonical severities, zero-defaulted.
type Stats struct {
	TotalFindings int              `json:"totalFindings"`
	BySeverity    map[Severity]int `json:"bySeverity"`
}

// NewStats returns zeroed stats with every canonical severity present.
func NewStats() Stats {
	by := make(map[Severity]int, len(Severities))
	for _, s := range Severities {
		by[s] = 0
	}
	return Stats{BySeverity: by}
}

// NormalizedDocument is the output of one normalization call. Findings
// appear in run order, then result order within each run.
type NormalizedDocument struct {
	Metadata Metadata            `json:"metadata"`
	Stats    Stats               `json:"stats"`
	Findings []NormalizedFinding `json:"findings"`
}

// Normalize validates raw and converts it into a NormalizedDocument.
// Validation failures are propagated unchanged; on success every result
// in the document yields exactly one finding. Each call allocates an
// independent result graph, so Normalize is safe for concurrent use.
func Normalize(raw any, opts Options) (*NormalizedDocument, error) {
	doc, err := Validate(raw)
	if err != nil {
		return nil, err
	}

	out := &NormalizedDocument{
		Metadata: Metadata{
			SarifVersion: doc.Version,
			UploadedAt:   time.Now().UTC(),
			FileName:     opts.FileName,
		},
		Stats:    NewStats(),
		Findings: []NormalizedFinding{},
	}

	toolNames := newStringSet()

	for runIdx, run := range doc.Runs {
		driver := run.Tool.Driver
		toolNames.add(driver.Name)

		rules := newRuleLookup(driver.Rules)
		tool := ToolSummary{
			Name:           driver.Name,
			Version:        driver.Version,
			InformationURI: driver.InformationURI,
		}

		for resIdx := range run.Results {
			res := run.Results[resIdx]
			finding := normalizeResult(&res, rules, tool, runIdx, resIdx)
			out.Stats.BySeverity[finding.Severity]++
			out.Findings = append(out.Findings, finding)
		}
	}

	out.Metadata.ToolNames = toolNames.values()
	out.Stats.TotalFindings = len(out.Findings)
	return out, nil
}

// NormalizeBytes normalizes a raw JSON payload.
func NormalizeBytes(data []byte, opts Options) (*NormalizedDocument, error) {
	return Normalize(data, opts)
}

// normalizeResult builds one finding from one result.
func normalizeResult(res *Result, rules *ruleLookup, tool ToolSummary, runIdx, resIdx int) NormalizedFinding {
	rule := rules.resolve(res)

	severity := resolveSeverity(res, rule)
	message := messageText(res.Message)
	location := resolveLocation(res.Locations)

	finding := NormalizedFinding{
		ID:                  resolveID(res, rule, runIdx, resIdx),
		RuleID:              res.RuleID,
		Severity:            severity,
		Message:             message,
		Tool:                tool,
		Location:            location,
		Remediation:         resolveRemediation(res, rule),
		Tags:                resolveTags(res, rule),
		PartialFingerprints: res.PartialFingerprints,
		Fingerprints:        res.Fingerprints,
		Properties:          res.Properties,
		Raw:                 res,
	}

	if rule != nil {
		if finding.RuleID == "" {
			finding.RuleID = rule.ID
		}
		finding.RuleName = rule.Name
		finding.RuleDescription = multiformatText(rule.ShortDescription, rule.FullDescription)
		finding.HelpURI = rule.HelpURI
	}

	finding.DedupeKey = dedupeKey(&finding)
	return finding
}

// resolveSeverity canonicalizes the severity of a result: the result's
// own level wins, then the resolved rule's default level, then its
// default severity, then "unknown". Anything outside the canonical set
// is forced to "unknown".
func resolveSeverity(res *Result, rule *Rule) Severity {
	candidates := []string{res.Level}
	if rule != nil && rule.DefaultConfiguration != nil {
		candidates = append(candidates, rule.DefaultConfiguration.Level, rule.DefaultConfiguration.Severity)
	}

	raw := firstNonEmpty(candidates...)
	if raw == "" {
		return SeverityUnknown
	}
	sev := Severity(strings.ToLower(raw))
	if !sev.IsValid() {
		return SeverityUnknown
	}
	return sev
}

// messageText resolves a message with the text-then-markdown preference.
// A message with neither yields an empty string, never an error.
func messageText(m *Message) string {
	if m == nil {
		return ""
	}
	return firstNonEmpty(m.Text, m.Markdown)
}

// multiformatText resolves the first non-empty multiformat message,
// preferring text over markdown within each candidate.
func multiformatText(candidates ...*MultiformatMessageString) string {
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if s := firstNonEmpty(c.Text, c.Markdown); s != "" {
			return s
		}
	}
	return ""
}

// resolveLocation surfaces only the first location entry. Later entries
// and relatedLocations are deliberately not surfaced.
func resolveLocation(locations []Location) *NormalizedLocation {
	if len(locations) == 0 {
		return nil
	}
	phys := locations[0].PhysicalLocation
	if phys == nil {
		return nil
	}

	loc := &NormalizedLocation{}
	if art := phys.ArtifactLocation; art != nil {
		loc.File = art.URI
		loc.URIBaseID = art.URIBaseID
	}
	if region := phys.Region; region != nil {
		loc.StartLine = positiveInt(region.StartLine)
		loc.StartColumn = positiveInt(region.StartColumn)
		loc.EndLine = positiveInt(region.EndLine)
		loc.EndColumn = positiveInt(region.EndColumn)
		if region.Snippet != nil {
			loc.Snippet = region.Snippet.Text
		}
	}
	return loc
}

// resolveRemediation prefers the first fix's description, then the
// resolved rule's help message.
func resolveRemediation(res *Result, rule *Rule) string {
	if len(res.Fixes) > 0 {
		if s := messageText(res.Fixes[0].Description); s != "" {
			return s
		}
	}
	if rule != nil {
		return multiformatText(rule.Help)
	}
	return ""
}

// resolveTags unions the result's and the resolved rule's properties.tags,
// coerced to string sets. Duplicates across the two sources collapse;
// first-seen order is preserved for display.
func resolveTags(res *Result, rule *Rule) []string {
	set := newStringSet()
	set.addAll(coerceTags(res.Properties))
	if rule != nil {
		set.addAll(coerceTags(rule.Properties))
	}
	return set.values()
}

// coerceTags extracts properties.tags as a string slice: a bare string
// is a single tag, a sequence keeps only its string elements, anything
// else yields nothing.
func coerceTags(props Properties) []string {
	if props == nil {
		return nil
	}
	switch v := props["tags"].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		tags := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				tags = append(tags, s)
			}
		}
		return tags
	default:
		return nil
	}
}

// resolveID picks the finding identity: the result's own id, then its
// guid, then a synthesized run/result/rule triple that is unique within
// one normalization call.
func resolveID(res *Result, rule *Rule, runIdx, resIdx int) string {
	if res.ID != "" {
		return res.ID
	}
	if res.GUID != "" {
		return res.GUID
	}
	ruleID := res.RuleID
	if ruleID == "" && rule != nil {
		ruleID = rule.ID
	}
	if ruleID == "" {
		ruleID = "unknown"
	}
	return strconv.Itoa(runIdx) + "-" + strconv.Itoa(resIdx) + "-" + ruleID
}

// dedupeKey derives the content fingerprint consumed downstream as an
// equality token. The digest is stable across runs and platforms.
func dedupeKey(f *NormalizedFinding) string {
	ruleID := f.RuleID
	if ruleID == "" {
		ruleID = "unknown"
	}

	var file, startLine, startCol string
	if f.Location != nil {
		file = f.Location.File
		if f.Location.StartLine != nil {
			startLine = strconv.Itoa(*f.Location.StartLine)
		}
		if f.Location.StartColumn != nil {
			startCol = strconv.Itoa(*f.Location.StartColumn)
		}
	}

	candidates := make([]string, 0, 4)
	for _, key := range fingerprintKeys {
		if v, ok := f.PartialFingerprints[key]; ok {
			candidates = append(candidates, v)
		}
	}
	for _, key := range fingerprintKeys {
		if v, ok := f.Fingerprints[key]; ok {
			candidates = append(candidates, v)
		}
	}
	// Present values only, priority order; missing values are omitted
	// rather than serialized as nulls.
	serialized, _ := json.Marshal(candidates)

	h := sha256.New()
	for i, part := range []string{
		ruleID,
		f.Severity.String(),
		f.Message,
		file,
		startLine,
		startCol,
		string(serialized),
	} {
		if i > 0 {
			h.Write([]byte(dedupeSep))
		}
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ruleLookup indexes a run's rule list by id. The first occurrence of a
// duplicated id wins; insertion order of distinct ids backs the
// positional ruleIndex fallback.
type ruleLookup struct {
	byID  map[string]*Rule
	order []*Rule
}

func newRuleLookup(rules []Rule) *ruleLookup {
	l := &ruleLookup{byID: make(map[string]*Rule, len(rules))}
	for i := range rules {
		rule := &rules[i]
		if _, seen := l.byID[rule.ID]; seen {
			continue
		}
		l.byID[rule.ID] = rule
		l.order = append(l.order, rule)
	}
	return l
}

// resolve finds the rule definition for a result. A known ruleId wins
// over ruleIndex; ruleIndex falls back to the insertion order of the
// deduped lookup, which diverges from the raw list when duplicate ids
// were collapsed.
func (l *ruleLookup) resolve(res *Result) *Rule {
	if res.RuleID != "" {
		if rule, ok := l.byID[res.RuleID]; ok {
			return rule
		}
	}
	if res.RuleIndex != nil {
		idx := *res.RuleIndex
		if idx >= 0 && idx < len(l.order) {
			return l.order[idx]
		}
	}
	return nil
}

// stringSet is an insertion-ordered set of strings.
type stringSet struct {
	seen  map[string]struct{}
	items []string
}

func newStringSet() *stringSet {
	return &stringSet{seen: make(map[string]struct{})}
}

func (s *stringSet) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

func (s *stringSet) addAll(vs []string) {
	for _, v := range vs {
		s.add(v)
	}
}

func (s *stringSet) values() []string {
	if s.items == nil {
		return []string{}
	}
	return s.items
}

// firstNonEmpty returns the first non-empty candidate, keeping the
// precedence chains auditable in one place.
func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

func positiveInt(v int) *int {
	if v <= 0 {
		return nil
	}
	return &v
}
