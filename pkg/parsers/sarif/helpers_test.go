package sarif

import (
	"testing"
)

func intPtr(v int) *int { return &v }

func testFindings() []NormalizedFinding {
	return []NormalizedFinding{
		{
			RuleID:    "R1",
			Severity:  SeverityError,
			Message:   "a",
			DedupeKey: "key-1",
			Location:  &NormalizedLocation{File: "src/main.go", StartLine: intPtr(10), StartColumn: intPtr(5)},
		},
		{
			RuleID:    "R2",
			Severity:  SeverityWarning,
			Message:   "b",
			DedupeKey: "key-2",
			Location:  &NormalizedLocation{File: "src/util.py", StartLine: intPtr(3)},
		},
		{
			RuleID:    "R1",
			Severity:  SeverityError,
			Message:   "a",
			DedupeKey: "key-1",
			Location:  &NormalizedLocation{File: "src/main.go", StartLine: intPtr(10), StartColumn: intPtr(5)},
		},
		{
			RuleID:    "R3",
			Severity:  SeverityNote,
			Message:   "c",
			DedupeKey: "key-3",
		},
	}
}

func TestGroupByFile(t *testing.T) {
	grouped := GroupByFile(testFindings())
	if len(grouped["src/main.go"]) != 2 {
		t.Errorf("expected 2 findings in src/main.go, got %d", len(grouped["src/main.go"]))
	}
	if len(grouped["<unknown>"]) != 1 {
		t.Errorf("expected 1 finding without location, got %d", len(grouped["<unknown>"]))
	}
}

func TestGroupBySeverity(t *testing.T) {
	grouped := GroupBySeverity(testFindings())
	if len(grouped[SeverityError]) != 2 {
		t.Errorf("expected 2 errors, got %d", len(grouped[SeverityError]))
	}
	if len(grouped[SeverityNote]) != 1 {
		t.Errorf("expected 1 note, got %d", len(grouped[SeverityNote]))
	}
}

func TestFilterBySeverity(t *testing.T) {
	filtered := FilterBySeverity(testFindings(), SeverityError, SeverityNote)
	if len(filtered) != 3 {
		t.Fatalf("expected 3 findings, got %d", len(filtered))
	}
	for _, f := range filtered {
		if f.Severity == SeverityWarning {
			t.Error("expected warnings to be filtered out")
		}
	}
}

func TestFilterByExtension(t *testing.T) {
	filtered := FilterByExtension(testFindings(), ".go")
	if len(filtered) != 2 {
		t.Fatalf("expected 2 go findings, got %d", len(filtered))
	}
	filtered = FilterByExtension(testFindings(), "py")
	if len(filtered) != 1 {
		t.Errorf("expected extension without dot to match, got %d findings", len(filtered))
	}
}

func TestFilterByPath(t *testing.T) {
	filtered := FilterByPath(testFindings(), "src/")
	if len(filtered) != 3 {
		t.Errorf("expected 3 findings under src/, got %d", len(filtered))
	}
}

func TestDeduplicate(t *testing.T) {
	unique := Deduplicate(testFindings())
	if len(unique) != 3 {
		t.Fatalf("expected 3 unique findings, got %d", len(unique))
	}
	if unique[0].DedupeKey != "key-1" || unique[1].DedupeKey != "key-2" {
		t.Error("expected first occurrences kept in order")
	}
}

func TestAffectedFiles(t *testing.T) {
	files := AffectedFiles(testFindings())
	want := []string{"src/main.go", "src/util.py"}
	if len(files) != len(want) {
		t.Fatalf("expected %v, got %v", want, files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("expected %s at %d, got %s", want[i], i, files[i])
		}
	}
}

func TestUniqueRules(t *testing.T) {
	rules := UniqueRules(testFindings())
	if len(rules) != 3 {
		t.Errorf("expected 3 unique rules, got %v", rules)
	}
}

func TestFormatLocation(t *testing.T) {
	cases := []struct {
		name    string
		finding NormalizedFinding
		want    string
	}{
		{
			name: "file line column",
			finding: NormalizedFinding{Location: &NormalizedLocation{
				File: "a.go", StartLine: intPtr(10), StartColumn: intPtr(5),
			}},
			want: "a.go:10:5",
		},
		{
			name: "multi-line range",
			finding: NormalizedFinding{Location: &NormalizedLocation{
				File: "a.go", StartLine: intPtr(10), EndLine: intPtr(15), StartColumn: intPtr(5),
			}},
			want: "a.go:10-15:5",
		},
		{
			name:    "file only",
			finding: NormalizedFinding{Location: &NormalizedLocation{File: "a.go"}},
			want:    "a.go",
		},
		{
			name:    "no location",
			finding: NormalizedFinding{},
			want:    "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatLocation(&tc.finding); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestMergeDocuments(t *testing.T) {
	a := &NormalizedDocument{
		Metadata: Metadata{SarifVersion: "2.1.0", ToolNames: []string{"T1"}},
		Stats:    NewStats(),
		Findings: testFindings()[:2],
	}
	b := &NormalizedDocument{
		Metadata: Metadata{SarifVersion: "2.1.0", ToolNames: []string{"T2", "T1"}},
		Stats:    NewStats(),
		Findings: testFindings()[2:],
	}

	merged := MergeDocuments(a, nil, b)
	if merged.Stats.TotalFindings != 4 {
		t.Errorf("expected 4 findings, got %d", merged.Stats.TotalFindings)
	}
	if merged.Stats.BySeverity[SeverityError] != 2 {
		t.Errorf("expected 2 errors, got %d", merged.Stats.BySeverity[SeverityError])
	}
	if got := merged.Metadata.ToolNames; len(got) != 2 || got[0] != "T1" || got[1] != "T2" {
		t.Errorf("expected deduped tool names [T1 T2], got %v", got)
	}
}
