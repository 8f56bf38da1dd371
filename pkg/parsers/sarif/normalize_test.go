package sarif

import (
	"errors"
	"fmt"
	"testing"
)

var scannerSARIF = `{
  "version": "2.1.0",
  "runs": [
    {
      "tool": {
        "driver": {
          "name": "ExampleScanner",
          "version": "3.2.1",
          "informationUri": "https://example.com/scanner",
          "rules": [
            {
              "id": "RULE1",
              "name": "hardcoded-secret",
              "shortDescription": {
                "text": "Hardcoded secret detected"
              },
              "help": {
                "text": "Move the secret into a vault."
              },
              "helpUri": "https://example.com/rules/RULE1",
              "defaultConfiguration": {
                "level": "warning"
              },
              "properties": {
                "tags": ["security", "secrets"]
              }
            }
          ]
        }
      },
      "results": [
        {
          "ruleId": "RULE1",
          "message": {
            "text": "API key committed to source"
          },
          "locations": [
            {
              "physicalLocation": {
                "artifactLocation": {
                  "uri": "cmd/server/main.go"
                },
                "region": {
                  "startLine": 42,
                  "startColumn": 7,
                  "endLine": 42,
                  "endColumn": 39
                }
              }
            }
          ],
          "partialFingerprints": {
            "primaryLocationFingerprint": "abc123"
          },
          "properties": {
            "tags": ["credentials"]
          }
        }
      ]
    }
  ]
}`

func TestNormalize(t *testing.T) {
	out, err := Normalize([]byte(scannerSARIF), Options{FileName: "scan.sarif"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("metadata", func(t *testing.T) {
		if out.Metadata.SarifVersion != "2.1.0" {
			t.Errorf("expected sarif version 2.1.0, got %s", out.Metadata.SarifVersion)
		}
		if len(out.Metadata.ToolNames) != 1 || out.Metadata.ToolNames[0] != "ExampleScanner" {
			t.Errorf("expected tool names [ExampleScanner], got %v", out.Metadata.ToolNames)
		}
		if out.Metadata.FileName != "scan.sarif" {
			t.Errorf("expected file name scan.sarif, got %s", out.Metadata.FileName)
		}
		if out.Metadata.UploadedAt.IsZero() {
			t.Error("expected uploadedAt to be set")
		}
	})

	t.Run("stats", func(t *testing.T) {
		if out.Stats.TotalFindings != 1 {
			t.Fatalf("expected 1 finding, got %d", out.Stats.TotalFindings)
		}
		if len(out.Stats.BySeverity) != len(Severities) {
			t.Errorf("expected %d severity keys, got %d", len(Severities), len(out.Stats.BySeverity))
		}
		if out.Stats.BySeverity[SeverityWarning] != 1 {
			t.Errorf("expected 1 warning, got %d", out.Stats.BySeverity[SeverityWarning])
		}
		if out.Stats.BySeverity[SeverityError] != 0 {
			t.Errorf("expected 0 errors, got %d", out.Stats.BySeverity[SeverityError])
		}
	})

	t.Run("finding", func(t *testing.T) {
		f := out.Findings[0]
		if f.RuleID != "RULE1" {
			t.Errorf("expected rule id RULE1, got %s", f.RuleID)
		}
		if f.RuleName != "hardcoded-secret" {
			t.Errorf("expected rule name hardcoded-secret, got %s", f.RuleName)
		}
		if f.RuleDescription != "Hardcoded secret detected" {
			t.Errorf("expected short description, got %s", f.RuleDescription)
		}
		if f.Severity != SeverityWarning {
			t.Errorf("expected severity warning from rule default, got %s", f.Severity)
		}
		if f.Message != "API key committed to source" {
			t.Errorf("unexpected message: %s", f.Message)
		}
		if f.Tool.Name != "ExampleScanner" || f.Tool.Version != "3.2.1" {
			t.Errorf("unexpected tool summary: %+v", f.Tool)
		}
		if f.Remediation != "Move the secret into a vault." {
			t.Errorf("expected rule help as remediation, got %s", f.Remediation)
		}
		if f.HelpURI != "https://example.com/rules/RULE1" {
			t.Errorf("unexpected help uri: %s", f.HelpURI)
		}
		if f.ID != "0-0-RULE1" {
			t.Errorf("expected synthesized id 0-0-RULE1, got %s", f.ID)
		}
		if len(f.DedupeKey) != 64 {
			t.Errorf("expected 64-char hex dedupe key, got %q", f.DedupeKey)
		}
	})

	t.Run("location", func(t *testing.T) {
		loc := out.Findings[0].Location
		if loc == nil {
			t.Fatal("expected a location")
		}
		if loc.File != "cmd/server/main.go" {
			t.Errorf("expected file cmd/server/main.go, got %s", loc.File)
		}
		if loc.StartLine == nil || *loc.StartLine != 42 {
			t.Errorf("expected start line 42, got %v", loc.StartLine)
		}
		if loc.EndColumn == nil || *loc.EndColumn != 39 {
			t.Errorf("expected end column 39, got %v", loc.EndColumn)
		}
	})

	t.Run("tags union", func(t *testing.T) {
		tags := out.Findings[0].Tags
		want := []string{"credentials", "security", "secrets"}
		if len(tags) != len(want) {
			t.Fatalf("expected tags %v, got %v", want, tags)
		}
		for i, tag := range want {
			if tags[i] != tag {
				t.Errorf("expected tag %s at %d, got %s", tag, i, tags[i])
			}
		}
	})

	t.Run("validation errors propagate", func(t *testing.T) {
		if _, err := Normalize(nil, Options{}); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("expected ErrEmptyInput, got: %v", err)
		}
		_, err := Normalize([]byte(`{}`), Options{})
		if !errors.Is(err, ErrSchema) {
			t.Errorf("expected ErrSchema, got: %v", err)
		}
	})
}

func TestNormalize_Severity(t *testing.T) {
	cases := []struct {
		name   string
		result string
		rules  string
		want   Severity
	}{
		{
			name:   "result level wins",
			result: `{"ruleId": "R1", "level": "error", "message": {"text": "m"}}`,
			rules:  `[{"id": "R1", "defaultConfiguration": {"level": "note"}}]`,
			want:   SeverityError,
		},
		{
			name:   "uppercase folds to lowercase",
			result: `{"ruleId": "R1", "level": "WARNING", "message": {"text": "m"}}`,
			rules:  `[]`,
			want:   SeverityWarning,
		},
		{
			name:   "rule default level fallback",
			result: `{"ruleId": "R1", "message": {"text": "m"}}`,
			rules:  `[{"id": "R1", "defaultConfiguration": {"level": "note"}}]`,
			want:   SeverityNote,
		},
		{
			name:   "rule default severity fallback",
			result: `{"ruleId": "R1", "message": {"text": "m"}}`,
			rules:  `[{"id": "R1", "defaultConfiguration": {"severity": "informational"}}]`,
			want:   SeverityInformational,
		},
		{
			name:   "unrecognized value maps to unknown",
			result: `{"ruleId": "R1", "level": "critical", "message": {"text": "m"}}`,
			rules:  `[]`,
			want:   SeverityUnknown,
		},
		{
			name:   "no level and no rule maps to unknown",
			result: `{"ruleId": "R9", "message": {"text": "m"}}`,
			rules:  `[]`,
			want:   SeverityUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := `{
  "version": "2.1.0",
  "runs": [
    {
      "tool": {
        "driver": {
          "name": "T",
          "rules": ` + tc.rules + `
        }
      },
      "results": [` + tc.result + `]
    }
  ]
}`
			out, err := Normalize([]byte(input), Options{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := out.Findings[0].Severity; got != tc.want {
				t.Errorf("expected severity %s, got %s", tc.want, got)
			}
		})
	}
}

func TestNormalize_CountInvariant(t *testing.T) {
	input := `{
  "version": "2.1.0",
  "runs": [
    {
      "tool": {"driver": {"name": "T"}},
      "results": [
        {"ruleId": "R1", "level": "error", "message": {"text": "a"}},
        {"ruleId": "R2", "level": "banana", "message": {"text": "b"}},
        {"ruleId": "R3", "message": {"text": "c"}},
        {"ruleId": "R1", "level": "error", "message": {"text": "d"}}
      ]
    }
  ]
}`
	out, err := Normalize([]byte(input), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.Stats.TotalFindings != len(out.Findings) {
		t.Errorf("totalFindings %d does not match findings length %d",
			out.Stats.TotalFindings, len(out.Findings))
	}

	sum := 0
	for _, n := range out.Stats.BySeverity {
		sum += n
	}
	if sum != len(out.Findings) {
		t.Errorf("severity counts sum to %d, expected %d", sum, len(out.Findings))
	}

	if out.Stats.BySeverity[SeverityError] != 2 {
		t.Errorf("expected 2 error findings, got %d", out.Stats.BySeverity[SeverityError])
	}
	if out.Stats.BySeverity[SeverityUnknown] != 2 {
		t.Errorf("expected 2 unknown findings, got %d", out.Stats.BySeverity[SeverityUnknown])
	}
}

func TestNormalize_RuleResolution(t *testing.T) {
	t.Run("ruleIndex fallback", func(t *testing.T) {
		input := `{
  "version": "2.1.0",
  "runs": [
    {
      "tool": {
        "driver": {
          "name": "T",
          "rules": [
            {"id": "R1", "name": "first"},
            {"id": "R2", "name": "second"}
          ]
        }
      },
      "results": [
        {"ruleIndex": 1, "message": {"text": "m"}}
      ]
    }
  ]
}`
		out, err := Normalize([]byte(input), Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		f := out.Findings[0]
		if f.RuleName != "second" {
			t.Errorf("expected rule resolved by index, got name %s", f.RuleName)
		}
		if f.RuleID != "R2" {
			t.Errorf("expected rule id filled from resolved rule, got %s", f.RuleID)
		}
	})

	t.Run("duplicate rule ids collapse first wins", func(t *testing.T) {
		input := `{
  "version": "2.1.0",
  "runs": [
    {
      "tool": {
        "driver": {
          "name": "T",
          "rules": [
            {"id": "R1", "name": "first"},
            {"id": "R1", "name": "shadowed"},
            {"id": "R2", "name": "second"}
          ]
        }
      },
      "results": [
        {"ruleId": "R1", "message": {"text": "a"}},
        {"ruleIndex": 1, "message": {"text": "b"}}
      ]
    }
  ]
}`
		out, err := Normalize([]byte(input), Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Findings[0].RuleName != "first" {
			t.Errorf("expected first definition to win, got %s", out.Findings[0].RuleName)
		}
		// Index 1 addresses the deduplicated ordering, where R2 is second.
		if out.Findings[1].RuleName != "second" {
			t.Errorf("expected index into deduped order, got %s", out.Findings[1].RuleName)
		}
	})

	t.Run("ruleId wins over ruleIndex", func(t *testing.T) {
		input := `{
  "version": "2.1.0",
  "runs": [
    {
      "tool": {
        "driver": {
          "name": "T",
          "rules": [
            {"id": "R1", "name": "first"},
            {"id": "R2", "name": "second"}
          ]
        }
      },
      "results": [
        {"ruleId": "R2", "ruleIndex": 0, "message": {"text": "m"}}
      ]
    }
  ]
}`
		out, err := Normalize([]byte(input), Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		f := out.Findings[0]
		if f.RuleID != "R2" {
			t.Errorf("expected ruleId lookup, got %s", f.RuleID)
		}
		if f.RuleName != "second" {
			t.Errorf("expected rule resolved by id, not index, got name %s", f.RuleName)
		}
	})

	t.Run("out of range ruleIndex resolves to nothing", func(t *testing.T) {
		input := `{
  "version": "2.1.0",
  "runs": [
    {
      "tool": {
        "driver": {
          "name": "T",
          "rules": [{"id": "R1"}]
        }
      },
      "results": [
        {"ruleIndex": 5, "message": {"text": "m"}}
      ]
    }
  ]
}`
		out, err := Normalize([]byte(input), Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		f := out.Findings[0]
		if f.RuleName != "" || f.HelpURI != "" {
			t.Errorf("expected no rule metadata, got %+v", f)
		}
		if f.Severity != SeverityUnknown {
			t.Errorf("expected unknown severity, got %s", f.Severity)
		}
	})
}

func TestNormalize_Messages(t *testing.T) {
	t.Run("markdown fallback", func(t *testing.T) {
		input := `{
  "version": "2.1.0",
  "runs": [
    {
      "tool": {"driver": {"name": "T"}},
      "results": [
        {"ruleId": "R1", "message": {"markdown": "**bold** issue"}}
      ]
    }
  ]
}`
		out, err := Normalize([]byte(input), Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Findings[0].Message != "**bold** issue" {
			t.Errorf("expected markdown fallback, got %s", out.Findings[0].Message)
		}
	})

	t.Run("empty message object yields empty string", func(t *testing.T) {
		input := `{
  "version": "2.1.0",
  "runs": [
    {
      "tool": {"driver": {"name": "T"}},
      "results": [
        {"ruleId": "R1", "message": {}}
      ]
    }
  ]
}`
		out, err := Normalize([]byte(input), Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Findings[0].Message != "" {
			t.Errorf("expected empty message, got %q", out.Findings[0].Message)
		}
	})
}

func TestNormalize_Locations(t *testing.T) {
	t.Run("only first location surfaces", func(t *testing.T) {
		input := `{
  "version": "2.1.0",
  "runs": [
    {
      "tool": {"driver": {"name": "T"}},
      "results": [
        {
          "ruleId": "R1",
          "message": {"text": "m"},
          "locations": [
            {"physicalLocation": {"artifactLocation": {"uri": "a.go"}}},
            {"physicalLocation": {"artifactLocation": {"uri": "b.go"}}}
          ]
        }
      ]
    }
  ]
}`
		out, err := Normalize([]byte(input), Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		loc := out.Findings[0].Location
		if loc == nil || loc.File != "a.go" {
			t.Errorf("expected first location a.go, got %+v", loc)
		}
	})

	t.Run("no locations yields nil", func(t *testing.T) {
		input := `{
  "version": "2.1.0",
  "runs": [
    {
      "tool": {"driver": {"name": "T"}},
      "results": [
        {"ruleId": "R1", "message": {"text": "m"}}
      ]
    }
  ]
}`
		out, err := Normalize([]byte(input), Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Findings[0].Location != nil {
			t.Errorf("expected nil location, got %+v", out.Findings[0].Location)
		}
	})

	t.Run("missing region leaves bounds nil", func(t *testing.T) {
		input := `{
  "version": "2.1.0",
  "runs": [
    {
      "tool": {"driver": {"name": "T"}},
      "results": [
        {
          "ruleId": "R1",
          "message": {"text": "m"},
          "locations": [
            {"physicalLocation": {"artifactLocation": {"uri": "a.go"}}}
          ]
        }
      ]
    }
  ]
}`
		out, err := Normalize([]byte(input), Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		loc := out.Findings[0].Location
		if loc.StartLine != nil || loc.EndColumn != nil {
			t.Errorf("expected nil bounds, got %+v", loc)
		}
	})
}

func TestNormalize_Remediation(t *testing.T) {
	input := `{
  "version": "2.1.0",
  "runs": [
    {
      "tool": {
        "driver": {
          "name": "T",
          "rules": [
            {"id": "R1", "help": {"text": "rule help"}}
          ]
        }
      },
      "results": [
        {
          "ruleId": "R1",
          "message": {"text": "m"},
          "fixes": [
            {"description": {"text": "apply the patch"}}
          ]
        },
        {"ruleId": "R1", "message": {"text": "m"}}
      ]
    }
  ]
}`
	out, err := Normalize([]byte(input), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Findings[0].Remediation != "apply the patch" {
		t.Errorf("expected fix description to win, got %s", out.Findings[0].Remediation)
	}
	if out.Findings[1].Remediation != "rule help" {
		t.Errorf("expected rule help fallback, got %s", out.Findings[1].Remediation)
	}
}

func TestNormalize_TagCoercion(t *testing.T) {
	input := `{
  "version": "2.1.0",
  "runs": [
    {
      "tool": {"driver": {"name": "T"}},
      "results": [
        {
          "ruleId": "R1",
          "message": {"text": "m"},
          "properties": {"tags": "single"}
        },
        {
          "ruleId": "R2",
          "message": {"text": "m"},
          "properties": {"tags": ["a", 42, "b", null]}
        },
        {
          "ruleId": "R3",
          "message": {"text": "m"},
          "properties": {"tags": {"not": "a list"}}
        }
      ]
    }
  ]
}`
	out, err := Normalize([]byte(input), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tags := out.Findings[0].Tags; len(tags) != 1 || tags[0] != "single" {
		t.Errorf("expected bare string as one tag, got %v", tags)
	}
	if tags := out.Findings[1].Tags; len(tags) != 2 || tags[0] != "a" || tags[1] != "b" {
		t.Errorf("expected non-strings dropped, got %v", tags)
	}
	if tags := out.Findings[2].Tags; len(tags) != 0 {
		t.Errorf("expected no tags from a non-sequence, got %v", tags)
	}
	if out.Findings[0].Tags == nil {
		t.Error("expected tags to be an empty slice, never nil")
	}
}

func TestNormalize_IDs(t *testing.T) {
	input := `{
  "version": "2.1.0",
  "runs": [
    {
      "tool": {"driver": {"name": "T"}},
      "results": [
        {"ruleId": "R1", "id": "explicit-id", "guid": "g-1", "message": {"text": "m"}},
        {"ruleId": "R1", "guid": "g-2", "message": {"text": "m"}},
        {"ruleId": "R1", "message": {"text": "m"}},
        {"message": {"text": "m"}}
      ]
    },
    {
      "tool": {"driver": {"name": "T2"}},
      "results": [
        {"ruleId": "R9", "message": {"text": "m"}}
      ]
    }
  ]
}`
	out, err := Normalize([]byte(input), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"explicit-id", "g-2", "0-2-R1", "0-3-unknown", "1-0-R9"}
	for i, id := range want {
		if out.Findings[i].ID != id {
			t.Errorf("finding %d: expected id %s, got %s", i, id, out.Findings[i].ID)
		}
	}
	if got := out.Metadata.ToolNames; len(got) != 2 || got[0] != "T" || got[1] != "T2" {
		t.Errorf("expected distinct ordered tool names, got %v", got)
	}
}

func TestNormalize_DedupeKey(t *testing.T) {
	base := `{
  "version": "2.1.0",
  "runs": [
    {
      "tool": {"driver": {"name": "T"}},
      "results": [
        {
          "ruleId": "R1",
          "level": "error",
          "message": {"text": "%s"},
          "locations": [
            {
              "physicalLocation": {
                "artifactLocation": {"uri": "a.go"},
                "region": {"startLine": 1, "startColumn": 2}
              }
            }
          ]%s
        }
      ]
    }
  ]
}`

	normalize := func(t *testing.T, msg, extra string) NormalizedFinding {
		t.Helper()
		input := []byte(fmt.Sprintf(base, msg, extra))
		out, err := Normalize(input, Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return out.Findings[0]
	}

	t.Run("deterministic", func(t *testing.T) {
		a := normalize(t, "same", "")
		b := normalize(t, "same", "")
		if a.DedupeKey != b.DedupeKey {
			t.Errorf("expected identical keys, got %s vs %s", a.DedupeKey, b.DedupeKey)
		}
	})

	t.Run("message changes the key", func(t *testing.T) {
		a := normalize(t, "one", "")
		b := normalize(t, "two", "")
		if a.DedupeKey == b.DedupeKey {
			t.Error("expected different keys for different messages")
		}
	})

	t.Run("fingerprints change the key", func(t *testing.T) {
		a := normalize(t, "same", "")
		b := normalize(t, "same", `,
          "partialFingerprints": {"primaryLocationFingerprint": "fp"}`)
		if a.DedupeKey == b.DedupeKey {
			t.Error("expected fingerprints to contribute to the key")
		}
	})

	t.Run("unrelated fingerprint names are ignored", func(t *testing.T) {
		a := normalize(t, "same", "")
		b := normalize(t, "same", `,
          "partialFingerprints": {"someOtherAlgorithm/v1": "fp"}`)
		if a.DedupeKey != b.DedupeKey {
			t.Error("expected unrecognized fingerprint names to be ignored")
		}
	})
}

func TestNormalize_EmptyDocument(t *testing.T) {
	out, err := Normalize([]byte(`{"version": "2.1.0", "runs": []}`), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Stats.TotalFindings != 0 {
		t.Errorf("expected 0 findings, got %d", out.Stats.TotalFindings)
	}
	if out.Findings == nil {
		t.Error("expected findings to be an empty slice, never nil")
	}
	if len(out.Stats.BySeverity) != len(Severities) {
		t.Errorf("expected all severities present, got %d keys", len(out.Stats.BySeverity))
	}
	for _, s := range Severities {
		if out.Stats.BySeverity[s] != 0 {
			t.Errorf("expected zero count for %s", s)
		}
	}
}
