/*
Package sarif validates SARIF (Static Analysis Results Interchange
Format) 2.1.0 documents and normalizes them into flat,
presentation-ready findings.

SARIF is an OASIS standard format for the output of static analysis
tools, defined at:
https://docs.oasis-open.org/sarif/sarif/v2.1.0/sarif-v2.1.0.html

# Validation

Validate checks the structural prerequisites of a document without
rejecting unknown fields or tool-specific extensions:

	doc, err := sarif.Validate(data)
	if err != nil {
		var schemaErr *sarif.SchemaError
		if errors.As(err, &schemaErr) {
			for _, f := range schemaErr.Fields {
				fmt.Println(f.Path, f.Constraint)
			}
		}
	}

Three failure classes are distinguished:

	sarif.ErrEmptyInput  - nil or blank input
	sarif.ErrInvalidJSON - the payload is not parseable JSON
	sarif.ErrSchema      - parseable JSON that violates the SARIF shape

Schema failures enumerate every violated field in one error, with
dot-joined paths such as "runs.0.tool.driver.name". A failure at the
document root reports the path "<root>".

# Normalization

Normalize validates and then flattens every result into a
NormalizedFinding carrying a canonical severity, resolved rule
metadata, a single primary location, and a content-derived dedupe key:

	out, err := sarif.Normalize(data, sarif.Options{FileName: "scan.sarif"})
	if err != nil {
		return err
	}
	for _, f := range out.Findings {
		fmt.Printf("[%s] %s: %s\n", f.Severity, f.RuleID, f.Message)
	}
	fmt.Printf("%d findings from %v\n", out.Stats.TotalFindings, out.Metadata.ToolNames)

Findings appear in run order, then result order within each run. Every
result yields exactly one finding; normalization filters nothing.

# Severities

Result levels and rule default configurations canonicalize into nine
lowercase severities:

	error, warning, note, none, pass, open, review, informational, unknown

Unrecognized or absent values map to "unknown". Stats.BySeverity always
carries all nine keys, zero-defaulted, so consumers can iterate without
nil checks.

# Dedupe Keys

Each finding carries a DedupeKey, a lowercase hex SHA-256 digest over
the rule id, severity, message, primary file, start position, and any
tool-supplied fingerprints. Two findings with equal keys describe the
same underlying issue; the digest is stable across runs and platforms.

# Thread Safety

Validate and Normalize allocate independent result graphs on each call
and are safe for concurrent use. The returned documents are plain data
and should not be mutated concurrently.

# Supported Tools

The permissive validation model accepts SARIF 2.1.0 output from CodeQL,
Semgrep, Trivy, Bandit, Checkov, KICS, Tfsec, ESLint (with the SARIF
reporter), and other producers that emit the standard shape.
*/
package sarif
