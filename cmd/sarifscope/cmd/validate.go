package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarifscope/api/pkg/parsers/sarif"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Validate SARIF files against the ingestion schema",
	Long: `Validate checks each file against the permissive SARIF 2.1.0 schema
used by the ingestion API and reports every violation found.

Exits with a non-zero status if any file is invalid.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

// fileValidation is the per-file validation outcome.
type fileValidation struct {
	File       string             `json:"file" yaml:"file"`
	Valid      bool               `json:"valid" yaml:"valid"`
	Error      string             `json:"error,omitempty" yaml:"error,omitempty"`
	Violations []sarif.FieldError `json:"violations,omitempty" yaml:"violations,omitempty"`
}

func runValidate(_ *cobra.Command, args []string) error {
	results := make([]fileValidation, 0, len(args))
	failed := false

	for _, file := range args {
		result := fileValidation{File: file, Valid: true}

		data, err := os.ReadFile(file)
		if err != nil {
			result.Valid = false
			result.Error = err.Error()
		} else if _, err := sarif.ValidateBytes(data); err != nil {
			result.Valid = false
			result.Error = err.Error()
			var schemaErr *sarif.SchemaError
			if errors.As(err, &schemaErr) {
				result.Violations = schemaErr.Fields
			}
		}

		if !result.Valid {
			failed = true
		}
		results = append(results, result)
	}

	switch flagOutput {
	case outputJSON:
		printJSON(results)
	case outputYAML:
		printYAML(results)
	default:
		printValidationTable(results)
	}

	if failed {
		return fmt.Errorf("validation failed")
	}
	return nil
}

func printValidationTable(results []fileValidation) {
	t := newTable("FILE", "VALID", "PROBLEM")
	for _, r := range results {
		problem := ""
		switch {
		case len(r.Violations) > 0:
			problem = fmt.Sprintf("%s (%d violations)", r.Violations[0].String(), len(r.Violations))
		case r.Error != "":
			problem = r.Error
		}
		t.AddRow(r.File, fmt.Sprintf("%t", r.Valid), truncate(problem, 80))
	}
	t.Flush()

	if flagVerbose {
		for _, r := range results {
			for _, v := range r.Violations {
				fmt.Printf("%s: %s\n", r.File, v.String())
			}
		}
	}
}
