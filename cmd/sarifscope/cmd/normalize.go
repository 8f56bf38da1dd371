package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sarifscope/api/pkg/parsers/sarif"
)

var (
	flagMinSeverity string
	flagSeverities  []string
	flagPathPrefix  string
	flagExtensions  []string
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <file>",
	Short: "Normalize a SARIF file into canonical findings",
	Long: `Normalize converts a SARIF report into the flat finding model used
by the ingestion API: one finding per result, with resolved rule
metadata, canonical severity, primary location and dedupe key.`,
	Args: cobra.ExactArgs(1),
	RunE: runNormalize,
}

func init() {
	normalizeCmd.Flags().StringVar(&flagMinSeverity, "min-severity", "", "Only show findings at or above this severity score (error, warning, note)")
	normalizeCmd.Flags().StringSliceVar(&flagSeverities, "severity", nil, "Only show findings with these exact severities (repeatable)")
	normalizeCmd.Flags().StringVar(&flagPathPrefix, "path-prefix", "", "Only show findings under this file path prefix")
	normalizeCmd.Flags().StringSliceVar(&flagExtensions, "ext", nil, "Only show findings in files with these extensions (repeatable)")
}

func runNormalize(_ *cobra.Command, args []string) error {
	file := args[0]
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	doc, err := sarif.NormalizeBytes(data, sarif.Options{FileName: filepath.Base(file)})
	if err != nil {
		return err
	}

	findings := doc.Findings
	if flagMinSeverity != "" {
		min := sarif.Severity(flagMinSeverity)
		if !min.IsValid() {
			return fmt.Errorf("unknown severity: %s", flagMinSeverity)
		}
		threshold := sarif.SeverityScore(min)
		kept := findings[:0]
		for _, f := range findings {
			if sarif.SeverityScore(f.Severity) >= threshold {
				kept = append(kept, f)
			}
		}
		findings = kept
	}
	if len(flagSeverities) > 0 {
		sevs := make([]sarif.Severity, 0, len(flagSeverities))
		for _, s := range flagSeverities {
			sev := sarif.Severity(s)
			if !sev.IsValid() {
				return fmt.Errorf("unknown severity: %s", s)
			}
			sevs = append(sevs, sev)
		}
		findings = sarif.FilterBySeverity(findings, sevs...)
	}
	if flagPathPrefix != "" {
		findings = sarif.FilterByPath(findings, flagPathPrefix)
	}
	if len(flagExtensions) > 0 {
		findings = sarif.FilterByExtension(findings, flagExtensions...)
	}
	doc.Findings = findings

	switch flagOutput {
	case outputJSON:
		printJSON(doc)
	case outputYAML:
		printYAML(doc)
	default:
		printFindingsTable(findings)
		fmt.Printf("\n%d findings from %s (SARIF %s)\n",
			len(findings), doc.Metadata.FileName, doc.Metadata.SarifVersion)
	}

	return nil
}

func printFindingsTable(findings []sarif.NormalizedFinding) {
	t := newTable("SEVERITY", "RULE", "LOCATION", "MESSAGE")
	for i := range findings {
		f := &findings[i]
		t.AddRow(
			f.Severity.String(),
			truncate(f.RuleID, 40),
			truncate(sarif.FormatLocation(f), 50),
			truncate(f.Message, 70),
		)
	}
	t.Flush()
}
