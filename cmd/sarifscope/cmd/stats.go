package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sarifscope/api/pkg/parsers/sarif"
)

var (
	flagDedupe bool
	flagByFile bool
	flagByRule bool
)

var statsCmd = &cobra.Command{
	Use:   "stats <file>...",
	Short: "Summarize findings across one or more SARIF files",
	Long: `Stats normalizes each file, merges the results and prints severity
counts, affected files and the rules that fired. With --dedupe,
findings sharing a dedupe key are counted once.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&flagDedupe, "dedupe", false, "Collapse findings with identical dedupe keys")
	statsCmd.Flags().BoolVar(&flagByFile, "by-file", false, "Break counts down per affected file")
	statsCmd.Flags().BoolVar(&flagByRule, "by-rule", false, "Break counts down per rule")
}

// statsSummary is the aggregate view over the merged documents.
type statsSummary struct {
	Files         []string       `json:"files" yaml:"files"`
	Tools         []string       `json:"tools" yaml:"tools"`
	TotalFindings int            `json:"total_findings" yaml:"total_findings"`
	BySeverity    map[string]int `json:"by_severity" yaml:"by_severity"`
	AffectedFiles int            `json:"affected_files" yaml:"affected_files"`
	UniqueRules   int            `json:"unique_rules" yaml:"unique_rules"`
	ByFile        map[string]int `json:"by_file,omitempty" yaml:"by_file,omitempty"`
	ByRule        map[string]int `json:"by_rule,omitempty" yaml:"by_rule,omitempty"`
}

func runStats(_ *cobra.Command, args []string) error {
	docs := make([]*sarif.NormalizedDocument, 0, len(args))
	for _, file := range args {
		data, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		doc, err := sarif.NormalizeBytes(data, sarif.Options{FileName: filepath.Base(file)})
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		docs = append(docs, doc)
	}

	merged := sarif.MergeDocuments(docs...)
	findings := merged.Findings
	if flagDedupe {
		findings = sarif.Deduplicate(findings)
	}

	summary := statsSummary{
		Files:         args,
		Tools:         merged.Metadata.ToolNames,
		TotalFindings: len(findings),
		BySeverity:    make(map[string]int, len(sarif.Severities)),
		AffectedFiles: len(sarif.AffectedFiles(findings)),
		UniqueRules:   len(sarif.UniqueRules(findings)),
	}
	for sev, group := range sarif.GroupBySeverity(findings) {
		summary.BySeverity[sev.String()] = len(group)
	}
	if flagByFile {
		summary.ByFile = groupSizes(sarif.GroupByFile(findings))
	}
	if flagByRule {
		summary.ByRule = groupSizes(sarif.GroupByRule(findings))
	}

	switch flagOutput {
	case outputJSON:
		printJSON(summary)
	case outputYAML:
		printYAML(summary)
	default:
		printStatsTable(summary)
	}

	return nil
}

func printStatsTable(s statsSummary) {
	fmt.Printf("Tools:          %v\n", s.Tools)
	fmt.Printf("Findings:       %d\n", s.TotalFindings)
	fmt.Printf("Affected files: %d\n", s.AffectedFiles)
	fmt.Printf("Unique rules:   %d\n", s.UniqueRules)
	fmt.Println()

	t := newTable("SEVERITY", "COUNT")
	for _, sev := range sarif.Severities {
		if n, ok := s.BySeverity[sev.String()]; ok && n > 0 {
			t.AddRow(sev.String(), fmt.Sprintf("%d", n))
		}
	}
	t.Flush()

	if s.ByFile != nil {
		fmt.Println()
		printCountTable("FILE", s.ByFile)
	}
	if s.ByRule != nil {
		fmt.Println()
		printCountTable("RULE", s.ByRule)
	}
}

func groupSizes(groups map[string][]sarif.NormalizedFinding) map[string]int {
	sizes := make(map[string]int, len(groups))
	for key, group := range groups {
		sizes[key] = len(group)
	}
	return sizes
}

// printCountTable prints counts descending, ties broken by key.
func printCountTable(header string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	t := newTable(header, "COUNT")
	for _, k := range keys {
		t.AddRow(truncate(k, 60), fmt.Sprintf("%d", counts[k]))
	}
	t.Flush()
}
