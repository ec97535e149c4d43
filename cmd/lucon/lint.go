package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MatthiasGr/trusted-connector/pkg/cli"
	"github.com/MatthiasGr/trusted-connector/pkg/policy/engine"
	"github.com/MatthiasGr/trusted-connector/pkg/policy/engine/source"
)

var lintFlags struct {
	strict bool
}

var lintCmd = &cobra.Command{
	Use:   "lint <file|dir>...",
	Short: "Validate policy files",
	Long: `Validate LUCON policy files without installing them.

The lint command parses each theory and reports every malformed clause,
unusable regular expressions in has_endpoint/2, and warnings such as rules
without a decision.

A directory is read like the server reads it: its .pl, .pro and .lucon files
concatenated in lexical order.

Examples:
  # Lint a single file
  lucon lint policy.pl

  # Lint a directory, failing on warnings
  lucon lint --strict policies/

  # JSON output for CI/CD
  lucon lint --format json policy.pl`,
	Args: cobra.MinimumNArgs(1),
	RunE: lintPolicies,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().BoolVar(&lintFlags.strict, "strict", false, "treat warnings as errors")
}

// LintResult represents the validation result for a single policy source.
type LintResult struct {
	File     string      `json:"file"`
	Valid    bool        `json:"valid"`
	Rules    int         `json:"rules"`
	Clauses  int         `json:"clauses"`
	Errors   []LintIssue `json:"errors,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
}

// LintIssue is a single problem found in a policy.
type LintIssue struct {
	Line       int    `json:"line,omitempty"`
	Column     int    `json:"column,omitempty"`
	Type       string `json:"type,omitempty"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// LintReport is the output of the lint command.
type LintReport struct {
	Results  []LintResult `json:"results"`
	Errors   int          `json:"errors"`
	Warnings int          `json:"warnings"`
}

// Text renders the report for terminals.
func (r LintReport) Text() string {
	var sb strings.Builder
	for _, res := range r.Results {
		fmt.Fprintf(&sb, "Validating %s...\n", res.File)
		if res.Valid {
			fmt.Fprintf(&sb, "✓ %d rule(s), %d clause(s)\n", res.Rules, res.Clauses)
		}
		for _, e := range res.Errors {
			fmt.Fprintf(&sb, "✗ Error: %s", e.Message)
			if e.Line > 0 {
				fmt.Fprintf(&sb, " (line %d", e.Line)
				if e.Column > 0 {
					fmt.Fprintf(&sb, ", col %d", e.Column)
				}
				sb.WriteString(")")
			}
			if e.Type != "" {
				fmt.Fprintf(&sb, " [%s]", e.Type)
			}
			sb.WriteString("\n")
			if e.Suggestion != "" {
				fmt.Fprintf(&sb, "  suggestion: %s\n", e.Suggestion)
			}
		}
		for _, w := range res.Warnings {
			fmt.Fprintf(&sb, "⚠  Warning: %s\n", w)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Summary:\n")
	fmt.Fprintf(&sb, "  %d error(s), %d warning(s)", r.Errors, r.Warnings)
	return sb.String()
}

func lintPolicies(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := commandLogger(cmd, cfg)
	eng, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx := commandContext(cmd)
	report := LintReport{Results: make([]LintResult, 0, len(args))}
	for _, path := range args {
		result := LintResult{File: path, Valid: true}

		doc, err := source.NewFileSource(path, logger).Load(ctx)
		if err != nil {
			result.Valid = false
			result.Errors = []LintIssue{{Type: "io", Message: err.Error()}}
		} else if snap, err := eng.ValidatePolicy(doc.Name, doc.Text); err != nil {
			result.Valid = false
			result.Errors = lintIssues(err)
		} else {
			result.Rules = len(snap.Rules())
			result.Clauses = snap.Len()
			result.Warnings = snap.Warnings()
		}

		report.Errors += len(result.Errors)
		report.Warnings += len(result.Warnings)
		report.Results = append(report.Results, result)
	}

	if err := printResult(cmd, report); err != nil {
		return err
	}

	if report.Errors > 0 {
		return cli.NewCommandError("lint", errors.New("validation failed"))
	}
	if lintFlags.strict && report.Warnings > 0 {
		return cli.NewCommandError("lint", errors.New("validation failed: warnings treated as errors"))
	}
	return nil
}

// lintIssues flattens a rejected theory into one issue per problem.
func lintIssues(err error) []LintIssue {
	var invalid *engine.InvalidTheoryError
	if !errors.As(err, &invalid) || invalid.Problems == nil || !invalid.Problems.HasErrors() {
		return []LintIssue{{Message: err.Error()}}
	}

	issues := make([]LintIssue, 0, invalid.Problems.Count())
	for _, p := range invalid.Problems.Errors {
		issues = append(issues, LintIssue{
			Line:       p.Location.Line,
			Column:     p.Location.Column,
			Type:       string(p.Type),
			Message:    p.Message,
			Suggestion: p.Suggestion,
		})
	}
	return issues
}
