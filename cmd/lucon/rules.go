package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/MatthiasGr/trusted-connector/pkg/cli"
)

var rulesFlags struct {
	policy string
	theory bool
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the rules of a policy",
	Long: `List the rules a policy declares, in declaration order. With --theory the
whole theory is printed instead; --format json prints it as a clause tree.

Examples:
  lucon rules --policy policy.pl
  lucon rules --policy policy.pl --theory --format json`,
	Args: cobra.NoArgs,
	RunE: runRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)

	rulesCmd.Flags().StringVarP(&rulesFlags.policy, "policy", "p", "", "policy file or directory (default: policy.path)")
	rulesCmd.Flags().BoolVar(&rulesFlags.theory, "theory", false, "print the whole theory")
}

// RulesResult is the output of the rules command.
type RulesResult struct {
	PolicyVersion string   `json:"policy_version"`
	Rules         []string `json:"rules"`
}

// Text renders one rule per line.
func (r RulesResult) Text() string {
	if len(r.Rules) == 0 {
		return "(no rules)"
	}
	return strings.Join(r.Rules, "\n")
}

type theoryText string

func (t theoryText) Text() string { return string(t) }

func runRules(cmd *cobra.Command, args []string) error {
	eng, _, err := openPolicy(cmd, rulesFlags.policy)
	if err != nil {
		return err
	}
	defer eng.Close()

	if rulesFlags.theory {
		format, err := cli.ParseFormat(outputFormat)
		if err != nil {
			return err
		}
		if format == cli.FormatJSON {
			return printResult(cmd, eng.TheoryStructured())
		}
		return printResult(cmd, theoryText(eng.TheoryText()))
	}

	rules := eng.ListRules()
	if rules == nil {
		rules = []string{}
	}
	return printResult(cmd, RulesResult{PolicyVersion: eng.Theory().Version(), Rules: rules})
}
