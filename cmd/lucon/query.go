package main

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MatthiasGr/trusted-connector/pkg/cli"
	"github.com/MatthiasGr/trusted-connector/pkg/policy/engine"
)

var queryFlags struct {
	policy string
	all    bool
}

var queryCmd = &cobra.Command{
	Use:   "query <goal>",
	Short: "Run a diagnostic goal against a policy",
	Long: `Run a goal against a policy and print the variable bindings of its
solutions. Without --all only the first solution is printed.

Examples:
  lucon query --policy policy.pl 'rule(X)'
  lucon query --policy policy.pl --all 'has_endpoint(S, P)'
  lucon query --policy hanoi.pl 'move(3, left, right, center)'`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().StringVarP(&queryFlags.policy, "policy", "p", "", "policy file or directory (default: policy.path)")
	queryCmd.Flags().BoolVarP(&queryFlags.all, "all", "a", false, "print every solution")
}

// QueryResult is the output of the query command.
type QueryResult struct {
	Goal      string            `json:"goal"`
	Solutions []engine.Solution `json:"solutions"`
	Count     int               `json:"count"`
}

// Text renders one line per solution. A solution without variables prints
// as "true."; no solution prints "false.".
func (r QueryResult) Text() string {
	if len(r.Solutions) == 0 {
		return "false."
	}
	lines := make([]string, 0, len(r.Solutions))
	for _, sol := range r.Solutions {
		if len(sol) == 0 {
			lines = append(lines, "true.")
			continue
		}
		names := make([]string, 0, len(sol))
		for name := range sol {
			names = append(names, name)
		}
		slices.Sort(names)
		pairs := make([]string, len(names))
		for i, name := range names {
			pairs[i] = name + " = " + sol[name]
		}
		lines = append(lines, strings.Join(pairs, ", ")+".")
	}
	return strings.Join(lines, "\n")
}

func runQuery(cmd *cobra.Command, args []string) error {
	eng, _, err := openPolicy(cmd, queryFlags.policy)
	if err != nil {
		return err
	}
	defer eng.Close()

	solutions, err := eng.Query(commandContext(cmd), args[0], queryFlags.all)
	if err != nil {
		return cli.NewCommandError("query", err)
	}
	return printResult(cmd, QueryResult{Goal: args[0], Solutions: solutions, Count: len(solutions)})
}
