package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MatthiasGr/trusted-connector/pkg/cli"
	"github.com/MatthiasGr/trusted-connector/pkg/policy/engine"
)

// ExitDenied is the exit code of decide --exit-code for denied flows.
const ExitDenied = 3

var decideFlags struct {
	policy     string
	source     string
	dest       string
	labels     []string
	attributes []string
	exitCode   bool
}

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Decide whether a message may flow",
	Long: `Decide whether a message may flow from --source to --dest under a policy.

Without --label the message carries no label context. Pass --label once per
label attached to the message. Attributes are given as key=value; values
that look like booleans or numbers are passed as such.

Examples:
  lucon decide --policy policy.pl --source seda:in --dest hdfs://cluster --label private
  lucon decide --policy policy.pl --source seda:in --dest paho:tcp://broker:1883 --attr size=42
  lucon decide --policy policy.pl --source a --dest b --exit-code || echo denied`,
	Args: cobra.NoArgs,
	RunE: runDecide,
}

func init() {
	rootCmd.AddCommand(decideCmd)

	decideCmd.Flags().StringVarP(&decideFlags.policy, "policy", "p", "", "policy file or directory (default: policy.path)")
	decideCmd.Flags().StringVar(&decideFlags.source, "source", "", "source endpoint URI")
	decideCmd.Flags().StringVar(&decideFlags.dest, "dest", "", "destination endpoint URI")
	decideCmd.Flags().StringArrayVarP(&decideFlags.labels, "label", "l", nil, "label attached to the message (repeatable)")
	decideCmd.Flags().StringArrayVar(&decideFlags.attributes, "attr", nil, "message attribute key=value (repeatable)")
	decideCmd.Flags().BoolVar(&decideFlags.exitCode, "exit-code", false, fmt.Sprintf("exit with status %d when the flow is denied", ExitDenied))
	_ = decideCmd.MarkFlagRequired("source")
	_ = decideCmd.MarkFlagRequired("dest")
}

// DecisionResult is the output of the decide command.
type DecisionResult struct {
	*engine.PolicyDecision
}

// Text renders the decision, its rule and any obligation.
func (r DecisionResult) Text() string {
	var sb strings.Builder
	sb.WriteString(string(r.Decision))
	if r.Rule != "" {
		fmt.Fprintf(&sb, " (rule %s)", r.Rule)
	} else if r.Reason != "" {
		fmt.Fprintf(&sb, " (%s)", r.Reason)
	}
	if o := r.Obligation; o != nil {
		fmt.Fprintf(&sb, "\nobligation %s: %s, otherwise %s", o.ID, o.Action, o.AlternativeDecision)
	}
	return sb.String()
}

func runDecide(cmd *cobra.Command, args []string) error {
	attrs, err := parseAttributes(decideFlags.attributes)
	if err != nil {
		return err
	}

	var labels []string
	if cmd.Flags().Changed("label") {
		labels = append([]string{}, decideFlags.labels...)
	}

	eng, _, err := openPolicy(cmd, decideFlags.policy)
	if err != nil {
		return err
	}
	defer eng.Close()

	decision := eng.RequestDecision(commandContext(cmd), &engine.DecisionRequest{
		Source:      engine.ServiceNode{ID: decideFlags.source},
		Destination: engine.ServiceNode{ID: decideFlags.dest},
		Attributes:  attrs,
		Labels:      labels,
	})
	if err := printResult(cmd, DecisionResult{decision}); err != nil {
		return err
	}

	if decideFlags.exitCode && decision.Decision == engine.Deny {
		return &cli.ExitError{Code: ExitDenied}
	}
	return nil
}

// parseAttributes turns key=value pairs into message attributes.
func parseAttributes(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	attrs := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, cli.NewConfigError("attr", fmt.Sprintf("expected key=value, got %q", pair))
		}
		attrs[key] = attributeValue(value)
	}
	return attrs, nil
}

func attributeValue(s string) any {
	if b, err := strconv.ParseBool(s); err == nil && (s == "true" || s == "false") {
		return b
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
