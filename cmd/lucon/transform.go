package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MatthiasGr/trusted-connector/pkg/cli"
	"github.com/MatthiasGr/trusted-connector/pkg/policy/engine"
)

var transformFlags struct {
	policy string
	node   string
}

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Show the label effects of a service",
	Long: `Show which labels a message gains and loses when it passes the service
node --node, according to the creates_label/2 and removes_label/2 facts of
every service whose endpoint pattern matches the node.

Example:
  lucon transform --policy policy.pl --node paho:tcp://broker.hivemq.com:1883`,
	Args: cobra.NoArgs,
	RunE: runTransform,
}

func init() {
	rootCmd.AddCommand(transformCmd)

	transformCmd.Flags().StringVarP(&transformFlags.policy, "policy", "p", "", "policy file or directory (default: policy.path)")
	transformCmd.Flags().StringVar(&transformFlags.node, "node", "", "service node URI")
	_ = transformCmd.MarkFlagRequired("node")
}

// TransformationResult is the output of the transform command.
type TransformationResult struct {
	Node string `json:"node"`
	*engine.TransformationDecision
}

// Text renders matched services and label changes.
func (r TransformationResult) Text() string {
	if len(r.Services) == 0 {
		return fmt.Sprintf("%s: no matching service", r.Node)
	}
	return fmt.Sprintf("%s: services %s\n  add:    %s\n  remove: %s",
		r.Node,
		strings.Join(r.Services, ", "),
		listOrNone(r.LabelsToAdd),
		listOrNone(r.LabelsToRemove))
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}

func runTransform(cmd *cobra.Command, args []string) error {
	eng, _, err := openPolicy(cmd, transformFlags.policy)
	if err != nil {
		return err
	}
	defer eng.Close()

	result, err := eng.RequestTransformations(commandContext(cmd), &engine.ServiceNode{ID: transformFlags.node})
	if err != nil {
		return cli.NewCommandError("transform", err)
	}
	return printResult(cmd, TransformationResult{Node: transformFlags.node, TransformationDecision: result})
}
