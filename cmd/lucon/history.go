package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MatthiasGr/trusted-connector/pkg/cli"
	"github.com/MatthiasGr/trusted-connector/pkg/policy/store"
)

var historyFlags struct {
	limit int
	show  string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded policy versions",
	Long: `List the policy versions recorded in the configured store, newest first.
With --show the text of one version is printed.

Examples:
  lucon history --config config.yaml
  lucon history --limit 5 --format json
  lucon history --show 5f1c9a52-...`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyFlags.limit, "limit", "n", 20, "maximum number of versions to list")
	historyCmd.Flags().StringVar(&historyFlags.show, "show", "", "print the text of the version with this ID")
}

// HistoryResult is the output of the history command.
type HistoryResult struct {
	Versions []*store.Version `json:"versions"`
}

// Text renders one version per line.
func (r HistoryResult) Text() string {
	if len(r.Versions) == 0 {
		return "(no recorded versions)"
	}
	var sb strings.Builder
	for i, v := range r.Versions {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s  %s  %-24s %3d rule(s) %4d clause(s)  sha256:%.12s",
			v.ID, v.LoadedAt.Local().Format(time.DateTime), v.Source, v.Rules, v.Clauses, v.Checksum)
	}
	return sb.String()
}

// VersionDetail is the output of history --show: the version text in text
// format, the full record in JSON.
type VersionDetail struct {
	*store.Version
}

// Text returns the policy text of the version.
func (d VersionDetail) Text() string {
	return d.Version.Text
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyFlags.limit < 1 {
		return cli.NewConfigError("limit", "must be at least 1")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(&cfg.Store, commandLogger(cmd, cfg))
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	if st == nil {
		return cli.NewConfigError("store.enabled", "policy history is disabled")
	}
	defer st.Close()

	ctx := commandContext(cmd)
	if historyFlags.show != "" {
		v, err := st.Get(ctx, historyFlags.show)
		if errors.Is(err, store.ErrNotFound) {
			return cli.NewCommandError("history", fmt.Errorf("version %q not found", historyFlags.show))
		}
		if err != nil {
			return cli.NewCommandError("history", err)
		}
		return printResult(cmd, VersionDetail{v})
	}

	versions, err := st.List(ctx, historyFlags.limit)
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	result := HistoryResult{Versions: make([]*store.Version, len(versions))}
	for i, v := range versions {
		summary := *v
		summary.Text = ""
		result.Versions[i] = &summary
	}
	return printResult(cmd, result)
}
