package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/MatthiasGr/trusted-connector/pkg/cli"
	"github.com/MatthiasGr/trusted-connector/pkg/policy/engine"
)

func TestRunQuery(t *testing.T) {
	policy := writeFile(t, t.TempDir(), "policy.pl", testPolicy)

	tests := []struct {
		name     string
		goal     string
		all      bool
		want     string
		wantExit int
	}{
		{"first solution", "rule(X)", false, "X = archive.", cli.ExitOK},
		{"all solutions", "rule(X)", true, "X = archive.\nX = block.", cli.ExitOK},
		{"ground goal", "service(hadoop)", false, "true.", cli.ExitOK},
		{"no solution", "service(nosuch)", false, "false.", cli.ExitOK},
		{"two variables", "has_target(R, S)", false, "R = archive, S = hadoop.", cli.ExitOK},
		{"malformed goal", "rule(", false, "", cli.ExitFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(t)
			queryFlags.policy = policy
			queryFlags.all = tt.all
			cmd, out := testCommand(t)

			err := runQuery(cmd, []string{tt.goal})
			if code := cli.ExitCode(err); code != tt.wantExit {
				t.Fatalf("ExitCode() = %d, want %d (err %v)", code, tt.wantExit, err)
			}
			if err != nil {
				return
			}
			if got := strings.TrimSpace(out.String()); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunQueryJSON(t *testing.T) {
	resetFlags(t)
	outputFormat = "json"
	queryFlags.policy = writeFile(t, t.TempDir(), "policy.pl", testPolicy)
	queryFlags.all = true
	cmd, out := testCommand(t)

	if err := runQuery(cmd, []string{"service(S)"}); err != nil {
		t.Fatalf("runQuery() error = %v", err)
	}
	var got QueryResult
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if got.Goal != "service(S)" || got.Count != 2 || len(got.Solutions) != 2 {
		t.Fatalf("result = %+v, want two solutions", got)
	}
	if got.Solutions[0]["S"] != "hadoop" {
		t.Errorf("first solution = %v, want S = hadoop", got.Solutions[0])
	}
}

func TestQueryResultText(t *testing.T) {
	r := QueryResult{Solutions: []engine.Solution{{"B": "2", "A": "1"}, {}}}
	if got, want := r.Text(), "A = 1, B = 2.\ntrue."; got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}
