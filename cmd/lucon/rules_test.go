package main

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRunRules(t *testing.T) {
	resetFlags(t)
	rulesFlags.policy = writeFile(t, t.TempDir(), "policy.pl", testPolicy)
	cmd, out := testCommand(t)

	if err := runRules(cmd, nil); err != nil {
		t.Fatalf("runRules() error = %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "archive\nblock" {
		t.Errorf("output = %q, want archive and block", got)
	}
}

func TestRunRulesEmptyPolicy(t *testing.T) {
	resetFlags(t)
	outputFormat = "json"
	rulesFlags.policy = writeFile(t, t.TempDir(), "policy.pl", "service(hadoop).\n")
	cmd, out := testCommand(t)

	if err := runRules(cmd, nil); err != nil {
		t.Fatalf("runRules() error = %v", err)
	}
	var got RulesResult
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if got.Rules == nil || len(got.Rules) != 0 {
		t.Errorf("Rules = %#v, want an empty list", got.Rules)
	}
	if got.PolicyVersion == "" {
		t.Error("PolicyVersion should be set")
	}
}

func TestRunRulesTheory(t *testing.T) {
	policy := writeFile(t, t.TempDir(), "policy.pl", testPolicy)

	t.Run("text", func(t *testing.T) {
		resetFlags(t)
		rulesFlags.policy = policy
		rulesFlags.theory = true
		cmd, out := testCommand(t)

		if err := runRules(cmd, nil); err != nil {
			t.Fatalf("runRules() error = %v", err)
		}
		for _, want := range []string{"rule(archive).", "has_endpoint(broker, "} {
			if !strings.Contains(out.String(), want) {
				t.Errorf("theory missing %q:\n%s", want, out.String())
			}
		}
	})

	t.Run("json", func(t *testing.T) {
		resetFlags(t)
		outputFormat = "json"
		rulesFlags.policy = policy
		rulesFlags.theory = true
		cmd, out := testCommand(t)

		if err := runRules(cmd, nil); err != nil {
			t.Fatalf("runRules() error = %v", err)
		}
		var doc map[string]any
		if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
			t.Fatalf("output is not JSON: %v\n%s", err, out.String())
		}
		clauses, _ := doc["clauses"].([]any)
		if len(clauses) != 15 {
			t.Errorf("clauses = %d, want 15", len(clauses))
		}
	})
}
