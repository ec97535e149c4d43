package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/MatthiasGr/trusted-connector/pkg/cli"
)

func TestLintPolicies(t *testing.T) {
	dir := t.TempDir()
	valid := writeFile(t, dir, "valid.pl", testPolicy)
	invalid := writeFile(t, dir, "invalid.pl", "rule(r).\nhas_endpoint(s, \"(unclosed\").\n")
	syntax := writeFile(t, dir, "syntax.pl", "rule(r\n")
	warning := writeFile(t, dir, "warning.pl", "rule(r).\natom(x).\n")
	misspelt := writeFile(t, dir, "misspelt.pl", "service(s).\nhas_endpont(s, \"hdfs://.*\").\n")

	tests := []struct {
		name     string
		args     []string
		strict   bool
		wantErr  bool
		wantText []string
	}{
		{"valid file", []string{valid}, false, false, []string{"✓ 2 rule(s)", "0 error(s)"}},
		{"invalid regex", []string{invalid}, false, true, []string{"✗ Error:"}},
		{"syntax error", []string{syntax}, false, true, []string{"✗ Error:", "[syntax]"}},
		{"missing file", []string{dir + "/missing.pl"}, false, true, []string{"[io]"}},
		{"warnings allowed", []string{warning}, false, false, []string{"⚠  Warning:"}},
		{"warnings strict", []string{warning}, true, true, []string{"⚠  Warning:"}},
		{"misspelt vocabulary", []string{misspelt}, true, true, []string{"has_endpont/2", "did you mean 'has_endpoint/2'?"}},
		{"several files", []string{valid, invalid}, false, true, []string{"Validating " + valid, "Validating " + invalid}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(t)
			lintFlags.strict = tt.strict
			cmd, out := testCommand(t)

			err := lintPolicies(cmd, tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("lintPolicies() error = %v, wantErr %v\n%s", err, tt.wantErr, out.String())
			}
			if err != nil && cli.ExitCode(err) != cli.ExitFailed {
				t.Errorf("ExitCode() = %d, want %d", cli.ExitCode(err), cli.ExitFailed)
			}
			for _, want := range tt.wantText {
				if !strings.Contains(out.String(), want) {
					t.Errorf("output missing %q:\n%s", want, out.String())
				}
			}
		})
	}
}

func TestLintPoliciesJSON(t *testing.T) {
	resetFlags(t)
	outputFormat = "json"
	dir := t.TempDir()
	invalid := writeFile(t, dir, "invalid.pl", "rule(r).\nhas_endpoint(s, \"(unclosed\").\n")

	cmd, out := testCommand(t)
	if err := lintPolicies(cmd, []string{invalid}); err == nil {
		t.Fatal("lintPolicies() should fail for an invalid policy")
	}

	var report LintReport
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if len(report.Results) != 1 || report.Results[0].Valid {
		t.Fatalf("results = %+v, want one invalid result", report.Results)
	}
	if report.Errors == 0 || report.Errors != len(report.Results[0].Errors) {
		t.Errorf("Errors = %d, results carry %d", report.Errors, len(report.Results[0].Errors))
	}
	if issue := report.Results[0].Errors[0]; issue.Line != 2 {
		t.Errorf("issue line = %d, want 2", issue.Line)
	}
}

func TestLintPoliciesBadFormat(t *testing.T) {
	resetFlags(t)
	outputFormat = "xml"
	valid := writeFile(t, t.TempDir(), "valid.pl", testPolicy)

	cmd, _ := testCommand(t)
	err := lintPolicies(cmd, []string{valid})
	if cli.ExitCode(err) != cli.ExitConfig {
		t.Errorf("ExitCode() = %d, want %d (err %v)", cli.ExitCode(err), cli.ExitConfig, err)
	}
}
