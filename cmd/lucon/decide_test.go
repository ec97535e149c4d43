package main

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/MatthiasGr/trusted-connector/pkg/cli"
	"github.com/MatthiasGr/trusted-connector/pkg/policy/engine"
)

func TestRunDecide(t *testing.T) {
	policy := writeFile(t, t.TempDir(), "policy.pl", testPolicy)

	tests := []struct {
		name     string
		dest     string
		labels   []string
		exitCode bool
		wantText []string
		wantExit int
	}{
		{
			name:     "obligation",
			dest:     "hdfs://cluster",
			labels:   []string{"private"},
			wantText: []string{"ALLOW (rule archive)", "obligation o1: delete_after_days(30), otherwise DENY"},
		},
		{
			name:     "missing label",
			dest:     "hdfs://cluster",
			labels:   []string{"public"},
			wantText: []string{"DENY"},
		},
		{
			name:     "direct decision",
			dest:     "paho:tcp://broker:1883",
			wantText: []string{"DENY (rule block)"},
		},
		{
			name:     "deny with exit code",
			dest:     "paho:tcp://broker:1883",
			exitCode: true,
			wantText: []string{"DENY (rule block)"},
			wantExit: ExitDenied,
		},
		{
			name:     "allow with exit code",
			dest:     "hdfs://cluster",
			labels:   []string{"private"},
			exitCode: true,
			wantText: []string{"ALLOW"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(t)
			decideFlags.policy = policy
			decideFlags.source = "seda:in"
			decideFlags.dest = tt.dest
			decideFlags.exitCode = tt.exitCode

			cmd, out := testCommand(t)
			cmd.Flags().StringArray("label", nil, "")
			for _, l := range tt.labels {
				if err := cmd.Flags().Set("label", l); err != nil {
					t.Fatal(err)
				}
			}
			decideFlags.labels = tt.labels

			err := runDecide(cmd, nil)
			if tt.wantExit == 0 && err != nil {
				t.Fatalf("runDecide() error = %v", err)
			}
			if tt.wantExit != 0 {
				var exitErr *cli.ExitError
				if !errors.As(err, &exitErr) || exitErr.Code != tt.wantExit {
					t.Fatalf("runDecide() error = %v, want exit code %d", err, tt.wantExit)
				}
			}
			for _, want := range tt.wantText {
				if !strings.Contains(out.String(), want) {
					t.Errorf("output missing %q:\n%s", want, out.String())
				}
			}
		})
	}
}

func TestRunDecideJSON(t *testing.T) {
	resetFlags(t)
	outputFormat = "json"
	decideFlags.policy = writeFile(t, t.TempDir(), "policy.pl", testPolicy)
	decideFlags.source = "seda:in"
	decideFlags.dest = "file:///tmp/out"
	decideFlags.attributes = []string{"size=42"}

	cmd, out := testCommand(t)
	cmd.Flags().StringArray("label", nil, "")
	if err := runDecide(cmd, nil); err != nil {
		t.Fatalf("runDecide() error = %v", err)
	}

	var got engine.PolicyDecision
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if got.Decision != engine.Deny || got.Rule != "" {
		t.Errorf("decision = %s rule %q, want DENY without rule", got.Decision, got.Rule)
	}
	if got.PolicyVersion == "" {
		t.Error("PolicyVersion should be set")
	}
}

func TestRunDecideMissingPolicy(t *testing.T) {
	resetFlags(t)
	decideFlags.policy = t.TempDir() + "/missing.pl"
	decideFlags.source, decideFlags.dest = "a", "b"

	cmd, _ := testCommand(t)
	cmd.Flags().StringArray("label", nil, "")
	err := runDecide(cmd, nil)
	if cli.ExitCode(err) != cli.ExitFailed {
		t.Errorf("ExitCode() = %d, want %d (err %v)", cli.ExitCode(err), cli.ExitFailed, err)
	}
}

func TestParseAttributes(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[string]any
		wantErr bool
	}{
		{"none", nil, nil, false},
		{
			name:  "typed values",
			pairs: []string{"enabled=true", "size=42", "ratio=0.5", "name=hdfs", "empty=", "url=a=b"},
			want: map[string]any{
				"enabled": true,
				"size":    int64(42),
				"ratio":   0.5,
				"name":    "hdfs",
				"empty":   "",
				"url":     "a=b",
			},
		},
		{"bool spelled differently stays string", []string{"flag=TRUE"}, map[string]any{"flag": "TRUE"}, false},
		{"missing separator", []string{"size"}, nil, true},
		{"empty key", []string{"=1"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAttributes(tt.pairs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseAttributes() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if cli.ExitCode(err) != cli.ExitConfig {
					t.Errorf("ExitCode() = %d, want %d", cli.ExitCode(err), cli.ExitConfig)
				}
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseAttributes() = %#v, want %#v", got, tt.want)
			}
		})
	}
}
