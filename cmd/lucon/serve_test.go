package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/MatthiasGr/trusted-connector/pkg/cli"
)

func TestServeDryRun(t *testing.T) {
	dir := t.TempDir()
	valid := writeFile(t, dir, "valid.pl", testPolicy)
	invalid := writeFile(t, dir, "invalid.pl", "rule(r\n")

	tests := []struct {
		name     string
		policy   string
		logLevel string
		wantExit int
		wantText string
	}{
		{"valid policy", valid, "", cli.ExitOK, "✓ Policy " + valid + " valid (2 rule(s), 15 clause(s))"},
		{"invalid policy", invalid, "", cli.ExitFailed, ""},
		{"missing policy", dir + "/missing.pl", "", cli.ExitFailed, ""},
		{"bad log level", valid, "loud", cli.ExitConfig, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(t)
			serveFlags.dryRun = true
			serveFlags.policy = tt.policy
			serveFlags.logLevel = tt.logLevel
			cmd, out := testCommand(t)

			err := runServe(cmd, nil)
			if code := cli.ExitCode(err); code != tt.wantExit {
				t.Fatalf("ExitCode() = %d, want %d (err %v)", code, tt.wantExit, err)
			}
			if tt.wantText != "" && !strings.Contains(out.String(), tt.wantText) {
				t.Errorf("output missing %q:\n%s", tt.wantText, out.String())
			}
		})
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	resetFlags(t)
	t.Setenv("LUCON_TELEMETRY_METRICS_ENABLED", "true")
	serveFlags.listenAddress = "127.0.0.1:0"
	serveFlags.policy = writeFile(t, t.TempDir(), "policy.pl", testPolicy)

	ctx, cancel := context.WithCancel(t.Context())
	cmd, _ := testCommand(t)
	cmd.SetContext(ctx)

	done := make(chan error, 1)
	go func() { done <- runServe(cmd, nil) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runServe() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop after cancellation")
	}
}
