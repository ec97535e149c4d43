package main

import (
	"encoding/json"
	"runtime"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	t.Cleanup(func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate })
	Version, GitCommit, BuildDate = "1.2.3-test", "abc123", "2026-03-01"

	t.Run("text", func(t *testing.T) {
		resetFlags(t)
		cmd, out := testCommand(t)
		if err := versionCmd.RunE(cmd, nil); err != nil {
			t.Fatalf("version error = %v", err)
		}
		for _, want := range []string{"Lucon 1.2.3-test", "Git Commit: abc123", "Build Date: 2026-03-01", runtime.Version()} {
			if !strings.Contains(out.String(), want) {
				t.Errorf("output missing %q:\n%s", want, out.String())
			}
		}
	})

	t.Run("json", func(t *testing.T) {
		resetFlags(t)
		outputFormat = "json"
		cmd, out := testCommand(t)
		if err := versionCmd.RunE(cmd, nil); err != nil {
			t.Fatalf("version error = %v", err)
		}
		var got VersionResult
		if err := json.Unmarshal(out.Bytes(), &got); err != nil {
			t.Fatalf("output is not JSON: %v\n%s", err, out.String())
		}
		if got.Version != "1.2.3-test" || got.Platform != runtime.GOOS+"/"+runtime.GOARCH {
			t.Errorf("result = %+v", got)
		}
	})
}
