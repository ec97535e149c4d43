package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: "0.0.0.0:8080"
  read_timeout: "60s"

policy:
  path: "./policies"
  watch: true
  debounce: "250ms"
  reload_schedule: "*/5 * * * *"
  label_mode: "strict"
  decision_timeout: "50ms"

store:
  enabled: false

telemetry:
  logging:
    level: "debug"
    format: "text"
  metrics:
    enabled: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:8080" {
		t.Errorf("expected listen address %q, got %q", "0.0.0.0:8080", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 60*time.Second {
		t.Errorf("expected read timeout %v, got %v", 60*time.Second, cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("expected default write timeout, got %v", cfg.Server.WriteTimeout)
	}
	if !cfg.Policy.Watch || cfg.Policy.Debounce != 250*time.Millisecond {
		t.Errorf("unexpected watch settings: watch=%v debounce=%v", cfg.Policy.Watch, cfg.Policy.Debounce)
	}
	if cfg.Policy.ReloadSchedule != "*/5 * * * *" {
		t.Errorf("expected reload schedule, got %q", cfg.Policy.ReloadSchedule)
	}
	if cfg.Policy.LabelMode != "strict" {
		t.Errorf("expected label mode strict, got %q", cfg.Policy.LabelMode)
	}
	if cfg.Policy.DecisionTimeout != 50*time.Millisecond {
		t.Errorf("expected decision timeout 50ms, got %v", cfg.Policy.DecisionTimeout)
	}
	if cfg.Store.Enabled {
		t.Error("expected store to be disabled")
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics to be disabled")
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected logging level %q, got %q", "debug", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfig_EmptyFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "# nothing configured\n"))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Policy.Path != DefaultPolicyPath {
		t.Errorf("expected default policy path, got %q", cfg.Policy.Path)
	}
	if !cfg.Store.Enabled {
		t.Error("expected store to stay enabled")
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"malformed yaml", "server: [", "failed to parse"},
		{"unknown field", "policy:\n  mode: git\n", "failed to parse"},
		{"invalid label mode", "policy:\n  label_mode: sometimes\n", "policy.label_mode"},
		{"invalid cron", "policy:\n  reload_schedule: \"every day\"\n", "policy.reload_schedule"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: "127.0.0.1:8181"
policy:
  path: "./policy.pl"
`)

	t.Setenv("LUCON_SERVER_LISTEN_ADDRESS", "0.0.0.0:9999")
	t.Setenv("LUCON_POLICY_PATH", "/srv/policies")
	t.Setenv("LUCON_POLICY_WATCH", "true")
	t.Setenv("LUCON_POLICY_QUERY_TIMEOUT", "2s")
	t.Setenv("LUCON_POLICY_MAX_SOLUTIONS", "25")
	t.Setenv("LUCON_STORE_DRIVER", "memory")
	t.Setenv("LUCON_TELEMETRY_TRACING_SAMPLE_RATIO", "0.5")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9999" {
		t.Errorf("expected env listen address, got %q", cfg.Server.ListenAddress)
	}
	if cfg.Policy.Path != "/srv/policies" {
		t.Errorf("expected env policy path, got %q", cfg.Policy.Path)
	}
	if !cfg.Policy.Watch {
		t.Error("expected watch from env")
	}
	if cfg.Policy.QueryTimeout != 2*time.Second {
		t.Errorf("expected query timeout 2s, got %v", cfg.Policy.QueryTimeout)
	}
	if cfg.Policy.MaxSolutions != 25 {
		t.Errorf("expected max solutions 25, got %d", cfg.Policy.MaxSolutions)
	}
	if cfg.Store.Driver != "memory" {
		t.Errorf("expected store driver memory, got %q", cfg.Store.Driver)
	}
	if cfg.Telemetry.Tracing.SampleRatio != 0.5 {
		t.Errorf("expected sample ratio 0.5, got %v", cfg.Telemetry.Tracing.SampleRatio)
	}
}

func TestLoadConfigWithEnvOverrides_NoFile(t *testing.T) {
	t.Setenv("LUCON_POLICY_LABEL_MODE", "strict")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Policy.LabelMode != "strict" {
		t.Errorf("expected label mode strict, got %q", cfg.Policy.LabelMode)
	}
}

func TestLoadConfigWithEnvOverrides_MalformedValue(t *testing.T) {
	t.Setenv("LUCON_POLICY_DECISION_TIMEOUT", "soon")

	_, err := LoadConfigWithEnvOverrides("")
	var validationErr ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if validationErr.Errors[0].Field != "LUCON_POLICY_DECISION_TIMEOUT" {
		t.Errorf("expected env variable in field, got %q", validationErr.Errors[0].Field)
	}
}
