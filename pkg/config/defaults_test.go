package config

import (
	"reflect"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("expected listen address %q, got %q", DefaultListenAddress, cfg.Server.ListenAddress)
	}
	if cfg.Policy.LabelMode != "optional" {
		t.Errorf("expected label mode optional, got %q", cfg.Policy.LabelMode)
	}
	if cfg.Policy.DecisionTimeout != 100*time.Millisecond {
		t.Errorf("expected decision timeout 100ms, got %v", cfg.Policy.DecisionTimeout)
	}
	if cfg.Policy.MaxSolutions != DefaultPolicyMaxSolutions {
		t.Errorf("expected max solutions %d, got %d", DefaultPolicyMaxSolutions, cfg.Policy.MaxSolutions)
	}
	if !cfg.Store.Enabled {
		t.Error("expected store to be enabled by default")
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("expected store driver sqlite, got %q", cfg.Store.Driver)
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics to be enabled by default")
	}
	if cfg.Telemetry.Tracing.Enabled {
		t.Error("expected tracing to be disabled by default")
	}
	if !cfg.Telemetry.Tracing.Insecure {
		t.Error("expected insecure tracing transport by default")
	}
	if !reflect.DeepEqual(cfg.Telemetry.Metrics.DurationBuckets, DefaultDurationBuckets) {
		t.Errorf("expected default buckets, got %v", cfg.Telemetry.Metrics.DurationBuckets)
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{ListenAddress: "0.0.0.0:9000"},
		Policy: PolicyConfig{Path: "/etc/lucon/policies", LabelMode: "strict", MaxSolutions: 10},
		Store:  StoreConfig{MaxVersions: 3},
	}
	ApplyDefaults(cfg)

	if cfg.Server.ListenAddress != "0.0.0.0:9000" {
		t.Errorf("listen address overwritten: %q", cfg.Server.ListenAddress)
	}
	if cfg.Policy.Path != "/etc/lucon/policies" {
		t.Errorf("policy path overwritten: %q", cfg.Policy.Path)
	}
	if cfg.Policy.LabelMode != "strict" {
		t.Errorf("label mode overwritten: %q", cfg.Policy.LabelMode)
	}
	if cfg.Policy.MaxSolutions != 10 {
		t.Errorf("max solutions overwritten: %d", cfg.Policy.MaxSolutions)
	}
	if cfg.Store.MaxVersions != 3 {
		t.Errorf("max versions overwritten: %d", cfg.Store.MaxVersions)
	}
	if cfg.Server.ReadTimeout != DefaultReadTimeout {
		t.Errorf("expected read timeout default, got %v", cfg.Server.ReadTimeout)
	}
}

func TestApplyDefaults_Idempotent(t *testing.T) {
	once := Default()
	twice := Default()
	ApplyDefaults(twice)

	if !reflect.DeepEqual(once, twice) {
		t.Error("ApplyDefaults is not idempotent")
	}
}
