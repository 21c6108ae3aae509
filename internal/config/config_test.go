package config

import (
	"os"
	"testing"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("RELAYHUB_DATABASE_URL", "postgres://localhost/relayhub")
	t.Setenv("RELAYHUB_OPERATOR_TOKENS", "tok-a,tok-b")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Mode != "api" {
		t.Errorf("Mode = %q, want api", cfg.Mode)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.SchedulerTickIntervalSeconds != 60 {
		t.Errorf("SchedulerTickIntervalSeconds = %d, want 60", cfg.SchedulerTickIntervalSeconds)
	}
	if len(cfg.OperatorTokens) != 2 {
		t.Errorf("OperatorTokens = %v, want 2 entries", cfg.OperatorTokens)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv("RELAYHUB_DATABASE_URL")
	os.Unsetenv("RELAYHUB_OPERATOR_TOKENS")

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error for missing required fields")
	}
}

func TestListenAddr(t *testing.T) {
	cfg := &Config{Host: "127.0.0.1", Port: 9090}
	if got := cfg.ListenAddr(); got != "127.0.0.1:9090" {
		t.Errorf("ListenAddr() = %q, want 127.0.0.1:9090", got)
	}
}
