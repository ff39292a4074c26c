package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("unexpected config (-want +got):\n%s", diff)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := []byte(`{"api_base_url":"https://tasks.example.com/api","page_size":25,"server":{"port":7000}}`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TASKDOCK_SERVER_PORT", "6000")
	t.Setenv("TASKDOCK_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBaseURL != "https://tasks.example.com/api" || cfg.PageSize != 25 {
		t.Fatalf("expected file values, got %+v", cfg)
	}
	if cfg.Server.Port != 6000 {
		t.Fatalf("expected env to override port, got %d", cfg.Server.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected env log level, got %q", cfg.LogLevel)
	}
	if cfg.RequestTimeout != 30 {
		t.Fatalf("expected default timeout, got %d", cfg.RequestTimeout)
	}
}

func TestResolveAndSaveIfMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.json")

	cfg := Default()
	if err := cfg.Resolve(path); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.StatePath != filepath.Join(dir, "nested", "state.db") {
		t.Fatalf("unexpected state path %q", cfg.StatePath)
	}
	if len(cfg.Server.JWTSecret) != 64 {
		t.Fatalf("expected generated secret, got %q", cfg.Server.JWTSecret)
	}

	if err := SaveIfMissing(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	other := cfg
	other.APIBaseURL = "http://changed"
	if err := SaveIfMissing(path, other); err != nil {
		t.Fatalf("second save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Fatalf("existing file must not be overwritten (-want +got):\n%s", diff)
	}
}
