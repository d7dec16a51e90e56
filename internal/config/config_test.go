package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mgfw.yaml")
	if err := os.WriteFile(path, []byte("log_level: debug\nlog_format: json\nscheduler_workers: 1\ndebug_server_addr: \":9090\"\n"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := DefaultFrameworkConfig()
	if err := LoadFile(&cfg, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "json" || cfg.DebugServerAddr != ":9090" {
		t.Fatalf("expected file values to override defaults, got %+v", cfg)
	}
}

func TestLoadFileEmptyPathIsNoop(t *testing.T) {
	cfg := DefaultFrameworkConfig()
	if err := LoadFile(&cfg, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != DefaultFrameworkConfig() {
		t.Fatalf("expected defaults unchanged, got %+v", cfg)
	}
}

func TestValidateRejectsBadLogFormat(t *testing.T) {
	cfg := DefaultFrameworkConfig()
	cfg.LogFormat = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an unsupported log format")
	}
}

func TestValidateRejectsMultipleWorkers(t *testing.T) {
	cfg := DefaultFrameworkConfig()
	cfg.SchedulerWorkers = 4
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for scheduler_workers != 1")
	}
}
