package config

import (
	"os"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.WatchInterval != time.Second {
		t.Fatalf("WatchInterval = %s, want 1s", cfg.WatchInterval)
	}
	if cfg.PerflogInterval != 60*time.Second {
		t.Fatalf("PerflogInterval = %s, want 60s", cfg.PerflogInterval)
	}
	if cfg.ServiceQueryTimeout >= cfg.ServiceActionTimeout {
		t.Fatalf("query timeout %s should be shorter than action timeout %s",
			cfg.ServiceQueryTimeout, cfg.ServiceActionTimeout)
	}
	if cfg.TopCount <= 0 {
		t.Fatalf("TopCount = %d", cfg.TopCount)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.LogFile == "" {
		t.Fatal("LogFile is empty")
	}
}

func TestLoadWithoutConfigFile(t *testing.T) {
	// No config file anywhere near a temp working dir; Load must fall
	// back to defaults instead of failing.
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WatchInterval != time.Second {
		t.Fatalf("WatchInterval = %s, want default", cfg.WatchInterval)
	}
}

func TestGetLogDirNotEmpty(t *testing.T) {
	if GetLogDir() == "" {
		t.Fatal("GetLogDir returned empty path")
	}
}
