package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kabap.yaml")
	contents := "scale: 4\nwatchdog: 500\nextensions:\n  - file\n  - net\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scale != 4 || cfg.Watchdog != 500 {
		t.Errorf("got %+v", cfg)
	}
	if len(cfg.Extensions) != 2 || cfg.Extensions[0] != "file" || cfg.Extensions[1] != "net" {
		t.Errorf("extensions = %+v", cfg.Extensions)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
