package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Port != 8501 || c.Host != "127.0.0.1" {
		t.Fatalf("addr = %s", c.Addr())
	}
	if c.ExamplesDir != "Example Datasets" || c.Neighbors != 3 || c.PreviewRows != 10 {
		t.Fatalf("defaults = %+v", c)
	}
	if !c.EnableMetrics || c.EnableCORS {
		t.Fatalf("feature flags = %+v", c)
	}
}

func TestSaveLoadRoundTripWithEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	in := &Global{Host: "0.0.0.0", Port: 9000, ExamplesDir: "data", MaxUploadMB: 5, PreviewRows: 3, CacheSize: 4, NAValues: []string{"?"}, Seed: 7, Neighbors: 5, LogLevel: "debug"}
	if err := Save(in, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	t.Setenv("AUTOMATEDA_PORT", "9100")

	out, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.Port != 9100 {
		t.Fatalf("port = %d, want env override 9100", out.Port)
	}
	if out.Host != "0.0.0.0" || out.Seed != 7 || out.Neighbors != 5 || out.LogLevel != "debug" {
		t.Fatalf("loaded = %+v", out)
	}
	if len(out.NAValues) != 1 || out.NAValues[0] != "?" {
		t.Fatalf("na_values = %#v", out.NAValues)
	}
	if out.Addr() != "0.0.0.0:9100" {
		t.Fatalf("addr = %s", out.Addr())
	}
}

func TestSaveDefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if err := Save(&Global{Port: 1}, ""); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".automateda", "config.yaml")); err != nil {
		t.Fatalf("config not written: %v", err)
	}
}

func TestLoadRejectsMalformedExplicitFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("port: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for malformed config")
	}
}
