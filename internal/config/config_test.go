package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "pyforge.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Version != 1 {
		t.Fatalf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Python.Version != "" {
		t.Fatalf("Python.Version = %q, want empty", cfg.Python.Version)
	}
}

func TestLoadReadsProjectFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pyforge.yaml")
	body := `version: 1
python:
  version: "3.12"
  virtualenv: .venv
env:
  DJANGO_SETTINGS_MODULE: app.settings
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Python.Version != "3.12" {
		t.Fatalf("Python.Version = %q", cfg.Python.Version)
	}
	if cfg.Python.Virtualenv != ".venv" {
		t.Fatalf("Python.Virtualenv = %q", cfg.Python.Virtualenv)
	}
	if cfg.Env["DJANGO_SETTINGS_MODULE"] != "app.settings" {
		t.Fatalf("Env = %v", cfg.Env)
	}
}

func TestLoadAppliesVersionDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pyforge.yaml")
	if err := os.WriteFile(path, []byte("python:\n  version: \"3.11.4\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Version != 1 {
		t.Fatalf("Version = %d, want defaulted 1", cfg.Version)
	}
}

func TestOptionsIncludesVirtualenv(t *testing.T) {
	p := PythonConfig{Virtualenv: ".venv"}
	opts := p.Options()
	if opts["virtualenv"] != ".venv" {
		t.Fatalf("Options() = %v", opts)
	}
	if len(PythonConfig{}.Options()) != 0 {
		t.Fatal("empty python block must produce no options")
	}
}

func TestReadLegacyVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".python-version")

	version, err := ReadLegacyVersion(path)
	if err != nil {
		t.Fatalf("ReadLegacyVersion missing file: %v", err)
	}
	if version != "" {
		t.Fatalf("version = %q, want empty for missing file", version)
	}

	if err := os.WriteFile(path, []byte("\n  3.11.9\n3.12.0\n"), 0o644); err != nil {
		t.Fatalf("write version file: %v", err)
	}
	version, err = ReadLegacyVersion(path)
	if err != nil {
		t.Fatalf("ReadLegacyVersion: %v", err)
	}
	if version != "3.11.9" {
		t.Fatalf("version = %q, want 3.11.9", version)
	}
}
