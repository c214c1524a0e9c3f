package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveHomeOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PYFORGE_HOME", dir)

	h, err := ResolveHome()
	if err != nil {
		t.Fatalf("resolve home: %v", err)
	}
	if h.Root != dir {
		t.Fatalf("root = %s, want %s", h.Root, dir)
	}
	if h.InstallsDir != filepath.Join(dir, "installs") {
		t.Fatalf("installs dir = %s", h.InstallsDir)
	}
	if got := h.InstallDir("python", "3.12.1"); got != filepath.Join(dir, "installs", "python", "3.12.1") {
		t.Fatalf("install dir = %s", got)
	}
	if got := h.PyenvDir(); got != filepath.Join(dir, "repos", "pyenv") {
		t.Fatalf("pyenv dir = %s", got)
	}
}

func TestEnsureBaseDirs(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PYFORGE_HOME", filepath.Join(dir, "home"))

	h, err := ResolveHome()
	if err != nil {
		t.Fatalf("resolve home: %v", err)
	}
	if err := h.EnsureBaseDirs(); err != nil {
		t.Fatalf("ensure base dirs: %v", err)
	}
	for _, sub := range []string{"installs", "downloads", "cache", "repos", "logs"} {
		ok, err := DirExists(filepath.Join(h.Root, sub))
		if err != nil || !ok {
			t.Fatalf("expected directory %s (ok=%v err=%v)", sub, ok, err)
		}
	}
}

func TestResolveProjectFindsNearestAndTopRoots(t *testing.T) {
	root := t.TempDir()
	outer := filepath.Join(root, "workspace")
	inner := filepath.Join(outer, "svc", "api")
	if err := os.MkdirAll(inner, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, dir := range []string{outer, inner} {
		if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("python:\n"), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
	}

	p, err := ResolveProject(inner)
	if err != nil {
		t.Fatalf("resolve project: %v", err)
	}
	if p.Root != inner {
		t.Fatalf("root = %s, want %s", p.Root, inner)
	}
	if p.TopRoot != outer {
		t.Fatalf("top root = %s, want %s", p.TopRoot, outer)
	}
	if p.ConfigFile != filepath.Join(inner, ConfigFileName) {
		t.Fatalf("config file = %s", p.ConfigFile)
	}
}

func TestResolveProjectWithoutConfig(t *testing.T) {
	dir := t.TempDir()
	p, err := ResolveProject(dir)
	if err != nil {
		t.Fatalf("resolve project: %v", err)
	}
	if p.Root != dir || p.TopRoot != dir {
		t.Fatalf("expected start dir fallback, got root=%s top=%s", p.Root, p.TopRoot)
	}
	if p.LegacyVersionFile() != filepath.Join(dir, ".python-version") {
		t.Fatalf("legacy file = %s", p.LegacyVersionFile())
	}
}
