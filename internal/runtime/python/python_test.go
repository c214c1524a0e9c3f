package python

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pyforge/internal/execx"
	"pyforge/internal/gitx"
	"pyforge/internal/paths"
	"pyforge/internal/runtime"
	"pyforge/internal/settings"
)

type runnerCall struct {
	command string
	args    []string
	stdin   string
}

// recordingReporter captures what an install surfaces to the user.
type recordingReporter struct {
	messages []string
	warnings []string
}

func (r *recordingReporter) SetMessage(message string) {
	r.messages = append(r.messages, message)
}

func (r *recordingReporter) Warn(message string) {
	r.warnings = append(r.warnings, message)
}

func (r *recordingReporter) warned(substr string) bool {
	for _, warning := range r.warnings {
		if strings.Contains(warning, substr) {
			return true
		}
	}
	return false
}

type fakeRunner struct {
	calls       []runnerCall
	definitions string
	buildErr    error
	versionErr  error
}

func (f *fakeRunner) Run(_ context.Context, command string, args []string, opts execx.RunOptions) (execx.RunResult, error) {
	f.calls = append(f.calls, runnerCall{
		command: command,
		args:    append([]string(nil), args...),
		stdin:   opts.Stdin,
	})

	if len(args) > 0 && args[0] == "--definitions" {
		return execx.RunResult{Stdout: []byte(f.definitions)}, nil
	}
	if strings.HasSuffix(command, "python-build") {
		return execx.RunResult{}, f.buildErr
	}
	if len(args) == 1 && args[0] == "--version" {
		if f.versionErr != nil {
			return execx.RunResult{}, f.versionErr
		}
		return execx.RunResult{Stdout: []byte("Python 3.12.0\n")}, nil
	}
	if len(args) >= 3 && args[0] == "-m" && args[1] == "venv" {
		if err := os.MkdirAll(args[2], 0o755); err != nil {
			return execx.RunResult{}, err
		}
		return execx.RunResult{}, nil
	}
	return execx.RunResult{}, nil
}

func (f *fakeRunner) find(substr string) *runnerCall {
	for i := range f.calls {
		if strings.Contains(f.calls[i].command+" "+strings.Join(f.calls[i].args, " "), substr) {
			return &f.calls[i]
		}
	}
	return nil
}

type fakeGit struct {
	cloned      bool
	cloneURL    string
	cloneDest   string
	cloneCalls  int
	updateCalls int
	cloneErr    error
	updateErr   error
}

func (g *fakeGit) IsCloned(string) (bool, error) { return g.cloned, nil }

func (g *fakeGit) Clone(_ context.Context, url, dest string) error {
	g.cloneCalls++
	g.cloneURL = url
	g.cloneDest = dest
	if g.cloneErr != nil {
		return g.cloneErr
	}
	g.cloned = true
	return nil
}

func (g *fakeGit) Update(context.Context, string) error {
	g.updateCalls++
	return g.updateErr
}

var _ gitx.Mirror = (*fakeGit)(nil)

func baseSettings() settings.Settings {
	st := settings.Settings{
		CacheTTL:     time.Hour,
		FetchTimeout: 5 * time.Second,
	}
	st.Python.PyenvRepo = "https://github.com/pyenv/pyenv.git"
	return st
}

func newTestTool(t *testing.T, st settings.Settings, runner execx.Runner, git gitx.Mirror) (*Tool, paths.Home) {
	t.Helper()
	t.Setenv("PYFORGE_HOME", t.TempDir())
	home, err := paths.ResolveHome()
	if err != nil {
		t.Fatalf("resolve home: %v", err)
	}
	tool := New(home, st, nil, Deps{Runner: runner, Git: git})
	return tool, home
}

// interpreterArchive builds a minimal standalone-build tarball with a
// python/bin/python3 binary.
func interpreterArchive(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	entries := []struct {
		name string
		mode int64
		body string
		dir  bool
	}{
		{name: "python", dir: true, mode: 0o755},
		{name: "python/bin", dir: true, mode: 0o755},
		{name: "python/bin/python3", mode: 0o755, body: "#!/fake python\n"},
	}
	for _, e := range entries {
		header := &tar.Header{Name: e.name, Mode: e.mode}
		if e.dir {
			header.Typeflag = tar.TypeDir
		} else {
			header.Typeflag = tar.TypeReg
			header.Size = int64(len(e.body))
		}
		if err := tw.WriteHeader(header); err != nil {
			t.Fatalf("write header: %v", err)
		}
		if !e.dir {
			if _, err := tw.Write([]byte(e.body)); err != nil {
				t.Fatalf("write body: %v", err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	return buf.Bytes()
}

func sourceTarget(home paths.Home, version string) runtime.InstallTarget {
	return runtime.InstallTarget{
		Version:      version,
		Kind:         runtime.KindVersion,
		InstallPath:  home.InstallDir("python", version),
		DownloadPath: home.DownloadDir("python", version),
	}
}

func TestInstallSourceBuild(t *testing.T) {
	runner := &fakeRunner{}
	git := &fakeGit{cloned: true}
	tool, home := newTestTool(t, baseSettings(), runner, git)

	target := sourceTarget(home, "3.11.4")
	if err := tool.Install(context.Background(), target, runtime.NopReporter{}); err != nil {
		t.Fatalf("Install: %v", err)
	}

	build := runner.find("python-build")
	if build == nil {
		t.Fatalf("python-build not invoked, calls: %v", runner.calls)
	}
	wantArgs := []string{"3.11.4", target.InstallPath}
	if strings.Join(build.args, " ") != strings.Join(wantArgs, " ") {
		t.Fatalf("python-build args = %v, want %v", build.args, wantArgs)
	}

	smoke := runner.find("--version")
	if smoke == nil {
		t.Fatal("smoke test not invoked")
	}
	if smoke.command != filepath.Join(target.InstallPath, "bin", "python") {
		t.Fatalf("smoke test command = %q", smoke.command)
	}

	if git.updateCalls != 1 || git.cloneCalls != 0 {
		t.Fatalf("git calls: clone=%d update=%d", git.cloneCalls, git.updateCalls)
	}

	manifest, err := runtime.LoadManifest(home.ManifestFile("python"))
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	receipt, ok := manifest.Entries["3.11.4"]
	if !ok {
		t.Fatalf("receipt missing: %v", manifest.Entries)
	}
	if receipt.Strategy != "source-build" {
		t.Fatalf("receipt strategy = %q", receipt.Strategy)
	}
}

func TestInstallPrecompiled(t *testing.T) {
	feed := strings.Join([]string{
		"cpython-3.12.0+20230101-x86_64_v3-unknown-linux-gnu-install_only.tar.gz",
		"cpython-3.12.0+20230507-aarch64-unknown-linux-gnu-install_only.tar.gz",
		"cpython-3.12.0+20230507-x86_64_v3-unknown-linux-gnu-install_only.tar.gz",
		"cpython-3.11.4+20230507-x86_64_v3-unknown-linux-gnu-install_only.tar.gz",
	}, "\n")
	feedServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, feed)
	}))
	defer feedServer.Close()

	tarball := interpreterArchive(t)
	var downloadPath string
	releaseServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downloadPath = r.URL.Path
		_, _ = w.Write(tarball)
	}))
	defer releaseServer.Close()

	st := baseSettings()
	st.Experimental = true
	st.Python.PrecompiledURL = feedServer.URL
	st.Python.ReleaseURL = releaseServer.URL
	st.Python.PrecompiledOS = "unknown-linux-gnu"
	st.Python.PrecompiledArch = "x86_64_v3"

	runner := &fakeRunner{}
	git := &fakeGit{}
	tool, home := newTestTool(t, st, runner, git)

	report := &recordingReporter{}
	target := sourceTarget(home, "3.12.0")
	if err := tool.Install(context.Background(), target, report); err != nil {
		t.Fatalf("Install: %v", err)
	}

	// The later of the two matching releases wins.
	wantPath := "/20230507/cpython-3.12.0+20230507-x86_64_v3-unknown-linux-gnu-install_only.tar.gz"
	if downloadPath != wantPath {
		t.Fatalf("download path = %q, want %q", downloadPath, wantPath)
	}

	// The standalone-build caveat must reach the user, not just the log.
	if !report.warned("pyforge settings set python.compile true") {
		t.Fatalf("switch guidance missing from reporter, warnings: %q", report.warnings)
	}

	if _, err := os.Stat(filepath.Join(target.InstallPath, "bin", "python3")); err != nil {
		t.Fatalf("extracted binary missing: %v", err)
	}
	link, err := os.Readlink(filepath.Join(target.InstallPath, "bin", "python"))
	if err != nil {
		t.Fatalf("readlink python: %v", err)
	}
	if link != "python3" {
		t.Fatalf("python link = %q, want python3", link)
	}

	if git.cloneCalls != 0 && git.updateCalls != 0 {
		t.Fatalf("precompiled install must not touch git: %+v", git)
	}

	manifest, err := runtime.LoadManifest(home.ManifestFile("python"))
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	receipt := manifest.Entries["3.12.0"]
	if receipt.Strategy != "precompiled" {
		t.Fatalf("receipt strategy = %q", receipt.Strategy)
	}
	if receipt.Checksum == "" {
		t.Fatal("receipt checksum empty")
	}
}

func TestInstallRefRejected(t *testing.T) {
	runner := &fakeRunner{}
	git := &fakeGit{}
	tool, home := newTestTool(t, baseSettings(), runner, git)

	target := runtime.InstallTarget{
		Version:      "master",
		Kind:         runtime.KindRef,
		InstallPath:  home.InstallDir("python", "ref-master"),
		DownloadPath: home.DownloadDir("python", "ref-master"),
	}
	err := tool.Install(context.Background(), target, runtime.NopReporter{})
	if err == nil || !strings.Contains(err.Error(), "ref versions not supported") {
		t.Fatalf("err = %v, want ref rejection", err)
	}

	if len(runner.calls) != 0 {
		t.Fatalf("no subprocess may run, got %v", runner.calls)
	}
	if git.cloneCalls != 0 || git.updateCalls != 0 {
		t.Fatalf("no git activity allowed, got %+v", git)
	}
	if _, err := os.Stat(target.InstallPath); !os.IsNotExist(err) {
		t.Fatalf("install path must not exist, stat err = %v", err)
	}
}

func TestInstallSmokeTestFailure(t *testing.T) {
	runner := &fakeRunner{versionErr: fmt.Errorf("exit status 127")}
	git := &fakeGit{cloned: true}
	tool, home := newTestTool(t, baseSettings(), runner, git)

	err := tool.Install(context.Background(), sourceTarget(home, "3.11.4"), runtime.NopReporter{})
	if err == nil || !strings.Contains(err.Error(), "smoke test") {
		t.Fatalf("err = %v, want smoke test failure", err)
	}

	manifest, err := runtime.LoadManifest(home.ManifestFile("python"))
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	if len(manifest.Entries) != 0 {
		t.Fatalf("failed install must not record a receipt: %v", manifest.Entries)
	}
}

func TestUninstall(t *testing.T) {
	runner := &fakeRunner{}
	git := &fakeGit{cloned: true}
	tool, home := newTestTool(t, baseSettings(), runner, git)

	target := sourceTarget(home, "3.11.4")
	if err := tool.Install(context.Background(), target, runtime.NopReporter{}); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(target.InstallPath, "bin"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if err := tool.Uninstall(context.Background(), target.InstallPath); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	if _, err := os.Stat(target.InstallPath); !os.IsNotExist(err) {
		t.Fatalf("install path still present, stat err = %v", err)
	}
	manifest, err := runtime.LoadManifest(home.ManifestFile("python"))
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	if _, ok := manifest.Entries["3.11.4"]; ok {
		t.Fatal("receipt should be removed on uninstall")
	}
}

func TestName(t *testing.T) {
	tool, _ := newTestTool(t, baseSettings(), &fakeRunner{}, &fakeGit{})
	if tool.Name() != "python" {
		t.Fatalf("Name = %q", tool.Name())
	}
	if got := tool.LegacyFilenames(); len(got) != 1 || got[0] != ".python-version" {
		t.Fatalf("LegacyFilenames = %v", got)
	}
}
