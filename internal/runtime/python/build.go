package python

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"pyforge/internal/execx"
	"pyforge/internal/runtime"
)

func (t *Tool) pythonBuildBin() string {
	return filepath.Join(t.home.PyenvDir(), "plugins", "python-build", "bin", "python-build")
}

// ensurePythonBuild clones the pyenv repository on first use and otherwise
// attempts a timeout-bounded update. Update failures are warnings, not fatal;
// a failed initial clone is fatal because nothing can build without it.
func (t *Tool) ensurePythonBuild(ctx context.Context, report runtime.Reporter) error {
	dir := t.home.PyenvDir()
	cloned, err := t.git.IsCloned(dir)
	if err != nil {
		return fmt.Errorf("inspect pyenv checkout: %w", err)
	}
	if !cloned {
		t.logger.Debug("cloning pyenv", "repo", t.settings.Python.PyenvRepo, "dir", dir)
		if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
			return fmt.Errorf("prepare repos dir: %w", err)
		}
		if err := t.git.Clone(ctx, t.settings.Python.PyenvRepo, dir); err != nil {
			return fmt.Errorf("clone pyenv: %w", err)
		}
		return nil
	}

	updateCtx, cancel := context.WithTimeout(ctx, t.settings.FetchTimeout)
	defer cancel()
	if err := t.git.Update(updateCtx, dir); err != nil {
		t.warn(report, fmt.Sprintf("failed to update pyenv: %v", err))
	}
	return nil
}

// installSourceBuild compiles a version by driving python-build as an opaque
// binary: positional version and prefix, optional --verbose, optional patch
// content on stdin.
func (t *Tool) installSourceBuild(ctx context.Context, target runtime.InstallTarget, report runtime.Reporter) error {
	if err := t.ensurePythonBuild(ctx, report); err != nil {
		return err
	}

	patch, err := t.patchContent(ctx, target.Version, report)
	if err != nil {
		return err
	}

	var args []string
	if t.settings.Verbose {
		args = append(args, "--verbose")
	}
	if patch != "" {
		args = append(args, "--patch")
	}
	args = append(args, target.Version, target.InstallPath)

	report.SetMessage("running python-build " + target.Version)
	opts := execx.RunOptions{
		Env:   t.projectEnv,
		Stdin: patch,
	}
	if t.settings.Verbose {
		opts.Stdout = os.Stderr
		opts.Stderr = os.Stderr
	}
	if _, err := t.runner.Run(ctx, t.pythonBuildBin(), args, opts); err != nil {
		return fmt.Errorf("python-build %s: %w", target.Version, err)
	}
	return nil
}

// patchContent resolves the configured patch source for a version. A local
// per-version patch file wins over a patch URL when both are configured. A
// configured patches dir missing the version's file is a warning only.
func (t *Tool) patchContent(ctx context.Context, version string, report runtime.Reporter) (string, error) {
	var patch string
	if url := t.settings.Python.PatchURL; url != "" {
		report.SetMessage("fetching patch from " + url)
		content, err := t.http.GetText(ctx, url)
		if err != nil {
			return "", fmt.Errorf("fetch patch %s: %w", url, err)
		}
		patch = content
	}
	if dir := t.settings.Python.PatchesDir; dir != "" {
		file := filepath.Join(dir, version+".patch")
		contents, err := os.ReadFile(file)
		switch {
		case errors.Is(err, os.ErrNotExist):
			t.warn(report, "patch file not found: "+file)
		case err != nil:
			return "", fmt.Errorf("read patch %s: %w", file, err)
		default:
			report.SetMessage("applying patch " + filepath.Base(file))
			patch = string(contents)
		}
	}
	return patch, nil
}
