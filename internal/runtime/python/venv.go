package python

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pyforge/internal/execx"
	"pyforge/internal/paths"
	"pyforge/internal/runtime"
)

// virtualenv is a resolved project environment and whether this call created
// it. The zero value means no environment applies.
type virtualenv struct {
	Path    string
	Created bool
}

// resolveVirtualenv returns the project's virtualenv descriptor, or the zero
// value when the project requests none. A missing directory is created when
// auto-create is enabled; otherwise guidance is emitted and nothing resolves.
func (t *Tool) resolveVirtualenv(ctx context.Context, env runtime.EnvContext, report runtime.Reporter) (virtualenv, error) {
	venv := env.Options["virtualenv"]
	if venv == "" {
		return virtualenv{}, nil
	}
	if !t.settings.Experimental {
		t.warn(report, "enable experimental to use python virtualenv activation, run: pyforge settings set experimental true")
	}

	venv = expandPath(venv)
	if !filepath.IsAbs(venv) {
		// Anchored at the outermost project root, not the config file that
		// declared the request.
		if env.TopRoot != "" {
			venv = filepath.Join(env.TopRoot, venv)
		}
	}

	exists, err := paths.DirExists(venv)
	if err != nil {
		return virtualenv{}, fmt.Errorf("inspect virtualenv path: %w", err)
	}
	if exists {
		return virtualenv{Path: venv}, nil
	}
	if !t.settings.Python.VenvAutoCreate {
		t.warn(report, fmt.Sprintf("no venv found at: %s", venv))
		t.warn(report, "to have pyforge create virtualenvs automatically, run: pyforge settings set python.venv_auto_create true")
		t.warn(report, fmt.Sprintf("to create it manually, run: python -m venv %s", venv))
		return virtualenv{}, nil
	}
	t.logger.Info("setting up virtualenv", "path", venv)
	report.SetMessage("creating virtualenv")
	python := t.interpreterPath(env.InstallPath)
	if _, err := t.runner.Run(ctx, python, []string{"-m", "venv", venv}, execx.RunOptions{
		Env: t.projectEnv,
	}); err != nil {
		return virtualenv{}, fmt.Errorf("create virtualenv %s: %w", venv, err)
	}
	return virtualenv{Path: venv, Created: true}, nil
}

// ExecEnv reports the activation environment for an installed version. With a
// resolved virtualenv it exposes the activation root and a path prepend for
// its bin directory; otherwise the map is empty.
func (t *Tool) ExecEnv(ctx context.Context, env runtime.EnvContext) (map[string]string, error) {
	out := map[string]string{}
	venv, err := t.resolveVirtualenv(ctx, env, runtime.NopReporter{})
	if err != nil {
		t.logger.Warn("failed to resolve virtualenv", "err", err)
		return out, nil
	}
	if venv.Path != "" {
		out["VIRTUAL_ENV"] = venv.Path
		out["PYFORGE_ADD_PATH"] = filepath.Join(venv.Path, "bin")
	}
	return out, nil
}

// expandPath substitutes a leading ~ and any $VAR references.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return os.ExpandEnv(path)
}
