package python

import (
	"context"
	"fmt"

	"pyforge/internal/execx"
	"pyforge/internal/paths"
	"pyforge/internal/runtime"
)

// installDefaultPackages feeds the configured default-packages file to pip in
// a freshly installed interpreter. No file, no work.
func (t *Tool) installDefaultPackages(ctx context.Context, installPath string, report runtime.Reporter) error {
	file := t.settings.Python.DefaultPackagesFile
	if file == "" {
		return nil
	}
	exists, err := paths.FileExists(file)
	if err != nil {
		return fmt.Errorf("inspect default packages file: %w", err)
	}
	if !exists {
		return nil
	}

	report.SetMessage("installing default packages")
	args := []string{"-m", "pip", "install", "--upgrade", "-r", file}
	if _, err := t.runner.Run(ctx, t.interpreterPath(installPath), args, execx.RunOptions{
		Env: t.projectEnv,
	}); err != nil {
		return fmt.Errorf("install default packages: %w", err)
	}
	return nil
}
