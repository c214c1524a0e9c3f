package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"pyforge/internal/runtime"
)

func newEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env [version]",
		Short: "Print the activation environment for a python version",
		Long: "Print shell export lines (or --json) for running commands against an\n" +
			"installed version: the project env overlay, the interpreter's own\n" +
			"environment, and a PATH prepend for its bin directory.",
		Args: cobra.MaximumNArgs(1),
		RunE: runEnv,
	}
}

func runEnv(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := loadApp("env")
	if err != nil {
		return err
	}
	defer app.Close()

	version, err := requestedInstalledVersion(app, args)
	if err != nil {
		return err
	}

	env, pathPrepend, err := execEnvironment(ctx, app, version)
	if err != nil {
		return err
	}

	if outputJSON {
		payload := struct {
			Version     string            `json:"version"`
			Env         map[string]string `json:"env"`
			PathPrepend []string          `json:"path_prepend"`
		}{
			Version:     version,
			Env:         env,
			PathPrepend: pathPrepend,
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("encode env json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(cmd.OutOrStdout(), "export %s=%q\n", k, env[k])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "export PATH=%q\n", strings.Join(pathPrepend, ":")+":$PATH")
	return nil
}

// requestedInstalledVersion resolves the optional version argument, falling
// back to the project pin, against the installed versions.
func requestedInstalledVersion(app *appContext, args []string) (string, error) {
	requests, err := app.requestedVersions(args)
	if err != nil {
		return "", err
	}
	return app.resolveInstalled(requests[0])
}

// execEnvironment computes the environment for running commands against an
// installed version: the project env overlay with the interpreter's ExecEnv
// merged over it, plus PATH prepend entries (venv bin first, then the
// install's bin directory).
func execEnvironment(ctx context.Context, app *appContext, version string) (map[string]string, []string, error) {
	tool := app.Tool()
	installPath := app.home.InstallDir(tool.Name(), version)

	execEnv, err := tool.ExecEnv(ctx, runtime.EnvContext{
		InstallPath: installPath,
		ProjectRoot: app.project.Root,
		TopRoot:     app.project.TopRoot,
		Options:     app.config.Python.Options(),
	})
	if err != nil {
		return nil, nil, err
	}

	merged := make(map[string]string, len(app.config.Env)+len(execEnv))
	for k, v := range app.config.Env {
		merged[k] = v
	}
	for k, v := range execEnv {
		merged[k] = v
	}

	var prepend []string
	if add := merged["PYFORGE_ADD_PATH"]; add != "" {
		prepend = append(prepend, add)
	}
	prepend = append(prepend, filepath.Join(installPath, "bin"))
	return merged, prepend, nil
}
