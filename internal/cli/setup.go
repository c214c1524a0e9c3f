package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"pyforge/internal/config"
	"pyforge/internal/logx"
	"pyforge/internal/paths"
	"pyforge/internal/runtime"
	"pyforge/internal/runtime/python"
	"pyforge/internal/settings"
	"pyforge/pkg/pyver"
)

// newTool builds the interpreter tool commands operate on. Tests swap this
// for a stub so commands can run without network or subprocesses.
var newTool = func(home paths.Home, st settings.Settings, projectEnv map[string]string, deps python.Deps) runtime.Tool {
	return python.New(home, st, projectEnv, deps)
}

// appContext carries the resolved state every command starts from: the
// pyforge home, effective settings, the project for the working directory,
// and its config.
type appContext struct {
	home     paths.Home
	settings settings.Settings
	project  paths.Project
	config   config.Config
	logger   *log.Logger
	closer   io.Closer

	tool runtime.Tool
}

// loadApp resolves home, settings, project, and config for one command
// invocation. A failing file logger downgrades to a discard logger so
// commands keep working without the logs directory.
func loadApp(command string) (*appContext, error) {
	home, err := paths.ResolveHome()
	if err != nil {
		return nil, err
	}
	if err := home.EnsureBaseDirs(); err != nil {
		return nil, err
	}

	st, err := settings.Load(home)
	if err != nil {
		return nil, err
	}

	proj, err := paths.ResolveProject(projectDir)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(proj.ConfigFile)
	if err != nil {
		return nil, err
	}

	logger, closer, err := logx.New(home, command)
	if err != nil {
		logger = logx.Discard()
		closer = nil
	}
	logger.Info("command started", "command", command, "project", proj.Root)

	return &appContext{
		home:     home,
		settings: st,
		project:  proj,
		config:   cfg,
		logger:   logger,
		closer:   closer,
	}, nil
}

func (a *appContext) Close() {
	if a.closer != nil {
		a.closer.Close()
	}
}

// Tool returns the interpreter tool, constructing it on first use so
// commands can adjust settings (e.g. --compile) before it is built.
func (a *appContext) Tool() runtime.Tool {
	if a.tool == nil {
		a.tool = newTool(a.home, a.settings, a.config.Env, python.Deps{Logger: a.logger})
	}
	return a.tool
}

// installsDir returns the directory holding installed versions of the tool.
func (a *appContext) installsDir() string {
	return filepath.Join(a.home.InstallsDir, a.Tool().Name())
}

// requestedVersions returns the explicit version arguments or falls back to
// the project pin: pyforge.yaml first, then legacy per-tool version files.
func (a *appContext) requestedVersions(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if v := strings.TrimSpace(a.config.Python.Version); v != "" {
		return []string{v}, nil
	}
	for _, name := range a.Tool().LegacyFilenames() {
		v, err := config.ReadLegacyVersion(filepath.Join(a.project.Root, name))
		if err != nil {
			return nil, err
		}
		if v != "" {
			return []string{v}, nil
		}
	}
	return nil, fmt.Errorf("no version requested and no pin found in %s (checked %s and %s)",
		a.project.Root, paths.ConfigFileName, strings.Join(a.Tool().LegacyFilenames(), ", "))
}

// resolveVersion resolves a requested version against the remote catalog.
// Refs pass through untouched. When the catalog cannot be fetched the
// request is used verbatim so offline installs of concrete versions keep
// working.
func resolveVersion(ctx context.Context, tool runtime.Tool, request string, logger *log.Logger) (string, runtime.VersionKind, error) {
	if pyver.IsRef(request) {
		return request, runtime.KindRef, nil
	}
	remote, err := tool.ListRemoteVersions(ctx)
	if err != nil {
		logger.Warn("failed to list remote versions", "err", err)
		return request, runtime.KindVersion, nil
	}
	resolved := pyver.ResolvePrefix(remote, request)
	if resolved == "" {
		return "", runtime.KindVersion, fmt.Errorf("no %s version matching %q", tool.Name(), request)
	}
	return resolved, runtime.KindVersion, nil
}

// resolveInstalled resolves a version request against what is actually
// installed, accepting prefixes the same way install arguments do.
func (a *appContext) resolveInstalled(request string) (string, error) {
	installed, err := runtime.InstalledVersions(a.installsDir())
	if err != nil {
		return "", err
	}
	match := pyver.ResolvePrefix(installed, request)
	if match == "" {
		return "", fmt.Errorf("%s %s is not installed", a.Tool().Name(), request)
	}
	return match, nil
}
