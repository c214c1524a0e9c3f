// Package python provisions CPython interpreters, either from precompiled
// standalone builds or by driving python-build from a pyenv checkout.
package python

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"pyforge/internal/cachex"
	"pyforge/internal/execx"
	"pyforge/internal/gitx"
	"pyforge/internal/httpx"
	"pyforge/internal/logx"
	"pyforge/internal/paths"
	"pyforge/internal/runtime"
	"pyforge/internal/settings"
)

const toolName = "python"

// Deps bundles the collaborators a Tool spawns work through. Zero fields are
// replaced with real implementations; tests inject fakes.
type Deps struct {
	HTTP   *httpx.Client
	Git    gitx.Mirror
	Runner execx.Runner
	Logger *log.Logger
}

// Tool installs and activates python versions under the pyforge home.
type Tool struct {
	home       paths.Home
	settings   settings.Settings
	projectEnv []string

	http   *httpx.Client
	git    gitx.Mirror
	runner execx.Runner
	logger *log.Logger

	feedCache    *cachex.Manager[[]feedEntry]
	versionCache *cachex.Manager[[]string]
}

// New builds a Tool for one command invocation. projectEnv is the env block
// of the active project config and is overlaid on every subprocess.
func New(home paths.Home, st settings.Settings, projectEnv map[string]string, deps Deps) *Tool {
	if deps.HTTP == nil {
		deps.HTTP = httpx.New()
	}
	if deps.Git == nil {
		deps.Git = gitx.NewClient()
	}
	if deps.Runner == nil {
		deps.Runner = execx.CmdRunner{}
	}
	if deps.Logger == nil {
		deps.Logger = logx.Discard()
	}
	cacheDir := home.ToolCacheDir(toolName)
	return &Tool{
		home:         home,
		settings:     st,
		projectEnv:   envSlice(projectEnv),
		http:         deps.HTTP,
		git:          deps.Git,
		runner:       deps.Runner,
		logger:       deps.Logger,
		feedCache:    cachex.New[[]feedEntry](filepath.Join(cacheDir, "precompiled.msgpack.z"), st.CacheTTL),
		versionCache: cachex.New[[]string](filepath.Join(cacheDir, "remote_versions.msgpack.z"), st.CacheTTL),
	}
}

func (t *Tool) Name() string { return toolName }

// warn sends guidance to the user's console through the reporter and keeps a
// copy in the run log.
func (t *Tool) warn(report runtime.Reporter, message string) {
	report.Warn(message)
	t.logger.Warn(message)
}

// LegacyFilenames lists per-project version files honored besides
// pyforge.yaml.
func (t *Tool) LegacyFilenames() []string {
	return []string{".python-version"}
}

// Install provisions target.Version into target.InstallPath. Strategy
// selection is pure configuration; the chosen installer runs, the result is
// smoke-tested, and virtualenv plus default-package setup follow best-effort.
func (t *Tool) Install(ctx context.Context, target runtime.InstallTarget, report runtime.Reporter) error {
	logger := t.logger.With("op", uuid.NewString(), "version", target.Version)

	if target.Kind == runtime.KindRef {
		return fmt.Errorf("ref versions not supported for python")
	}

	strategy := t.settings.Strategy()
	logger.Debug("strategy selected", "strategy", strategy)

	var checksum string
	switch strategy {
	case settings.StrategyPrecompiled:
		var err error
		checksum, err = t.installPrecompiled(ctx, target, report)
		if err != nil {
			return err
		}
	default:
		if err := t.installSourceBuild(ctx, target, report); err != nil {
			return err
		}
	}

	if err := t.smokeTest(ctx, target.InstallPath, report); err != nil {
		return err
	}

	// Post-install steps never fail a validated install.
	envCtx := runtime.EnvContext{
		InstallPath: target.InstallPath,
		ProjectRoot: target.ProjectRoot,
		TopRoot:     target.TopRoot,
		Options:     target.Options,
	}
	if venv, err := t.resolveVirtualenv(ctx, envCtx, report); err != nil {
		report.Warn(fmt.Sprintf("failed to set up virtualenv: %v", err))
		logger.Warn("failed to set up virtualenv", "err", err)
	} else if venv.Created {
		logger.Info("virtualenv created", "path", venv.Path)
	} else if venv.Path != "" {
		logger.Debug("virtualenv ready", "path", venv.Path)
	}
	if err := t.installDefaultPackages(ctx, target.InstallPath, report); err != nil {
		report.Warn(fmt.Sprintf("failed to install default packages: %v", err))
		logger.Warn("failed to install default packages", "err", err)
	}

	if err := t.writeReceipt(target.Version, string(strategy), checksum); err != nil {
		logger.Warn("failed to record install receipt", "err", err)
	}
	logger.Info("installed python", "strategy", strategy, "path", target.InstallPath)
	return nil
}

// Uninstall removes an installed version and drops its receipt.
func (t *Tool) Uninstall(_ context.Context, installPath string) error {
	if err := os.RemoveAll(installPath); err != nil {
		return fmt.Errorf("remove install: %w", err)
	}
	manifestFile := t.home.ManifestFile(toolName)
	manifest, err := runtime.LoadManifest(manifestFile)
	if err != nil {
		t.logger.Warn("failed to read install manifest", "err", err)
		return nil
	}
	manifest.Remove(filepath.Base(installPath))
	if err := runtime.SaveManifest(manifestFile, manifest); err != nil {
		t.logger.Warn("failed to update install manifest", "err", err)
	}
	return nil
}

// smokeTest runs the installed interpreter's version query. A failure means
// the install did not succeed regardless of what was written to disk.
func (t *Tool) smokeTest(ctx context.Context, installPath string, report runtime.Reporter) error {
	report.SetMessage("python --version")
	result, err := t.runner.Run(ctx, t.interpreterPath(installPath), []string{"--version"}, execx.RunOptions{
		Env: t.projectEnv,
	})
	if err != nil {
		return fmt.Errorf("python smoke test: %w", err)
	}
	output := strings.TrimSpace(string(result.Stdout))
	if output == "" {
		// Older interpreters print the version to stderr.
		output = strings.TrimSpace(string(result.Stderr))
	}
	t.logger.Debug("smoke test passed", "output", output)
	return nil
}

func (t *Tool) interpreterPath(installPath string) string {
	return filepath.Join(installPath, "bin", "python")
}

func (t *Tool) writeReceipt(version, strategy, checksum string) error {
	manifestFile := t.home.ManifestFile(toolName)
	manifest, err := runtime.LoadManifest(manifestFile)
	if err != nil {
		return err
	}
	manifest.Record(runtime.Receipt{
		Version:     version,
		Strategy:    strategy,
		InstalledAt: time.Now().UTC().Format(time.RFC3339),
		Checksum:    checksum,
	})
	return runtime.SaveManifest(manifestFile, manifest)
}

func envSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(env))
	for key := range env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, key+"="+env[key])
	}
	return out
}

var _ runtime.Tool = (*Tool)(nil)
