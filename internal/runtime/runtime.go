// Package runtime defines the contract interpreter providers implement and
// the registry commands resolve them through.
package runtime

import (
	"context"
	"fmt"
	"os"
	"sort"

	"pyforge/pkg/pyver"
)

// VersionKind distinguishes release requests from source refs.
type VersionKind string

const (
	KindVersion VersionKind = "version"
	KindRef     VersionKind = "ref"
)

// InstallTarget describes one requested install.
type InstallTarget struct {
	// Version is the resolved release version ("3.12.1") or, for KindRef,
	// the ref name ("master").
	Version string
	Kind    VersionKind
	// InstallPath is the final install directory for this version.
	InstallPath string
	// DownloadPath is scratch space for fetched artifacts.
	DownloadPath string
	// ProjectRoot and TopRoot locate the requesting project. Relative
	// virtualenv options are anchored at TopRoot.
	ProjectRoot string
	TopRoot     string
	// Options carries per-project tool options such as "virtualenv".
	Options map[string]string
}

// EnvContext carries what a tool needs to compute activation environment.
type EnvContext struct {
	InstallPath string
	ProjectRoot string
	// TopRoot is the outermost project root; relative virtualenv paths are
	// anchored here.
	TopRoot string
	Options map[string]string
}

// Reporter receives human-readable progress while an install runs. Warn
// carries guidance the user must see on the console regardless of output
// mode; progress messages may be overwritten, warnings may not.
type Reporter interface {
	SetMessage(message string)
	Warn(message string)
}

// NopReporter discards progress updates.
type NopReporter struct{}

func (NopReporter) SetMessage(string) {}

func (NopReporter) Warn(string) {}

// Tool is one managed interpreter family.
type Tool interface {
	// Name returns the tool name used in paths and commands ("python").
	Name() string

	// ListRemoteVersions returns installable versions, oldest first.
	ListRemoteVersions(ctx context.Context) ([]string, error)

	// Install provisions target.Version into target.InstallPath.
	Install(ctx context.Context, target InstallTarget, report Reporter) error

	// Uninstall removes an installed version rooted at installPath.
	Uninstall(ctx context.Context, installPath string) error

	// ExecEnv returns extra environment variables for an activated install.
	ExecEnv(ctx context.Context, env EnvContext) (map[string]string, error)

	// LegacyFilenames lists per-project version files honored besides
	// pyforge.yaml (".python-version" for python).
	LegacyFilenames() []string
}

// Registry resolves tools by name.
type Registry struct {
	tools map[string]Tool
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, tool := range tools {
		r.tools[tool.Name()] = tool
	}
	return r
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, error) {
	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q (known: %v)", name, r.Names())
	}
	return tool, nil
}

// Names returns the registered tool names sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InstalledVersions lists the version directories under a tool's installs
// directory, oldest version first. A missing directory means no installs.
func InstalledVersions(installsDir string) ([]string, error) {
	entries, err := os.ReadDir(installsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read installs dir: %w", err)
	}

	var versions []string
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name()[0] == '.' {
			continue
		}
		versions = append(versions, entry.Name())
	}
	pyver.SortInstalled(versions)
	return versions, nil
}
