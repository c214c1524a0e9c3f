package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigFileName is the per-project configuration file pyforge looks for
// when resolving a project root.
const ConfigFileName = "pyforge.yaml"

// Home captures the canonical locations under the pyforge home directory.
type Home struct {
	Root         string
	InstallsDir  string
	DownloadsDir string
	CacheDir     string
	ReposDir     string
	LogsDir      string
	SettingsFile string
}

// ResolveHome determines the pyforge home using the PYFORGE_HOME override or
// ~/.pyforge when the variable is unset.
func ResolveHome() (Home, error) {
	root := ""
	if override, ok := os.LookupEnv("PYFORGE_HOME"); ok && override != "" {
		abs, err := filepath.Abs(override)
		if err != nil {
			return Home{}, fmt.Errorf("resolve PYFORGE_HOME: %w", err)
		}
		root = abs
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return Home{}, fmt.Errorf("detect user home: %w", err)
		}
		root = filepath.Join(home, ".pyforge")
	}
	return newHome(root), nil
}

func newHome(root string) Home {
	return Home{
		Root:         root,
		InstallsDir:  filepath.Join(root, "installs"),
		DownloadsDir: filepath.Join(root, "downloads"),
		CacheDir:     filepath.Join(root, "cache"),
		ReposDir:     filepath.Join(root, "repos"),
		LogsDir:      filepath.Join(root, "logs"),
		SettingsFile: filepath.Join(root, "settings.yaml"),
	}
}

// InstallDir returns the install path for one tool version.
func (h Home) InstallDir(tool, version string) string {
	return filepath.Join(h.InstallsDir, tool, version)
}

// DownloadDir returns the staging path used while installing one tool version.
func (h Home) DownloadDir(tool, version string) string {
	return filepath.Join(h.DownloadsDir, tool, version)
}

// ToolCacheDir returns the private cache directory for a tool.
func (h Home) ToolCacheDir(tool string) string {
	return filepath.Join(h.CacheDir, tool)
}

// ManifestFile returns the install-receipt manifest path for a tool.
func (h Home) ManifestFile(tool string) string {
	return filepath.Join(h.InstallsDir, tool, "manifest.json")
}

// PyenvDir returns the location of the cloned pyenv repository.
func (h Home) PyenvDir() string {
	return filepath.Join(h.ReposDir, "pyenv")
}

// DefaultPackagesFile returns the default location of the package list
// installed into fresh interpreters.
func (h Home) DefaultPackagesFile() string {
	return filepath.Join(h.Root, "default-packages")
}

// EnsureBaseDirs creates the standard directory hierarchy under the home.
func (h Home) EnsureBaseDirs() error {
	dirs := []string{h.Root, h.InstallsDir, h.DownloadsDir, h.CacheDir, h.ReposDir, h.LogsDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Project captures the resolved project context for a command invocation.
//
// Root is the nearest ancestor directory containing a pyforge.yaml (or the
// start directory when none exists). TopRoot is the outermost such ancestor;
// relative virtualenv paths are resolved against TopRoot rather than the
// directory of the config file that declared them.
type Project struct {
	Root       string
	ConfigFile string
	TopRoot    string
}

// ResolveProject determines the project context using the optional --project
// flag or the current working directory when the flag is empty.
func ResolveProject(projectFlag string) (Project, error) {
	var (
		start string
		err   error
	)
	if projectFlag != "" {
		start, err = filepath.Abs(projectFlag)
	} else {
		start, err = os.Getwd()
	}
	if err != nil {
		return Project{}, fmt.Errorf("resolve project start dir: %w", err)
	}
	return findProject(start)
}

func findProject(start string) (Project, error) {
	var found []string
	dir := start
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		ok, err := FileExists(candidate)
		if err != nil {
			return Project{}, fmt.Errorf("probe %s: %w", candidate, err)
		}
		if ok {
			found = append(found, dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if len(found) == 0 {
		return Project{
			Root:       start,
			ConfigFile: filepath.Join(start, ConfigFileName),
			TopRoot:    start,
		}, nil
	}
	return Project{
		Root:       found[0],
		ConfigFile: filepath.Join(found[0], ConfigFileName),
		TopRoot:    found[len(found)-1],
	}, nil
}

// LegacyVersionFile returns the path of the .python-version file for the
// project root.
func (p Project) LegacyVersionFile() string {
	return filepath.Join(p.Root, ".python-version")
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
