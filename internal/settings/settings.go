// Package settings loads the global pyforge settings from the optional
// settings file under the pyforge home, overridden by PYFORGE_* environment
// variables. Settings are read once per command into a value struct so a
// single operation never observes two different configurations.
package settings

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"pyforge/internal/paths"
)

// Strategy selects how an interpreter version gets installed.
type Strategy string

const (
	StrategyPrecompiled Strategy = "precompiled"
	StrategySourceBuild Strategy = "source-build"
)

// Python holds the python-specific settings.
type Python struct {
	Compile             bool
	VenvAutoCreate      bool
	PatchURL            string
	PatchesDir          string
	PyenvRepo           string
	PrecompiledURL      string
	VersionsURL         string
	ReleaseURL          string
	PrecompiledOS       string
	PrecompiledArch     string
	DefaultPackagesFile string
}

// Settings is the effective global configuration for one command invocation.
type Settings struct {
	AllCompile   bool
	Experimental bool
	Verbose      bool
	CacheTTL     time.Duration
	FetchTimeout time.Duration
	Python       Python
}

// Load reads the settings file (if present) and environment overrides.
func Load(home paths.Home) (Settings, error) {
	v := viper.New()
	v.SetConfigFile(home.SettingsFile)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("PYFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("all_compile", false)
	v.SetDefault("experimental", false)
	v.SetDefault("verbose", false)
	v.SetDefault("cache_ttl", "24h")
	v.SetDefault("fetch_timeout", "10s")
	v.SetDefault("python.compile", false)
	v.SetDefault("python.venv_auto_create", false)
	v.SetDefault("python.patch_url", "")
	v.SetDefault("python.patches_dir", "")
	v.SetDefault("python.pyenv_repo", "https://github.com/pyenv/pyenv.git")
	v.SetDefault("python.precompiled_url", "https://pyforge-versions.dev/python-precompiled")
	v.SetDefault("python.versions_url", "https://pyforge-versions.dev/python")
	v.SetDefault("python.release_url", "https://github.com/indygreg/python-build-standalone/releases/download")
	v.SetDefault("python.precompiled_os", "")
	v.SetDefault("python.precompiled_arch", "")
	v.SetDefault("python.default_packages_file", home.DefaultPackagesFile())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Settings{}, fmt.Errorf("read settings: %w", err)
		}
	}

	s := Settings{
		AllCompile:   v.GetBool("all_compile"),
		Experimental: v.GetBool("experimental"),
		Verbose:      v.GetBool("verbose"),
		CacheTTL:     v.GetDuration("cache_ttl"),
		FetchTimeout: v.GetDuration("fetch_timeout"),
		Python: Python{
			Compile:             v.GetBool("python.compile"),
			VenvAutoCreate:      v.GetBool("python.venv_auto_create"),
			PatchURL:            v.GetString("python.patch_url"),
			PatchesDir:          v.GetString("python.patches_dir"),
			PyenvRepo:           v.GetString("python.pyenv_repo"),
			PrecompiledURL:      v.GetString("python.precompiled_url"),
			VersionsURL:         v.GetString("python.versions_url"),
			ReleaseURL:          v.GetString("python.release_url"),
			PrecompiledOS:       v.GetString("python.precompiled_os"),
			PrecompiledArch:     v.GetString("python.precompiled_arch"),
			DefaultPackagesFile: v.GetString("python.default_packages_file"),
		},
	}
	if s.CacheTTL <= 0 {
		s.CacheTTL = 24 * time.Hour
	}
	if s.FetchTimeout <= 0 {
		s.FetchTimeout = 10 * time.Second
	}
	return s, nil
}

// Strategy returns the install strategy the settings select. Precompiled
// installs require experimental mode and no compile override.
func (s Settings) Strategy() Strategy {
	if !s.AllCompile && !s.Python.Compile && s.Experimental {
		return StrategyPrecompiled
	}
	return StrategySourceBuild
}
