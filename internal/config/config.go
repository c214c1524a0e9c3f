// Package config reads the per-project pyforge.yaml file.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config captures the interpreter request and environment for a project.
type Config struct {
	Version int               `yaml:"version"`
	Python  PythonConfig      `yaml:"python"`
	Env     map[string]string `yaml:"env,omitempty"`
}

// PythonConfig pins the interpreter a project wants and how it is used.
type PythonConfig struct {
	// Version is a full version ("3.12.1"), a prefix ("3.12") or a
	// "ref:<name>" source request.
	Version string `yaml:"version"`
	// Virtualenv names the project virtual environment directory. Relative
	// paths are anchored at the outermost project root.
	Virtualenv string `yaml:"virtualenv,omitempty"`
}

// Options flattens the python block into the option map install and env
// operations consume.
func (p PythonConfig) Options() map[string]string {
	opts := map[string]string{}
	if p.Virtualenv != "" {
		opts["virtualenv"] = p.Virtualenv
	}
	return opts
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version: 1,
		Python: PythonConfig{
			Version: "",
		},
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults ensures fields fall back to sensible defaults when the YAML
// omits them.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}

// ReadLegacyVersion reads a pyenv-style .python-version file and returns the
// first non-empty line. An absent file returns "" without error.
func ReadLegacyVersion(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read version file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			return line, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read version file: %w", err)
	}
	return "", nil
}
