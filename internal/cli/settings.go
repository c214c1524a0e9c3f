package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"pyforge/internal/paths"
	"pyforge/internal/runtime/python"
	"pyforge/internal/settings"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change pyforge settings",
		RunE:  runSettingsList,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print one effective setting",
		Args:  cobra.ExactArgs(1),
		RunE:  runSettingsGet,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist a setting into the settings file",
		Args:  cobra.ExactArgs(2),
		RunE:  runSettingsSet,
	})

	return cmd
}

type settingsEntry struct {
	Key   string
	Value string
}

// settingsEntries flattens the effective settings into dotted keys, in the
// order the settings file documents them.
func settingsEntries(st settings.Settings) []settingsEntry {
	return []settingsEntry{
		{"all_compile", strconv.FormatBool(st.AllCompile)},
		{"experimental", strconv.FormatBool(st.Experimental)},
		{"verbose", strconv.FormatBool(st.Verbose)},
		{"cache_ttl", st.CacheTTL.String()},
		{"fetch_timeout", st.FetchTimeout.String()},
		{"python.compile", strconv.FormatBool(st.Python.Compile)},
		{"python.venv_auto_create", strconv.FormatBool(st.Python.VenvAutoCreate)},
		{"python.patch_url", st.Python.PatchURL},
		{"python.patches_dir", st.Python.PatchesDir},
		{"python.pyenv_repo", st.Python.PyenvRepo},
		{"python.precompiled_url", st.Python.PrecompiledURL},
		{"python.versions_url", st.Python.VersionsURL},
		{"python.release_url", st.Python.ReleaseURL},
		{"python.precompiled_os", st.Python.PrecompiledOS},
		{"python.precompiled_arch", st.Python.PrecompiledArch},
		{"python.default_packages_file", st.Python.DefaultPackagesFile},
	}
}

// catalogKeys are the settings that change which version catalog is fetched
// or how its feed is filtered. Setting one drops the cached catalog.
var catalogKeys = map[string]bool{
	"all_compile":             true,
	"python.compile":          true,
	"python.precompiled_url":  true,
	"python.versions_url":     true,
	"python.precompiled_os":   true,
	"python.precompiled_arch": true,
}

// settingKind returns how a key's value is validated: "bool", "duration",
// or "string". Unknown keys return "".
func settingKind(key string) string {
	switch key {
	case "all_compile", "experimental", "verbose",
		"python.compile", "python.venv_auto_create":
		return "bool"
	case "cache_ttl", "fetch_timeout":
		return "duration"
	case "python.patch_url", "python.patches_dir", "python.pyenv_repo",
		"python.precompiled_url", "python.versions_url", "python.release_url",
		"python.precompiled_os", "python.precompiled_arch",
		"python.default_packages_file":
		return "string"
	}
	return ""
}

func runSettingsList(cmd *cobra.Command, _ []string) error {
	home, err := paths.ResolveHome()
	if err != nil {
		return err
	}
	st, err := settings.Load(home)
	if err != nil {
		return err
	}

	entries := settingsEntries(st)

	if outputJSON {
		payload := make(map[string]string, len(entries))
		for _, entry := range entries {
			payload[entry.Key] = entry.Value
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("encode settings json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	for _, entry := range entries {
		fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", entry.Key, entry.Value)
	}
	return nil
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	home, err := paths.ResolveHome()
	if err != nil {
		return err
	}
	st, err := settings.Load(home)
	if err != nil {
		return err
	}

	key := args[0]
	for _, entry := range settingsEntries(st) {
		if entry.Key == key {
			fmt.Fprintln(cmd.OutOrStdout(), entry.Value)
			return nil
		}
	}
	return fmt.Errorf("unknown setting %q", key)
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	home, err := paths.ResolveHome()
	if err != nil {
		return err
	}

	key, value := args[0], args[1]
	typed, err := typedSettingValue(key, value)
	if err != nil {
		return err
	}

	if err := persistSetting(home.SettingsFile, key, typed); err != nil {
		return err
	}

	if catalogKeys[key] {
		st, err := settings.Load(home)
		if err != nil {
			return err
		}
		if err := python.New(home, st, nil, python.Deps{}).ClearCatalogCache(); err != nil {
			return fmt.Errorf("drop catalog cache: %w", err)
		}
	}

	cmd.Printf("Set %s = %s\n", key, value)
	return nil
}

// typedSettingValue validates value against the key's kind and returns the
// value to store: bools as bools so the YAML stays typed, everything else as
// the given string.
func typedSettingValue(key, value string) (any, error) {
	switch settingKind(key) {
	case "bool":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("setting %s wants true or false, got %q", key, value)
		}
		return parsed, nil
	case "duration":
		if _, err := time.ParseDuration(value); err != nil {
			return nil, fmt.Errorf("setting %s wants a duration like 24h, got %q", key, value)
		}
		return value, nil
	case "string":
		return value, nil
	}
	return nil, fmt.Errorf("unknown setting %q", key)
}

// persistSetting writes one dotted key into the YAML settings file,
// preserving everything else in it. The file is replaced atomically.
func persistSetting(path, key string, value any) error {
	raw := map[string]any{}
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parse settings file: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read settings file: %w", err)
	}

	node := raw
	parts := strings.Split(key, ".")
	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[part] = child
		}
		node = child
	}
	node[parts[len(parts)-1]] = value

	out, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode settings file: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "settings-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close settings file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace settings file: %w", err)
	}
	return nil
}
