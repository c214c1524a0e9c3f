package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pyforge/internal/paths"
)

const starterConfigYAML = `version: 1

python:
  # A concrete version or a prefix; "3.12" installs the newest 3.12 release.
  version: "3.12"
  # Uncomment to create/use a project virtualenv (requires experimental
  # mode; relative paths are anchored at the outermost project root).
  # virtualenv: .venv

# Extra environment variables applied by pyforge env/exec and during
# installs.
# env:
#   PYTHONWARNINGS: default
`

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a starter pyforge.yaml into a project",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInit,
	}
}

func resolveInitDir(projectFlag string, args []string) (string, error) {
	if projectFlag != "" {
		return projectFlag, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	if len(args) > 0 {
		if args[0] == "." {
			return cwd, nil
		}
		if filepath.IsAbs(args[0]) {
			return args[0], nil
		}
		return filepath.Join(cwd, args[0]), nil
	}

	return cwd, nil
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := resolveInitDir(projectDir, args)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create project directory: %w", err)
	}

	configPath := filepath.Join(dir, paths.ConfigFileName)
	exists, err := paths.FileExists(configPath)
	if err != nil {
		return fmt.Errorf("check config: %w", err)
	}
	if exists {
		cmd.Printf("Project already initialized at %s\n", dir)
		return nil
	}

	if err := os.WriteFile(configPath, []byte(starterConfigYAML), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	cmd.Printf("Initialized project at %s\n", dir)
	cmd.Printf("  created %s\n", paths.ConfigFileName)
	return nil
}
