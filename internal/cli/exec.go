package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"pyforge/internal/execx"
)

func newExecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec [version] -- <command> [args...]",
		Short: "Run a command with a python install on PATH",
		Args:  cobra.ArbitraryArgs,
		RunE:  runExec,
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func runExec(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	request, command, err := splitExecArgs(args, cmd.ArgsLenAtDash())
	if err != nil {
		return err
	}

	app, err := loadApp("exec")
	if err != nil {
		return err
	}
	defer app.Close()

	var versionArgs []string
	if request != "" {
		versionArgs = []string{request}
	}
	version, err := requestedInstalledVersion(app, versionArgs)
	if err != nil {
		return err
	}

	env, pathPrepend, err := execEnvironment(ctx, app, version)
	if err != nil {
		return err
	}

	overlay := make([]string, 0, len(env)+1)
	for k, v := range env {
		overlay = append(overlay, k+"="+v)
	}
	sort.Strings(overlay)
	overlay = append(overlay, "PATH="+strings.Join(pathPrepend, ":")+":"+os.Getenv("PATH"))

	app.logger.Info("exec", "version", version, "command", command[0])

	runner := execx.CmdRunner{}
	_, err = runner.Run(ctx, command[0], command[1:], execx.RunOptions{
		Env:    overlay,
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	})
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			app.Close()
			os.Exit(exitErr.ExitCode())
		}
		return fmt.Errorf("exec %s: %w", command[0], err)
	}
	return nil
}

// splitExecArgs separates the optional version argument from the command to
// run. dashAt is the position of "--" as reported by cobra (-1 when absent);
// without a dash every argument belongs to the command.
func splitExecArgs(args []string, dashAt int) (version string, command []string, err error) {
	if dashAt < 0 {
		command = args
	} else {
		before := args[:dashAt]
		command = args[dashAt:]
		if len(before) > 1 {
			return "", nil, fmt.Errorf("at most one version may precede --, got %d arguments", len(before))
		}
		if len(before) == 1 {
			version = before[0]
		}
	}
	if len(command) == 0 {
		return "", nil, fmt.Errorf("no command given (usage: pyforge exec [version] -- <command> [args...])")
	}
	return version, command, nil
}
