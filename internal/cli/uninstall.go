package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

func newUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <version>",
		Short: "Remove an installed python version",
		Args:  cobra.ExactArgs(1),
		RunE:  runUninstall,
	}
}

func runUninstall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := loadApp("uninstall")
	if err != nil {
		return err
	}
	defer app.Close()

	tool := app.Tool()
	version, err := app.resolveInstalled(args[0])
	if err != nil {
		return err
	}

	if err := tool.Uninstall(ctx, app.home.InstallDir(tool.Name(), version)); err != nil {
		return err
	}

	// Interrupted installs can leave a staging directory behind.
	if err := os.RemoveAll(app.home.DownloadDir(tool.Name(), version)); err != nil {
		app.logger.Warn("failed to remove staging directory", "version", version, "err", err)
	}

	app.logger.Info("uninstalled", "version", version)
	cmd.Printf("Removed %s %s\n", tool.Name(), version)
	return nil
}
