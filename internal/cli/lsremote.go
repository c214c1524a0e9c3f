package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"pyforge/internal/tui"
)

func newLsRemoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls-remote",
		Short: "List python versions available to install",
		RunE:  runLsRemote,
	}
}

func runLsRemote(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := loadApp("ls-remote")
	if err != nil {
		return err
	}
	defer app.Close()

	status := tui.NewStatusWriter(cmd.ErrOrStderr())
	defer status.Stop()

	status.Update("Fetching python versions...")
	versions, err := app.Tool().ListRemoteVersions(ctx)
	status.Stop()
	if err != nil {
		return err
	}

	if outputJSON {
		data, err := json.MarshalIndent(versions, "", "  ")
		if err != nil {
			return fmt.Errorf("encode ls-remote json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	for _, version := range versions {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	}
	return nil
}
