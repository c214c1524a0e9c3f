package cli

import (
	"github.com/spf13/cobra"
)

func newWhereCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "where <version>",
		Short: "Print the install path of a python version",
		Args:  cobra.ExactArgs(1),
		RunE:  runWhere,
	}
}

func runWhere(cmd *cobra.Command, args []string) error {
	app, err := loadApp("where")
	if err != nil {
		return err
	}
	defer app.Close()

	version, err := app.resolveInstalled(args[0])
	if err != nil {
		return err
	}

	cmd.Println(app.home.InstallDir(app.Tool().Name(), version))
	return nil
}
