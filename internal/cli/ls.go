package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pyforge/internal/runtime"
	"pyforge/internal/tui"
)

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List installed python versions",
		RunE:  runLs,
	}
}

type lsRow struct {
	Version     string `json:"version"`
	Strategy    string `json:"strategy,omitempty"`
	InstalledAt string `json:"installed_at,omitempty"`
	Checksum    string `json:"checksum,omitempty"`
}

func runLs(cmd *cobra.Command, _ []string) error {
	app, err := loadApp("ls")
	if err != nil {
		return err
	}
	defer app.Close()

	versions, err := runtime.InstalledVersions(app.installsDir())
	if err != nil {
		return err
	}

	manifest, err := runtime.LoadManifest(app.home.ManifestFile(app.Tool().Name()))
	if err != nil {
		app.logger.Warn("failed to read install manifest", "err", err)
		manifest = runtime.Manifest{}
	}

	rows := make([]lsRow, 0, len(versions))
	for _, version := range versions {
		row := lsRow{Version: version}
		if receipt, ok := manifest.Entries[version]; ok {
			row.Strategy = receipt.Strategy
			row.InstalledAt = receipt.InstalledAt
			row.Checksum = receipt.Checksum
		}
		rows = append(rows, row)
	}

	if outputJSON {
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return fmt.Errorf("encode ls json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	if len(rows) == 0 {
		cmd.Println("No python versions installed")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTRATEGY\tINSTALLED\tCHECKSUM")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			row.Version,
			tui.NonEmptyOrDash(row.Strategy),
			tui.NonEmptyOrDash(row.InstalledAt),
			tui.NonEmptyOrDash(tui.TruncateWithEllipsis(row.Checksum, 15)),
		)
	}
	w.Flush()
	return nil
}
