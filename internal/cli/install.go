package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"pyforge/internal/paths"
	"pyforge/internal/runtime"
	"pyforge/internal/tui"
)

var (
	installCompile    bool
	installVerbose    bool
	installNoProgress bool
)

func newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install [version...]",
		Short: "Install python versions",
		Long: "Install one or more python versions. With no arguments the project\n" +
			"pin is used: pyforge.yaml first, then .python-version.",
		RunE: runInstall,
	}

	cmd.Flags().BoolVar(&installCompile, "compile", false, "Build from source even when precompiled installs are enabled")
	cmd.Flags().BoolVar(&installVerbose, "verbose", false, "Stream build output to the terminal")
	cmd.Flags().BoolVar(&installNoProgress, "no-progress", false, "Disable interactive progress output")

	return cmd
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := loadApp("install")
	if err != nil {
		return err
	}
	defer app.Close()

	if installCompile {
		app.settings.Python.Compile = true
	}
	if installVerbose {
		app.settings.Verbose = true
	}
	tool := app.Tool()
	strategy := string(app.settings.Strategy())

	status := tui.NewStatusWriter(cmd.ErrOrStderr())
	defer status.Stop()

	status.Update("Resolving versions...")
	requests, err := app.requestedVersions(args)
	if err != nil {
		return err
	}

	targets := make([]runtime.InstallTarget, 0, len(requests))
	for _, request := range requests {
		version, kind, err := resolveVersion(ctx, tool, request, app.logger)
		if err != nil {
			return err
		}
		targets = append(targets, runtime.InstallTarget{
			Version:      version,
			Kind:         kind,
			InstallPath:  app.home.InstallDir(tool.Name(), version),
			DownloadPath: app.home.DownloadDir(tool.Name(), version),
			ProjectRoot:  app.project.Root,
			TopRoot:      app.project.TopRoot,
			Options:      app.config.Python.Options(),
		})
	}

	outWriter := cmd.OutOrStdout()
	mode := tui.DetectMode(outWriter, installNoProgress, outputJSON)
	status.Stop()

	results := make([]installRowResult, 0, len(targets))
	counts := installCounts{}
	var failures []error

	installWork := func(send func(tea.Msg)) {
		for _, target := range targets {
			var row *tui.InstallReporter
			if send != nil {
				row = tui.NewInstallReporter(send, target.Version)
			}

			if target.Kind == runtime.KindVersion {
				exists, err := paths.DirExists(target.InstallPath)
				if err == nil && exists {
					counts.Skipped++
					app.logger.Info("already installed", "version", target.Version)
					if row != nil {
						row.SetStatus("skipped")
						row.SetMessage("already installed")
					}
					results = append(results, installRowResult{
						Version: target.Version,
						Status:  "skipped",
						Detail:  "already installed",
					})
					continue
				}
			}

			var report runtime.Reporter = runtime.NopReporter{}
			if row != nil {
				row.SetStatus("installing")
				report = row
			} else if mode == tui.ModePlain {
				report = printReporter{w: cmd.ErrOrStderr(), version: target.Version}
			}

			start := time.Now()
			if err := tool.Install(ctx, target, report); err != nil {
				counts.Failed++
				failures = append(failures, fmt.Errorf("install %s: %w", target.Version, err))
				app.logger.Error("install failed", "version", target.Version, "err", err)
				if row != nil {
					row.Fail(err)
				} else {
					fmt.Fprintf(cmd.ErrOrStderr(), "install %s failed: %v\n", target.Version, err)
				}
				results = append(results, installRowResult{
					Version: target.Version,
					Status:  "failed",
					Error:   err.Error(),
				})
				continue
			}

			counts.Installed++
			detail := fmt.Sprintf("done in %s", time.Since(start).Round(time.Second))
			if row != nil {
				row.SetStatus("installed")
				row.SetMessage(detail)
			}
			results = append(results, installRowResult{
				Version: target.Version,
				Status:  "installed",
				Detail:  detail,
			})
		}
	}

	if mode == tui.ModeTUI {
		fmt.Fprintf(outWriter, "Strategy: %s\n", strategy)
		model := buildInstallProgressModel(targets)
		if err := tui.RunWithWork(outWriter, model, installWork); err != nil {
			return err
		}
	} else {
		installWork(nil)
	}

	if mode == tui.ModeJSON {
		if err := writeInstallJSON(cmd, strategy, results, counts); err != nil {
			return err
		}
	} else if mode == tui.ModeTUI {
		printInstallSummary(outWriter, counts)
	} else {
		writeInstallTable(cmd, strategy, results, counts)
	}

	if joined := errors.Join(failures...); joined != nil {
		return fmt.Errorf("%d of %d installs failed: %w", counts.Failed, len(targets), joined)
	}
	return nil
}

func buildInstallProgressModel(targets []runtime.InstallTarget) tui.ProgressModel {
	model := tui.NewProgressModel([]tui.Column{
		{Header: "VERSION", Width: 12},
		{Header: "STATUS", Width: 10},
		{Header: "DETAIL", Width: 48},
	})
	for _, target := range targets {
		model.AddRow(target.Version, []string{target.Version, "pending", "-"})
	}
	return model
}

// printReporter writes progress lines for plain-output installs.
type printReporter struct {
	w       io.Writer
	version string
}

func (p printReporter) SetMessage(message string) {
	fmt.Fprintf(p.w, "[%s] %s\n", p.version, message)
}

func (p printReporter) Warn(message string) {
	fmt.Fprintf(p.w, "[%s] warning: %s\n", p.version, message)
}

type installRowResult struct {
	Version string `json:"version"`
	Status  string `json:"status"`
	Detail  string `json:"detail,omitempty"`
	Error   string `json:"error,omitempty"`
}

type installCounts struct {
	Installed int `json:"installed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

func writeInstallJSON(cmd *cobra.Command, strategy string, rows []installRowResult, counts installCounts) error {
	payload := struct {
		Strategy string             `json:"strategy"`
		Rows     []installRowResult `json:"rows"`
		Summary  installCounts      `json:"summary"`
	}{
		Strategy: strategy,
		Rows:     rows,
		Summary:  counts,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode install json: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func writeInstallTable(cmd *cobra.Command, strategy string, rows []installRowResult, counts installCounts) {
	fmt.Fprintf(cmd.OutOrStdout(), "Strategy: %s\n", strategy)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATUS\tDETAIL")
	for _, row := range rows {
		detail := row.Detail
		if row.Error != "" {
			detail = row.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", row.Version, row.Status, tui.NonEmptyOrDash(detail))
	}
	w.Flush()

	printInstallSummary(cmd.OutOrStdout(), counts)
}

func printInstallSummary(w io.Writer, counts installCounts) {
	fmt.Fprintf(w, "Installed: %d, Skipped: %d, Failed: %d\n",
		counts.Installed, counts.Skipped, counts.Failed,
	)
}
