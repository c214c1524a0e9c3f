package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"pyforge/internal/config"
	"pyforge/internal/gitx"
	"pyforge/internal/paths"
	"pyforge/internal/runtime"
	"pyforge/internal/settings"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check pyforge health",
		RunE:  runDoctor,
	}
}

type healthCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Summary string `json:"summary"`
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	home, err := paths.ResolveHome()
	if err != nil {
		return err
	}

	var checks []healthCheck

	checks = append(checks, checkHome(home))

	st, stErr := settings.Load(home)
	checks = append(checks, checkSettings(st, stErr))

	proj, projErr := paths.ResolveProject(projectDir)
	if projErr != nil {
		checks = append(checks, healthCheck{Name: "Config", Status: "error", Summary: projErr.Error()})
	} else {
		cfg, cfgErr := config.Load(proj.ConfigFile)
		checks = append(checks, checkConfig(proj, cfg, cfgErr))
	}

	checks = append(checks, checkPyenv(gitx.NewClient(), home))
	checks = append(checks, checkCatalogCache(home, st))
	checks = append(checks, checkInstalls(home))

	return writeDoctorResult(cmd, home.Root, checks)
}

func checkHome(home paths.Home) healthCheck {
	exists, err := paths.DirExists(home.Root)
	if err != nil {
		return healthCheck{Name: "Home", Status: "error", Summary: err.Error()}
	}
	if !exists {
		return healthCheck{
			Name:    "Home",
			Status:  "warning",
			Summary: fmt.Sprintf("%s does not exist yet (created on first install)", home.Root),
		}
	}
	return healthCheck{Name: "Home", Status: "ok", Summary: home.Root}
}

func checkSettings(st settings.Settings, stErr error) healthCheck {
	if stErr != nil {
		return healthCheck{Name: "Settings", Status: "error", Summary: stErr.Error()}
	}
	summary := fmt.Sprintf("strategy=%s, experimental=%v, cache_ttl=%s",
		st.Strategy(), st.Experimental, st.CacheTTL)
	return healthCheck{Name: "Settings", Status: "ok", Summary: summary}
}

func checkConfig(proj paths.Project, cfg config.Config, cfgErr error) healthCheck {
	if cfgErr != nil {
		return healthCheck{Name: "Config", Status: "error", Summary: cfgErr.Error()}
	}

	pin := strings.TrimSpace(cfg.Python.Version)
	summary := "no pin"
	if pin != "" {
		summary = "pin=" + pin
	}
	summary += " (" + proj.Root + ")"

	var warnings, errors int
	for _, v := range cfg.Validate() {
		switch v.Level {
		case "warning":
			warnings++
		case "error":
			errors++
		}
	}

	if errors > 0 {
		return healthCheck{Name: "Config", Status: "error", Summary: fmt.Sprintf("%s; %d errors", summary, errors)}
	}
	if warnings > 0 {
		return healthCheck{Name: "Config", Status: "warning", Summary: fmt.Sprintf("%s; %d warnings", summary, warnings)}
	}
	return healthCheck{Name: "Config", Status: "ok", Summary: summary}
}

func checkPyenv(git gitx.Mirror, home paths.Home) healthCheck {
	cloned, err := git.IsCloned(home.PyenvDir())
	if err != nil {
		return healthCheck{Name: "Pyenv", Status: "error", Summary: err.Error()}
	}
	if !cloned {
		return healthCheck{
			Name:    "Pyenv",
			Status:  "warning",
			Summary: "not cloned (cloned on first source build)",
		}
	}
	return healthCheck{Name: "Pyenv", Status: "ok", Summary: home.PyenvDir()}
}

func checkCatalogCache(home paths.Home, st settings.Settings) healthCheck {
	entries, err := os.ReadDir(home.ToolCacheDir("python"))
	if err != nil {
		if os.IsNotExist(err) {
			return healthCheck{Name: "Catalog", Status: "ok", Summary: "no cached catalogs"}
		}
		return healthCheck{Name: "Catalog", Status: "error", Summary: err.Error()}
	}

	var parts []string
	stale := false
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		age := time.Since(info.ModTime())
		label := fmt.Sprintf("%s %s ago", entry.Name(), formatAge(age))
		if st.CacheTTL > 0 && age > st.CacheTTL {
			label += " (stale)"
			stale = true
		}
		parts = append(parts, label)
	}

	if len(parts) == 0 {
		return healthCheck{Name: "Catalog", Status: "ok", Summary: "no cached catalogs"}
	}
	status := "ok"
	if stale {
		status = "warning"
	}
	return healthCheck{Name: "Catalog", Status: status, Summary: joinComma(parts)}
}

func checkInstalls(home paths.Home) healthCheck {
	versions, err := runtime.InstalledVersions(filepath.Join(home.InstallsDir, "python"))
	if err != nil {
		return healthCheck{Name: "Installs", Status: "error", Summary: err.Error()}
	}
	if len(versions) == 0 {
		return healthCheck{Name: "Installs", Status: "ok", Summary: "none"}
	}
	return healthCheck{Name: "Installs", Status: "ok", Summary: joinComma(versions)}
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

func writeDoctorResult(cmd *cobra.Command, homeRoot string, checks []healthCheck) error {
	if outputJSON {
		data, err := json.MarshalIndent(checks, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	bold := lipgloss.NewStyle().Bold(true).Inline(true)
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Inline(true)
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Inline(true)
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Inline(true)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, bold.Render("PYFORGE HEALTH:")+" "+homeRoot)

	for _, c := range checks {
		var statusStr string
		switch c.Status {
		case "ok":
			statusStr = green.Render("OK")
		case "warning":
			statusStr = yellow.Render("WARN")
		case "error":
			statusStr = red.Render("ERROR")
		}
		fmt.Fprintf(out, "  %-10s %s    %s\n", c.Name+":", statusStr, c.Summary)
	}

	return nil
}

func joinComma(items []string) string {
	if len(items) == 0 {
		return ""
	}
	result := items[0]
	for _, item := range items[1:] {
		result += ", " + item
	}
	return result
}
