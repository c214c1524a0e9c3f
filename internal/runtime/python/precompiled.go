package python

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pyforge/internal/archive"
	"pyforge/internal/platform"
	"pyforge/internal/runtime"
)

// selectPrecompiled picks the artifact for a version. Among matching entries
// the last one in feed order wins; the feed lists newer releases later.
func (t *Tool) selectPrecompiled(ctx context.Context, version string) (feedEntry, error) {
	entries, err := t.precompiledEntries(ctx)
	if err != nil {
		return feedEntry{}, err
	}
	osTag, archTag := platform.Tags(ctx, t.settings)
	platformTag := archTag + "-" + osTag
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if entry.Version == version && strings.Contains(entry.Filename, platformTag) {
			return entry, nil
		}
	}
	return feedEntry{}, fmt.Errorf("no precompiled artifact found for python %s (%s)", version, platformTag)
}

// installPrecompiled downloads, extracts and relinks a standalone build into
// the install path. It returns the artifact checksum for the receipt.
func (t *Tool) installPrecompiled(ctx context.Context, target runtime.InstallTarget, report runtime.Reporter) (string, error) {
	t.warn(report, "installing precompiled python from a standalone build")
	t.warn(report, "if you experience issues with this python, switch to source builds")
	t.warn(report, "by running: pyforge settings set python.compile true")

	entry, err := t.selectPrecompiled(ctx, target.Version)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(t.settings.Python.ReleaseURL, "/"), entry.Tag, entry.Filename)
	tarball := filepath.Join(target.DownloadPath, entry.Filename)

	report.SetMessage("downloading " + url)
	if err := t.http.DownloadFile(ctx, url, tarball); err != nil {
		return "", fmt.Errorf("download %s: %w", url, err)
	}
	checksum, err := fileChecksum(tarball)
	if err != nil {
		return "", err
	}

	report.SetMessage("extracting " + entry.Filename)
	if err := archive.Untar(tarball, target.DownloadPath); err != nil {
		return "", fmt.Errorf("extract %s: %w", tarball, err)
	}
	if err := os.RemoveAll(target.InstallPath); err != nil {
		return "", fmt.Errorf("remove previous install: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(target.InstallPath), 0o755); err != nil {
		return "", fmt.Errorf("prepare install dir: %w", err)
	}
	if err := os.Rename(filepath.Join(target.DownloadPath, "python"), target.InstallPath); err != nil {
		return "", fmt.Errorf("move extracted runtime: %w", err)
	}
	if err := linkInterpreter(target.InstallPath); err != nil {
		return "", err
	}
	return checksum, nil
}

// linkInterpreter creates the stable bin/python entry point next to the
// versioned binaries the archive ships.
func linkInterpreter(installPath string) error {
	link := filepath.Join(installPath, "bin", "python")
	if err := os.RemoveAll(link); err != nil {
		return fmt.Errorf("replace python link: %w", err)
	}
	if err := os.Symlink("python3", link); err != nil {
		return fmt.Errorf("link python: %w", err)
	}
	return nil
}

func fileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open artifact for checksum: %w", err)
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("checksum artifact: %w", err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
