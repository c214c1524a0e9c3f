package python

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"pyforge/internal/execx"
	"pyforge/internal/platform"
	"pyforge/internal/runtime"
	"pyforge/internal/settings"
	"pyforge/pkg/pyver"
)

// feedEntry is one precompiled artifact: version, release tag, filename.
type feedEntry struct {
	Version  string `msgpack:"version"`
	Tag      string `msgpack:"tag"`
	Filename string `msgpack:"filename"`
}

var feedLineRe = regexp.MustCompile(`^cpython-(\d+\.\d+\.\d+)\+(\d+).*`)

// ListRemoteVersions returns installable versions. Precompiled mode projects
// the artifact feed; otherwise the hosted version list is tried first and
// python-build's definitions are the fallback.
func (t *Tool) ListRemoteVersions(ctx context.Context) ([]string, error) {
	return t.versionCache.GetOrInit(ctx, t.fetchRemoteVersions)
}

func (t *Tool) fetchRemoteVersions(ctx context.Context) ([]string, error) {
	if t.settings.Strategy() == settings.StrategyPrecompiled {
		entries, err := t.precompiledEntries(ctx)
		if err != nil {
			return nil, err
		}
		return uniqueVersions(entries), nil
	}

	if versions, err := t.fetchHostedVersions(ctx); err != nil {
		t.logger.Warn("failed to fetch hosted version list", "err", err)
	} else if len(versions) > 0 {
		return dedupe(versions), nil
	}

	if err := t.ensurePythonBuild(ctx, runtime.NopReporter{}); err != nil {
		return nil, err
	}
	result, err := t.runner.Run(ctx, t.pythonBuildBin(), []string{"--definitions"}, execx.RunOptions{
		Timeout: t.settings.FetchTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("list python-build definitions: %w", err)
	}
	versions := dedupe(splitLines(string(result.Stdout)))
	sortDefinitions(versions)
	return versions, nil
}

// ClearCatalogCache drops the cached feed and version list so the next
// listing refetches them.
func (t *Tool) ClearCatalogCache() error {
	if err := t.feedCache.Clear(); err != nil {
		return err
	}
	return t.versionCache.Clear()
}

// precompiledEntries returns the artifact feed for this platform, cached on
// disk between runs.
func (t *Tool) precompiledEntries(ctx context.Context) ([]feedEntry, error) {
	return t.feedCache.GetOrInit(ctx, func(ctx context.Context) ([]feedEntry, error) {
		osTag, archTag := platform.Tags(ctx, t.settings)
		raw, err := t.http.GetText(ctx, t.settings.Python.PrecompiledURL)
		if err != nil {
			return nil, fmt.Errorf("fetch precompiled feed: %w", err)
		}
		return parseFeed(raw, osTag, archTag), nil
	})
}

// parseFeed keeps feed lines for the platform tag pair and splits them into
// entries, preserving feed order.
func parseFeed(raw, osTag, archTag string) []feedEntry {
	platformTag := archTag + "-" + osTag
	var entries []feedEntry
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, platformTag) {
			continue
		}
		m := feedLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		entries = append(entries, feedEntry{Version: m[1], Tag: m[2], Filename: m[0]})
	}
	return entries
}

// uniqueVersions projects entries to version strings, first occurrence wins.
// One version appears once per release in the feed.
func uniqueVersions(entries []feedEntry) []string {
	versions := make([]string, 0, len(entries))
	for _, entry := range entries {
		versions = append(versions, entry.Version)
	}
	return dedupe(versions)
}

// dedupe removes repeated entries, first occurrence wins.
func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// fetchHostedVersions pulls the plain-text version list the release host
// publishes. Errors are recoverable; the caller falls back to python-build.
func (t *Tool) fetchHostedVersions(ctx context.Context) ([]string, error) {
	url := t.settings.Python.VersionsURL
	if url == "" {
		return nil, nil
	}
	raw, err := t.http.GetText(ctx, url)
	if err != nil {
		return nil, err
	}
	return splitLines(raw), nil
}

// sortDefinitions moves release versions ahead of named builds (anaconda,
// pypy, stackless) while keeping each group's original order.
func sortDefinitions(versions []string) {
	sort.SliceStable(versions, func(i, j int) bool {
		return pyver.LeadsDigit(versions[i]) && !pyver.LeadsDigit(versions[j])
	})
}

func splitLines(raw string) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
