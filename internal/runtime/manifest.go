package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Receipt records one completed install.
type Receipt struct {
	Version     string `json:"version"`
	Strategy    string `json:"strategy"`
	InstalledAt string `json:"installed_at"`
	Checksum    string `json:"checksum,omitempty"`
}

// Manifest wraps persisted receipts for quick lookup by version.
type Manifest struct {
	Entries map[string]Receipt `json:"entries"`
}

// Record stores a receipt, replacing any previous one for the version.
func (m *Manifest) Record(r Receipt) {
	if m.Entries == nil {
		m.Entries = map[string]Receipt{}
	}
	m.Entries[r.Version] = r
}

// Remove drops the receipt for a version if present.
func (m *Manifest) Remove(version string) {
	delete(m.Entries, version)
}

// LoadManifest reads a receipt manifest. A missing file yields an empty
// manifest.
func LoadManifest(path string) (Manifest, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Manifest{Entries: map[string]Receipt{}}, nil
		}
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(contents, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("unmarshal manifest: %w", err)
	}
	if manifest.Entries == nil {
		manifest.Entries = map[string]Receipt{}
	}
	return manifest, nil
}

// SaveManifest writes the manifest atomically.
func SaveManifest(path string, m Manifest) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare manifest directory: %w", err)
	}

	buf, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "manifest-*.json")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return fmt.Errorf("write manifest temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close manifest temp: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}
