package processor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SourceOutput points at one processed CSV.
type SourceOutput struct {
	Path    string `json:"path"`
	Records int    `json:"records"`
}

// Manifest is the explicit versioned record of one processing run: which
// outputs exist, where, and when they were generated. It replaces any
// implicit "newest file wins" lookup downstream of staging.
type Manifest struct {
	RunID       string                  `json:"run_id"`
	GeneratedAt time.Time               `json:"generated_at"`
	Sources     map[string]SourceOutput `json:"sources"`
}

// WriteManifest overwrites the manifest at path.
func WriteManifest(path string, m *Manifest) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("manifest: create dir: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("manifest: write %s: %w", path, err)
	}
	return nil
}

// ReadManifest loads the manifest at path.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: decode %s: %w", path, err)
	}
	return &m, nil
}
