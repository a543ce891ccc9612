// Package staging persists raw source payloads to the filesystem so a run
// can be reprocessed idempotently.
package staging

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	// ErrNoData is returned when no staged payload exists for a source.
	ErrNoData = errors.New("no staged data for source")

	// ErrCorruptData is returned when a staged payload exists but cannot
	// be decoded. The source it belongs to is skippable; the rest of the
	// staging area is unaffected.
	ErrCorruptData = errors.New("corrupt staged data")
)

// RawRecord is an opaque payload captured verbatim from a source at a point
// in time. Immutable once written.
type RawRecord struct {
	Source      string          `json:"source"`
	CollectedAt time.Time       `json:"collected_at"`
	Data        json.RawMessage `json:"data"`
}

// Store writes and reads raw records under a single directory, one JSON file
// per source per collection, named <source>_<YYYYMMDD_HHMMSS>.json.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("staging: create dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the record and returns the file path.
func (s *Store) Save(rec RawRecord) (string, error) {
	name := fmt.Sprintf("%s_%s.json", rec.Source, rec.CollectedAt.UTC().Format("20060102_150405"))
	path := filepath.Join(s.dir, name)

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("staging: marshal %s: %w", rec.Source, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("staging: write %s: %w", path, err)
	}
	return path, nil
}

// Latest returns the most recent record for a source. The timestamp encoded
// in the filename orders lexically, so the newest file sorts last.
func (s *Store) Latest(source string) (RawRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return RawRecord{}, fmt.Errorf("staging: read dir: %w", err)
	}

	prefix := source + "_"
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".json") {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return RawRecord{}, fmt.Errorf("%w: %s", ErrNoData, source)
	}
	sort.Strings(names)

	path := filepath.Join(s.dir, names[len(names)-1])
	data, err := os.ReadFile(path)
	if err != nil {
		return RawRecord{}, fmt.Errorf("staging: read %s: %w", path, err)
	}

	var rec RawRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return RawRecord{}, fmt.Errorf("%w: %s: %v", ErrCorruptData, path, err)
	}
	return rec, nil
}
