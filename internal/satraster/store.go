package satraster

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileStore persists raster sets as one timestamped JSON file per ingestion
// run and serves the newest file per parameter. There is no database; files
// are the only storage the raster pipeline has.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create raster data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Save writes the raster set to a new timestamped file.
func (s *FileStore) Save(set *RasterSet) error {
	name := fmt.Sprintf("raster_%s_%s.json", set.Parameter, set.FetchedAt.UTC().Format("20060102_150405"))
	path := filepath.Join(s.dir, name)

	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode raster set: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write raster file: %w", err)
	}
	return nil
}

// Latest loads the newest stored set for the parameter.
// Returns ErrNoData when no file exists yet.
func (s *FileStore) Latest(param Parameter) (*RasterSet, error) {
	paths, err := s.files(param)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: parameter %s", ErrNoData, param)
	}

	// File names embed the fetch timestamp, so lexicographic order is
	// chronological.
	sort.Strings(paths)
	newest := paths[len(paths)-1]

	data, err := os.ReadFile(newest)
	if err != nil {
		return nil, fmt.Errorf("read raster file: %w", err)
	}

	var set RasterSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("decode raster file %s: %w", filepath.Base(newest), err)
	}
	return &set, nil
}

// Cleanup removes raster files older than the cutoff and reports how many
// were deleted.
func (s *FileStore) Cleanup(cutoff time.Time) (int, error) {
	paths, err := s.files("")
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// files lists stored raster files, optionally filtered to one parameter.
func (s *FileStore) files(param Parameter) ([]string, error) {
	pattern := "raster_*.json"
	if param != "" {
		pattern = fmt.Sprintf("raster_%s_*.json", param)
	}

	paths, err := filepath.Glob(filepath.Join(s.dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("list raster files: %w", err)
	}

	// Glob patterns are permissive about the parameter segment; keep only
	// well-formed names.
	kept := paths[:0]
	for _, p := range paths {
		if strings.HasPrefix(filepath.Base(p), "raster_") {
			kept = append(kept, p)
		}
	}
	return kept, nil
}
