package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ExportStore keeps rendered export files on local disk under one directory.
type ExportStore struct {
	dir string
}

// NewExportStore ensures the directory exists and returns a store handle.
func NewExportStore(dir string) (*ExportStore, error) {
	if dir == "" {
		dir = "./exports"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	return &ExportStore{dir: dir}, nil
}

// Save writes the rendered bytes under the given file name.
func (s *ExportStore) Save(name string, data []byte) error {
	if err := os.WriteFile(s.resolve(name), data, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}

// Open returns a read-only handle for a stored export.
func (s *ExportStore) Open(name string) (*os.File, error) {
	file, err := os.Open(s.resolve(name))
	if err != nil {
		return nil, fmt.Errorf("open export file: %w", err)
	}
	return file, nil
}

// Delete removes a stored export if present.
func (s *ExportStore) Delete(name string) error {
	if err := os.Remove(s.resolve(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete export file: %w", err)
	}
	return nil
}

// Sweep removes exports whose modification time is older than ttl and
// returns how many files were removed.
func (s *ExportStore) Sweep(ttl time.Duration) (int, error) {
	cutoff := time.Now().Add(-ttl)
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read export directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove stale export: %w", err)
		}
		removed++
	}
	return removed, nil
}

func (s *ExportStore) resolve(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}
