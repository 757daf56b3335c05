// Package localfs writes extracted frames to a scratch directory on the
// local filesystem.
package localfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultScratchName is the directory created under os.TempDir() when no
// base directory is configured.
const DefaultScratchName = "frame-sampler"

type Writer struct {
	baseDir string

	once sync.Once
	err  error
}

// NewWriter writes under baseDir. An empty baseDir selects
// <os.TempDir()>/frame-sampler.
func NewWriter(baseDir string) *Writer {
	if baseDir == "" {
		baseDir = filepath.Join(os.TempDir(), DefaultScratchName)
	}
	return &Writer{baseDir: baseDir}
}

// ScratchDirectory creates the base directory on first use.
func (w *Writer) ScratchDirectory() (string, error) {
	w.once.Do(func() {
		if err := os.MkdirAll(w.baseDir, 0755); err != nil {
			w.err = fmt.Errorf("failed to create scratch directory %s: %w", w.baseDir, err)
		}
	})
	return w.baseDir, w.err
}

// Write stores data at location through a temporary file in the same
// directory, so a reader never sees a partially written frame.
func (w *Writer) Write(data []byte, location string) error {
	dir := filepath.Dir(location)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".frame-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", location, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", location, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod %s: %w", location, err)
	}
	if err := os.Rename(tmpName, location); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename to %s: %w", location, err)
	}
	return nil
}

// RemoveAll refuses to delete anything outside the scratch directory.
func (w *Writer) RemoveAll(location string) error {
	rel, err := filepath.Rel(w.baseDir, location)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("refusing to remove %s outside scratch directory %s", location, w.baseDir)
	}
	return os.RemoveAll(location)
}
