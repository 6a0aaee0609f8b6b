package fs

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// collection is a JSON array file rewritten as a whole on every change.
// All access goes through mu so a load, mutate and write cycle is atomic
// with respect to other callers in the process.
type collection[T any] struct {
	mu   sync.Mutex
	path string
}

// load reads the file. Missing, unreadable or corrupt files read as empty.
func (c *collection[T]) load() []T {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("reading collection failed, treating as empty", "path", c.path, "error", err)
		}
		return nil
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		slog.Warn("decoding collection failed, treating as empty", "path", c.path, "error", err)
		return nil
	}
	return items
}

func (c *collection[T]) save(items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(c.path, data)
}

func (c *collection[T]) view(fn func(items []T)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.load())
}

// update runs fn on the current items and writes back what it returns.
// Returning errSkipWrite leaves the file untouched and reports no error.
func (c *collection[T]) update(fn func(items []T) ([]T, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	items, err := fn(c.load())
	if errors.Is(err, errSkipWrite) {
		return nil
	}
	if err != nil {
		return err
	}
	return c.save(items)
}

var errSkipWrite = errors.New("skip write")

// writeAtomicFile writes data to a file atomically by writing to a temp file first
func writeAtomicFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
