// Package sources holds the ecosystem-specific cache managers: npx,
// Docker, HuggingFace, PyTorch, and JS package-manager stores. Each
// source owns its own location resolution and parsing but emits the same
// entry shape the shared pipeline consumes. Unlike the generic planner,
// the ML sources gate disposition on staleness alone: stale entries are
// backed up, fresh ones are kept.
package sources

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kagehq/cache-kill/internal/cache"
)

// Source is the uniform capability every ecosystem manager exposes.
type Source interface {
	Name() string
	List() ([]cache.Entry, error)
}

// homeDir resolves the user home, honoring an explicit override for
// tests.
func homeDir(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	return os.UserHomeDir()
}

// dirExists reports whether path is an existing directory.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// treeStats sums leaf-file sizes under root and tracks the most recent
// file mtime, tolerating unreadable children. An empty tree reports the
// root's own mtime.
func treeStats(root string) (size uint64, lastUsed time.Time) {
	_ = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return nil
		}
		size += uint64(info.Size())
		if info.ModTime().After(lastUsed) {
			lastUsed = info.ModTime()
		}
		return nil
	})
	if lastUsed.IsZero() {
		if info, err := os.Stat(root); err == nil {
			lastUsed = info.ModTime()
		}
	}
	return size, lastUsed
}

// walkDepth walks root visiting entries at most maxDepth levels below it.
// The walk function receives the path and its fs.DirEntry; returning
// fs.SkipDir from a directory prunes it as usual.
func walkDepth(root string, maxDepth int, fn func(path string, entry fs.DirEntry) error) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == root {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		depth := strings.Count(filepath.ToSlash(rel), "/") + 1
		if depth > maxDepth {
			if entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		return fn(path, entry)
	})
}
