package sources

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/kagehq/cache-kill/internal/cache"
	"github.com/kagehq/cache-kill/internal/clock"
	"github.com/kagehq/cache-kill/internal/config"
)

// Npx manages the npx execution cache under ~/.npm/_npx.
type Npx struct {
	cfg   *config.Config
	clock clock.Clock

	// homeOverride replaces the user home dir in tests.
	homeOverride string
}

// NewNpx creates the npx source. A nil clk falls back to the system
// clock.
func NewNpx(cfg *config.Config, clk clock.Clock) *Npx {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Npx{cfg: cfg, clock: clk}
}

func (n *Npx) Name() string { return "npx" }

// CacheDir returns the platform npx cache location.
func (n *Npx) CacheDir() (string, error) {
	home, err := homeDir(n.homeOverride)
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".npm", "_npx"), nil
}

// Exists reports whether the npx cache directory is present.
func (n *Npx) Exists() bool {
	dir, err := n.CacheDir()
	return err == nil && dirExists(dir)
}

// List returns one aggregate entry for the whole cache plus one entry
// per cached package directory. A missing cache yields an empty list.
func (n *Npx) List() ([]cache.Entry, error) {
	dir, err := n.CacheDir()
	if err != nil {
		return nil, err
	}
	if !dirExists(dir) {
		return nil, nil
	}

	var entries []cache.Entry
	entries = append(entries, n.entryFor(dir))

	children, err := os.ReadDir(dir)
	if err != nil {
		return entries, nil
	}
	for _, child := range children {
		if !child.IsDir() {
			continue
		}
		entries = append(entries, n.entryFor(filepath.Join(dir, child.Name())))
	}
	return entries, nil
}

func (n *Npx) entryFor(path string) cache.Entry {
	size, lastUsed := treeStats(path)
	return cache.Entry{
		Path:        path,
		Kind:        cache.KindNpx,
		SizeBytes:   size,
		LastUsed:    lastUsed,
		Stale:       n.isStale(lastUsed),
		Disposition: n.disposition(),
	}
}

// disposition follows the generic safe-delete policy; npx entries are
// always removable.
func (n *Npx) disposition() cache.Disposition {
	if n.cfg.SafeDelete {
		return cache.Backup
	}
	return cache.Delete
}

func (n *Npx) isStale(lastUsed time.Time) bool {
	threshold := time.Duration(n.cfg.StaleDays) * 24 * time.Hour
	return n.clock.Now().Sub(lastUsed) > threshold
}

// Package is one cached npx package with its resolved identity.
type Package struct {
	Name      string    `json:"name"`
	Version   string    `json:"version,omitempty"`
	Path      string    `json:"path"`
	SizeBytes uint64    `json:"size_bytes"`
	LastUsed  time.Time `json:"last_used"`
	Stale     bool      `json:"stale"`
}

// Packages walks the cache up to three levels deep looking for
// package.json files and returns the resolved packages, largest first.
func (n *Npx) Packages() ([]Package, error) {
	dir, err := n.CacheDir()
	if err != nil {
		return nil, err
	}
	if !dirExists(dir) {
		return nil, nil
	}

	var packages []Package
	_ = walkDepth(dir, 3, func(path string, entry fs.DirEntry) error {
		if !entry.IsDir() {
			return nil
		}
		manifest := filepath.Join(path, "package.json")
		name, version, ok := parsePackageJSON(manifest)
		if !ok {
			return nil
		}
		size, lastUsed := treeStats(path)
		packages = append(packages, Package{
			Name:      name,
			Version:   version,
			Path:      path,
			SizeBytes: size,
			LastUsed:  lastUsed,
			Stale:     n.isStale(lastUsed),
		})
		return fs.SkipDir
	})

	sort.SliceStable(packages, func(i, j int) bool {
		return packages[i].SizeBytes > packages[j].SizeBytes
	})
	return packages, nil
}

// parsePackageJSON extracts a package identity. npx hash directories
// carry a synthetic package.json whose own name is often absent; the
// first dependency key identifies the executed package, and the
// directory name is the last resort.
func parsePackageJSON(path string) (name, version string, ok bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", false
	}

	var manifest struct {
		Name         string            `json:"name"`
		Version      string            `json:"version"`
		Dependencies map[string]string `json:"dependencies"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return "", "", false
	}

	name = manifest.Name
	if name == "" && len(manifest.Dependencies) > 0 {
		deps := make([]string, 0, len(manifest.Dependencies))
		for dep := range manifest.Dependencies {
			deps = append(deps, dep)
		}
		sort.Strings(deps)
		name = deps[0]
	}
	if name == "" {
		name = filepath.Base(filepath.Dir(path))
	}
	return name, manifest.Version, true
}
