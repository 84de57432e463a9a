package sources

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/kagehq/cache-kill/internal/cache"
	"github.com/kagehq/cache-kill/internal/clock"
	"github.com/kagehq/cache-kill/internal/config"
)

// JSPackageManagers covers the global stores of npm, pnpm, and yarn.
// These live outside any project, so they are only reached through the
// dedicated source, never through project discovery.
type JSPackageManagers struct {
	cfg   *config.Config
	clock clock.Clock

	homeOverride string
}

// NewJSPackageManagers creates the package-manager store source. A nil
// clk falls back to the system clock.
func NewJSPackageManagers(cfg *config.Config, clk clock.Clock) *JSPackageManagers {
	if clk == nil {
		clk = clock.Real{}
	}
	return &JSPackageManagers{cfg: cfg, clock: clk}
}

func (j *JSPackageManagers) Name() string { return "js-package-managers" }

// storeLocations maps each manager to its default global store, relative
// to the home directory.
func storeLocations() map[string][]string {
	return map[string][]string{
		"npm":  {filepath.Join(".npm", "_cacache")},
		"pnpm": {filepath.Join(".local", "share", "pnpm", "store"), filepath.Join(".pnpm-store")},
		"yarn": {filepath.Join(".cache", "yarn"), filepath.Join(".yarn", "cache")},
	}
}

// Store is one discovered package-manager store.
type Store struct {
	Manager   string    `json:"manager"`
	Path      string    `json:"path"`
	SizeBytes uint64    `json:"size_bytes"`
	LastUsed  time.Time `json:"last_used"`
	Stale     bool      `json:"stale"`
}

// Stores probes the default store locations and measures the ones that
// exist.
func (j *JSPackageManagers) Stores() ([]Store, error) {
	home, err := homeDir(j.homeOverride)
	if err != nil {
		return nil, fmt.Errorf("failed to determine home directory: %w", err)
	}

	var stores []Store
	for _, manager := range []string{"npm", "pnpm", "yarn"} {
		for _, rel := range storeLocations()[manager] {
			path := filepath.Join(home, rel)
			if !dirExists(path) {
				continue
			}
			size, lastUsed := treeStats(path)
			stores = append(stores, Store{
				Manager:   manager,
				Path:      path,
				SizeBytes: size,
				LastUsed:  lastUsed,
				Stale:     j.isStale(lastUsed),
			})
		}
	}
	return stores, nil
}

// List maps each store to one pipeline entry under the safe-delete
// policy. Stores rebuild themselves on the next install, so unlike the
// ML sources staleness stays informational here.
func (j *JSPackageManagers) List() ([]cache.Entry, error) {
	stores, err := j.Stores()
	if err != nil {
		return nil, err
	}

	disposition := cache.Delete
	if j.cfg.SafeDelete {
		disposition = cache.Backup
	}

	var entries []cache.Entry
	for _, s := range stores {
		entries = append(entries, cache.Entry{
			Path:        s.Path,
			Kind:        cache.KindJavaScript,
			SizeBytes:   s.SizeBytes,
			LastUsed:    s.LastUsed,
			Stale:       s.Stale,
			Disposition: disposition,
		})
	}
	return entries, nil
}

func (j *JSPackageManagers) isStale(lastUsed time.Time) bool {
	threshold := time.Duration(j.cfg.StaleDays) * 24 * time.Hour
	return j.clock.Now().Sub(lastUsed) > threshold
}
