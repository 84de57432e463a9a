package sources

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kagehq/cache-kill/internal/cache"
	"github.com/kagehq/cache-kill/internal/clock"
	"github.com/kagehq/cache-kill/internal/config"
)

// Torch manages the PyTorch hub cache under ~/.cache/torch. Like the
// HuggingFace source, disposition is staleness-gated: checkpoints still
// in use are skipped.
type Torch struct {
	cfg   *config.Config
	clock clock.Clock

	homeOverride string
}

// NewTorch creates the PyTorch source. A nil clk falls back to the
// system clock.
func NewTorch(cfg *config.Config, clk clock.Clock) *Torch {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Torch{cfg: cfg, clock: clk}
}

func (t *Torch) Name() string { return "torch" }

// CacheDir returns the torch cache location.
func (t *Torch) CacheDir() (string, error) {
	home, err := homeDir(t.homeOverride)
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".cache", "torch"), nil
}

// Exists reports whether the cache directory is present.
func (t *Torch) Exists() bool {
	dir, err := t.CacheDir()
	return err == nil && dirExists(dir)
}

// TorchFile is one cached file with its parsed cache type.
type TorchFile struct {
	Path      string    `json:"path"`
	SizeBytes uint64    `json:"size_bytes"`
	LastUsed  time.Time `json:"last_used"`
	CacheType string    `json:"cache_type"`
	Version   string    `json:"version,omitempty"`
}

// Files walks the cache four levels deep and returns every file,
// largest first.
func (t *Torch) Files() ([]TorchFile, error) {
	dir, err := t.CacheDir()
	if err != nil {
		return nil, err
	}
	if !dirExists(dir) {
		return nil, nil
	}

	var files []TorchFile
	_ = walkDepth(dir, 4, func(path string, entry fs.DirEntry) error {
		if entry.IsDir() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return nil
		}
		cacheType, version := ParseTorchPath(path)
		files = append(files, TorchFile{
			Path:      path,
			SizeBytes: uint64(info.Size()),
			LastUsed:  info.ModTime(),
			CacheType: cacheType,
			Version:   version,
		})
		return nil
	})

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].SizeBytes > files[j].SizeBytes
	})
	return files, nil
}

// List maps cached files to pipeline entries: Backup when stale, Skip
// when fresh.
func (t *Torch) List() ([]cache.Entry, error) {
	files, err := t.Files()
	if err != nil {
		return nil, err
	}

	var entries []cache.Entry
	for _, f := range files {
		stale := t.isStale(f.LastUsed)
		disposition := cache.Skip
		if stale {
			disposition = cache.Backup
		}
		entries = append(entries, cache.Entry{
			Path:        f.Path,
			Kind:        cache.KindMachineLearning,
			SizeBytes:   f.SizeBytes,
			LastUsed:    f.LastUsed,
			Stale:       stale,
			Disposition: disposition,
		})
	}
	return entries, nil
}

// TorchStats aggregates the cache by type and version.
type TorchStats struct {
	TotalSize  uint64      `json:"total_size"`
	EntryCount int         `json:"entry_count"`
	CacheTypes []SizeGroup `json:"cache_types"`
	Versions   []SizeGroup `json:"versions"`
}

// Stats reduces the cache contents to per-type and per-version totals.
func (t *Torch) Stats() (*TorchStats, error) {
	files, err := t.Files()
	if err != nil {
		return nil, err
	}

	types := make(map[string]uint64)
	versions := make(map[string]uint64)
	var total uint64
	for _, f := range files {
		total += f.SizeBytes
		types[f.CacheType] += f.SizeBytes
		if f.Version != "" {
			versions[f.Version] += f.SizeBytes
		}
	}

	return &TorchStats{
		TotalSize:  total,
		EntryCount: len(files),
		CacheTypes: topGroups(types, len(types)),
		Versions:   topGroups(versions, len(versions)),
	}, nil
}

func (t *Torch) isStale(lastUsed time.Time) bool {
	threshold := time.Duration(t.cfg.StaleDays) * 24 * time.Hour
	return t.clock.Now().Sub(lastUsed) > threshold
}

// ParseTorchPath classifies a cache file by the well-known directory
// names torch uses (hub, checkpoints, datasets, models) and pulls a
// version out of "torch_<version>" segments when present.
func ParseTorchPath(path string) (cacheType, version string) {
	parts := strings.Split(filepath.ToSlash(path), "/")

	for _, part := range parts {
		switch part {
		case "checkpoints", "hub", "datasets", "models", "transformers":
			cacheType = part
		default:
			if v, ok := strings.CutPrefix(part, "torch_"); ok {
				version = v
			}
		}
	}

	if cacheType == "" {
		cacheType = filepath.Base(filepath.Dir(path))
	}
	return cacheType, version
}
