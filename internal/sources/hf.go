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

// HuggingFace manages the hub cache under ~/.cache/huggingface. Model
// weights are expensive to re-download, so this source gates on
// staleness: stale files are backed up, fresh ones are skipped.
type HuggingFace struct {
	cfg   *config.Config
	clock clock.Clock

	homeOverride string
}

// NewHuggingFace creates the HuggingFace source. A nil clk falls back to
// the system clock.
func NewHuggingFace(cfg *config.Config, clk clock.Clock) *HuggingFace {
	if clk == nil {
		clk = clock.Real{}
	}
	return &HuggingFace{cfg: cfg, clock: clk}
}

func (h *HuggingFace) Name() string { return "huggingface" }

// CacheDir returns the hub cache location.
func (h *HuggingFace) CacheDir() (string, error) {
	home, err := homeDir(h.homeOverride)
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".cache", "huggingface"), nil
}

// Exists reports whether the cache directory is present.
func (h *HuggingFace) Exists() bool {
	dir, err := h.CacheDir()
	return err == nil && dirExists(dir)
}

// File is one cached file with its parsed repo identity.
type File struct {
	Path      string    `json:"path"`
	SizeBytes uint64    `json:"size_bytes"`
	LastUsed  time.Time `json:"last_used"`
	RepoName  string    `json:"repo_name,omitempty"`
	ModelID   string    `json:"model_id,omitempty"`
	FileType  string    `json:"file_type"`
}

// Files walks the cache three levels deep and returns every file,
// largest first.
func (h *HuggingFace) Files() ([]File, error) {
	dir, err := h.CacheDir()
	if err != nil {
		return nil, err
	}
	if !dirExists(dir) {
		return nil, nil
	}

	var files []File
	_ = walkDepth(dir, 3, func(path string, entry fs.DirEntry) error {
		if entry.IsDir() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return nil
		}
		repo, model := ParseHubPath(path)
		files = append(files, File{
			Path:      path,
			SizeBytes: uint64(info.Size()),
			LastUsed:  info.ModTime(),
			RepoName:  repo,
			ModelID:   model,
			FileType:  fileType(path),
		})
		return nil
	})

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].SizeBytes > files[j].SizeBytes
	})
	return files, nil
}

// List maps cached files to pipeline entries, optionally filtered down
// to one model ID. Disposition is staleness-gated here, unlike the
// generic planner: Backup when stale, Skip when fresh.
func (h *HuggingFace) List() ([]cache.Entry, error) {
	return h.ListModel("")
}

// ListModel is List restricted to a single model ID; an empty modelID
// lists everything.
func (h *HuggingFace) ListModel(modelID string) ([]cache.Entry, error) {
	files, err := h.Files()
	if err != nil {
		return nil, err
	}

	var entries []cache.Entry
	for _, f := range files {
		if modelID != "" && f.ModelID != modelID {
			continue
		}
		stale := h.isStale(f.LastUsed)
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

// HubStats aggregates the cache by repository and model.
type HubStats struct {
	TotalSize  uint64      `json:"total_size"`
	EntryCount int         `json:"entry_count"`
	RepoCount  int         `json:"repo_count"`
	ModelCount int         `json:"model_count"`
	TopRepos   []SizeGroup `json:"top_repos"`
	TopModels  []SizeGroup `json:"top_models"`
}

// SizeGroup is a named size bucket, used for per-repo and per-model
// aggregation.
type SizeGroup struct {
	Name      string `json:"name"`
	SizeBytes uint64 `json:"size_bytes"`
}

// Stats reduces the cache contents to per-repo and per-model totals with
// the ten largest of each.
func (h *HuggingFace) Stats() (*HubStats, error) {
	files, err := h.Files()
	if err != nil {
		return nil, err
	}

	repoSizes := make(map[string]uint64)
	modelSizes := make(map[string]uint64)
	var total uint64
	for _, f := range files {
		total += f.SizeBytes
		if f.RepoName != "" {
			repoSizes[f.RepoName] += f.SizeBytes
		}
		if f.ModelID != "" {
			modelSizes[f.ModelID] += f.SizeBytes
		}
	}

	return &HubStats{
		TotalSize:  total,
		EntryCount: len(files),
		RepoCount:  len(repoSizes),
		ModelCount: len(modelSizes),
		TopRepos:   topGroups(repoSizes, 10),
		TopModels:  topGroups(modelSizes, 10),
	}, nil
}

func (h *HuggingFace) isStale(lastUsed time.Time) bool {
	threshold := time.Duration(h.cfg.StaleDays) * 24 * time.Hour
	return h.clock.Now().Sub(lastUsed) > threshold
}

// ParseHubPath extracts repo and model identity from a hub cache path.
// The hub layout encodes "org/name" as "models--org--name".
func ParseHubPath(path string) (repo, model string) {
	parts := strings.Split(filepath.ToSlash(path), "/")
	for i, part := range parts {
		if part == "hub" && i+1 < len(parts) {
			next := parts[i+1]
			if strings.HasPrefix(next, "models--") {
				id := strings.ReplaceAll(strings.TrimPrefix(next, "models--"), "--", "/")
				return id, id
			}
		}
		if part == "datasets" && i+1 < len(parts) {
			return parts[i+1], ""
		}
	}
	return "", ""
}

func fileType(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "unknown"
	}
	return ext
}

// topGroups sorts a size map descending and keeps the n largest buckets.
func topGroups(sizes map[string]uint64, n int) []SizeGroup {
	groups := make([]SizeGroup, 0, len(sizes))
	for name, size := range sizes {
		groups = append(groups, SizeGroup{Name: name, SizeBytes: size})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].SizeBytes != groups[j].SizeBytes {
			return groups[i].SizeBytes > groups[j].SizeBytes
		}
		return groups[i].Name < groups[j].Name
	})
	if n < len(groups) {
		groups = groups[:n]
	}
	return groups
}
