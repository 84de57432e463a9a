// Package inspect turns candidate paths into fully-populated cache
// entries: kind, recursive size, last activity, staleness, and a planned
// disposition. Inspection of independent paths fans out in parallel with a
// bounded worker count; a single vanished path fails the whole batch,
// because callers hand the inspector an explicit list and disappearance is
// exceptional here (unlike discovery, where absence is the normal case).
package inspect

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kagehq/cache-kill/internal/cache"
	"github.com/kagehq/cache-kill/internal/clock"
	"github.com/kagehq/cache-kill/internal/config"
)

// ErrPathNotFound marks a path that vanished between discovery and
// inspection.
var ErrPathNotFound = errors.New("path not found")

// Inspector computes entry metadata and applies the disposition policy.
type Inspector struct {
	cfg   *config.Config
	clock clock.Clock
}

// New creates an Inspector. A nil clk falls back to the system clock.
func New(cfg *config.Config, clk clock.Clock) *Inspector {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Inspector{cfg: cfg, clock: clk}
}

// Inspect produces one entry per input path. Output order follows input
// order, but callers must not rely on it. The first path error aborts the
// batch.
func (ins *Inspector) Inspect(paths []string) ([]cache.Entry, error) {
	entries := make([]cache.Entry, len(paths))

	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			entry, err := ins.inspectOne(path)
			if err != nil {
				return err
			}
			entries[i] = entry
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// inspectOne builds a single entry for path.
func (ins *Inspector) inspectOne(path string) (cache.Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cache.Entry{}, fmt.Errorf("%w: %s", ErrPathNotFound, path)
		}
		return cache.Entry{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	var size uint64
	var lastUsed time.Time
	if info.IsDir() {
		size, lastUsed = walkTree(path)
		if lastUsed.IsZero() {
			// Empty tree: the directory's own mtime is all we have.
			lastUsed = info.ModTime()
		}
	} else {
		size = uint64(info.Size())
		lastUsed = info.ModTime()
	}

	entry := cache.Entry{
		Path:      path,
		Kind:      cache.Classify(path),
		SizeBytes: size,
		LastUsed:  lastUsed,
		Stale:     ins.isStale(lastUsed),
	}
	entry.Disposition = ins.plan(path)
	return entry, nil
}

// walkTree sums leaf-file sizes and tracks the most recent file mtime.
// Unreadable children contribute nothing; only file sizes count,
// directories are intrinsically zero.
func walkTree(root string) (size uint64, lastUsed time.Time) {
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
	return size, lastUsed
}

// isStale applies the strict "older than N days" comparison; exactly N
// days is not stale.
func (ins *Inspector) isStale(lastUsed time.Time) bool {
	threshold := time.Duration(ins.cfg.StaleDays) * 24 * time.Hour
	return ins.clock.Now().Sub(lastUsed) > threshold
}

// plan is the embedded planner: exclusion wins, then unmatched includes,
// then the safe-delete policy. Staleness is informational only here; only
// the specialized ecosystem sources gate on it.
func (ins *Inspector) plan(path string) cache.Disposition {
	if ins.cfg.MatchesExclude(path) {
		return cache.Skip
	}
	if !ins.cfg.MatchesInclude(path) {
		return cache.Skip
	}
	if ins.cfg.SafeDelete {
		return cache.Backup
	}
	return cache.Delete
}

// Summary is a pure reduction over a set of entries.
type Summary struct {
	TotalSize   uint64                `json:"total_size"`
	TotalCount  int                   `json:"total_count"`
	StaleCount  int                   `json:"stale_count"`
	ActionCount int                   `json:"action_count"`
	SkipCount   int                   `json:"skip_count"`
	SizeByKind  map[cache.Kind]uint64 `json:"size_by_kind"`
}

// Summarize aggregates entries, counting each distinct path once so
// overlapping discovery probes never double-count user-facing totals.
func Summarize(entries []cache.Entry) Summary {
	s := Summary{SizeByKind: make(map[cache.Kind]uint64)}

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.Path]; dup {
			continue
		}
		seen[e.Path] = struct{}{}

		s.TotalSize += e.SizeBytes
		s.TotalCount++
		if e.Stale {
			s.StaleCount++
		}
		switch e.Disposition {
		case cache.Delete, cache.Backup:
			s.ActionCount++
		default:
			s.SkipCount++
		}
		s.SizeByKind[e.Kind] += e.SizeBytes
	}
	return s
}

// TopN returns the n largest entries, descending by size with a stable
// tie-break on input (discovery) order.
func TopN(entries []cache.Entry, n int) []cache.Entry {
	sorted := make([]cache.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SizeBytes > sorted[j].SizeBytes
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}
