package sources

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/kagehq/cache-kill/internal/cache"
	"github.com/kagehq/cache-kill/internal/clock"
	"github.com/kagehq/cache-kill/internal/config"
)

// ErrDockerUnavailable is returned when the docker binary is missing or
// the daemon cannot be reached.
var ErrDockerUnavailable = errors.New("docker is not available")

// commandRunner abstracts exec.Command output so tests can feed canned
// docker responses.
type commandRunner func(name string, args ...string) ([]byte, error)

func execRunner(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

// Docker reports and prunes Docker disk usage. It never touches the
// filesystem itself; everything goes through the docker CLI, so entries
// carry docker:// pseudo-paths and are excluded from backup/restore.
type Docker struct {
	cfg   *config.Config
	clock clock.Clock
	run   commandRunner
}

// NewDocker creates the Docker source. A nil clk falls back to the
// system clock.
func NewDocker(cfg *config.Config, clk clock.Clock) *Docker {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Docker{cfg: cfg, clock: clk, run: execRunner}
}

func (d *Docker) Name() string { return "docker" }

// Available reports whether the docker binary is on PATH.
func (d *Docker) Available() bool {
	_, err := exec.LookPath("docker")
	return err == nil
}

// SystemInfo is the parsed output of docker system df.
type SystemInfo struct {
	ImagesSize     uint64 `json:"images_size"`
	ContainersSize uint64 `json:"containers_size"`
	VolumesSize    uint64 `json:"volumes_size"`
	BuildCacheSize uint64 `json:"build_cache_size"`
	TotalSize      uint64 `json:"total_size"`
}

// SystemDF runs docker system df and parses the per-category sizes.
func (d *Docker) SystemDF() (*SystemInfo, error) {
	out, err := d.run("docker", "system", "df",
		"--format", "table {{.Type}}\t{{.TotalCount}}\t{{.Size}}\t{{.Reclaimable}}")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDockerUnavailable, err)
	}

	info := &SystemInfo{}
	for _, line := range strings.Split(string(out), "\n") {
		switch {
		case strings.Contains(line, "Images"):
			info.ImagesSize = parseDFSize(line)
		case strings.Contains(line, "Containers"):
			info.ContainersSize = parseDFSize(line)
		case strings.Contains(line, "Local Volumes"):
			info.VolumesSize = parseDFSize(line)
		case strings.Contains(line, "Build Cache"):
			info.BuildCacheSize = parseDFSize(line)
		}
	}
	info.TotalSize = info.ImagesSize + info.ContainersSize + info.VolumesSize + info.BuildCacheSize
	return info, nil
}

// List maps each non-empty df category to one pseudo-path entry. Docker
// objects have no meaningful mtime, so entries are never stale and are
// always dispositioned Delete: pruning goes through the daemon, a
// filesystem backup is impossible.
func (d *Docker) List() ([]cache.Entry, error) {
	if !d.Available() {
		return nil, nil
	}
	info, err := d.SystemDF()
	if err != nil {
		return nil, err
	}

	now := d.clock.Now()
	categories := []struct {
		path string
		size uint64
	}{
		{"docker://images", info.ImagesSize},
		{"docker://containers", info.ContainersSize},
		{"docker://volumes", info.VolumesSize},
		{"docker://build-cache", info.BuildCacheSize},
	}

	var entries []cache.Entry
	for _, c := range categories {
		if c.size == 0 {
			continue
		}
		entries = append(entries, cache.Entry{
			Path:        c.path,
			Kind:        cache.KindDocker,
			SizeBytes:   c.size,
			LastUsed:    now,
			Disposition: cache.Delete,
		})
	}
	return entries, nil
}

// PruneResult reports one docker prune pass.
type PruneResult struct {
	ImagesRemoved     int `json:"images_removed"`
	ContainersRemoved int `json:"containers_removed"`
	VolumesRemoved    int `json:"volumes_removed"`
	BuildCacheRemoved int `json:"build_cache_removed"`
}

// Prune removes unused images, stopped containers, dangling volumes, and
// the builder cache. Each prune is independent; a failing category is
// skipped, not fatal.
func (d *Docker) Prune() (*PruneResult, error) {
	if !d.Available() {
		return nil, ErrDockerUnavailable
	}

	result := &PruneResult{}
	prunes := []struct {
		args  []string
		count *int
	}{
		{[]string{"image", "prune", "-f"}, &result.ImagesRemoved},
		{[]string{"container", "prune", "-f"}, &result.ContainersRemoved},
		{[]string{"volume", "prune", "-f"}, &result.VolumesRemoved},
		{[]string{"builder", "prune", "-f"}, &result.BuildCacheRemoved},
	}
	for _, p := range prunes {
		out, err := d.run("docker", p.args...)
		if err != nil {
			continue
		}
		*p.count = parseRemovedCount(string(out))
	}
	return result, nil
}

// parseDFSize pulls the size column out of one docker system df table
// row: "Images    5    1.2GB    800MB". Docker sizes always carry a B
// suffix; the first such field is the SIZE column, the second is
// RECLAIMABLE.
func parseDFSize(line string) uint64 {
	for _, f := range strings.Fields(line) {
		if !strings.HasSuffix(strings.ToUpper(f), "B") {
			continue
		}
		if size, err := parseSizeString(f); err == nil {
			return size
		}
	}
	return 0
}

// parseSizeString parses docker's human sizes ("1.2GB", "800MB", "0B").
func parseSizeString(s string) (uint64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "B")
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	unit := uint64(1)
	switch s[len(s)-1] {
	case 'K':
		unit, s = 1024, s[:len(s)-1]
	case 'M':
		unit, s = 1024*1024, s[:len(s)-1]
	case 'G':
		unit, s = 1024*1024*1024, s[:len(s)-1]
	case 'T':
		unit, s = 1024*1024*1024*1024, s[:len(s)-1]
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse size %q: %w", s, err)
	}
	return uint64(n * float64(unit)), nil
}

// parseRemovedCount scans prune output for "Deleted: N" style lines.
func parseRemovedCount(out string) int {
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "Deleted:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if n, err := strconv.Atoi(fields[1]); err == nil {
			return n
		}
	}
	return 0
}
