// Package doctor inspects the host: which integrations are installed,
// which global cache directories exist and how big they are, and how
// much disk headroom is left for backups.
package doctor

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"

	"github.com/kagehq/cache-kill/internal/clock"
	"github.com/kagehq/cache-kill/internal/config"
	"github.com/kagehq/cache-kill/internal/sources"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Diagnostics is the full doctor report.
type Diagnostics struct {
	Timestamp    time.Time               `json:"timestamp"`
	Platform     string                  `json:"platform"`
	Version      string                  `json:"version"`
	Integrations Integrations            `json:"integrations"`
	CacheDirs    map[string]CacheDirInfo `json:"cache_directories"`
	Disk         *DiskInfo               `json:"disk,omitempty"`
	Environment  Environment             `json:"environment"`
	Recommends   []string                `json:"recommendations"`
}

// Integrations reports which optional tools and caches are present.
type Integrations struct {
	Docker      bool `json:"docker"`
	Npx         bool `json:"npx"`
	HuggingFace bool `json:"huggingface"`
	Torch       bool `json:"torch"`
}

// CacheDirInfo describes one global cache directory.
type CacheDirInfo struct {
	Path         string    `json:"path"`
	Exists       bool      `json:"exists"`
	SizeBytes    uint64    `json:"size_bytes,omitempty"`
	EntryCount   int       `json:"entry_count,omitempty"`
	LastModified time.Time `json:"last_modified,omitempty"`
}

// DiskInfo is the usage of the filesystem holding the work dir.
type DiskInfo struct {
	Mountpoint  string  `json:"mountpoint"`
	TotalBytes  uint64  `json:"total_bytes"`
	FreeBytes   uint64  `json:"free_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

// Environment captures the locations and variables that influence cache
// resolution.
type Environment struct {
	HomeDir  string            `json:"home_dir,omitempty"`
	TempDir  string            `json:"temp_dir"`
	CacheDir string            `json:"cache_dir,omitempty"`
	Vars     map[string]string `json:"environment_variables"`
}

// Doctor runs host diagnostics.
type Doctor struct {
	cfg   *config.Config
	clock clock.Clock

	// lookPath is swappable for tests.
	lookPath func(string) (string, error)
}

// New creates a Doctor. A nil clk falls back to the system clock.
func New(cfg *config.Config, clk clock.Clock) *Doctor {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Doctor{cfg: cfg, clock: clk, lookPath: exec.LookPath}
}

// Diagnose assembles the full report. Every probe is best-effort; a
// failing probe leaves its section empty rather than failing the report.
func (d *Doctor) Diagnose() *Diagnostics {
	diag := &Diagnostics{
		Timestamp: d.clock.Now(),
		Platform:  d.platform(),
		Version:   Version,
	}
	diag.Integrations = d.checkIntegrations()
	diag.CacheDirs = d.checkCacheDirs()
	diag.Disk = d.checkDisk()
	diag.Environment = d.checkEnvironment()
	diag.Recommends = d.recommendations(diag)
	return diag
}

// platform prefers the richer gopsutil host identity and falls back to
// GOOS/GOARCH when the probe fails (containers without /etc/os-release).
func (d *Doctor) platform() string {
	if info, err := host.Info(); err == nil && info.Platform != "" {
		return info.Platform + " " + info.PlatformVersion + " (" + info.KernelArch + ")"
	}
	return runtime.GOOS + " " + runtime.GOARCH
}

func (d *Doctor) checkIntegrations() Integrations {
	return Integrations{
		Docker:      d.binaryAvailable("docker"),
		Npx:         d.binaryAvailable("npx"),
		HuggingFace: sources.NewHuggingFace(d.cfg, d.clock).Exists(),
		Torch:       sources.NewTorch(d.cfg, d.clock).Exists(),
	}
}

func (d *Doctor) binaryAvailable(name string) bool {
	_, err := d.lookPath(name)
	return err == nil
}

func (d *Doctor) checkCacheDirs() map[string]CacheDirInfo {
	dirs := make(map[string]CacheDirInfo)

	npx := sources.NewNpx(d.cfg, d.clock)
	if path, err := npx.CacheDir(); err == nil {
		dirs["npx"] = analyzeDir(path)
	}
	hf := sources.NewHuggingFace(d.cfg, d.clock)
	if path, err := hf.CacheDir(); err == nil {
		dirs["huggingface"] = analyzeDir(path)
	}
	torch := sources.NewTorch(d.cfg, d.clock)
	if path, err := torch.CacheDir(); err == nil {
		dirs["torch"] = analyzeDir(path)
	}
	return dirs
}

func analyzeDir(path string) CacheDirInfo {
	info := CacheDirInfo{Path: path}
	stat, err := os.Stat(path)
	if err != nil {
		return info
	}
	info.Exists = true
	info.LastModified = stat.ModTime()

	var size uint64
	_ = filepath.Walk(path, func(_ string, fi os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !fi.IsDir() {
			size += uint64(fi.Size())
		}
		return nil
	})
	info.SizeBytes = size

	if entries, err := os.ReadDir(path); err == nil {
		info.EntryCount = len(entries)
	}
	return info
}

// checkDisk measures the filesystem holding the work dir. Backups move
// data within the same filesystem, so free space there is what matters.
func (d *Doctor) checkDisk() *DiskInfo {
	usage, err := disk.Usage(d.cfg.WorkDir)
	if err != nil {
		return nil
	}
	return &DiskInfo{
		Mountpoint:  usage.Path,
		TotalBytes:  usage.Total,
		FreeBytes:   usage.Free,
		UsedPercent: usage.UsedPercent,
	}
}

func (d *Doctor) checkEnvironment() Environment {
	env := Environment{
		TempDir: os.TempDir(),
		Vars:    make(map[string]string),
	}
	if home, err := os.UserHomeDir(); err == nil {
		env.HomeDir = home
	}
	if cacheDir, err := os.UserCacheDir(); err == nil {
		env.CacheDir = cacheDir
	}
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if strings.HasPrefix(key, "CACHEKILL_") || key == "DOCKER_HOST" || key == "NO_COLOR" {
			env.Vars[key] = value
		}
	}
	return env
}

func (d *Doctor) recommendations(diag *Diagnostics) []string {
	var recs []string

	if !diag.Integrations.Docker {
		recs = append(recs, "Install Docker for container cache management")
	}
	if !diag.Integrations.Npx {
		recs = append(recs, "Install Node.js and npm for npx cache management")
	}
	if diag.Disk != nil && diag.Disk.UsedPercent > 90 {
		recs = append(recs, "Disk is over 90% full; run a clean or lower --stale-days")
	}

	anyCache := false
	for _, info := range diag.CacheDirs {
		if info.Exists {
			anyCache = true
			break
		}
	}
	if !anyCache {
		recs = append(recs, "No global cache directories found; run cachekill inside a project directory")
	}

	if len(recs) == 0 {
		recs = append(recs, "All integrations are ready")
	}
	sort.Strings(recs)
	return recs
}
