// Package config loads the .cachekill.toml file and merges it with CLI
// overrides into a single immutable Config consumed by the pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/kagehq/cache-kill/internal/cache"
)

// FileName is the config file searched for in the working directory and
// its parents.
const FileName = ".cachekill.toml"

// DefaultBackupDirName is the backup root created under the project root
// when safe delete is active.
const DefaultBackupDirName = ".cachekill-backup"

// DefaultStaleDays is the staleness threshold when neither the config file
// nor the CLI set one.
const DefaultStaleDays = 14

// File is the on-disk TOML shape. All fields are optional; nil means
// "not set, use the default or the CLI value".
type File struct {
	DefaultLang   *string  `toml:"default_lang"`
	StaleDays     *int     `toml:"stale_days"`
	SafeDelete    *bool    `toml:"safe_delete"`
	BackupDir     *string  `toml:"backup_dir"`
	IncludePaths  []string `toml:"include_paths"`
	ExcludePaths  []string `toml:"exclude_paths"`
	IncludeDocker *bool    `toml:"include_docker"`
	IncludeNpx    *bool    `toml:"include_npx"`
}

// Overrides carries CLI flag values. Nil pointer fields were not provided
// on the command line and do not override the file.
type Overrides struct {
	Lang       *string
	Paths      []string
	Exclude    []string
	StaleDays  *int
	SafeDelete *bool
	BackupDir  *string
	Docker     bool
	Npx        bool
	All        bool
	Force      bool
	JSON       bool
	DryRun     bool
}

// Config is the merged, immutable configuration for one invocation.
type Config struct {
	// WorkDir is the project root every relative probe and the backup
	// root are anchored at.
	WorkDir string

	Lang         cache.LanguageFilter
	IncludePaths []string
	ExcludePaths []string
	StaleDays    int
	SafeDelete   bool
	BackupDir    string

	Docker bool
	Npx    bool
	All    bool
	Force  bool
	JSON   bool
	DryRun bool
}

// LoadFile searches startDir and its parents for the config file and
// parses it. A missing file is not an error; it yields the zero File.
func LoadFile(startDir string) (File, error) {
	var f File

	dir := startDir
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &f); err != nil {
				return File{}, fmt.Errorf("failed to parse %s: %w", path, err)
			}
			return f, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return f, nil
		}
		dir = parent
	}
}

// Merge combines file values with CLI overrides into a Config rooted at
// workDir. CLI values win; unset values fall back to file then defaults.
func Merge(workDir string, f File, o Overrides) (*Config, error) {
	cfg := &Config{
		WorkDir:    workDir,
		StaleDays:  DefaultStaleDays,
		SafeDelete: true,
		BackupDir:  DefaultBackupDirName,
	}

	langStr := ""
	if f.DefaultLang != nil {
		langStr = *f.DefaultLang
	}
	if o.Lang != nil {
		langStr = *o.Lang
	}
	lang, err := cache.ParseLanguageFilter(langStr)
	if err != nil {
		return nil, err
	}
	cfg.Lang = lang

	if f.StaleDays != nil {
		cfg.StaleDays = *f.StaleDays
	}
	if o.StaleDays != nil {
		cfg.StaleDays = *o.StaleDays
	}

	if f.SafeDelete != nil {
		cfg.SafeDelete = *f.SafeDelete
	}
	if o.SafeDelete != nil {
		cfg.SafeDelete = *o.SafeDelete
	}

	if f.BackupDir != nil {
		cfg.BackupDir = *f.BackupDir
	}
	if o.BackupDir != nil {
		cfg.BackupDir = *o.BackupDir
	}

	cfg.IncludePaths = f.IncludePaths
	if o.Paths != nil {
		cfg.IncludePaths = o.Paths
	}

	cfg.ExcludePaths = defaultExcludes(cfg.BackupDir)
	if f.ExcludePaths != nil {
		cfg.ExcludePaths = f.ExcludePaths
	}
	if o.Exclude != nil {
		cfg.ExcludePaths = o.Exclude
	}

	cfg.Docker = o.Docker || (f.IncludeDocker != nil && *f.IncludeDocker)
	cfg.Npx = o.Npx || (f.IncludeNpx != nil && *f.IncludeNpx)
	cfg.All = o.All
	cfg.Force = o.Force
	cfg.JSON = o.JSON
	cfg.DryRun = o.DryRun

	return cfg, nil
}

// defaultExcludes protects version control and the backup root itself from
// ever being treated as a cache.
func defaultExcludes(backupDir string) []string {
	return []string{".git", backupDir, "node_modules/.cache"}
}

// BackupRoot returns the absolute backup root for this invocation.
func (c *Config) BackupRoot() string {
	if filepath.IsAbs(c.BackupDir) {
		return c.BackupDir
	}
	return filepath.Join(c.WorkDir, c.BackupDir)
}

// MatchesInclude reports whether path passes the include patterns.
// No patterns configured means vacuous inclusion.
func (c *Config) MatchesInclude(path string) bool {
	if len(c.IncludePaths) == 0 {
		return true
	}
	return c.matchesAny(path, c.IncludePaths)
}

// MatchesExclude reports whether path matches any exclude pattern.
func (c *Config) MatchesExclude(path string) bool {
	return c.matchesAny(path, c.ExcludePaths)
}

// ShouldProcess is the include/exclude gate every discovered path passes
// through: kept only if included (or no includes configured) and not
// excluded.
func (c *Config) ShouldProcess(path string) bool {
	return c.MatchesInclude(path) && !c.MatchesExclude(path)
}

// matchesAny tries each glob pattern against the absolute path, the path
// relative to the work dir, and the base name, so that both "**/target"
// and a bare "target" behave the way users expect.
func (c *Config) matchesAny(path string, patterns []string) bool {
	candidates := []string{filepath.ToSlash(path), filepath.Base(path)}
	if rel, err := filepath.Rel(c.WorkDir, path); err == nil && !strings.HasPrefix(rel, "..") {
		candidates = append(candidates, filepath.ToSlash(rel))
	}

	for _, pattern := range patterns {
		p := filepath.ToSlash(pattern)
		for _, candidate := range candidates {
			if ok, err := doublestar.Match(p, candidate); err == nil && ok {
				return true
			}
		}
	}
	return false
}
