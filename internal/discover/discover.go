// Package discover enumerates candidate cache paths for a project by
// probing known ecosystem locations, optional home-directory globals, and
// user-supplied glob patterns. Every probe is independently best-effort: a
// missing or unreadable location is absence, never an error.
package discover

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kagehq/cache-kill/internal/cache"
	"github.com/kagehq/cache-kill/internal/config"
)

// ProjectType is the ecosystem detected from marker files in the project
// root.
type ProjectType string

const (
	ProjectJavaScript      ProjectType = "javascript"
	ProjectPython          ProjectType = "python"
	ProjectRust            ProjectType = "rust"
	ProjectJava            ProjectType = "java"
	ProjectMachineLearning ProjectType = "ml"
	ProjectMixed           ProjectType = "mixed"
	ProjectUnknown         ProjectType = "unknown"
)

// Result is the discovery output: an unordered, possibly-duplicated list
// of paths that existed at probe time.
type Result struct {
	ProjectType ProjectType
	ProjectRoot string
	Paths       []string
}

// Relative probe tables per ecosystem, anchored at the project root.
var (
	jsProbes = []string{
		"node_modules", ".next", ".nuxt", ".vite", ".cache", "dist",
		"coverage", ".turbo", ".parcel-cache", "build", "out",
		filepath.Join(".next", "cache"), filepath.Join(".nuxt", "dist"),
	}
	pyProbes = []string{
		"__pycache__", ".pytest_cache", ".venv", "venv", ".tox",
		".mypy_cache", ".ruff_cache", ".pip-cache", "htmlcov",
	}
	rustProbes = []string{"target", ".cargo"}
	javaProbes = []string{".gradle", "build", "target", ".m2"}
	mlProbes   = []string{
		filepath.Join(".dvc", "cache"), filepath.Join(".dvc", "tmp"),
		"wandb", ".wandb",
	}
	genericProbes = []string{"tmp", "temp", ".cache", "cache", ".tmp"}
)

// DetectProjectType tests the project root for ecosystem marker files.
// Zero markers means Unknown, more than one distinct ecosystem means Mixed.
func DetectProjectType(root string) ProjectType {
	var found []ProjectType

	if anyFileExists(root, "package.json", "yarn.lock", "pnpm-lock.yaml", "bun.lockb") {
		found = append(found, ProjectJavaScript)
	}
	if anyFileExists(root, "pyproject.toml", "requirements.txt", "setup.py", "Pipfile", "poetry.lock") {
		found = append(found, ProjectPython)
	}
	if anyFileExists(root, "Cargo.toml") {
		found = append(found, ProjectRust)
	}
	if anyFileExists(root, "pom.xml", "build.gradle", "build.gradle.kts", "gradlew") {
		found = append(found, ProjectJava)
	}
	if hasMLHints(root) {
		found = append(found, ProjectMachineLearning)
	}

	switch len(found) {
	case 0:
		return ProjectUnknown
	case 1:
		return found[0]
	default:
		return ProjectMixed
	}
}

func anyFileExists(root string, names ...string) bool {
	for _, name := range names {
		if _, err := os.Stat(filepath.Join(root, name)); err == nil {
			return true
		}
	}
	return false
}

// hasMLHints looks for ML framework names inside a requirements file or a
// DVC directory.
func hasMLHints(root string) bool {
	if _, err := os.Stat(filepath.Join(root, ".dvc")); err == nil {
		return true
	}
	data, err := os.ReadFile(filepath.Join(root, "requirements.txt"))
	if err != nil {
		return false
	}
	reqs := strings.ToLower(string(data))
	return strings.Contains(reqs, "torch") ||
		strings.Contains(reqs, "tensorflow") ||
		strings.Contains(reqs, "huggingface")
}

// Discover probes every enabled location and returns the gated candidate
// paths. The result may contain duplicates; callers that aggregate sizes
// must Dedupe first.
func Discover(cfg *config.Config) *Result {
	root := cfg.WorkDir
	projectType := DetectProjectType(root)

	d := &discoverer{cfg: cfg, root: root}

	if d.enabled(cfg.Lang, cache.FilterJavaScript, projectType, ProjectJavaScript) {
		d.probeRelative(jsProbes)
	}
	if d.enabled(cfg.Lang, cache.FilterPython, projectType, ProjectPython) {
		d.probeRelative(pyProbes)
		d.probeNestedPycache()
	}
	if d.enabled(cfg.Lang, cache.FilterRust, projectType, ProjectRust) {
		d.probeRelative(rustProbes)
	}
	if d.enabled(cfg.Lang, cache.FilterJava, projectType, ProjectJava) {
		d.probeRelative(javaProbes)
		d.probeHome(filepath.Join(".m2", "repository"))
	}
	if d.enabled(cfg.Lang, cache.FilterMachineLearning, projectType, ProjectMachineLearning) {
		d.probeRelative(mlProbes)
		d.probeHome(filepath.Join(".cache", "huggingface"))
		d.probeHome(filepath.Join(".cache", "torch"))
		d.probeHome(filepath.Join(".cache", "transformers"))
	}
	if cfg.All {
		d.probeRelative(genericProbes)
	}
	d.probeUserPatterns(cfg.IncludePaths)

	return &Result{
		ProjectType: projectType,
		ProjectRoot: root,
		Paths:       d.paths,
	}
}

// Dedupe collapses duplicate and repeated probe hits by canonical absolute
// path, preserving first-seen order. Overlapping probes (a "build" dir
// matched by both a generic and a Java probe) must not double-count.
func Dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		canonical := p
		if abs, err := filepath.Abs(p); err == nil {
			canonical = abs
		}
		if resolved, err := filepath.EvalSymlinks(canonical); err == nil {
			canonical = resolved
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, p)
	}
	return out
}

type discoverer struct {
	cfg   *config.Config
	root  string
	paths []string
}

// enabled implements the category gate: Auto plus a matching (or
// Mixed/Unknown) project type, or an explicit filter for this category.
func (d *discoverer) enabled(filter, want cache.LanguageFilter, projectType, categoryType ProjectType) bool {
	if filter == want {
		return true
	}
	if filter != cache.FilterAuto {
		return false
	}
	return projectType == categoryType || projectType == ProjectMixed || projectType == ProjectUnknown
}

// probeRelative tests fixed directory names under the project root.
func (d *discoverer) probeRelative(names []string) {
	for _, name := range names {
		d.add(filepath.Join(d.root, name))
	}
}

// probeHome tests a fixed location under the user's home directory.
func (d *discoverer) probeHome(rel string) {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	d.add(filepath.Join(home, rel))
}

// probeNestedPycache looks one level down for __pycache__ directories,
// which Python scatters across packages.
func (d *discoverer) probeNestedPycache() {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		d.add(filepath.Join(d.root, entry.Name(), "__pycache__"))
	}
}

// probeUserPatterns expands user-supplied include patterns: literal paths
// are existence-checked directly, glob patterns are resolved by walking
// the project root. Walk errors are swallowed per probe.
func (d *discoverer) probeUserPatterns(patterns []string) {
	var globs []string
	for _, pattern := range patterns {
		if strings.ContainsAny(pattern, "*?") {
			globs = append(globs, filepath.ToSlash(pattern))
			continue
		}
		path := pattern
		if !filepath.IsAbs(path) {
			path = filepath.Join(d.root, path)
		}
		d.addAny(path)
	}

	if len(globs) == 0 {
		return
	}

	_ = filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtree: skip it, keep walking the rest.
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == d.root {
			return nil
		}
		for _, g := range globs {
			if d.matchesGlob(g, path) {
				d.addAny(path)
				// Matched directories are taken whole; descending
				// further would yield nested duplicates.
				if entry.IsDir() {
					return fs.SkipDir
				}
				break
			}
		}
		return nil
	})
}

func (d *discoverer) matchesGlob(pattern, path string) bool {
	candidates := []string{filepath.ToSlash(path), filepath.Base(path)}
	if rel, err := filepath.Rel(d.root, path); err == nil {
		candidates = append(candidates, filepath.ToSlash(rel))
	}
	for _, c := range candidates {
		if ok, err := doublestar.Match(pattern, c); err == nil && ok {
			return true
		}
	}
	return false
}

// add keeps path if it is an existing directory that passes the
// include/exclude gate.
func (d *discoverer) add(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if !d.cfg.ShouldProcess(path) {
		return
	}
	d.paths = append(d.paths, path)
}

// addAny is like add but also accepts plain files (user-supplied paths may
// point at single files).
func (d *discoverer) addAny(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if !d.cfg.ShouldProcess(path) {
		return
	}
	d.paths = append(d.paths, path)
}
