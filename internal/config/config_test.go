package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kagehq/cache-kill/internal/cache"
)

func TestMergeDefaults(t *testing.T) {
	cfg, err := Merge("/project", File{}, Overrides{})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if cfg.Lang != cache.FilterAuto {
		t.Errorf("Lang = %q, want auto", cfg.Lang)
	}
	if cfg.StaleDays != DefaultStaleDays {
		t.Errorf("StaleDays = %d, want %d", cfg.StaleDays, DefaultStaleDays)
	}
	if !cfg.SafeDelete {
		t.Error("SafeDelete should default to true")
	}
	if cfg.BackupDir != DefaultBackupDirName {
		t.Errorf("BackupDir = %q", cfg.BackupDir)
	}
	if got := cfg.BackupRoot(); got != filepath.Join("/project", DefaultBackupDirName) {
		t.Errorf("BackupRoot = %q", got)
	}
}

func TestMergeCLIWinsOverFile(t *testing.T) {
	fileLang := "js"
	fileStale := 30
	f := File{DefaultLang: &fileLang, StaleDays: &fileStale}

	cliLang := "py"
	cliStale := 7
	safeOff := false
	o := Overrides{Lang: &cliLang, StaleDays: &cliStale, SafeDelete: &safeOff, Docker: true}

	cfg, err := Merge("/project", f, o)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if cfg.Lang != cache.FilterPython {
		t.Errorf("Lang = %q, want py", cfg.Lang)
	}
	if cfg.StaleDays != 7 {
		t.Errorf("StaleDays = %d, want 7", cfg.StaleDays)
	}
	if cfg.SafeDelete {
		t.Error("SafeDelete should be overridden to false")
	}
	if !cfg.Docker {
		t.Error("Docker flag should carry through")
	}
}

func TestMergeInvalidLang(t *testing.T) {
	bad := "cobol"
	if _, err := Merge("/project", File{}, Overrides{Lang: &bad}); err == nil {
		t.Fatal("expected error for unknown language filter")
	}
}

func TestLoadFileSearchesUpward(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	content := "stale_days = 21\nsafe_delete = false\ninclude_docker = true\n"
	if err := os.WriteFile(filepath.Join(root, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := LoadFile(nested)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if f.StaleDays == nil || *f.StaleDays != 21 {
		t.Errorf("StaleDays = %v, want 21", f.StaleDays)
	}
	if f.SafeDelete == nil || *f.SafeDelete {
		t.Errorf("SafeDelete = %v, want false", f.SafeDelete)
	}
	if f.IncludeDocker == nil || !*f.IncludeDocker {
		t.Errorf("IncludeDocker = %v, want true", f.IncludeDocker)
	}
}

func TestLoadFileMissingIsZero(t *testing.T) {
	f, err := LoadFile(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if f.StaleDays != nil || f.DefaultLang != nil {
		t.Error("missing config file should yield zero File")
	}
}

func TestShouldProcess(t *testing.T) {
	cfg, err := Merge("/project", File{}, Overrides{
		Paths:   []string{"**/node_modules"},
		Exclude: []string{"**/testdata"},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	cases := []struct {
		path string
		want bool
	}{
		{"/project/node_modules", true},
		{"/project/sub/node_modules", true},
		{"/project/testdata", false},
		{"/project/other", false},
	}
	for _, tc := range cases {
		if got := cfg.ShouldProcess(tc.path); got != tc.want {
			t.Errorf("ShouldProcess(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestVacuousInclusion(t *testing.T) {
	cfg, err := Merge("/project", File{}, Overrides{Exclude: []string{".git"}})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if !cfg.ShouldProcess("/project/target") {
		t.Error("with no include patterns every non-excluded path should pass")
	}
	if cfg.ShouldProcess("/project/.git") {
		t.Error(".git should be excluded")
	}
}

func TestBackupRootExcludedByDefault(t *testing.T) {
	cfg, err := Merge("/project", File{}, Overrides{})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if cfg.ShouldProcess(filepath.Join("/project", DefaultBackupDirName)) {
		t.Error("the backup root must never be treated as a cache")
	}
}
