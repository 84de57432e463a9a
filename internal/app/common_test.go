package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/kagehq/cache-kill/internal/cache"
)

// chdir moves into dir for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(old) })
}

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := loadConfig(&cobra.Command{})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.StaleDays != 14 {
		t.Errorf("StaleDays = %d, want 14", cfg.StaleDays)
	}
	if !cfg.SafeDelete {
		t.Error("expected SafeDelete to default to true")
	}
	if cfg.BackupDir != ".cachekill-backup" {
		t.Errorf("BackupDir = %q, want .cachekill-backup", cfg.BackupDir)
	}
}

func TestLoadConfigReadsFile(t *testing.T) {
	dir := t.TempDir()
	toml := "stale_days = 30\nsafe_delete = false\nbackup_dir = \"trash\"\n"
	if err := os.WriteFile(filepath.Join(dir, ".cachekill.toml"), []byte(toml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	chdir(t, dir)

	cfg, err := loadConfig(&cobra.Command{})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.StaleDays != 30 {
		t.Errorf("StaleDays = %d, want 30", cfg.StaleDays)
	}
	if cfg.SafeDelete {
		t.Error("expected SafeDelete false from config file")
	}
	if cfg.BackupDir != "trash" {
		t.Errorf("BackupDir = %q, want trash", cfg.BackupDir)
	}
}

func TestLoadConfigFlagOverridesFile(t *testing.T) {
	dir := t.TempDir()
	toml := "stale_days = 30\n"
	if err := os.WriteFile(filepath.Join(dir, ".cachekill.toml"), []byte(toml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	chdir(t, dir)

	oldStale := flagStaleDays
	flagStaleDays = 7
	t.Cleanup(func() { flagStaleDays = oldStale })

	cmd := &cobra.Command{}
	cmd.Flags().IntVar(&flagStaleDays, "stale-days", 14, "")
	if err := cmd.Flags().Set("stale-days", "7"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.StaleDays != 7 {
		t.Errorf("StaleDays = %d, want 7 (flag wins over file)", cfg.StaleDays)
	}
}

func TestLoadConfigUnchangedFlagDoesNotShadowFile(t *testing.T) {
	dir := t.TempDir()
	toml := "stale_days = 30\n"
	if err := os.WriteFile(filepath.Join(dir, ".cachekill.toml"), []byte(toml), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	chdir(t, dir)

	cmd := &cobra.Command{}
	var staleDays int
	cmd.Flags().IntVar(&staleDays, "stale-days", 14, "")

	cfg, err := loadConfig(cmd)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.StaleDays != 30 {
		t.Errorf("StaleDays = %d, want 30 (default flag must not shadow file)", cfg.StaleDays)
	}
}

func TestGatherEntriesIncludesNpxWhenFlagged(t *testing.T) {
	home := t.TempDir()
	npxDir := filepath.Join(home, ".npm", "_npx", "abc123")
	if err := os.MkdirAll(npxDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(npxDir, "package.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HOME", home)

	project := t.TempDir()
	if err := os.WriteFile(filepath.Join(project, "package.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(project, "node_modules"), 0755); err != nil {
		t.Fatal(err)
	}
	chdir(t, project)

	cfg, err := loadConfig(&cobra.Command{})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	cfg.JSON = true // suppress the spinner

	cfg.Npx = false
	entries, err := gatherEntries(cfg)
	if err != nil {
		t.Fatalf("gatherEntries: %v", err)
	}
	npxRoot := filepath.Join(home, ".npm", "_npx")
	for _, e := range entries {
		if e.Path == npxRoot {
			t.Error("npx cache included without the flag")
		}
	}

	cfg.Npx = true
	entries, err = gatherEntries(cfg)
	if err != nil {
		t.Fatalf("gatherEntries: %v", err)
	}
	var aggregates, children int
	for _, e := range entries {
		switch e.Path {
		case npxRoot:
			aggregates++
		case filepath.Join(npxRoot, "abc123"):
			children++
		}
	}
	if aggregates != 1 {
		t.Errorf("expected exactly one npx aggregate entry, got %d", aggregates)
	}
	if children != 0 {
		t.Errorf("per-package npx entries leaked into the pipeline: %d", children)
	}
}

func TestAppendSourceEntriesDockerBestEffort(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := loadConfig(&cobra.Command{})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	cfg.Docker = true

	// Docker may or may not be installed where tests run; either way the
	// fold must not error and must not invent entries without the daemon.
	entries := appendSourceEntries(cfg, nil)
	for _, e := range entries {
		if !strings.HasPrefix(e.Path, "docker://") {
			t.Errorf("unexpected non-docker entry: %s", e.Path)
		}
		if e.Disposition != cache.Delete {
			t.Errorf("docker entry %s dispositioned %s, want delete", e.Path, e.Disposition)
		}
	}
}

func TestConfirmForceSkipsPrompt(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := loadConfig(&cobra.Command{})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	cfg.Force = true
	if !confirm(cfg, "really?") {
		t.Error("expected confirm to auto-accept with Force")
	}

	cfg.Force = false
	cfg.JSON = true
	if !confirm(cfg, "really?") {
		t.Error("expected confirm to auto-accept in JSON mode")
	}
}
