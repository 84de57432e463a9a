package fsops

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if !Exists(file) {
		t.Error("Exists(file) = false, want true")
	}
	if Exists(filepath.Join(dir, "missing")) {
		t.Error("Exists(missing) = true, want false")
	}
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	if err := os.WriteFile(src, []byte("payload"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Move(src, dst); err != nil {
		t.Fatalf("Move: %v", err)
	}

	if Exists(src) {
		t.Error("source still exists after move")
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("destination content = %q, want %q", data, "payload")
	}
}

func TestMoveDirectoryPreservesTree(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "node_modules")
	if err := os.MkdirAll(filepath.Join(src, "pkg", "lib"), 0755); err != nil {
		t.Fatal(err)
	}
	inner := filepath.Join(src, "pkg", "lib", "index.js")
	if err := os.WriteFile(inner, []byte("module.exports = 1"), 0644); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(dir, "backup", "node_modules")
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		t.Fatal(err)
	}
	if err := Move(src, dst); err != nil {
		t.Fatalf("Move: %v", err)
	}

	moved := filepath.Join(dst, "pkg", "lib", "index.js")
	data, err := os.ReadFile(moved)
	if err != nil {
		t.Fatalf("nested file missing after move: %v", err)
	}
	if string(data) != "module.exports = 1" {
		t.Errorf("nested content = %q", data)
	}
	if Exists(src) {
		t.Error("source directory still exists after move")
	}
}

func TestMoveMissingSourceFails(t *testing.T) {
	dir := t.TempDir()
	if err := Move(filepath.Join(dir, "ghost"), filepath.Join(dir, "dst")); err == nil {
		t.Fatal("Move of missing source succeeded, want error")
	}
}
