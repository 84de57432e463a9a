package app

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestNpxCommandWiring(t *testing.T) {
	if npxCmd.Use != "npx" {
		t.Errorf("expected Use to be 'npx', got '%s'", npxCmd.Use)
	}

	names := make(map[string]bool)
	for _, cmd := range npxCmd.Commands() {
		names[cmd.Use] = true
	}
	for _, want := range []string{"list", "clean"} {
		if !names[want] {
			t.Errorf("expected npx subcommand '%s' to be registered", want)
		}
	}
}

func TestNpxCleanMissingCache(t *testing.T) {
	home := t.TempDir() // no .npm/_npx underneath
	t.Setenv("HOME", home)
	chdir(t, t.TempDir())

	if err := runNpxClean(&cobra.Command{}, nil); err != nil {
		t.Errorf("missing cache must be a no-op, got error: %v", err)
	}
}
