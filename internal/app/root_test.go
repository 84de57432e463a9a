package app

import (
	"strings"
	"testing"
)

func TestRootCommand(t *testing.T) {
	if RootCmd.Use != "cachekill" {
		t.Errorf("expected Use to be 'cachekill', got '%s'", RootCmd.Use)
	}
	if RootCmd.Short == "" {
		t.Error("expected Short description to be set")
	}
	if RootCmd.Long == "" {
		t.Error("expected Long description to be set")
	}
	if !strings.Contains(RootCmd.Long, "Quick Start") {
		t.Error("expected Long description to contain 'Quick Start' section")
	}
	if !RootCmd.SilenceUsage {
		t.Error("expected SilenceUsage to be true")
	}
	if RootCmd.SuggestionsMinimumDistance != 2 {
		t.Errorf("SuggestionsMinimumDistance = %d, want 2", RootCmd.SuggestionsMinimumDistance)
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	expected := []string{"list", "clean", "restore", "backups", "doctor", "hf", "torch", "npx", "docker", "stores", "watch"}

	found := make(map[string]bool)
	for _, cmd := range RootCmd.Commands() {
		name := strings.Fields(cmd.Use)[0]
		found[name] = true
	}
	// ci carries its mode argument in Use.
	for _, cmd := range RootCmd.Commands() {
		if strings.HasPrefix(cmd.Use, "ci ") || cmd.Use == "ci" {
			found["ci"] = true
		}
	}

	for _, name := range append(expected, "ci") {
		if !found[name] {
			t.Errorf("expected command '%s' to be registered", name)
		}
	}
}

func TestRootCommandPersistentFlags(t *testing.T) {
	for _, name := range []string{
		"lang", "path", "exclude", "stale-days", "safe-delete",
		"backup-dir", "docker", "npx", "all", "force", "json", "dry-run",
	} {
		flag := RootCmd.PersistentFlags().Lookup(name)
		if flag == nil {
			t.Errorf("expected --%s flag to be registered", name)
			continue
		}
		if flag.Usage == "" {
			t.Errorf("expected --%s flag to have usage text", name)
		}
	}
}

func TestSafeDeleteDefaultsOn(t *testing.T) {
	flag := RootCmd.PersistentFlags().Lookup("safe-delete")
	if flag == nil {
		t.Fatal("expected --safe-delete flag to be registered")
	}
	if flag.DefValue != "true" {
		t.Errorf("expected --safe-delete default to be true, got %s", flag.DefValue)
	}
}

func TestForceFlagShorthand(t *testing.T) {
	flag := RootCmd.PersistentFlags().ShorthandLookup("f")
	if flag == nil {
		t.Fatal("expected -f shorthand to be registered")
	}
	if flag.Name != "force" {
		t.Errorf("expected -f to map to --force, got --%s", flag.Name)
	}
}

func TestSubcommandsHaveRunE(t *testing.T) {
	for _, cmd := range RootCmd.Commands() {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			continue
		}
		if cmd.RunE == nil && !cmd.HasSubCommands() {
			t.Errorf("command '%s' has neither RunE nor subcommands", cmd.Use)
		}
	}
}

func TestWatchCommandFlags(t *testing.T) {
	for _, name := range []string{"daemon", "stop", "status", "interval"} {
		if watchCmd.Flags().Lookup(name) == nil {
			t.Errorf("expected watch --%s flag to be registered", name)
		}
	}

	hidden := watchCmd.Flags().Lookup("daemon-child")
	if hidden == nil {
		t.Fatal("expected --daemon-child flag to be registered")
	}
	if !hidden.Hidden {
		t.Error("expected --daemon-child to be hidden")
	}
}

func TestHfCleanModelFlag(t *testing.T) {
	if hfCleanCmd.Flags().Lookup("model") == nil {
		t.Error("expected hf clean --model flag to be registered")
	}
}

func TestExecute(t *testing.T) {
	_ = Execute
}
