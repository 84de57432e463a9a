package app

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kagehq/cache-kill/internal/cache"
	"github.com/kagehq/cache-kill/internal/config"
	"github.com/kagehq/cache-kill/internal/discover"
	"github.com/kagehq/cache-kill/internal/inspect"
	"github.com/kagehq/cache-kill/internal/output"
	"github.com/kagehq/cache-kill/internal/sources"
)

// loadConfig resolves the effective configuration: working directory,
// .cachekill.toml (searched upward), and any flags the user actually
// set. Unchanged flags stay nil so file values are not shadowed by flag
// defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to determine working directory: %w", err)
	}

	file, err := config.LoadFile(workDir)
	if err != nil {
		return nil, err
	}

	o := config.Overrides{
		Docker: flagDocker,
		Npx:    flagNpx,
		All:    flagAll,
		Force:  flagForce,
		JSON:   flagJSON,
		DryRun: flagDryRun,
	}
	flags := cmd.Flags()
	if flags.Changed("lang") {
		o.Lang = &flagLang
	}
	if flags.Changed("path") {
		o.Paths = flagPaths
	}
	if flags.Changed("exclude") {
		o.Exclude = flagExclude
	}
	if flags.Changed("stale-days") {
		o.StaleDays = &flagStaleDays
	}
	if flags.Changed("safe-delete") {
		o.SafeDelete = &flagSafeDelete
	}
	if flags.Changed("backup-dir") {
		o.BackupDir = &flagBackupDir
	}

	return config.Merge(workDir, file, o)
}

// gatherEntries runs the discover and inspect stages with a spinner on
// interactive terminals, then folds in the opt-in integration sources.
func gatherEntries(cfg *config.Config) ([]cache.Entry, error) {
	spinner := output.NewSpinner("Measuring caches")
	if !cfg.JSON {
		spinner.Start()
		defer spinner.Stop()
	}

	result := discover.Discover(cfg)
	paths := discover.Dedupe(result.Paths)
	entries, err := inspect.New(cfg, nil).Inspect(paths)
	if err != nil {
		return nil, err
	}
	return appendSourceEntries(cfg, entries), nil
}

// appendSourceEntries extends the pipeline with the npx and Docker
// sources when their flags are set. Best effort, like the discovery
// probes: an unavailable source contributes nothing.
func appendSourceEntries(cfg *config.Config, entries []cache.Entry) []cache.Entry {
	if cfg.Npx {
		if extra, err := sources.NewNpx(cfg, nil).List(); err == nil && len(extra) > 0 {
			// The aggregate entry covers the whole cache; the per-package
			// entries it subsumes would double-count and double-delete.
			entries = append(entries, extra[0])
		}
	}
	if cfg.Docker {
		if extra, err := sources.NewDocker(cfg, nil).List(); err == nil {
			entries = append(entries, extra...)
		}
	}
	return entries
}

// confirm prompts for a y/N answer on stdin. Force mode and JSON mode
// auto-confirm: both are non-interactive by intent.
func confirm(cfg *config.Config, prompt string) bool {
	if cfg.Force || cfg.JSON {
		return true
	}

	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
