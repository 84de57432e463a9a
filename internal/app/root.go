package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Global flag storage. loadConfig turns changed flags into overrides so
// unset flags never shadow config-file values.
var (
	flagLang       string
	flagPaths      []string
	flagExclude    []string
	flagStaleDays  int
	flagSafeDelete bool
	flagBackupDir  string
	flagDocker     bool
	flagNpx        bool
	flagAll        bool
	flagForce      bool
	flagJSON       bool
	flagDryRun     bool
)

// RootCmd is the root command for cachekill.
var RootCmd = &cobra.Command{
	Use:   "cachekill",
	Short: "Fast, safe cleanup of dev caches",
	Long: `cachekill finds development caches (node_modules, __pycache__, target,
.gradle, model caches and more), shows what they cost, and removes them
safely: by default everything is moved into a timestamped backup folder
you can restore from with one command.

Quick Start:
  1. cachekill list            # see what is taking space
  2. cachekill clean --dry-run # preview the plan
  3. cachekill clean           # back up and remove
  4. cachekill restore         # changed your mind? bring it back

Examples:
  # Clean only Rust build caches older than 30 days
  cachekill clean --lang rust --stale-days 30

  # Clean everything matching a pattern, permanently
  cachekill clean --path '**/node_modules' --safe-delete=false --force

  # Non-interactive CI cleanup after a build
  cachekill ci postbuild

  # Inspect the HuggingFace model cache
  cachekill hf list`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("cachekill: fast, safe cleanup of dev caches")
		fmt.Println()
		fmt.Println("Tip: Run 'cachekill list' to see what is taking space.")
		fmt.Println("     Run 'cachekill clean --dry-run' to preview a cleanup.")
		fmt.Println("     Run 'cachekill --help' for all commands.")
		return nil
	},
}

func init() {
	pf := RootCmd.PersistentFlags()
	pf.StringVar(&flagLang, "lang", "", "limit to one ecosystem: js, py, rust, java, ml")
	pf.StringSliceVar(&flagPaths, "path", nil, "explicit paths or globs to clean (repeatable)")
	pf.StringSliceVar(&flagExclude, "exclude", nil, "glob patterns to protect (repeatable)")
	pf.IntVar(&flagStaleDays, "stale-days", 14, "days of inactivity before a cache counts as stale")
	pf.BoolVar(&flagSafeDelete, "safe-delete", true, "move to backup instead of deleting (--safe-delete=false for permanent)")
	pf.StringVar(&flagBackupDir, "backup-dir", "", "backup root (default: .cachekill-backup under the project)")
	pf.BoolVar(&flagDocker, "docker", false, "include Docker caches")
	pf.BoolVar(&flagNpx, "npx", false, "include the npx cache")
	pf.BoolVar(&flagAll, "all", false, "include generic cache dirs (tmp, .cache, ...)")
	pf.BoolVarP(&flagForce, "force", "f", false, "skip confirmation prompts")
	pf.BoolVar(&flagJSON, "json", false, "machine-readable JSON output")
	pf.BoolVar(&flagDryRun, "dry-run", false, "show the plan without changing anything")

	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command.
func Execute() error {
	return RootCmd.Execute()
}
