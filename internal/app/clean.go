package app

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kagehq/cache-kill/internal/executor"
	"github.com/kagehq/cache-kill/internal/output"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove discovered caches (safe-delete by default)",
	Long: `Discover, measure, and remove the project's dev caches.

By default entries are moved into a timestamped folder under the backup
root (.cachekill-backup), so a cleanup is always reversible with
'cachekill restore'. Pass --safe-delete=false for permanent removal.

Examples:
  # Preview without touching anything
  cachekill clean --dry-run

  # Clean JS caches only, no prompt
  cachekill clean --lang js --force

  # Permanent removal of anything stale for 60+ days
  cachekill clean --stale-days 60 --safe-delete=false`,
	RunE: runClean,
}

func init() {
	RootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	entries, err := gatherEntries(cfg)
	if err != nil {
		return fmt.Errorf("failed to inspect caches: %w", err)
	}
	if len(entries) == 0 {
		if cfg.JSON {
			return output.JSON(os.Stdout, executor.DryRunResult{})
		}
		fmt.Println("No caches found.")
		return nil
	}

	ex := executor.New(cfg.BackupRoot(), cfg.WorkDir, nil)
	plan := ex.DryRun(entries)

	if cfg.DryRun {
		if cfg.JSON {
			return output.JSON(os.Stdout, plan)
		}
		fmt.Print(output.RenderDryRun(plan))
		return nil
	}

	actionable := len(plan.ToDelete) + len(plan.ToBackup)
	if actionable == 0 {
		if cfg.JSON {
			return output.JSON(os.Stdout, plan)
		}
		fmt.Println("Nothing to clean; every cache was skipped by policy.")
		return nil
	}

	var actionSize uint64
	for _, e := range plan.ToDelete {
		actionSize += e.SizeBytes
	}
	for _, e := range plan.ToBackup {
		actionSize += e.SizeBytes
	}

	verb := "back up"
	if !cfg.SafeDelete {
		verb = "permanently delete"
	}
	prompt := fmt.Sprintf("About to %s %d caches (%s). Continue?",
		verb, actionable, humanize.Bytes(actionSize))
	if !confirm(cfg, prompt) {
		fmt.Println("Aborted.")
		return nil
	}

	if cfg.SafeDelete {
		result, err := ex.SafeDelete(entries)
		if err != nil {
			return err
		}
		if cfg.JSON {
			return output.JSON(os.Stdout, result)
		}
		fmt.Print(output.RenderSafeDelete(result))
		return nil
	}

	result := ex.HardDelete(entries)
	if cfg.JSON {
		return output.JSON(os.Stdout, result)
	}
	fmt.Print(output.RenderHardDelete(result))
	return nil
}
