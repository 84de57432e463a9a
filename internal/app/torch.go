package app

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kagehq/cache-kill/internal/executor"
	"github.com/kagehq/cache-kill/internal/output"
	"github.com/kagehq/cache-kill/internal/sources"
)

var torchCmd = &cobra.Command{
	Use:   "torch",
	Short: "Manage the PyTorch hub cache",
	Long: `Inspect and clean ~/.cache/torch. Like 'hf clean', only stale
checkpoints are backed up; fresh ones are kept.

Examples:
  cachekill torch list
  cachekill torch clean --stale-days 30`,
}

var torchListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show cache statistics by type and version",
	RunE:  runTorchList,
}

var torchCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Back up stale checkpoints",
	RunE:  runTorchClean,
}

func init() {
	torchCmd.AddCommand(torchListCmd)
	torchCmd.AddCommand(torchCleanCmd)
	RootCmd.AddCommand(torchCmd)
}

func runTorchList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	src := sources.NewTorch(cfg, nil)
	if !src.Exists() {
		return fmt.Errorf("PyTorch cache not found at ~/.cache/torch")
	}

	stats, err := src.Stats()
	if err != nil {
		return err
	}

	if cfg.JSON {
		return output.JSON(os.Stdout, stats)
	}

	fmt.Println("PyTorch cache")
	fmt.Printf("Total size: %s\n", humanize.Bytes(stats.TotalSize))
	fmt.Printf("Files:      %d\n", stats.EntryCount)
	if len(stats.CacheTypes) > 0 {
		fmt.Println("\nBy type:")
		for _, g := range stats.CacheTypes {
			fmt.Printf("  %-16s %s\n", g.Name, humanize.Bytes(g.SizeBytes))
		}
	}
	if len(stats.Versions) > 0 {
		fmt.Println("\nBy version:")
		for _, g := range stats.Versions {
			fmt.Printf("  %-16s %s\n", g.Name, humanize.Bytes(g.SizeBytes))
		}
	}
	return nil
}

func runTorchClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	src := sources.NewTorch(cfg, nil)
	if !src.Exists() {
		return fmt.Errorf("PyTorch cache not found at ~/.cache/torch")
	}

	entries, err := src.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No PyTorch cache entries to clean.")
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
	if len(plan.ToBackup) == 0 {
		fmt.Println("No stale checkpoints; nothing to clean.")
		return nil
	}

	var staleSize uint64
	for _, e := range plan.ToBackup {
		staleSize += e.SizeBytes
	}
	if !confirm(cfg, fmt.Sprintf("Back up %d stale checkpoints (%s)?", len(plan.ToBackup), humanize.Bytes(staleSize))) {
		fmt.Println("Aborted.")
		return nil
	}

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
