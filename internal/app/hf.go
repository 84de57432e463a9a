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

var hfModel string

var hfCmd = &cobra.Command{
	Use:   "hf",
	Short: "Manage the HuggingFace model cache",
	Long: `Inspect and clean ~/.cache/huggingface.

Model weights are expensive to re-download, so 'hf clean' only backs up
files that have gone stale (--stale-days); fresh files are kept.

Examples:
  cachekill hf list
  cachekill hf clean --stale-days 30
  cachekill hf clean --model microsoft/DialoGPT-medium`,
}

var hfListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show cache statistics by repository and model",
	RunE:  runHfList,
}

var hfCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Back up stale model files",
	RunE:  runHfClean,
}

func init() {
	hfCleanCmd.Flags().StringVar(&hfModel, "model", "", "restrict to one model ID (org/name)")
	hfCmd.AddCommand(hfListCmd)
	hfCmd.AddCommand(hfCleanCmd)
	RootCmd.AddCommand(hfCmd)
}

func runHfList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	src := sources.NewHuggingFace(cfg, nil)
	if !src.Exists() {
		return fmt.Errorf("HuggingFace cache not found at ~/.cache/huggingface")
	}

	stats, err := src.Stats()
	if err != nil {
		return err
	}

	if cfg.JSON {
		return output.JSON(os.Stdout, stats)
	}

	fmt.Println("HuggingFace cache")
	fmt.Printf("Total size:   %s\n", humanize.Bytes(stats.TotalSize))
	fmt.Printf("Files:        %d\n", stats.EntryCount)
	fmt.Printf("Repositories: %d\n", stats.RepoCount)
	fmt.Printf("Models:       %d\n", stats.ModelCount)
	if len(stats.TopModels) > 0 {
		fmt.Println("\nLargest models:")
		for _, g := range stats.TopModels {
			fmt.Printf("  %-40s %s\n", g.Name, humanize.Bytes(g.SizeBytes))
		}
	}
	return nil
}

func runHfClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	src := sources.NewHuggingFace(cfg, nil)
	if !src.Exists() {
		return fmt.Errorf("HuggingFace cache not found at ~/.cache/huggingface")
	}

	entries, err := src.ListModel(hfModel)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No HuggingFace cache entries to clean.")
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
		fmt.Println("No stale model files; nothing to clean.")
		return nil
	}

	var staleSize uint64
	for _, e := range plan.ToBackup {
		staleSize += e.SizeBytes
	}
	if !confirm(cfg, fmt.Sprintf("Back up %d stale model files (%s)?", len(plan.ToBackup), humanize.Bytes(staleSize))) {
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
