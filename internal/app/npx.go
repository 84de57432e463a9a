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

var npxCmd = &cobra.Command{
	Use:   "npx",
	Short: "Manage the npx execution cache",
	Long: `Inspect and clean ~/.npm/_npx, where npx keeps the packages it has
executed.

Examples:
  cachekill npx list
  cachekill npx clean --force`,
}

var npxListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show cached packages, largest first",
	RunE:  runNpxList,
}

var npxCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the npx cache (safe-delete by default)",
	RunE:  runNpxClean,
}

func init() {
	npxCmd.AddCommand(npxListCmd)
	npxCmd.AddCommand(npxCleanCmd)
	RootCmd.AddCommand(npxCmd)
}

func runNpxList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	src := sources.NewNpx(cfg, nil)
	if !src.Exists() {
		return fmt.Errorf("npx cache not found at ~/.npm/_npx")
	}

	packages, err := src.Packages()
	if err != nil {
		return err
	}

	if cfg.JSON {
		return output.JSON(os.Stdout, packages)
	}

	if len(packages) == 0 {
		fmt.Println("npx cache is empty.")
		return nil
	}
	fmt.Printf("%-32s %-12s %-10s %-14s %s\n", "Package", "Version", "Size", "Last Used", "Stale")
	for _, p := range packages {
		version := p.Version
		if version == "" {
			version = "-"
		}
		stale := ""
		if p.Stale {
			stale = "yes"
		}
		fmt.Printf("%-32s %-12s %-10s %-14s %s\n",
			p.Name, version, humanize.Bytes(p.SizeBytes), humanize.Time(p.LastUsed), stale)
	}
	return nil
}

func runNpxClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	src := sources.NewNpx(cfg, nil)
	if !src.Exists() {
		fmt.Println("npx cache not found; nothing to clean.")
		return nil
	}

	entries, err := src.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		// Cache vanished between the existence check and the listing.
		fmt.Println("npx cache not found; nothing to clean.")
		return nil
	}
	// The aggregate entry covers the whole cache; cleaning it makes the
	// per-package entries redundant.
	entries = entries[:1]

	if !confirm(cfg, fmt.Sprintf("Remove the npx cache (%s)?", humanize.Bytes(entries[0].SizeBytes))) {
		fmt.Println("Aborted.")
		return nil
	}

	ex := executor.New(cfg.BackupRoot(), cfg.WorkDir, nil)
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
