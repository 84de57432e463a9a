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

var storesCmd = &cobra.Command{
	Use:   "stores",
	Short: "Manage global package-manager stores (npm, pnpm, yarn)",
	Long: `Inspect and clean the global stores of npm, pnpm, and yarn. These
live in the home directory, not the project, and rebuild themselves on
the next install.

Examples:
  cachekill stores list
  cachekill stores clean --force`,
}

var storesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show discovered stores and their sizes",
	RunE:  runStoresList,
}

var storesCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the stores (safe-delete by default)",
	RunE:  runStoresClean,
}

func init() {
	storesCmd.AddCommand(storesListCmd)
	storesCmd.AddCommand(storesCleanCmd)
	RootCmd.AddCommand(storesCmd)
}

func runStoresList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	src := sources.NewJSPackageManagers(cfg, nil)
	stores, err := src.Stores()
	if err != nil {
		return err
	}

	if cfg.JSON {
		return output.JSON(os.Stdout, stores)
	}

	if len(stores) == 0 {
		fmt.Println("No package-manager stores found.")
		return nil
	}
	fmt.Printf("%-8s %-10s %-14s %-6s %s\n", "Manager", "Size", "Last Used", "Stale", "Path")
	for _, s := range stores {
		stale := ""
		if s.Stale {
			stale = "yes"
		}
		fmt.Printf("%-8s %-10s %-14s %-6s %s\n",
			s.Manager, humanize.Bytes(s.SizeBytes), humanize.Time(s.LastUsed), stale, s.Path)
	}
	return nil
}

func runStoresClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	src := sources.NewJSPackageManagers(cfg, nil)
	entries, err := src.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No package-manager stores found.")
		return nil
	}

	var total uint64
	for _, e := range entries {
		total += e.SizeBytes
	}
	if !confirm(cfg, fmt.Sprintf("Remove %d stores (%s)?", len(entries), humanize.Bytes(total))) {
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
