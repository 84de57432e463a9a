package app

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kagehq/cache-kill/internal/executor"
	"github.com/kagehq/cache-kill/internal/output"
)

var backupsCleanDays int

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "Manage the backup folder",
	RunE:  runBackupsList,
}

var backupsCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove backups older than a cutoff",
	Long: `Remove timestamped backup folders whose last modification is older
than --days.

Examples:
  # Drop backups older than a week
  cachekill backups clean --days 7`,
	RunE: runBackupsClean,
}

func init() {
	backupsCleanCmd.Flags().IntVar(&backupsCleanDays, "days", 7, "remove backups older than this many days")
	backupsCmd.AddCommand(backupsCleanCmd)
	RootCmd.AddCommand(backupsCmd)
}

func runBackupsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	root := cfg.BackupRoot()
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("No backups.")
			return nil
		}
		return fmt.Errorf("failed to read backup root: %w", err)
	}

	type backup struct {
		Name      string `json:"name"`
		SizeBytes uint64 `json:"size_bytes"`
	}
	var backups []backup
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		backups = append(backups, backup{
			Name:      entry.Name(),
			SizeBytes: dirSize(filepath.Join(root, entry.Name())),
		})
	}
	sort.Slice(backups, func(i, j int) bool { return backups[i].Name > backups[j].Name })

	if cfg.JSON {
		return output.JSON(os.Stdout, backups)
	}
	if len(backups) == 0 {
		fmt.Println("No backups.")
		return nil
	}
	fmt.Printf("Backups under %s:\n", root)
	for _, b := range backups {
		fmt.Printf("  %-24s %s\n", b.Name, humanize.Bytes(b.SizeBytes))
	}
	return nil
}

// dirSize sums regular file sizes under root; unreadable entries count
// as zero.
func dirSize(root string) uint64 {
	var total uint64
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += uint64(info.Size())
		}
		return nil
	})
	return total
}

func runBackupsClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ex := executor.New(cfg.BackupRoot(), cfg.WorkDir, nil)
	result, err := ex.CleanOldBackups(backupsCleanDays)
	if err != nil {
		return err
	}

	if cfg.JSON {
		return output.JSON(os.Stdout, result)
	}
	fmt.Print(output.RenderCleanup(result))
	if result.FreedBytes > 0 {
		fmt.Printf("Freed %s.\n", humanize.Bytes(result.FreedBytes))
	}
	return nil
}
