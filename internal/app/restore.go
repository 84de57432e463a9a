package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kagehq/cache-kill/internal/executor"
	"github.com/kagehq/cache-kill/internal/output"
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Bring back the most recent backup",
	Long: `Move the contents of the most recent timestamped backup folder back
into the project. Items whose destination already exists are left in the
backup and reported, never overwritten.

Examples:
  cachekill restore
  cachekill restore --json`,
	RunE: runRestore,
}

func init() {
	RootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ex := executor.New(cfg.BackupRoot(), cfg.WorkDir, nil)
	result, err := ex.RestoreLast()
	if err != nil {
		if errors.Is(err, executor.ErrNoBackupFound) {
			return fmt.Errorf("no backup found under %s", cfg.BackupRoot())
		}
		return err
	}

	if cfg.JSON {
		return output.JSON(os.Stdout, result)
	}
	fmt.Print(output.RenderRestore(result))
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d items could not be restored", len(result.Failed))
	}
	return nil
}
