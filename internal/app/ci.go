package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kagehq/cache-kill/internal/ci"
	"github.com/kagehq/cache-kill/internal/output"
)

var ciCmd = &cobra.Command{
	Use:   "ci <prebuild|postbuild>",
	Short: "Non-interactive cache management for build pipelines",
	Long: `Run the pipeline without prompts and exit with a code the build
system can branch on:

  0  success (or prebuild analysis)
  2  partial success, some entries failed
  3  nothing to do
  4  configuration error
  5  fatal error

Examples:
  # Log cache pressure before the build
  cachekill ci prebuild --json

  # Clean up afterwards, keep backups
  cachekill ci postbuild`,
	Args: cobra.ExactArgs(1),
	RunE: runCI,
}

func init() {
	RootCmd.AddCommand(ciCmd)
}

func runCI(cmd *cobra.Command, args []string) error {
	mode, err := ci.ParseMode(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ci.ExitConfigError)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ci.ExitConfigError)
	}

	result, err := ci.NewRunner(cfg, mode, nil).Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ci.ExitFatal)
	}

	if cfg.JSON {
		if err := output.JSON(os.Stdout, result); err != nil {
			os.Exit(ci.ExitFatal)
		}
	} else {
		fmt.Println(result.Summary())
		if result.BackupDir != "" {
			fmt.Printf("CACHEKILL_BACKUP: %s\n", result.BackupDir)
		}
	}

	if code := result.ExitCode(); code != ci.ExitSuccess {
		os.Exit(code)
	}
	return nil
}
