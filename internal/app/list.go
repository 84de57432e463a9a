package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kagehq/cache-kill/internal/inspect"
	"github.com/kagehq/cache-kill/internal/output"
)

var listTop int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show discovered caches and their sizes",
	Long: `Discover and measure caches without changing anything.

Examples:
  # Everything the default probes find
  cachekill list

  # Only the five largest
  cachekill list --top 5

  # Machine-readable
  cachekill list --json`,
	RunE: runList,
}

func init() {
	listCmd.Flags().IntVar(&listTop, "top", 0, "show only the N largest caches")
	RootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	entries, err := gatherEntries(cfg)
	if err != nil {
		return fmt.Errorf("failed to inspect caches: %w", err)
	}

	if listTop > 0 {
		entries = inspect.TopN(entries, listTop)
	}

	if cfg.JSON {
		return output.JSON(os.Stdout, struct {
			Entries any             `json:"entries"`
			Summary inspect.Summary `json:"summary"`
		}{entries, inspect.Summarize(entries)})
	}

	fmt.Print(output.RenderEntries(entries))
	fmt.Println()
	fmt.Print(output.RenderSummary(inspect.Summarize(entries)))
	return nil
}
