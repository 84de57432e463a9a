package app

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kagehq/cache-kill/internal/output"
	"github.com/kagehq/cache-kill/internal/sources"
)

var dockerCmd = &cobra.Command{
	Use:   "docker",
	Short: "Report and prune Docker disk usage",
	Long: `Talk to the Docker daemon through the docker CLI. Unlike filesystem
caches, Docker objects cannot be backed up; pruning is permanent.

Examples:
  cachekill docker df
  cachekill docker prune --force`,
}

var dockerDfCmd = &cobra.Command{
	Use:   "df",
	Short: "Show disk usage by category",
	RunE:  runDockerDf,
}

var dockerPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove unused images, containers, volumes, and build cache",
	RunE:  runDockerPrune,
}

func init() {
	dockerCmd.AddCommand(dockerDfCmd)
	dockerCmd.AddCommand(dockerPruneCmd)
	RootCmd.AddCommand(dockerCmd)
}

func runDockerDf(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	src := sources.NewDocker(cfg, nil)
	if !src.Available() {
		return sources.ErrDockerUnavailable
	}

	info, err := src.SystemDF()
	if err != nil {
		return err
	}

	if cfg.JSON {
		return output.JSON(os.Stdout, info)
	}

	fmt.Println("Docker disk usage")
	fmt.Printf("  %-14s %s\n", "Images", humanize.Bytes(info.ImagesSize))
	fmt.Printf("  %-14s %s\n", "Containers", humanize.Bytes(info.ContainersSize))
	fmt.Printf("  %-14s %s\n", "Volumes", humanize.Bytes(info.VolumesSize))
	fmt.Printf("  %-14s %s\n", "Build cache", humanize.Bytes(info.BuildCacheSize))
	fmt.Printf("  %-14s %s\n", "Total", humanize.Bytes(info.TotalSize))
	return nil
}

func runDockerPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	src := sources.NewDocker(cfg, nil)
	if !src.Available() {
		return sources.ErrDockerUnavailable
	}

	if !confirm(cfg, "Prune unused Docker data? This cannot be undone.") {
		fmt.Println("Aborted.")
		return nil
	}

	result, err := src.Prune()
	if err != nil {
		return err
	}

	if cfg.JSON {
		return output.JSON(os.Stdout, result)
	}

	fmt.Println("Docker prune complete")
	fmt.Printf("  Images removed:      %d\n", result.ImagesRemoved)
	fmt.Printf("  Containers removed:  %d\n", result.ContainersRemoved)
	fmt.Printf("  Volumes removed:     %d\n", result.VolumesRemoved)
	fmt.Printf("  Build cache removed: %d\n", result.BuildCacheRemoved)
	return nil
}
