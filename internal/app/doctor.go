package app

import (
	"fmt"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kagehq/cache-kill/internal/doctor"
	"github.com/kagehq/cache-kill/internal/output"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the host: integrations, cache dirs, disk headroom",
	RunE:  runDoctor,
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	diag := doctor.New(cfg, nil).Diagnose()

	if cfg.JSON {
		return output.JSON(os.Stdout, diag)
	}

	fmt.Println("cachekill doctor")
	fmt.Printf("Version:  %s\n", diag.Version)
	fmt.Printf("Platform: %s\n", diag.Platform)

	fmt.Println("\nIntegrations:")
	printCheck := func(name string, ok bool) {
		mark := "missing"
		if ok {
			mark = "ok"
		}
		fmt.Printf("  %-12s %s\n", name, mark)
	}
	printCheck("docker", diag.Integrations.Docker)
	printCheck("npx", diag.Integrations.Npx)
	printCheck("huggingface", diag.Integrations.HuggingFace)
	printCheck("torch", diag.Integrations.Torch)

	if len(diag.CacheDirs) > 0 {
		fmt.Println("\nCache directories:")
		names := make([]string, 0, len(diag.CacheDirs))
		for name := range diag.CacheDirs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			info := diag.CacheDirs[name]
			if !info.Exists {
				fmt.Printf("  %-12s absent (%s)\n", name, info.Path)
				continue
			}
			fmt.Printf("  %-12s %s, %d entries (%s)\n",
				name, humanize.Bytes(info.SizeBytes), info.EntryCount, info.Path)
		}
	}

	if diag.Disk != nil {
		fmt.Printf("\nDisk: %s free of %s (%.0f%% used) at %s\n",
			humanize.Bytes(diag.Disk.FreeBytes),
			humanize.Bytes(diag.Disk.TotalBytes),
			diag.Disk.UsedPercent,
			diag.Disk.Mountpoint)
	}

	fmt.Println("\nRecommendations:")
	for _, rec := range diag.Recommends {
		fmt.Printf("  - %s\n", rec)
	}
	return nil
}
