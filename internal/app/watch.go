package app

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kagehq/cache-kill/internal/watcher"
)

var (
	flagWatchDaemon   bool
	flagWatchStop     bool
	flagWatchStatus   bool
	flagWatchInterval time.Duration
	flagDaemonChild   bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch cache directories and log growth",
	Long: `Watch the project's cache directories and log a summary whenever
they change, plus a periodic baseline measurement.

Runs in the foreground by default; use --daemon to detach.

Examples:
  cachekill watch
  cachekill watch --interval 5m
  cachekill watch --daemon
  cachekill watch --status
  cachekill watch --stop`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&flagWatchDaemon, "daemon", false, "run in the background")
	watchCmd.Flags().BoolVar(&flagWatchStop, "stop", false, "stop a running daemon")
	watchCmd.Flags().BoolVar(&flagWatchStatus, "status", false, "report daemon status")
	watchCmd.Flags().DurationVar(&flagWatchInterval, "interval", watcher.DefaultInterval, "periodic measurement interval")
	watchCmd.Flags().BoolVar(&flagDaemonChild, "daemon-child", false, "")
	watchCmd.Flags().MarkHidden("daemon-child")
	RootCmd.AddCommand(watchCmd)
}

func watchPidFile(workDir string) string {
	return filepath.Join(workDir, ".cachekill-watch.pid")
}

func watchLogFile(workDir string) string {
	return filepath.Join(workDir, ".cachekill-watch.log")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	pidFile := watchPidFile(cfg.WorkDir)
	logFile := watchLogFile(cfg.WorkDir)

	if flagWatchStatus {
		running, err := watcher.IsDaemonRunning(pidFile)
		if err != nil {
			return err
		}
		if running {
			fmt.Println("watch daemon is running")
		} else {
			fmt.Println("watch daemon is not running")
		}
		return nil
	}

	if flagWatchStop {
		if err := watcher.StopDaemon(pidFile); err != nil {
			return err
		}
		fmt.Println("watch daemon stopped")
		return nil
	}

	if flagDaemonChild {
		logger, err := zap.NewProduction()
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer logger.Sync()

		w := watcher.New(cfg, logger, nil)
		w.SetInterval(flagWatchInterval)
		return w.RunDaemon(pidFile)
	}

	if flagWatchDaemon {
		w := watcher.New(cfg, nil, nil)
		if err := w.StartDaemon(pidFile, logFile); err != nil {
			return err
		}
		fmt.Printf("watch daemon started (log: %s)\n", logFile)
		return nil
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	w := watcher.New(cfg, logger, nil)
	w.SetInterval(flagWatchInterval)
	if err := w.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	<-sigCh

	return w.Stop()
}
