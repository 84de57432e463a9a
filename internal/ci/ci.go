// Package ci runs the pipeline non-interactively for build systems:
// prebuild analyzes, postbuild cleans, and the outcome maps onto stable
// exit codes CI scripts can branch on.
package ci

import (
	"fmt"
	"time"

	"github.com/kagehq/cache-kill/internal/cache"
	"github.com/kagehq/cache-kill/internal/clock"
	"github.com/kagehq/cache-kill/internal/config"
	"github.com/kagehq/cache-kill/internal/discover"
	"github.com/kagehq/cache-kill/internal/executor"
	"github.com/kagehq/cache-kill/internal/inspect"
)

// Mode selects the CI phase.
type Mode string

const (
	// Prebuild analyzes without touching anything, so a build can log
	// cache pressure before it starts.
	Prebuild Mode = "prebuild"
	// Postbuild cleans up after the build according to the configured
	// policy.
	Postbuild Mode = "postbuild"
)

// ParseMode validates a CLI-supplied mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Prebuild, Postbuild:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("invalid ci mode %q (want prebuild or postbuild)", s)
	}
}

// Exit codes reported to the calling build system.
const (
	ExitSuccess     = 0
	ExitPartial     = 2
	ExitNothingToDo = 3
	ExitConfigError = 4
	ExitFatal       = 5
)

// Status values carried in the Result.
const (
	StatusSuccess     = "success"
	StatusPartial     = "partial"
	StatusNoAction    = "no_action"
	StatusNothingToDo = "nothing_to_do"
)

// Result is the machine-readable outcome of one CI invocation.
type Result struct {
	Mode             Mode      `json:"mode"`
	EntriesProcessed int       `json:"entries_processed"`
	FreedBytes       uint64    `json:"freed_bytes"`
	FailedCount      int       `json:"failed_count"`
	BackupDir        string    `json:"backup_dir,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
	Status           string    `json:"status"`
}

// ExitCode maps the result status to the CI exit-code contract.
func (r *Result) ExitCode() int {
	switch r.Status {
	case StatusSuccess, StatusNoAction:
		return ExitSuccess
	case StatusPartial:
		return ExitPartial
	case StatusNothingToDo:
		return ExitNothingToDo
	default:
		return ExitFatal
	}
}

// Runner executes one CI phase over the standard pipeline.
type Runner struct {
	cfg   *config.Config
	mode  Mode
	clock clock.Clock
}

// NewRunner creates a Runner. A nil clk falls back to the system clock.
func NewRunner(cfg *config.Config, mode Mode, clk clock.Clock) *Runner {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Runner{cfg: cfg, mode: mode, clock: clk}
}

// Run discovers, inspects, and (in postbuild mode) executes. Prebuild
// never mutates anything regardless of flags.
func (r *Runner) Run() (*Result, error) {
	result := &Result{Mode: r.mode, Timestamp: r.clock.Now()}

	discovery := discover.Discover(r.cfg)
	paths := discover.Dedupe(discovery.Paths)
	if len(paths) == 0 {
		result.Status = StatusNothingToDo
		return result, nil
	}

	inspector := inspect.New(r.cfg, r.clock)
	entries, err := inspector.Inspect(paths)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect caches: %w", err)
	}
	result.EntriesProcessed = len(entries)

	if r.mode == Prebuild {
		result.Status = StatusNoAction
		return result, nil
	}
	return r.runPostbuild(result, entries)
}

func (r *Runner) runPostbuild(result *Result, entries []cache.Entry) (*Result, error) {
	ex := executor.New(r.cfg.BackupRoot(), r.cfg.WorkDir, r.clock)

	if r.cfg.DryRun {
		plan := ex.DryRun(entries)
		for _, e := range append(plan.ToDelete, plan.ToBackup...) {
			result.FreedBytes += e.SizeBytes
		}
		result.Status = StatusNoAction
		return result, nil
	}

	if r.cfg.SafeDelete {
		sd, err := ex.SafeDelete(entries)
		if err != nil {
			return nil, err
		}
		result.FreedBytes = sd.TotalSize
		result.FailedCount = len(sd.Failed)
		result.BackupDir = sd.BackupDir
	} else {
		hd := ex.HardDelete(entries)
		result.FreedBytes = hd.TotalSize
		result.FailedCount = len(hd.Failed)
	}

	switch {
	case result.FailedCount > 0:
		result.Status = StatusPartial
	case result.FreedBytes > 0:
		result.Status = StatusSuccess
	default:
		result.Status = StatusNoAction
	}
	return result, nil
}

// Summary renders the one-line log format build systems grep for.
func (r *Result) Summary() string {
	return fmt.Sprintf("CACHEKILL_CI: mode=%s entries=%d freed=%d status=%s",
		r.Mode, r.EntriesProcessed, r.FreedBytes, r.Status)
}
