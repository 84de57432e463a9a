// Package output renders pipeline results for the terminal: entry
// tables, summaries, and execution reports, plus a JSON mode that dumps
// the underlying result structs verbatim.
//
// Tables use plain ASCII columns. Color is applied only when stdout is
// a TTY and NO_COLOR is unset.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/kagehq/cache-kill/internal/cache"
	"github.com/kagehq/cache-kill/internal/executor"
	"github.com/kagehq/cache-kill/internal/inspect"
)

// IsColorEnabled reports whether ANSI colors should be emitted: stdout
// is a TTY and NO_COLOR is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

var (
	actionDelete = color.New(color.FgRed)
	actionBackup = color.New(color.FgYellow)
	actionSkip   = color.New(color.FgHiBlack)
	okColor      = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
)

func init() {
	if !IsColorEnabled() {
		color.NoColor = true
	}
}

// JSON writes v to w as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// RenderEntries renders the main entry table, largest first.
func RenderEntries(entries []cache.Entry) string {
	if len(entries) == 0 {
		return "No caches found.\n"
	}

	sorted := make([]cache.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SizeBytes > sorted[j].SizeBytes
	})

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-48s %-8s %-10s %-14s %-6s %s\n",
		"Path", "Kind", "Size", "Last Used", "Stale", "Action"))
	sb.WriteString(strings.Repeat("─", 96))
	sb.WriteString("\n")

	for _, e := range sorted {
		stale := ""
		if e.Stale {
			stale = "yes"
		}
		sb.WriteString(fmt.Sprintf("%-48s %-8s %-10s %-14s %-6s %s\n",
			truncate(e.Path, 48),
			string(e.Kind),
			humanize.Bytes(e.SizeBytes),
			formatRelativeTime(e.LastUsed),
			stale,
			formatAction(e.Disposition)))
	}
	return sb.String()
}

// RenderSummary renders the aggregate line block under the entry table.
func RenderSummary(s inspect.Summary) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total: %s across %d caches", humanize.Bytes(s.TotalSize), s.TotalCount))
	if s.StaleCount > 0 {
		sb.WriteString(fmt.Sprintf(" (%d stale)", s.StaleCount))
	}
	sb.WriteString("\n")

	if len(s.SizeByKind) > 0 {
		type kindSize struct {
			kind cache.Kind
			size uint64
		}
		kinds := make([]kindSize, 0, len(s.SizeByKind))
		for k, size := range s.SizeByKind {
			kinds = append(kinds, kindSize{k, size})
		}
		sort.Slice(kinds, func(i, j int) bool { return kinds[i].size > kinds[j].size })
		parts := make([]string, 0, len(kinds))
		for _, ks := range kinds {
			parts = append(parts, fmt.Sprintf("%s %s", ks.kind, humanize.Bytes(ks.size)))
		}
		sb.WriteString("By kind: " + strings.Join(parts, ", ") + "\n")
	}
	return sb.String()
}

// RenderDryRun renders the would-do plan.
func RenderDryRun(plan executor.DryRunResult) string {
	var sb strings.Builder
	sb.WriteString("Dry run — nothing was changed.\n\n")

	renderBucket := func(label string, entries []cache.Entry) {
		if len(entries) == 0 {
			return
		}
		var total uint64
		for _, e := range entries {
			total += e.SizeBytes
		}
		sb.WriteString(fmt.Sprintf("%s (%d, %s):\n", label, len(entries), humanize.Bytes(total)))
		for _, e := range entries {
			sb.WriteString(fmt.Sprintf("  %s\n", e.Path))
		}
	}
	renderBucket("Would delete", plan.ToDelete)
	renderBucket("Would back up", plan.ToBackup)
	renderBucket("Would skip", plan.ToSkip)

	sb.WriteString(fmt.Sprintf("\nTotal considered: %s across %d entries\n",
		humanize.Bytes(plan.TotalSize), plan.TotalCount))
	return sb.String()
}

// RenderSafeDelete renders one safe-delete outcome.
func RenderSafeDelete(r *executor.SafeDeleteResult) string {
	var sb strings.Builder
	if len(r.BackedUp) > 0 {
		sb.WriteString(okColor.Sprintf("Backed up %d caches (%s)", len(r.BackedUp), humanize.Bytes(r.TotalSize)))
		sb.WriteString(fmt.Sprintf(" to %s\n", r.BackupDir))
		for _, b := range r.BackedUp {
			sb.WriteString(fmt.Sprintf("  %s → %s\n", b.OriginalPath, b.BackupPath))
		}
	} else {
		sb.WriteString("Nothing to back up.\n")
	}
	sb.WriteString(renderFailures(r.Failed))
	sb.WriteString("\nRestore with: cachekill restore\n")
	return sb.String()
}

// RenderHardDelete renders one hard-delete outcome.
func RenderHardDelete(r *executor.HardDeleteResult) string {
	var sb strings.Builder
	if len(r.Deleted) > 0 {
		sb.WriteString(okColor.Sprintf("Deleted %d caches (%s freed)", len(r.Deleted), humanize.Bytes(r.TotalSize)))
		sb.WriteString("\n")
		for _, path := range r.Deleted {
			sb.WriteString(fmt.Sprintf("  %s\n", path))
		}
	} else {
		sb.WriteString("Nothing to delete.\n")
	}
	sb.WriteString(renderFailures(r.Failed))
	return sb.String()
}

// RenderRestore renders one restore outcome.
func RenderRestore(r *executor.RestoreResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Restoring from %s\n", r.BackupDir))
	if len(r.Restored) > 0 {
		sb.WriteString(okColor.Sprintf("Restored %d items", len(r.Restored)))
		sb.WriteString("\n")
		for _, path := range r.Restored {
			sb.WriteString(fmt.Sprintf("  %s\n", path))
		}
	} else {
		sb.WriteString("Nothing restored.\n")
	}
	sb.WriteString(renderFailures(r.Failed))
	return sb.String()
}

// RenderCleanup renders one backup-retention pass.
func RenderCleanup(r *executor.CleanupResult) string {
	if len(r.Removed) == 0 {
		return "No old backups to remove.\n"
	}
	var sb strings.Builder
	sb.WriteString(okColor.Sprintf("Removed %d old backups (%s freed)", len(r.Removed), humanize.Bytes(r.FreedBytes)))
	sb.WriteString("\n")
	for _, path := range r.Removed {
		sb.WriteString(fmt.Sprintf("  %s\n", path))
	}
	return sb.String()
}

func renderFailures(failed []executor.FailureRecord) string {
	if len(failed) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(warnColor.Sprintf("%d failures:", len(failed)))
	sb.WriteString("\n")
	for _, f := range failed {
		sb.WriteString(fmt.Sprintf("  %s: %s\n", f.Path, f.Cause))
	}
	return sb.String()
}

func formatAction(d cache.Disposition) string {
	switch d {
	case cache.Delete:
		return actionDelete.Sprint("delete")
	case cache.Backup:
		return actionBackup.Sprint("backup")
	default:
		return actionSkip.Sprint("skip")
	}
}

// formatRelativeTime renders a timestamp as a compact age ("3d ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

// truncate shortens s to max runes with an ellipsis, keeping the tail of
// paths which carries the discriminating segment.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return "…" + string(runes[len(runes)-(max-1):])
}
