// Package executor performs the physical effect of planned dispositions:
// move-to-timestamped-backup, permanent removal, restore-from-backup, and
// backup retention. Failures are isolated per entry; a batch call only
// fails hard when there is no meaningful partial result (the backup root
// cannot be created or enumerated).
package executor

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/kagehq/cache-kill/internal/cache"
	"github.com/kagehq/cache-kill/internal/clock"
	"github.com/kagehq/cache-kill/internal/fsops"
)

// ErrNoBackupFound is returned when a restore is requested but the backup
// root is absent or empty. The user explicitly asked to restore, so this
// is a hard error, never a silent no-op.
var ErrNoBackupFound = errors.New("no backup found")

// manifestName is the audit sidecar written into each backup directory.
// Restore deliberately ignores it (see RestoreFrom).
const manifestName = "manifest.json"

// backupStampLayout names one backup directory per invocation at second
// resolution.
const backupStampLayout = "2006-01-02_15-04-05"

// Executor runs disposition buckets against the filesystem. The backup
// root and the restore anchor are injected explicitly so repeated
// invocations and tests can control both.
type Executor struct {
	backupRoot string
	workDir    string
	clock      clock.Clock
}

// New creates an Executor. A nil clk falls back to the system clock.
func New(backupRoot, workDir string, clk clock.Clock) *Executor {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Executor{backupRoot: backupRoot, workDir: workDir, clock: clk}
}

// FailureRecord captures one entry that could not be moved, removed, or
// restored, with a human-readable cause.
type FailureRecord struct {
	Path  string `json:"path"`
	Cause string `json:"cause"`
}

// BackupRecord maps a backed-up path to its location inside the backup
// directory.
type BackupRecord struct {
	OriginalPath string `json:"original_path"`
	BackupPath   string `json:"backup_path"`
	SizeBytes    uint64 `json:"size_bytes"`
}

// DryRunResult partitions entries by disposition. TotalSize covers every
// bucketed entry, so the bucket sums always reconcile against it.
type DryRunResult struct {
	ToDelete   []cache.Entry `json:"to_delete"`
	ToBackup   []cache.Entry `json:"to_backup"`
	ToSkip     []cache.Entry `json:"to_skip"`
	TotalSize  uint64        `json:"total_size"`
	TotalCount int           `json:"total_count"`
}

// SafeDeleteResult reports one safe-delete invocation.
type SafeDeleteResult struct {
	BackedUp  []BackupRecord  `json:"backed_up"`
	Failed    []FailureRecord `json:"failed"`
	TotalSize uint64          `json:"total_size"`
	BackupDir string          `json:"backup_dir"`
}

// HardDeleteResult reports one hard-delete invocation.
type HardDeleteResult struct {
	Deleted   []string        `json:"deleted"`
	Failed    []FailureRecord `json:"failed"`
	TotalSize uint64          `json:"total_size"`
}

// RestoreResult reports one restore invocation.
type RestoreResult struct {
	Restored  []string        `json:"restored"`
	Failed    []FailureRecord `json:"failed"`
	BackupDir string          `json:"backup_dir"`
}

// CleanupResult reports removed backup directories and freed bytes.
type CleanupResult struct {
	Removed    []string `json:"removed"`
	FreedBytes uint64   `json:"freed_bytes"`
}

// DryRun partitions entries by disposition without touching the
// filesystem. Entries that never reached planning land in the skip bucket.
func (ex *Executor) DryRun(entries []cache.Entry) DryRunResult {
	var result DryRunResult

	for _, entry := range entries {
		switch entry.Disposition {
		case cache.Delete:
			result.ToDelete = append(result.ToDelete, entry)
		case cache.Backup:
			result.ToBackup = append(result.ToBackup, entry)
		default:
			result.ToSkip = append(result.ToSkip, entry)
		}
		result.TotalSize += entry.SizeBytes
		result.TotalCount++
	}
	return result
}

// SafeDelete moves every Backup-dispositioned entry into a fresh
// timestamped directory under the backup root. One locked or vanished
// source must not block the rest of the batch.
func (ex *Executor) SafeDelete(entries []cache.Entry) (*SafeDeleteResult, error) {
	stamp := ex.clock.Now().Format(backupStampLayout)
	backupDir := filepath.Join(ex.backupRoot, stamp)

	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	result := &SafeDeleteResult{BackupDir: backupDir}

	for _, entry := range entries {
		if entry.Disposition != cache.Backup {
			continue
		}

		if !fsops.Exists(entry.Path) {
			// Nothing to move: for a backup this is a failure, the data
			// the user wanted preserved is gone.
			result.Failed = append(result.Failed, FailureRecord{
				Path:  entry.Path,
				Cause: "source path does not exist",
			})
			continue
		}

		dst := filepath.Join(backupDir, filepath.Base(entry.Path))
		if fsops.Exists(dst) {
			result.Failed = append(result.Failed, FailureRecord{
				Path:  entry.Path,
				Cause: fmt.Sprintf("backup name collision: %s already exists", filepath.Base(entry.Path)),
			})
			continue
		}

		if err := fsops.Move(entry.Path, dst); err != nil {
			result.Failed = append(result.Failed, FailureRecord{
				Path:  entry.Path,
				Cause: fmt.Sprintf("move failed: %v", err),
			})
			continue
		}

		result.BackedUp = append(result.BackedUp, BackupRecord{
			OriginalPath: entry.Path,
			BackupPath:   dst,
			SizeBytes:    entry.SizeBytes,
		})
		result.TotalSize += entry.SizeBytes
	}

	ex.writeManifest(backupDir, result.BackedUp)
	return result, nil
}

// backupManifest is the sidecar shape. Audit only: restore remains
// name-based for compatibility with backups written by older versions.
type backupManifest struct {
	CreatedAt time.Time      `json:"created_at"`
	Items     []BackupRecord `json:"items"`
}

// writeManifest records original paths next to the moved items. Best
// effort: a failed manifest write never fails the backup that already
// succeeded.
func (ex *Executor) writeManifest(backupDir string, items []BackupRecord) {
	if len(items) == 0 {
		return
	}
	m := backupManifest{CreatedAt: ex.clock.Now(), Items: items}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(filepath.Join(backupDir, manifestName), data, 0644)
}

// HardDelete permanently removes every Delete-dispositioned entry. An
// already-absent source counts as success, so repeated calls and external
// deletion races stay idempotent.
func (ex *Executor) HardDelete(entries []cache.Entry) *HardDeleteResult {
	result := &HardDeleteResult{}

	for _, entry := range entries {
		if entry.Disposition != cache.Delete {
			continue
		}

		if !fsops.Exists(entry.Path) {
			result.Deleted = append(result.Deleted, entry.Path)
			continue
		}

		if err := os.RemoveAll(entry.Path); err != nil {
			result.Failed = append(result.Failed, FailureRecord{
				Path:  entry.Path,
				Cause: fmt.Sprintf("remove failed: %v", err),
			})
			continue
		}

		result.Deleted = append(result.Deleted, entry.Path)
		result.TotalSize += entry.SizeBytes
	}
	return result
}

// RestoreLast restores the most recently modified backup directory under
// the backup root.
func (ex *Executor) RestoreLast() (*RestoreResult, error) {
	latest, err := ex.latestBackupDir()
	if err != nil {
		return nil, err
	}
	return ex.RestoreFrom(latest)
}

// latestBackupDir picks the newest backup directory by mtime, descending.
func (ex *Executor) latestBackupDir() (string, error) {
	entries, err := os.ReadDir(ex.backupRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoBackupFound
		}
		return "", fmt.Errorf("failed to read backup root: %w", err)
	}

	type candidate struct {
		path  string
		mtime time.Time
	}
	var dirs []candidate
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		dirs = append(dirs, candidate{
			path:  filepath.Join(ex.backupRoot, entry.Name()),
			mtime: info.ModTime(),
		})
	}
	if len(dirs) == 0 {
		return "", ErrNoBackupFound
	}

	sort.Slice(dirs, func(i, j int) bool { return dirs[i].mtime.After(dirs[j].mtime) })
	return dirs[0].path, nil
}

// RestoreFrom moves every top-level item in backupDir back to "the
// original location". The original location is reconstructed solely from
// the item's base name, re-anchored at the configured work dir. That is a
// lossy reconstruction: items backed up from outside the work dir come
// back under it instead. Kept as-is for compatibility with the flat
// backup layout; the manifest sidecar records the true origins.
func (ex *Executor) RestoreFrom(backupDir string) (*RestoreResult, error) {
	items, err := os.ReadDir(backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoBackupFound
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	result := &RestoreResult{BackupDir: backupDir}

	for _, item := range items {
		if item.Name() == manifestName {
			continue
		}

		src := filepath.Join(backupDir, item.Name())
		dst := filepath.Join(ex.workDir, item.Name())

		if fsops.Exists(dst) {
			result.Failed = append(result.Failed, FailureRecord{
				Path:  dst,
				Cause: "destination already exists",
			})
			continue
		}

		if err := fsops.Move(src, dst); err != nil {
			result.Failed = append(result.Failed, FailureRecord{
				Path:  dst,
				Cause: fmt.Sprintf("move failed: %v", err),
			})
			continue
		}
		result.Restored = append(result.Restored, dst)
	}

	return result, nil
}

// CleanOldBackups removes backup directories whose mtime is older than
// the day cutoff and reports freed bytes. A missing backup root means
// there is simply nothing to clean.
func (ex *Executor) CleanOldBackups(days int) (*CleanupResult, error) {
	result := &CleanupResult{}

	entries, err := os.ReadDir(ex.backupRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, fmt.Errorf("failed to read backup root: %w", err)
	}

	cutoff := ex.clock.Now().AddDate(0, 0, -days)

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(ex.backupRoot, entry.Name())
		size := treeSize(path)
		if err := os.RemoveAll(path); err != nil {
			continue
		}
		result.Removed = append(result.Removed, path)
		result.FreedBytes += size
	}
	return result, nil
}

// treeSize sums file sizes under root, tolerating unreadable children.
func treeSize(root string) uint64 {
	var total uint64
	_ = filepath.Walk(root, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			total += uint64(info.Size())
		}
		return nil
	})
	return total
}
