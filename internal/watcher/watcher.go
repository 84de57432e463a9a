package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/kagehq/cache-kill/internal/clock"
	"github.com/kagehq/cache-kill/internal/config"
	"github.com/kagehq/cache-kill/internal/discover"
	"github.com/kagehq/cache-kill/internal/inspect"
)

// DefaultInterval is how often the watcher re-measures cache sizes when
// no filesystem events arrive.
const DefaultInterval = 30 * time.Second

// Watcher observes a project's cache directories: fsnotify events feed a
// debounced re-inspection, and a ticker re-measures periodically so
// growth inside already-watched trees is not missed (fsnotify is not
// recursive).
type Watcher struct {
	cfg      *config.Config
	log      *zap.Logger
	clock    clock.Clock
	interval time.Duration

	// OnSummary, when set, receives every recomputed summary. Used by
	// the watch command to render and by tests to observe ticks.
	OnSummary func(inspect.Summary)

	fsw    *fsnotify.Watcher
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu   sync.Mutex
	last inspect.Summary
}

// New creates a Watcher. A nil logger falls back to zap's no-op logger,
// a nil clk to the system clock.
func New(cfg *config.Config, log *zap.Logger, clk clock.Clock) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Watcher{
		cfg:      cfg,
		log:      log,
		clock:    clk,
		interval: DefaultInterval,
		stopCh:   make(chan struct{}),
	}
}

// SetInterval overrides the re-measure interval. Must be called before
// Start.
func (w *Watcher) SetInterval(d time.Duration) { w.interval = d }

// Start begins watching. The project root and every currently existing
// cache directory get an fsnotify watch; an initial measurement runs
// immediately.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	w.fsw = fsw

	watched := w.watchTargets()
	for _, path := range watched {
		if err := fsw.Add(path); err != nil {
			w.log.Warn("watch add failed", zap.String("path", path), zap.Error(err))
		}
	}
	w.log.Info("watch started",
		zap.String("root", w.cfg.WorkDir),
		zap.Int("watched", len(watched)),
		zap.Duration("interval", w.interval))

	w.measure("startup")

	w.wg.Add(1)
	go w.run()
	return nil
}

// watchTargets is the project root plus every discovered cache dir's
// parent, so creation of new cache dirs is observed too.
func (w *Watcher) watchTargets() []string {
	targets := map[string]struct{}{w.cfg.WorkDir: {}}

	result := discover.Discover(w.cfg)
	for _, path := range discover.Dedupe(result.Paths) {
		targets[path] = struct{}{}
		targets[filepath.Dir(path)] = struct{}{}
	}

	out := make([]string, 0, len(targets))
	for path := range targets {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			out = append(out, path)
		}
	}
	return out
}

func (w *Watcher) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Debounce bursts: a compile touching thousands of files must not
	// trigger thousands of re-measurements.
	var pending bool
	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.log.Debug("fs event", zap.String("op", event.Op.String()), zap.String("path", event.Name))
			if !pending {
				pending = true
				debounce.Reset(2 * time.Second)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		case <-debounce.C:
			pending = false
			w.measure("fs-event")
		case <-ticker.C:
			w.measure("interval")
		case <-w.stopCh:
			return
		}
	}
}

// measure re-runs discovery and inspection and logs the delta against
// the previous summary.
func (w *Watcher) measure(trigger string) {
	result := discover.Discover(w.cfg)
	paths := discover.Dedupe(result.Paths)

	entries, err := inspect.New(w.cfg, w.clock).Inspect(paths)
	if err != nil {
		w.log.Warn("inspection failed", zap.String("trigger", trigger), zap.Error(err))
		return
	}
	summary := inspect.Summarize(entries)

	w.mu.Lock()
	previous := w.last
	w.last = summary
	w.mu.Unlock()

	grew := summary.TotalSize > previous.TotalSize
	w.log.Info("cache measured",
		zap.String("trigger", trigger),
		zap.Int("caches", summary.TotalCount),
		zap.Uint64("total_bytes", summary.TotalSize),
		zap.Int("stale", summary.StaleCount),
		zap.Bool("grew", grew))

	if w.OnSummary != nil {
		w.OnSummary(summary)
	}
}

// Last returns the most recent summary.
func (w *Watcher) Last() inspect.Summary {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Stop halts the watcher and releases the fsnotify handle.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	w.wg.Wait()
	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}
