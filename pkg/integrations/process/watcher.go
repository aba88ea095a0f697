package process

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"focusmru/pkg/focus"
)

// DefaultPollInterval is how often the watcher rescans procfs
const DefaultPollInterval = time.Second

// Watcher reports terminations of application processes by rescanning
// procfs. It also serves as the Workspace of last resort: it can enumerate
// applications but never knows which one is frontmost.
type Watcher struct {
	procRoot string
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	tracked map[int32]struct{}
	sink    focus.Sink
	cancel  context.CancelFunc
	done    chan struct{}
	closed  bool
}

var (
	_ focus.EventSource  = (*Watcher)(nil)
	_ focus.Unsubscriber = (*Watcher)(nil)
	_ focus.Workspace    = (*Watcher)(nil)
)

// NewWatcher creates a Watcher polling procRoot every interval.
func NewWatcher(procRoot string, interval time.Duration, logger *slog.Logger) *Watcher {
	if procRoot == "" {
		procRoot = DefaultProcRoot
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		procRoot: procRoot,
		interval: interval,
		logger:   logger,
		tracked:  make(map[int32]struct{}),
	}
}

// IsAvailable checks that procfs is mounted.
func (w *Watcher) IsAvailable() bool {
	_, err := listPIDs(w.procRoot)
	return err == nil
}

// Track adds pid to the watched set regardless of its category. Hosts call
// it for every activated pid so that its exit is reported.
func (w *Watcher) Track(pid int32) {
	if pid <= 0 {
		return
	}
	w.mu.Lock()
	w.tracked[pid] = struct{}{}
	w.mu.Unlock()
}

// Subscribe implements focus.EventSource.
func (w *Watcher) Subscribe(sink focus.Sink) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return focus.ErrClosed
	}
	if w.sink != nil {
		return errors.New("process watcher already subscribed")
	}

	if err := w.seedLocked(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.sink = sink
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.run(ctx, w.done)
	return nil
}

// Close implements focus.EventSource.
func (w *Watcher) Close() error {
	w.stop(true)
	return nil
}

// Unsubscribe implements focus.Unsubscriber.
func (w *Watcher) Unsubscribe() error {
	w.stop(false)
	return nil
}

func (w *Watcher) stop(final bool) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = final
	cancel, done := w.cancel, w.done
	w.sink, w.cancel, w.done = nil, nil, nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (w *Watcher) seedLocked() error {
	apps, err := w.scan()
	if err != nil {
		return err
	}
	for _, app := range apps {
		w.tracked[app.PID] = struct{}{}
	}
	return nil
}

func (w *Watcher) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

// poll emits a termination for every tracked pid that vanished and starts
// tracking newly launched applications.
func (w *Watcher) poll() {
	apps, err := w.scan()
	if err != nil {
		w.logger.Warn("process scan failed", "error", err)
		return
	}

	w.mu.Lock()
	if w.sink == nil {
		w.mu.Unlock()
		return
	}
	var gone []int32
	for pid := range w.tracked {
		if !alive(w.procRoot, pid) {
			gone = append(gone, pid)
			delete(w.tracked, pid)
		}
	}
	for _, app := range apps {
		w.tracked[app.PID] = struct{}{}
	}
	sink := w.sink
	w.mu.Unlock()

	sort.Slice(gone, func(i, j int) bool { return gone[i] < gone[j] })
	for _, pid := range gone {
		sink.Terminated(focus.TerminationRecord{PID: pid})
	}
}

// scan returns the regular applications currently running.
func (w *Watcher) scan() ([]focus.RunningApp, error) {
	pids, err := listPIDs(w.procRoot)
	if err != nil {
		return nil, err
	}

	apps := make([]focus.RunningApp, 0)
	for _, pid := range pids {
		info, err := readProcessInfo(w.procRoot, pid)
		if err != nil {
			continue
		}
		if cat := category(info); cat == focus.Regular {
			m := describe(info)
			apps = append(apps, focus.RunningApp{
				PID:         pid,
				Category:    cat,
				BundleID:    m.bundleID,
				Name:        m.name,
				HasMetadata: true,
			})
		}
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].PID < apps[j].PID })
	return apps, nil
}

// Snapshot implements focus.Workspace. Apps are ordered by pid and no
// frontmost application is reported.
func (w *Watcher) Snapshot() (*focus.Snapshot, error) {
	apps, err := w.scan()
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan processes")
	}
	return &focus.Snapshot{Apps: apps}, nil
}

// Alive reports whether pid still exists.
func (w *Watcher) Alive(pid int32) bool {
	return alive(w.procRoot, pid)
}
