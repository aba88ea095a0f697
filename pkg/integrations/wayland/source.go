package wayland

import (
	"context"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/pkg/errors"

	"focusmru/pkg/focus"
)

// Source reports activations from sway's window and workspace focus events. Like X11,
// sway reports window closes rather than process exits, so terminations
// come from the procfs watcher.
type Source struct {
	logger *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	lastPID int32
	closed  bool
}

var (
	_ focus.EventSource  = (*Source)(nil)
	_ focus.Unsubscriber = (*Source)(nil)
)

// NewSource creates a sway Source.
func NewSource(logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{logger: logger}
}

// Subscribe implements focus.EventSource.
func (s *Source) Subscribe(sink focus.Sink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return focus.ErrClosed
	}
	if s.cancel != nil {
		return errors.New("sway source already subscribed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, "swaymsg", "-r", "-m", "-t", "subscribe", `["window","workspace"]`)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return errors.Wrap(err, "failed to open swaymsg output")
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return errors.Wrap(err, "failed to start swaymsg")
	}

	s.cancel = cancel
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)

		err := decodeEvents(stdout,
			func(n swayNode) { s.emit(n, sink) },
			s.blur)
		if err != nil && ctx.Err() == nil {
			s.logger.Warn("sway event stream ended", "error", err)
		}
		_ = cmd.Wait()
	}(s.done)

	return nil
}

// Close implements focus.EventSource.
func (s *Source) Close() error {
	s.stop(true)
	return nil
}

// Unsubscribe implements focus.Unsubscriber.
func (s *Source) Unsubscribe() error {
	s.stop(false)
	return nil
}

func (s *Source) stop(final bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = final
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	s.lastPID = 0
}

// emit delivers an activation when focus moves to another process.
func (s *Source) emit(n swayNode, sink focus.Sink) {
	if n.PID == s.lastPID {
		return
	}
	s.lastPID = n.PID

	s.logger.Debug("focused window changed", "con_id", n.ID, "pid", n.PID, "app_id", n.appID())
	sink.Activated(focus.ActivationSignal{PID: n.PID})
}

// blur forgets the focused process once focus moves to an empty workspace,
// so returning to the same application activates it again.
func (s *Source) blur() {
	s.lastPID = 0
}

// Workspace enumerates applications from sway's container tree.
type Workspace struct{}

var _ focus.Workspace = Workspace{}

// Snapshot implements focus.Workspace.
func (Workspace) Snapshot() (*focus.Snapshot, error) {
	output, err := exec.Command("swaymsg", "-r", "-t", "get_tree").Output()
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute swaymsg")
	}
	return parseTree(output)
}
