package x11

import (
	"log/slog"
	"os"
	"sync"

	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"

	"focusmru/pkg/focus"
)

// Source reports activations by watching _NET_ACTIVE_WINDOW on the root
// window. X11 has no notion of process exit; terminations come from the
// procfs watcher.
type Source struct {
	display string
	logger  *slog.Logger

	mu      sync.Mutex
	client  *client
	done    chan struct{}
	lastPID int32
	closed  bool
}

var (
	_ focus.EventSource  = (*Source)(nil)
	_ focus.Unsubscriber = (*Source)(nil)
)

// NewSource creates a Source for display ("" means $DISPLAY).
func NewSource(display string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{display: display, logger: logger}
}

// IsAvailable checks whether an X display is configured
func IsAvailable() bool {
	return os.Getenv("DISPLAY") != ""
}

// Subscribe implements focus.EventSource.
func (s *Source) Subscribe(sink focus.Sink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return focus.ErrClosed
	}
	if s.client != nil {
		return errors.New("x11 source already subscribed")
	}

	c, err := newClient(s.display)
	if err != nil {
		return err
	}

	err = xproto.ChangeWindowAttributesChecked(c.conn, c.root,
		xproto.CwEventMask, []uint32{xproto.EventMaskPropertyChange}).Check()
	if err != nil {
		c.close()
		return errors.Wrap(err, "failed to select root window events")
	}

	s.client = c
	s.done = make(chan struct{})
	go s.run(c, sink, s.done)
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
	c, done := s.client, s.done
	s.client, s.done = nil, nil
	s.mu.Unlock()

	if c != nil {
		c.close()
		<-done
	}
	s.lastPID = 0
}

func (s *Source) run(c *client, sink focus.Sink, done chan struct{}) {
	defer close(done)

	// The window that is already active counts as the first activation.
	s.emit(c, sink)

	for {
		ev, xerr := c.conn.WaitForEvent()
		if ev == nil && xerr == nil {
			return
		}
		if xerr != nil {
			s.logger.Debug("x11 error", "error", xerr)
			continue
		}

		notify, ok := ev.(xproto.PropertyNotifyEvent)
		if !ok || notify.Window != c.root || notify.Atom != c.atoms["_NET_ACTIVE_WINDOW"] {
			continue
		}
		s.emit(c, sink)
	}
}

// emit delivers an activation when the active window belongs to a different
// process than the previous one. Switching windows inside one application
// is not an application activation.
func (s *Source) emit(c *client, sink focus.Sink) {
	window := c.activeWindow()
	var pid int32
	if window != 0 {
		pid = c.windowPID(window)
		if pid <= 0 {
			s.logger.Debug("active window has no _NET_WM_PID", "window", window)
		}
	}

	var changed bool
	changed, s.lastPID = focusChange(window, pid, s.lastPID)
	if !changed {
		return
	}

	instance, class := c.windowClass(window)
	s.logger.Debug("active window changed", "window", window, "pid", pid, "instance", instance, "class", class)

	sink.Activated(focus.ActivationSignal{PID: pid})
}

// focusChange reports whether the active window, owned by pid, is an
// activation of another process than lastPID, and the pid to remember.
// No active window, or one without a pid, forgets lastPID so that
// refocusing the same application activates it again.
func focusChange(window xproto.Window, pid, lastPID int32) (bool, int32) {
	if window == 0 || pid <= 0 {
		return false, 0
	}
	if pid == lastPID {
		return false, lastPID
	}
	return true, pid
}
