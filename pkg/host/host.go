// Package host picks the event source, metadata resolver and workspace
// adapters for the running desktop session.
package host

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/pkg/errors"

	"focusmru/pkg/focus"
	"focusmru/pkg/integrations/darwin"
	"focusmru/pkg/integrations/process"
	"focusmru/pkg/integrations/wayland"
	"focusmru/pkg/integrations/x11"
)

// Display server names accepted by Options.DisplayServer.
const (
	DisplayAuto    = "auto"
	DisplayX11     = "x11"
	DisplayWayland = "wayland"
	DisplayDarwin  = "darwin"
	DisplayProc    = "proc"
	DisplayUnknown = "unknown"
)

// ErrUnsupported is returned when no adapter can serve the session
var ErrUnsupported = errors.New("host: no supported display server")

// Options configures New.
type Options struct {
	// DisplayServer forces an adapter; empty or "auto" detects it
	DisplayServer string

	// ProcRoot overrides the procfs mount point
	ProcRoot string

	// PollInterval is the termination watcher period
	PollInterval time.Duration

	// EventBuffer is the depth of the serial delivery queue
	EventBuffer int

	// ResolverCacheSize bounds the pid metadata cache
	ResolverCacheSize int

	Logger *slog.Logger
}

// Host bundles the collaborators a focus.Tracker needs.
type Host struct {
	DisplayServer string
	Source        focus.EventSource
	Resolver      focus.MetadataResolver
	Workspace     focus.Workspace

	// Alive reports whether a pid still exists
	Alive func(pid int32) bool
}

// DetectDisplayServer guesses the display server of the current session.
func DetectDisplayServer() string {
	if runtime.GOOS == "darwin" {
		return DisplayDarwin
	}

	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return DisplayWayland
	}

	if sessionType == "x11" || x11Display != "" {
		return DisplayX11
	}

	return DisplayUnknown
}

// New builds the adapters for opts.DisplayServer.
func New(opts Options) (*Host, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	server := opts.DisplayServer
	if server == "" || server == DisplayAuto {
		server = resolveAuto(opts.Logger)
	}

	switch server {
	case DisplayDarwin:
		return newDarwin(opts)
	case DisplayX11, DisplayWayland, DisplayProc:
		return newLinux(server, opts)
	default:
		return nil, errors.Wrapf(ErrUnsupported, "display server %q", server)
	}
}

func resolveAuto(logger *slog.Logger) string {
	switch detected := DetectDisplayServer(); detected {
	case DisplayDarwin:
		return DisplayDarwin
	case DisplayWayland:
		if wayland.IsAvailable() {
			return DisplayWayland
		}
		logger.Warn("wayland session without sway IPC, falling back to process scanning")
		return DisplayProc
	case DisplayX11:
		if x11.IsAvailable() {
			return DisplayX11
		}
		return DisplayProc
	default:
		return DisplayProc
	}
}

func newLinux(server string, opts Options) (*Host, error) {
	watcher := process.NewWatcher(opts.ProcRoot, opts.PollInterval, opts.Logger)
	if !watcher.IsAvailable() {
		return nil, errors.Wrap(ErrUnsupported, "procfs is not mounted")
	}

	resolver, err := process.NewResolver(opts.ProcRoot, opts.ResolverCacheSize)
	if err != nil {
		return nil, err
	}

	h := &Host{
		DisplayServer: server,
		Resolver:      resolver,
		Alive:         watcher.Alive,
	}

	switch server {
	case DisplayX11:
		h.Source = NewQueue(opts.EventBuffer, watcher.Track, x11.NewSource("", opts.Logger), watcher)
		h.Workspace = x11.NewWorkspace("")
	case DisplayWayland:
		h.Source = NewQueue(opts.EventBuffer, watcher.Track, wayland.NewSource(opts.Logger), watcher)
		h.Workspace = wayland.Workspace{}
	default:
		h.Source = NewQueue(opts.EventBuffer, nil, watcher)
		h.Workspace = watcher
	}

	return h, nil
}

func newDarwin(opts Options) (*Host, error) {
	if !darwin.IsAvailable() {
		return nil, errors.Wrap(ErrUnsupported, "NSWorkspace")
	}

	ws := darwin.NewWorkspace()
	return &Host{
		DisplayServer: DisplayDarwin,
		Source:        NewQueue(opts.EventBuffer, nil, darwin.NewSource(opts.Logger)),
		Resolver:      focus.ResolverFunc(workspaceResolver(ws)),
		Workspace:     ws,
		Alive:         signalAlive,
	}, nil
}

// workspaceResolver looks a pid up in a fresh workspace snapshot.
func workspaceResolver(ws focus.Workspace) func(pid int32) (string, string, error) {
	return func(pid int32) (string, string, error) {
		snap, err := ws.Snapshot()
		if err != nil {
			return "", "", errors.Wrapf(focus.ErrUnresolved, "pid %d: %v", pid, err)
		}
		for _, app := range snap.Apps {
			if app.PID == pid {
				return app.BundleID, app.Name, nil
			}
		}
		return "", "", errors.Wrapf(focus.ErrUnresolved, "pid %d is not running", pid)
	}
}

// RunLoop drives the host's native event loop until ctx is done. On macOS
// it must be called from the main goroutine.
func (h *Host) RunLoop(ctx context.Context) error {
	if h.DisplayServer == DisplayDarwin {
		return darwin.RunMainLoop(ctx)
	}
	<-ctx.Done()
	return nil
}
