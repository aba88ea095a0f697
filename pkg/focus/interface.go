package focus

import "github.com/pkg/errors"

var (
	// ErrNilCallback is returned by Register when a callback is missing
	ErrNilCallback = errors.New("focus: nil callback")

	// ErrSubscribe wraps failures to establish the host subscription
	ErrSubscribe = errors.New("focus: subscription failed")

	// ErrUnresolved is returned by resolvers that have no metadata for a pid
	ErrUnresolved = errors.New("focus: metadata unresolved")

	// ErrClosed is returned by sources that have already been closed
	ErrClosed = errors.New("focus: source closed")
)

// Sink receives raw events from an EventSource.
type Sink interface {
	// Activated is called when a process becomes the foreground application
	Activated(ActivationSignal)

	// Terminated is called when a process exits
	Terminated(TerminationRecord)
}

// EventSource is the adapter over the host shell's notification mechanism.
type EventSource interface {
	// Subscribe starts delivering events to sink. It is called at most once
	// per registration lifetime.
	Subscribe(sink Sink) error

	// Close stops delivery and releases host resources
	Close() error
}

// Unsubscriber is implemented by sources that can stop delivering without
// being closed for good. A later Subscribe starts delivery again.
type Unsubscriber interface {
	Unsubscribe() error
}

// MetadataResolver supplies descriptive metadata for a process id. It must
// not change process state and must be safe to call from any goroutine.
type MetadataResolver interface {
	// Resolve returns the bundle identifier and display name for pid, or
	// an error wrapping ErrUnresolved
	Resolve(pid int32) (bundleID, name string, err error)
}

// Forgetter is implemented by resolvers that cache per-pid metadata.
type Forgetter interface {
	Forget(pid int32)
}

// Workspace enumerates running applications.
type Workspace interface {
	// Snapshot returns the running applications and the frontmost pid
	Snapshot() (*Snapshot, error)
}

// ResolverFunc adapts a function to MetadataResolver.
type ResolverFunc func(pid int32) (string, string, error)

// Resolve calls f(pid).
func (f ResolverFunc) Resolve(pid int32) (string, string, error) {
	return f(pid)
}
