//go:build !darwin || !cgo

package darwin

import (
	"context"
	"log/slog"

	"focusmru/pkg/focus"
)

// Source is unavailable outside macOS.
type Source struct{}

// NewSource returns a Source whose Subscribe always fails.
func NewSource(*slog.Logger) *Source {
	return &Source{}
}

// IsAvailable reports whether NSWorkspace can be used.
func IsAvailable() bool {
	return false
}

// Subscribe implements focus.EventSource.
func (*Source) Subscribe(focus.Sink) error {
	return ErrUnsupported
}

// Close implements focus.EventSource.
func (*Source) Close() error {
	return nil
}

// Unsubscribe implements focus.Unsubscriber.
func (*Source) Unsubscribe() error {
	return nil
}

// Workspace is unavailable outside macOS.
type Workspace struct{}

// NewWorkspace returns a Workspace whose Snapshot always fails.
func NewWorkspace() Workspace {
	return Workspace{}
}

// Snapshot implements focus.Workspace.
func (Workspace) Snapshot() (*focus.Snapshot, error) {
	return nil, ErrUnsupported
}

// RunMainLoop waits for ctx; there is no native run loop to drive.
func RunMainLoop(ctx context.Context) error {
	<-ctx.Done()
	return nil
}
