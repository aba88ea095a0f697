// Package darwin adapts NSWorkspace application notifications to the
// focus tracker. The cgo implementation is only built on macOS; other
// platforms get stubs returning ErrUnsupported.
package darwin

import (
	"github.com/pkg/errors"

	"focusmru/pkg/focus"
)

// ErrUnsupported is returned when NSWorkspace is not available
var ErrUnsupported = errors.New("darwin: NSWorkspace is not available on this platform")

// NSApplicationActivationPolicy values.
const (
	policyRegular    = 0
	policyAccessory  = 1
	policyProhibited = 2
)

func policyCategory(policy int) focus.Category {
	switch policy {
	case policyRegular:
		return focus.Regular
	case policyAccessory:
		return focus.Accessory
	default:
		return focus.Background
	}
}

type runningApp struct {
	pid      int32
	policy   int
	bundleID string
	name     string
}

func buildSnapshot(apps []runningApp, frontmost int32) *focus.Snapshot {
	snap := &focus.Snapshot{Apps: make([]focus.RunningApp, 0, len(apps))}
	for _, app := range apps {
		snap.Apps = append(snap.Apps, focus.RunningApp{
			PID:         app.pid,
			Category:    policyCategory(app.policy),
			BundleID:    app.bundleID,
			Name:        app.name,
			HasMetadata: true,
		})
	}
	if frontmost > 0 {
		snap.FrontmostPID = frontmost
		snap.HasFrontmost = true
	}
	return snap
}
