package x11

import (
	"github.com/jezek/xgb/xproto"

	"focusmru/pkg/focus"
)

// Workspace enumerates applications owning managed windows.
type Workspace struct {
	display string
}

var _ focus.Workspace = (*Workspace)(nil)

// NewWorkspace creates a Workspace for display ("" means $DISPLAY).
func NewWorkspace(display string) *Workspace {
	return &Workspace{display: display}
}

// Snapshot implements focus.Workspace. A process owning at least one normal
// window is a regular application; one owning only dialogs, docks or
// utility windows is an accessory.
func (w *Workspace) Snapshot() (*focus.Snapshot, error) {
	c, err := newClient(w.display)
	if err != nil {
		return nil, err
	}
	defer c.close()

	windows, err := c.clients()
	if err != nil {
		return nil, err
	}

	infos := make([]windowInfo, 0, len(windows))
	for _, win := range windows {
		infos = append(infos, windowInfo{
			id:     win,
			pid:    c.windowPID(win),
			normal: c.isNormal(win),
		})
	}

	var activePID int32
	if active := c.activeWindow(); active != 0 {
		activePID = c.windowPID(active)
	}

	return buildSnapshot(infos, activePID), nil
}

type windowInfo struct {
	id     xproto.Window
	pid    int32
	normal bool
}

// buildSnapshot folds windows into one entry per process, keeping the
// position of each process's first window.
func buildSnapshot(windows []windowInfo, activePID int32) *focus.Snapshot {
	snap := &focus.Snapshot{}
	index := make(map[int32]int)

	for _, w := range windows {
		if w.pid <= 0 {
			continue
		}
		if i, ok := index[w.pid]; ok {
			if w.normal {
				snap.Apps[i].Category = focus.Regular
			}
			continue
		}

		cat := focus.Accessory
		if w.normal {
			cat = focus.Regular
		}
		index[w.pid] = len(snap.Apps)
		snap.Apps = append(snap.Apps, focus.RunningApp{PID: w.pid, Category: cat})
	}

	if activePID > 0 {
		snap.FrontmostPID = activePID
		snap.HasFrontmost = true
	}
	return snap
}
