package wayland

import (
	"encoding/json"
	"io"
	"os"
	"os/exec"

	"github.com/pkg/errors"

	"focusmru/pkg/focus"
)

// swayNode is the subset of a sway (or i3) container tree node we read.
type swayNode struct {
	ID               int64            `json:"id"`
	Type             string           `json:"type"`
	PID              int32            `json:"pid"`
	AppID            string           `json:"app_id"`
	Focused          bool             `json:"focused"`
	WindowProperties *swayWindowProps `json:"window_properties"`
	Nodes            []swayNode       `json:"nodes"`
	FloatingNodes    []swayNode       `json:"floating_nodes"`
}

type swayWindowProps struct {
	Class    string `json:"class"`
	Instance string `json:"instance"`
}

// appID returns the Wayland app_id, or the X11 class for XWayland windows.
func (n *swayNode) appID() string {
	if n.AppID != "" {
		return n.AppID
	}
	if n.WindowProperties != nil {
		return n.WindowProperties.Class
	}
	return ""
}

func (n *swayNode) isWindow() bool {
	return n.PID > 0 && (n.Type == "con" || n.Type == "floating_con")
}

// hasWindow reports whether n or any node below it is a window.
func (n *swayNode) hasWindow() bool {
	if n.isWindow() {
		return true
	}
	for i := range n.Nodes {
		if n.Nodes[i].hasWindow() {
			return true
		}
	}
	for i := range n.FloatingNodes {
		if n.FloatingNodes[i].hasWindow() {
			return true
		}
	}
	return false
}

// swayEvent is a window event (container set) or a workspace event
// (current set).
type swayEvent struct {
	Change    string    `json:"change"`
	Container *swayNode `json:"container"`
	Current   *swayNode `json:"current"`
}

// commandExists checks if a command is available in PATH
func commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// IsAvailable reports whether a sway IPC socket and swaymsg are present.
func IsAvailable() bool {
	return os.Getenv("SWAYSOCK") != "" && commandExists("swaymsg")
}

// decodeEvents reads the stream printed by
// `swaymsg -m -t subscribe '["window","workspace"]'`. It calls focused for
// every window focus change and blurred when focus moves to a workspace
// without windows. It returns when r is exhausted.
func decodeEvents(r io.Reader, focused func(swayNode), blurred func()) error {
	dec := json.NewDecoder(r)
	for {
		var ev swayEvent
		if err := dec.Decode(&ev); err != nil {
			if err == io.EOF {
				return nil
			}
			return errors.Wrap(err, "failed to decode sway event")
		}
		if ev.Change != "focus" {
			continue
		}
		switch {
		case ev.Container != nil:
			if ev.Container.isWindow() {
				focused(*ev.Container)
			}
		case ev.Current != nil:
			if !ev.Current.hasWindow() {
				blurred()
			}
		}
	}
}

// parseTree converts the output of `swaymsg -t get_tree` into a snapshot.
// Every process owning a window is a regular application; the process of
// the focused window is frontmost.
func parseTree(data []byte) (*focus.Snapshot, error) {
	var root swayNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, errors.Wrap(err, "failed to parse sway tree")
	}

	snap := &focus.Snapshot{}
	seen := make(map[int32]bool)

	var walk func(n *swayNode)
	walk = func(n *swayNode) {
		if n.isWindow() {
			if !seen[n.PID] {
				seen[n.PID] = true
				snap.Apps = append(snap.Apps, focus.RunningApp{PID: n.PID, Category: focus.Regular})
			}
			if n.Focused {
				snap.FrontmostPID = n.PID
				snap.HasFrontmost = true
			}
		}
		for i := range n.Nodes {
			walk(&n.Nodes[i])
		}
		for i := range n.FloatingNodes {
			walk(&n.FloatingNodes[i])
		}
	}
	walk(&root)

	return snap, nil
}
