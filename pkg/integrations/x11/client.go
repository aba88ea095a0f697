package x11

import (
	"strings"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"
)

var atomNames = []string{
	"_NET_ACTIVE_WINDOW",
	"_NET_CLIENT_LIST",
	"_NET_CLIENT_LIST_STACKING",
	"_NET_WM_PID",
	"_NET_WM_WINDOW_TYPE",
	"_NET_WM_WINDOW_TYPE_NORMAL",
	"WM_CLASS",
}

// client is a connection to the X server with the EWMH atoms interned.
type client struct {
	conn  *xgb.Conn
	root  xproto.Window
	atoms map[string]xproto.Atom
}

func newClient(display string) (*client, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to X server")
	}

	c := &client{
		conn:  conn,
		root:  xproto.Setup(conn).DefaultScreen(conn).Root,
		atoms: make(map[string]xproto.Atom, len(atomNames)),
	}

	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, errors.Wrapf(err, "failed to intern atom %s", name)
		}
		c.atoms[name] = reply.Atom
	}

	return c, nil
}

func (c *client) close() {
	c.conn.Close()
}

func (c *client) getProperty(window xproto.Window, atom, atomType xproto.Atom, length uint32) ([]byte, error) {
	reply, err := xproto.GetProperty(c.conn, false, window, atom, atomType, 0, length).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

// activeWindow returns the window named by _NET_ACTIVE_WINDOW, or 0.
func (c *client) activeWindow() xproto.Window {
	data, err := c.getProperty(c.root, c.atoms["_NET_ACTIVE_WINDOW"], xproto.AtomWindow, 1)
	if err != nil {
		return 0
	}
	windows := decodeWindows(data)
	if len(windows) == 0 {
		return 0
	}
	return windows[0]
}

// clients lists managed windows, most recently stacked first when the
// window manager maintains _NET_CLIENT_LIST_STACKING.
func (c *client) clients() ([]xproto.Window, error) {
	data, err := c.getProperty(c.root, c.atoms["_NET_CLIENT_LIST_STACKING"], xproto.AtomWindow, 1<<16)
	if err == nil && len(data) > 0 {
		windows := decodeWindows(data)
		for i, j := 0, len(windows)-1; i < j; i, j = i+1, j-1 {
			windows[i], windows[j] = windows[j], windows[i]
		}
		return windows, nil
	}

	data, err = c.getProperty(c.root, c.atoms["_NET_CLIENT_LIST"], xproto.AtomWindow, 1<<16)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read _NET_CLIENT_LIST")
	}
	return decodeWindows(data), nil
}

func (c *client) windowPID(window xproto.Window) int32 {
	data, err := c.getProperty(window, c.atoms["_NET_WM_PID"], xproto.AtomCardinal, 1)
	if err != nil || len(data) < 4 {
		return 0
	}
	return int32(xgb.Get32(data))
}

// isNormal reports whether window is an ordinary top level window. Windows
// without _NET_WM_WINDOW_TYPE are treated as normal.
func (c *client) isNormal(window xproto.Window) bool {
	data, err := c.getProperty(window, c.atoms["_NET_WM_WINDOW_TYPE"], xproto.AtomAtom, 32)
	if err != nil {
		return true
	}
	return normalType(decodeAtoms(data), c.atoms["_NET_WM_WINDOW_TYPE_NORMAL"])
}

func (c *client) windowClass(window xproto.Window) (instance, class string) {
	data, err := c.getProperty(window, c.atoms["WM_CLASS"], xproto.AtomString, 256)
	if err != nil {
		return "", ""
	}
	return splitWMClass(data)
}

func decodeWindows(data []byte) []xproto.Window {
	windows := make([]xproto.Window, 0, len(data)/4)
	for i := 0; i+4 <= len(data); i += 4 {
		if w := xproto.Window(xgb.Get32(data[i:])); w != 0 {
			windows = append(windows, w)
		}
	}
	return windows
}

func decodeAtoms(data []byte) []xproto.Atom {
	atoms := make([]xproto.Atom, 0, len(data)/4)
	for i := 0; i+4 <= len(data); i += 4 {
		atoms = append(atoms, xproto.Atom(xgb.Get32(data[i:])))
	}
	return atoms
}

func normalType(types []xproto.Atom, normal xproto.Atom) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if t == normal {
			return true
		}
	}
	return false
}

// splitWMClass splits the two NUL terminated strings of WM_CLASS.
func splitWMClass(data []byte) (instance, class string) {
	parts := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	if len(parts) >= 1 {
		instance = parts[0]
	}
	if len(parts) >= 2 {
		class = parts[1]
	}
	return instance, class
}
