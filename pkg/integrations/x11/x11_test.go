package x11

import (
	"testing"

	"github.com/jezek/xgb/xproto"

	"focusmru/pkg/focus"
)

func le32(values ...uint32) []byte {
	buf := make([]byte, 0, len(values)*4)
	for _, v := range values {
		buf = append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
	}
	return buf
}

func TestDecodeWindows(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want []xproto.Window
	}{
		{"empty", nil, nil},
		{"two windows", le32(0x1200003, 0x2400001), []xproto.Window{0x1200003, 0x2400001}},
		{"skips none", le32(0, 7), []xproto.Window{7}},
		{"truncated tail", append(le32(5), 0x01, 0x02), []xproto.Window{5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeWindows(tt.data)
			if len(got) != len(tt.want) {
				t.Fatalf("decodeWindows() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("decodeWindows()[%d] = %#x, want %#x", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestNormalType(t *testing.T) {
	const normal, dialog, dock = xproto.Atom(300), xproto.Atom(301), xproto.Atom(302)

	tests := []struct {
		name  string
		types []xproto.Atom
		want  bool
	}{
		{"no type", nil, true},
		{"normal", []xproto.Atom{normal}, true},
		{"dialog with fallback", []xproto.Atom{dialog, normal}, true},
		{"dock", []xproto.Atom{dock}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalType(tt.types, normal); got != tt.want {
				t.Errorf("normalType(%v) = %v, want %v", tt.types, got, tt.want)
			}
		})
	}

	if got := decodeAtoms(le32(uint32(dialog), uint32(normal))); len(got) != 2 || got[1] != normal {
		t.Errorf("decodeAtoms() = %v", got)
	}
}

func TestSplitWMClass(t *testing.T) {
	tests := []struct {
		name         string
		data         string
		wantInstance string
		wantClass    string
	}{
		{"firefox", "Navigator\x00firefox\x00", "Navigator", "firefox"},
		{"instance only", "kitty\x00", "kitty", ""},
		{"empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instance, class := splitWMClass([]byte(tt.data))
			if instance != tt.wantInstance || class != tt.wantClass {
				t.Errorf("splitWMClass(%q) = (%q, %q), want (%q, %q)",
					tt.data, instance, class, tt.wantInstance, tt.wantClass)
			}
		})
	}
}

func TestBuildSnapshot(t *testing.T) {
	windows := []windowInfo{
		{id: 1, pid: 100, normal: true},
		{id: 2, pid: 200, normal: false},
		{id: 3, pid: 100, normal: false},
		{id: 4, pid: 0, normal: true},
		{id: 5, pid: 300, normal: false},
		{id: 6, pid: 300, normal: true},
	}

	snap := buildSnapshot(windows, 200)

	if !snap.HasFrontmost || snap.FrontmostPID != 200 {
		t.Errorf("frontmost = (%d, %v), want (200, true)", snap.FrontmostPID, snap.HasFrontmost)
	}

	want := []focus.RunningApp{
		{PID: 100, Category: focus.Regular},
		{PID: 200, Category: focus.Accessory},
		{PID: 300, Category: focus.Regular},
	}
	if len(snap.Apps) != len(want) {
		t.Fatalf("got %d apps, want %d: %+v", len(snap.Apps), len(want), snap.Apps)
	}
	for i := range want {
		if snap.Apps[i] != want[i] {
			t.Errorf("Apps[%d] = %+v, want %+v", i, snap.Apps[i], want[i])
		}
	}
}

func TestBuildSnapshotNoActiveWindow(t *testing.T) {
	snap := buildSnapshot(nil, 0)
	if snap.HasFrontmost {
		t.Error("HasFrontmost = true, want false")
	}
	if len(snap.Apps) != 0 {
		t.Errorf("Apps = %v, want empty", snap.Apps)
	}
}

func TestFocusChange(t *testing.T) {
	type step struct {
		window xproto.Window
		pid    int32
		want   bool
	}
	tests := []struct {
		name  string
		steps []step
	}{
		{
			name:  "same process is not reactivated",
			steps: []step{{0x100, 300, true}, {0x101, 300, false}, {0x200, 410, true}},
		},
		{
			name:  "no active window forgets the last process",
			steps: []step{{0x100, 300, true}, {0, 0, false}, {0x100, 300, true}},
		},
		{
			name:  "window without pid forgets the last process",
			steps: []step{{0x100, 300, true}, {0x300, 0, false}, {0x100, 300, true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var last int32
			for i, st := range tt.steps {
				var got bool
				got, last = focusChange(st.window, st.pid, last)
				if got != st.want {
					t.Errorf("step %d: focusChange(%#x, %d) = %v, want %v", i, st.window, st.pid, got, st.want)
				}
			}
		})
	}
}

func TestSourceCloseBeforeSubscribe(t *testing.T) {
	s := NewSource("", nil)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := s.Subscribe(nil); err != focus.ErrClosed {
		t.Errorf("Subscribe() after Close error = %v, want ErrClosed", err)
	}
}

func TestSourceLive(t *testing.T) {
	if !IsAvailable() {
		t.Skip("no X display available")
	}

	snap, err := NewWorkspace("").Snapshot()
	if err != nil {
		t.Logf("Snapshot() error (may be expected without a window manager): %v", err)
		return
	}
	t.Logf("apps: %d, frontmost: %d (%v)", len(snap.Apps), snap.FrontmostPID, snap.HasFrontmost)
}
