package wayland

import (
	"strings"
	"sync"
	"testing"

	"focusmru/pkg/focus"
)

const swayTree = `{
  "id": 1, "type": "root", "nodes": [
    {"id": 2, "type": "output", "nodes": [
      {"id": 3, "type": "workspace", "nodes": [
        {"id": 10, "type": "con", "pid": 1200, "app_id": "foot", "focused": false, "nodes": []},
        {"id": 11, "type": "con", "pid": 800, "app_id": null,
         "window_properties": {"class": "Slack", "instance": "slack"}, "focused": true, "nodes": []},
        {"id": 12, "type": "con", "pid": 1200, "app_id": "foot", "nodes": []}
      ],
      "floating_nodes": [
        {"id": 13, "type": "floating_con", "pid": 950, "app_id": "pavucontrol", "nodes": []}
      ]}
    ]}
  ]
}`

func TestParseTree(t *testing.T) {
	snap, err := parseTree([]byte(swayTree))
	if err != nil {
		t.Fatalf("parseTree() error: %v", err)
	}

	want := []int32{1200, 800, 950}
	if len(snap.Apps) != len(want) {
		t.Fatalf("got %d apps, want %d: %+v", len(snap.Apps), len(want), snap.Apps)
	}
	for i, pid := range want {
		if snap.Apps[i].PID != pid {
			t.Errorf("Apps[%d].PID = %d, want %d", i, snap.Apps[i].PID, pid)
		}
		if snap.Apps[i].Category != focus.Regular {
			t.Errorf("Apps[%d].Category = %v, want regular", i, snap.Apps[i].Category)
		}
	}

	if !snap.HasFrontmost || snap.FrontmostPID != 800 {
		t.Errorf("frontmost = (%d, %v), want (800, true)", snap.FrontmostPID, snap.HasFrontmost)
	}
}

func TestParseTreeInvalid(t *testing.T) {
	if _, err := parseTree([]byte("not json")); err == nil {
		t.Error("parseTree() error = nil, want error")
	}
}

func TestDecodeEvents(t *testing.T) {
	stream := strings.Join([]string{
		`{"success": true}`,
		`{"change": "new", "container": {"id": 20, "type": "con", "pid": 300, "app_id": "firefox"}}`,
		`{"change": "focus", "container": {"id": 20, "type": "con", "pid": 300, "app_id": "firefox"}}`,
		`{"change": "title", "container": {"id": 20, "type": "con", "pid": 300, "app_id": "firefox"}}`,
		`{"change": "focus", "container": {"id": 21, "type": "con", "pid": 0}}`,
		`{"change": "focus", "current": {"id": 5, "type": "workspace", "nodes": [
		  {"id": 20, "type": "con", "pid": 300, "app_id": "firefox"}]}, "old": {"id": 4, "type": "workspace"}}`,
		`{"change": "focus", "current": {"id": 6, "type": "workspace", "nodes": []}, "old": {"id": 5, "type": "workspace"}}`,
		`{"change": "init", "current": {"id": 7, "type": "workspace", "nodes": []}}`,
		`{"change": "focus", "container": {"id": 22, "type": "floating_con", "pid": 410,
		  "window_properties": {"class": "Gimp"}}}`,
	}, "\n")

	var got []swayNode
	blurs := 0
	err := decodeEvents(strings.NewReader(stream),
		func(n swayNode) { got = append(got, n) },
		func() { blurs++ })
	if err != nil {
		t.Fatalf("decodeEvents() error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d focus events, want 2: %+v", len(got), got)
	}
	if got[0].PID != 300 || got[0].appID() != "firefox" {
		t.Errorf("event 0 = %+v, want firefox pid 300", got[0])
	}
	if got[1].PID != 410 || got[1].appID() != "Gimp" {
		t.Errorf("event 1 = %+v, want Gimp pid 410", got[1])
	}
	if blurs != 1 {
		t.Errorf("blurs = %d, want 1", blurs)
	}
}

func TestDecodeEventsTruncated(t *testing.T) {
	err := decodeEvents(strings.NewReader(`{"change": "focus", "container": {`), func(swayNode) {}, func() {})
	if err == nil {
		t.Error("decodeEvents() error = nil, want error for truncated stream")
	}
}

type activationRecorder struct {
	mu   sync.Mutex
	pids []int32
}

func (r *activationRecorder) Activated(sig focus.ActivationSignal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pids = append(r.pids, sig.PID)
}

func (r *activationRecorder) Terminated(focus.TerminationRecord) {}

func TestEmitSkipsSameProcess(t *testing.T) {
	s := NewSource(nil)
	sink := &activationRecorder{}

	for _, pid := range []int32{300, 300, 410, 300} {
		s.emit(swayNode{Type: "con", PID: pid}, sink)
	}

	want := []int32{300, 410, 300}
	if len(sink.pids) != len(want) {
		t.Fatalf("activations = %v, want %v", sink.pids, want)
	}
	for i := range want {
		if sink.pids[i] != want[i] {
			t.Errorf("activations[%d] = %d, want %d", i, sink.pids[i], want[i])
		}
	}
}

func TestEmptyWorkspaceResetsFocus(t *testing.T) {
	stream := strings.Join([]string{
		`{"change": "focus", "container": {"id": 20, "type": "con", "pid": 300}}`,
		`{"change": "focus", "current": {"id": 6, "type": "workspace", "nodes": []}}`,
		`{"change": "focus", "current": {"id": 5, "type": "workspace", "nodes": [{"id": 20, "type": "con", "pid": 300}]}}`,
		`{"change": "focus", "container": {"id": 20, "type": "con", "pid": 300}}`,
	}, "\n")

	s := NewSource(nil)
	sink := &activationRecorder{}
	err := decodeEvents(strings.NewReader(stream), func(n swayNode) { s.emit(n, sink) }, s.blur)
	if err != nil {
		t.Fatalf("decodeEvents() error: %v", err)
	}

	if len(sink.pids) != 2 || sink.pids[0] != 300 || sink.pids[1] != 300 {
		t.Errorf("activations = %v, want [300 300]", sink.pids)
	}
}

func TestSourceCloseIdempotent(t *testing.T) {
	s := NewSource(nil)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}
	if err := s.Subscribe(&activationRecorder{}); err != focus.ErrClosed {
		t.Errorf("Subscribe() after Close error = %v, want ErrClosed", err)
	}
}

func TestIsAvailable(t *testing.T) {
	t.Logf("sway available: %v", IsAvailable())
}
