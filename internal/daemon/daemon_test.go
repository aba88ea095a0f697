package daemon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

func TestWriteReadRemovePID(t *testing.T) {
	d := New(filepath.Join(t.TempDir(), "run", "focusmru.pid"))

	if pid, err := d.ReadPID(); err != nil || pid != 0 {
		t.Fatalf("ReadPID() without file = %d, %v; want 0, nil", pid, err)
	}

	if err := d.WritePID(); err != nil {
		t.Fatalf("WritePID() error: %v", err)
	}

	pid, err := d.ReadPID()
	if err != nil {
		t.Fatalf("ReadPID() error: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("ReadPID() = %d, want %d", pid, os.Getpid())
	}

	running, got, err := d.IsRunning()
	if err != nil || !running || got != os.Getpid() {
		t.Errorf("IsRunning() = %v, %d, %v; want true, %d, nil", running, got, err, os.Getpid())
	}

	if err := d.RemovePID(); err != nil {
		t.Fatalf("RemovePID() error: %v", err)
	}
	if err := d.RemovePID(); err != nil {
		t.Errorf("second RemovePID() error: %v", err)
	}
}

func TestReadPIDInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "focusmru.pid")
	if err := os.WriteFile(path, []byte("not-a-pid"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := New(path).ReadPID(); err == nil {
		t.Error("ReadPID() error = nil, want error")
	}
}

func TestReadPIDTrimsNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "focusmru.pid")
	if err := os.WriteFile(path, []byte("4242\n"), 0644); err != nil {
		t.Fatal(err)
	}

	pid, err := New(path).ReadPID()
	if err != nil || pid != 4242 {
		t.Errorf("ReadPID() = %d, %v; want 4242, nil", pid, err)
	}
}

func TestStopWithoutDaemon(t *testing.T) {
	d := New(filepath.Join(t.TempDir(), "focusmru.pid"))

	if err := d.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Stop() error = %v, want ErrNotRunning", err)
	}
}
