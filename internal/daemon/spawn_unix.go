//go:build unix

package daemon

import (
	"os"
	"syscall"

	"github.com/pkg/errors"
)

// ChildEnv marks a process started by Spawn
const ChildEnv = "FOCUSMRU_DAEMON_CHILD"

// IsChild reports whether the current process was started by Spawn.
func IsChild() bool {
	return os.Getenv(ChildEnv) == "1"
}

// Spawn re-executes the current binary with args in a new session, detached
// from the terminal, and returns the child's pid.
func Spawn(args []string) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, errors.Wrap(err, "failed to locate executable")
	}

	procAttr := &os.ProcAttr{
		Env:   append(os.Environ(), ChildEnv+"=1"),
		Files: []*os.File{nil, nil, nil}, // stdin, stdout, stderr to /dev/null
		Sys: &syscall.SysProcAttr{
			Setsid: true,
		},
	}

	process, err := os.StartProcess(exe, append([]string{exe}, args...), procAttr)
	if err != nil {
		return 0, errors.Wrap(err, "failed to start daemon process")
	}
	pid := process.Pid
	_ = process.Release()
	return pid, nil
}
