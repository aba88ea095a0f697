//go:build unix

package host

import (
	"syscall"

	"github.com/pkg/errors"
)

// signalAlive probes pid with signal 0.
func signalAlive(pid int32) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(int(pid), 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}
