//go:build !unix

package daemon

import "github.com/pkg/errors"

const ChildEnv = "FOCUSMRU_DAEMON_CHILD"

func IsChild() bool {
	return false
}

func Spawn(args []string) (int, error) {
	return 0, errors.New("daemon mode is only supported on unix systems")
}
