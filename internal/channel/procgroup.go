package channel

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultKillGrace is how long a process group gets between SIGTERM and SIGKILL.
const DefaultKillGrace = 5 * time.Second

// terminateGroup sends SIGTERM to the process group led by pid, then SIGKILL
// if done has not closed within grace.
func terminateGroup(pid int, grace time.Duration, done <-chan struct{}) error {
	if err := signalGroup(pid, unix.SIGTERM); err != nil {
		return err
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
	}
	return signalGroup(pid, unix.SIGKILL)
}

func signalGroup(pid int, sig unix.Signal) error {
	err := unix.Kill(-pid, sig)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}
