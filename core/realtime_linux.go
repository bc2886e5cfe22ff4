//go:build linux

package core

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// FIFOPrioritizer places the calling thread in SCHED_FIFO at the requested
// priority. Best-effort priorities keep the default SCHED_OTHER class.
type FIFOPrioritizer struct{}

// Elevate applies the priority to the calling thread (tid 0).
func (FIFOPrioritizer) Elevate(priority TaskPriority) error {
	if !priority.IsRealtime() {
		return nil
	}
	if priority > TaskPriorityMax {
		return fmt.Errorf("%w: priority %d above %d", ErrPriorityElevation, priority, TaskPriorityMax)
	}
	attr := &unix.SchedAttr{
		Policy:   unix.SCHED_FIFO,
		Priority: uint32(priority),
	}
	if err := unix.SchedSetAttr(0, attr, 0); err != nil {
		return fmt.Errorf("%w: sched_setattr(SCHED_FIFO, %d): %v", ErrPriorityElevation, priority, err)
	}
	return nil
}

// MlockallLocker locks current and future pages with mlockall(2).
type MlockallLocker struct{}

func (MlockallLocker) Lock() error {
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		return fmt.Errorf("%w: mlockall: %v", ErrMemoryLock, err)
	}
	return nil
}
