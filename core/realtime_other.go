//go:build !linux

package core

import "fmt"

// FIFOPrioritizer is unavailable outside Linux; real-time priorities fail.
type FIFOPrioritizer struct{}

func (FIFOPrioritizer) Elevate(priority TaskPriority) error {
	if !priority.IsRealtime() {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPriorityElevation, ErrRealtimeUnsupported)
}

// MlockallLocker is unavailable outside Linux.
type MlockallLocker struct{}

func (MlockallLocker) Lock() error {
	return fmt.Errorf("%w: %w", ErrMemoryLock, ErrRealtimeUnsupported)
}
