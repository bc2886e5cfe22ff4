package core

import "errors"

var (
	// ErrPriorityElevation wraps failures to enter the real-time class.
	ErrPriorityElevation = errors.New("priority elevation failed")

	// ErrMemoryLock wraps failures to pin process memory.
	ErrMemoryLock = errors.New("memory lock failed")

	// ErrRealtimeUnsupported is returned on platforms without SCHED_FIFO.
	ErrRealtimeUnsupported = errors.New("real-time scheduling not supported on this platform")
)

// ThreadPrioritizer moves the calling OS thread into its scheduling class.
// Callers must hold runtime.LockOSThread for the lifetime of the thread.
type ThreadPrioritizer interface {
	Elevate(priority TaskPriority) error
}

// MemoryLocker pins the process address space. It runs once, before any
// periodic runner starts.
type MemoryLocker interface {
	Lock() error
}

// NopPrioritizer leaves the thread in its inherited class. It exists for
// tests and explicitly requested unprivileged simulations.
type NopPrioritizer struct{}

func (NopPrioritizer) Elevate(TaskPriority) error { return nil }

// NopMemoryLocker performs no memory pinning.
type NopMemoryLocker struct{}

func (NopMemoryLocker) Lock() error { return nil }
