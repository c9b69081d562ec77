package common

import (
	"runtime"
	"sync/atomic"
)

// Spinlock is a test-and-set mutual-exclusion primitive for code that
// must not block: the global message slab, the global pipe table, and
// every per-mailbox/per-pipe-slot lock use this instead of sync.Mutex so
// that acquisition order and non-blocking-ness match the single-CPU,
// interrupts-are-the-only-preemption model the kernel subsystems run
// under. There is no recursion support; re-locking from the same
// goroutine deadlocks, same as a real spinlock would spin forever.
//
// The backoff loop mirrors the busy-wait-on-atomic-load pattern the
// teacher kernel uses to drive the LAPIC ICR ("for
// atomic.LoadUint32(&lap[icrl]) & ipisent != 0 {}") rather than a
// library mutex.
type Spinlock struct {
	held uint32
}

// Lock spins until the lock is acquired, yielding the processor between
// attempts (the nearest portable equivalent of a PAUSE instruction in a
// hosted Go program).
func (l *Spinlock) Lock() {
	for !atomic.CompareAndSwapUint32(&l.held, 0, 1) {
		for atomic.LoadUint32(&l.held) != 0 {
			runtime.Gosched()
		}
	}
}

// TryLock attempts to acquire the lock without spinning, returning
// false immediately if it is held.
func (l *Spinlock) TryLock() bool {
	return atomic.CompareAndSwapUint32(&l.held, 0, 1)
}

// Unlock releases the lock via an atomic store-release.
func (l *Spinlock) Unlock() {
	atomic.StoreUint32(&l.held, 0)
}
