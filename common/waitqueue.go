package common

// WaitQueue is a fixed-capacity FIFO of waiting processes, used by
// per-mailbox and per-pipe-slot wait lists (waiters[<=8] in spec.md's
// data model). It has no back-pointers into the structure it is
// embedded in, matching the "no cyclic structure" design note.
type WaitQueue struct {
	waiters []Process
	cap     int
}

// NewWaitQueue returns a wait queue bounded at capacity cap.
func NewWaitQueue(cap int) WaitQueue {
	return WaitQueue{waiters: make([]Process, 0, cap), cap: cap}
}

// Add appends proc to the tail of the queue. Returns false if the
// queue is already at capacity.
func (q *WaitQueue) Add(proc Process) bool {
	if len(q.waiters) >= q.cap {
		return false
	}
	q.waiters = append(q.waiters, proc)
	return true
}

// WakeOne pops the process at the head of the queue (FIFO) and marks
// it ready, returning true if there was one to wake.
func (q *WaitQueue) WakeOne() bool {
	if len(q.waiters) == 0 {
		return false
	}
	p := q.waiters[0]
	q.waiters = q.waiters[1:]
	p.SetState(ProcReady)
	return true
}

// WakeAll wakes every waiting process and empties the queue, used when
// a pipe's opposite end closes and every waiter must be released to
// observe EOF/CLOSED on its next attempt.
func (q *WaitQueue) WakeAll() {
	for _, p := range q.waiters {
		p.SetState(ProcReady)
	}
	q.waiters = q.waiters[:0]
}

// Len reports the number of waiting processes.
func (q *WaitQueue) Len() int { return len(q.waiters) }
