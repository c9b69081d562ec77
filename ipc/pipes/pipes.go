// Package pipes implements Unix-style unidirectional byte-stream pipes
// over fixed circular buffers, with reference-counted read/write ends
// and blocking reader/writer rendezvous, per spec.md §4.5.
package pipes

import (
	"log/slog"

	"kcore/common"
)

const (
	// PipeBufSize is the fixed circular buffer capacity per pipe slot.
	PipeBufSize = 4096
	// TableSize is the number of pipe slots in the subsystem.
	TableSize = 128
	// MaxWaiters bounds each side's wait queue.
	MaxWaiters = 8
)

type openFlags uint8

const (
	readOpen  openFlags = 1 << 0
	writeOpen openFlags = 1 << 1
)

// slot is one entry of the pipe table (spec.md §3 "Pipe slot").
type slot struct {
	buf     circbuf
	flags   openFlags
	id      uint64
	readers int
	writers int

	readWaiters  common.WaitQueue
	writeWaiters common.WaitQueue

	lock common.Spinlock
}

func (s *slot) free() bool { return s.flags == 0 }

// Subsystem owns the fixed-size pipe table and the global lock guarding
// slot allocation, matching the teacher's convention of one spinlock
// per global pool (message slab, here the pipe table) plus one
// spinlock per entry.
type Subsystem struct {
	lock   common.Spinlock
	table  [TableSize]slot
	nextID uint64
	log    *slog.Logger
}

// New returns an initialized pipe subsystem. A nil logger discards
// diagnostics.
func New(log *slog.Logger) *Subsystem {
	if log == nil {
		log = common.Discard()
	}
	return &Subsystem{log: log}
}

// fd encoding: read_fd = 2*index, write_fd = 2*index+1 (spec.md §3).
func readFD(idx int) int  { return 2 * idx }
func writeFD(idx int) int { return 2*idx + 1 }
func fdIndex(fd int) int  { return fd / 2 }
func fdIsRead(fd int) bool { return fd%2 == 0 }

// Create allocates the first free slot in the table and returns its
// read and write file descriptors.
func (s *Subsystem) Create() (readFd, writeFd int, status common.Status) {
	s.lock.Lock()
	defer s.lock.Unlock()

	for i := range s.table {
		sl := &s.table[i]
		if !sl.free() {
			continue
		}
		sl.lock.Lock()
		sl.buf = circbuf{}
		sl.flags = readOpen | writeOpen
		sl.readers = 1
		sl.writers = 1
		s.nextID++
		sl.id = s.nextID
		sl.readWaiters = common.NewWaitQueue(MaxWaiters)
		sl.writeWaiters = common.NewWaitQueue(MaxWaiters)
		sl.lock.Unlock()

		s.log.Debug("pipe created", "id", sl.id, "index", i)
		return readFD(i), writeFD(i), common.StatusOK
	}
	s.log.Warn("pipe table exhausted")
	return 0, 0, common.StatusQueueFull
}

func (s *Subsystem) slotFor(fd int) (*slot, bool) {
	idx := fdIndex(fd)
	if idx < 0 || idx >= TableSize {
		return nil, false
	}
	sl := &s.table[idx]
	if sl.free() {
		return nil, false
	}
	return sl, true
}

// Read performs a read of up to len(buf) bytes from fd's read end.
// When block is true and the buffer is currently empty with the write
// end still open, the caller (identified by proc) is enqueued as a
// waiter, marked blocked, and the subsystem yields via sched until
// woken — the predicate is re-checked after every wake, closing the
// lost-wakeup race per spec.md §9.
func (s *Subsystem) Read(fd int, buf []byte, block bool, proc common.Process, sched common.Scheduler) (int, common.Status) {
	if !fdIsRead(fd) {
		return 0, common.StatusInvalid
	}
	sl, ok := s.slotFor(fd)
	if !ok {
		return 0, common.StatusInvalid
	}

	sl.lock.Lock()
	if sl.flags&readOpen == 0 {
		sl.lock.Unlock()
		return 0, common.StatusInvalid
	}
	for sl.buf.empty() {
		if sl.flags&writeOpen == 0 {
			sl.lock.Unlock()
			return 0, common.StatusOK // EOF: zero-length, not an error code
		}
		if !block {
			sl.lock.Unlock()
			return 0, common.StatusWouldBlock
		}
		if !sl.readWaiters.Add(proc) {
			// wait list full; fall back to spinning on the lock
			// rather than dropping the reader permanently.
			sl.lock.Unlock()
			sched.Yield()
			sl.lock.Lock()
			continue
		}
		proc.SetState(common.ProcBlocked)
		sl.lock.Unlock()
		sched.Yield()
		sl.lock.Lock()
	}

	n := sl.buf.copyOut(buf)
	sl.writeWaiters.WakeOne()
	sl.lock.Unlock()
	return n, common.StatusOK
}

// Write performs a write of all of buf to fd's write end, or as much
// as is possible before a broken-pipe condition. When block is true
// and the buffer is full with the read end still open, the caller
// blocks the same way Read does.
func (s *Subsystem) Write(fd int, buf []byte, block bool, proc common.Process, sched common.Scheduler) (int, common.Status) {
	if fdIsRead(fd) {
		return 0, common.StatusInvalid
	}
	sl, ok := s.slotFor(fd)
	if !ok {
		return 0, common.StatusInvalid
	}

	sl.lock.Lock()
	if sl.flags&writeOpen == 0 {
		sl.lock.Unlock()
		return 0, common.StatusInvalid
	}
	if sl.flags&readOpen == 0 {
		sl.lock.Unlock()
		return 0, common.StatusClosed
	}

	written := 0
	for written < len(buf) {
		for sl.buf.full() {
			if sl.flags&readOpen == 0 {
				sl.lock.Unlock()
				if written == 0 {
					return 0, common.StatusClosed
				}
				return written, common.StatusClosed
			}
			if !block {
				sl.lock.Unlock()
				return written, common.StatusWouldBlock
			}
			if !sl.writeWaiters.Add(proc) {
				sl.lock.Unlock()
				sched.Yield()
				sl.lock.Lock()
				continue
			}
			proc.SetState(common.ProcBlocked)
			sl.lock.Unlock()
			sched.Yield()
			sl.lock.Lock()
		}
		n := sl.buf.copyIn(buf[written:])
		written += n
		sl.readWaiters.WakeOne()
	}
	sl.lock.Unlock()
	return written, common.StatusOK
}

// Close decrements the reader or writer refcount for fd's side
// (determined by fd parity) and, once a side's count reaches zero,
// clears its open bit and wakes every waiter on the opposite side so
// they observe EOF/CLOSED on their next attempt. Once both bits are
// clear the slot is reclaimable.
func (s *Subsystem) Close(fd int) common.Status {
	sl, ok := s.slotFor(fd)
	if !ok {
		return common.StatusInvalid
	}

	sl.lock.Lock()
	if fdIsRead(fd) {
		if sl.readers > 0 {
			sl.readers--
		}
		if sl.readers == 0 {
			sl.flags &^= readOpen
			sl.writeWaiters.WakeAll()
		}
	} else {
		if sl.writers > 0 {
			sl.writers--
		}
		if sl.writers == 0 {
			sl.flags &^= writeOpen
			sl.readWaiters.WakeAll()
		}
	}
	reclaim := sl.flags == 0
	if reclaim {
		sl.id = 0
	}
	sl.lock.Unlock()

	if reclaim {
		s.log.Debug("pipe reclaimed", "index", fdIndex(fd))
	}
	return common.StatusOK
}

// Available returns the number of unread bytes currently buffered.
func (s *Subsystem) Available(fd int) (int, common.Status) {
	sl, ok := s.slotFor(fd)
	if !ok {
		return 0, common.StatusInvalid
	}
	sl.lock.Lock()
	defer sl.lock.Unlock()
	return sl.buf.used(), common.StatusOK
}

// FreeSpace returns the number of bytes that can be written before the
// buffer is full.
func (s *Subsystem) FreeSpace(fd int) (int, common.Status) {
	sl, ok := s.slotFor(fd)
	if !ok {
		return 0, common.StatusInvalid
	}
	sl.lock.Lock()
	defer sl.lock.Unlock()
	return sl.buf.left(), common.StatusOK
}
