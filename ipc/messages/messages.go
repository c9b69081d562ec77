// Package messages implements bounded, copy-by-value message IPC: a
// global slab of fixed-size message buffers and a per-process mailbox
// with blocking/non-blocking receive and broadcast, per spec.md §4.4.
package messages

import (
	"log/slog"

	"kcore/common"
)

const (
	// SlabSize is the number of message buffers in the global slab.
	SlabSize = 512
	// MailboxCapacity is the maximum number of queued messages per
	// mailbox.
	MailboxCapacity = 32
	// MaxMsgSize is the maximum payload length of a single message.
	MaxMsgSize = 256
	// MaxWaiters bounds a mailbox's blocked-receiver list.
	MaxWaiters = 8
)

const noNext = -1

// Flags marks properties of a sent message.
type Flags uint8

const (
	// FlagBroadcast marks a message delivered via Broadcast rather
	// than a direct Send.
	FlagBroadcast Flags = 1 << 0
)

// entry is one slab slot (spec.md §3 "IPC message slab entry"). When
// free, next links to the next free entry (noNext terminates the
// list) — the same intrusive-freelist idiom the teacher kernel uses
// for its physical page pool (physmem.pgs[i].nexti).
type entry struct {
	srcPid    common.Pid
	destPid   common.Pid
	flags     Flags
	msgID     uint64
	length    int
	timestamp int64
	data      [MaxMsgSize]byte
	next      int
}

// Mailbox is a per-process message queue (spec.md §3 "Per-process
// mailbox"). Messages form a singly-linked FIFO via slab entry.next;
// there are no back-pointers.
type Mailbox struct {
	ownerPid common.Pid
	head     int // slab index, noNext if empty
	tail     int // slab index, noNext if empty
	count    int
	waiters  common.WaitQueue
	lock     common.Spinlock
}

// Subsystem owns the global slab and the set of registered mailboxes.
type Subsystem struct {
	slabLock common.Spinlock
	slab     [SlabSize]entry
	freeHead int
	nextMsg  uint64

	tableLock common.Spinlock
	mailboxes map[common.Pid]*Mailbox

	procs      common.ProcessTable
	processMax common.Pid
	now        func() int64
	log        *slog.Logger
}

// New returns an initialized message subsystem. procMax bounds the PID
// range Broadcast iterates (spec.md §4.4: "[1, PROCESS_MAX)"). now
// supplies the timestamp for new messages; a nil now defaults to a
// monotonically increasing counter so tests don't depend on wall-clock
// time.
func New(procs common.ProcessTable, procMax common.Pid, now func() int64, log *slog.Logger) *Subsystem {
	if log == nil {
		log = common.Discard()
	}
	if now == nil {
		var c int64
		now = func() int64 { c++; return c }
	}
	s := &Subsystem{
		freeHead:   0,
		mailboxes:  make(map[common.Pid]*Mailbox),
		procs:      procs,
		processMax: procMax,
		now:        now,
		log:        log,
	}
	for i := range s.slab {
		if i == len(s.slab)-1 {
			s.slab[i].next = noNext
		} else {
			s.slab[i].next = i + 1
		}
	}
	return s
}

// RegisterMailbox creates an empty mailbox for pid. Call this when a
// process is created; Send/Receive/Broadcast on an unregistered PID
// report StatusNotFound.
func (s *Subsystem) RegisterMailbox(pid common.Pid) {
	s.tableLock.Lock()
	defer s.tableLock.Unlock()
	s.mailboxes[pid] = &Mailbox{
		ownerPid: pid,
		head:     noNext,
		tail:     noNext,
		waiters:  common.NewWaitQueue(MaxWaiters),
	}
}

// UnregisterMailbox drops pid's mailbox, freeing any queued messages
// back to the slab.
func (s *Subsystem) UnregisterMailbox(pid common.Pid) {
	s.tableLock.Lock()
	mb, ok := s.mailboxes[pid]
	if ok {
		delete(s.mailboxes, pid)
	}
	s.tableLock.Unlock()
	if !ok {
		return
	}
	mb.lock.Lock()
	var queued []int
	for idx := mb.head; idx != noNext; idx = s.slab[idx].next {
		queued = append(queued, idx)
	}
	mb.lock.Unlock()

	for _, idx := range queued {
		s.freeEntry(idx)
	}
}

func (s *Subsystem) mailbox(pid common.Pid) (*Mailbox, bool) {
	s.tableLock.Lock()
	defer s.tableLock.Unlock()
	mb, ok := s.mailboxes[pid]
	return mb, ok
}

func (s *Subsystem) allocEntry() (int, bool) {
	s.slabLock.Lock()
	defer s.slabLock.Unlock()
	if s.freeHead == noNext {
		return 0, false
	}
	idx := s.freeHead
	s.freeHead = s.slab[idx].next
	return idx, true
}

func (s *Subsystem) freeEntry(idx int) {
	s.slabLock.Lock()
	defer s.slabLock.Unlock()
	s.slab[idx] = entry{next: s.freeHead}
	s.freeHead = idx
}

// Send delivers buf to destPid's mailbox, failing with
// StatusQueueFull if the mailbox already holds MailboxCapacity
// messages and StatusInvalid if buf exceeds MaxMsgSize.
func (s *Subsystem) Send(srcPid, destPid common.Pid, buf []byte) common.Status {
	return s.sendFlags(srcPid, destPid, buf, 0)
}

func (s *Subsystem) sendFlags(srcPid, destPid common.Pid, buf []byte, flags Flags) common.Status {
	if len(buf) > MaxMsgSize {
		return common.StatusInvalid
	}
	if s.procs != nil && !s.procs.Live(destPid) {
		return common.StatusNotFound
	}
	mb, ok := s.mailbox(destPid)
	if !ok {
		return common.StatusNotFound
	}

	// Allocate from the global slab before touching the per-mailbox
	// lock: a global lock is never acquired while a per-entry lock is
	// held (spec.md §9).
	idx, ok := s.allocEntry()
	if !ok {
		s.log.Warn("message slab exhausted")
		return common.StatusQueueFull
	}
	s.slabLock.Lock()
	s.nextMsg++
	msgID := s.nextMsg
	s.slabLock.Unlock()

	e := &s.slab[idx]
	e.srcPid = srcPid
	e.destPid = destPid
	e.flags = flags
	e.msgID = msgID
	e.length = copy(e.data[:], buf)
	e.timestamp = s.now()
	e.next = noNext

	mb.lock.Lock()
	if mb.count >= MailboxCapacity {
		mb.lock.Unlock()
		s.freeEntry(idx)
		return common.StatusQueueFull
	}
	if mb.tail == noNext {
		mb.head = idx
		mb.tail = idx
	} else {
		s.slab[mb.tail].next = idx
		mb.tail = idx
	}
	mb.count++
	mb.waiters.WakeOne()
	mb.lock.Unlock()
	return common.StatusOK
}

// Received describes a message handed back to a caller.
type Received struct {
	SrcPid common.Pid
	Length int
}

// Receive copies the oldest queued message addressed to proc's PID
// into dst, returning its length and source PID. When block is true
// and the mailbox is empty, proc is enqueued as a waiter, marked
// blocked, and the subsystem yields via sched — re-checking the
// predicate on every wake, per the cooperative-blocking pattern in
// spec.md §9.
func (s *Subsystem) Receive(proc common.Process, dst []byte, block bool, sched common.Scheduler) (Received, common.Status) {
	mb, ok := s.mailbox(proc.Pid())
	if !ok {
		return Received{}, common.StatusNotFound
	}

	mb.lock.Lock()
	for mb.count == 0 {
		if !block {
			mb.lock.Unlock()
			return Received{}, common.StatusWouldBlock
		}
		if !mb.waiters.Add(proc) {
			mb.lock.Unlock()
			sched.Yield()
			mb.lock.Lock()
			continue
		}
		proc.SetState(common.ProcBlocked)
		mb.lock.Unlock()
		sched.Yield()
		mb.lock.Lock()
	}

	idx := mb.head
	e := &s.slab[idx]
	mb.head = e.next
	if mb.head == noNext {
		mb.tail = noNext
	}
	mb.count--

	n := copy(dst, e.data[:e.length])
	r := Received{SrcPid: e.srcPid, Length: n}
	mb.lock.Unlock()

	s.freeEntry(idx)
	return r, common.StatusOK
}

// Peek returns the source PID and length of the oldest queued message
// addressed to pid without dequeuing it.
func (s *Subsystem) Peek(pid common.Pid) (Received, common.Status) {
	mb, ok := s.mailbox(pid)
	if !ok {
		return Received{}, common.StatusNotFound
	}
	mb.lock.Lock()
	defer mb.lock.Unlock()
	if mb.count == 0 {
		return Received{}, common.StatusWouldBlock
	}
	e := &s.slab[mb.head]
	return Received{SrcPid: e.srcPid, Length: e.length}, common.StatusOK
}

// Broadcast sends buf to every live process in [1, processMax) other
// than srcPid, returning the count of successful deliveries. A
// destination with a full mailbox is silently skipped (partial
// broadcast), matching spec.md §4.4.
func (s *Subsystem) Broadcast(srcPid common.Pid, buf []byte) int {
	count := 0
	for pid := common.Pid(1); pid < s.processMax; pid++ {
		if pid == srcPid {
			continue
		}
		if s.procs != nil && !s.procs.Live(pid) {
			continue
		}
		if s.sendFlags(srcPid, pid, buf, FlagBroadcast) == common.StatusOK {
			count++
		}
	}
	return count
}

// SlabUsage reports the number of slab entries currently allocated
// (not on the free list), for tests asserting exact allocation counts.
func (s *Subsystem) SlabUsage() int {
	s.slabLock.Lock()
	defer s.slabLock.Unlock()
	free := 0
	for i := s.freeHead; i != noNext; i = s.slab[i].next {
		free++
	}
	return SlabSize - free
}
