package pipes

import (
	"sync"
	"testing"
	"time"

	"kcore/common"
)

type testProc struct {
	pid   common.Pid
	state common.ProcState
}

func (p *testProc) Pid() common.Pid             { return p.pid }
func (p *testProc) SetState(s common.ProcState) { p.state = s }

// blockingScheduler hands off to real goroutine scheduling so a reader
// blocked on an empty pipe actually waits for a writer running on
// another goroutine, rather than busy-spinning forever in a test.
type blockingScheduler struct{}

func (blockingScheduler) Yield() { time.Sleep(time.Millisecond) }

func TestPipeByteOrder(t *testing.T) {
	s := New(nil)
	rfd, wfd, st := s.Create()
	if st != common.StatusOK {
		t.Fatalf("create: %v", st)
	}
	proc := &testProc{pid: 1}
	sched := blockingScheduler{}

	if n, st := s.Write(wfd, []byte("Hello"), true, proc, sched); st != common.StatusOK || n != 5 {
		t.Fatalf("write Hello: n=%d st=%v", n, st)
	}
	if n, st := s.Write(wfd, []byte("World"), true, proc, sched); st != common.StatusOK || n != 5 {
		t.Fatalf("write World: n=%d st=%v", n, st)
	}

	buf := make([]byte, 10)
	n, st := s.Read(rfd, buf, true, proc, sched)
	if st != common.StatusOK || n != 10 {
		t.Fatalf("read: n=%d st=%v", n, st)
	}
	if string(buf) != "HelloWorld" {
		t.Fatalf("got %q, want HelloWorld", buf)
	}
}

func TestPipeWrapAround(t *testing.T) {
	s := New(nil)
	rfd, wfd, _ := s.Create()
	proc := &testProc{pid: 1}
	sched := blockingScheduler{}

	chunk := func(n int, b byte) []byte {
		buf := make([]byte, n)
		for i := range buf {
			buf[i] = b
		}
		return buf
	}

	var all []byte
	for i, b := range []byte{0xAA, 0xBB} {
		data := chunk(3000, b)
		all = append(all, data...)
		done := make(chan struct{})
		var wrote int
		go func() {
			wrote, _ = s.Write(wfd, data, true, proc, sched)
			close(done)
		}()
		got := make([]byte, 3000)
		n, st := s.Read(rfd, got, true, proc, sched)
		<-done
		if st != common.StatusOK || n != 3000 || wrote != 3000 {
			t.Fatalf("round %d: read n=%d st=%v wrote=%d", i, n, st, wrote)
		}
		for j, v := range got {
			if v != b {
				t.Fatalf("round %d: byte %d = %x, want %x", i, j, v, b)
			}
		}
	}
}

func TestPipeEOF(t *testing.T) {
	s := New(nil)
	rfd, wfd, _ := s.Create()
	proc := &testProc{pid: 1}
	sched := blockingScheduler{}

	s.Write(wfd, []byte("abcde"), true, proc, sched)
	s.Close(wfd)

	buf := make([]byte, 10)
	n, st := s.Read(rfd, buf, true, proc, sched)
	if st != common.StatusOK || n != 5 || string(buf[:5]) != "abcde" {
		t.Fatalf("first read: n=%d st=%v buf=%q", n, st, buf[:n])
	}
	n, st = s.Read(rfd, buf, true, proc, sched)
	if st != common.StatusOK || n != 0 {
		t.Fatalf("second read should be EOF: n=%d st=%v", n, st)
	}
}

func TestPipeBroken(t *testing.T) {
	s := New(nil)
	rfd, wfd, _ := s.Create()
	proc := &testProc{pid: 1}
	sched := blockingScheduler{}

	s.Close(rfd)
	n, st := s.Write(wfd, []byte("x"), true, proc, sched)
	if st != common.StatusClosed || n != 0 {
		t.Fatalf("write after read close: n=%d st=%v, want 0/Closed", n, st)
	}
}

func TestPipeHalfCloseLifecycle(t *testing.T) {
	s := New(nil)
	var fds [TableSize][2]int
	for i := 0; i < TableSize; i++ {
		rfd, wfd, st := s.Create()
		if st != common.StatusOK {
			t.Fatalf("create %d: %v", i, st)
		}
		fds[i] = [2]int{rfd, wfd}
	}
	for _, fd := range fds {
		s.Close(fd[0])
		s.Close(fd[1])
	}
	// Table is nominally full, but every slot was fully closed, so the
	// N+1'th create (wrapping back to slot 0) must still succeed.
	if _, _, st := s.Create(); st != common.StatusOK {
		t.Fatalf("create after full half-close cycle: %v", st)
	}
}

func TestPipeNonBlockingWouldBlock(t *testing.T) {
	s := New(nil)
	rfd, _, _ := s.Create()
	proc := &testProc{pid: 1}
	sched := blockingScheduler{}

	buf := make([]byte, 1)
	n, st := s.Read(rfd, buf, false, proc, sched)
	if st != common.StatusWouldBlock || n != 0 {
		t.Fatalf("non-blocking read on empty+open pipe: n=%d st=%v", n, st)
	}
}

func TestFDEncodingRoundTrip(t *testing.T) {
	for idx := 0; idx < TableSize; idx++ {
		rfd := readFD(idx)
		wfd := writeFD(idx)
		if fdIndex(rfd) != idx || !fdIsRead(rfd) {
			t.Fatalf("read fd %d did not round-trip to index %d", rfd, idx)
		}
		if fdIndex(wfd) != idx || fdIsRead(wfd) {
			t.Fatalf("write fd %d did not round-trip to index %d", wfd, idx)
		}
	}
}

func TestPipeConcurrentWriterReaderDontCorrupt(t *testing.T) {
	s := New(nil)
	rfd, wfd, _ := s.Create()
	proc := &testProc{pid: 1}
	sched := blockingScheduler{}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			s.Write(wfd, []byte{byte(i)}, true, proc, sched)
		}
		s.Close(wfd)
	}()

	var got []byte
	buf := make([]byte, 1)
	for {
		n, st := s.Read(rfd, buf, true, proc, sched)
		if n == 0 && st == common.StatusOK {
			break
		}
		got = append(got, buf[:n]...)
	}
	wg.Wait()
	if len(got) != 10 {
		t.Fatalf("got %d bytes, want 10", len(got))
	}
	for i, v := range got {
		if int(v) != i {
			t.Fatalf("byte %d = %d, want %d", i, v, i)
		}
	}
}
