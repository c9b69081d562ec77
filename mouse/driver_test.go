package mouse

import (
	"testing"

	"kcore/common"
)

// fakePorts models a controller that is always ready to accept a
// command or data write (status bit1 clear) and always has a byte
// ready to read (status bit0 set), with a queue of canned data-port
// responses for readData to drain in order.
type fakePorts struct {
	dataQueue []byte
	writes    []byte
}

func (f *fakePorts) In8(port uint16) uint8 {
	if port == cmdPort {
		return statusOutputFull
	}
	if len(f.dataQueue) == 0 {
		return 0
	}
	b := f.dataQueue[0]
	f.dataQueue = f.dataQueue[1:]
	return b
}

func (f *fakePorts) Out8(port uint16, v uint8) {
	if port == dataPort {
		f.writes = append(f.writes, v)
	}
}

func cleanInitQueue() []byte {
	return []byte{
		0x00,       // config byte read
		0x00,       // aux port test result
		respACK,    // reset command ack
		respSelfTest, // self-test result
		0x00,       // device id
		respACK,    // set-defaults ack
		respACK,    // enable ack
	}
}

func TestMouseInitHappyPath(t *testing.T) {
	fp := &fakePorts{dataQueue: cleanInitQueue()}
	d := New(fp, Bounds{0, 0, 1024, 768}, nil)
	if st := d.Init(); st != common.StatusOK {
		t.Fatalf("init: %v", st)
	}
	if len(fp.dataQueue) != 0 {
		t.Fatalf("init left %d unread response bytes", len(fp.dataQueue))
	}
}

func TestMouseInitResendRetry(t *testing.T) {
	q := []byte{0x00, 0x00, respResend, respResend, respACK, respSelfTest, 0x00, respACK, respACK}
	fp := &fakePorts{dataQueue: q}
	d := New(fp, Bounds{0, 0, 1024, 768}, nil)
	if st := d.Init(); st != common.StatusOK {
		t.Fatalf("init with resends: %v", st)
	}
}

func TestMouseResync(t *testing.T) {
	d := New(&fakePorts{}, Bounds{-1000, -1000, 1000, 1000}, nil)

	// First byte lacks the ALWAYS_ONE bit (bit 3): must be discarded,
	// not stored as byte[0], per spec.md's interrupt path.
	d.onByte(0x00)
	if d.pkt.index != 0 {
		t.Fatalf("pkt.index = %d after bad sync byte, want 0", d.pkt.index)
	}

	// A well-formed 3-byte packet following the bad byte should now
	// assemble cleanly: left button down, dx=5, dy=0.
	d.onByte(0x09) // ALWAYS_ONE | LEFT
	d.onByte(5)    // dx
	d.onByte(0)    // dy

	var e Event
	if !d.GetEvent(&e) || e.Type != ButtonDown {
		t.Fatalf("expected BUTTON_DOWN after resync, got %+v", e)
	}
	if !d.GetEvent(&e) || e.Type != Drag || e.DX != 5 {
		t.Fatalf("expected DRAG dx=5, got %+v", e)
	}
}

func TestMouseButtonEventOrdering(t *testing.T) {
	d := New(&fakePorts{}, Bounds{-1000, -1000, 1000, 1000}, nil)

	// Press left and right simultaneously with no movement.
	d.onByte(0x09 | ButtonLeft | ButtonRight)
	d.onByte(0)
	d.onByte(0)

	var e Event
	downs := 0
	for d.GetEvent(&e) {
		if e.Type != ButtonDown {
			t.Fatalf("expected only BUTTON_DOWN events, got %v", e.Type)
		}
		downs++
	}
	if downs != 2 {
		t.Fatalf("got %d button-down events, want 2", downs)
	}

	// Release both; no movement accompanies it.
	d.onByte(0x08) // ALWAYS_ONE only, no buttons held
	d.onByte(0)
	d.onByte(0)
	ups := 0
	for d.GetEvent(&e) {
		if e.Type != ButtonUp {
			t.Fatalf("expected only BUTTON_UP events, got %v", e.Type)
		}
		ups++
	}
	if ups != 2 {
		t.Fatalf("got %d button-up events, want 2", ups)
	}
}

func TestMouseOverflowDiscarded(t *testing.T) {
	d := New(&fakePorts{}, Bounds{-1000, -1000, 1000, 1000}, nil)
	d.onByte(0x09 | 0x40) // ALWAYS_ONE + X overflow
	d.onByte(10)
	d.onByte(10)
	if d.HasEvent() {
		t.Fatalf("overflow packet should produce no events")
	}
}

func TestMouseClamping(t *testing.T) {
	d := New(&fakePorts{}, Bounds{0, 0, 10, 10}, nil)
	d.SetPosition(0, 0)

	// dx byte 0xF0 = -16 once sign-extended: should clamp at 0, not go negative.
	d.onByte(0x18) // ALWAYS_ONE | sign X, no buttons
	d.onByte(0xF0)
	d.onByte(0)

	st := d.State()
	if st.X != 0 {
		t.Fatalf("x = %d, want clamped to 0", st.X)
	}
}

func TestMouseRingDropsNewestOnOverflow(t *testing.T) {
	d := New(&fakePorts{}, Bounds{-100000, -100000, 100000, 100000}, nil)
	for i := 0; i < ringCapacity+10; i++ {
		d.onByte(0x08) // always-one, no buttons
		d.onByte(1)    // dx=1 so a MOVE event is always emitted
		d.onByte(0)
	}
	count := 0
	var e Event
	for d.GetEvent(&e) {
		count++
	}
	if count != ringCapacity {
		t.Fatalf("drained %d events, want exactly %d (capacity)", count, ringCapacity)
	}
}

func TestButtonName(t *testing.T) {
	cases := []struct {
		mask uint8
		want string
	}{
		{0, "NONE"},
		{ButtonLeft, "LEFT"},
		{ButtonLeft | ButtonRight, "LEFT+RIGHT"},
		{ButtonLeft | ButtonRight | ButtonMiddle, "LEFT+RIGHT+MIDDLE"},
	}
	for _, c := range cases {
		if got := ButtonName(c.mask); got != c.want {
			t.Fatalf("ButtonName(%#x) = %q, want %q", c.mask, got, c.want)
		}
	}
}
