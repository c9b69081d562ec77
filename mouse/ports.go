// Package mouse implements the PS/2 auxiliary-device driver: the
// controller init sequence, interrupt-driven 3-byte packet
// reassembly, and a bounded single-producer/single-consumer event
// ring, per spec.md §4.3.
package mouse

// Ports abstracts the two I/O ports the PS/2 controller uses (0x60
// data, 0x64 status/command), so the init sequence and packet state
// machine can run under go test against a fake controller instead of
// real hardware.
type Ports interface {
	In8(port uint16) uint8
	Out8(port uint16, v uint8)
}

const (
	dataPort = 0x60
	cmdPort  = 0x64

	statusOutputFull = 1 << 0
	statusInputFull  = 1 << 1

	pollTimeout = 100000
)
