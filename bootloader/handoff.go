package bootloader

import "encoding/binary"

// HandoffMagic is the single 32-bit constant by which the kernel
// verifies provenance of the handoff record, per spec.md §3/§6.
const HandoffMagic uint32 = 0xAAAB007

// handoffSize is the packed wire size of Handoff, per spec.md §6's
// offset table (0..47).
const handoffSize = 48

// Handoff is the structure the loader fills and the kernel entry
// point receives a physical pointer to, per spec.md §3 "Boot handoff"
// and §6's byte layout.
type Handoff struct {
	Magic           uint32
	MemoryMapAddr   uint64
	MemoryMapCount  uint64
	FramebufferAddr uint64
	FBWidth         uint32
	FBHeight        uint32
	FBBpp           uint32
	FBPitch         uint32
}

// Encode packs h into its 48-byte little-endian wire form.
func (h Handoff) Encode() []byte {
	buf := make([]byte, handoffSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], 0) // reserved
	binary.LittleEndian.PutUint64(buf[8:16], h.MemoryMapAddr)
	binary.LittleEndian.PutUint64(buf[16:24], h.MemoryMapCount)
	binary.LittleEndian.PutUint64(buf[24:32], h.FramebufferAddr)
	binary.LittleEndian.PutUint32(buf[32:36], h.FBWidth)
	binary.LittleEndian.PutUint32(buf[36:40], h.FBHeight)
	binary.LittleEndian.PutUint32(buf[40:44], h.FBBpp)
	binary.LittleEndian.PutUint32(buf[44:48], h.FBPitch)
	return buf
}

// DecodeHandoff unpacks a Handoff from its wire form, used by tests
// that verify what the loader would have written.
func DecodeHandoff(buf []byte) (Handoff, bool) {
	if len(buf) < handoffSize {
		return Handoff{}, false
	}
	return Handoff{
		Magic:           binary.LittleEndian.Uint32(buf[0:4]),
		MemoryMapAddr:   binary.LittleEndian.Uint64(buf[8:16]),
		MemoryMapCount:  binary.LittleEndian.Uint64(buf[16:24]),
		FramebufferAddr: binary.LittleEndian.Uint64(buf[24:32]),
		FBWidth:         binary.LittleEndian.Uint32(buf[32:36]),
		FBHeight:        binary.LittleEndian.Uint32(buf[36:40]),
		FBBpp:           binary.LittleEndian.Uint32(buf[40:44]),
		FBPitch:         binary.LittleEndian.Uint32(buf[44:48]),
	}, true
}
