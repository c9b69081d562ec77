package acpi

import "encoding/binary"

var rsdpSignature = [8]byte{'R', 'S', 'D', ' ', 'P', 'T', 'R', ' '}

const (
	ebdaPointerAddr = 0x040E
	biosScanStart   = 0xE0000
	biosScanEnd     = 0x100000
	rsdpAlign       = 16
)

// discoverRSDP searches for the root system descriptor pointer at
// 16-byte alignment within the first 1 KiB of the EBDA and within
// [0xE0000, 0x100000), accepting the first candidate whose signature
// matches and whose checksum validates, per spec.md §4.2 "Discovery".
func discoverRSDP(io IOSpace) (RSDPDescriptor, bool) {
	var segBuf [2]byte
	io.ReadPhys(ebdaPointerAddr, segBuf[:])
	ebdaSeg := binary.LittleEndian.Uint16(segBuf[:])
	ebdaBase := uint64(ebdaSeg) << 4

	if r, ok := scanRSDP(io, ebdaBase, 1024); ok {
		return r, true
	}
	return scanRSDP(io, biosScanStart, biosScanEnd-biosScanStart)
}

func scanRSDP(io IOSpace, base uint64, size uint64) (RSDPDescriptor, bool) {
	var sig [8]byte
	for off := uint64(0); off+20 <= size; off += rsdpAlign {
		addr := base + off
		io.ReadPhys(addr, sig[:])
		if sig != rsdpSignature {
			continue
		}
		v1 := make([]byte, 20)
		io.ReadPhys(addr, v1)
		if !checksum8(v1) {
			continue
		}
		r, ok := decodeRSDP(v1)
		if !ok {
			continue
		}
		if r.Revision >= 2 {
			full := make([]byte, 36)
			io.ReadPhys(addr, full)
			if !checksum8(full) {
				continue
			}
			r, _ = decodeRSDP(full)
		}
		return r, true
	}
	return RSDPDescriptor{}, false
}
