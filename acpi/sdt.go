package acpi

import "encoding/binary"

// RSDPDescriptor is the ACPI 1.0+ root system descriptor pointer,
// per spec.md §3 "ACPI root table pointer (RSDP)". Layout follows
// gopher-os's device/acpi/table package.
type RSDPDescriptor struct {
	Signature [8]byte
	Checksum  uint8
	OEMID     [6]byte
	Revision  uint8
	RSDTAddr  uint32

	// Present only when Revision >= 2.
	Length           uint32
	XSDTAddr         uint64
	ExtendedChecksum uint8
}

// SDTHeader is the common 36-byte header shared by every ACPI table,
// per spec.md §3 "ACPI SDT (any table)".
type SDTHeader struct {
	Signature       [4]byte
	Length          uint32
	Revision        uint8
	Checksum        uint8
	OEMID           [6]byte
	OEMTableID      [8]byte
	OEMRevision     uint32
	CreatorID       uint32
	CreatorRevision uint32
}

const sdtHeaderSize = 36

// checksum8 reports whether the bytes of buf sum to zero modulo 256,
// the validity check spec.md applies uniformly to the RSDP and every
// SDT.
func checksum8(buf []byte) bool {
	var sum uint8
	for _, b := range buf {
		sum += b
	}
	return sum == 0
}

// decodeRSDP parses an RSDP out of buf, which must be at least 20
// bytes (v1) and, if Revision >= 2, at least 36 bytes. It does not
// validate the checksum; callers do that separately so they can choose
// which length to check it over.
func decodeRSDP(buf []byte) (RSDPDescriptor, bool) {
	if len(buf) < 20 {
		return RSDPDescriptor{}, false
	}
	var r RSDPDescriptor
	copy(r.Signature[:], buf[0:8])
	r.Checksum = buf[8]
	copy(r.OEMID[:], buf[9:15])
	r.Revision = buf[15]
	r.RSDTAddr = binary.LittleEndian.Uint32(buf[16:20])
	if r.Revision >= 2 && len(buf) >= 36 {
		r.Length = binary.LittleEndian.Uint32(buf[20:24])
		r.XSDTAddr = binary.LittleEndian.Uint64(buf[24:32])
		r.ExtendedChecksum = buf[32]
	}
	return r, true
}

func decodeSDTHeader(buf []byte) (SDTHeader, bool) {
	if len(buf) < sdtHeaderSize {
		return SDTHeader{}, false
	}
	var h SDTHeader
	copy(h.Signature[:], buf[0:4])
	h.Length = binary.LittleEndian.Uint32(buf[4:8])
	h.Revision = buf[8]
	h.Checksum = buf[9]
	copy(h.OEMID[:], buf[10:16])
	copy(h.OEMTableID[:], buf[16:24])
	h.OEMRevision = binary.LittleEndian.Uint32(buf[24:28])
	h.CreatorID = binary.LittleEndian.Uint32(buf[28:32])
	h.CreatorRevision = binary.LittleEndian.Uint32(buf[32:36])
	return h, true
}
