package acpi

import "encoding/binary"

// rootTable holds the resolved root table's entries (already read out
// of physical memory) and the entry width implied by which root table
// was selected, per spec.md §4.2 "Root table selection".
type rootTable struct {
	entries    []uint64
	entryWidth int // 4 for RSDT, 8 for XSDT
}

func selectRootTable(io IOSpace, rsdp RSDPDescriptor) (rootTable, bool) {
	// The XSDT is selected only if the checksum carried in its header
	// validates over the table's full length (the same rule findTable
	// applies to every table); otherwise the RSDT is used.
	if rsdp.Revision >= 2 && rsdp.XSDTAddr != 0 {
		hdr := make([]byte, sdtHeaderSize)
		io.ReadPhys(rsdp.XSDTAddr, hdr)
		if h, ok := decodeSDTHeader(hdr); ok {
			full := make([]byte, h.Length)
			io.ReadPhys(rsdp.XSDTAddr, full)
			if checksum8(full) {
				return readRootEntries(full, 8), true
			}
		}
	}
	if rsdp.RSDTAddr == 0 {
		return rootTable{}, false
	}
	hdr := make([]byte, sdtHeaderSize)
	io.ReadPhys(uint64(rsdp.RSDTAddr), hdr)
	h, ok := decodeSDTHeader(hdr)
	if !ok {
		return rootTable{}, false
	}
	full := make([]byte, h.Length)
	io.ReadPhys(uint64(rsdp.RSDTAddr), full)
	if !checksum8(full) {
		return rootTable{}, false
	}
	return readRootEntries(full, 4), true
}

func readRootEntries(full []byte, width int) rootTable {
	n := (len(full) - sdtHeaderSize) / width
	rt := rootTable{entryWidth: width, entries: make([]uint64, 0, n)}
	for i := 0; i < n; i++ {
		off := sdtHeaderSize + i*width
		if width == 8 {
			rt.entries = append(rt.entries, binary.LittleEndian.Uint64(full[off:off+8]))
		} else {
			rt.entries = append(rt.entries, uint64(binary.LittleEndian.Uint32(full[off:off+4])))
		}
	}
	return rt
}

// findTable linearly scans rt, returning the full bytes of the first
// table whose signature equals sig and whose checksum validates.
// Checksum failures are logged and the entry skipped, per spec.md
// §4.2 "Table lookup".
func (s *Subsystem) findTable(rt rootTable, sig string) ([]byte, bool) {
	var want [4]byte
	copy(want[:], sig)
	for _, addr := range rt.entries {
		hdr := make([]byte, sdtHeaderSize)
		s.io.ReadPhys(addr, hdr)
		h, ok := decodeSDTHeader(hdr)
		if !ok || h.Signature != want {
			continue
		}
		full := make([]byte, h.Length)
		s.io.ReadPhys(addr, full)
		if !checksum8(full) {
			s.log.Warn("acpi table checksum failed", "signature", sig, "addr", addr)
			continue
		}
		return full, true
	}
	return nil, false
}
