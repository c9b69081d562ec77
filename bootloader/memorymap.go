package bootloader

import (
	"encoding/binary"
	"sort"
)

// MemType is the compact memory region classification recorded in the
// handoff's memory map, per spec.md §3 "Memory map entry".
type MemType uint32

const (
	MemUsable      MemType = 1
	MemReserved    MemType = 2
	MemACPIReclaim MemType = 3
	MemACPINVS     MemType = 4
	MemBad         MemType = 5
)

// MemoryMapEntry is the packed 24-byte wire form of one memory region,
// per spec.md §6 "Memory-map entry (packed, 24 bytes)".
type MemoryMapEntry struct {
	Base       uint64
	Length     uint64
	Type       MemType
	Attributes uint32
}

const memoryMapEntrySize = 24

func (e MemoryMapEntry) encode(dst []byte) {
	binary.LittleEndian.PutUint64(dst[0:8], e.Base)
	binary.LittleEndian.PutUint64(dst[8:16], e.Length)
	binary.LittleEndian.PutUint32(dst[16:20], uint32(e.Type))
	binary.LittleEndian.PutUint32(dst[20:24], e.Attributes)
}

func decodeMemoryMapEntry(src []byte) MemoryMapEntry {
	return MemoryMapEntry{
		Base:       binary.LittleEndian.Uint64(src[0:8]),
		Length:     binary.LittleEndian.Uint64(src[8:16]),
		Type:       MemType(binary.LittleEndian.Uint32(src[16:20])),
		Attributes: binary.LittleEndian.Uint32(src[20:24]),
	}
}

func encodeMemoryMap(entries []MemoryMapEntry) []byte {
	buf := make([]byte, len(entries)*memoryMapEntrySize)
	for i, e := range entries {
		e.encode(buf[i*memoryMapEntrySize : (i+1)*memoryMapEntrySize])
	}
	return buf
}

// translateMemType maps a firmware-native descriptor type to the
// compact form, per spec.md §4.1 "get_memory_map()".
func translateMemType(t NativeMemType) MemType {
	switch t {
	case LoaderCode, LoaderData, BootServicesCode, BootServicesData, Conventional:
		return MemUsable
	case ACPIReclaim:
		return MemACPIReclaim
	case ACPIMemoryNVS:
		return MemACPINVS
	case Unusable:
		return MemBad
	default:
		return MemReserved
	}
}

// GetMemoryMap asks fw for its native map, translates every
// descriptor, and returns the result ordered by ascending base and
// capped at maxEntries, per spec.md §4.1. The firmware's opaque map
// key is returned alongside for a subsequent ExitBootServices call.
func GetMemoryMap(fw Firmware, maxEntries int) ([]MemoryMapEntry, uint64) {
	native, key := fw.NativeMemoryMap()
	out := make([]MemoryMapEntry, 0, len(native))
	for _, n := range native {
		out = append(out, MemoryMapEntry{
			Base:   n.Base,
			Length: n.Length,
			Type:   translateMemType(n.Type),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Base < out[j].Base })
	if len(out) > maxEntries {
		out = out[:maxEntries]
	}
	return out, key
}
