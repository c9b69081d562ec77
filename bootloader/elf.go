package bootloader

import (
	"encoding/binary"

	"kcore/common"
)

const (
	elfClass64      = 2
	elfDataLE       = 1
	elfMachineX8664 = 0x3E
	elfTypeExec     = 2
	elfTypeDyn      = 3

	ptLoad = 1

	elfHeaderSize = 64
	phdrSize      = 56
)

var elfMagic = [4]byte{0x7F, 'E', 'L', 'F'}

// LoadSegment is one PT_LOAD program header's relevant fields.
type LoadSegment struct {
	Vaddr      uint64
	FileOffset uint64
	FileSize   uint64
	MemSize    uint64
}

// parseELF validates the ELF64 constraints spec.md §6 lists and
// returns the entry point and every PT_LOAD segment, in program
// header order. Non-LOAD segments are ignored.
func parseELF(img []byte) (entry uint64, segments []LoadSegment, status common.Status) {
	if len(img) < elfHeaderSize {
		return 0, nil, common.StatusInvalid
	}
	var magic [4]byte
	copy(magic[:], img[0:4])
	if magic != elfMagic {
		return 0, nil, common.StatusInvalid
	}
	if img[4] != elfClass64 || img[5] != elfDataLE {
		return 0, nil, common.StatusInvalid
	}
	machine := binary.LittleEndian.Uint16(img[18:20])
	if machine != elfMachineX8664 {
		return 0, nil, common.StatusInvalid
	}
	etype := binary.LittleEndian.Uint16(img[16:18])
	if etype != elfTypeExec && etype != elfTypeDyn {
		return 0, nil, common.StatusInvalid
	}

	entry = binary.LittleEndian.Uint64(img[24:32])
	phoff := binary.LittleEndian.Uint64(img[32:40])
	phentsize := binary.LittleEndian.Uint16(img[54:56])
	phnum := binary.LittleEndian.Uint16(img[56:58])

	for i := uint16(0); i < phnum; i++ {
		off := phoff + uint64(i)*uint64(phentsize)
		if off+phdrSize > uint64(len(img)) {
			return 0, nil, common.StatusInvalid
		}
		ph := img[off : off+phdrSize]
		if binary.LittleEndian.Uint32(ph[0:4]) != ptLoad {
			continue
		}
		segments = append(segments, LoadSegment{
			FileOffset: binary.LittleEndian.Uint64(ph[8:16]),
			Vaddr:      binary.LittleEndian.Uint64(ph[16:24]),
			FileSize:   binary.LittleEndian.Uint64(ph[32:40]),
			MemSize:    binary.LittleEndian.Uint64(ph[40:48]),
		})
	}
	return entry, segments, common.StatusOK
}

func segmentRange(segments []LoadSegment) (minVaddr, maxVaddr uint64) {
	minVaddr = ^uint64(0)
	for _, s := range segments {
		if s.Vaddr < minVaddr {
			minVaddr = s.Vaddr
		}
		if end := s.Vaddr + s.MemSize; end > maxVaddr {
			maxVaddr = end
		}
	}
	return minVaddr, maxVaddr
}
