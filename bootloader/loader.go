package bootloader

import (
	"log/slog"

	"kcore/common"
)

const (
	pageSize           = 4096
	higherHalfBoundary = 0xFFFFFFFF80000000
	higherHalfLinkBase = 0x100000
)

// loadOffset computes the physical-to-virtual translation for a
// kernel linked in the higher half, per spec.md §4.1: kernels linked
// at or above higherHalfBoundary get offset minVaddr-higherHalfLinkBase,
// so their lowest segment loads at physical higherHalfLinkBase (1 MiB),
// and the offset is subtracted out of every virtual address the loader
// touches afterward.
func loadOffset(minVaddr uint64) uint64 {
	if minVaddr >= higherHalfBoundary {
		return minVaddr - higherHalfLinkBase
	}
	return 0
}

// LoadKernel reads the ELF image at path from fw, validates it, and
// copies every PT_LOAD segment into physical memory, per spec.md §4.1
// "load_kernel()". It returns the kernel's entry point translated to
// the physical address actually used.
func LoadKernel(fw Firmware, path string) (entry uint64, status common.Status) {
	img, err := fw.ReadFile(path)
	if err != nil {
		return 0, common.StatusNotFound
	}

	elfEntry, segments, st := parseELF(img)
	if st != common.StatusOK {
		return 0, st
	}
	if len(segments) == 0 {
		return 0, common.StatusInvalid
	}

	minVaddr, maxVaddr := segmentRange(segments)
	offset := loadOffset(minVaddr)
	pageCount := (maxVaddr-minVaddr+pageSize-1)/pageSize + 1

	base, ok := fw.AllocatePages(pageCount, minVaddr-offset)
	if !ok {
		// Exact placement failed; retry letting firmware pick any
		// address and recompute the offset against what we got.
		base, ok = fw.AllocatePages(pageCount, 0)
		if !ok {
			return 0, common.StatusHardware
		}
		offset = minVaddr - base
	}

	fw.ZeroMemory(base, pageCount*pageSize)
	for _, seg := range segments {
		if seg.FileSize == 0 {
			continue
		}
		dst := seg.Vaddr - offset
		fw.WriteMemory(dst, img[seg.FileOffset:seg.FileOffset+seg.FileSize])
	}

	return elfEntry - offset, common.StatusOK
}

// ExitBootServices performs the loader's final act. Every boot-services
// call this function needs — reading the memory map, allocating the
// handoff's memory-map storage, writing the encoded map into it — is
// made strictly before fw.ExitBootServices is invoked, and the memory
// map is read again before the retry if the first key is stale (the
// retry proceeds only if that map encodes identically): once fw.ExitBootServices
// reports success, no further Firmware method is called, per spec.md
// §4.1 ("No firmware call may occur after success"). Only the already
// written storage is used to build the returned Handoff.
func ExitBootServices(fw Firmware, profile Profile, fb Framebuffer, log *slog.Logger) (Handoff, common.Status) {
	fw.DisableWatchdog()

	entries, key := GetMemoryMap(fw, profile.MemoryMapCap)
	encoded := encodeMemoryMap(entries)

	mapBase, ok := fw.AllocatePages((uint64(len(encoded))+pageSize-1)/pageSize, 0)
	if !ok {
		return Handoff{}, common.StatusHardware
	}
	fw.WriteMemory(mapBase, encoded)

	if !fw.ExitBootServices(key) {
		retryEntries, retryKey := GetMemoryMap(fw, profile.MemoryMapCap)
		retryEncoded := encodeMemoryMap(retryEntries)
		if !bytesEqual(encoded, retryEncoded) {
			if log != nil {
				log.Error("memory map changed across exit_boot_services retry")
			}
			return Handoff{}, common.StatusHardware
		}
		entries = retryEntries
		if !fw.ExitBootServices(retryKey) {
			return Handoff{}, common.StatusHardware
		}
	}

	h := Handoff{
		Magic:           HandoffMagic,
		MemoryMapAddr:   mapBase,
		MemoryMapCount:  uint64(len(entries)),
		FramebufferAddr: fb.Base,
		FBWidth:         fb.Width,
		FBHeight:        fb.Height,
		FBBpp:           fb.Bpp,
		FBPitch:         fb.Pitch,
	}
	return h, common.StatusOK
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
