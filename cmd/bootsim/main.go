// Command bootsim drives the boot loader against an in-memory firmware
// stand-in, exercising the full load/negotiate/exit sequence the way
// a real bootstrap would, for manual inspection during development.
package main

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"kcore/bootloader"
	"kcore/common"
)

const pageSize = 4096

// simFirmware is a minimal Firmware backing store good enough to walk
// the loader end to end; it is not a fake test double (those live
// alongside their package's tests) but a standalone demo harness.
type simFirmware struct {
	files   map[string][]byte
	mem     map[uint64][]byte
	nextPhy uint64
	native  []bootloader.NativeMemoryMapEntry
	mapKey  uint64
	modes   []bootloader.GraphicsMode
	log     *slog.Logger
}

func (f *simFirmware) ReadFile(path string) ([]byte, error) {
	b, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("bootsim: no such file %q", path)
	}
	return b, nil
}

func (f *simFirmware) AllocatePages(count uint64, at uint64) (uint64, bool) {
	base := at
	if base == 0 {
		base = f.nextPhy
		f.nextPhy += count * pageSize
	}
	f.mem[base] = make([]byte, count*pageSize)
	return base, true
}

func (f *simFirmware) WriteMemory(addr uint64, data []byte) {
	buf := make([]byte, len(data))
	copy(buf, data)
	f.mem[addr] = buf
}

func (f *simFirmware) ZeroMemory(addr uint64, length uint64) {
	f.mem[addr] = make([]byte, length)
}

func (f *simFirmware) NativeMemoryMap() ([]bootloader.NativeMemoryMapEntry, uint64) {
	return f.native, f.mapKey
}

func (f *simFirmware) LocateGOP() ([]bootloader.GraphicsMode, int, bool) {
	return f.modes, 0, len(f.modes) > 0
}

func (f *simFirmware) DisableWatchdog() {
	f.log.Debug("watchdog disabled")
}

func (f *simFirmware) ExitBootServices(key uint64) bool {
	return key == f.mapKey
}

func (f *simFirmware) Console(msg string) {
	f.log.Info("firmware console", "msg", msg)
}

// buildDemoKernel assembles a tiny valid higher-half ELF64 image so
// this command has something realistic to load.
func buildDemoKernel() []byte {
	const ehSize, phSize = 64, 56
	const vaddr = uint64(0xFFFFFFFF80100000)
	const entry = vaddr + 0x10
	payload := []byte{0x90, 0x90, 0xF4} // nop; nop; hlt

	buf := make([]byte, ehSize+phSize+len(payload))
	copy(buf[0:4], []byte{0x7F, 'E', 'L', 'F'})
	buf[4], buf[5] = 2, 1 // 64-bit, little-endian
	binary.LittleEndian.PutUint16(buf[16:18], 2)    // ET_EXEC
	binary.LittleEndian.PutUint16(buf[18:20], 0x3E) // EM_X86_64
	binary.LittleEndian.PutUint64(buf[24:32], entry)
	binary.LittleEndian.PutUint64(buf[32:40], ehSize)
	binary.LittleEndian.PutUint16(buf[54:56], phSize)
	binary.LittleEndian.PutUint16(buf[56:58], 1)

	ph := buf[ehSize : ehSize+phSize]
	binary.LittleEndian.PutUint32(ph[0:4], 1) // PT_LOAD
	binary.LittleEndian.PutUint64(ph[8:16], ehSize+phSize)
	binary.LittleEndian.PutUint64(ph[16:24], vaddr)
	binary.LittleEndian.PutUint64(ph[32:40], uint64(len(payload)))
	binary.LittleEndian.PutUint64(ph[40:48], uint64(len(payload)))

	copy(buf[ehSize+phSize:], payload)
	return buf
}

func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))
	bootID := uuid.New()
	log = log.With("boot_id", bootID.String())

	profileData := []byte("kernel_path: /kernel.elf\nmemory_map_cap: 64\n")
	profile, err := bootloader.LoadProfile(profileData)
	if err != nil {
		log.Error("profile load failed", "err", err)
		os.Exit(1)
	}

	fw := &simFirmware{
		files:   map[string][]byte{profile.KernelPath: buildDemoKernel()},
		mem:     map[uint64][]byte{},
		nextPhy: 0x400000,
		mapKey:  42,
		native: []bootloader.NativeMemoryMapEntry{
			{Base: 0, Length: 0x9F000, Type: bootloader.Conventional},
			{Base: 0x100000, Length: 0x7F00000, Type: bootloader.Conventional},
		},
		modes: []bootloader.GraphicsMode{
			{Width: 1280, Height: 800, PixelFormat: bootloader.PixelFormatBGR32, FrameBufferBase: 0xE0000000, PixelsPerScanline: 1280},
		},
		log: log,
	}

	entry, st := bootloader.LoadKernel(fw, profile.KernelPath)
	if st != common.StatusOK {
		log.Error("load_kernel failed", "status", st)
		os.Exit(1)
	}
	log.Info("kernel loaded", "entry", fmt.Sprintf("%#x", entry))

	fb := bootloader.SetupFramebuffer(fw, profile.ResolveFramebufferBand())
	log.Info("framebuffer negotiated", "width", fb.Width, "height", fb.Height, "bpp", fb.Bpp)

	handoff, st := bootloader.ExitBootServices(fw, profile, fb, log)
	if st != common.StatusOK {
		log.Error("exit_boot_services failed", "status", st)
		os.Exit(1)
	}
	log.Info("exit boot services complete",
		"memory_map_addr", fmt.Sprintf("%#x", handoff.MemoryMapAddr),
		"memory_map_count", handoff.MemoryMapCount,
		"kernel_entry", fmt.Sprintf("%#x", entry),
	)
}
