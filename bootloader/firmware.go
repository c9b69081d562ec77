// Package bootloader implements the firmware-to-kernel boot handoff:
// reading and validating an ELF64 kernel image, translating the
// firmware memory map, negotiating a linear framebuffer, and the
// atomic exit-of-boot-services/jump sequence, per spec.md §4.1.
package bootloader

// NativeMemType is a firmware-native memory descriptor type, prior to
// translation into the compact form spec.md's handoff uses.
type NativeMemType int

const (
	LoaderCode NativeMemType = iota
	LoaderData
	BootServicesCode
	BootServicesData
	Conventional
	ACPIReclaim
	ACPIMemoryNVS
	Unusable
	ReservedMemory
	RuntimeServicesCode
	RuntimeServicesData
	MMIOMemory
	PALCode
	PersistentMemory
)

// NativeMemoryMapEntry is one descriptor as reported by firmware,
// before translation.
type NativeMemoryMapEntry struct {
	Base   uint64
	Length uint64
	Type   NativeMemType
}

// PixelFormat identifies a graphics mode's pixel layout.
type PixelFormat int

const (
	PixelFormatOther PixelFormat = iota
	PixelFormatRGB32
	PixelFormatBGR32
)

// GraphicsMode describes one mode enumerated from the firmware's
// graphics output protocol.
type GraphicsMode struct {
	Width, Height     uint32
	PixelFormat       PixelFormat
	FrameBufferBase   uint64
	PixelsPerScanline uint32
}

// Firmware captures exactly the primitives spec.md's prose assumes
// the boot environment provides. Production UEFI binding is out of
// scope (spec.md §1: "firmware protocol minutiae beyond what the boot
// loader consumes"); every test runs against a fake implementation.
type Firmware interface {
	// ReadFile loads path's entire contents from the firmware-provided
	// filesystem.
	ReadFile(path string) ([]byte, error)

	// AllocatePages requests count 4 KiB pages. If at is non-zero, the
	// firmware attempts to place the allocation at that physical
	// address; ok is false if the exact placement (or, when at == 0,
	// any placement) fails.
	AllocatePages(count uint64, at uint64) (base uint64, ok bool)

	// WriteMemory copies data into physical memory starting at addr.
	// Callers only ever target memory this package itself allocated.
	WriteMemory(addr uint64, data []byte)

	// ZeroMemory clears length bytes of physical memory starting at
	// addr.
	ZeroMemory(addr uint64, length uint64)

	// NativeMemoryMap returns the firmware's current memory map and an
	// opaque key; ExitBootServices fails if the key is stale.
	NativeMemoryMap() ([]NativeMemoryMapEntry, uint64)

	// LocateGOP enumerates graphics modes and reports the index of the
	// currently active mode. ok is false if no graphics protocol is
	// present, triggering the VGA text fallback.
	LocateGOP() (modes []GraphicsMode, currentIndex int, ok bool)

	// DisableWatchdog turns off the firmware boot watchdog ahead of
	// exiting boot services.
	DisableWatchdog()

	// ExitBootServices attempts the transition with the given map key,
	// reporting success. Once it returns true no further Firmware
	// method may be called.
	ExitBootServices(mapKey uint64) bool

	// Console writes a diagnostic line to the firmware's own console.
	Console(msg string)
}
