// Package acpi implements firmware table discovery (RSDP/RSDT/XSDT/SDT),
// MADT topology parsing, and the fixed power-management primitives
// (enable, disable, shutdown, reboot), per spec.md §4.2.
package acpi

// IOSpace abstracts the I/O-port and physical-memory access the table
// walk and power primitives need, so the discovery and power-control
// logic can run under go test against a fake backed by an ordinary byte
// slice instead of real hardware.
type IOSpace interface {
	In8(port uint16) uint8
	Out8(port uint16, v uint8)
	In16(port uint16) uint16
	Out16(port uint16, v uint16)
	In32(port uint16) uint32
	Out32(port uint16, v uint32)

	// ReadPhys copies len(dst) bytes starting at physical address addr.
	// Firmware addresses are treated as identity-mapped for low memory,
	// per spec.md §9 "Firmware pointer provenance".
	ReadPhys(addr uint64, dst []byte)

	// WritePhys writes data to physical address addr, used for the
	// memory-mapped reset register path in acpi_reboot.
	WritePhys(addr uint64, data []byte)

	// TripleFault loads a zero-length IDT and raises a software
	// interrupt, the reboot path's last resort per spec.md §4.2
	// "acpi_reboot". Real implementations never return from this call.
	TripleFault()
}
