package acpi

import (
	"encoding/binary"
	"log/slog"
)

const (
	// MaxCPUs, MaxIOAPICs and MaxOverrides bound the parsed topology's
	// static arrays, per spec.md §3 "MADT parsed view ... Capacity-bounded".
	MaxCPUs      = 32
	MaxIOAPICs   = 16
	MaxOverrides = 16
)

const (
	madtFixedHeaderSize = 8 // local_apic_address(4) + flags(4)
	madtEntriesOffset   = sdtHeaderSize + madtFixedHeaderSize

	madtPCATCompat = 1 << 0

	madtTypeLAPIC          = 0
	madtTypeIOAPIC         = 1
	madtTypeIntSrcOverride = 2
	madtTypeLAPICNMI       = 4
	madtTypeLAPICAddrOvr   = 5
)

// CPUEntry describes one processor local APIC recorded by the MADT.
type CPUEntry struct {
	ProcessorID uint8
	APICID      uint8
	Enabled     bool
}

// IOAPICEntry describes one I/O APIC recorded by the MADT.
type IOAPICEntry struct {
	ID          uint8
	MMIOAddress uint32
	GSIBase     uint32
}

// OverrideEntry describes one legacy-IRQ-to-GSI remapping.
type OverrideEntry struct {
	LegacyIRQ uint8
	GSI       uint32
	Flags     uint16
}

// Topology is the read-only view built once by Init and handed to
// callers thereafter, per spec.md §3 "MADT parsed view".
type Topology struct {
	LocalAPICAddress uint32
	Has8259Compat    bool
	CPUs             []CPUEntry
	IOAPICs          []IOAPICEntry
	Overrides        []OverrideEntry
}

// parseMADT walks the variable-length MADT entry stream starting
// after the fixed header, per spec.md §4.2 "MADT parse". A malformed
// entry length (0, 1, or one that would overrun the table) aborts the
// walk; everything parsed up to that point is kept.
func parseMADT(full []byte, log *slog.Logger) Topology {
	var t Topology
	if len(full) < madtEntriesOffset {
		return t
	}
	t.LocalAPICAddress = binary.LittleEndian.Uint32(full[sdtHeaderSize : sdtHeaderSize+4])
	flags := binary.LittleEndian.Uint32(full[sdtHeaderSize+4 : sdtHeaderSize+8])
	t.Has8259Compat = flags&madtPCATCompat != 0

	ptr := madtEntriesOffset
	end := len(full)
	for ptr < end {
		if ptr+2 > end {
			break
		}
		typ := full[ptr]
		length := int(full[ptr+1])
		if length < 2 || ptr+length > end {
			log.Warn("acpi madt entry malformed, aborting walk", "type", typ, "length", length)
			break
		}
		body := full[ptr : ptr+length]

		switch typ {
		case madtTypeLAPIC:
			if len(body) >= 8 && len(t.CPUs) < MaxCPUs {
				f := binary.LittleEndian.Uint32(body[4:8])
				t.CPUs = append(t.CPUs, CPUEntry{
					ProcessorID: body[2],
					APICID:      body[3],
					Enabled:     f&1 != 0,
				})
			}
		case madtTypeIOAPIC:
			if len(body) >= 12 && len(t.IOAPICs) < MaxIOAPICs {
				t.IOAPICs = append(t.IOAPICs, IOAPICEntry{
					ID:          body[2],
					MMIOAddress: binary.LittleEndian.Uint32(body[4:8]),
					GSIBase:     binary.LittleEndian.Uint32(body[8:12]),
				})
			}
		case madtTypeIntSrcOverride:
			if len(body) >= 10 && len(t.Overrides) < MaxOverrides {
				t.Overrides = append(t.Overrides, OverrideEntry{
					LegacyIRQ: body[3],
					GSI:       binary.LittleEndian.Uint32(body[4:8]),
					Flags:     binary.LittleEndian.Uint16(body[8:10]),
				})
			}
		case madtTypeLAPICNMI:
			log.Debug("acpi madt lapic nmi entry", "processor", body[2])
		case madtTypeLAPICAddrOvr:
			// Truncated to 32 bits: spec.md §9 Open Question (a) notes
			// this loses information for LAPICs above 4 GiB.
			if len(body) >= 12 {
				addr := binary.LittleEndian.Uint64(body[4:12])
				t.LocalAPICAddress = uint32(addr)
			}
		default:
			log.Debug("acpi madt entry skipped", "type", typ, "length", length)
		}
		ptr += length
	}
	return t
}
