package acpi

import (
	"log/slog"

	"kcore/common"
)

// Subsystem owns the ACPI discovery state built once at boot: the
// resolved root table pointer, the parsed MADT topology, and the FADT
// power-management view, per spec.md §3 and §9 ("Built once by
// acpi_init; read-only thereafter").
type Subsystem struct {
	io  IOSpace
	log *slog.Logger

	rsdp     RSDPDescriptor
	topology Topology
	fadt     FADT
	hasFADT  bool
}

// Init discovers the RSDP, selects RSDT or XSDT, and parses the MADT
// and FADT tables if present. It fails when no RSDP can be found
// (StatusNotFound) or when neither root table validates
// (StatusHardware); a missing MADT or FADT yields a Subsystem with a zero-value
// Topology or FADT respectively, since some platforms omit one or the
// other.
func Init(io IOSpace, log *slog.Logger) (*Subsystem, common.Status) {
	if log == nil {
		log = common.Discard()
	}
	s := &Subsystem{io: io, log: log}

	rsdp, ok := discoverRSDP(io)
	if !ok {
		log.Warn("acpi rsdp not found")
		return nil, common.StatusNotFound
	}
	s.rsdp = rsdp

	rt, ok := selectRootTable(io, rsdp)
	if !ok {
		log.Warn("acpi root table invalid")
		return nil, common.StatusHardware
	}

	if madt, ok := s.findTable(rt, "APIC"); ok {
		s.topology = parseMADT(madt, log)
	} else {
		log.Info("acpi madt not present")
	}

	if facp, ok := s.findTable(rt, "FACP"); ok {
		if fadt, ok := decodeFADT(facp); ok {
			s.fadt = fadt
			s.hasFADT = true
		} else {
			log.Warn("acpi fadt too short to decode")
		}
	} else {
		log.Info("acpi fadt not present")
	}

	return s, common.StatusOK
}

// Topology returns the parsed MADT view.
func (s *Subsystem) Topology() Topology { return s.topology }

// FADT returns the cached power-management view and whether a FADT
// was found during Init.
func (s *Subsystem) FADT() (FADT, bool) { return s.fadt, s.hasFADT }

// RSDPRevision returns the discovered root pointer's revision field.
func (s *Subsystem) RSDPRevision() uint8 { return s.rsdp.Revision }
