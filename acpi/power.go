package acpi

import "kcore/common"

const (
	pm1SciEn    = 1 << 0
	slpTypShift = 10
	slpEn       = 1 << 13

	// slpTypS5 is the SLP_TYP encoding for the S5 soft-off state.
	// Real firmware publishes this via the DSDT's \_S5 AML object;
	// AML interpretation is out of scope (spec.md §1 Non-goals), so
	// this assumes the common QEMU/Bochs encoding.
	slpTypS5 = 0x05

	enablePollIterations = 1000

	kbcPort      = 0x64
	kbcPulseByte = 0xFE
)

// ioDelay gives firmware/hardware time to settle between port polls,
// the same pattern the teacher kernel's busy-wait loops use.
func ioDelay(io IOSpace) { io.In8(0x80) }

// Enable turns on ACPI mode (spec.md §4.2 "acpi_enable"). A
// hardware-reduced platform (smi_command_port == 0) is treated as
// already enabled.
func (s *Subsystem) Enable() common.Status {
	if s.io.In16(uint16(s.fadt.PM1aControlBlock))&pm1SciEn != 0 {
		return common.StatusOK
	}
	if s.fadt.SMICommandPort == 0 {
		return common.StatusOK
	}
	s.io.Out8(uint16(s.fadt.SMICommandPort), s.fadt.AcpiEnableValue)
	for i := 0; i < enablePollIterations; i++ {
		ioDelay(s.io)
		if s.io.In16(uint16(s.fadt.PM1aControlBlock))&pm1SciEn != 0 {
			return common.StatusOK
		}
	}
	return common.StatusHardware
}

// Disable is the symmetric counterpart to Enable, per spec.md §4.2
// "acpi_disable".
func (s *Subsystem) Disable() common.Status {
	if s.io.In16(uint16(s.fadt.PM1aControlBlock))&pm1SciEn == 0 {
		return common.StatusOK
	}
	if s.fadt.SMICommandPort == 0 {
		return common.StatusOK
	}
	s.io.Out8(uint16(s.fadt.SMICommandPort), s.fadt.AcpiDisableValue)
	for i := 0; i < enablePollIterations; i++ {
		ioDelay(s.io)
		if s.io.In16(uint16(s.fadt.PM1aControlBlock))&pm1SciEn == 0 {
			return common.StatusOK
		}
	}
	return common.StatusHardware
}

// Shutdown enables ACPI and writes the S5 sleep command to PM1a (and
// PM1b, if present), per spec.md §4.2 "acpi_shutdown". A real
// transition to S5 never returns control to the caller; returning at
// all means shutdown failed, and the caller is expected to halt.
func (s *Subsystem) Shutdown() common.Status {
	s.Enable()
	val := uint16((slpTypS5 << slpTypShift) | slpEn)
	s.io.Out16(uint16(s.fadt.PM1aControlBlock), val)
	if s.fadt.PM1bControlBlock != 0 {
		s.io.Out16(uint16(s.fadt.PM1bControlBlock), val)
	}
	return common.StatusHardware
}

// Reboot tries, in order, the FADT reset register, a keyboard
// controller pulse, and finally a triple fault, per spec.md §4.2
// "acpi_reboot". As with Shutdown, each step that actually resets the
// machine never returns; falling through to the next step only
// happens because the prior one did nothing.
func (s *Subsystem) Reboot() {
	if s.fadt.Revision >= 2 && s.fadt.ResetReg.Address != 0 {
		switch s.fadt.ResetReg.SpaceID {
		case 0:
			s.io.WritePhys(s.fadt.ResetReg.Address, []byte{s.fadt.ResetValue})
		case 1:
			s.io.Out8(uint16(s.fadt.ResetReg.Address), s.fadt.ResetValue)
		}
	}
	s.io.Out8(kbcPort, kbcPulseByte)
	s.io.TripleFault()
}
