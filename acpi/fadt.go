package acpi

import "encoding/binary"

// Generic Address Structure offsets within a GenericAddress field.
const (
	gasSpaceID = 0
	gasAddress = 4
	gasSize    = 12
)

// FADT byte offsets relative to the start of the table (including its
// 36-byte SDT header), per the ACPI specification's Fixed ACPI
// Description Table layout. Only the fields spec.md's power
// primitives consume are decoded.
const (
	fadtSCIInterrupt     = 46
	fadtSMICommandPort   = 48
	fadtAcpiEnable       = 52
	fadtAcpiDisable      = 53
	fadtPM1aControlBlock = 64
	fadtPM1bControlBlock = 68
	fadtResetReg         = 116
	fadtResetValue       = 128
	fadtMinLength        = 129
)

// GenericAddress names the address space and location of a register
// block, per spec.md §3 "FADT cached view".
type GenericAddress struct {
	SpaceID uint8
	Address uint64
}

// FADT is the subset of the Fixed ACPI Description Table that power
// management needs, per spec.md §3 "FADT cached view".
type FADT struct {
	Revision          uint8
	SCIInterrupt      uint16
	SMICommandPort    uint32
	AcpiEnableValue   uint8
	AcpiDisableValue  uint8
	PM1aControlBlock  uint32
	PM1bControlBlock  uint32
	ResetReg          GenericAddress
	ResetValue        uint8
}

func decodeFADT(full []byte) (FADT, bool) {
	hdr, ok := decodeSDTHeader(full)
	if !ok || len(full) < fadtMinLength {
		return FADT{}, false
	}
	f := FADT{
		Revision:         hdr.Revision,
		SCIInterrupt:     binary.LittleEndian.Uint16(full[fadtSCIInterrupt : fadtSCIInterrupt+2]),
		SMICommandPort:   binary.LittleEndian.Uint32(full[fadtSMICommandPort : fadtSMICommandPort+4]),
		AcpiEnableValue:  full[fadtAcpiEnable],
		AcpiDisableValue: full[fadtAcpiDisable],
		PM1aControlBlock: binary.LittleEndian.Uint32(full[fadtPM1aControlBlock : fadtPM1aControlBlock+4]),
		PM1bControlBlock: binary.LittleEndian.Uint32(full[fadtPM1bControlBlock : fadtPM1bControlBlock+4]),
		ResetValue:       full[fadtResetValue],
	}
	gas := full[fadtResetReg : fadtResetReg+gasSize]
	f.ResetReg = GenericAddress{
		SpaceID: gas[gasSpaceID],
		Address: binary.LittleEndian.Uint64(gas[gasAddress : gasAddress+8]),
	}
	return f, true
}
