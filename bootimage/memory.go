package bootimage

// Window is a half-open physical address range [Start, End).
// The zero Window is empty and contains nothing.
type Window struct {
	Start uint64 `yaml:"start"`
	End   uint64 `yaml:"end"`
}

// Contains reports whether addr lies inside w.
func (w Window) Contains(addr uint64) bool {
	return addr >= w.Start && addr < w.End
}

// Overlaps reports whether w shares an address with [start, end).
func (w Window) Overlaps(start, end uint64) bool {
	return start < w.End && w.Start < end
}

// Empty reports whether w contains no address.
func (w Window) Empty() bool {
	return w.End <= w.Start
}

// Fixed windows of the SoC.
const (
	PMURAMStart = 0xFFDC0000
	PMURAMEnd   = 0xFFDE0000

	// TCMBankLength is the size of one R5 tightly-coupled memory bank
	TCMBankLength = 0x10000

	// TCMBStart is where the B bank of a split-mode R5 is mapped
	TCMBStart = 0x20000

	// LockstepTCMLength is the span seen by the R5 lockstep pair
	LockstepTCMLength = 4 * TCMBankLength

	// R5DDRLowLimit is the lowest DDR address an R5 may direct at an A53
	R5DDRLowLimit = 0x40000
)

// MemoryMap lists the load windows that are populated on a board. Windows
// left empty are treated as absent.
type MemoryMap struct {
	// PSDDR is the low DDR bank
	PSDDR Window `yaml:"ps_ddr"`

	// PSHighDDR is the high DDR bank
	PSHighDDR Window `yaml:"ps_high_ddr"`

	// PLDDR is DDR attached to the fabric
	PLDDR Window `yaml:"pl_ddr"`

	// OCM is the on-chip memory
	OCM Window `yaml:"ocm"`
}

// DefaultMemoryMap returns the ZynqMP map with both PS DDR banks and OCM
// populated and no fabric DDR.
func DefaultMemoryMap() MemoryMap {
	return MemoryMap{
		PSDDR:     Window{Start: 0x0, End: 0x80000000},
		PSHighDDR: Window{Start: 0x800000000, End: 0x880000000},
		OCM:       Window{Start: 0xFFFC0000, End: 0x100000000},
	}
}

func splitTCM(addr uint64) bool {
	return addr < TCMBankLength || (addr >= TCMBStart && addr < TCMBStart+TCMBankLength)
}

// Legal reports whether addr is a legal load address for a partition bound
// for core on device. core must already be defaulted.
func (m MemoryMap) Legal(core Core, dev Device, addr uint64) bool {
	switch {
	case core == CorePMU && addr >= PMURAMStart && addr < PMURAMEnd:
		return true
	case (core == CoreR5_0 || core == CoreR5_1) && splitTCM(addr):
		return true
	case core == CoreR5Lockstep && addr < LockstepTCMLength:
		return true
	case m.PSDDR.Contains(addr), m.PSHighDDR.Contains(addr), m.PLDDR.Contains(addr), m.OCM.Contains(addr):
		return true
	case dev == DevicePL && addr == PLSentinelAddress:
		return true
	}
	return false
}
