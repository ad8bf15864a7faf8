package boot

import "fmt"

// ExitMode selects how the running core leaves the loader.
type ExitMode int

const (
	// ExitNone parks the core without jumping anywhere
	ExitNone ExitMode = iota

	// Exit32 jumps to the handoff address in AArch32 state
	Exit32

	// Exit64 jumps to the handoff address in AArch64 state
	Exit64
)

func (m ExitMode) String() string {
	switch m {
	case ExitNone:
		return "none"
	case Exit32:
		return "aarch32"
	case Exit64:
		return "aarch64"
	}
	return fmt.Sprintf("exit(%d)", int(m))
}

// CPU is the core running the loader.
//
// On hardware Exit and Park do not return. Simulations may return, after
// which Run reports what the core was asked to do.
type CPU interface {
	// ClusterID returns the affinity register of the core.
	ClusterID() uint64

	// Exit transfers control to addr.
	Exit(addr uint64, mode ExitMode)

	// Park stops the core.
	Park()
}

// Hooks are board-specific steps run at fixed points of the boot. A nil
// hook is skipped.
type Hooks struct {
	// PsuInit configures clocks, MIO and DDR after a full reset
	PsuInit func() error

	// BoardInit configures board peripherals after PsuInit
	BoardInit func() error

	// PMInit hands the power management configuration to the PMU firmware
	PMInit func() error

	// ProtectionConfig applies the memory and peripheral protection units
	ProtectionConfig func() error

	// BeforeHandoff runs just before cores are started
	BeforeHandoff func(early bool) error

	// BeforeFallback runs before the soft reset of a fallback. Its error
	// is logged and the fallback proceeds.
	BeforeFallback func() error
}
