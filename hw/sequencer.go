package hw

import (
	"fmt"
	"time"

	"github.com/moffa90/go-fsbl/bootimage"
	"github.com/moffa90/go-fsbl/status"
)

// R5SettleDelay is the wait between enabling the R5 clock and releasing reset.
const R5SettleDelay = 0x50 * time.Microsecond

// CoreState is the bring-up progress of a core.
type CoreState int

const (
	Off CoreState = iota
	PowerRequested
	Clocked
	ResetReleased
)

func (s CoreState) String() string {
	switch s {
	case Off:
		return "off"
	case PowerRequested:
		return "power-requested"
	case Clocked:
		return "clocked"
	case ResetReleased:
		return "reset-released"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// CoreError indicates a core the sequencer cannot start.
type CoreError struct {
	Core bootimage.Core
}

func (e *CoreError) Error() string {
	return fmt.Sprintf("cannot sequence core %s", e.Core)
}

func (e *CoreError) StatusCode() status.Code { return status.HandoffCoreID }

// OrderError indicates a sequencing step issued in the wrong state.
type OrderError struct {
	Core  bootimage.Core
	Step  string
	State CoreState
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("%s on core %s in state %s", e.Step, e.Core, e.State)
}

func (e *OrderError) StatusCode() status.Code { return status.PowerUpCore }

// Sequencer brings cores out of reset. A core goes through PowerUp,
// ConfigureWidth and SetResetVector, then EnableClockAndReleaseReset.
type Sequencer struct {
	regs Registers

	// Retries bounds each power-up acknowledge poll
	Retries uint64

	// Settle waits out the R5 clock settle delay
	Settle func(time.Duration)

	states map[bootimage.Core]CoreState
}

// NewSequencer returns a Sequencer driving regs.
func NewSequencer(regs Registers) *Sequencer {
	if regs == nil {
		panic("registers cannot be nil")
	}
	return &Sequencer{
		regs:    regs,
		Retries: DefaultPowerRetries,
		Settle:  time.Sleep,
		states:  make(map[bootimage.Core]CoreState),
	}
}

// State returns the bring-up state of core.
func (s *Sequencer) State(core bootimage.Core) CoreState {
	return s.states[core]
}

func (s *Sequencer) require(core bootimage.Core, step string, want CoreState) error {
	if got := s.states[core]; got != want {
		return &OrderError{Core: core, Step: step, State: got}
	}
	return nil
}

func rpuCfg(core bootimage.Core) uint32 {
	if core == bootimage.CoreR5_1 {
		return RPU1Cfg
	}
	return RPU0Cfg
}

// PowerUp requests the power islands of core and, for R5 cores, selects
// split or lockstep mode and holds the cores halted.
func (s *Sequencer) PowerUp(core bootimage.Core) error {
	if err := s.require(core, "power up", Off); err != nil {
		return err
	}

	var mask uint32
	switch {
	case core.IsA53():
		mask = PwrACPU0<<core.A53Index() | PwrFP | PwrL2Bank0
	case core == bootimage.CoreR5_0:
		mask = PwrR50 | PwrTCM0A | PwrTCM0B
	case core == bootimage.CoreR5_1:
		mask = PwrR51 | PwrTCM1A | PwrTCM1B
	case core == bootimage.CoreR5Lockstep:
		mask = PwrR50 | PwrTCM0A | PwrTCM0B | PwrTCM1A | PwrTCM1B
	default:
		return &CoreError{Core: core}
	}

	if err := PowerUpIsland(s.regs, mask, s.Retries); err != nil {
		return &PowerUpError{Core: core, Mask: mask, Err: err}
	}

	switch core {
	case bootimage.CoreR5_0, bootimage.CoreR5_1:
		Set(s.regs, RPUGlblCntl, RPUGlblCntlSLSplit)
		Clear(s.regs, RPUGlblCntl, RPUGlblCntlTCMComb|RPUGlblCntlSLClamp)
		Clear(s.regs, rpuCfg(core), RPUCfgNCPUHalt)
	case bootimage.CoreR5Lockstep:
		Clear(s.regs, RPUGlblCntl, RPUGlblCntlSLSplit)
		Set(s.regs, RPUGlblCntl, RPUGlblCntlTCMComb|RPUGlblCntlSLClamp)
		Clear(s.regs, RPU0Cfg, RPUCfgNCPUHalt)
		Clear(s.regs, RPU1Cfg, RPUCfgNCPUHalt)
	}

	s.states[core] = PowerRequested
	return nil
}

// ConfigureWidth selects AArch32 or AArch64 for an A53 core. It is a no-op
// for R5 cores, which only run 32-bit.
func (s *Sequencer) ConfigureWidth(core bootimage.Core, aarch32 bool) error {
	if err := s.require(core, "configure width", PowerRequested); err != nil {
		return err
	}
	if !core.IsA53() {
		return nil
	}
	bit := uint32(1) << core.A53Index()
	if aarch32 {
		Clear(s.regs, APUConfig0, bit)
	} else {
		Set(s.regs, APUConfig0, bit)
	}
	return nil
}

// SetResetVector programs where core starts. R5 cores and 32-bit A53 cores
// choose between the low and high vector; 64-bit A53 cores take addr.
func (s *Sequencer) SetResetVector(core bootimage.Core, aarch32, high bool, addr uint64) error {
	if err := s.require(core, "set reset vector", PowerRequested); err != nil {
		return err
	}

	switch {
	case core.IsR5():
		if high {
			Set(s.regs, rpuCfg(core), RPUCfgVInitHi)
		} else {
			Clear(s.regs, rpuCfg(core), RPUCfgVInitHi)
		}
	case core.IsA53() && aarch32:
		bit := uint32(1) << (APUConfig0VInitHiShift + core.A53Index())
		if high {
			Set(s.regs, APUConfig0, bit)
		} else {
			Clear(s.regs, APUConfig0, bit)
		}
	case core.IsA53():
		lo := uint32(RVBARAddr0L + 8*core.A53Index())
		s.regs.Write32(lo, uint32(addr))
		s.regs.Write32(lo+4, uint32(addr>>32))
	default:
		return &CoreError{Core: core}
	}
	return nil
}

// EnableClockAndReleaseReset starts the clock of core and takes it out of
// reset. An R5 lockstep pair is released together.
func (s *Sequencer) EnableClockAndReleaseReset(core bootimage.Core) error {
	if err := s.require(core, "release reset", PowerRequested); err != nil {
		return err
	}

	switch {
	case core.IsA53():
		Set(s.regs, ACPUCtrl, ACPUCtrlClkActFull|ACPUCtrlClkActHalf)
		s.states[core] = Clocked
		x := core.A53Index()
		Clear(s.regs, RstFPDAPU, 1<<x|RstFPDAPUL2|1<<(RstFPDAPUPwronShift+x))
	case core == bootimage.CoreR5_0, core == bootimage.CoreR5_1:
		rst := uint32(RstLPDTopR50)
		if core == bootimage.CoreR5_1 {
			rst = RstLPDTopR51
		}
		Set(s.regs, CPUR5Ctrl, CPUR5CtrlClkAct)
		s.states[core] = Clocked
		s.Settle(R5SettleDelay)
		Clear(s.regs, RstLPDTop, rst|RstLPDTopAMBA)
		Set(s.regs, rpuCfg(core), RPUCfgNCPUHalt)
	case core == bootimage.CoreR5Lockstep:
		Set(s.regs, CPUR5Ctrl, CPUR5CtrlClkAct)
		s.states[core] = Clocked
		s.Settle(R5SettleDelay)
		Clear(s.regs, RstLPDTop, RstLPDTopR5All)
		Set(s.regs, RPU0Cfg, RPUCfgNCPUHalt)
		Set(s.regs, RPU1Cfg, RPUCfgNCPUHalt)
	default:
		return &CoreError{Core: core}
	}

	s.states[core] = ResetReleased
	return nil
}

// Start runs the whole bring-up of core.
func (s *Sequencer) Start(core bootimage.Core, aarch32, high bool, addr uint64) error {
	if err := s.PowerUp(core); err != nil {
		return err
	}
	if err := s.ConfigureWidth(core, aarch32); err != nil {
		return err
	}
	if err := s.SetResetVector(core, aarch32, high, addr); err != nil {
		return err
	}
	return s.EnableClockAndReleaseReset(core)
}
