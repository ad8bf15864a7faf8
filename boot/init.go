package boot

import (
	"github.com/moffa90/go-fsbl/bootimage"
	"github.com/moffa90/go-fsbl/hw"
	"github.com/moffa90/go-fsbl/status"
)

const (
	clusterIDMask = 0xFF00
	clusterA53    = 0x0
	clusterR5     = 0x100
)

// Processor types published in GenStorage5.
const (
	procTypeA53        = 0x1
	procTypeR5         = 0x2
	procTypeR5Lockstep = 0x3
)

// initialize is the init stage: processor identification, reset reason and,
// after a full reset, system bring-up through the board hooks.
func (m *Machine) initialize() error {
	// The crypto engines stay in reset until a partition needs them.
	m.regs.Write32(hw.CSUAESReset, hw.ResetAsserted)
	m.regs.Write32(hw.CSUSHAReset, hw.ResetAsserted)

	m.reset = m.resetReason()
	m.logInfo("reset reason", "reset", m.reset.String())
	if m.reset == PSOnlyReset {
		// Hold the PL in reset until a bitstream is loaded.
		hw.Set(m.regs, hw.CSUPCAPProg, hw.PCAPProgEnable)
	}

	if err := m.processorInit(); err != nil {
		return err
	}

	if m.reset == MasterOnlyReset {
		if m.running.IsA53() {
			m.clearPendingInterrupts()
		}
		return nil
	}

	if err := runHook("psu init", status.PsuInit, m.config.Hooks.PsuInit); err != nil {
		return err
	}
	if err := runHook("board init", status.BoardInit, m.config.Hooks.BoardInit); err != nil {
		return err
	}

	m.validateReset()
	return nil
}

// resetReason reads and clears the sticky PS-only flag, then falls back on
// the APU reset flag left by the PMU firmware.
func (m *Machine) resetReason() ResetReason {
	if m.regs.Read32(hw.ResetReason)&hw.ResetReasonPSOnly != 0 {
		m.regs.Write32(hw.ResetReason, hw.ResetReasonPSOnly)
		return PSOnlyReset
	}
	if m.regs.Read32(hw.GenStorage4)&hw.APUResetMask != 0 {
		return MasterOnlyReset
	}
	return SystemReset
}

// processorInit identifies the running core from its cluster id and
// publishes the processor type for the PMU firmware.
func (m *Machine) processorInit() error {
	id := m.cpu.ClusterID()

	var procType uint32
	switch id & clusterIDMask {
	case clusterA53:
		m.running = bootimage.CoreA53_0
		procType = procTypeA53
	case clusterR5:
		if m.regs.Read32(hw.RPUGlblCntl)&hw.RPUGlblCntlSLSplit != 0 {
			m.running = bootimage.CoreR5_0
			procType = procTypeR5
		} else {
			m.running = bootimage.CoreR5Lockstep
			procType = procTypeR5Lockstep
		}
	default:
		return &ClusterError{ClusterID: id}
	}

	m.logInfo("running on", "core", m.running.String(), "cluster", id)
	hw.Update(m.regs, hw.GenStorage5, hw.ProcTypeMask, procType<<hw.ProcTypeShift)
	return nil
}

// clearPendingInterrupts drops interrupts latched before a master-only reset.
func (m *Machine) clearPendingInterrupts() {
	for i := uint32(0); i < hw.GICDICPendRCount; i++ {
		m.regs.Write32(hw.GICDICPendR0+4*i, 0xFFFFFFFF)
	}
}

// validateReset marks the loader as running in the error status register.
func (m *Machine) validateReset() {
	if m.regs.Read32(hw.ErrorStatus) != status.Running {
		m.regs.Write32(hw.ErrorStatus, status.Running)
	}
}

func runHook(name string, code status.Code, fn func() error) error {
	if fn == nil {
		return nil
	}
	if err := fn(); err != nil {
		return &HookError{Hook: name, Code: code, Err: err}
	}
	return nil
}
