package boot

import (
	"fmt"

	"github.com/moffa90/go-fsbl/device"
	"github.com/moffa90/go-fsbl/hw"
)

// lockdown records a failed boot and either falls back to the next image or
// parks the running core.
func (m *Machine) lockdown(code uint32) {
	m.regs.Write32(hw.ErrorStatus, code)
	m.logError("boot failed", "status", fmt.Sprintf("0x%08X", code))

	// The strap is read again: the failure may predate boot device detection.
	mode := device.BootMode(m.regs.Read32(hw.BootModeUser) & hw.BootModeMask)
	if !mode.Retryable() {
		m.logInfo("fallback not supported", "mode", mode.String())
		hw.Set(m.regs, hw.GenStorage5, hw.ExecCompleted)
		m.park()
		return
	}
	m.fallback()
}

// fallback selects the next image and soft resets the system. A master-only
// restart must not reset the rest of the system, so the core parks instead.
func (m *Machine) fallback() {
	if h := m.config.Hooks.BeforeFallback; h != nil {
		if err := h(); err != nil {
			m.logError("before fallback hook failed", "error", err)
		}
	}

	next := m.regs.Read32(hw.CSUMultiBoot) + 1
	m.logInfo("performing fallback", "multiboot", next)
	m.regs.Write32(hw.CSUMultiBoot, next)

	if m.reset == MasterOnlyReset {
		m.park()
		return
	}

	hw.Set(m.regs, hw.ResetCtrl, hw.ResetCtrlSoftReset)
	m.result.Fallback = true
}

func (m *Machine) park() {
	m.result.Parked = true
	m.cpu.Park()
}
