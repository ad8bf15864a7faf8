package boot

import (
	"fmt"

	"github.com/moffa90/go-fsbl/bootimage"
	"github.com/moffa90/go-fsbl/device"
	"github.com/moffa90/go-fsbl/handoff"
	"github.com/moffa90/go-fsbl/hw"
	"github.com/moffa90/go-fsbl/status"
)

// handoff is the handoff stage. Every registered core other than the running
// one is started; the running core then jumps to its own entry, or leaves
// the loader without one.
func (m *Machine) handoff() error {
	if m.storage != nil {
		if err := m.storage.Release(); err != nil {
			return &StorageError{Op: "release", Code: status.DeviceRelease, Err: err}
		}
	}

	if m.reset != MasterOnlyReset {
		if err := runHook("pm init", status.PMInit, m.config.Hooks.PMInit); err != nil {
			return err
		}
		if err := runHook("protection config", status.ProtectionConfig, m.config.Hooks.ProtectionConfig); err != nil {
			return err
		}
	}

	if h := m.config.Hooks.BeforeHandoff; h != nil {
		if err := h(m.state.EarlyHandoff); err != nil {
			return &HookError{Hook: "before handoff", Code: status.BeforeHandoff, Err: err}
		}
	}

	if m.mode == device.ModeJTAG {
		m.regs.Write32(hw.ErrorStatus, status.Completed)
		m.exit(0, ExitNone)
		return nil
	}

	m.regs.Write32(hw.ErrorStatus, status.Completed)
	return m.execute()
}

func (m *Machine) execute() error {
	var self *handoff.Entry
	for _, e := range m.registry.Entries() {
		if e.Core == m.running {
			e := e
			self = &e
			continue
		}
		if !m.available(e.Core) {
			return &UnavailableCoreError{Core: e.Core}
		}
		if err := m.seq.Start(e.Core, e.AArch32, e.HighVector, e.Address); err != nil {
			return err
		}
		m.result.Started = append(m.result.Started, e.Core)
		m.logInfo("core released",
			"core", e.Core.String(),
			"address", fmt.Sprintf("0x%X", e.Address),
			"aarch32", e.AArch32,
		)
	}

	if self == nil {
		m.exit(0, ExitNone)
		return nil
	}

	mode, err := m.exitMode(*self)
	if err != nil {
		return err
	}
	m.exit(self.Address, mode)
	return nil
}

// exitMode rejects a width change on the running A53. R5 cores only run
// AArch32.
func (m *Machine) exitMode(e handoff.Entry) (ExitMode, error) {
	if m.running.IsR5() {
		return Exit32, nil
	}
	if e.AArch32 != m.config.RunningAArch32 {
		return ExitNone, &UnsupportedHandoffError{
			Core:           m.running,
			RunningAArch32: m.config.RunningAArch32,
			TargetAArch32:  e.AArch32,
		}
	}
	if e.AArch32 {
		return Exit32, nil
	}
	return Exit64, nil
}

func (m *Machine) available(core bootimage.Core) bool {
	if len(m.config.AvailableCores) == 0 {
		return true
	}
	for _, c := range m.config.AvailableCores {
		if c == core {
			return true
		}
	}
	return false
}
