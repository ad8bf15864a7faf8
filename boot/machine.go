package boot

import (
	"context"
	"errors"

	"github.com/moffa90/go-fsbl/bootimage"
	"github.com/moffa90/go-fsbl/device"
	"github.com/moffa90/go-fsbl/handoff"
	"github.com/moffa90/go-fsbl/hw"
	"github.com/moffa90/go-fsbl/loader"
	"github.com/moffa90/go-fsbl/status"
)

// ResetReason is the kind of reset that started the loader.
type ResetReason int

const (
	// SystemReset restarted the whole device
	SystemReset ResetReason = iota

	// PSOnlyReset restarted the processing system but not the PL
	PSOnlyReset

	// MasterOnlyReset restarted only the boot master cluster
	MasterOnlyReset
)

func (r ResetReason) String() string {
	switch r {
	case SystemReset:
		return "system"
	case PSOnlyReset:
		return "ps only"
	case MasterOnlyReset:
		return "master only"
	}
	return "unknown"
}

// Result describes how a boot ended.
type Result struct {
	// State is the final state of the stage machine
	State State

	// RunningCore is the core the loader ran on
	RunningCore bootimage.Core

	// Reset is the detected reset reason
	Reset ResetReason

	// BootMode is the detected boot mode
	BootMode device.BootMode

	// Image is the header set read from the boot device
	Image *bootimage.Image

	// Entries are the registered handoff entries
	Entries []handoff.Entry

	// Started lists the cores released from reset, in order
	Started []bootimage.Core

	// Exited is set when the running core left the loader
	Exited bool

	// ExitAddress and ExitMode describe that exit
	ExitAddress uint64
	ExitMode    ExitMode

	// Fallback is set when a soft reset to the next image was requested
	Fallback bool

	// Parked is set when the running core was parked
	Parked bool
}

// Machine runs the boot sequence of the loader.
//
// A Machine is not safe for concurrent use. Each Run starts from a fresh
// boot state.
type Machine struct {
	regs   hw.Registers
	mem    device.Memory
	cpu    CPU
	config Config

	// per run
	state    State
	result   *Result
	running  bootimage.Core
	reset    ResetReason
	mode     device.BootMode
	storage  device.Storage
	image    *bootimage.Image
	offset   uint32
	registry *handoff.Registry
	params   *handoff.ParamBuilder
	seq      *hw.Sequencer
	loader   *loader.Loader
}

// New creates a Machine driving regs and mem on behalf of cpu.
//
// Example:
//
//	regs := hw.NewMap()
//	mem := device.NewRAM()
//	m := boot.New(regs, mem, cpu,
//	    boot.WithStorage(device.ModeSD1, sd),
//	    boot.WithHooks(boot.Hooks{PsuInit: psuInit}),
//	)
func New(regs hw.Registers, mem device.Memory, cpu CPU, opts ...Option) *Machine {
	if regs == nil {
		panic("registers cannot be nil")
	}
	if mem == nil {
		panic("memory cannot be nil")
	}
	if cpu == nil {
		panic("cpu cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Machine{
		regs:   regs,
		mem:    mem,
		cpu:    cpu,
		config: cfg,
	}
}

// Run boots until control is handed off or the boot fails.
//
// On failure the status is written to the error status register, the
// fallback is attempted when the boot mode supports it, and the returned
// error is a *StageError. The Result is returned in both cases.
//
// ctx only bounds the wait for the PMU firmware; stages are not
// interrupted otherwise.
func (m *Machine) Run(ctx context.Context) (*Result, error) {
	m.reset = SystemReset
	m.running = bootimage.CoreNone
	m.mode = device.ModeJTAG
	m.storage = nil
	m.image = nil
	m.offset = 0
	m.loader = nil
	m.registry = handoff.NewRegistry()
	m.params = handoff.NewParamBuilder(m.mem, m.regs, m.config.HandoffParamsAddress)
	m.seq = hw.NewSequencer(m.regs)
	m.seq.Retries = m.config.PowerRetries
	m.seq.Settle = m.config.SettleDelay

	m.state = Initial()
	m.result = &Result{}
	var failure error

	for {
		m.reportProgress()

		stage := m.state.Stage
		var ev Event
		var err error

		switch stage {
		case StageInit:
			err = m.initialize()
		case StageBootDeviceInit:
			err = m.initBootDevice()
			if m.image != nil {
				ev.Partitions = len(m.image.Partitions)
			}
		case StagePartitionLoad:
			err = m.loadPartition(ctx)
		case StageHandoff:
			err = m.handoff()
		case StageDone:
			m.finish()
			return m.result, nil
		case StageFailed:
			m.finish()
			m.lockdown(m.state.Persisted())
			return m.result, failure
		}

		ev.Status = status.CodeOf(err)
		if errors.Is(err, ErrJTAGMode) {
			m.markR5Usable()
		} else if err != nil {
			failure = &StageError{Stage: stage, Err: err}
			m.logError("stage failed", "stage", stage.String(), "status", ev.Status.String(), "error", err)
		}

		m.state = Next(m.state, ev)
		if m.state.Stage != stage {
			m.logDebug("stage transition", "from", stage.String(), "to", m.state.Stage.String())
		}
	}
}

// loadPartition is the partition load stage for State.Partition.
func (m *Machine) loadPartition(ctx context.Context) error {
	res, err := m.loader.Load(ctx, loader.Target{
		Image:           m.image,
		ImageOffset:     m.offset,
		RunningCore:     m.running,
		MasterOnlyReset: m.reset == MasterOnlyReset,
	}, m.state.Partition)
	if err != nil {
		return err
	}
	if res.Skipped {
		m.logInfo("partition skipped", "partition", m.state.Partition, "core", res.Core.String())
		return nil
	}
	m.logInfo("partition loaded",
		"partition", m.state.Partition,
		"core", res.Core.String(),
		"bytes", res.Bytes,
		"xip", res.ExecuteInPlace,
	)
	return nil
}

func (m *Machine) finish() {
	m.result.State = m.state
	m.result.RunningCore = m.running
	m.result.Reset = m.reset
	m.result.BootMode = m.mode
	m.result.Image = m.image
	m.result.Entries = m.registry.Entries()
}

// markR5Usable tells the PMU firmware both R5 cores may be used, as nothing
// was loaded onto them.
func (m *Machine) markR5Usable() {
	hw.Set(m.regs, hw.GenStorage4, hw.R50Usage|hw.R51Usage)
}

// exit leaves the loader on the running core.
func (m *Machine) exit(addr uint64, mode ExitMode) {
	hw.Set(m.regs, hw.GenStorage5, hw.ExecCompleted)
	m.logInfo("exit from loader", "address", addr, "mode", mode.String())
	m.result.Exited = true
	m.result.ExitAddress = addr
	m.result.ExitMode = mode
	m.cpu.Exit(addr, mode)
}

func (m *Machine) reportProgress() {
	if m.config.ProgressCallback == nil {
		return
	}
	m.config.ProgressCallback(Progress{
		Stage:      m.state.Stage,
		Partition:  m.state.Partition,
		Partitions: m.state.Partitions,
		Status:     m.state.Status,
	})
}

func (m *Machine) logDebug(msg string, keysAndValues ...interface{}) {
	if m.config.Logger != nil {
		m.config.Logger.Debug(msg, keysAndValues...)
	}
}

func (m *Machine) logInfo(msg string, keysAndValues ...interface{}) {
	if m.config.Logger != nil {
		m.config.Logger.Info(msg, keysAndValues...)
	}
}

func (m *Machine) logError(msg string, keysAndValues ...interface{}) {
	if m.config.Logger != nil {
		m.config.Logger.Error(msg, keysAndValues...)
	}
}
