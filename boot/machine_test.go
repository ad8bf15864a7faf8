package boot_test

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/moffa90/go-fsbl/boot"
	"github.com/moffa90/go-fsbl/bootimage"
	"github.com/moffa90/go-fsbl/device"
	"github.com/moffa90/go-fsbl/handoff"
	"github.com/moffa90/go-fsbl/hw"
	"github.com/moffa90/go-fsbl/status"
)

type exitCall struct {
	Addr uint64
	Mode boot.ExitMode
}

type fakeCPU struct {
	cluster uint64
	exits   []exitCall
	parks   int
}

func (c *fakeCPU) ClusterID() uint64 { return c.cluster }

func (c *fakeCPU) Exit(addr uint64, mode boot.ExitMode) {
	c.exits = append(c.exits, exitCall{Addr: addr, Mode: mode})
}

func (c *fakeCPU) Park() { c.parks++ }

func core(c bootimage.Core) uint32 { return uint32(c) << 8 }

type rig struct {
	mode  device.BootMode
	regs  *hw.Map
	ram   *device.RAM
	flash *device.Flash
	cpu   *fakeCPU
}

func buildImage(t *testing.T, b *bootimage.Builder, parts ...bootimage.PartitionSpec) []byte {
	t.Helper()
	b.Add(bootimage.PartitionSpec{Data: []byte("fsbl"), LoadAddress: 0xFFFC0000})
	for _, p := range parts {
		b.Add(p)
	}
	img, err := b.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func newRig(t *testing.T, mode device.BootMode, parts ...bootimage.PartitionSpec) *rig {
	t.Helper()
	return newRigImage(t, mode, buildImage(t, bootimage.NewBuilder(), parts...))
}

func newRigImage(t *testing.T, mode device.BootMode, img []byte) *rig {
	t.Helper()
	ram := device.NewRAM()
	r := &rig{
		mode:  mode,
		regs:  hw.NewMap(),
		ram:   ram,
		flash: device.NewFlash(img, ram),
		cpu:   &fakeCPU{},
	}
	r.regs.Poke(hw.BootModeUser, uint32(mode))
	return r
}

func (r *rig) machine(opts ...boot.Option) *boot.Machine {
	base := []boot.Option{
		boot.WithLogger(nil),
		boot.WithStorage(r.mode, r.flash),
		boot.WithSettleDelay(func(time.Duration) {}),
		boot.WithPowerRetries(3),
	}
	return boot.New(r.regs, r.ram, r.cpu, append(base, opts...)...)
}

func (r *rig) run(t *testing.T, opts ...boot.Option) (*boot.Result, error) {
	t.Helper()
	return r.machine(opts...).Run(context.Background())
}

func TestRunHandsOffToEveryCore(t *testing.T) {
	r := newRig(t, device.ModeSD1,
		bootimage.PartitionSpec{
			Data:        []byte("a53-1 application"),
			LoadAddress: 0x100000,
			ExecAddress: 0x100000,
			Attributes:  core(bootimage.CoreA53_1),
		},
		bootimage.PartitionSpec{
			Data:        []byte("r5 firmware"),
			LoadAddress: 0x0,
			ExecAddress: 0x0,
			Attributes:  core(bootimage.CoreR5_0) | bootimage.AttrExecStateMask,
		},
		bootimage.PartitionSpec{
			Data:        []byte("bl31"),
			LoadAddress: 0xFFFEA800,
			ExecAddress: 0xFFFEA800,
			Attributes:  core(bootimage.CoreA53_0) | uint32(bootimage.ChecksumSHA3),
		},
	)

	res, err := r.run(t)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if res.State.Stage != boot.StageDone {
		t.Errorf("stage = %s, want done", res.State.Stage)
	}
	if diff := cmp.Diff([]bootimage.Core{bootimage.CoreA53_1, bootimage.CoreR5_0}, res.Started); diff != "" {
		t.Errorf("started cores mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]exitCall{{Addr: 0xFFFEA800, Mode: boot.Exit64}}, r.cpu.exits); diff != "" {
		t.Errorf("exits mismatch (-want +got):\n%s", diff)
	}
	wantEntries := []handoff.Entry{
		{Core: bootimage.CoreA53_1, Address: 0x100000},
		{Core: bootimage.CoreR5_0, AArch32: true, Address: 0x0},
		{Core: bootimage.CoreA53_0, Address: 0xFFFEA800},
	}
	if diff := cmp.Diff(wantEntries, res.Entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}

	if got := r.regs.Peek(hw.ErrorStatus); got != status.Completed {
		t.Errorf("error status = 0x%X, want completed", got)
	}
	if r.regs.Peek(hw.GenStorage5)&hw.ExecCompleted == 0 {
		t.Error("exec completed not published")
	}
	if !r.flash.Released() {
		t.Error("boot device not released before handoff")
	}

	// Only partition 3 qualifies for the parameter block.
	if got := r.regs.Peek(hw.GenStorage6); got != boot.DefaultHandoffParamsAddress {
		t.Errorf("GenStorage6 = 0x%X", got)
	}
	hdr := make([]byte, 8)
	r.ram.ReadAt(hdr, boot.DefaultHandoffParamsAddress)
	if string(hdr[:4]) != handoff.Magic || binary.LittleEndian.Uint32(hdr[4:]) != 1 {
		t.Errorf("parameter block header = %q %d", hdr[:4], binary.LittleEndian.Uint32(hdr[4:]))
	}
}

func TestRunStopsAtCorruptedPartition(t *testing.T) {
	img := buildImage(t, bootimage.NewBuilder(),
		bootimage.PartitionSpec{Data: []byte("one"), LoadAddress: 0x100000, ExecAddress: 0x100000, Attributes: core(bootimage.CoreA53_1)},
		bootimage.PartitionSpec{Data: []byte("two"), LoadAddress: 0x200000, ExecAddress: 0x200000, Attributes: core(bootimage.CoreA53_2)},
		bootimage.PartitionSpec{Data: []byte("three"), LoadAddress: 0x300000, ExecAddress: 0x300000, Attributes: core(bootimage.CoreA53_3)},
	)
	img[bootimage.PartitionHeaderOffset(2)+bootimage.HeaderSize-1] ^= 0x01

	r := newRigImage(t, device.ModeUSB, img)
	res, err := r.run(t)

	var se *boot.StageError
	if !errors.As(err, &se) {
		t.Fatalf("Run() error = %v, want *StageError", err)
	}
	if se.Stage != boot.StagePartitionLoad || res.State.Partition != 2 {
		t.Errorf("failed in %s at partition %d, want partition load at 2", se.Stage, res.State.Partition)
	}
	if !status.Is(err, status.PartitionHeaderChecksum) {
		t.Errorf("code = %v, want %v", status.CodeOf(err), status.PartitionHeaderChecksum)
	}
	if got := r.regs.Peek(hw.ErrorStatus); got != 0x3013 {
		t.Errorf("error status = 0x%X, want 0x3013", got)
	}

	for _, e := range res.Entries {
		if e.Core == bootimage.CoreA53_3 {
			t.Error("partition 3 was registered after the failure")
		}
	}
	if len(res.Started) != 0 {
		t.Errorf("started %v after a failed boot", res.Started)
	}

	// USB boot cannot fall back.
	if !res.Parked || res.Fallback || r.cpu.parks != 1 {
		t.Errorf("parked=%t fallback=%t parks=%d", res.Parked, res.Fallback, r.cpu.parks)
	}
}

func TestRunFallsBackOnBootDeviceFailure(t *testing.T) {
	r := newRig(t, device.ModeQSPI32,
		bootimage.PartitionSpec{Data: []byte("app"), LoadAddress: 0x100000, ExecAddress: 0x100000, Attributes: core(bootimage.CoreA53_1)},
	)
	r.flash.InitErr = errors.New("no flash")
	r.regs.Poke(hw.CSUMultiBoot, 4)

	res, err := r.run(t)
	if !status.Is(err, status.DeviceInit) {
		t.Fatalf("Run() error = %v, want device init failure", err)
	}
	if got := r.regs.Peek(hw.ErrorStatus); got != 0x2032 {
		t.Errorf("error status = 0x%X, want 0x2032", got)
	}
	if got := r.regs.Peek(hw.CSUMultiBoot); got != 5 {
		t.Errorf("multiboot = %d, want 5", got)
	}

	resets := 0
	for _, v := range r.regs.Writes(hw.ResetCtrl) {
		if v&hw.ResetCtrlSoftReset != 0 {
			resets++
		}
	}
	if resets != 1 {
		t.Errorf("soft resets = %d, want 1", resets)
	}
	if !res.Fallback || res.Parked {
		t.Errorf("fallback=%t parked=%t", res.Fallback, res.Parked)
	}
}

func TestRunMasterOnlyFallbackParks(t *testing.T) {
	r := newRig(t, device.ModeSD0,
		bootimage.PartitionSpec{Data: []byte("app"), LoadAddress: 0x100000, ExecAddress: 0x100000, Attributes: core(bootimage.CoreA53_1)},
	)
	r.flash.InitErr = errors.New("card removed")
	r.regs.Poke(hw.GenStorage4, hw.APUResetMask)

	psuRan := false
	res, err := r.run(t, boot.WithHooks(boot.Hooks{
		PsuInit: func() error { psuRan = true; return nil },
	}))
	if err == nil {
		t.Fatal("Run() succeeded with a failing boot device")
	}
	if res.Reset != boot.MasterOnlyReset {
		t.Errorf("reset = %s, want master only", res.Reset)
	}
	if psuRan {
		t.Error("system init ran after a master-only reset")
	}
	if got := len(r.regs.Writes(hw.GICDICPendR0 + 4*(hw.GICDICPendRCount-1))); got != 1 {
		t.Errorf("last pending clear register written %d times", got)
	}
	if got := r.regs.Peek(hw.CSUMultiBoot); got != 1 {
		t.Errorf("multiboot = %d, want 1", got)
	}
	if len(r.regs.Writes(hw.ResetCtrl)) != 0 {
		t.Error("soft reset issued after a master-only reset")
	}
	if !res.Parked {
		t.Error("core not parked")
	}
}

func TestRunMasterOnlySkipsForeignPartitions(t *testing.T) {
	r := newRig(t, device.ModeSD1,
		bootimage.PartitionSpec{Data: []byte("r5 firmware"), LoadAddress: 0x0, ExecAddress: 0x0, Attributes: core(bootimage.CoreR5_0)},
		bootimage.PartitionSpec{Data: []byte("no destination"), LoadAddress: 0x200000, ExecAddress: 0x200000},
		bootimage.PartitionSpec{Data: []byte("a53-1 application"), LoadAddress: 0x100000, ExecAddress: 0x100000, Attributes: core(bootimage.CoreA53_1)},
		bootimage.PartitionSpec{Data: []byte("a53-0 application"), LoadAddress: 0x300000, ExecAddress: 0x300000, Attributes: core(bootimage.CoreA53_0)},
	)
	r.regs.Poke(hw.GenStorage4, hw.APUResetMask)

	res, err := r.run(t)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Reset != boot.MasterOnlyReset || res.State.Stage != boot.StageDone {
		t.Errorf("reset = %s, stage = %s", res.Reset, res.State.Stage)
	}

	wantEntries := []handoff.Entry{
		{Core: bootimage.CoreA53_1, Address: 0x100000},
		{Core: bootimage.CoreA53_0, Address: 0x300000},
	}
	if diff := cmp.Diff(wantEntries, res.Entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]bootimage.Core{bootimage.CoreA53_1}, res.Started); diff != "" {
		t.Errorf("started cores mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]exitCall{{Addr: 0x300000, Mode: boot.Exit64}}, r.cpu.exits); diff != "" {
		t.Errorf("exits mismatch (-want +got):\n%s", diff)
	}

	loaded := func(addr int64, want string) bool {
		b := make([]byte, len(want))
		r.ram.ReadAt(b, addr)
		return string(b) == want
	}
	if loaded(0x0, "r5 firmware") {
		t.Error("r5 partition copied after a master-only reset")
	}
	if loaded(0x200000, "no destination") {
		t.Error("partition without destination copied after a master-only reset")
	}
	if !loaded(0x100000, "a53-1 application") || !loaded(0x300000, "a53-0 application") {
		t.Error("owned partitions not copied")
	}
}

func TestRunJTAG(t *testing.T) {
	r := newRig(t, device.ModeJTAG,
		bootimage.PartitionSpec{Data: []byte("app"), LoadAddress: 0x100000, Attributes: core(bootimage.CoreA53_1)},
	)

	res, err := r.run(t)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.State.Stage != boot.StageDone || res.State.Status != status.Success {
		t.Errorf("state = %+v", res.State)
	}
	if got := r.regs.Peek(hw.GenStorage4) & (hw.R50Usage | hw.R51Usage); got != hw.R50Usage|hw.R51Usage {
		t.Errorf("R5 usage = 0x%X", got)
	}
	if got := r.regs.Peek(hw.ErrorStatus); got != status.Completed {
		t.Errorf("error status = 0x%X", got)
	}
	if diff := cmp.Diff([]exitCall{{Addr: 0, Mode: boot.ExitNone}}, r.cpu.exits); diff != "" {
		t.Errorf("exits mismatch (-want +got):\n%s", diff)
	}
	if r.flash.Copies() != 0 {
		t.Error("JTAG boot read the boot device")
	}
}

func TestRunDefaultsDestinationToRunningCore(t *testing.T) {
	r := newRig(t, device.ModeSD1,
		bootimage.PartitionSpec{Data: []byte("r5 app"), LoadAddress: 0x0, ExecAddress: 0x0},
	)
	r.cpu.cluster = 0x100
	r.regs.Poke(hw.RPUGlblCntl, hw.RPUGlblCntlSLSplit)

	res, err := r.run(t)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.RunningCore != bootimage.CoreR5_0 {
		t.Errorf("running core = %s, want r5-0", res.RunningCore)
	}
	if diff := cmp.Diff([]handoff.Entry{{Core: bootimage.CoreR5_0, Address: 0x0}}, res.Entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]exitCall{{Addr: 0x0, Mode: boot.Exit32}}, r.cpu.exits); diff != "" {
		t.Errorf("exits mismatch (-want +got):\n%s", diff)
	}
	if got := (r.regs.Peek(hw.GenStorage5) & hw.ProcTypeMask) >> hw.ProcTypeShift; got != 0x2 {
		t.Errorf("processor type = %d, want 2", got)
	}
}

func TestRunSecondaryBootMode(t *testing.T) {
	b := bootimage.NewBuilder()
	b.PresentDevice = bootimage.PresentSD1
	r := newRigImage(t, device.ModeQSPI24, buildImage(t, b,
		bootimage.PartitionSpec{Data: []byte("app"), LoadAddress: 0x100000, ExecAddress: 0x100000, Attributes: core(bootimage.CoreA53_1)},
	))

	res, err := r.run(t)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.State.Partitions != 0 || len(res.Entries) != 0 {
		t.Errorf("partitions = %d, entries = %v", res.State.Partitions, res.Entries)
	}
	if res.State.Stage != boot.StageDone {
		t.Errorf("stage = %s", res.State.Stage)
	}
}

func TestRunFailures(t *testing.T) {
	a53 := func(c bootimage.Core, attrs uint32) bootimage.PartitionSpec {
		return bootimage.PartitionSpec{
			Data:        []byte("payload"),
			LoadAddress: 0x100000,
			ExecAddress: 0x100000,
			Attributes:  core(c) | attrs,
		}
	}

	tests := []struct {
		name    string
		part    bootimage.PartitionSpec
		setup   func(r *rig)
		opts    []boot.Option
		stage   boot.Stage
		code    status.Code
		persist uint32
	}{
		{
			name:    "unsupported cluster",
			part:    a53(bootimage.CoreA53_1, 0),
			setup:   func(r *rig) { r.cpu.cluster = 0x200 },
			stage:   boot.StageInit,
			code:    status.UnsupportedClusterID,
			persist: 0x1030,
		},
		{
			name:    "psu init hook",
			part:    a53(bootimage.CoreA53_1, 0),
			opts:    []boot.Option{boot.WithHooks(boot.Hooks{PsuInit: func() error { return errors.New("pll lock") }})},
			stage:   boot.StageInit,
			code:    status.PsuInit,
			persist: 0x1033,
		},
		{
			name:    "no driver for boot mode",
			part:    a53(bootimage.CoreA53_1, 0),
			setup:   func(r *rig) { r.regs.Poke(hw.BootModeUser, uint32(device.ModeEMMC)) },
			stage:   boot.StageBootDeviceInit,
			code:    status.UnsupportedBootMode,
			persist: 0x2031,
		},
		{
			name:    "width change on running core",
			part:    a53(bootimage.CoreA53_0, bootimage.AttrExecStateMask),
			stage:   boot.StageHandoff,
			code:    status.UnsupportedHandoff,
			persist: 0x4049,
		},
		{
			name:    "power up never acknowledged",
			part:    a53(bootimage.CoreA53_2, 0),
			setup:   func(r *rig) { r.regs.Poke(hw.ReqPwrUpStatus, 0xFFFFFFFF) },
			stage:   boot.StageHandoff,
			code:    status.PowerUpA532,
			persist: 0x4042,
		},
		{
			name:    "core not on device",
			part:    a53(bootimage.CoreA53_3, 0),
			opts:    []boot.Option{boot.WithAvailableCores(bootimage.CoreA53_0, bootimage.CoreA53_1)},
			stage:   boot.StageHandoff,
			code:    status.UnavailableCore,
			persist: 0x4048,
		},
		{
			name: "before handoff hook",
			part: a53(bootimage.CoreA53_1, 0),
			opts: []boot.Option{boot.WithHooks(boot.Hooks{
				BeforeHandoff: func(bool) error { return errors.New("refused") },
			})},
			stage:   boot.StageHandoff,
			code:    status.BeforeHandoff,
			persist: 0x404B,
		},
		{
			name: "pm init hook",
			part: a53(bootimage.CoreA53_1, 0),
			opts: []boot.Option{boot.WithHooks(boot.Hooks{
				PMInit: func() error { return errors.New("ipi timeout") },
			})},
			stage:   boot.StageHandoff,
			code:    status.PMInit,
			persist: 0x404C,
		},
		{
			name: "protection config hook",
			part: a53(bootimage.CoreA53_1, 0),
			opts: []boot.Option{boot.WithHooks(boot.Hooks{
				ProtectionConfig: func() error { return errors.New("xppu") },
			})},
			stage:   boot.StageHandoff,
			code:    status.ProtectionConfig,
			persist: 0x404D,
		},
		{
			name: "partition over parameter block",
			part: bootimage.PartitionSpec{
				Data:        []byte("payload"),
				LoadAddress: boot.DefaultHandoffParamsAddress + 0x10,
				ExecAddress: boot.DefaultHandoffParamsAddress + 0x10,
				Attributes:  core(bootimage.CoreA53_1),
			},
			stage:   boot.StagePartitionLoad,
			code:    status.Address,
			persist: 0x3015,
		},
		{
			name:    "boot device release",
			part:    a53(bootimage.CoreA53_1, 0),
			setup:   func(r *rig) { r.flash.ReleaseErr = errors.New("card busy") },
			stage:   boot.StageHandoff,
			code:    status.DeviceRelease,
			persist: 0x404E,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t, device.ModeSD1, tt.part)
			if tt.setup != nil {
				tt.setup(r)
			}
			res, err := r.run(t, tt.opts...)

			var se *boot.StageError
			if !errors.As(err, &se) {
				t.Fatalf("Run() error = %v, want *StageError", err)
			}
			if se.Stage != tt.stage {
				t.Errorf("stage = %s, want %s", se.Stage, tt.stage)
			}
			if got := status.CodeOf(err); got != tt.code {
				t.Errorf("code = %v, want %v", got, tt.code)
			}
			if got := se.Persisted(); got != tt.persist {
				t.Errorf("Persisted() = 0x%X, want 0x%X", got, tt.persist)
			}
			if got := r.regs.Peek(hw.ErrorStatus); got != tt.persist {
				t.Errorf("error status = 0x%X, want 0x%X", got, tt.persist)
			}
			if res.State.Stage != boot.StageFailed {
				t.Errorf("final stage = %s", res.State.Stage)
			}
			if len(r.cpu.exits) != 0 {
				t.Errorf("core exited after a failure: %v", r.cpu.exits)
			}
		})
	}
}

func TestRunReportsProgress(t *testing.T) {
	r := newRig(t, device.ModeSD1,
		bootimage.PartitionSpec{Data: []byte("one"), LoadAddress: 0x100000, ExecAddress: 0x100000, Attributes: core(bootimage.CoreA53_1)},
		bootimage.PartitionSpec{Data: []byte("two"), LoadAddress: 0x200000, ExecAddress: 0x200000, Attributes: core(bootimage.CoreA53_2)},
	)

	var got []boot.Progress
	_, err := r.run(t, boot.WithProgressCallback(func(p boot.Progress) {
		got = append(got, p)
	}))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	want := []boot.Progress{
		{Stage: boot.StageInit},
		{Stage: boot.StageBootDeviceInit},
		{Stage: boot.StagePartitionLoad, Partition: 1, Partitions: 3},
		{Stage: boot.StagePartitionLoad, Partition: 2, Partitions: 3},
		{Stage: boot.StageHandoff, Partition: 2, Partitions: 3},
		{Stage: boot.StageDone, Partition: 2, Partitions: 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("progress mismatch (-want +got):\n%s", diff)
	}
}

func TestNewPanicsOnNil(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("New() did not panic on nil registers")
		}
	}()
	boot.New(nil, device.NewRAM(), &fakeCPU{})
}
