package handoff

import (
	"encoding/binary"
	"fmt"

	"github.com/moffa90/go-fsbl/bootimage"
	"github.com/moffa90/go-fsbl/device"
	"github.com/moffa90/go-fsbl/hw"
	"github.com/moffa90/go-fsbl/status"
)

// Parameter block layout.
const (
	// Magic tags a parameter block for the secure monitor
	Magic = "XLNX"

	// MaxParams is the number of entries a parameter block holds
	MaxParams = 10

	paramHeaderSize = 8
	paramEntrySize  = 16

	// ParamsSize is the encoded size of a parameter block
	ParamsSize = paramHeaderSize + MaxParams*paramEntrySize
)

// Entry flag fields.
const (
	FlagAArch32   = 0x1
	FlagBigEndian = 0x2
	FlagSecure    = 0x4
	FlagELShift   = 3
	FlagCoreShift = 5
	FlagELMask    = 0x3 << FlagELShift
	FlagCoreMask  = 0x3 << FlagCoreShift
)

// Param is one entry point handed to the secure monitor.
type Param struct {
	EntryPoint uint64
	Flags      uint64
}

// Params is the parameter block read by the secure monitor.
type Params struct {
	Magic   [4]byte
	Count   uint32
	Entries [MaxParams]Param
}

// MarshalBinary encodes the block as the monitor reads it.
func (p *Params) MarshalBinary() ([]byte, error) {
	b := make([]byte, ParamsSize)
	copy(b, p.Magic[:])
	binary.LittleEndian.PutUint32(b[4:], p.Count)
	for i, e := range p.Entries {
		off := paramHeaderSize + i*paramEntrySize
		binary.LittleEndian.PutUint64(b[off:], e.EntryPoint)
		binary.LittleEndian.PutUint64(b[off+8:], e.Flags)
	}
	return b, nil
}

// Flags derives the monitor flags of a partition bound for an A53 core.
func Flags(h *bootimage.PartitionHeader, core bootimage.Core) uint64 {
	var f uint64
	if h.AArch32() {
		f |= FlagAArch32
	}
	if h.BigEndian() {
		f |= FlagBigEndian
	}
	if h.Secure() {
		f |= FlagSecure
	}
	f |= uint64(h.TargetEL()) << FlagELShift
	f |= uint64(core.A53Index()) << FlagCoreShift
	return f
}

// Qualifies reports whether partition index, bound for core, belongs in the
// parameter block. The first two partitions are the loader and the PMU
// firmware, which the monitor never starts.
func Qualifies(h *bootimage.PartitionHeader, core bootimage.Core, index int) bool {
	return index > 1 && core.IsA53() && h.ExecAddress != 0
}

// ParamBuilder builds the parameter block in memory at a fixed address and
// publishes that address in GenStorage6.
type ParamBuilder struct {
	mem    device.Memory
	regs   hw.Registers
	addr   uint64
	params Params
}

// NewParamBuilder returns a builder that places the block at addr.
func NewParamBuilder(mem device.Memory, regs hw.Registers, addr uint64) *ParamBuilder {
	if mem == nil || regs == nil {
		panic("memory and registers cannot be nil")
	}
	return &ParamBuilder{mem: mem, regs: regs, addr: addr}
}

// Add appends the partition when it qualifies and there is room. It reports
// whether an entry was added.
func (b *ParamBuilder) Add(h *bootimage.PartitionHeader, core bootimage.Core, index int) (bool, error) {
	if !Qualifies(h, core, index) || b.params.Count >= MaxParams {
		return false, nil
	}

	if b.params.Count == 0 && string(b.params.Magic[:]) != Magic {
		copy(b.params.Magic[:], Magic)
		if err := b.write(0, b.params.Magic[:]); err != nil {
			return false, err
		}
	}

	i := b.params.Count
	b.params.Entries[i] = Param{EntryPoint: h.ExecAddress, Flags: Flags(h, core)}
	b.params.Count++

	entry := make([]byte, paramEntrySize)
	binary.LittleEndian.PutUint64(entry, b.params.Entries[i].EntryPoint)
	binary.LittleEndian.PutUint64(entry[8:], b.params.Entries[i].Flags)
	if err := b.write(int64(paramHeaderSize+int(i)*paramEntrySize), entry); err != nil {
		return false, err
	}
	count := make([]byte, 4)
	binary.LittleEndian.PutUint32(count, b.params.Count)
	if err := b.write(4, count); err != nil {
		return false, err
	}

	b.regs.Write32(hw.GenStorage6, uint32(b.addr))
	return true, nil
}

func (b *ParamBuilder) write(off int64, p []byte) error {
	if _, err := b.mem.WriteAt(p, int64(b.addr)+off); err != nil {
		return &status.Error{Op: fmt.Sprintf("write handoff parameters at 0x%X", b.addr+uint64(off)), Code: status.MemoryAccess}
	}
	return nil
}

// Params returns the block built so far.
func (b *ParamBuilder) Params() Params { return b.params }

// Address returns where the block lives.
func (b *ParamBuilder) Address() uint64 { return b.addr }
