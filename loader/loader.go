package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/moffa90/go-fsbl/bootimage"
	"github.com/moffa90/go-fsbl/device"
	"github.com/moffa90/go-fsbl/handoff"
	"github.com/moffa90/go-fsbl/hw"
	"github.com/moffa90/go-fsbl/status"
)

// DefaultDDRRetries bounds the wait for DDR to leave self-refresh.
const DefaultDDRRetries = 1000000

// Logger receives loader diagnostics.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Config selects the optional loader features.
type Config struct {
	// Memory is the populated memory map
	Memory bootimage.MemoryMap

	// Digester verifies partitions that declare a checksum. Without one such
	// partitions fail to load.
	Digester device.Digester

	// Verifier checks signed partitions. Without one signatures are not checked.
	Verifier device.Verifier

	// ScratchAddress is where stored digests are staged
	ScratchAddress uint64

	// Reserved lists regions the loader itself writes. A partition copied
	// over one of them is rejected.
	Reserved []bootimage.Window

	// DDRSelfRefresh waits for DDR to leave self-refresh before each partition
	DDRSelfRefresh bool

	// DDRRetries bounds that wait
	DDRRetries uint64

	// Logger is optional
	Logger Logger
}

// ScratchSize is the largest read staged at Config.ScratchAddress.
const ScratchSize = bootimage.AuthCertificateSize

// Target is the image being loaded and the facts validation depends on.
type Target struct {
	Image           *bootimage.Image
	ImageOffset     uint32
	RunningCore     bootimage.Core
	MasterOnlyReset bool
}

// Result describes what happened to one partition.
type Result struct {
	// Core is the defaulted destination core
	Core bootimage.Core

	// Skipped is set for partitions owned by someone else
	Skipped bool

	// ExecuteInPlace is set for partitions that were not copied
	ExecuteInPlace bool

	// Registered is set when a handoff entry was added
	Registered bool

	// Bytes is the number of bytes copied
	Bytes uint32
}

// Loader copies partitions to their load addresses and records where each
// destination core starts.
type Loader struct {
	storage  device.Storage
	mem      device.Memory
	regs     hw.Registers
	registry *handoff.Registry
	cfg      Config
}

// New returns a Loader. storage, mem, regs and registry must not be nil.
func New(storage device.Storage, mem device.Memory, regs hw.Registers, registry *handoff.Registry, cfg Config) *Loader {
	if storage == nil || mem == nil || regs == nil || registry == nil {
		panic("loader dependencies cannot be nil")
	}
	if cfg.DDRRetries == 0 {
		cfg.DDRRetries = DefaultDDRRetries
	}
	return &Loader{storage: storage, mem: mem, regs: regs, registry: registry, cfg: cfg}
}

// Load runs partition index through validation, copy, verification and
// handoff registration.
func (l *Loader) Load(ctx context.Context, t Target, index int) (*Result, error) {
	res, err := l.load(ctx, t, index)
	if err != nil {
		return nil, &PartitionError{Index: index, Err: err}
	}
	return res, nil
}

func (l *Loader) load(ctx context.Context, t Target, index int) (*Result, error) {
	if t.Image == nil || index < 0 || index >= len(t.Image.Partitions) {
		return nil, fmt.Errorf("no partition header for index %d", index)
	}
	h := &t.Image.Partitions[index]

	if l.cfg.DDRSelfRefresh {
		if err := l.waitDDRReady(); err != nil {
			return nil, err
		}
	}

	core, err := bootimage.ValidatePartitionHeader(h, bootimage.Context{
		RunningCore:     t.RunningCore,
		MasterOnlyReset: t.MasterOnlyReset,
		Memory:          l.cfg.Memory,
	})
	if errors.Is(err, bootimage.ErrNotPartitionOwner) {
		l.logDebug("skipping partition", "partition", index, "core", core.String())
		return &Result{Core: core, Skipped: true}, nil
	}
	if err != nil {
		return nil, err
	}

	l.logDebug("partition header",
		"partition", index,
		"core", core.String(),
		"device", h.DestinationDevice().String(),
		"load", fmt.Sprintf("0x%X", h.LoadAddress),
		"exec", fmt.Sprintf("0x%X", h.ExecAddress),
		"words", h.TotalDataWordLength,
	)

	res := &Result{Core: core}

	if h.UnencryptedDataWordLength == 0 {
		res.ExecuteInPlace = true
		res.Registered, err = l.register(h, core)
		return res, err
	}

	if h.DestinationDevice() == bootimage.DevicePL {
		return nil, status.New("load bitstream", status.PLNotEnabled)
	}

	src := t.ImageOffset + h.DataWordOffset*bootimage.WordSize
	length := h.TotalDataWordLength * bootimage.WordSize
	for _, r := range l.cfg.Reserved {
		if r.Overlaps(h.LoadAddress, h.LoadAddress+uint64(length)) {
			return nil, &ReservedError{Address: h.LoadAddress, Length: length, Region: r}
		}
	}
	if err := l.storage.Copy(src, h.LoadAddress, length); err != nil {
		return nil, &DeviceError{Src: src, Dst: h.LoadAddress, Length: length, Err: err}
	}
	res.Bytes = length

	if h.Signed() && l.cfg.Verifier != nil {
		if err := l.authenticate(t, h); err != nil {
			return nil, err
		}
	}

	if h.ChecksumType() != bootimage.ChecksumNone {
		if err := l.verifyDigest(t, h); err != nil {
			return nil, err
		}
	}

	if core != bootimage.CorePMU {
		if res.Registered, err = l.register(h, core); err != nil {
			return nil, err
		}
	}

	if core == bootimage.CorePMU && lastPMUPartition(t.Image, index) {
		if err := l.wakePMU(ctx); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (l *Loader) register(h *bootimage.PartitionHeader, core bootimage.Core) (bool, error) {
	added, err := l.registry.Register(handoff.Entry{
		Core:       core,
		AArch32:    h.AArch32(),
		HighVector: h.HighVector(),
		Address:    h.ExecAddress,
	})
	if err == nil && !added {
		l.logDebug("core already has a handoff entry", "core", core.String())
	}
	return added, err
}

func (l *Loader) readLoaded(addr uint64, n uint32) ([]byte, error) {
	b := make([]byte, n)
	if _, err := l.mem.ReadAt(b, int64(addr)); err != nil {
		return nil, &status.Error{Op: fmt.Sprintf("read back 0x%X", addr), Code: status.MemoryAccess}
	}
	return b, nil
}

// authenticate checks the loaded payload against the certificate stored at
// the header's certificate offset.
func (l *Loader) authenticate(t Target, h *bootimage.PartitionHeader) error {
	data, err := l.readLoaded(h.LoadAddress, h.EncryptedDataWordLength*bootimage.WordSize)
	if err != nil {
		return err
	}

	src := t.ImageOffset + h.AuthCertificateWordOffset*bootimage.WordSize
	cert, err := device.ReadBytes(l.storage, l.mem, l.cfg.ScratchAddress, src, bootimage.AuthCertificateSize)
	if err != nil {
		return &DeviceError{Src: src, Dst: l.cfg.ScratchAddress, Length: bootimage.AuthCertificateSize, Err: err}
	}
	if err := l.cfg.Verifier.Verify(data, cert); err != nil {
		return &AuthError{Err: err}
	}
	return nil
}

func (l *Loader) verifyDigest(t Target, h *bootimage.PartitionHeader) error {
	if l.cfg.Digester == nil {
		return status.New("verify partition digest", status.DigestUnavailable)
	}
	loaded, err := l.readLoaded(h.LoadAddress, h.TotalDataWordLength*bootimage.WordSize)
	if err != nil {
		return err
	}
	actual := l.cfg.Digester.Digest(loaded)

	src := t.ImageOffset + h.ChecksumWordOffset*bootimage.WordSize
	expected, err := device.ReadBytes(l.storage, l.mem, l.cfg.ScratchAddress, src, l.cfg.Digester.Size())
	if err != nil {
		return &DeviceError{Src: src, Dst: l.cfg.ScratchAddress, Length: uint32(l.cfg.Digester.Size()), Err: err}
	}
	if !bytes.Equal(expected, actual) {
		return &DigestError{Expected: expected, Actual: actual}
	}
	return nil
}

// lastPMUPartition reports whether no PMU partition follows index.
func lastPMUPartition(img *bootimage.Image, index int) bool {
	if index+1 >= len(img.Partitions) {
		return true
	}
	return img.Partitions[index+1].DestinationCore() != bootimage.CorePMU
}

// wakePMU starts the PMU firmware and waits for it to announce itself. The
// wait has no timeout; only ctx can end it.
func (l *Loader) wakePMU(ctx context.Context) error {
	l.logInfo("waking pmu firmware")
	hw.Set(l.regs, hw.PMUGlobalCntrl, hw.GlobalCntrlDontSleep)

	op := func() error {
		if l.regs.Read32(hw.PMUGlobalCntrl)&hw.GlobalCntrlFWIsPresent == 0 {
			return errFirmwareAbsent
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(&backoff.ZeroBackOff{}, ctx)); err != nil {
		return fmt.Errorf("wait for pmu firmware: %w", err)
	}
	l.logDebug("pmu firmware present")
	return nil
}

var (
	errFirmwareAbsent = errors.New("pmu firmware not present")
	errSelfRefresh    = errors.New("ddr in self-refresh")
)

// waitDDRReady tells a running PMU firmware the DDR controller is set up and
// waits for DDR to leave self-refresh.
func (l *Loader) waitDDRReady() error {
	if l.regs.Read32(hw.PMUGlobalCntrl)&hw.GlobalCntrlFWIsPresent == 0 {
		return nil
	}
	hw.Set(l.regs, hw.DDRStatus, hw.DDRCInit)
	if l.regs.Read32(hw.DDRStatus)&hw.DDRSelfRefresh == 0 {
		return nil
	}

	op := func() error {
		if l.regs.Read32(hw.DDRStatus)&hw.DDRSelfRefresh != 0 {
			return errSelfRefresh
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithMaxRetries(&backoff.ZeroBackOff{}, l.cfg.DDRRetries)); err != nil {
		l.logError("ddr stuck in self-refresh", "retries", l.cfg.DDRRetries)
		return status.New("wait for ddr self-refresh exit", status.DDRNotReady)
	}
	return nil
}

func (l *Loader) logDebug(msg string, keysAndValues ...interface{}) {
	if l.cfg.Logger != nil {
		l.cfg.Logger.Debug(msg, keysAndValues...)
	}
}

func (l *Loader) logInfo(msg string, keysAndValues ...interface{}) {
	if l.cfg.Logger != nil {
		l.cfg.Logger.Info(msg, keysAndValues...)
	}
}

func (l *Loader) logError(msg string, keysAndValues ...interface{}) {
	if l.cfg.Logger != nil {
		l.cfg.Logger.Error(msg, keysAndValues...)
	}
}
