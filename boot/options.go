package boot

import (
	"time"

	"github.com/moffa90/go-fsbl/bootimage"
	"github.com/moffa90/go-fsbl/device"
	"github.com/moffa90/go-fsbl/hw"
	"github.com/moffa90/go-fsbl/loader"
)

const (
	// DefaultScratchAddress is the OCM buffer headers and digests are read into
	DefaultScratchAddress = 0xFFFE0000

	// DefaultHandoffParamsAddress is where the handoff parameter block is built
	DefaultHandoffParamsAddress = 0xFFFEA000
)

// Config holds the machine configuration.
type Config struct {
	// ProgressCallback is called on every stage entry (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging boot operations (optional)
	Logger Logger

	// Storage maps each supported boot mode to its driver
	Storage map[device.BootMode]device.Storage

	// Digester checks partition digests. Partitions that carry a digest
	// fail to load without one.
	Digester device.Digester

	// Verifier checks signed partitions (optional)
	Verifier device.Verifier

	// MemoryMap describes the populated memory of the board
	MemoryMap bootimage.MemoryMap

	// Hooks are the board-specific steps
	Hooks Hooks

	// AvailableCores restricts handoff to the listed cores. Empty means
	// every core is available.
	AvailableCores []bootimage.Core

	// DDRSelfRefresh waits for DDR to leave self-refresh before each partition
	DDRSelfRefresh bool

	// DDRRetries bounds that wait
	DDRRetries uint64

	// PowerRetries bounds each power island acknowledge poll
	PowerRetries uint64

	// SettleDelay waits out the R5 clock settle time
	SettleDelay func(time.Duration)

	// ScratchAddress is a free buffer used for header and digest reads
	ScratchAddress uint64

	// HandoffParamsAddress is where the handoff parameter block is built
	HandoffParamsAddress uint64

	// RunningAArch32 is set when the loader runs on an A53 in AArch32 state
	RunningAArch32 bool
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Logger:               GlogLogger{},
		Storage:              make(map[device.BootMode]device.Storage),
		Digester:             device.SHA3{},
		MemoryMap:            bootimage.DefaultMemoryMap(),
		DDRRetries:           loader.DefaultDDRRetries,
		PowerRetries:         hw.DefaultPowerRetries,
		SettleDelay:          time.Sleep,
		ScratchAddress:       DefaultScratchAddress,
		HandoffParamsAddress: DefaultHandoffParamsAddress,
	}
}

// Option is a functional option for configuring the Machine.
type Option func(*Config)

// WithProgressCallback sets a callback function to track the boot.
//
// Example:
//
//	m := boot.New(regs, mem, cpu,
//	    boot.WithProgressCallback(func(p boot.Progress) {
//	        fmt.Println(p.Stage)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger replaces the glog logger. A nil logger disables logging.
//
// Example:
//
//	m := boot.New(regs, mem, cpu, boot.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithStorage registers the driver used when the board boots in mode.
//
// Example:
//
//	flash := device.NewFlash(image, mem)
//	m := boot.New(regs, mem, cpu, boot.WithStorage(device.ModeQSPI32, flash))
func WithStorage(mode device.BootMode, s device.Storage) Option {
	return func(c *Config) {
		if s != nil {
			c.Storage[mode] = s
		}
	}
}

// WithDigester sets the partition digest algorithm. Default is SHA3-384.
// Passing nil makes every partition that carries a digest fail to load.
//
// Example:
//
//	m := boot.New(regs, mem, cpu, boot.WithDigester(device.SHA3{}))
func WithDigester(d device.Digester) Option {
	return func(c *Config) {
		c.Digester = d
	}
}

// WithVerifier enables signature checks on signed partitions.
//
// Example:
//
//	m := boot.New(regs, mem, cpu, boot.WithVerifier(rsaVerifier))
func WithVerifier(v device.Verifier) Option {
	return func(c *Config) {
		c.Verifier = v
	}
}

// WithMemoryMap sets the populated memory windows of the board. The scratch
// buffer and the handoff parameter block stay reserved inside these windows:
// a partition loaded over either fails with an address error.
//
// Example:
//
//	mm := bootimage.DefaultMemoryMap()
//	mm.PLDDR = bootimage.Window{Start: 0x400000000, End: 0x500000000}
//	m := boot.New(regs, mem, cpu, boot.WithMemoryMap(mm))
func WithMemoryMap(mm bootimage.MemoryMap) Option {
	return func(c *Config) {
		c.MemoryMap = mm
	}
}

// WithHooks sets the board-specific hooks.
//
// Example:
//
//	m := boot.New(regs, mem, cpu, boot.WithHooks(boot.Hooks{PsuInit: psuInit}))
func WithHooks(h Hooks) Option {
	return func(c *Config) {
		c.Hooks = h
	}
}

// WithAvailableCores restricts handoff to the given cores, for devices
// that lack some of them.
//
// Example:
//
//	m := boot.New(regs, mem, cpu,
//	    boot.WithAvailableCores(bootimage.CoreA53_0, bootimage.CoreA53_1, bootimage.CoreR5_0),
//	)
func WithAvailableCores(cores ...bootimage.Core) Option {
	return func(c *Config) {
		c.AvailableCores = append([]bootimage.Core(nil), cores...)
	}
}

// WithDDRSelfRefresh enables the DDR self-refresh handshake with the PMU
// firmware. retries bounds the wait; zero keeps the default.
//
// Example:
//
//	m := boot.New(regs, mem, cpu, boot.WithDDRSelfRefresh(100000))
func WithDDRSelfRefresh(retries uint64) Option {
	return func(c *Config) {
		c.DDRSelfRefresh = true
		if retries > 0 {
			c.DDRRetries = retries
		}
	}
}

// WithPowerRetries bounds the power island acknowledge poll.
//
// Example:
//
//	m := boot.New(regs, mem, cpu, boot.WithPowerRetries(100))
func WithPowerRetries(retries uint64) Option {
	return func(c *Config) {
		if retries > 0 {
			c.PowerRetries = retries
		}
	}
}

// WithSettleDelay replaces the sleep used for the R5 clock settle time.
// Simulations pass a no-op.
//
// Example:
//
//	m := boot.New(regs, mem, cpu, boot.WithSettleDelay(func(time.Duration) {}))
func WithSettleDelay(fn func(time.Duration)) Option {
	return func(c *Config) {
		if fn != nil {
			c.SettleDelay = fn
		}
	}
}

// WithScratchAddress moves the buffer used for header and digest reads.
//
// Example:
//
//	m := boot.New(regs, mem, cpu, boot.WithScratchAddress(0xFFFF0000))
func WithScratchAddress(addr uint64) Option {
	return func(c *Config) {
		c.ScratchAddress = addr
	}
}

// WithHandoffParamsAddress moves the handoff parameter block.
//
// Example:
//
//	m := boot.New(regs, mem, cpu, boot.WithHandoffParamsAddress(0xFFFEA000))
func WithHandoffParamsAddress(addr uint64) Option {
	return func(c *Config) {
		c.HandoffParamsAddress = addr
	}
}

// WithRunningAArch32 declares that an A53 loader runs in AArch32 state.
//
// Example:
//
//	m := boot.New(regs, mem, cpu, boot.WithRunningAArch32(true))
func WithRunningAArch32(aarch32 bool) Option {
	return func(c *Config) {
		c.RunningAArch32 = aarch32
	}
}
