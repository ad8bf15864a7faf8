package status

// Code is a boot status code. It is the value persisted in the error status
// register for a companion monitor to read.
type Code uint32

// Outcome codes that are not failures.
const (
	// Success indicates the operation completed
	Success Code = 0x00

	// NotPartitionOwner indicates the partition belongs to another boot master and is skipped
	NotPartitionOwner Code = 0x01

	// SecondaryBootMode indicates the image continues on a secondary boot device
	SecondaryBootMode Code = 0x02

	// JTAGMode indicates the device booted in JTAG mode and no image is loaded
	JTAGMode Code = 0x03
)

// Image header codes.
const (
	// ImageHeaderChecksum indicates the image header table checksum does not match
	ImageHeaderChecksum Code = 0x10

	// PartitionPresentDevice indicates an out of range partition present device code
	PartitionPresentDevice Code = 0x11

	// PartitionCount indicates the partition count is outside the supported range
	PartitionCount Code = 0x12

	// PartitionHeaderChecksum indicates a partition header checksum does not match
	PartitionHeaderChecksum Code = 0x13

	// PartitionLength indicates the length fields violate the security length matrix
	PartitionLength Code = 0x14

	// Address indicates a load address outside every legal window
	Address Code = 0x15

	// IllegalCoreCombination indicates the running and destination cores cannot be paired
	IllegalCoreCombination Code = 0x16

	// ChecksumType indicates an unsupported partition checksum type
	ChecksumType Code = 0x17

	// CoreType indicates an out of range destination core
	CoreType Code = 0x18

	// DestinationDevice indicates an out of range destination device
	DestinationDevice Code = 0x19

	// BootHeader indicates the boot header could not be read or is malformed
	BootHeader Code = 0x1A
)

// Partition load codes.
const (
	// PLNotEnabled indicates a fabric partition reached a loader without bitstream support
	PLNotEnabled Code = 0x20

	// DeviceCopy indicates the storage device failed to copy data
	DeviceCopy Code = 0x21

	// PartitionDigest indicates the partition digest does not match the stored digest
	PartitionDigest Code = 0x22

	// DigestUnavailable indicates a checksum is declared but no digester is configured
	DigestUnavailable Code = 0x23

	// Authentication indicates the partition signature could not be verified
	Authentication Code = 0x24

	// HandoffTableFull indicates the handoff registry is at capacity
	HandoffTableFull Code = 0x25

	// DDRNotReady indicates DDR did not leave self-refresh in time
	DDRNotReady Code = 0x26

	// MemoryAccess indicates a read or write of a load target failed
	MemoryAccess Code = 0x27
)

// Initialization and boot device codes.
const (
	// UnsupportedClusterID indicates the running processor is not a supported boot master
	UnsupportedClusterID Code = 0x30

	// UnsupportedBootMode indicates no storage is configured for the detected boot mode
	UnsupportedBootMode Code = 0x31

	// DeviceInit indicates the boot device failed to initialize
	DeviceInit Code = 0x32

	// PsuInit indicates the PS initialization hook failed
	PsuInit Code = 0x33

	// BoardInit indicates the board initialization hook failed
	BoardInit Code = 0x34
)

// Handoff codes.
const (
	// PowerUpA530 indicates A53 core 0 failed to power up
	PowerUpA530 Code = 0x40

	// PowerUpA531 indicates A53 core 1 failed to power up
	PowerUpA531 Code = 0x41

	// PowerUpA532 indicates A53 core 2 failed to power up
	PowerUpA532 Code = 0x42

	// PowerUpA533 indicates A53 core 3 failed to power up
	PowerUpA533 Code = 0x43

	// PowerUpR50 indicates R5 core 0 failed to power up
	PowerUpR50 Code = 0x44

	// PowerUpR51 indicates R5 core 1 failed to power up
	PowerUpR51 Code = 0x45

	// PowerUpR5Lockstep indicates the R5 lockstep pair failed to power up
	PowerUpR5Lockstep Code = 0x46

	// PowerUpCore indicates a generic core power up failure
	PowerUpCore Code = 0x47

	// UnavailableCore indicates the destination core is not present on this device
	UnavailableCore Code = 0x48

	// UnsupportedHandoff indicates a same-core execution width change was requested
	UnsupportedHandoff Code = 0x49

	// HandoffCoreID indicates the sequencer was asked to start an unknown core
	HandoffCoreID Code = 0x4A

	// BeforeHandoff indicates the pre-handoff hook failed
	BeforeHandoff Code = 0x4B

	// PMInit indicates the power management setup before handoff failed
	PMInit Code = 0x4C

	// ProtectionConfig indicates the memory protection setup before handoff failed
	ProtectionConfig Code = 0x4D

	// DeviceRelease indicates the boot device could not be shut down
	DeviceRelease Code = 0x4E
)

// Failure is the catch-all code for errors that carry no status.
const Failure Code = 0xFF

// Stage bases are added to a code when it is persisted so the monitor can
// tell which stage failed.
const (
	// StageInitBase marks a failure in the initialization stage
	StageInitBase Code = 0x1000

	// StageBootDeviceBase marks a failure in the boot device initialization stage
	StageBootDeviceBase Code = 0x2000

	// StagePartitionLoadBase marks a failure while loading a partition
	StagePartitionLoadBase Code = 0x3000

	// StageHandoffBase marks a failure in the handoff stage
	StageHandoffBase Code = 0x4000
)

// Values written to the error status register outside of failures.
const (
	// Running is written once the loader starts executing
	Running uint32 = 0xFFFF

	// Completed is written right before control is transferred
	Completed uint32 = 0x0
)

// Fatal reports whether c is a failure rather than one of the
// distinguished non-error outcomes.
func (c Code) Fatal() bool {
	switch c {
	case Success, NotPartitionOwner, SecondaryBootMode, JTAGMode:
		return false
	default:
		return true
	}
}

// String returns a human-readable name for a status code.
func (c Code) String() string {
	if name, ok := names[c]; ok {
		return name
	}
	return "unknown status"
}

var names = map[Code]string{
	Success:                 "success",
	NotPartitionOwner:       "not partition owner",
	SecondaryBootMode:       "secondary boot mode",
	JTAGMode:                "jtag mode",
	ImageHeaderChecksum:     "image header checksum mismatch",
	PartitionPresentDevice:  "invalid partition present device",
	PartitionCount:          "invalid partition count",
	PartitionHeaderChecksum: "partition header checksum mismatch",
	PartitionLength:         "invalid partition length",
	Address:                 "illegal load address",
	IllegalCoreCombination:  "illegal core combination",
	ChecksumType:            "unsupported checksum type",
	CoreType:                "invalid destination core",
	DestinationDevice:       "invalid destination device",
	BootHeader:              "invalid boot header",
	PLNotEnabled:            "bitstream loading not enabled",
	DeviceCopy:              "device copy failed",
	PartitionDigest:         "partition digest mismatch",
	DigestUnavailable:       "no digester configured",
	Authentication:          "authentication failed",
	HandoffTableFull:        "handoff table full",
	DDRNotReady:             "ddr not ready",
	MemoryAccess:            "memory access failed",
	UnsupportedClusterID:    "unsupported cluster id",
	UnsupportedBootMode:     "unsupported boot mode",
	DeviceInit:              "boot device init failed",
	PsuInit:                 "psu init failed",
	BoardInit:               "board init failed",
	PowerUpA530:             "a53-0 power up failed",
	PowerUpA531:             "a53-1 power up failed",
	PowerUpA532:             "a53-2 power up failed",
	PowerUpA533:             "a53-3 power up failed",
	PowerUpR50:              "r5-0 power up failed",
	PowerUpR51:              "r5-1 power up failed",
	PowerUpR5Lockstep:       "r5 lockstep power up failed",
	PowerUpCore:             "core power up failed",
	UnavailableCore:         "core unavailable",
	UnsupportedHandoff:      "unsupported handoff",
	HandoffCoreID:           "invalid handoff core",
	BeforeHandoff:           "before handoff hook failed",
	PMInit:                  "pm init failed",
	ProtectionConfig:        "protection config failed",
	DeviceRelease:           "boot device release failed",
	Failure:                 "failure",
}
