package bootimage

import "fmt"

// Layout constants for the boot image.
const (
	// WordSize is the size in bytes of one header word
	WordSize = 4

	// HeaderWords is the number of words in both the image header table and a partition header
	HeaderWords = 16

	// HeaderSize is the size in bytes of both header kinds
	HeaderSize = HeaderWords * WordSize

	// BootHeaderSize is the size of the boot header including the register init table
	BootHeaderSize = 0x8C0

	// BootHeaderAttributesOffset is the byte offset of the image attributes word in the boot header
	BootHeaderAttributesOffset = 0x44

	// BootHeaderTableOffset is the byte offset of the image header table pointer in the boot header
	BootHeaderTableOffset = 0x98

	// ImageSearchOffset is the distance between consecutive images on raw storage
	ImageSearchOffset = 0x8000

	// DigestSize is the size of a SHA3-384 partition digest
	DigestSize = 48

	// AuthCertificateSize is the size of a partition authentication certificate
	AuthCertificateSize = 0xEC0
)

// Partition table capacities.
const (
	// MinPartitions is the exclusive lower bound of the partition count
	MinPartitions = 1

	// MaxPartitions is the inclusive upper bound of the partition count
	MaxPartitions = 32
)

// Partition attribute masks.
const (
	AttrVectorLocationMask  = 0x800000
	AttrVectorLocationShift = 23
	AttrBlockSizeMask       = 0x700000
	AttrBlockSizeShift      = 20
	AttrEndianMask          = 0x40000
	AttrOwnerMask           = 0x30000
	AttrRSASignatureMask    = 0x8000
	AttrChecksumTypeMask    = 0x7000
	AttrDestinationCoreMask = 0xF00
	AttrEncryptionMask      = 0x80
	AttrDestinationDevMask  = 0x70
	AttrExecStateMask       = 0x8
	AttrTargetELMask        = 0x6
	AttrTrustZoneMask       = 0x1
)

// Owner values.
const (
	// OwnerFSBL marks partitions loaded by this loader
	OwnerFSBL = 0x0

	// OwnerUBoot marks partitions loaded by a later stage
	OwnerUBoot = 0x10000
)

// ChecksumType is the partition content checksum algorithm.
type ChecksumType uint32

const (
	// ChecksumNone means the partition carries no digest
	ChecksumNone ChecksumType = 0x0

	// ChecksumSHA3 means the partition carries a SHA3-384 digest
	ChecksumSHA3 ChecksumType = 0x3000
)

// Core identifies a destination processor. Values match the destination
// core field of the partition attributes shifted down by eight bits.
type Core uint32

const (
	CoreNone Core = iota
	CoreA53_0
	CoreA53_1
	CoreA53_2
	CoreA53_3
	CoreR5_0
	CoreR5_1
	CoreR5Lockstep
	CorePMU
)

var coreNames = [...]string{"none", "a53-0", "a53-1", "a53-2", "a53-3", "r5-0", "r5-1", "r5-lockstep", "pmu"}

func (c Core) String() string {
	if int(c) < len(coreNames) {
		return coreNames[c]
	}
	return "invalid"
}

// ParseCore returns the core named s, as printed by Core.String.
func ParseCore(s string) (Core, error) {
	for i, name := range coreNames {
		if i != int(CoreNone) && name == s {
			return Core(i), nil
		}
	}
	return CoreNone, fmt.Errorf("unknown core %q", s)
}

// IsA53 reports whether c is one of the application cores.
func (c Core) IsA53() bool {
	return c >= CoreA53_0 && c <= CoreA53_3
}

// IsR5 reports whether c is a real-time core in either mode.
func (c Core) IsR5() bool {
	return c >= CoreR5_0 && c <= CoreR5Lockstep
}

// A53Index returns the application core number of c.
func (c Core) A53Index() int {
	return int(c - CoreA53_0)
}

// Device is the destination device of a partition.
type Device uint32

const (
	DeviceNone Device = iota
	DevicePS
	DevicePL
	DevicePMU
)

func (d Device) String() string {
	switch d {
	case DeviceNone:
		return "none"
	case DevicePS:
		return "ps"
	case DevicePL:
		return "pl"
	case DevicePMU:
		return "pmu"
	default:
		return "invalid"
	}
}

// PresentDevice is the partition present device code of the image header table.
type PresentDevice uint32

const (
	PresentSame PresentDevice = iota
	PresentQSPI24
	PresentQSPI32
	PresentSD0
	PresentNAND
	PresentSD1
	PresentEMMC
	PresentUSB
	PresentEthernet
	PresentPCIe
	PresentSATA
)

// PLSentinelAddress is the load address a fabric partition carries before
// a concrete address is assigned.
const PLSentinelAddress = 0xFFFFFFFF
