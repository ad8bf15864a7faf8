package bootimage

import "github.com/moffa90/go-fsbl/status"

// Context carries the runtime facts partition header validation depends on.
type Context struct {
	// RunningCore is the core executing the loader
	RunningCore Core

	// MasterOnlyReset is set when only the boot master was restarted
	MasterOnlyReset bool

	// Memory is the populated memory map of the board
	Memory MemoryMap
}

// ValidateImageHeaderTable checks the table checksum, the partition present
// device and the partition count. It returns ErrSecondaryBootMode when the
// remaining partitions live on another device.
func ValidateImageHeaderTable(t *ImageHeaderTable) error {
	if sum, err := ValidateChecksum(t.Words()); err != nil {
		return &ChecksumError{Table: true, Expected: sum, Actual: t.Checksum}
	}

	if t.PresentDevice > PresentSATA {
		return &RangeError{Field: "partition present device", Value: uint32(t.PresentDevice), Code: status.PartitionPresentDevice}
	}
	if t.PresentDevice != PresentSame {
		return ErrSecondaryBootMode
	}

	if t.Partitions <= MinPartitions || t.Partitions > MaxPartitions {
		return &RangeError{Field: "partition count", Value: t.Partitions, Code: status.PartitionCount}
	}
	return nil
}

// owns reports whether a master-only restarted runner loads partitions for dest.
func owns(running, dest Core) bool {
	switch running {
	case CoreA53_0:
		return dest.IsA53()
	case CoreR5_0:
		return dest == CoreR5_0
	case CoreR5Lockstep:
		return dest == CoreR5Lockstep
	}
	return false
}

// ValidatePartitionHeader checks one partition header and returns its
// destination core with an unset value replaced by the running core.
// ErrNotPartitionOwner means the partition is to be skipped.
func ValidatePartitionHeader(h *PartitionHeader, c Context) (Core, error) {
	if sum, err := ValidateChecksum(h.Words()); err != nil {
		return CoreNone, &ChecksumError{Expected: sum, Actual: h.Checksum}
	}

	if h.Owner() != OwnerFSBL {
		return CoreNone, ErrNotPartitionOwner
	}

	// The allow-list sees the raw destination: an unset core is never owned
	// after a partial restart.
	dest := h.DestinationCore()
	if c.MasterOnlyReset && !owns(c.RunningCore, dest) {
		return dest, ErrNotPartitionOwner
	}
	if dest == CoreNone {
		dest = c.RunningCore
	}

	if err := validateLengths(h); err != nil {
		return dest, err
	}

	dev := h.DestinationDevice()
	if !c.Memory.Legal(dest, dev, h.LoadAddress) {
		return dest, &AddressError{Address: h.LoadAddress, Core: dest, Device: dev}
	}

	if err := validateCombination(c.RunningCore, dest, h.LoadAddress); err != nil {
		return dest, err
	}

	if ct := h.ChecksumType(); ct != ChecksumNone && ct != ChecksumSHA3 {
		return dest, &RangeError{Field: "checksum type", Value: uint32(ct), Code: status.ChecksumType}
	}
	if dest > CorePMU {
		return dest, &RangeError{Field: "destination core", Value: uint32(dest), Code: status.CoreType}
	}
	if dev > DevicePMU {
		return dest, &RangeError{Field: "destination device", Value: uint32(dev), Code: status.DestinationDevice}
	}
	return dest, nil
}

func validateLengths(h *PartitionHeader) error {
	u, e, t := h.UnencryptedDataWordLength, h.EncryptedDataWordLength, h.TotalDataWordLength
	var ok bool
	switch signed, encrypted := h.Signed(), h.Encrypted(); {
	case !signed && !encrypted:
		ok = u == e && e == t
	case signed && !encrypted:
		ok = u == e && e < t
	case !signed && encrypted:
		ok = u < e && e == t
	default:
		ok = u < e && e < t
	}
	if ok {
		return nil
	}
	return &LengthError{
		Signed:      h.Signed(),
		Encrypted:   h.Encrypted(),
		Unencrypted: u,
		EncryptedLn: e,
		Total:       t,
	}
}

func validateCombination(running, dest Core, addr uint64) error {
	fromR5 := running == CoreR5_0 || running == CoreR5Lockstep
	switch {
	case fromR5 && dest.IsA53() && addr < R5DDRLowLimit,
		running == CoreR5Lockstep && (dest == CoreR5_0 || dest == CoreR5_1),
		running == CoreR5_0 && dest == CoreR5Lockstep:
		return &CombinationError{Running: running, Destination: dest, Address: addr}
	}
	return nil
}
