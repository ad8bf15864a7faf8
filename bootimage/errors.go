package bootimage

import (
	"fmt"

	"github.com/moffa90/go-fsbl/status"
)

// ErrNotPartitionOwner is returned for a partition that this loader must skip.
var ErrNotPartitionOwner error = &status.Error{Op: "validate partition header", Code: status.NotPartitionOwner}

// ErrSecondaryBootMode is returned when the image continues on another boot device.
var ErrSecondaryBootMode error = &status.Error{Op: "validate image header table", Code: status.SecondaryBootMode}

// ChecksumError indicates that a header checksum does not match its contents.
type ChecksumError struct {
	// Table is set for the image header table and clear for a partition header
	Table    bool
	Expected uint32
	Actual   uint32
}

func (e *ChecksumError) Error() string {
	what := "partition header"
	if e.Table {
		what = "image header table"
	}
	return fmt.Sprintf("%s checksum mismatch: computed 0x%08X, stored 0x%08X", what, e.Expected, e.Actual)
}

func (e *ChecksumError) StatusCode() status.Code {
	if e.Table {
		return status.ImageHeaderChecksum
	}
	return status.PartitionHeaderChecksum
}

// RangeError indicates that an enumerated header field holds an unknown value.
type RangeError struct {
	Field string
	Value uint32
	Code  status.Code
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s out of range: 0x%X", e.Field, e.Value)
}

func (e *RangeError) StatusCode() status.Code { return e.Code }

// LengthError indicates that the partition length fields violate the
// relation required by its signed and encrypted attributes.
type LengthError struct {
	Signed      bool
	Encrypted   bool
	Unencrypted uint32
	EncryptedLn uint32
	Total       uint32
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("invalid partition length (signed=%t encrypted=%t): unencrypted=%d encrypted=%d total=%d",
		e.Signed, e.Encrypted, e.Unencrypted, e.EncryptedLn, e.Total)
}

func (e *LengthError) StatusCode() status.Code { return status.PartitionLength }

// AddressError indicates a load address outside every window legal for the destination.
type AddressError struct {
	Address uint64
	Core    Core
	Device  Device
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("load address 0x%X is not legal for core %s on device %s", e.Address, e.Core, e.Device)
}

func (e *AddressError) StatusCode() status.Code { return status.Address }

// CombinationError indicates a running and destination core pair that cannot be loaded.
type CombinationError struct {
	Running     Core
	Destination Core
	Address     uint64
}

func (e *CombinationError) Error() string {
	return fmt.Sprintf("core %s cannot load core %s at 0x%X", e.Running, e.Destination, e.Address)
}

func (e *CombinationError) StatusCode() status.Code { return status.IllegalCoreCombination }
