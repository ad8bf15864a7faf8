package loader

import (
	"fmt"

	"github.com/moffa90/go-fsbl/bootimage"
	"github.com/moffa90/go-fsbl/status"
)

// PartitionError ties a failure to the partition being loaded.
type PartitionError struct {
	Index int
	Err   error
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("partition %d: %v", e.Index, e.Err)
}

func (e *PartitionError) Unwrap() error { return e.Err }

// DeviceError indicates that the storage device failed.
type DeviceError struct {
	Src    uint32
	Dst    uint64
	Length uint32
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("copy %d bytes from 0x%X to 0x%X: %v", e.Length, e.Src, e.Dst, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

func (e *DeviceError) StatusCode() status.Code { return status.DeviceCopy }

// DigestError indicates loaded data that does not match its stored digest.
type DigestError struct {
	Expected []byte
	Actual   []byte
}

func (e *DigestError) Error() string {
	return fmt.Sprintf("digest mismatch: stored %x, computed %x", e.Expected, e.Actual)
}

func (e *DigestError) StatusCode() status.Code { return status.PartitionDigest }

// AuthError indicates a signature the verifier rejected.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) StatusCode() status.Code { return status.Authentication }

// ReservedError indicates a partition that would overwrite memory the loader
// is using.
type ReservedError struct {
	Address uint64
	Length  uint32
	Region  bootimage.Window
}

func (e *ReservedError) Error() string {
	return fmt.Sprintf("partition at 0x%X (%d bytes) overlaps reserved region 0x%X-0x%X",
		e.Address, e.Length, e.Region.Start, e.Region.End)
}

func (e *ReservedError) StatusCode() status.Code { return status.Address }
