package boot

import (
	"fmt"

	"github.com/moffa90/go-fsbl/bootimage"
	"github.com/moffa90/go-fsbl/status"
)

// ErrJTAGMode is returned by the boot device stage when the board is in JTAG
// boot mode. It is not a failure: nothing is loaded and the boot proceeds
// straight to handoff.
var ErrJTAGMode error = &status.Error{Op: "detect boot device", Code: status.JTAGMode}

// StageError is returned by Run when a stage fails.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StatusCode returns the code of the underlying failure.
func (e *StageError) StatusCode() status.Code { return status.CodeOf(e.Err) }

// Persisted returns the value written to the error status register.
func (e *StageError) Persisted() uint32 {
	return status.Persisted(e.Stage.Base(), status.CodeOf(e.Err))
}

// HookError indicates a board hook failed.
type HookError struct {
	Hook string
	Code status.Code
	Err  error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook failed: %v", e.Hook, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

func (e *HookError) StatusCode() status.Code { return e.Code }

// ClusterError indicates the loader runs on a core it does not support.
type ClusterError struct {
	ClusterID uint64
}

func (e *ClusterError) Error() string {
	return fmt.Sprintf("unsupported cluster id 0x%X", e.ClusterID)
}

func (e *ClusterError) StatusCode() status.Code { return status.UnsupportedClusterID }

// UnavailableCoreError indicates a handoff to a core the device does not have.
type UnavailableCoreError struct {
	Core bootimage.Core
}

func (e *UnavailableCoreError) Error() string {
	return fmt.Sprintf("core %s is not available on this device", e.Core)
}

func (e *UnavailableCoreError) StatusCode() status.Code { return status.UnavailableCore }

// UnsupportedHandoffError indicates the running core was asked to change
// execution width.
type UnsupportedHandoffError struct {
	Core           bootimage.Core
	RunningAArch32 bool
	TargetAArch32  bool
}

func (e *UnsupportedHandoffError) Error() string {
	return fmt.Sprintf("unsupported handoff on %s: %s to %s",
		e.Core, width(e.RunningAArch32), width(e.TargetAArch32))
}

func (e *UnsupportedHandoffError) StatusCode() status.Code { return status.UnsupportedHandoff }

func width(aarch32 bool) string {
	if aarch32 {
		return "32 bit"
	}
	return "64 bit"
}

// StorageError indicates the boot device could not be brought up or shut down.
type StorageError struct {
	Op   string
	Code status.Code
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("boot device %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) StatusCode() status.Code { return e.Code }
