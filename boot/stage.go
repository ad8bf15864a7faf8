package boot

import (
	"fmt"

	"github.com/moffa90/go-fsbl/status"
)

// Stage is a step of the boot sequence.
type Stage int

const (
	// StageInit brings up the processor and the system
	StageInit Stage = iota

	// StageBootDeviceInit detects the boot device and reads the image headers
	StageBootDeviceInit

	// StagePartitionLoad loads State.Partition
	StagePartitionLoad

	// StageHandoff starts the loaded cores
	StageHandoff

	// StageDone is terminal. The loader has given up control.
	StageDone

	// StageFailed is terminal. The failure has been recorded.
	StageFailed
)

var stageNames = [...]string{"init", "boot device init", "partition load", "handoff", "done", "error"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Base returns the value added to status codes of failures in stage s
// before they are written to the error status register.
func (s Stage) Base() status.Code {
	switch s {
	case StageInit:
		return status.StageInitBase
	case StageBootDeviceInit:
		return status.StageBootDeviceBase
	case StagePartitionLoad:
		return status.StagePartitionLoadBase
	case StageHandoff:
		return status.StageHandoffBase
	}
	return 0
}

// State is the position of the boot sequence.
type State struct {
	// Stage is the current stage
	Stage Stage

	// Status is the code reported by the last stage
	Status status.Code

	// Partition is the partition being loaded
	Partition int

	// Partitions is the partition count of the image, the loader included
	Partitions int

	// EarlyHandoff is passed to the before-handoff hook
	EarlyHandoff bool

	// Failed is the stage that moved the machine to StageFailed
	Failed Stage
}

// Persisted returns the error status register value for a failed state.
func (s State) Persisted() uint32 {
	return status.Persisted(s.Failed.Base(), s.Status)
}

// Event is the outcome of running the current stage.
type Event struct {
	// Status is the stage result
	Status status.Code

	// Partitions is the partition count found by StageBootDeviceInit
	Partitions int

	// EarlyHandoff is set by StagePartitionLoad when the loaded
	// partition asks to be started before the rest are loaded
	EarlyHandoff bool
}

// Initial returns the state a boot starts in.
func Initial() State {
	return State{Stage: StageInit}
}

// Next returns the state that follows s after ev. StageDone and StageFailed
// absorb every event.
func Next(s State, ev Event) State {
	s.Status = ev.Status

	switch s.Stage {
	case StageInit:
		if ev.Status != status.Success {
			return fail(s)
		}
		s.Stage = StageBootDeviceInit

	case StageBootDeviceInit:
		switch ev.Status {
		case status.JTAGMode:
			s.Stage = StageHandoff
		case status.Success:
			s.Partitions = ev.Partitions
			// Partition 0 is the loader itself.
			if s.Partitions <= 1 {
				s.Stage = StageHandoff
				break
			}
			s.Partition = 1
			s.Stage = StagePartitionLoad
		default:
			return fail(s)
		}

	case StagePartitionLoad:
		if ev.Status != status.Success {
			return fail(s)
		}
		if s.Partition < s.Partitions-1 {
			s.Partition++
			break
		}
		s.EarlyHandoff = ev.EarlyHandoff
		s.Stage = StageHandoff

	case StageHandoff:
		if ev.Status != status.Success {
			return fail(s)
		}
		s.Stage = StageDone
	}
	return s
}

func fail(s State) State {
	s.Failed = s.Stage
	s.Stage = StageFailed
	return s
}
