// Package boot runs the first-stage boot sequence of the loader.
//
// # Overview
//
// A boot moves through a fixed set of stages:
//   - Init identifies the running core and the reset reason and runs the
//     board bring-up hooks
//   - BootDeviceInit selects the storage driver for the strapped boot mode
//     and reads the image headers
//   - PartitionLoad loads partitions 1 to n-1; partition 0 is the loader
//   - Handoff starts every loaded core and transfers control
//
// A failure in any stage ends in the Error stage: the stage-qualified
// status is written to the error status register and, when the boot mode
// supports it, the next image is selected and the system soft reset.
//
// The transition rules live in Next, a pure function of the current State
// and the stage outcome, so they can be checked without hardware.
//
// # Basic Usage
//
//	regs := hw.NewMap()
//	mem := device.NewRAM()
//	flash := device.NewFlash(image, mem)
//
//	m := boot.New(regs, mem, cpu,
//	    boot.WithStorage(device.ModeQSPI32, flash),
//	)
//	res, err := m.Run(context.Background())
//	if err != nil {
//	    var se *boot.StageError
//	    if errors.As(err, &se) {
//	        fmt.Printf("failed in %s: 0x%X\n", se.Stage, se.Persisted())
//	    }
//	}
//
// # Board Hooks
//
// Clock, DDR and peripheral configuration is board specific and supplied
// through Hooks. A nil hook is skipped.
//
// # Logging
//
// The default logger writes through glog. Debug output needs -v=2 and info
// output -v=1. WithLogger replaces it; WithLogger(nil) silences the machine.
package boot
