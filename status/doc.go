// Package status defines the boot status codes shared by every stage of the
// loader and the error type that carries them.
//
// # Status Codes
//
// Every failure maps onto a Code. Three codes are not failures: NotPartitionOwner
// (the partition is skipped), SecondaryBootMode (header reading stops early and
// boot continues) and JTAGMode (no image is loaded). Code.Fatal separates them
// from real failures.
//
// # Error Handling
//
// Typed errors across the module implement Coder. CodeOf unwraps any error
// chain and returns its code:
//
//	if err := ldr.Load(ctx, target, i); err != nil {
//	    regs.Write32(hw.ErrorStatus, status.Persisted(status.StagePartitionLoadBase, status.CodeOf(err)))
//	}
package status
