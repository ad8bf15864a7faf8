// Package bootimage models the boot image headers and validates them.
//
// A boot image starts with a boot header that points at the image header
// table. The table locates a chain of partition headers linked through
// their next-partition offsets. Both header kinds are sixteen little-endian
// words closed by a checksum word, the complement of the sum of the others.
//
// # Validation
//
// ValidateImageHeaderTable and ValidatePartitionHeader check every field
// before the loader acts on it:
//
//	core, err := bootimage.ValidatePartitionHeader(h, bootimage.Context{
//	    RunningCore: bootimage.CoreA53_0,
//	    Memory:      bootimage.DefaultMemoryMap(),
//	})
//	switch {
//	case errors.Is(err, bootimage.ErrNotPartitionOwner):
//	    // skip
//	case err != nil:
//	    return err
//	}
//
// # Building Images
//
// Builder writes complete images, which is how tests and the simulator get
// their input.
package bootimage
