// Package loader moves partitions from the boot device into memory.
//
// For each partition Load validates the header, copies the data, checks
// its signature and digest when the image asks for it and records where the
// destination core starts. Execute-in-place partitions are only recorded.
// After the last PMU firmware partition the PMU is woken and Load waits for
// the firmware to report itself present.
package loader
