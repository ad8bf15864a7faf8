package device

import (
	"fmt"
	"io"
)

// BootMode is the boot source selected by the mode pins.
type BootMode uint32

// Boot modes as reported in the low nibble of the boot mode register.
const (
	ModeJTAG   BootMode = 0x0
	ModeQSPI24 BootMode = 0x1
	ModeQSPI32 BootMode = 0x2
	ModeSD0    BootMode = 0x3
	ModeNAND   BootMode = 0x4
	ModeSD1    BootMode = 0x5
	ModeEMMC   BootMode = 0x6
	ModeUSB    BootMode = 0x7
	ModeSD1LS  BootMode = 0xE
)

func (m BootMode) String() string {
	switch m {
	case ModeJTAG:
		return "jtag"
	case ModeQSPI24:
		return "qspi24"
	case ModeQSPI32:
		return "qspi32"
	case ModeSD0:
		return "sd0"
	case ModeNAND:
		return "nand"
	case ModeSD1:
		return "sd1"
	case ModeEMMC:
		return "emmc"
	case ModeUSB:
		return "usb"
	case ModeSD1LS:
		return "sd1-ls"
	default:
		return fmt.Sprintf("mode(0x%X)", uint32(m))
	}
}

// ParseBootMode returns the mode named s.
func ParseBootMode(s string) (BootMode, error) {
	for _, m := range []BootMode{ModeJTAG, ModeQSPI24, ModeQSPI32, ModeSD0, ModeNAND, ModeSD1, ModeEMMC, ModeUSB, ModeSD1LS} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown boot mode %q", s)
}

// Retryable reports whether the mode supports falling back to the next
// image after a reset.
func (m BootMode) Retryable() bool {
	switch m {
	case ModeQSPI24, ModeQSPI32, ModeSD0, ModeNAND, ModeSD1, ModeEMMC, ModeSD1LS:
		return true
	}
	return false
}

// Raw reports whether images sit at fixed offsets on the device rather than
// in files, in which case consecutive images are ImageSearchOffset apart.
func (m BootMode) Raw() bool {
	switch m {
	case ModeQSPI24, ModeQSPI32, ModeNAND:
		return true
	}
	return false
}

// Storage is a boot device driver.
type Storage interface {
	// Init prepares the device for the given boot mode.
	Init(mode BootMode) error

	// Copy moves length bytes at src on the device to the physical address dst.
	Copy(src uint32, dst uint64, length uint32) error

	// Release shuts the device down before handoff.
	Release() error
}

// Memory is the physical address space load targets are written into.
type Memory interface {
	io.ReaderAt
	io.WriterAt
}

// ReadBytes copies n bytes at src through s into memory at scratch and
// returns them.
func ReadBytes(s Storage, mem Memory, scratch uint64, src uint32, n int) ([]byte, error) {
	if err := s.Copy(src, scratch, uint32(n)); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := mem.ReadAt(b, int64(scratch)); err != nil {
		return nil, fmt.Errorf("read back 0x%X: %w", scratch, err)
	}
	return b, nil
}
