package device

import "fmt"

// CopyError indicates a copy that falls outside the device.
type CopyError struct {
	Src    uint32
	Length uint32
	Size   int
}

func (e *CopyError) Error() string {
	return fmt.Sprintf("copy of %d bytes at 0x%X exceeds device size 0x%X", e.Length, e.Src, e.Size)
}

// Flash is a Storage backed by an in-memory device image. It copies into Mem.
type Flash struct {
	// Image is the raw device contents
	Image []byte

	// Mem receives copied data
	Mem Memory

	// InitErr, when set, is returned by Init
	InitErr error

	// ReleaseErr, when set, is returned by Release
	ReleaseErr error

	mode     BootMode
	ready    bool
	released bool
	copies   int
}

// NewFlash returns a Flash device holding image.
func NewFlash(image []byte, mem Memory) *Flash {
	if mem == nil {
		panic("memory cannot be nil")
	}
	return &Flash{Image: image, Mem: mem}
}

// Init prepares the device.
func (f *Flash) Init(mode BootMode) error {
	if f.InitErr != nil {
		return f.InitErr
	}
	f.mode = mode
	f.ready = true
	f.released = false
	return nil
}

// Copy moves length bytes at src into memory at dst.
func (f *Flash) Copy(src uint32, dst uint64, length uint32) error {
	if !f.ready {
		return fmt.Errorf("copy before init")
	}
	end := uint64(src) + uint64(length)
	if end > uint64(len(f.Image)) {
		return &CopyError{Src: src, Length: length, Size: len(f.Image)}
	}
	if _, err := f.Mem.WriteAt(f.Image[src:end], int64(dst)); err != nil {
		return fmt.Errorf("write 0x%X: %w", dst, err)
	}
	f.copies++
	return nil
}

// Release shuts the device down.
func (f *Flash) Release() error {
	if f.ReleaseErr != nil {
		return f.ReleaseErr
	}
	f.ready = false
	f.released = true
	return nil
}

// Mode returns the mode the device was initialized for.
func (f *Flash) Mode() BootMode { return f.mode }

// Released reports whether Release was called since the last Init.
func (f *Flash) Released() bool { return f.released }

// Copies returns the number of successful copies.
func (f *Flash) Copies() int { return f.copies }
