package boot

import (
	"errors"
	"fmt"

	"github.com/moffa90/go-fsbl/bootimage"
	"github.com/moffa90/go-fsbl/device"
	"github.com/moffa90/go-fsbl/handoff"
	"github.com/moffa90/go-fsbl/hw"
	"github.com/moffa90/go-fsbl/loader"
	"github.com/moffa90/go-fsbl/status"
)

// initBootDevice is the boot device stage: it selects the storage driver for
// the strapped boot mode, reads the image headers and prepares the loader.
func (m *Machine) initBootDevice() error {
	m.mode = device.BootMode(m.regs.Read32(hw.BootModeUser) & hw.BootModeMask)
	m.logInfo("boot mode", "mode", m.mode.String())
	if m.mode == device.ModeJTAG {
		return ErrJTAGMode
	}

	s, ok := m.config.Storage[m.mode]
	if !ok {
		return status.New(fmt.Sprintf("select %s boot device", m.mode), status.UnsupportedBootMode)
	}
	if err := s.Init(m.mode); err != nil {
		return &StorageError{Op: "init", Code: status.DeviceInit, Err: err}
	}
	m.storage = s

	if m.mode.Raw() {
		m.offset = m.regs.Read32(hw.CSUMultiBoot) * bootimage.ImageSearchOffset
	}
	m.logDebug("image offset", "offset", fmt.Sprintf("0x%X", m.offset))

	img, err := m.readImage()
	if err != nil {
		return err
	}
	m.image = img

	m.loader = loader.New(s, m.mem, m.regs, m.registry, loader.Config{
		Memory:         m.config.MemoryMap,
		Digester:       m.config.Digester,
		Verifier:       m.config.Verifier,
		ScratchAddress: m.config.ScratchAddress,
		Reserved: []bootimage.Window{
			{Start: m.config.ScratchAddress, End: m.config.ScratchAddress + loader.ScratchSize},
			{Start: m.config.HandoffParamsAddress, End: m.config.HandoffParamsAddress + handoff.ParamsSize},
		},
		DDRSelfRefresh: m.config.DDRSelfRefresh,
		DDRRetries:     m.config.DDRRetries,
		Logger:         m.config.Logger,
	})
	return nil
}

// readImage reads the boot header, the image header table and every
// partition header. A table pointing at a secondary boot device yields an
// image without partitions.
func (m *Machine) readImage() (*bootimage.Image, error) {
	b, err := m.read(m.offset, bootimage.BootHeaderSize)
	if err != nil {
		return nil, err
	}
	bh, err := bootimage.ParseBootHeader(b)
	if err != nil {
		return nil, &status.Error{Op: "parse boot header", Code: status.BootHeader}
	}
	img := &bootimage.Image{Attributes: bh.Attributes}

	if b, err = m.read(m.offset+bh.TableOffset, bootimage.HeaderSize); err != nil {
		return nil, err
	}
	t, err := bootimage.ParseImageHeaderTable(b)
	if err != nil {
		return nil, fmt.Errorf("read image header table: %w", err)
	}
	img.Table = *t

	err = bootimage.ValidateImageHeaderTable(t)
	if errors.Is(err, bootimage.ErrSecondaryBootMode) {
		m.logInfo("partitions on secondary boot device", "device", uint32(t.PresentDevice))
		return img, nil
	}
	if err != nil {
		return nil, err
	}

	off := t.PartitionHeaderWordOffset * bootimage.WordSize
	for i := 0; i < int(t.Partitions); i++ {
		if b, err = m.read(m.offset+off, bootimage.HeaderSize); err != nil {
			return nil, err
		}
		h, err := bootimage.ParsePartitionHeader(b)
		if err != nil {
			return nil, fmt.Errorf("read partition header %d: %w", i, err)
		}
		img.Partitions = append(img.Partitions, *h)

		core := h.DestinationCore()
		if core == bootimage.CoreNone {
			core = m.running
		}
		added, err := m.params.Add(h, core, i)
		if err != nil {
			return nil, err
		}
		if added {
			m.logDebug("handoff parameter", "partition", i, "core", core.String(), "entry", fmt.Sprintf("0x%X", h.ExecAddress))
		}

		off = h.NextPartitionWordOffset * bootimage.WordSize
	}

	m.logInfo("image headers read", "partitions", len(img.Partitions))
	return img, nil
}

func (m *Machine) read(src uint32, n int) ([]byte, error) {
	b, err := device.ReadBytes(m.storage, m.mem, m.config.ScratchAddress, src, n)
	if err != nil {
		return nil, &loader.DeviceError{Src: src, Dst: m.config.ScratchAddress, Length: uint32(n), Err: err}
	}
	return b, nil
}
