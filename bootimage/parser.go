package bootimage

import (
	"encoding/binary"
	"fmt"
)

// BootHeader holds the boot header fields the loader consumes.
type BootHeader struct {
	// Attributes is the image attributes word
	Attributes uint32

	// TableOffset is the byte offset of the image header table from the image start
	TableOffset uint32
}

// ParseBootHeader extracts the image header table location from a raw boot header.
func ParseBootHeader(b []byte) (*BootHeader, error) {
	if len(b) < BootHeaderTableOffset+WordSize {
		return nil, fmt.Errorf("boot header too short: got %d bytes, minimum is %d", len(b), BootHeaderTableOffset+WordSize)
	}
	return &BootHeader{
		Attributes:  binary.LittleEndian.Uint32(b[BootHeaderAttributesOffset:]),
		TableOffset: binary.LittleEndian.Uint32(b[BootHeaderTableOffset:]),
	}, nil
}

// words decodes a little-endian header into its sixteen words.
func words(b []byte) ([]uint32, error) {
	if len(b) < HeaderSize {
		return nil, fmt.Errorf("header too short: got %d bytes, expected %d", len(b), HeaderSize)
	}
	w := make([]uint32, HeaderWords)
	for i := range w {
		w[i] = binary.LittleEndian.Uint32(b[i*WordSize:])
	}
	return w, nil
}

// ParseImageHeaderTable decodes an image header table. The checksum is not checked.
func ParseImageHeaderTable(b []byte) (*ImageHeaderTable, error) {
	w, err := words(b)
	if err != nil {
		return nil, fmt.Errorf("image header table: %w", err)
	}
	t := &ImageHeaderTable{
		Version:                   w[0],
		Partitions:                w[1],
		PartitionHeaderWordOffset: w[2],
		Reserved:                  w[3],
		AuthCertificateWordOffset: w[4],
		PresentDevice:             PresentDevice(w[5]),
		Checksum:                  w[15],
	}
	copy(t.Padding[:], w[6:15])
	return t, nil
}

// ParsePartitionHeader decodes a partition header. The checksum is not checked.
func ParsePartitionHeader(b []byte) (*PartitionHeader, error) {
	w, err := words(b)
	if err != nil {
		return nil, fmt.Errorf("partition header: %w", err)
	}
	return &PartitionHeader{
		EncryptedDataWordLength:   w[0],
		UnencryptedDataWordLength: w[1],
		TotalDataWordLength:       w[2],
		NextPartitionWordOffset:   w[3],
		ExecAddress:               uint64(w[4]) | uint64(w[5])<<32,
		LoadAddress:               uint64(w[6]) | uint64(w[7])<<32,
		DataWordOffset:            w[8],
		Attributes:                w[9],
		SectionCount:              w[10],
		ChecksumWordOffset:        w[11],
		ImageHeaderWordOffset:     w[12],
		AuthCertificateWordOffset: w[13],
		IV:                        w[14],
		Checksum:                  w[15],
	}, nil
}

// encodeWords writes words little-endian.
func encodeWords(w []uint32) []byte {
	b := make([]byte, len(w)*WordSize)
	for i, v := range w {
		binary.LittleEndian.PutUint32(b[i*WordSize:], v)
	}
	return b
}

// MarshalBinary encodes the table as it appears in the image.
func (t *ImageHeaderTable) MarshalBinary() ([]byte, error) {
	return encodeWords(t.Words()), nil
}

// MarshalBinary encodes the header as it appears in the image.
func (h *PartitionHeader) MarshalBinary() ([]byte, error) {
	return encodeWords(h.Words()), nil
}
