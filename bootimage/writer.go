package bootimage

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// Boot header identification words.
const (
	WidthDetectionWord = 0xAA995566
	IdentificationWord = 0x584C4E58 // "XNLX"
)

// Fixed offsets of images produced by Builder.
const (
	tableOffset     = BootHeaderSize
	firstPartHeader = tableOffset + HeaderSize
)

// PartitionSpec describes one partition for Builder.
type PartitionSpec struct {
	// Data is the partition payload. Empty data makes an execute-in-place partition.
	Data []byte

	// Certificate is appended after Data when the partition is signed,
	// zero padded to AuthCertificateSize
	Certificate []byte

	// LoadAddress is where the loader copies the partition
	LoadAddress uint64

	// ExecAddress is where the destination core starts
	ExecAddress uint64

	// Attributes is the partition attribute bitfield
	Attributes uint32

	// Adjust, when set, may rewrite the header before its checksum is computed
	Adjust func(*PartitionHeader)
}

// Builder assembles a boot image: a boot header, the image header table,
// the partition headers and the partition payloads.
//
// Example:
//
//	img, err := bootimage.NewBuilder().
//	    Add(bootimage.PartitionSpec{Data: fsbl, LoadAddress: 0xFFFC0000}).
//	    Add(bootimage.PartitionSpec{Data: app, LoadAddress: 0x100000, ExecAddress: 0x100000}).
//	    Bytes()
type Builder struct {
	// Version is written into the image header table
	Version uint32

	// PresentDevice is written into the image header table
	PresentDevice PresentDevice

	// Attributes is the boot header image attributes word
	Attributes uint32

	parts []PartitionSpec
}

// NewBuilder returns an empty Builder for format version 0x01020000.
func NewBuilder() *Builder {
	return &Builder{Version: 0x01020000}
}

// Add appends a partition.
func (b *Builder) Add(p PartitionSpec) *Builder {
	b.parts = append(b.parts, p)
	return b
}

// PartitionHeaderOffset returns the byte offset of partition header i in
// images produced by Builder.
func PartitionHeaderOffset(i int) int {
	return firstPartHeader + i*HeaderSize
}

// TableOffset returns the byte offset of the image header table in images
// produced by Builder.
func TableOffset() int {
	return tableOffset
}

func alignWords(n int) int {
	return (n + WordSize - 1) / WordSize
}

func align64(n int) int {
	return (n + 63) &^ 63
}

// Bytes lays out the image and returns it.
func (b *Builder) Bytes() ([]byte, error) {
	if len(b.parts) == 0 {
		return nil, fmt.Errorf("image needs at least one partition")
	}

	headers := make([]PartitionHeader, len(b.parts))
	var payload []byte
	dataStart := align64(PartitionHeaderOffset(len(b.parts)))
	cursor := dataStart

	for i, p := range b.parts {
		h := &headers[i]
		dataWords := alignWords(len(p.Data))
		certWords := 0
		if p.Attributes&AttrRSASignatureMask != 0 {
			if len(p.Certificate) > AuthCertificateSize {
				return nil, fmt.Errorf("partition %d: certificate of %d bytes exceeds 0x%X", i, len(p.Certificate), AuthCertificateSize)
			}
			certWords = AuthCertificateSize / WordSize
		}

		h.UnencryptedDataWordLength = uint32(dataWords)
		h.EncryptedDataWordLength = uint32(dataWords)
		h.TotalDataWordLength = uint32(dataWords + certWords)
		h.LoadAddress = p.LoadAddress
		h.ExecAddress = p.ExecAddress
		h.Attributes = p.Attributes
		h.SectionCount = 1
		h.ImageHeaderWordOffset = tableOffset / WordSize
		h.IV = uint32(i)
		if i+1 < len(b.parts) {
			h.NextPartitionWordOffset = uint32(PartitionHeaderOffset(i+1) / WordSize)
		}

		region := make([]byte, (dataWords+certWords)*WordSize)
		copy(region, p.Data)
		if certWords > 0 {
			h.AuthCertificateWordOffset = uint32((cursor + dataWords*WordSize) / WordSize)
			copy(region[dataWords*WordSize:], p.Certificate)
		}
		if len(region) > 0 {
			h.DataWordOffset = uint32(cursor / WordSize)
		}
		payload = append(payload, region...)
		cursor += len(region)

		if ChecksumType(p.Attributes&AttrChecksumTypeMask) == ChecksumSHA3 {
			sum := sha3.Sum384(region)
			h.ChecksumWordOffset = uint32(cursor / WordSize)
			payload = append(payload, sum[:]...)
			cursor += len(sum)
		}

		pad := align64(cursor) - cursor
		payload = append(payload, make([]byte, pad)...)
		cursor += pad

		if p.Adjust != nil {
			p.Adjust(h)
		}
		w := h.Words()
		h.Checksum = Checksum(w[:HeaderWords-1])
	}

	table := ImageHeaderTable{
		Version:                   b.Version,
		Partitions:                uint32(len(b.parts)),
		PartitionHeaderWordOffset: firstPartHeader / WordSize,
		PresentDevice:             b.PresentDevice,
	}
	tw := table.Words()
	table.Checksum = Checksum(tw[:HeaderWords-1])

	img := make([]byte, dataStart, cursor)
	binary.LittleEndian.PutUint32(img[0x20:], WidthDetectionWord)
	binary.LittleEndian.PutUint32(img[0x24:], IdentificationWord)
	binary.LittleEndian.PutUint32(img[BootHeaderAttributesOffset:], b.Attributes)
	binary.LittleEndian.PutUint32(img[BootHeaderTableOffset:], tableOffset)

	tb, _ := table.MarshalBinary()
	copy(img[tableOffset:], tb)
	for i := range headers {
		hb, _ := headers[i].MarshalBinary()
		copy(img[PartitionHeaderOffset(i):], hb)
	}
	return append(img, payload...), nil
}
