package bootimage

// ImageHeaderTable is the fixed-layout record that locates the partition headers.
type ImageHeaderTable struct {
	// Version is the image format version
	Version uint32

	// Partitions is the number of partitions including the loader itself
	Partitions uint32

	// PartitionHeaderWordOffset is the word offset of the first partition header
	PartitionHeaderWordOffset uint32

	// Reserved is unused
	Reserved uint32

	// AuthCertificateWordOffset is the word offset of the header authentication certificate
	AuthCertificateWordOffset uint32

	// PresentDevice is where the remaining partitions live
	PresentDevice PresentDevice

	// Padding is reserved space preserved for checksum computation
	Padding [9]uint32

	// Checksum is the complemented word sum of the preceding fields
	Checksum uint32
}

// Words returns the table as the sixteen words it occupies in the image.
func (t *ImageHeaderTable) Words() []uint32 {
	w := make([]uint32, 0, HeaderWords)
	w = append(w, t.Version, t.Partitions, t.PartitionHeaderWordOffset, t.Reserved,
		t.AuthCertificateWordOffset, uint32(t.PresentDevice))
	w = append(w, t.Padding[:]...)
	return append(w, t.Checksum)
}

// PartitionHeader is the fixed-layout record that describes one partition.
type PartitionHeader struct {
	// EncryptedDataWordLength is the length of the encrypted data in words
	EncryptedDataWordLength uint32

	// UnencryptedDataWordLength is the length of the plain data in words
	UnencryptedDataWordLength uint32

	// TotalDataWordLength is the length including authentication data in words
	TotalDataWordLength uint32

	// NextPartitionWordOffset links to the next partition header
	NextPartitionWordOffset uint32

	// ExecAddress is where the destination core starts executing
	ExecAddress uint64

	// LoadAddress is where the data is copied to
	LoadAddress uint64

	// DataWordOffset is the word offset of the partition data from the image start
	DataWordOffset uint32

	// Attributes is the partition attribute bitfield
	Attributes uint32

	// SectionCount is the number of sections in the partition
	SectionCount uint32

	// ChecksumWordOffset is the word offset of the partition digest
	ChecksumWordOffset uint32

	// ImageHeaderWordOffset links back to the image header
	ImageHeaderWordOffset uint32

	// AuthCertificateWordOffset is the word offset of the authentication certificate
	AuthCertificateWordOffset uint32

	// IV is the partition number used for the AES IV
	IV uint32

	// Checksum is the complemented word sum of the preceding fields
	Checksum uint32
}

// Words returns the header as the sixteen words it occupies in the image.
func (h *PartitionHeader) Words() []uint32 {
	return []uint32{
		h.EncryptedDataWordLength,
		h.UnencryptedDataWordLength,
		h.TotalDataWordLength,
		h.NextPartitionWordOffset,
		uint32(h.ExecAddress), uint32(h.ExecAddress >> 32),
		uint32(h.LoadAddress), uint32(h.LoadAddress >> 32),
		h.DataWordOffset,
		h.Attributes,
		h.SectionCount,
		h.ChecksumWordOffset,
		h.ImageHeaderWordOffset,
		h.AuthCertificateWordOffset,
		h.IV,
		h.Checksum,
	}
}

// Owner returns the owner field.
func (h *PartitionHeader) Owner() uint32 { return h.Attributes & AttrOwnerMask }

// ChecksumType returns the content digest algorithm.
func (h *PartitionHeader) ChecksumType() ChecksumType {
	return ChecksumType(h.Attributes & AttrChecksumTypeMask)
}

// Encrypted reports whether the partition data is encrypted.
func (h *PartitionHeader) Encrypted() bool { return h.Attributes&AttrEncryptionMask != 0 }

// Signed reports whether the partition carries an RSA signature.
func (h *PartitionHeader) Signed() bool { return h.Attributes&AttrRSASignatureMask != 0 }

// DestinationCore returns the raw destination core, which may be CoreNone.
func (h *PartitionHeader) DestinationCore() Core {
	return Core((h.Attributes & AttrDestinationCoreMask) >> 8)
}

// DestinationDevice returns the destination device.
func (h *PartitionHeader) DestinationDevice() Device {
	return Device((h.Attributes & AttrDestinationDevMask) >> 4)
}

// AArch32 reports whether an A53 destination runs in 32-bit state.
func (h *PartitionHeader) AArch32() bool { return h.Attributes&AttrExecStateMask != 0 }

// HighVector reports whether an R5 or 32-bit A53 destination boots from the high vector.
func (h *PartitionHeader) HighVector() bool { return h.Attributes&AttrVectorLocationMask != 0 }

// TargetEL returns the exception level the destination starts in.
func (h *PartitionHeader) TargetEL() uint32 { return (h.Attributes & AttrTargetELMask) >> 1 }

// Secure reports whether the destination starts in the secure world.
func (h *PartitionHeader) Secure() bool { return h.Attributes&AttrTrustZoneMask != 0 }

// BigEndian reports whether the destination starts big-endian.
func (h *PartitionHeader) BigEndian() bool { return h.Attributes&AttrEndianMask != 0 }

// BlockSize returns the authentication block size in bytes, zero when unset.
func (h *PartitionHeader) BlockSize() uint64 {
	n := (h.Attributes & AttrBlockSizeMask) >> AttrBlockSizeShift
	if n == 0 {
		return 0
	}
	return (2 << n) << 20
}

// Image is the header set read from a boot image.
type Image struct {
	// Attributes is the image attributes word of the boot header
	Attributes uint32

	// Table is the image header table
	Table ImageHeaderTable

	// Partitions holds the partition headers in image order.
	// It is empty when Table points at a secondary boot device.
	Partitions []PartitionHeader
}
