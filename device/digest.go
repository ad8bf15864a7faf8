package device

import (
	"hash"

	"golang.org/x/crypto/sha3"
)

// Digester computes partition digests.
type Digester interface {
	// Digest returns the digest of data.
	Digest(data []byte) []byte

	// Size returns the digest length in bytes.
	Size() int
}

// Verifier checks partition signatures.
type Verifier interface {
	// Verify checks data against an authentication certificate.
	Verify(data, certificate []byte) error
}

// SHA3 is the SHA3-384 digester used for partition checksums.
type SHA3 struct{}

func (SHA3) newHash() hash.Hash { return sha3.New384() }

// Digest returns the SHA3-384 digest of data.
func (s SHA3) Digest(data []byte) []byte {
	h := s.newHash()
	h.Write(data)
	return h.Sum(nil)
}

// Size returns 48.
func (s SHA3) Size() int { return s.newHash().Size() }
