package bootimage

import "errors"

// ErrChecksumLength is returned when a word array is too short to carry a checksum.
var ErrChecksumLength = errors.New("checksum needs at least two words")

// Checksum computes the header checksum of words: the bitwise complement of
// their sum.
func Checksum(words []uint32) uint32 {
	var sum uint32
	for _, w := range words {
		sum += w
	}
	return ^sum
}

// ValidateChecksum checks that the last word of words is the checksum of the
// words before it. It returns the computed value for error reporting.
func ValidateChecksum(words []uint32) (uint32, error) {
	if len(words) < 2 {
		return 0, ErrChecksumLength
	}
	n := len(words) - 1
	sum := Checksum(words[:n])
	if sum != words[n] {
		return sum, errChecksumMismatch
	}
	return sum, nil
}

var errChecksumMismatch = errors.New("checksum mismatch")
