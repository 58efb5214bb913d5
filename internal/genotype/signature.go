package genotype

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
)

// Codec turns genetic data into the canonical bytes used for fingerprinting
// and makes defensive copies of it.
type Codec[D any] interface {
	Encode(data D) []byte
	Clone(data D) D
}

// ComputeFingerprint is the hex sha1 of the encoded data. Metadata never
// takes part, so equal data always yields equal fingerprints.
func ComputeFingerprint[D any](codec Codec[D], data D) string {
	digest := sha1.Sum(codec.Encode(data))
	return hex.EncodeToString(digest[:])
}

// BitsCodec encodes []bool as a little-endian length prefix followed by the
// bits packed eight per byte.
type BitsCodec struct{}

func (BitsCodec) Encode(bits []bool) []byte {
	out := make([]byte, 8, 8+(len(bits)+7)/8)
	binary.LittleEndian.PutUint64(out, uint64(len(bits)))
	var cur byte
	for i, b := range bits {
		if b {
			cur |= 1 << (i % 8)
		}
		if i%8 == 7 {
			out = append(out, cur)
			cur = 0
		}
	}
	if len(bits)%8 != 0 {
		out = append(out, cur)
	}
	return out
}

func (BitsCodec) Clone(bits []bool) []bool {
	return append([]bool(nil), bits...)
}

// Hamming counts positions where a and b differ. Missing positions of the
// shorter slice count as differences.
func Hamming(a, b []bool) int {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	diff := len(long) - len(short)
	for i := range short {
		if short[i] != long[i] {
			diff++
		}
	}
	return diff
}

// FormatBits renders bits as a string of '0' and '1'.
func FormatBits(bits []bool) string {
	out := make([]byte, len(bits))
	for i, b := range bits {
		out[i] = '0'
		if b {
			out[i] = '1'
		}
	}
	return string(out)
}
