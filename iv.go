/*
@Description: Per-packet AES-CBC IV derivation
@Language: Go 1.23.4
*/

package moonlightpay

import "encoding/binary"

// DeriveIV reproduces the reference Moonlight payloader's IV derivation
// exactly: the first 4 bytes of seed are read as a native-endian uint32,
// the sequence number is added, and the sum is stored back as big-endian
// into byte 0 of an otherwise zeroed 16-byte buffer. The native-endian read
// of the seed (rather than a fixed endianness) is part of the wire
// contract with the reference implementation and must not be "fixed" to
// always use one endianness.
func DeriveIV(seed [8]byte, seq uint32) [16]byte {
	native := binary.NativeEndian.Uint32(seed[:4])
	sum := native + seq

	var iv [16]byte
	binary.BigEndian.PutUint32(iv[:4], sum)
	return iv
}
