package codec

import "hash/crc32"

// crc32IEEE computes the standard IEEE-polynomial CRC-32 used for record
// and marker-trailer checksums, matching stdlib's own crc32.ChecksumIEEE.
func crc32IEEE(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}
