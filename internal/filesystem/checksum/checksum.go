// Package checksum implements the two integrity checks used by the image
// format: a reflected CRC32 (polynomial 0xEDB88320, all-ones init,
// complemented result) for the superblock and inodes, and an 8-bit XOR for
// directory entries.
package checksum

import (
	"hash/crc32"
	"sync"
)

// Polynomial is the reversed IEEE 802.3 polynomial.
const Polynomial = 0xEDB88320

// table is built once and never mutated afterwards, so concurrent readers
// need no locking.
var table = sync.OnceValue(func() *crc32.Table {
	return crc32.MakeTable(Polynomial)
})

// CRC32 returns the checksum of data.
func CRC32(data []byte) uint32 {
	return crc32.Checksum(data, table())
}

// CRC32Masked returns the checksum of data as if data[from:to] were zero.
// data itself is not modified.
func CRC32Masked(data []byte, from, to int) uint32 {
	t := table()
	c := crc32.Update(0, t, data[:from])
	c = crc32.Update(c, t, make([]byte, to-from))
	return crc32.Update(c, t, data[to:])
}

// XOR8 folds data into a single byte.
func XOR8(data []byte) uint8 {
	var x uint8
	for _, b := range data {
		x ^= b
	}
	return x
}
