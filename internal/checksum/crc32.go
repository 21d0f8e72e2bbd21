// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package checksum implements the CRC-32 and Adler-32 integrity checks used
// by the PNG chunk framer and the zlib stream it wraps. Both are built from
// their defining recurrences rather than delegated to hash/crc32 or any
// third-party table, since reimplementing them is itself part of the codec
// this module exists to teach.
package checksum

// crc32Table is the 256-entry lookup table for the CRC-32 variant used by
// PNG and zlib (the reflected form of the ITU polynomial 0x04C11DB7).
var crc32Table [256]uint32

func init() {
	const poly = 0xEDB88320
	for n := uint32(0); n < 256; n++ {
		c := n
		for k := 0; k < 8; k++ {
			if c&1 != 0 {
				c = poly ^ (c >> 1)
			} else {
				c >>= 1
			}
		}
		crc32Table[n] = c
	}
}

// CRC32 accumulates a running CRC-32 over successive byte slices.
type CRC32 struct {
	crc uint32
}

// NewCRC32 returns a CRC-32 accumulator ready to consume the first byte.
func NewCRC32() *CRC32 {
	return &CRC32{crc: 0xFFFFFFFF}
}

// Reset restarts the accumulator, as required between chunks.
func (c *CRC32) Reset() {
	c.crc = 0xFFFFFFFF
}

// Write folds buf into the running CRC.
func (c *CRC32) Write(buf []byte) {
	crc := c.crc
	for _, b := range buf {
		crc = crc32Table[(crc^uint32(b))&0xFF] ^ (crc >> 8)
	}
	c.crc = crc
}

// Sum32 returns the finalized CRC-32 of everything written so far.
func (c *CRC32) Sum32() uint32 {
	return c.crc ^ 0xFFFFFFFF
}

// CRC32Of is a convenience one-shot over a single buffer.
func CRC32Of(buf []byte) uint32 {
	c := NewCRC32()
	c.Write(buf)
	return c.Sum32()
}
