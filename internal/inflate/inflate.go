// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package inflate implements the zlib/DEFLATE decompressor PNG IDAT streams
// are wrapped in: a zlib header/trailer check around RFC 1951's stored,
// fixed-Huffman and dynamic-Huffman block types, including LZ77 back-
// reference expansion.
package inflate

import (
	"encoding/binary"

	"github.com/elmotec/pngcodec/internal/bitio"
	"github.com/elmotec/pngcodec/internal/checksum"
	"github.com/elmotec/pngcodec/internal/huffman"
)

// StructuralError is returned for malformed zlib framing and DEFLATE block
// structure detected in this package. Input underruns from bitio and
// invalid code-length sets from huffman are returned as those packages'
// own errors.
type StructuralError string

func (s StructuralError) Error() string { return "inflate: " + string(s) }

var (
	errReservedBlockType = StructuralError("reserved BTYPE 11")
	errBadStoredLen      = StructuralError("stored block LEN/NLEN mismatch")
	errBadZlibHeader     = StructuralError("bad zlib header")
	errZlibParity        = StructuralError("zlib header fails mod-31 check")
	errAdlerMismatch     = StructuralError("adler-32 checksum mismatch")
	errShortZlibStream   = StructuralError("zlib stream too short")
	errOutputOverflow    = StructuralError("output would exceed expected length")
	errShortOutput       = StructuralError("decompressed output shorter than expected")
	errBadDistance       = StructuralError("distance exceeds bytes written so far")
	errReservedSymbol    = StructuralError("reserved length/distance symbol")
	errNoPriorLength     = StructuralError("repeat code-length symbol with no prior length")
)

// lengthBase and lengthExtra give, for length symbols 257..285 (indices
// 0..28), the base length and number of extra bits to read.
var lengthBase = [29]int{
	3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17,
	19, 23, 27, 31, 35, 43, 51, 59, 67, 83, 99, 115,
	131, 163, 195, 227, 258,
}
var lengthExtra = [29]uint{
	0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1,
	2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4,
	5, 5, 5, 5, 0,
}

// distBase and distExtra give, for distance symbols 0..29, the base
// distance and number of extra bits to read.
var distBase = [30]int{
	1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49,
	65, 97, 129, 193, 257, 385, 513, 769, 1025, 1537, 2049, 3073,
	4097, 6145, 8193, 12289, 16385, 24577,
}
var distExtra = [30]uint{
	0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4,
	5, 5, 6, 6, 7, 7, 8, 8, 9, 9, 10, 10,
	11, 11, 12, 12, 13, 13,
}

// codeLengthOrder is the fixed permutation that dynamic blocks read their
// HCLEN code-length-code lengths in.
var codeLengthOrder = [19]int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

// Inflate decodes a zlib-framed DEFLATE stream and returns exactly
// expectedLen bytes, or an error. It handles zlib header/trailer
// validation, the BFINAL/BTYPE block loop, fixed and
// dynamic Huffman block decoding, and LZ77 back-reference expansion.
func Inflate(zlibData []byte, expectedLen int) ([]byte, error) {
	if len(zlibData) < 6 {
		return nil, errShortZlibStream
	}
	cmf, flg := zlibData[0], zlibData[1]
	if cmf&0x0F != 8 {
		return nil, errBadZlibHeader
	}
	if (uint(cmf)<<8+uint(flg))%31 != 0 {
		return nil, errZlibParity
	}
	payload := zlibData[2:]
	if flg&0x20 != 0 {
		if len(payload) < 4 {
			return nil, errShortZlibStream
		}
		payload = payload[4:] // skip FDICT preset-dictionary id.
	}
	if len(payload) < 4 {
		return nil, errShortZlibStream
	}
	deflateData := payload[:len(payload)-4]
	wantAdler := binary.BigEndian.Uint32(payload[len(payload)-4:])

	out := make([]byte, 0, expectedLen)
	br := bitio.NewReader(deflateData)
	for {
		final, err := br.Get(1)
		if err != nil {
			return nil, err
		}
		btype, err := br.Get(2)
		if err != nil {
			return nil, err
		}
		switch btype {
		case 0:
			out, err = inflateStored(br, out, expectedLen)
		case 1:
			out, err = inflateHuffman(br, out, expectedLen, fixedLiteralTable(), fixedDistanceTable())
		case 2:
			var litTable, distTable *huffman.Table
			litTable, distTable, err = readDynamicTables(br)
			if err == nil {
				out, err = inflateHuffman(br, out, expectedLen, litTable, distTable)
			}
		default:
			return nil, errReservedBlockType
		}
		if err != nil {
			return nil, err
		}
		if final == 1 {
			break
		}
	}

	if len(out) != expectedLen {
		return nil, errShortOutput
	}
	if checksum.Adler32Of(out) != wantAdler {
		return nil, errAdlerMismatch
	}
	return out, nil
}

func inflateStored(br *bitio.Reader, out []byte, expectedLen int) ([]byte, error) {
	br.Align()
	var hdr [4]byte
	if err := br.ReadBytes(hdr[:]); err != nil {
		return nil, err
	}
	length := binary.LittleEndian.Uint16(hdr[0:2])
	nlength := binary.LittleEndian.Uint16(hdr[2:4])
	if length != ^nlength {
		return nil, errBadStoredLen
	}
	if len(out)+int(length) > expectedLen {
		return nil, errOutputOverflow
	}
	buf := make([]byte, length)
	if err := br.ReadBytes(buf); err != nil {
		return nil, err
	}
	return append(out, buf...), nil
}

// fixedLiteralTable and fixedDistanceTable build the fixed Huffman tables
// defined by RFC 1951 §3.2.6, used for BTYPE=01 blocks. They are rebuilt on
// every fixed block rather than cached statically, since fixed blocks are
// the rare case in PNG-produced streams and the construction cost is
// proportional only to 288+32 code lengths.
func fixedLiteralTable() *huffman.Table {
	lengths := make([]int, 288)
	for i := 0; i < 144; i++ {
		lengths[i] = 8
	}
	for i := 144; i < 256; i++ {
		lengths[i] = 9
	}
	for i := 256; i < 280; i++ {
		lengths[i] = 7
	}
	for i := 280; i < 288; i++ {
		lengths[i] = 8
	}
	t, err := huffman.Build(lengths)
	if err != nil {
		panic("inflate: fixed literal/length table is malformed: " + err.Error())
	}
	return t
}

func fixedDistanceTable() *huffman.Table {
	lengths := make([]int, 32)
	for i := range lengths {
		lengths[i] = 5
	}
	t, err := huffman.Build(lengths)
	if err != nil {
		panic("inflate: fixed distance table is malformed: " + err.Error())
	}
	return t
}

// readDynamicTables parses a BTYPE=10 block header (HLIT, HDIST, HCLEN, the
// code-length alphabet, and the run-length-encoded literal/length and
// distance code lengths) and builds the two resulting Huffman tables.
func readDynamicTables(br *bitio.Reader) (lit, dist *huffman.Table, err error) {
	hlitBits, err := br.Get(5)
	if err != nil {
		return nil, nil, err
	}
	hdistBits, err := br.Get(5)
	if err != nil {
		return nil, nil, err
	}
	hclenBits, err := br.Get(4)
	if err != nil {
		return nil, nil, err
	}
	hlit := int(hlitBits) + 257
	hdist := int(hdistBits) + 1
	hclen := int(hclenBits) + 4

	var clLengths [19]int
	for i := 0; i < hclen; i++ {
		v, err := br.Get(3)
		if err != nil {
			return nil, nil, err
		}
		clLengths[codeLengthOrder[i]] = int(v)
	}
	clTable, err := huffman.Build(clLengths[:])
	if err != nil {
		return nil, nil, err
	}

	combined := make([]int, hlit+hdist)
	i := 0
	for i < len(combined) {
		sym, err := clTable.Decode(br)
		if err != nil {
			return nil, nil, err
		}
		switch {
		case sym < 16:
			combined[i] = sym
			i++
		case sym == 16:
			if i == 0 {
				return nil, nil, errNoPriorLength
			}
			extra, err := br.Get(2)
			if err != nil {
				return nil, nil, err
			}
			repeat := int(extra) + 3
			prev := combined[i-1]
			for j := 0; j < repeat && i < len(combined); j++ {
				combined[i] = prev
				i++
			}
		case sym == 17:
			extra, err := br.Get(3)
			if err != nil {
				return nil, nil, err
			}
			repeat := int(extra) + 3
			for j := 0; j < repeat && i < len(combined); j++ {
				combined[i] = 0
				i++
			}
		case sym == 18:
			extra, err := br.Get(7)
			if err != nil {
				return nil, nil, err
			}
			repeat := int(extra) + 11
			for j := 0; j < repeat && i < len(combined); j++ {
				combined[i] = 0
				i++
			}
		default:
			return nil, nil, errReservedSymbol
		}
	}

	lit, err = huffman.Build(combined[:hlit])
	if err != nil {
		return nil, nil, err
	}
	dist, err = huffman.Build(combined[hlit:])
	if err != nil {
		return nil, nil, err
	}
	return lit, dist, nil
}

// inflateHuffman runs the symbol loop shared by fixed and dynamic blocks:
// decode a literal/length symbol, emit a literal, end the block, or expand
// an LZ77 back-reference.
func inflateHuffman(br *bitio.Reader, out []byte, expectedLen int, lit, dist *huffman.Table) ([]byte, error) {
	for {
		sym, err := lit.Decode(br)
		if err != nil {
			return nil, err
		}
		switch {
		case sym < 256:
			if len(out) >= expectedLen {
				return nil, errOutputOverflow
			}
			out = append(out, byte(sym))
		case sym == 256:
			return out, nil
		case sym <= 285:
			idx := sym - 257
			extra, err := br.Get(lengthExtra[idx])
			if err != nil {
				return nil, err
			}
			length := lengthBase[idx] + int(extra)

			distSym, err := dist.Decode(br)
			if err != nil {
				return nil, err
			}
			if distSym > 29 {
				return nil, errReservedSymbol
			}
			distExtraBits, err := br.Get(distExtra[distSym])
			if err != nil {
				return nil, err
			}
			distance := distBase[distSym] + int(distExtraBits)

			if distance > len(out) {
				return nil, errBadDistance
			}
			if len(out)+length > expectedLen {
				return nil, errOutputOverflow
			}
			start := len(out) - distance
			for k := 0; k < length; k++ {
				out = append(out, out[start+k])
			}
		default:
			return nil, errReservedSymbol
		}
	}
}
