// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package pngcodec

import (
	"encoding/binary"

	"github.com/elmotec/pngcodec/internal/checksum"
)

var pngSignature = [8]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// chunkStage tracks where we are in the required IHDR...IDAT...IEND
// ordering.
type chunkStage int

const (
	stageStart chunkStage = iota
	stageSeenIHDR
	stageSeenIDAT
	stageSeenIEND
)

// ihdr holds the parsed fields of the (mandatory, first) IHDR chunk.
type ihdr struct {
	width, height int
	bitDepth      int
	colorType     ColorType
	channels      int
}

// Stats reports diagnostics about a successful decode: the image's
// dimensions and channel count plus a couple of counters useful for
// debugging malformed or unusual inputs.
type Stats struct {
	Width, Height, Channels int
	IDATBytes               int
	ChunksSkipped           int
}

// chunkReader walks the chunk stream of a PNG byte slice, verifying the
// signature, each chunk's CRC-32, and the mandated chunk ordering, and
// accumulating IDAT payloads as it goes. It is a pure, allocation-bounded
// reader over a borrowed byte slice — no io.Reader indirection, since the
// whole file is already read into memory before decoding starts.
type chunkReader struct {
	data  []byte
	pos   int
	stage chunkStage
	ihdr  ihdr
	idat  []byte
	stats Stats
}

func newChunkReader(data []byte) *chunkReader {
	return &chunkReader{data: data}
}

func (r *chunkReader) checkSignature() error {
	if len(r.data) < len(pngSignature) {
		return errBadSignature
	}
	for i, b := range pngSignature {
		if r.data[i] != b {
			return errBadSignature
		}
	}
	r.pos = len(pngSignature)
	return nil
}

// readAll walks every chunk from just after the signature through IEND,
// enforcing CRC-32 and the required ordering, and records the parsed IHDR
// and the concatenated IDAT payload on r.
func (r *chunkReader) readAll() error {
	if err := r.checkSignature(); err != nil {
		return err
	}
	for r.stage != stageSeenIEND {
		if err := r.readOneChunk(); err != nil {
			return err
		}
	}
	return nil
}

func (r *chunkReader) readOneChunk() error {
	if r.pos+8 > len(r.data) {
		return errTruncated
	}
	length := binary.BigEndian.Uint32(r.data[r.pos : r.pos+4])
	typ := r.data[r.pos+4 : r.pos+8]
	typeName := string(typ)

	payloadStart := r.pos + 8
	payloadEnd := payloadStart + int(length)
	if length > 0x7fffffff || payloadEnd < payloadStart || payloadEnd+4 > len(r.data) {
		return errTruncated
	}
	payload := r.data[payloadStart:payloadEnd]

	crc := checksum.NewCRC32()
	crc.Write(typ)
	crc.Write(payload)
	wantCRC := binary.BigEndian.Uint32(r.data[payloadEnd : payloadEnd+4])
	if crc.Sum32() != wantCRC {
		return errCRCMismatch
	}

	switch typeName {
	case "IHDR":
		if r.stage != stageStart {
			return errChunkOrder
		}
		if err := r.parseIHDR(payload); err != nil {
			return err
		}
		r.stage = stageSeenIHDR
	case "IDAT":
		if r.stage != stageSeenIHDR && r.stage != stageSeenIDAT {
			return errChunkOrder
		}
		r.idat = append(r.idat, payload...)
		r.stats.IDATBytes += len(payload)
		r.stage = stageSeenIDAT
	case "IEND":
		if length != 0 {
			return FormatError("bad IEND length")
		}
		r.stage = stageSeenIEND
	default:
		r.stats.ChunksSkipped++
	}

	r.pos = payloadEnd + 4
	return nil
}

// parseIHDR validates and records the 13-byte IHDR payload: width/height
// nonzero and within a sanity limit, bit depth 8, color type one of
// {0,2,4,6}, compression/filter/interlace all zero.
func (r *chunkReader) parseIHDR(payload []byte) error {
	if len(payload) != 13 {
		return FormatError("bad IHDR length")
	}
	width := int(binary.BigEndian.Uint32(payload[0:4]))
	height := int(binary.BigEndian.Uint32(payload[4:8]))
	bitDepth := int(payload[8])
	colorType := ColorType(payload[9])
	compression := payload[10]
	filterMethod := payload[11]
	interlace := payload[12]

	const dimensionSanityLimit = 1 << 24
	if width <= 0 || height <= 0 {
		return FormatError("non-positive dimension")
	}
	if width > dimensionSanityLimit || height > dimensionSanityLimit {
		return UnsupportedError("dimension exceeds sanity limit")
	}
	if bitDepth != 8 {
		return UnsupportedError("bit depth != 8")
	}
	channels, ok := channelsForColorType(colorType)
	if !ok {
		return UnsupportedError("unsupported or palette color type")
	}
	if compression != 0 {
		return UnsupportedError("compression method")
	}
	if filterMethod != 0 {
		return UnsupportedError("filter method")
	}
	if interlace != 0 {
		return UnsupportedError("interlacing")
	}

	rowBytes, overflow := mulOverflows(width, channels)
	if overflow {
		return UnsupportedError("row size overflow")
	}
	// The per-call resource cap (overridable via DecodeOptions) is enforced
	// by the caller once it knows the predicted raw size; only overflow is
	// checked here since that's a structural property independent of any cap.
	if _, overflow := mulOverflows(1+rowBytes, height); overflow {
		return UnsupportedError("predicted raw size overflow")
	}

	r.ihdr = ihdr{width: width, height: height, bitDepth: bitDepth, colorType: colorType, channels: channels}
	r.stats.Width, r.stats.Height, r.stats.Channels = width, height, channels
	return nil
}
