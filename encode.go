// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package pngcodec

import (
	"context"
	"encoding/binary"

	"github.com/elmotec/pngcodec/file"
	"github.com/elmotec/pngcodec/internal/checksum"
)

// EncodeOptions carries the optional single tEXt metadata pair allowed on
// encode. Keyword must be <=79 bytes of Latin-1 in [32,126] excluding 0;
// Text is arbitrary bytes excluding NUL.
type EncodeOptions struct {
	TextKeyword string
	Text        string
}

// Encode serializes img as a valid PNG byte slice: signature, IHDR, an
// optional tEXt chunk, one IDAT (store-mode DEFLATE), and IEND.
func Encode(img *Image, opts EncodeOptions) ([]byte, error) {
	if img == nil {
		return nil, FormatError("nil image")
	}
	if want := img.Width * img.Height * img.Channels; want != len(img.Pix) {
		return nil, FormatError("pixel buffer length mismatch")
	}
	colorType, err := colorTypeForChannels(img.Channels)
	if err != nil {
		return nil, err
	}
	if opts.TextKeyword != "" {
		if err := validateTextKeyword(opts.TextKeyword); err != nil {
			return nil, err
		}
	}

	out := make([]byte, 0, len(img.Pix)+1024)
	out = append(out, pngSignature[:]...)

	out = appendChunk(out, "IHDR", encodeIHDR(img.Width, img.Height, colorType))

	if opts.TextKeyword != "" {
		out = appendChunk(out, "tEXt", encodeTEXt(opts.TextKeyword, opts.Text))
	}

	idatPayload, err := encodeIDAT(img)
	if err != nil {
		return nil, err
	}
	out = appendChunk(out, "IDAT", idatPayload)

	out = appendChunk(out, "IEND", nil)
	return out, nil
}

// EncodeFile encodes img and writes it to path (local, or s3:// via the
// file package).
func EncodeFile(ctx context.Context, path string, img *Image, opts EncodeOptions) error {
	data, err := Encode(img, opts)
	if err != nil {
		return err
	}
	return file.WriteAll(ctx, path, data)
}

// appendChunk appends a length-prefixed, CRC-tailed chunk of the given
// 4-byte type and payload to out.
func appendChunk(out []byte, typ string, payload []byte) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	out = append(out, lenBuf[:]...)

	typeStart := len(out)
	out = append(out, []byte(typ)...)
	out = append(out, payload...)

	crc := checksum.CRC32Of(out[typeStart:])
	var crcBuf [4]byte
	binary.BigEndian.PutUint32(crcBuf[:], crc)
	return append(out, crcBuf[:]...)
}

// encodeIHDR builds the 13-byte IHDR payload.
func encodeIHDR(width, height int, colorType ColorType) []byte {
	buf := make([]byte, 13)
	binary.BigEndian.PutUint32(buf[0:4], uint32(width))
	binary.BigEndian.PutUint32(buf[4:8], uint32(height))
	buf[8] = 8 // bit depth
	buf[9] = byte(colorType)
	buf[10] = 0 // compression
	buf[11] = 0 // filter method
	buf[12] = 0 // interlace
	return buf
}

// validateTextKeyword enforces the tEXt keyword constraints: length <=79,
// Latin-1 range [32,126] excluding 0.
func validateTextKeyword(kw string) error {
	if len(kw) == 0 || len(kw) > 79 {
		return FormatError("tEXt keyword length out of range")
	}
	for i := 0; i < len(kw); i++ {
		c := kw[i]
		if c < 32 || c > 126 {
			return FormatError("tEXt keyword byte out of Latin-1 printable range")
		}
	}
	return nil
}

// encodeTEXt builds a tEXt payload: keyword, a single NUL, then text.
func encodeTEXt(keyword, text string) []byte {
	buf := make([]byte, 0, len(keyword)+1+len(text))
	buf = append(buf, keyword...)
	buf = append(buf, 0)
	buf = append(buf, text...)
	return buf
}

// encodeIDAT builds the single IDAT payload: each row prefixed with a
// filter-type byte of 0 (None), wrapped in a fixed zlib header and
// store-mode DEFLATE blocks, trailed by the big-endian Adler-32 of the
// filter-byte-prefixed rows.
func encodeIDAT(img *Image) ([]byte, error) {
	rowBytes := img.Channels * img.Width
	raw := make([]byte, img.Height*(1+rowBytes))
	for y := 0; y < img.Height; y++ {
		dst := raw[y*(1+rowBytes) : (y+1)*(1+rowBytes)]
		dst[0] = filterNone
		copy(dst[1:], img.Pix[y*rowBytes:(y+1)*rowBytes])
	}
	return storeModeZlib(raw), nil
}

// storeModeZlib wraps raw in a fixed zlib header (CMF=0x78, FLG=0x01) and
// one or more stored (BTYPE=00) DEFLATE blocks, one per <=65535-byte chunk
// of raw, BFINAL set only on the last, trailed by big-endian Adler-32 of
// raw.
func storeModeZlib(raw []byte) []byte {
	const maxStoredBlock = 65535

	out := make([]byte, 0, len(raw)+len(raw)/maxStoredBlock*5+11)
	out = append(out, 0x78, 0x01)

	if len(raw) == 0 {
		out = append(out, blockHeader(true), 0x00, 0x00, 0xFF, 0xFF)
	}
	for off := 0; off < len(raw); {
		n := len(raw) - off
		if n > maxStoredBlock {
			n = maxStoredBlock
		}
		final := off+n == len(raw)
		out = append(out, blockHeader(final))

		var lenBuf [4]byte
		binary.LittleEndian.PutUint16(lenBuf[0:2], uint16(n))
		binary.LittleEndian.PutUint16(lenBuf[2:4], ^uint16(n))
		out = append(out, lenBuf[:]...)
		out = append(out, raw[off:off+n]...)
		off += n
	}

	var adlerBuf [4]byte
	binary.BigEndian.PutUint32(adlerBuf[:], checksum.Adler32Of(raw))
	return append(out, adlerBuf[:]...)
}

// blockHeader returns the 1-byte stored-block header: BFINAL in bit 0,
// BTYPE=00 in bits 1-2 (always 0 for stored, so only BFINAL matters).
func blockHeader(final bool) byte {
	if final {
		return 0x01
	}
	return 0x00
}
