// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package pngcodec

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/elmotec/pngcodec/internal/checksum"
)

// buildChunk returns a length-prefixed, CRC-tailed chunk for typ/payload.
func buildChunk(typ string, payload []byte) []byte {
	var buf bytes.Buffer
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	buf.Write(lenBuf[:])
	buf.WriteString(typ)
	buf.Write(payload)
	crc := checksum.NewCRC32()
	crc.Write([]byte(typ))
	crc.Write(payload)
	var crcBuf [4]byte
	binary.BigEndian.PutUint32(crcBuf[:], crc.Sum32())
	buf.Write(crcBuf[:])
	return buf.Bytes()
}

func buildIHDR(width, height int, colorType byte) []byte {
	buf := make([]byte, 13)
	binary.BigEndian.PutUint32(buf[0:4], uint32(width))
	binary.BigEndian.PutUint32(buf[4:8], uint32(height))
	buf[8] = 8
	buf[9] = colorType
	return buf
}

func TestDecodeSignatureRejection(t *testing.T) {
	bad := []byte{0x89, 0x50, 0x4E, 0x00, 0x0D, 0x0A, 0x1A, 0x0A}
	if _, _, err := Decode(bad); err == nil {
		t.Fatal("Decode accepted a bad signature")
	}
}

func TestDecodeEmptyIDAT(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(pngSignature[:])
	buf.Write(buildChunk("IHDR", buildIHDR(1, 1, byte(ColorRGB))))
	buf.Write(buildChunk("IEND", nil))

	if _, _, err := Decode(buf.Bytes()); err == nil {
		t.Fatal("Decode accepted a PNG with no IDAT")
	}
}

func Test1x1BlackRGB(t *testing.T) {
	img, err := New(1, 1, 3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data, err := Encode(img, EncodeOptions{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, stats, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if stats.Width != 1 || stats.Height != 1 || stats.Channels != 3 {
		t.Fatalf("Stats = %+v, want 1x1x3", stats)
	}
	if !bytes.Equal(got.Pix, []byte{0, 0, 0}) {
		t.Errorf("Pix = %v, want [0 0 0]", got.Pix)
	}
}

func TestRoundTripRGBA(t *testing.T) {
	img, err := New(3, 2, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := range img.Pix {
		img.Pix[i] = byte(i)
	}
	data, err := Encode(img, EncodeOptions{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, _, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Width != img.Width || got.Height != img.Height || got.Channels != img.Channels {
		t.Fatalf("dims = %dx%dx%d, want %dx%dx%d", got.Width, got.Height, got.Channels, img.Width, img.Height, img.Channels)
	}
	if !bytes.Equal(got.Pix, img.Pix) {
		t.Errorf("round trip mismatch: got %v, want %v", got.Pix, img.Pix)
	}
}

func TestRoundTripAllColorTypes(t *testing.T) {
	for _, channels := range []int{1, 2, 3, 4} {
		img, err := New(5, 4, channels)
		if err != nil {
			t.Fatalf("channels=%d: New: %v", channels, err)
		}
		for i := range img.Pix {
			img.Pix[i] = byte(i * 37)
		}
		data, err := Encode(img, EncodeOptions{})
		if err != nil {
			t.Fatalf("channels=%d: Encode: %v", channels, err)
		}
		got, _, err := Decode(data)
		if err != nil {
			t.Fatalf("channels=%d: Decode: %v", channels, err)
		}
		if !bytes.Equal(got.Pix, img.Pix) {
			t.Errorf("channels=%d: round trip mismatch", channels)
		}
	}
}

func TestTextEmission(t *testing.T) {
	img, err := New(2, 2, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data, err := Encode(img, EncodeOptions{TextKeyword: "Author", Text: "test"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	cr := newChunkReader(data)
	if err := cr.checkSignature(); err != nil {
		t.Fatalf("checkSignature: %v", err)
	}
	var sawIHDR, sawTEXt, sawIDATAfterTEXt bool
	for cr.stage != stageSeenIEND {
		pos := cr.pos
		length := binary.BigEndian.Uint32(data[pos : pos+4])
		typ := string(data[pos+4 : pos+8])
		if err := cr.readOneChunk(); err != nil {
			t.Fatalf("readOneChunk: %v", err)
		}
		switch typ {
		case "IHDR":
			sawIHDR = true
		case "tEXt":
			if !sawIHDR {
				t.Fatal("tEXt appeared before IHDR")
			}
			sawTEXt = true
			payload := data[pos+8 : pos+8+int(length)]
			if !bytes.Equal(payload, []byte("Author\x00test")) {
				t.Errorf("tEXt payload = %q, want %q", payload, "Author\x00test")
			}
		case "IDAT":
			if sawTEXt {
				sawIDATAfterTEXt = true
			}
		}
	}
	if !sawTEXt || !sawIDATAfterTEXt {
		t.Fatalf("tEXt chunk missing or not placed between IHDR and IDAT (sawTEXt=%v sawIDATAfterTEXt=%v)", sawTEXt, sawIDATAfterTEXt)
	}
}

func TestPaethFilterScenario(t *testing.T) {
	prev := []byte{10, 20, 30}
	cur := []byte{5, 5, 5}
	if err := unfilterRow(filterPaeth, cur, prev, 1); err != nil {
		t.Fatalf("unfilterRow: %v", err)
	}
	want := []byte{15, 25, 35}
	if !bytes.Equal(cur, want) {
		t.Errorf("unfiltered Paeth row = %v, want %v", cur, want)
	}
}

func TestCloneIsDisjoint(t *testing.T) {
	img, err := New(2, 2, 3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := range img.Pix {
		img.Pix[i] = byte(i + 1)
	}
	clone := img.Clone()
	if !bytes.Equal(clone.Pix, img.Pix) {
		t.Fatalf("Clone mismatch: %v vs %v", clone.Pix, img.Pix)
	}
	clone.Pix[0] = 0xFF
	if img.Pix[0] == 0xFF {
		t.Fatal("Clone shares storage with the original")
	}
}

func TestColorTypeForChannelsRejectsFive(t *testing.T) {
	if _, err := colorTypeForChannels(5); err == nil {
		t.Fatal("colorTypeForChannels(5) should fail, no such channel count")
	}
}

func TestDecodeRejectsBitDepth16(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(pngSignature[:])
	ihdr := buildIHDR(1, 1, byte(ColorRGB))
	ihdr[8] = 16
	buf.Write(buildChunk("IHDR", ihdr))
	buf.Write(buildChunk("IEND", nil))
	if _, _, err := Decode(buf.Bytes()); err == nil {
		t.Fatal("Decode accepted bit depth 16")
	}
}

func TestDecodeRejectsPaletteColorType(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(pngSignature[:])
	buf.Write(buildChunk("IHDR", buildIHDR(1, 1, 3)))
	buf.Write(buildChunk("IEND", nil))
	if _, _, err := Decode(buf.Bytes()); err == nil {
		t.Fatal("Decode accepted a palette (color type 3) image")
	}
}

func TestDecodeRejectsBadChunkCRC(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(pngSignature[:])
	chunk := buildChunk("IHDR", buildIHDR(1, 1, byte(ColorRGB)))
	chunk[len(chunk)-1] ^= 0xFF // corrupt the trailing CRC byte
	buf.Write(chunk)
	buf.Write(buildChunk("IEND", nil))
	if _, _, err := Decode(buf.Bytes()); err == nil {
		t.Fatal("Decode accepted a chunk with a bad CRC")
	}
}

func TestDeterministicDecode(t *testing.T) {
	img, _ := New(4, 3, 2)
	for i := range img.Pix {
		img.Pix[i] = byte(i * 11)
	}
	data, err := Encode(img, EncodeOptions{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	first, _, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode 1: %v", err)
	}
	second, _, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode 2: %v", err)
	}
	if !bytes.Equal(first.Pix, second.Pix) {
		t.Error("decoding the same input twice produced different output")
	}
}
