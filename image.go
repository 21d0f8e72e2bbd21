// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package pngcodec implements a PNG image codec: a decoder
// that parses the PNG chunk container and a hand-rolled zlib/DEFLATE stream
// to recover raw pixel rows, and an encoder that emits a valid PNG using
// uncompressed "stored" DEFLATE blocks. It supports 8-bit-per-channel
// grayscale, grayscale+alpha, RGB and RGBA images with PNG filter types
// None, Sub, Up, Average and Paeth.
//
// The package is a container framer plus a complete, independent
// entropy-coding engine, rather than a thin wrapper over a standard-library
// codec.
//
// The decoding and encoding logic uses only the standard library and this
// module's internal packages. DecodeFile and EncodeFile go through the file
// subpackage, which imports third-party packages (grailbio/base,
// aws-sdk-go, cenkalti/backoff), so importing pngcodec pulls those in too.
package pngcodec

import "fmt"

// ColorType mirrors the PNG color-type byte for the subset this codec
// supports: grayscale, grayscale+alpha, truecolor (RGB) and truecolor+alpha
// (RGBA). Palette (3), and any other value, are rejected at decode time.
type ColorType int

// Supported PNG color types and their channel counts.
const (
	ColorGray      ColorType = 0
	ColorRGB       ColorType = 2
	ColorGrayAlpha ColorType = 4
	ColorRGBA      ColorType = 6
)

// channelsForColorType returns the channel count for a supported color
// type, or 0 (with ok=false) for an unsupported one such as palette (3).
func channelsForColorType(ct ColorType) (channels int, ok bool) {
	switch ct {
	case ColorGray:
		return 1, true
	case ColorRGB:
		return 3, true
	case ColorGrayAlpha:
		return 2, true
	case ColorRGBA:
		return 4, true
	default:
		return 0, false
	}
}

// colorTypeForChannels inverts channelsForColorType, for the encoder.
func colorTypeForChannels(channels int) (ColorType, error) {
	switch channels {
	case 1:
		return ColorGray, nil
	case 2:
		return ColorGrayAlpha, nil
	case 3:
		return ColorRGB, nil
	case 4:
		return ColorRGBA, nil
	default:
		return 0, UnsupportedError(fmt.Sprintf("channel count %d", channels))
	}
}

// MaxDecodedSize bounds the predicted raw (pre-unfilter) byte count a
// decode will allocate. Images whose predicted size —
// height*(1+width*channels) — would exceed this are rejected before the
// decompression buffer is allocated. Callers needing a different cap should use
// DecodeOptions.
const MaxDecodedSize = 256 * 1024 * 1024

// Image is a decoded or to-be-encoded in-memory raster: width x height
// pixels, Channels bytes per pixel, 8 bits per channel, row-major and
// channel-interleaved, top-to-bottom. The image exclusively owns Pix; its
// lifetime is the image's lifetime (see Release).
type Image struct {
	Width, Height int
	Channels      int
	Pix           []byte
}

// New constructs a zero-initialized image of the given dimensions and
// channel count. Channels must be 1 (gray), 2 (gray+alpha), 3 (RGB) or 4
// (RGBA); width and height must be positive.
func New(width, height, channels int) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, FormatError("non-positive dimension")
	}
	if _, err := colorTypeForChannels(channels); err != nil {
		return nil, err
	}
	n, err := pixelBufferLen(width, height, channels)
	if err != nil {
		return nil, err
	}
	return &Image{Width: width, Height: height, Channels: channels, Pix: make([]byte, n)}, nil
}

// Clone returns a deep copy of img; the clone's buffer is disjoint from
// img's.
func (img *Image) Clone() *Image {
	cp := &Image{Width: img.Width, Height: img.Height, Channels: img.Channels}
	cp.Pix = make([]byte, len(img.Pix))
	copy(cp.Pix, img.Pix)
	return cp
}

// Release drops img's reference to its pixel buffer. Go's garbage
// collector reclaims the memory once nothing else references it; Release
// exists so callers that otherwise treat this codec as an owned-resource
// API (construct/clone/release) have an explicit symmetric call for
// resource teardown.
func (img *Image) Release() {
	img.Pix = nil
	img.Width, img.Height, img.Channels = 0, 0, 0
}

// pixelBufferLen computes width*height*channels, rejecting any overflow so
// it is caught rather than silently wrapping into an undersized allocation.
func pixelBufferLen(width, height, channels int) (int, error) {
	if width <= 0 || height <= 0 || channels <= 0 {
		return 0, FormatError("non-positive dimension or channel count")
	}
	wh, ok := mulOverflows(width, height)
	if ok {
		return 0, UnsupportedError("width*height overflow")
	}
	whc, ok := mulOverflows(wh, channels)
	if ok {
		return 0, UnsupportedError("width*height*channels overflow")
	}
	return whc, nil
}

// mulOverflows returns a*b and whether that product overflowed an int (on
// the assumption both a and b are small non-negative values, as dimensions
// and channel counts always are here).
func mulOverflows(a, b int) (int, bool) {
	if a == 0 || b == 0 {
		return 0, false
	}
	p := a * b
	if p/a != b {
		return 0, true
	}
	return p, false
}
