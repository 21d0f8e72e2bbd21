// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package pngcodec

// FormatError reports that the input is not a structurally valid PNG —
// bad signature, out-of-order or missing chunks, truncated data, a CRC or
// Adler-32 mismatch, or a malformed DEFLATE stream.
type FormatError string

func (e FormatError) Error() string { return "pngcodec: invalid format: " + string(e) }

// UnsupportedError reports that the input uses a valid but unimplemented
// PNG feature: a bit depth other than 8, a palette (color type 3),
// interlacing, or a dimension too large for this decoder's safety cap.
type UnsupportedError string

func (e UnsupportedError) Error() string { return "pngcodec: unsupported feature: " + string(e) }

var (
	errBadSignature  = FormatError("not a PNG file")
	errChunkOrder    = FormatError("chunk out of order")
	errMissingIHDR   = FormatError("missing IHDR")
	errMissingIDAT   = FormatError("no pixel data")
	errCRCMismatch   = FormatError("chunk CRC mismatch")
	errTruncated     = FormatError("truncated chunk")
	errBadFilterByte = FormatError("bad filter type")
)
