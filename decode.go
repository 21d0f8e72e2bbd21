// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package pngcodec

import (
	"context"

	"github.com/elmotec/pngcodec/file"
	"github.com/elmotec/pngcodec/internal/inflate"
)

// DecodeOptions tunes a single Decode call via functional-options-style
// fields. Currently the only knob is a resource cap bounding how large a
// decoded image may be.
type DecodeOptions struct {
	// MaxDecodedSize overrides the package default MaxDecodedSize when
	// positive.
	MaxDecodedSize int
}

// Decode parses data as a PNG file and returns the decoded image plus
// diagnostic Stats. It never returns a partial image: on any error the
// return value is (nil, Stats{}, err).
func Decode(data []byte) (*Image, Stats, error) {
	return DecodeWithOptions(data, DecodeOptions{})
}

// DecodeWithOptions is Decode with an explicit, possibly-overridden
// resource cap.
func DecodeWithOptions(data []byte, opts DecodeOptions) (*Image, Stats, error) {
	cr := newChunkReader(data)
	if err := cr.readAll(); err != nil {
		return nil, Stats{}, err
	}
	if cr.stage != stageSeenIEND {
		return nil, Stats{}, errMissingIDAT
	}
	if cr.ihdr.width == 0 {
		return nil, Stats{}, errMissingIHDR
	}
	if len(cr.idat) == 0 {
		return nil, Stats{}, errMissingIDAT
	}

	width, height, channels := cr.ihdr.width, cr.ihdr.height, cr.ihdr.channels
	rowBytes := width * channels
	predictedRaw := (1 + rowBytes) * height

	sizeCap := MaxDecodedSize
	if opts.MaxDecodedSize > 0 {
		sizeCap = opts.MaxDecodedSize
	}
	if predictedRaw > sizeCap {
		return nil, Stats{}, UnsupportedError("predicted raw size exceeds safety cap")
	}

	raw, err := inflate.Inflate(cr.idat, predictedRaw)
	if err != nil {
		return nil, Stats{}, FormatError(err.Error())
	}

	img, err := New(width, height, channels)
	if err != nil {
		return nil, Stats{}, err
	}

	prev := make([]byte, rowBytes)
	cur := make([]byte, rowBytes)
	for y := 0; y < height; y++ {
		rowStart := y * (1 + rowBytes)
		filterType := raw[rowStart]
		copy(cur, raw[rowStart+1:rowStart+1+rowBytes])
		if err := unfilterRow(filterType, cur, prev, channels); err != nil {
			return nil, Stats{}, err
		}
		copy(img.Pix[y*rowBytes:(y+1)*rowBytes], cur)
		prev, cur = cur, prev
	}

	return img, cr.stats, nil
}

// DecodeFile reads the whole file at path (local, or s3:// via the file
// package) and delegates to Decode.
func DecodeFile(ctx context.Context, path string) (*Image, Stats, error) {
	data, err := file.ReadAll(ctx, path)
	if err != nil {
		return nil, Stats{}, err
	}
	return Decode(data)
}
