// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package pngcodec

const (
	filterNone    = 0
	filterSub     = 1
	filterUp      = 2
	filterAverage = 3
	filterPaeth   = 4
)

// unfilterRow reverses the PNG per-row predictor in place. cur is the
// current row's raw bytes (filter byte already stripped, length
// rowLen==width*channels); prev is the previously reconstructed row (or a
// zero-filled slice of the same length for row 0); bpp is the byte-step to
// the left neighbor, equal to channels for 8-bit images.
func unfilterRow(filterType byte, cur, prev []byte, bpp int) error {
	switch filterType {
	case filterNone:
		// no-op
	case filterSub:
		for i := bpp; i < len(cur); i++ {
			cur[i] += cur[i-bpp]
		}
	case filterUp:
		for i := range cur {
			cur[i] += prev[i]
		}
	case filterAverage:
		for i := 0; i < bpp && i < len(cur); i++ {
			cur[i] += byte(int(prev[i]) / 2)
		}
		for i := bpp; i < len(cur); i++ {
			cur[i] += byte((int(cur[i-bpp]) + int(prev[i])) / 2)
		}
	case filterPaeth:
		for i := 0; i < len(cur); i++ {
			var a, b, c byte
			b = prev[i]
			if i >= bpp {
				a = cur[i-bpp]
				c = prev[i-bpp]
			}
			cur[i] += paethPredictor(a, b, c)
		}
	default:
		return errBadFilterByte
	}
	return nil
}

// paethPredictor computes the linear estimate p = a+b-c, then returns
// whichever of a, b, c is closest to p, breaking ties in the order a, then
// b, then c.
func paethPredictor(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	default:
		return c
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
