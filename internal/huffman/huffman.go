// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package huffman builds and decodes canonical Huffman codes the way RFC
// 1951 defines them: as a count-per-length plus a symbols-in-canonical-order
// array, decoded by walking bit-by-bit while tracking the first code value
// at each length.
package huffman

import "errors"

const maxBits = 15

// ErrOversubscribed is returned when a code-length set assigns more codes
// to some length than fit, per the Kraft inequality.
var ErrOversubscribed = errors.New("huffman: oversubscribed code lengths")

// ErrBadCodeLength is returned for any code length outside [0, maxBits].
var ErrBadCodeLength = errors.New("huffman: code length exceeds 15 bits")

// ErrIncomplete is returned when a code-length set under-subscribes the
// available code space by more than the one documented exception — a
// single-symbol, length-1 distance alphabet — which this implementation
// does not special-case and instead rejects.
var ErrIncomplete = errors.New("huffman: incomplete code (unsupported corner case)")

// ErrNoSymbol is returned by Decode when no code resolves by length 15.
var ErrNoSymbol = errors.New("huffman: no symbol decoded")

// Table is the canonical Huffman decoding table: count[length] and the
// symbols grouped by length in canonical order.
type Table struct {
	count  [maxBits + 1]int
	symbol []int
}

// bitReader is the minimal surface Decode needs; satisfied by
// *bitio.Reader without importing it here (keeps this package reusable in
// isolation, e.g. in tests).
type bitReader interface {
	Bit() (uint32, error)
}

// Build constructs a canonical Huffman table from per-symbol code lengths
// (0 meaning "unused"): reject lengths > 15, tally counts, verify the Kraft
// equality, compute per-length starting offsets, then place each symbol.
func Build(lengths []int) (*Table, error) {
	t := &Table{symbol: make([]int, len(lengths))}

	for _, l := range lengths {
		if l < 0 || l > maxBits {
			return nil, ErrBadCodeLength
		}
		if l > 0 {
			t.count[l]++
		}
	}

	left := 1
	for l := 1; l <= maxBits; l++ {
		left <<= 1
		left -= t.count[l]
		if left < 0 {
			return nil, ErrOversubscribed
		}
	}
	if left != 0 {
		// Completeness is required; the lone documented exception (a
		// single length-1 distance code) is explicitly not special-cased
		// here — treat any incompleteness as fatal.
		return nil, ErrIncomplete
	}

	// offset[l] is the next free slot in symbol[] for length l.
	var offset [maxBits + 2]int
	for l := 1; l <= maxBits; l++ {
		offset[l+1] = offset[l] + t.count[l]
	}
	for sym, l := range lengths {
		if l == 0 {
			continue
		}
		t.symbol[offset[l]] = sym
		offset[l]++
	}
	return t, nil
}

// Decode reads one symbol from br using t via a bit-by-bit walk: each bit
// read off the wire becomes the next least-significant bit of
// "code" before the length's window is checked, and "code" is shifted left
// afterwards — so by the time a code of length l has been assembled, its
// first-read bit sits in the most-significant position, matching the
// MSB-first convention canonical Huffman codes are defined in (bits
// themselves are still pulled from the bit reader least-significant-bit
// first, per DEFLATE's bit order).
func (t *Table) Decode(br bitReader) (int, error) {
	code := 0
	first := 0
	index := 0
	for l := 1; l <= maxBits; l++ {
		bit, err := br.Bit()
		if err != nil {
			return 0, err
		}
		code |= int(bit)
		count := t.count[l]
		if code-first < count {
			return t.symbol[index+(code-first)], nil
		}
		index += count
		first += count
		first <<= 1
		code <<= 1
	}
	return 0, ErrNoSymbol
}
