// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package huffman

import "testing"

// bitSliceReader feeds a fixed sequence of bits (MSB-first per the test's
// own intent, but delivered one at a time exactly as bitio.Reader.Bit
// would) to a Table.Decode call, for testing in isolation from bitio.
type bitSliceReader struct {
	bits []uint32
	pos  int
}

func (r *bitSliceReader) Bit() (uint32, error) {
	if r.pos >= len(r.bits) {
		return 0, ErrNoSymbol
	}
	b := r.bits[r.pos]
	r.pos++
	return b, nil
}

func TestBuildRejectsOversubscribed(t *testing.T) {
	// Three symbols claiming length 1, where only two length-1 codes exist.
	if _, err := Build([]int{1, 1, 1}); err != ErrOversubscribed {
		t.Errorf("Build oversubscribed = %v, want ErrOversubscribed", err)
	}
}

func TestBuildRejectsBadLength(t *testing.T) {
	if _, err := Build([]int{16}); err != ErrBadCodeLength {
		t.Errorf("Build bad length = %v, want ErrBadCodeLength", err)
	}
}

func TestBuildRejectsIncomplete(t *testing.T) {
	if _, err := Build([]int{1}); err != ErrIncomplete {
		t.Errorf("Build incomplete = %v, want ErrIncomplete", err)
	}
}

func TestBuildAndDecodeSimple(t *testing.T) {
	// Three symbols: A (len 1), B (len 2), C (len 2).
	// Canonical codes: A=0, B=10, C=11.
	tbl, err := Build([]int{1, 2, 2})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, tc := range []struct {
		bits []uint32
		want int
	}{
		{[]uint32{0}, 0},
		{[]uint32{1, 0}, 1},
		{[]uint32{1, 1}, 2},
	} {
		got, err := tbl.Decode(&bitSliceReader{bits: tc.bits})
		if err != nil {
			t.Fatalf("Decode(%v): %v", tc.bits, err)
		}
		if got != tc.want {
			t.Errorf("Decode(%v) = %d, want %d", tc.bits, got, tc.want)
		}
	}
}

func TestFixedLiteralLengthTable(t *testing.T) {
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
	if _, err := Build(lengths); err != nil {
		t.Fatalf("Build fixed literal/length table: %v", err)
	}
}

func TestFixedDistanceTable(t *testing.T) {
	lengths := make([]int, 32)
	for i := range lengths {
		lengths[i] = 5
	}
	if _, err := Build(lengths); err != nil {
		t.Fatalf("Build fixed distance table: %v", err)
	}
}
