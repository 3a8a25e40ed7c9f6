// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cbf

import (
	"errors"
	"testing"
)

// TestNewCountersErrors ensures attempting to create counter stores with
// invalid parameters produces the expected errors.
func TestNewCountersErrors(t *testing.T) {
	tests := []struct {
		name     string    // test description
		numCells uint32    // number of cells
		cellBits uint8     // cell width in bits
		err      ErrorKind // expected error kind
	}{{
		name:     "zero cells",
		numCells: 0,
		cellBits: 4,
		err:      ErrInvalidCellCount,
	}, {
		name:     "zero width cells",
		numCells: 16,
		cellBits: 0,
		err:      ErrInvalidCellBits,
	}, {
		name:     "cells wider than 32 bits",
		numCells: 16,
		cellBits: 33,
		err:      ErrInvalidCellBits,
	}}

	for _, test := range tests {
		_, err := NewCounters(test.numCells, test.cellBits)
		if !errors.Is(err, test.err) {
			t.Errorf("%q: unexpected error -- got %v, want %v", test.name,
				err, test.err)
		}
	}
}

// TestCounterPacking ensures values written to cells of various widths are
// read back exactly and do not disturb neighboring cells, including when
// cells span byte boundaries.
func TestCounterPacking(t *testing.T) {
	tests := []struct {
		name     string // test description
		numCells uint32 // number of cells
		cellBits uint8  // cell width in bits
	}{{
		name:     "single bit cells",
		numCells: 100,
		cellBits: 1,
	}, {
		name:     "3-bit cells spanning byte boundaries",
		numCells: 100,
		cellBits: 3,
	}, {
		name:     "4-bit cells",
		numCells: 100,
		cellBits: 4,
	}, {
		name:     "byte-aligned 8-bit cells",
		numCells: 100,
		cellBits: 8,
	}, {
		name:     "12-bit cells spanning byte boundaries",
		numCells: 100,
		cellBits: 12,
	}, {
		name:     "full width 32-bit cells",
		numCells: 100,
		cellBits: 32,
	}}

nextTest:
	for _, test := range tests {
		counters, err := NewCounters(test.numCells, test.cellBits)
		if err != nil {
			t.Errorf("%q: unexpected error creating counters: %v", test.name,
				err)
			continue
		}

		// Write a distinct value to every cell, taking care to exceed single
		// byte values for wider cells, then ensure every cell reads back the
		// exact value that was written to it.
		cellValue := func(cell uint32) uint32 {
			return (cell*2654435761 + 1) % (counters.MaxValue() + 1)
		}
		if test.cellBits == 32 {
			cellValue = func(cell uint32) uint32 {
				return cell * 2654435761
			}
		}
		for cell := uint32(0); cell < test.numCells; cell++ {
			counters.Set(cell, cellValue(cell))
		}
		for cell := uint32(0); cell < test.numCells; cell++ {
			if got := counters.Get(cell); got != cellValue(cell) {
				t.Errorf("%q: cell %d mismatch -- got %d, want %d", test.name,
					cell, got, cellValue(cell))
				continue nextTest
			}
		}

		// Rewrite a single mid-store cell and ensure only that cell changed.
		const target = 41
		counters.Set(target, 0)
		for cell := uint32(0); cell < test.numCells; cell++ {
			want := cellValue(cell)
			if cell == target {
				want = 0
			}
			if got := counters.Get(cell); got != want {
				t.Errorf("%q: cell %d disturbed by write to cell %d -- got "+
					"%d, want %d", test.name, cell, target, got, want)
				continue nextTest
			}
		}
	}
}

// TestCounterSaturation ensures increments stick at the maximum representable
// cell value, decrements stick at zero, and out-of-range sets are clamped.
func TestCounterSaturation(t *testing.T) {
	const cellBits = 4
	counters, err := NewCounters(8, cellBits)
	if err != nil {
		t.Fatalf("unexpected error creating counters: %v", err)
	}
	maxValue := counters.MaxValue()
	if maxValue != 1<<cellBits-1 {
		t.Fatalf("unexpected max value -- got %d, want %d", maxValue,
			1<<cellBits-1)
	}

	// Increment a cell well beyond its maximum value and ensure it saturates
	// rather than wrapping.
	const cell = 3
	for i := uint32(0); i < 3*maxValue; i++ {
		counters.Increment(cell)
		if got := counters.Get(cell); got > maxValue {
			t.Fatalf("cell exceeded max value after %d increments -- got %d",
				i+1, got)
		}
	}
	if got := counters.Get(cell); got != maxValue {
		t.Fatalf("cell did not saturate -- got %d, want %d", got, maxValue)
	}

	// Decrement the cell back to zero and beyond and ensure it sticks at
	// zero rather than underflowing.
	for i := uint32(0); i < 3*maxValue; i++ {
		counters.Decrement(cell)
		if got := counters.Get(cell); got > maxValue {
			t.Fatalf("cell underflowed after %d decrements -- got %d", i+1,
				got)
		}
	}
	if got := counters.Get(cell); got != 0 {
		t.Fatalf("cell did not stick at zero -- got %d", got)
	}

	// Ensure sets beyond the maximum representable value are clamped to it.
	counters.Set(cell, maxValue+100)
	if got := counters.Get(cell); got != maxValue {
		t.Fatalf("set was not clamped -- got %d, want %d", got, maxValue)
	}
}

// TestCounterReset ensures resetting a counter store zeroes every cell.
func TestCounterReset(t *testing.T) {
	counters, err := NewCounters(50, 5)
	if err != nil {
		t.Fatalf("unexpected error creating counters: %v", err)
	}
	for cell := uint32(0); cell < counters.NumCells(); cell++ {
		counters.Set(cell, cell%(counters.MaxValue()+1))
	}
	counters.Reset()
	for cell := uint32(0); cell < counters.NumCells(); cell++ {
		if got := counters.Get(cell); got != 0 {
			t.Fatalf("cell %d not zero after reset -- got %d", cell, got)
		}
	}
}

// TestCounterOutOfRangePanic ensures accessing a cell beyond the final cell
// panics since it is necessarily a programming error.
func TestCounterOutOfRangePanic(t *testing.T) {
	counters, err := NewCounters(10, 4)
	if err != nil {
		t.Fatalf("unexpected error creating counters: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("no panic for out-of-range cell index")
		}
	}()
	counters.Get(10)
}
