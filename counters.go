// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cbf

import (
	"fmt"
)

// maxCellBits is the maximum supported counter cell width in bits.  Cells are
// returned as uint32 values, so wider cells are not representable.
const maxCellBits = 32

// Counters provides a fixed-size array of saturating unsigned counter cells
// that are bit-packed into a contiguous byte slice so that cells may occupy
// less than a full machine word.  It is the backing store for Filter and is
// exported so callers with external knowledge of cell indexes, such as tests
// and tooling, can inspect and manipulate individual cells directly.
//
// Increments on a cell already at its maximum representable value and
// decrements on a cell already at zero are no-ops, so every cell value is
// always in [0, 2^cellBits - 1] regardless of the sequence of mutations.
//
// The cell packing layout is stable and part of the serialization format:
// cell i occupies bits [i*cellBits, (i+1)*cellBits) of the backing array,
// where bit j of the array is stored in bit j mod 8 of byte j / 8 and the
// least significant bit of a cell value is its lowest numbered bit.
//
// Counters is NOT safe for concurrent access.  Filter serializes all access
// to its counter store; direct callers are responsible for their own
// synchronization.
type Counters struct {
	numCells uint32
	cellBits uint8
	maxValue uint32
	data     []byte
}

// NewCounters returns a counter store with the provided number of cells where
// each cell is the provided number of bits wide.  All cells are initially
// zero.
func NewCounters(numCells uint32, cellBits uint8) (*Counters, error) {
	if numCells == 0 {
		str := "counter store requires at least one cell"
		return nil, makeError(ErrInvalidCellCount, str)
	}
	if cellBits == 0 || cellBits > maxCellBits {
		str := fmt.Sprintf("cell width of %d bits is not in the required "+
			"range [1, %d]", cellBits, maxCellBits)
		return nil, makeError(ErrInvalidCellBits, str)
	}

	numBytes := (uint64(numCells)*uint64(cellBits) + 7) / 8
	return &Counters{
		numCells: numCells,
		cellBits: cellBits,
		maxValue: uint32(uint64(1)<<cellBits - 1),
		data:     make([]byte, numBytes),
	}, nil
}

// NumCells returns the total number of counter cells in the store.
func (c *Counters) NumCells() uint32 {
	return c.numCells
}

// CellBits returns the width of each counter cell in bits.
func (c *Counters) CellBits() uint8 {
	return c.cellBits
}

// MaxValue returns the maximum representable value of a single counter cell,
// which is 2^cellBits - 1.  Cells saturate at this value.
func (c *Counters) MaxValue() uint32 {
	return c.maxValue
}

// checkCell panics when the provided cell index is beyond the final cell.
// All cell indexes are derived internally by reducing hashes into the valid
// range, so an out-of-range index is necessarily a programming error as
// opposed to a recoverable condition.
func (c *Counters) checkCell(cell uint32) {
	if cell >= c.numCells {
		panic(fmt.Sprintf("cell index %d is beyond the final cell index %d",
			cell, c.numCells-1))
	}
}

// Get returns the current value of the provided cell.
//
// It will panic when the cell index is beyond the final cell.
func (c *Counters) Get(cell uint32) uint32 {
	c.checkCell(cell)

	// Accumulate the cell bits starting from the least significant chunk.
	// The first chunk is potentially mid byte and all chunks except possibly
	// the first and last span a whole byte.
	bitOffset := uint64(cell) * uint64(c.cellBits)
	byteIdx := bitOffset >> 3
	bitIdx := uint8(bitOffset & 7)
	var value uint32
	for valueBits := uint8(0); valueBits < c.cellBits; {
		chunkBits := 8 - bitIdx
		if remaining := c.cellBits - valueBits; chunkBits > remaining {
			chunkBits = remaining
		}
		chunk := (c.data[byteIdx] >> bitIdx) & byte(1<<chunkBits-1)
		value |= uint32(chunk) << valueBits
		valueBits += chunkBits
		bitIdx = 0
		byteIdx++
	}
	return value
}

// Set sets the provided cell to the provided value.  Values greater than the
// maximum representable cell value are clamped to it, consistent with the
// saturating behavior of the mutation methods.
//
// It will panic when the cell index is beyond the final cell.
func (c *Counters) Set(cell uint32, value uint32) {
	c.checkCell(cell)
	if value > c.maxValue {
		value = c.maxValue
	}

	// Scatter the value over the packed bytes starting from the least
	// significant chunk while leaving the bits owned by neighboring cells
	// untouched.
	bitOffset := uint64(cell) * uint64(c.cellBits)
	byteIdx := bitOffset >> 3
	bitIdx := uint8(bitOffset & 7)
	for valueBits := uint8(0); valueBits < c.cellBits; {
		chunkBits := 8 - bitIdx
		if remaining := c.cellBits - valueBits; chunkBits > remaining {
			chunkBits = remaining
		}
		mask := byte(1<<chunkBits-1) << bitIdx
		chunk := byte(value>>valueBits) << bitIdx
		c.data[byteIdx] = c.data[byteIdx]&^mask | chunk&mask
		valueBits += chunkBits
		bitIdx = 0
		byteIdx++
	}
}

// Increment increases the value of the provided cell by one unless the cell
// is already at its maximum representable value, in which case it is left
// unchanged.  Saturation is expected steady-state behavior under heavy cell
// sharing and is deliberately not reported as an error.
//
// It will panic when the cell index is beyond the final cell.
func (c *Counters) Increment(cell uint32) {
	if value := c.Get(cell); value < c.maxValue {
		c.Set(cell, value+1)
	}
}

// Decrement decreases the value of the provided cell by one unless the cell
// is already zero, in which case it is left unchanged.
//
// It will panic when the cell index is beyond the final cell.
func (c *Counters) Decrement(cell uint32) {
	if value := c.Get(cell); value > 0 {
		c.Set(cell, value-1)
	}
}

// Reset sets every cell back to zero.
func (c *Counters) Reset() {
	for i := range c.data {
		c.data[i] = 0
	}
}
