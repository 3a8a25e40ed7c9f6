// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cbf

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"sync"

	"github.com/dchest/siphash"
	"github.com/decred/dcrd/crypto/rand"
)

// References:
//   [SBF] The Bloom Filter Tutorial and Spectral Bloom Filters
//     (Cohen, Matias)
//
//   [LHSP] Less Hashing, Same Performance: Building a Better Bloom Filter
//     (Kirsch, Mitzenmacher)
//
//   [BFPV] Bloom Filters in Probabilistic Verification (Dillinger, Manolis)

// KeySize is the size of the byte array required for key material for the
// SipHash keyed hash function.
const KeySize = 16

// Filter implements a counting Bloom filter with a minimal-increment
// insertion policy that is safe for concurrent access.
//
// A counting Bloom filter hashes each item to k cells of a shared saturating
// counter array and estimates the abundance of an item as the minimum value
// over its k cells.  The minimal-increment policy, known as the minimum
// increase heuristic in [SBF], only increments the cells that currently hold
// that minimum value (including all ties) when an item is added.  The cells
// above the minimum cannot influence any future query for the item being
// added, so leaving them untouched reduces the inflation of estimates for
// other items sharing them.
//
// Estimates never drop below the true addition count of an item as long as
// items are only ever added and no cell has saturated.  Estimates can exceed
// the true count due to cell sharing, though far less often than under the
// classic policy of incrementing all k cells.  Remove weakens the lower-bound
// guarantee and is documented separately.
//
// See NewFilter and NewFilterWithKey for details regarding the tuning
// parameters.
type Filter struct {
	// numHashes is the number of cells each item hashes to.  Each hash
	// location is treated as an independent slot even when two locations
	// coincide numerically, matching the semantics of using k independent
	// hash functions.
	numHashes uint8

	// maxValue is the maximum representable value of a single counter cell
	// and is cached from the counter store since the minimal-increment
	// comparison consults it on every addition.
	maxValue uint32

	// ****************************************************************
	// The fields below this point are protected by the embedded mutex.
	// ****************************************************************

	mtx sync.Mutex

	// key0 and key1 are used to seed the hash function in order to ensure
	// attackers are not able to intentionally grind collisions and inflate
	// the estimates of items they do not control.  Filters constructed with
	// a caller-provided key derive identical hash locations across processes
	// and restarts.
	key0, key1 uint64

	// counters is the backing store of bit-packed saturating counter cells.
	// Each filter owns its store exclusively.
	counters *Counters

	// cellBuf and valueBuf are scratch buffers with one entry per hash
	// location that are reused across operations to avoid an allocation per
	// call.
	cellBuf  []uint32
	valueBuf []uint32
}

// NumCells returns the total number of counter cells in the filter.
func (f *Filter) NumCells() uint32 {
	return f.counters.NumCells()
}

// NumHashes returns the number of hash locations each item maps to.
func (f *Filter) NumHashes() uint8 {
	return f.numHashes
}

// CellBits returns the width of each counter cell in bits.
func (f *Filter) CellBits() uint8 {
	return f.counters.CellBits()
}

// MaxValue returns the maximum value a single counter cell can represent,
// which is also the maximum abundance estimate Query can report.
func (f *Filter) MaxValue() uint32 {
	return f.maxValue
}

// Size returns the total bytes occupied by the filter data plus overhead.
//
// This function is safe for concurrent access.
func (f *Filter) Size() int {
	const overhead = 120
	f.mtx.Lock()
	result := len(f.counters.data) + overhead
	f.mtx.Unlock()
	return result
}

// Key returns the key material for the internal hashing logic.  Together
// with the filter parameters it is sufficient to reconstruct a filter via
// NewFilterWithKey that maps every item to the same hash locations.
//
// This function is safe for concurrent access.
func (f *Filter) Key() [KeySize]byte {
	var key [KeySize]byte
	f.mtx.Lock()
	binary.LittleEndian.PutUint64(key[0:8], f.key0)
	binary.LittleEndian.PutUint64(key[8:16], f.key1)
	f.mtx.Unlock()
	return key
}

// fastReduce calculates a mapping that is more or less equivalent to x mod N.
// However, instead of using a mod operation that can lead to slowness on many
// processors when not using a power of two due to unnecessary division, this
// uses a "multiply-and-shift" trick that eliminates all divisions as
// described in a blog post by Daniel Lemire, located at the following site at
// the time of this writing:
// https://lemire.me/blog/2016/06/27/a-fast-alternative-to-the-modulo-reduction/
//
// The general idea is that multiplying by N and shifting right by log2(N)
// fairly maps integers in [0, 2^64) onto [0, N).
func fastReduce(x, N uint64) uint64 {
	// This uses math/bits to perform the 128-bit multiplication as the
	// compiler will replace it with the relevant intrinsic on most
	// architectures.
	//
	// The high 64 bits in a 128-bit product is the same as shifting the
	// entire product right by 64 bits.
	hi, _ := bits.Mul64(x, N)
	return hi
}

// hashCells populates the provided slice with the cell index for each of the
// k hash locations of the provided data.
//
// Each location conceptually uses an independent hash function to determine
// which cell to index.  However, rather than using the more traditional
// approach of a distinct hash function for each one, enhanced double hashing,
// defined in [BFPV] as "f(i) = hash1 + i*hash2 + (i^3 - i)/6 (mod m)", is
// used to effectively generate the necessary hash functions from a single
// 128-bit SipHash digest because it is significantly faster while still
// coming quite close to the theoretical limit of two-index fingerprinting.
//
// Enhanced double hashing is used over the more common double hashing defined
// in [LHSP] because, as pointed out in [BFPV], the latter construction
// imposes an observable accuracy limit when the second hash produces 0 or a
// value that divides m.
//
// The produced sequence is deterministic for the lifetime of the hashing key
// and locations are NOT deduplicated.  A numeric collision between two
// locations simply yields the same cell twice, and each occurrence continues
// to count as its own slot.
//
// This function MUST be called with the filter mutex held.
func (f *Filter) hashCells(data []byte, cells []uint32) {
	numCells := uint64(f.counters.NumCells())
	hash1, hash2 := siphash.Hash128(f.key0, f.key1, data)

	// Rather than fully evaluating the closed formula per location, the
	// derived index is advanced incrementally since the difference between
	// consecutive locations is hash2 + (i^2 + i)/2, which is itself advanced
	// by i + 1 per iteration.
	derivedIdx, acc := hash1, hash2
	for i := range cells {
		cells[i] = uint32(fastReduce(derivedIdx, numCells))
		derivedIdx += acc
		acc += uint64(i) + 1
	}
}

// readCells populates the value scratch buffer with the current counter
// value of each provided cell and returns it along with the minimum value
// among them.
//
// This function MUST be called with the filter mutex held.
func (f *Filter) readCells(cells []uint32) ([]uint32, uint32) {
	values := f.valueBuf[:len(cells)]
	minValue := uint32(0)
	for i, cell := range cells {
		values[i] = f.counters.Get(cell)
		if i == 0 || values[i] < minValue {
			minValue = values[i]
		}
	}
	return values, minValue
}

// incrementMinimal applies the minimal-increment policy to the provided hash
// locations as a single logical unit: it reads all locations, determines the
// minimum value among them, and increments every location whose value equals
// that minimum.  Locations above the minimum are deliberately left untouched.
//
// All ties are incremented, not just the first, since otherwise a subsequent
// query of the same item would not observe the addition.  Similarly, a cell
// that appears at multiple locations due to a numeric hash collision is
// incremented once per occurrence since it stands in for that many slots.
//
// Increments saturate, so locations already at the maximum cell value remain
// unchanged.
//
// This function MUST be called with the filter mutex held.
func (f *Filter) incrementMinimal(cells []uint32) {
	values, minValue := f.readCells(cells)
	for i, cell := range cells {
		if values[i] == minValue {
			f.counters.Increment(cell)
		}
	}
}

// decrementMinimal applies the symmetric policy to the provided hash
// locations: every location whose value equals the current minimum among them
// is decremented.  Decrements saturate at zero.
//
// This function MUST be called with the filter mutex held.
func (f *Filter) decrementMinimal(cells []uint32) {
	values, minValue := f.readCells(cells)
	if minValue == 0 {
		return
	}
	for i, cell := range cells {
		if values[i] == minValue {
			f.counters.Decrement(cell)
		}
	}
}

// Add inserts the provided data into the filter by incrementing the counter
// cells that currently hold the minimum value among the k cells the data
// hashes to.  The read of all k cells and the increment of the minimal subset
// form a single logical unit with respect to all other filter operations.
//
// Additions beyond the point where the minimum cell reaches the maximum
// representable cell value have no effect.
//
// This function is safe for concurrent access.
func (f *Filter) Add(data []byte) {
	f.mtx.Lock()
	f.hashCells(data, f.cellBuf)
	f.incrementMinimal(f.cellBuf)
	f.mtx.Unlock()
}

// Query returns the estimated number of times the provided data was added to
// the filter, which is the minimum value over the k counter cells the data
// hashes to.
//
// The estimate never exceeds the maximum representable cell value.  It is
// also never less than the true number of additions, up to that saturation
// limit, provided Remove has not been used.  It can exceed the true number of
// additions when other items share cells with the data, though the
// minimal-increment addition policy makes that far less likely than the
// classic policy of incrementing all k cells.
//
// This function is safe for concurrent access.
func (f *Filter) Query(data []byte) uint32 {
	f.mtx.Lock()
	f.hashCells(data, f.cellBuf)
	_, minValue := f.readCells(f.cellBuf)
	f.mtx.Unlock()
	return minValue
}

// Remove deletes one addition of the provided data from the filter by
// decrementing the counter cells that currently hold the minimum value among
// the k cells the data hashes to.  When that minimum is already zero, the
// filter is left unchanged.
//
// WARNING: Removal is lossy.  Additions deliberately skip the non-minimal
// cells, so there is no record of which cells an earlier addition actually
// incremented, and the minimal subset at removal time is computed against the
// current state rather than the state at insertion time.  Consequently,
// removing items can drive the estimate for a different item that is still
// present to zero.  Applications that cannot tolerate such false negatives on
// abundance must not use Remove.
//
// This function is safe for concurrent access.
func (f *Filter) Remove(data []byte) {
	f.mtx.Lock()
	f.hashCells(data, f.cellBuf)
	f.decrementMinimal(f.cellBuf)
	f.mtx.Unlock()
}

// Reset clears all counter cells and changes the key used in the internal
// hashing logic to ensure a unique set of hash locations versus those prior
// to the reset.  Filters that must retain their hash locations across a reset
// should instead be reconstructed with NewFilterWithKey and their original
// key.
//
// This function is safe for concurrent access.
func (f *Filter) Reset() {
	f.mtx.Lock()
	f.key0, f.key1 = siphash.Hash128(f.key0, f.key1, []byte("reset"))
	f.counters.Reset()
	f.mtx.Unlock()

	log.Debugf("Reset filter (cells %d, hashes %d, cell bits %d)",
		f.NumCells(), f.numHashes, f.CellBits())
}

// NewFilterWithKey returns a counting Bloom filter with minimal-increment
// addition semantics that uses the provided key material for the internal
// hashing logic.  Two filters constructed with the same parameters and key
// map every item to the same hash locations, which callers can rely on for
// reproducible experiments and for reconstructing serialized filters.
//
// The numCells parameter is the total number of counter cells, numHashes is
// the number of cells each item hashes to, and cellBits is the width of each
// cell in bits, which bounds both the per-cell value and the maximum
// abundance estimate at 2^cellBits - 1.
//
// The total space (in bytes) used by a filter is approximately:
//
//	ceil(numCells * cellBits / 8)
func NewFilterWithKey(numCells uint32, numHashes uint8, cellBits uint8,
	key [KeySize]byte) (*Filter, error) {

	if numHashes == 0 {
		str := "filter requires at least one hash location per item"
		return nil, makeError(ErrInvalidHashCount, str)
	}
	counters, err := NewCounters(numCells, cellBits)
	if err != nil {
		return nil, err
	}

	filter := &Filter{
		numHashes: numHashes,
		maxValue:  counters.MaxValue(),
		key0:      binary.LittleEndian.Uint64(key[0:8]),
		key1:      binary.LittleEndian.Uint64(key[8:16]),
		counters:  counters,
		cellBuf:   make([]uint32, numHashes),
		valueBuf:  make([]uint32, numHashes),
	}

	log.Debugf("Created filter (cells %d, hashes %d, cell bits %d, %d bytes)",
		numCells, numHashes, cellBits, len(counters.data))
	return filter, nil
}

// NewFilter returns a counting Bloom filter with minimal-increment addition
// semantics and a unique key for the internal hashing logic so that each
// filter maps items to its own set of hash locations.  The key is also
// automatically changed by Reset.
//
// See NewFilterWithKey for details regarding the parameters and for
// constructing filters with reproducible hash locations.
func NewFilter(numCells uint32, numHashes uint8, cellBits uint8) (*Filter, error) {
	// The key does not need to be cryptographically secure since its purpose
	// is only to ensure independently created filters produce a different
	// set of collisions.
	var key [KeySize]byte
	rand.Read(key[:])
	return NewFilterWithKey(numCells, numHashes, cellBits, key)
}

// String returns a human-readable description of the filter parameters.
func (f *Filter) String() string {
	return fmt.Sprintf("counting bloom filter (cells %d, hashes %d, cell "+
		"bits %d)", f.NumCells(), f.numHashes, f.CellBits())
}
