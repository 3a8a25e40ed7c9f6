// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cbf

import (
	"encoding/binary"
	"fmt"
)

const (
	// serializeVersion is the version of the serialization format produced
	// by Bytes and accepted by FromBytes.
	serializeVersion = 1

	// serializeHeaderSize is the fixed size of the serialization header:
	// one byte each for the version, cell width, and hash location count,
	// four bytes for the cell count, and the hashing key.
	serializeHeaderSize = 3 + 4 + KeySize
)

// Bytes returns the filter serialized in a stable, versioned format suitable
// for persisting to disk and reconstructing via FromBytes.
//
// The format consists of the serialization version, the cell width in bits,
// the number of hash locations per item, the number of cells as a big-endian
// 32-bit integer, the 16-byte hashing key, and finally the packed counter
// array exactly as stored in memory.  See Counters for the counter packing
// layout, which is likewise stable.
//
// This function is safe for concurrent access.
func (f *Filter) Bytes() []byte {
	f.mtx.Lock()
	serialized := make([]byte, serializeHeaderSize+len(f.counters.data))
	serialized[0] = serializeVersion
	serialized[1] = f.counters.CellBits()
	serialized[2] = f.numHashes
	binary.BigEndian.PutUint32(serialized[3:7], f.counters.NumCells())
	binary.LittleEndian.PutUint64(serialized[7:15], f.key0)
	binary.LittleEndian.PutUint64(serialized[15:23], f.key1)
	copy(serialized[serializeHeaderSize:], f.counters.data)
	f.mtx.Unlock()
	return serialized
}

// FromBytes returns a filter reconstructed from the provided serialization
// produced by Bytes.  The reconstructed filter maps every item to the same
// hash locations as the filter that was serialized and reports identical
// estimates.
func FromBytes(serialized []byte) (*Filter, error) {
	if len(serialized) < serializeHeaderSize {
		str := fmt.Sprintf("serialized filter of %d bytes is smaller than "+
			"the minimum %d bytes", len(serialized), serializeHeaderSize)
		return nil, makeError(ErrMisserialized, str)
	}
	if version := serialized[0]; version != serializeVersion {
		str := fmt.Sprintf("serialization version %d is not supported "+
			"(max %d)", version, serializeVersion)
		return nil, makeError(ErrMisserialized, str)
	}

	cellBits := serialized[1]
	numHashes := serialized[2]
	numCells := binary.BigEndian.Uint32(serialized[3:7])
	var key [KeySize]byte
	copy(key[:], serialized[7:serializeHeaderSize])

	filter, err := NewFilterWithKey(numCells, numHashes, cellBits, key)
	if err != nil {
		str := fmt.Sprintf("serialized filter parameters are invalid: %v", err)
		return nil, makeError(ErrMisserialized, str)
	}

	expected := serializeHeaderSize + len(filter.counters.data)
	if len(serialized) != expected {
		str := fmt.Sprintf("serialized filter of %d bytes does not match "+
			"the %d bytes expected for its parameters", len(serialized),
			expected)
		return nil, makeError(ErrMisserialized, str)
	}
	copy(filter.counters.data, serialized[serializeHeaderSize:])

	log.Debugf("Deserialized filter (cells %d, hashes %d, cell bits %d)",
		numCells, numHashes, cellBits)
	return filter, nil
}
