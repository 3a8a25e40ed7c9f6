// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cbf_test

import (
	"fmt"

	"github.com/decred/dcrd/container/cbf"
)

// This example demonstrates creating a new counting Bloom filter, adding
// items to it with varying multiplicities, and querying the resulting
// abundance estimates.
func Example_basicUsage() {
	// Create a new filter with 8192 counter cells of 4 bits each where every
	// item hashes to 3 cells.  Estimates are therefore capped at 15.
	filter, err := cbf.NewFilter(8192, 3, 4)
	if err != nil {
		fmt.Println(err)
		return
	}

	// Add a couple of items with different multiplicities.
	for i := 0; i < 3; i++ {
		filter.Add([]byte("apple"))
	}
	filter.Add([]byte("pear"))

	// Estimates never fall below the true addition count for items that are
	// only ever added, though they can exceed it when items share cells.
	fmt.Println("apple estimate at least 3:", filter.Query([]byte("apple")) >= 3)
	fmt.Println("pear estimate at least 1:", filter.Query([]byte("pear")) >= 1)

	// Output:
	// apple estimate at least 3: true
	// pear estimate at least 1: true
}

// This example demonstrates persisting a filter with a caller-provided key
// and restoring it such that it reports identical estimates.
func Example_serialization() {
	// Filters that will be persisted should be constructed with an explicit
	// key so their hash locations are reproducible across processes.
	var key [cbf.KeySize]byte
	copy(key[:], "an example 16b k")
	filter, err := cbf.NewFilterWithKey(8192, 3, 4, key)
	if err != nil {
		fmt.Println(err)
		return
	}
	filter.Add([]byte("durable"))
	filter.Add([]byte("durable"))

	restored, err := cbf.FromBytes(filter.Bytes())
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println("estimates match:",
		restored.Query([]byte("durable")) == filter.Query([]byte("durable")))

	// Output:
	// estimates match: true
}
