// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package cbf implements a counting Bloom filter with a minimal-increment
insertion policy.

A counting Bloom filter is a Bloom filter variant that replaces the single bit
per location with a small saturating counter, which allows it to estimate how
many times an item was added (its abundance) in addition to probabilistic set
membership.  Queries report the minimum value over the k counter cells an item
hashes to, so, as with all Bloom filter variants, the reported abundance can
exceed the true count when distinct items share cells, but it can never be
less than the true count for items that were only ever added, up to the
saturation limit of the counters.

Rather than incrementing all k cells on every addition, this implementation
only increments the subset of the k cells that currently hold the smallest
value among them (including all ties).  Since a query only ever reports the
minimum cell value, incrementing the cells above the minimum cannot change any
future query result for the item being added, while it can inflate the
estimates of other items that share those cells.  Restricting the update to
the minimal subset therefore significantly reduces overestimation under heavy
cell sharing at no cost to the item being added.

Two caveats of the scheme are worth highlighting:

  - The policy is order dependent.  The same multiset of items added in a
    different order can produce different counter states, and overestimation,
    while reduced, is still possible.

  - Removal is lossy.  Because additions deliberately skip the non-minimal
    cells, there is no record of which cells an earlier addition actually
    incremented.  Remove applies the symmetric policy against the current
    state, which can drive the estimate for an item that is still present all
    the way to zero.  See the Remove documentation for details.  Applications
    that cannot tolerate false negatives on abundance must not use Remove.

Filters are parameterized by the number of counter cells, the number of hash
locations per item, and the counter cell width in bits.  Cells saturate at
their maximum representable value instead of wrapping and stick at zero
instead of underflowing.  All hash locations are derived from a SipHash-2-4
digest of the item keyed by a per-filter key, so a filter constructed via
NewFilterWithKey maps items to identical locations across processes and
restarts.

All filter operations are safe for concurrent access.

# Errors

The errors returned by this package are of type cbf.Error and fully support
the standard library errors.Is and errors.As functions.  This allows the
caller to programmatically determine the specific error by examining the
ErrorKind field of the type asserted cbf.Error while still providing rich
error messages with contextual information.  See ErrorKind in the package
documentation for a full list.
*/
package cbf
