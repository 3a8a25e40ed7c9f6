// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cbf

// ErrorKind identifies a kind of error.  It has full support for errors.Is
// and errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific Error.
const (
	// ErrInvalidCellCount indicates a filter was attempted to be created or
	// deserialized with zero counter cells.
	ErrInvalidCellCount = ErrorKind("ErrInvalidCellCount")

	// ErrInvalidCellBits indicates a filter was attempted to be created or
	// deserialized with a counter cell width of zero bits or more than the
	// max allowed 32 bits.
	ErrInvalidCellBits = ErrorKind("ErrInvalidCellBits")

	// ErrInvalidHashCount indicates a filter was attempted to be created or
	// deserialized with zero hash locations per item.
	ErrInvalidHashCount = ErrorKind("ErrInvalidHashCount")

	// ErrMisserialized indicates a serialized filter is malformed and could
	// not be deserialized.  This includes short or truncated payloads as
	// well as unsupported serialization versions.
	ErrMisserialized = ErrorKind("ErrMisserialized")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// Error identifies a filter-related error.  It has full support for errors.Is
// and errors.As, so the caller can ascertain the specific reason for the
// error by checking the underlying error.
type Error struct {
	Description string
	Err         error
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// makeError creates an Error given a set of arguments.  The error kind must
// be one of the error kinds provided by this package.
func makeError(kind ErrorKind, desc string) Error {
	return Error{Err: kind, Description: desc}
}
