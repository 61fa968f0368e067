package vector

import "errors"

var (
	// ErrEmptyInput is returned by Add when no non-blank documents remain.
	ErrEmptyInput = errors.New("no non-empty documents to index")
	// ErrDimensionMismatch is returned when a vector does not match the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrCorruptIndex is returned by Load when a persisted artifact cannot be decoded.
	ErrCorruptIndex = errors.New("corrupt index")
	// ErrIndexNotFound is returned by Load when the vector artifact does not exist.
	ErrIndexNotFound = errors.New("index not found")
)
