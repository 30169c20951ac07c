package types

import "errors"

// Domain errors shared across packages
var (
	// ErrInvalidInput is returned for malformed caller arguments such as topK <= 0
	ErrInvalidInput = errors.New("invalid input")

	// ErrIndexUnavailable is returned when neither the sparse nor the dense index could answer
	ErrIndexUnavailable = errors.New("no index available")

	// ErrEmptyContent is returned when a chunk has no text
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidOffsets is returned when a chunk's offsets are out of order
	ErrInvalidOffsets = errors.New("start offset must not exceed end offset")
)
