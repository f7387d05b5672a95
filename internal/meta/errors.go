package meta

import "errors"

// Malformed metadata.
var (
	// ErrBadMetadata indicates a block body inconsistent with its length.
	ErrBadMetadata = errors.New("meta: malformed metadata block")

	// ErrInvalidType indicates the forbidden block type 127.
	ErrInvalidType = errors.New("meta: invalid block type")
)

// Marshalling errors.
var (
	// ErrBlockTooLarge indicates a body longer than the 24-bit length field.
	ErrBlockTooLarge = errors.New("meta: block body exceeds 16 MiB")

	// ErrUnsupportedBody indicates a body type Marshal cannot write.
	ErrUnsupportedBody = errors.New("meta: unsupported block body")
)
