// Package syntax implements FLAC frame and subframe parsing.
// This file contains error definitions for the syntax package.
package syntax

import "errors"

// Stream errors. The decoder reports each as a recoverable error status
// and resumes the sync search.
var (
	// ErrLostSync indicates data that cannot belong to a valid frame.
	ErrLostSync = errors.New("syntax: lost sync")

	// ErrBadHeader indicates a malformed frame header or CRC-8 mismatch.
	ErrBadHeader = errors.New("syntax: bad frame header")

	// ErrUnparseable indicates a well-formed frame using reserved codes.
	ErrUnparseable = errors.New("syntax: unparseable stream")
)
