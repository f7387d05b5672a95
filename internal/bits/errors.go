package bits

import "errors"

// Stream corruption.
var (
	// ErrRiceOverflow indicates a Rice quotient too large for a 32-bit residual.
	ErrRiceOverflow = errors.New("bits: rice quotient overflows 32-bit residual")
)

// Reader misuse and resource errors.
var (
	// ErrLimitExceeded indicates a read past the armed read budget.
	ErrLimitExceeded = errors.New("bits: read limit exceeded")

	// ErrNotAligned indicates a byte-oriented read from an unaligned cursor.
	ErrNotAligned = errors.New("bits: cursor not byte aligned")

	// ErrBufferFull indicates a refill found no free space in the buffer.
	ErrBufferFull = errors.New("bits: buffer full")

	// ErrNoProgress indicates the client returned no data repeatedly.
	ErrNoProgress = errors.New("bits: too many empty reads")
)
