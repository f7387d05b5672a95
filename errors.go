package flac

import "errors"

// ErrorStatus is a recoverable stream error reported through the error
// callback. The decoder resumes on its own after reporting one.
type ErrorStatus int

// Error statuses.
const (
	// ErrorLostSync: data that cannot belong to a frame was skipped.
	ErrorLostSync ErrorStatus = iota
	// ErrorBadHeader: a frame header was malformed or failed its CRC-8.
	ErrorBadHeader
	// ErrorFrameCRCMismatch: a frame failed its CRC-16 and was dropped.
	ErrorFrameCRCMismatch
	// ErrorUnparseableStream: a frame uses reserved codes.
	ErrorUnparseableStream
	// ErrorBadMetadata: a metadata block was malformed; the decoder
	// skipped to the audio frames.
	ErrorBadMetadata
	// ErrorOutOfBounds: decoded samples exceeded the frame's bit depth.
	ErrorOutOfBounds
	// ErrorMissingFrame: a gap in sample numbers was found and, when
	// small enough, filled with silence.
	ErrorMissingFrame
)

var errorStatusMessages = [...]string{
	"lost sync",
	"bad frame header",
	"frame CRC mismatch",
	"unparseable stream",
	"bad metadata",
	"decoded samples out of bounds",
	"missing frame",
}

// String returns the status description.
func (s ErrorStatus) String() string {
	if s >= 0 && int(s) < len(errorStatusMessages) {
		return errorStatusMessages[s]
	}
	return "unknown error status"
}

// Error implements the error interface.
func (s ErrorStatus) Error() string {
	return "flac: " + s.String()
}

// State is the decoder state.
type State int

// Decoder states.
const (
	StateSearchForMetadata State = iota
	StateReadMetadata
	StateSearchForFrameSync
	StateReadFrame
	StateEndOfStream
	StateSeekError
	StateAborted
	StateMemoryAllocationError
	StateUninitialized
)

var stateNames = [...]string{
	"SEARCH_FOR_METADATA",
	"READ_METADATA",
	"SEARCH_FOR_FRAME_SYNC",
	"READ_FRAME",
	"END_OF_STREAM",
	"SEEK_ERROR",
	"ABORTED",
	"MEMORY_ALLOCATION_ERROR",
	"UNINITIALIZED",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}

// Decoder errors. The fatal ones leave the decoder in the matching State
// until Flush, Reset or Finish.
var (
	// ErrSeekFailed indicates SeekAbsolute could not locate the target;
	// the state is StateSeekError.
	ErrSeekFailed = errors.New("flac: seek failed")

	// ErrAborted indicates a callback or the input aborted decoding.
	ErrAborted = errors.New("flac: decoding aborted")

	// ErrMemoryAllocation indicates a buffer could not be allocated.
	ErrMemoryAllocation = errors.New("flac: memory allocation failed")

	ErrNotInitialized     = errors.New("flac: decoder not initialized")
	ErrAlreadyInitialized = errors.New("flac: decoder already initialized")
	ErrMissingCallback    = errors.New("flac: read and write callbacks are required")
	ErrInvalidState       = errors.New("flac: operation not allowed in the current state")
	ErrSeekUnsupported    = errors.New("flac: input is not seekable")
	ErrSeekOutOfRange     = errors.New("flac: seek target beyond end of stream")
	ErrMD5Mismatch        = errors.New("flac: MD5 signature mismatch")
)

// Encoder errors.
var (
	ErrInvalidEncoderConfig = errors.New("flac: invalid encoder configuration")
	ErrEncoderClosed        = errors.New("flac: encoder closed")
	ErrChannelMismatch      = errors.New("flac: sample channels do not match the stream")
	ErrSampleRange          = errors.New("flac: sample does not fit the stream bit depth")
)
