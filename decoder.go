package flac

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/llehouerou/go-flac/internal/bits"
	"github.com/llehouerou/go-flac/internal/meta"
	"github.com/llehouerou/go-flac/internal/output"
	"github.com/llehouerou/go-flac/internal/syntax"
)

// Config holds the decoder settings. It is applied by Init.
type Config struct {
	// MD5Checking compares the decoded audio against the STREAMINFO
	// signature in Finish. It is turned off by seeking, skipping frames
	// and flushing, and when the stream has no signature.
	MD5Checking bool

	// MetadataRespond lists the block types delivered to the metadata
	// callback. Nil delivers STREAMINFO only.
	MetadataRespond []MetadataType

	// MetadataRespondAll delivers every block type.
	MetadataRespondAll bool

	// Logger receives debug records. Nil discards them.
	Logger *slog.Logger
}

// Callbacks connect a Decoder to its input and its client. Read and Write
// are required. Seek, Tell and Length are needed by SeekAbsolute.
type Callbacks struct {
	// Read fills p. io.EOF marks the end of the stream; any other error
	// aborts decoding.
	Read func(p []byte) (int, error)

	// Seek moves the input to an absolute byte offset.
	Seek func(offset int64) error

	// Tell returns the absolute byte offset of the input.
	Tell func() (int64, error)

	// Length returns the input size in bytes.
	Length func() (int64, error)

	// EOF reports whether the input is exhausted. Optional.
	EOF func() bool

	// Write receives every decoded block. A non-nil error aborts decoding.
	Write func(*Frame) error

	// Metadata receives the metadata blocks selected by Config. Optional.
	Metadata func(*MetadataBlock)

	// Error receives recoverable stream errors. It is never called while
	// seeking. Optional.
	Error func(ErrorStatus)
}

// ReaderCallbacks returns callbacks reading from r. When r is an
// io.ReadSeeker the seek callbacks are filled in too. The caller sets
// Write and, optionally, Metadata and Error.
func ReaderCallbacks(r io.Reader) Callbacks {
	cb := Callbacks{Read: r.Read}
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		return cb
	}
	cb.Seek = func(offset int64) error {
		_, err := rs.Seek(offset, io.SeekStart)
		return err
	}
	cb.Tell = func() (int64, error) {
		return rs.Seek(0, io.SeekCurrent)
	}
	cb.Length = func() (int64, error) {
		cur, err := rs.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, err
		}
		end, err := rs.Seek(0, io.SeekEnd)
		if err != nil {
			return 0, err
		}
		_, err = rs.Seek(cur, io.SeekStart)
		return end, err
	}
	return cb
}

// maxSeekErrors bounds the stream errors tolerated in one seek probe.
const maxSeekErrors = 20

// Decoder is a FLAC stream decoder. It pulls input through its callbacks
// and pushes metadata, frames and errors back out. A Decoder is not safe
// for concurrent use.
type Decoder struct {
	config Config
	cb     Callbacks
	log    *slog.Logger
	state  State

	r       *bits.Reader
	offset  int64 // absolute offset of the next byte Read supplies
	eof     bool
	respond [meta.NumTypes]bool

	// Metadata
	streamInfo       meta.StreamInfo
	hasStreamInfo    bool
	seekTable        *meta.SeekTable
	firstFrameOffset int64

	// Frame parsing
	header         syntax.FrameHeader
	warmup         [2]byte
	lookahead      int   // byte cached by the sync search, -1 if none
	syncOffset     int64 // absolute offset just past the last sync code
	fixedBlockSize uint32
	subframes      [syntax.MaxChannels]syntax.Subframe
	rice           [syntax.MaxChannels]syntax.PartitionedRiceContents
	out            [syntax.MaxChannels][]int32
	out64          []int64
	residual       []int32
	silence        [][]int32
	silenceBlock   [][]int32 // headers over silence, reused per fill block
	frame          Frame

	// Delivery
	samplesDecoded uint64 // sample number following the last frame
	last           FrameHeader
	hasLast        bool
	md5            *output.MD5
	md5Checking    bool

	// Seeking
	seeking    bool
	target     uint64
	seekErrors int
	probe      FrameHeader
	probeStart int64
	gotProbe   bool
}

// NewDecoder creates a decoder with default settings.
func NewDecoder() *Decoder {
	return &Decoder{
		config:    Config{MD5Checking: true},
		state:     StateUninitialized,
		lookahead: -1,
	}
}

// Config returns the current decoder configuration.
func (d *Decoder) Config() Config {
	return d.config
}

// SetConfiguration sets the decoder configuration. It takes effect at the
// next Init.
func (d *Decoder) SetConfiguration(cfg Config) {
	d.config = cfg
}

// Init prepares the decoder to read a stream through cb.
func (d *Decoder) Init(cb Callbacks) error {
	if d.state != StateUninitialized {
		return ErrAlreadyInitialized
	}
	if cb.Read == nil || cb.Write == nil {
		return ErrMissingCallback
	}
	d.cb = cb
	d.log = d.config.Logger
	if d.log == nil {
		d.log = slog.New(slog.DiscardHandler)
	}

	d.respond = [meta.NumTypes]bool{}
	switch {
	case d.config.MetadataRespondAll:
		for i := range d.respond {
			d.respond[i] = true
		}
	case d.config.MetadataRespond == nil:
		d.respond[meta.TypeStreamInfo] = true
	default:
		for _, t := range d.config.MetadataRespond {
			d.respond[t&0x7F] = true
		}
	}

	d.r = bits.NewReader(d.read)
	d.offset = 0
	if cb.Tell != nil {
		if pos, err := cb.Tell(); err == nil {
			d.offset = pos
		}
	}
	d.resetStream()
	return nil
}

// resetStream forgets everything learned from the stream.
func (d *Decoder) resetStream() {
	d.state = StateSearchForMetadata
	d.eof = false
	d.streamInfo = meta.StreamInfo{}
	d.hasStreamInfo = false
	d.seekTable = nil
	d.firstFrameOffset = 0
	d.fixedBlockSize = 0
	d.lookahead = -1
	d.samplesDecoded = 0
	d.hasLast = false
	d.md5 = output.NewMD5()
	d.md5Checking = d.config.MD5Checking
	d.seeking = false
}

// read adapts the client's Read to the bit reader.
func (d *Decoder) read(p []byte) (int, error) {
	if d.seeking && d.seekErrors > maxSeekErrors {
		return 0, fmt.Errorf("%w: too many errors while seeking", ErrAborted)
	}
	if d.eof || (d.cb.EOF != nil && d.cb.EOF()) {
		d.eof = true
		return 0, io.EOF
	}
	n, err := d.cb.Read(p)
	d.offset += int64(n)
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, io.EOF):
		d.eof = true
		if n > 0 {
			return n, nil
		}
		return 0, io.EOF
	}
	return 0, fmt.Errorf("%w: %w", ErrAborted, err)
}

// position returns the absolute offset of the read cursor.
func (d *Decoder) position() int64 {
	return d.offset - int64(d.r.UnconsumedBits()/8)
}

// State returns the decoder state.
func (d *Decoder) State() State {
	return d.state
}

// StreamInfo returns the stream's STREAMINFO block, if one was read.
func (d *Decoder) StreamInfo() (StreamInfo, bool) {
	return d.streamInfo, d.hasStreamInfo
}

// TotalSamples returns the samples per channel declared by STREAMINFO, or
// 0 when unknown.
func (d *Decoder) TotalSamples() uint64 {
	return d.streamInfo.TotalSamples
}

// Channels returns the channel count of the last frame, or of STREAMINFO
// before the first frame.
func (d *Decoder) Channels() uint32 {
	if d.hasLast {
		return d.last.Channels
	}
	return d.streamInfo.Channels
}

// ChannelAssignment returns the channel assignment of the last frame.
func (d *Decoder) ChannelAssignment() ChannelAssignment {
	return d.last.ChannelAssignment
}

// BitsPerSample returns the bit depth of the last frame, or of STREAMINFO
// before the first frame.
func (d *Decoder) BitsPerSample() uint32 {
	if d.hasLast {
		return d.last.BitsPerSample
	}
	return d.streamInfo.BitsPerSample
}

// SampleRate returns the sample rate of the last frame, or of STREAMINFO
// before the first frame.
func (d *Decoder) SampleRate() uint32 {
	if d.hasLast {
		return d.last.SampleRate
	}
	return d.streamInfo.SampleRate
}

// BlockSize returns the blocksize of the last frame.
func (d *Decoder) BlockSize() uint32 {
	return d.last.BlockSize
}

// DecodePosition returns the absolute byte offset following the last
// decoded frame.
func (d *Decoder) DecodePosition() (int64, error) {
	if d.state == StateUninitialized {
		return 0, ErrNotInitialized
	}
	if d.state == StateSearchForMetadata || d.state == StateReadMetadata {
		return 0, ErrInvalidState
	}
	return d.position(), nil
}

// Flush drops buffered input and returns to the frame sync search. MD5
// checking is turned off, as the signature can no longer be complete.
func (d *Decoder) Flush() error {
	if d.state == StateUninitialized {
		return ErrNotInitialized
	}
	d.flush()
	d.md5Checking = false
	return nil
}

func (d *Decoder) flush() {
	d.r.Clear()
	d.eof = false
	d.lookahead = -1
	d.samplesDecoded = 0
	d.hasLast = false
	d.state = StateSearchForFrameSync
}

// Reset rewinds a seekable input and prepares to decode the stream again
// from its metadata.
func (d *Decoder) Reset() error {
	if d.state == StateUninitialized {
		return ErrNotInitialized
	}
	if d.cb.Seek != nil {
		if err := d.cb.Seek(0); err != nil {
			return fmt.Errorf("flac: reset: %w", err)
		}
		d.offset = 0
	}
	d.r.Clear()
	d.resetStream()
	return nil
}

// Finish ends decoding. With MD5 checking still on it returns
// ErrMD5Mismatch when the decoded audio does not match STREAMINFO. The
// decoder may be initialized again afterwards.
func (d *Decoder) Finish() error {
	if d.state == StateUninitialized {
		return nil
	}
	var err error
	if d.md5Checking && d.hasStreamInfo {
		sum := d.md5.Sum()
		d.log.Debug("md5 check", "computed", fmt.Sprintf("%x", sum), "stored", fmt.Sprintf("%x", d.streamInfo.MD5))
		if sum != d.streamInfo.MD5 {
			err = ErrMD5Mismatch
		}
	}
	d.state = StateUninitialized
	d.r = nil
	d.seekTable = nil
	return err
}

// stateError returns the error matching a terminal state.
func (d *Decoder) stateError() error {
	switch d.state {
	case StateSeekError:
		return ErrSeekFailed
	case StateAborted:
		return ErrAborted
	case StateMemoryAllocationError:
		return ErrMemoryAllocation
	case StateUninitialized:
		return ErrNotInitialized
	}
	return ErrInvalidState
}
