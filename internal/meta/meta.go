// Package meta reads and writes FLAC metadata blocks.
//
// A metadata block is a 4-byte header (last-block flag, 7-bit type and
// 24-bit body length) followed by the body. Bodies are parsed under a read
// budget of exactly the declared length: a body that needs more is
// malformed, and trailing bytes a body does not use are skipped.
package meta

import (
	"errors"

	"github.com/llehouerou/go-flac/internal/bits"
)

// Type is a metadata block type.
type Type uint8

// Block types.
const (
	TypeStreamInfo    Type = 0
	TypePadding       Type = 1
	TypeApplication   Type = 2
	TypeSeekTable     Type = 3
	TypeVorbisComment Type = 4
	TypeCueSheet      Type = 5
	TypePicture       Type = 6

	// TypeInvalid may not appear in a stream; it would make the header
	// collide with a frame sync code.
	TypeInvalid Type = 127
)

// NumTypes bounds the 7-bit type field.
const NumTypes = 128

var typeNames = [...]string{
	"STREAMINFO", "PADDING", "APPLICATION", "SEEKTABLE",
	"VORBIS_COMMENT", "CUESHEET", "PICTURE",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "UNKNOWN"
}

// Header is a metadata block header.
type Header struct {
	IsLast bool
	Type   Type
	Length uint32 // body length in bytes
}

// HeaderLen is the size of a block header in bytes.
const HeaderLen = 4

// StreamInfoLen is the body length of a STREAMINFO block.
const StreamInfoLen = 34

// Body is a parsed metadata block body.
type Body interface {
	Type() Type
}

// Block pairs a header with its parsed body.
type Block struct {
	Header
	Body Body
}

// ReadHeader reads a block header.
func ReadHeader(r *bits.Reader) (Header, error) {
	x, err := r.ReadBits(32)
	if err != nil {
		return Header{}, err
	}
	h := Header{
		IsLast: x>>31 != 0,
		Type:   Type(x>>24) & 0x7F,
		Length: x & 0xFFFFFF,
	}
	if h.Type == TypeInvalid {
		return h, ErrInvalidType
	}
	return h, nil
}

// ReadBody parses the body described by h. Errors from the underlying
// source pass through unchanged; a body overrunning its length returns
// ErrBadMetadata.
func ReadBody(r *bits.Reader, h Header) (Body, error) {
	r.SetLimit(h.Length * 8)
	defer r.RemoveLimit()

	var body Body
	var err error
	switch h.Type {
	case TypeStreamInfo:
		body, err = readStreamInfo(r)
	case TypePadding:
		body = &Padding{Length: h.Length}
	case TypeApplication:
		body, err = readApplication(r, h.Length)
	case TypeSeekTable:
		body, err = readSeekTable(r, h.Length)
	case TypeVorbisComment:
		body, err = readVorbisComment(r)
	case TypeCueSheet:
		body, err = readCueSheet(r)
	case TypePicture:
		body, err = readPicture(r)
	default:
		u := &Unknown{BlockType: h.Type, Data: make([]byte, h.Length)}
		body, err = u, r.ReadBytes(u.Data)
	}
	if err != nil {
		if errors.Is(err, bits.ErrLimitExceeded) {
			return nil, ErrBadMetadata
		}
		return nil, err
	}

	if rest := r.LimitRemaining() / 8; rest > 0 {
		if err := r.SkipBytes(rest); err != nil {
			return nil, err
		}
	}
	return body, nil
}

// Skip discards the body described by h.
func Skip(r *bits.Reader, h Header) error {
	return r.SkipBytes(h.Length)
}

// readBytes reads n bytes, failing before allocation when n exceeds the
// remaining budget.
func readBytes(r *bits.Reader, n uint32) ([]byte, error) {
	if uint64(n)*8 > uint64(r.LimitRemaining()) {
		return nil, ErrBadMetadata
	}
	p := make([]byte, n)
	if err := r.ReadBytes(p); err != nil {
		return nil, err
	}
	return p, nil
}
