package flac

import (
	"github.com/llehouerou/go-flac/internal/meta"
	"github.com/llehouerou/go-flac/internal/syntax"
)

// ChannelAssignment is the inter-channel coding of a frame.
type ChannelAssignment = syntax.ChannelAssignment

// Channel assignments.
const (
	ChannelIndependent = syntax.ChannelIndependent
	ChannelLeftSide    = syntax.ChannelLeftSide  // left, side = left - right
	ChannelRightSide   = syntax.ChannelRightSide // side, right
	ChannelMidSide     = syntax.ChannelMidSide   // mid, side
)

// MetadataType is a metadata block type.
type MetadataType = meta.Type

// Metadata block types.
const (
	MetadataStreamInfo    = meta.TypeStreamInfo
	MetadataPadding       = meta.TypePadding
	MetadataApplication   = meta.TypeApplication
	MetadataSeekTable     = meta.TypeSeekTable
	MetadataVorbisComment = meta.TypeVorbisComment
	MetadataCueSheet      = meta.TypeCueSheet
	MetadataPicture       = meta.TypePicture
)

// Metadata block bodies.
type (
	StreamInfo    = meta.StreamInfo
	SeekTable     = meta.SeekTable
	SeekPoint     = meta.SeekPoint
	VorbisComment = meta.VorbisComment
	Application   = meta.Application
	Padding       = meta.Padding
	CueSheet      = meta.CueSheet
	Picture       = meta.Picture
	UnknownBlock  = meta.Unknown
)

// MetadataBlock is a parsed metadata block as delivered to the metadata
// callback. Body holds one of the block body types above.
type MetadataBlock = meta.Block

// FrameHeader describes a decoded block.
type FrameHeader struct {
	BlockSize         uint32 // samples per channel
	SampleRate        uint32 // Hz
	Channels          uint32
	ChannelAssignment ChannelAssignment
	BitsPerSample     uint32

	// VariableBlockSize is set for frames numbered by sample rather than
	// by frame.
	VariableBlockSize bool
	FrameNumber       uint32 // valid when VariableBlockSize is false
	SampleNumber      uint64 // first sample of the block
}

// Frame is one decoded block of audio.
//
// Samples holds one slice per channel, each Header.BlockSize long. The
// decoder reuses the storage: a frame is only valid until the write
// callback returns.
type Frame struct {
	Header  FrameHeader
	Samples [][]int32
}

func frameHeader(h *syntax.FrameHeader) FrameHeader {
	return FrameHeader{
		BlockSize:         h.BlockSize,
		SampleRate:        h.SampleRate,
		Channels:          h.Channels,
		ChannelAssignment: h.ChannelAssignment,
		BitsPerSample:     h.BitsPerSample,
		VariableBlockSize: h.NumberType == syntax.NumberSample,
		FrameNumber:       h.FrameNumber,
		SampleNumber:      h.SampleNumber,
	}
}
