package main

import (
	"encoding/hex"
	"io"
	"log/slog"

	"github.com/bytedance/sonic"

	"github.com/llehouerou/go-flac"
)

type streamInfo struct {
	MinBlockSize  uint32  `json:"min_block_size"`
	MaxBlockSize  uint32  `json:"max_block_size"`
	MinFrameSize  uint32  `json:"min_frame_size"`
	MaxFrameSize  uint32  `json:"max_frame_size"`
	SampleRate    uint32  `json:"sample_rate"`
	Channels      uint32  `json:"channels"`
	BitsPerSample uint32  `json:"bits_per_sample"`
	TotalSamples  uint64  `json:"total_samples"`
	Duration      float64 `json:"duration_seconds"`
	MD5           string  `json:"md5"`
}

type seekPoint struct {
	Sample  uint64 `json:"sample"`
	Offset  uint64 `json:"offset"`
	Samples uint32 `json:"samples"`
}

type blockInfo struct {
	Type   string `json:"type"`
	Length uint32 `json:"length"`
	Last   bool   `json:"last,omitempty"`

	Vendor      string      `json:"vendor,omitempty"`
	Comments    []string    `json:"comments,omitempty"`
	SeekPoints  []seekPoint `json:"seek_points,omitempty"`
	Application string      `json:"application,omitempty"`
	MIME        string      `json:"mime,omitempty"`
	Description string      `json:"description,omitempty"`
	Width       uint32      `json:"width,omitempty"`
	Height      uint32      `json:"height,omitempty"`
	Tracks      int         `json:"tracks,omitempty"`
}

type fileInfo struct {
	StreamInfo *streamInfo `json:"stream_info,omitempty"`
	Blocks     []blockInfo `json:"blocks"`
}

func describe(b *flac.MetadataBlock) blockInfo {
	out := blockInfo{Type: b.Type.String(), Length: b.Length, Last: b.IsLast}
	switch body := b.Body.(type) {
	case *flac.VorbisComment:
		out.Vendor = body.Vendor
		out.Comments = body.Comments
	case *flac.SeekTable:
		for _, p := range body.Points {
			if p.IsPlaceholder() {
				continue
			}
			out.SeekPoints = append(out.SeekPoints, seekPoint{p.SampleNumber, p.StreamOffset, p.FrameSamples})
		}
	case *flac.Application:
		out.Application = string(body.ID[:])
	case *flac.Picture:
		out.MIME = body.MIME
		out.Description = body.Description
		out.Width, out.Height = body.Width, body.Height
	case *flac.CueSheet:
		out.Tracks = len(body.Tracks)
	}
	return out
}

// printInfo writes the stream metadata as indented JSON.
func printInfo(in io.Reader, stdout io.Writer, log *slog.Logger) error {
	var info fileInfo
	dec := flac.NewDecoder()
	dec.SetConfiguration(flac.Config{MetadataRespondAll: true, Logger: log})
	cb := flac.ReaderCallbacks(in)
	cb.Write = func(*flac.Frame) error { return nil }
	cb.Metadata = func(b *flac.MetadataBlock) {
		info.Blocks = append(info.Blocks, describe(b))
	}
	cb.Error = func(s flac.ErrorStatus) {
		log.Warn("stream error", "status", s.String())
	}
	if err := dec.Init(cb); err != nil {
		return err
	}
	if err := dec.ProcessUntilEndOfMetadata(); err != nil {
		return err
	}
	if si, ok := dec.StreamInfo(); ok {
		info.StreamInfo = &streamInfo{
			MinBlockSize:  si.MinBlockSize,
			MaxBlockSize:  si.MaxBlockSize,
			MinFrameSize:  si.MinFrameSize,
			MaxFrameSize:  si.MaxFrameSize,
			SampleRate:    si.SampleRate,
			Channels:      si.Channels,
			BitsPerSample: si.BitsPerSample,
			TotalSamples:  si.TotalSamples,
			MD5:           hex.EncodeToString(si.MD5[:]),
		}
		if si.SampleRate > 0 {
			info.StreamInfo.Duration = float64(si.TotalSamples) / float64(si.SampleRate)
		}
	}
	_ = dec.Finish()

	data, err := sonic.ConfigStd.MarshalIndent(&info, "", "  ")
	if err != nil {
		return err
	}
	_, err = stdout.Write(append(data, '\n'))
	return err
}

type frameInfo struct {
	Frame             int    `json:"frame"`
	Offset            int64  `json:"offset"`
	Bytes             int64  `json:"bytes"`
	Sample            uint64 `json:"sample"`
	BlockSize         uint32 `json:"block_size"`
	SampleRate        uint32 `json:"sample_rate"`
	Channels          uint32 `json:"channels"`
	ChannelAssignment string `json:"channel_assignment"`
	BitsPerSample     uint32 `json:"bits_per_sample"`
	VariableBlockSize bool   `json:"variable_block_size,omitempty"`
}

type errorInfo struct {
	Error  string `json:"error"`
	Offset int64  `json:"offset"`
}

// analyze writes one JSON line per frame and per stream error.
func analyze(in io.Reader, w io.Writer, log *slog.Logger) error {
	var (
		prev   int64
		frames int
		werr   error
	)
	emit := func(v any) error {
		line, err := sonic.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(append(line, '\n'))
		return err
	}

	dec := flac.NewDecoder()
	dec.SetConfiguration(flac.Config{Logger: log})
	cb := flac.ReaderCallbacks(in)
	cb.Write = func(f *flac.Frame) error {
		end, err := dec.DecodePosition()
		if err != nil {
			return err
		}
		h := f.Header
		info := frameInfo{
			Frame:             frames,
			Offset:            prev,
			Bytes:             end - prev,
			Sample:            h.SampleNumber,
			BlockSize:         h.BlockSize,
			SampleRate:        h.SampleRate,
			Channels:          h.Channels,
			ChannelAssignment: h.ChannelAssignment.String(),
			BitsPerSample:     h.BitsPerSample,
			VariableBlockSize: h.VariableBlockSize,
		}
		prev = end
		frames++
		return emit(info)
	}
	cb.Error = func(s flac.ErrorStatus) {
		pos, _ := dec.DecodePosition()
		log.Warn("stream error", "status", s.String(), "offset", pos)
		if err := emit(errorInfo{Error: s.String(), Offset: pos}); err != nil && werr == nil {
			werr = err
		}
	}
	if err := dec.Init(cb); err != nil {
		return err
	}
	if err := dec.ProcessUntilEndOfMetadata(); err != nil {
		return err
	}
	var err error
	if prev, err = dec.DecodePosition(); err != nil {
		return err
	}
	if err := dec.ProcessUntilEndOfStream(); err != nil {
		return err
	}
	if err := dec.Finish(); err != nil {
		return err
	}
	log.Debug("analyzed", "frames", frames)
	return werr
}
