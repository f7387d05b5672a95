package main

import (
	"bufio"
	"errors"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/llehouerou/go-flac"
	"github.com/llehouerou/go-flac/internal/config"
	"github.com/llehouerou/go-flac/internal/output"
)

// wavPCM is the WAVE_FORMAT_PCM format tag.
const wavPCM = 1

// sink converts decoded blocks to the output depth and layout and writes
// them as WAV or as raw signed little-endian PCM.
type sink struct {
	depth   uint
	downmix bool

	wav *wav.Encoder
	buf *audio.IntBuffer

	raw   *bufio.Writer
	bytes []byte

	converted [][]int32
	stereo    [2][]int32
}

func newSink(w io.Writer, cfg config.DecodeConfig, si flac.StreamInfo) (*sink, error) {
	s := &sink{depth: cfg.BitDepth, downmix: cfg.Downmix && si.Channels != 2}
	if s.depth == 0 {
		s.depth = uint(output.BytesPerSample(uint(si.BitsPerSample))) * 8
	}
	channels := int(si.Channels)
	if s.downmix {
		channels = 2
	}

	if cfg.Format == "raw" {
		s.raw = bufio.NewWriter(w)
		return s, nil
	}
	ws, ok := w.(io.WriteSeeker)
	if !ok {
		return nil, errors.New("WAV output needs a seekable file")
	}
	if s.depth%8 != 0 {
		return nil, errors.New("WAV output needs a whole number of bytes per sample")
	}
	s.wav = wav.NewEncoder(ws, int(si.SampleRate), int(s.depth), channels, wavPCM)
	s.buf = &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: int(si.SampleRate)},
		SourceBitDepth: int(s.depth),
	}
	return s, nil
}

// write outputs one block of bps-bit samples.
func (s *sink) write(samples [][]int32, bps uint32) error {
	if s.downmix {
		s.stereo = output.DownmixStereo(s.stereo, samples, uint(bps))
		samples = s.stereo[:]
	}
	if uint(bps) != s.depth {
		samples = s.convert(samples, uint(bps))
	}

	if s.raw != nil {
		s.bytes = output.AppendInterleavedLE(s.bytes[:0], samples, s.depth)
		_, err := s.raw.Write(s.bytes)
		return err
	}
	s.buf.Data = output.Interleave(s.buf.Data[:0], samples)
	// 8-bit WAV is unsigned.
	if s.depth == 8 {
		for i, v := range s.buf.Data {
			s.buf.Data[i] = v + 128
		}
	}
	return s.wav.Write(s.buf)
}

func (s *sink) convert(samples [][]int32, from uint) [][]int32 {
	if len(s.converted) < len(samples) {
		s.converted = make([][]int32, len(samples))
	}
	out := s.converted[:len(samples)]
	for c, ch := range samples {
		if cap(out[c]) < len(ch) {
			out[c] = make([]int32, len(ch))
		}
		out[c] = out[c][:len(ch)]
		for i, v := range ch {
			out[c][i] = output.ConvertDepth(v, from, s.depth)
		}
	}
	return out
}

func (s *sink) close() error {
	if s.raw != nil {
		return s.raw.Flush()
	}
	return s.wav.Close()
}
