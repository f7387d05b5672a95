package meta

import "github.com/llehouerou/go-flac/internal/bits"

// StreamInfo describes the whole stream. Zero frame sizes and a zero total
// mean unknown.
type StreamInfo struct {
	MinBlockSize  uint32
	MaxBlockSize  uint32
	MinFrameSize  uint32
	MaxFrameSize  uint32
	SampleRate    uint32
	Channels      uint32
	BitsPerSample uint32
	TotalSamples  uint64
	MD5           [16]byte
}

// Type implements Body.
func (*StreamInfo) Type() Type { return TypeStreamInfo }

// FixedBlockSize reports whether every frame but the last uses the same
// blocksize.
func (si *StreamInfo) FixedBlockSize() bool {
	return si.MinBlockSize == si.MaxBlockSize
}

// STREAMINFO layout:
//   - min/max blocksize: 16 bits each
//   - min/max framesize: 24 bits each
//   - sample rate: 20 bits
//   - channels - 1: 3 bits
//   - bits per sample - 1: 5 bits
//   - total samples: 36 bits
//   - MD5: 128 bits
func readStreamInfo(r *bits.Reader) (*StreamInfo, error) {
	si := &StreamInfo{}
	fields := []struct {
		dst *uint32
		n   uint
	}{
		{&si.MinBlockSize, 16},
		{&si.MaxBlockSize, 16},
		{&si.MinFrameSize, 24},
		{&si.MaxFrameSize, 24},
		{&si.SampleRate, 20},
		{&si.Channels, 3},
		{&si.BitsPerSample, 5},
	}
	for _, f := range fields {
		v, err := r.ReadBits(f.n)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	si.Channels++
	si.BitsPerSample++

	total, err := r.ReadBits64(36)
	if err != nil {
		return nil, err
	}
	si.TotalSamples = total
	if err := r.ReadBytes(si.MD5[:]); err != nil {
		return nil, err
	}
	return si, nil
}
