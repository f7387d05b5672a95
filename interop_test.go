package flac

import (
	"bytes"
	"errors"
	"io"
	"testing"

	mewflac "github.com/mewkiz/flac"
)

// TestInterop_MewkizDecode checks encoder output against an independent
// decoder.
func TestInterop_MewkizDecode(t *testing.T) {
	tests := []struct {
		name     string
		channels int
		bps      uint32
		stereo   StereoMode
	}{
		{"mono 8-bit", 1, 8, StereoSearch},
		{"stereo 16-bit", 2, 16, StereoSearch},
		{"stereo 16-bit mid-side", 2, 16, StereoMidSide},
		{"stereo 24-bit", 2, 24, StereoSearch},
		{"5.1 16-bit", 6, 16, StereoSearch},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const n = 10000
			samples := testSignal(n, tt.channels, uint(tt.bps), uint32(50+i))
			data := encodeStream(t, EncoderConfig{
				SampleRate:    44100,
				Channels:      uint32(tt.channels),
				BitsPerSample: tt.bps,
				Stereo:        tt.stereo,
				SeekPoints:    3,
				Tags:          []string{"TITLE=interop"},
			}, samples)

			stream, err := mewflac.New(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("mewkiz/flac.New: %v", err)
			}
			defer stream.Close()

			if got := stream.Info.NSamples; got != n {
				t.Errorf("NSamples = %d, want %d", got, n)
			}
			if got := int(stream.Info.NChannels); got != tt.channels {
				t.Errorf("NChannels = %d, want %d", got, tt.channels)
			}
			if got := uint32(stream.Info.BitsPerSample); got != tt.bps {
				t.Errorf("BitsPerSample = %d, want %d", got, tt.bps)
			}

			got := make([][]int32, tt.channels)
			for {
				f, err := stream.ParseNext()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					t.Fatalf("ParseNext: %v", err)
				}
				for c, sf := range f.Subframes {
					got[c] = append(got[c], sf.Samples...)
				}
			}
			equalSamples(t, got, samples)
		})
	}
}
