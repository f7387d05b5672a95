package flac

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"
)

// memFile is an in-memory io.WriteSeeker.
type memFile struct {
	buf []byte
	pos int
}

func (m *memFile) Write(p []byte) (int, error) {
	if end := m.pos + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	copy(m.buf[m.pos:], p)
	m.pos += len(p)
	return len(p), nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += int64(m.pos)
	case io.SeekEnd:
		offset += int64(len(m.buf))
	}
	if offset < 0 {
		return 0, errors.New("memFile: negative offset")
	}
	m.pos = int(offset)
	return offset, nil
}

// testSignal returns n samples per channel of a noisy tone that uses
// about half the range of bps bits.
func testSignal(n, channels int, bps uint, seed uint32) [][]int32 {
	amp := float64(int64(1)<<(bps-1)) / 2
	noise := max(1, int64(amp/64))
	lo, hi := -int64(1)<<(bps-1), int64(1)<<(bps-1)-1
	out := make([][]int32, channels)
	x := seed
	for c := range out {
		out[c] = make([]int32, n)
		w := 0.01 * float64(c+1)
		for i := range out[c] {
			x = x*1664525 + 1013904223
			v := int64(amp*math.Sin(w*float64(i))) + int64(x>>8)%noise
			out[c][i] = int32(min(hi, max(lo, v)))
		}
	}
	return out
}

// encodeStream encodes samples into a seekable in-memory file.
func encodeStream(t *testing.T, cfg EncoderConfig, samples [][]int32) []byte {
	t.Helper()
	f := &memFile{}
	enc, err := NewEncoder(f, cfg)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	if err := enc.Write(samples); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return f.buf
}

// decoded collects everything a decoder delivers.
type decoded struct {
	dec     *Decoder
	samples [][]int32
	frames  []FrameHeader
	errs    []ErrorStatus
	blocks  []*MetadataBlock
}

func (d *decoded) count(s ErrorStatus) int {
	n := 0
	for _, e := range d.errs {
		if e == s {
			n++
		}
	}
	return n
}

// newDecoded initializes a decoder reading data.
func newDecoded(t *testing.T, data []byte, cfg Config) *decoded {
	t.Helper()
	return newDecodedFrom(t, ReaderCallbacks(bytes.NewReader(data)), cfg)
}

// newDecodedFrom initializes a decoder on input callbacks; the client
// callbacks are filled in.
func newDecodedFrom(t *testing.T, cb Callbacks, cfg Config) *decoded {
	t.Helper()
	out := &decoded{dec: NewDecoder()}
	out.dec.SetConfiguration(cfg)
	cb.Write = func(f *Frame) error {
		out.frames = append(out.frames, f.Header)
		for len(out.samples) < len(f.Samples) {
			out.samples = append(out.samples, nil)
		}
		for c, s := range f.Samples {
			out.samples[c] = append(out.samples[c], s...)
		}
		return nil
	}
	cb.Metadata = func(b *MetadataBlock) {
		out.blocks = append(out.blocks, b)
	}
	cb.Error = func(s ErrorStatus) {
		out.errs = append(out.errs, s)
	}
	if err := out.dec.Init(cb); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return out
}

// decodeStream decodes data to the end and returns the result and the
// error from Finish.
func decodeStream(t *testing.T, data []byte, cfg Config) (*decoded, error) {
	t.Helper()
	out := newDecoded(t, data, cfg)
	if err := out.dec.ProcessUntilEndOfStream(); err != nil {
		t.Fatalf("ProcessUntilEndOfStream: %v", err)
	}
	return out, out.dec.Finish()
}

func equalSamples(t *testing.T, got, want [][]int32) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("channels = %d, want %d", len(got), len(want))
	}
	for c := range want {
		if len(got[c]) != len(want[c]) {
			t.Fatalf("channel %d: %d samples, want %d", c, len(got[c]), len(want[c]))
		}
		for i := range want[c] {
			if got[c][i] != want[c][i] {
				t.Fatalf("channel %d sample %d = %d, want %d", c, i, got[c][i], want[c][i])
			}
		}
	}
}
