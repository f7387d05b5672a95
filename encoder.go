package flac

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/llehouerou/go-flac/internal/encode"
	"github.com/llehouerou/go-flac/internal/meta"
	"github.com/llehouerou/go-flac/internal/output"
	"github.com/llehouerou/go-flac/internal/predict"
	"github.com/llehouerou/go-flac/internal/syntax"
)

// StereoMode selects how the encoder codes two-channel streams.
type StereoMode int

// Stereo modes.
const (
	// StereoSearch codes each block with whichever of independent,
	// left-side, right-side and mid-side is smallest.
	StereoSearch StereoMode = iota
	StereoIndependent
	StereoMidSide
)

// Encoder defaults.
const (
	DefaultBlockSize         = 4096
	DefaultMaxLPCOrder       = 8
	DefaultMaxPartitionOrder = 6
	DefaultVendor            = "go-flac"
)

// EncoderConfig describes the stream to encode and the effort spent on
// it. Zero values select the defaults.
type EncoderConfig struct {
	SampleRate    uint32
	Channels      uint32
	BitsPerSample uint32
	BlockSize     uint32 // 16-65535, default 4096

	// TotalSamples is written to STREAMINFO up front. On a seekable
	// output Close replaces it with the actual count.
	TotalSamples uint64

	MaxLPCOrder       int  // default 8, negative disables LPC
	QLPCoeffPrecision uint // 0 derives it from the blocksize
	MaxPartitionOrder uint // default 6
	ExhaustiveLPC     bool // try every LPC order up to MaxLPCOrder
	Stereo            StereoMode

	// SeekPoints reserves a seek table of that many points. They are
	// filled in by Close when the output is an io.WriteSeeker and stay
	// placeholders otherwise.
	SeekPoints int

	Vendor  string   // Vorbis comment vendor, default "go-flac"
	Tags    []string // NAME=value Vorbis comments
	Padding uint32   // size of a PADDING block, 0 for none

	// Verify decodes every frame as it is written and compares it with
	// the input.
	Verify bool

	Logger *slog.Logger
}

func (c *EncoderConfig) setDefaults() {
	if c.BlockSize == 0 {
		c.BlockSize = DefaultBlockSize
	}
	if c.MaxLPCOrder == 0 {
		c.MaxLPCOrder = DefaultMaxLPCOrder
	}
	if c.MaxPartitionOrder == 0 {
		c.MaxPartitionOrder = DefaultMaxPartitionOrder
	}
	if c.Vendor == "" {
		c.Vendor = DefaultVendor
	}
}

func (c *EncoderConfig) validate() error {
	switch {
	case c.Channels < 1 || c.Channels > syntax.MaxChannels:
		return fmt.Errorf("%w: %d channels", ErrInvalidEncoderConfig, c.Channels)
	case c.BitsPerSample < 4 || c.BitsPerSample > syntax.MaxBitsPerSample:
		return fmt.Errorf("%w: %d bits per sample", ErrInvalidEncoderConfig, c.BitsPerSample)
	case c.SampleRate < 1 || c.SampleRate > 1<<20-1:
		return fmt.Errorf("%w: sample rate %d", ErrInvalidEncoderConfig, c.SampleRate)
	case c.BlockSize < 16 || c.BlockSize > syntax.MaxBlockSize:
		return fmt.Errorf("%w: blocksize %d", ErrInvalidEncoderConfig, c.BlockSize)
	case c.SeekPoints < 0:
		return fmt.Errorf("%w: %d seek points", ErrInvalidEncoderConfig, c.SeekPoints)
	case c.TotalSamples >= 1<<36:
		return fmt.Errorf("%w: %d total samples", ErrInvalidEncoderConfig, c.TotalSamples)
	}
	return nil
}

// VerifyError reports that a frame read back by the verifying decoder
// differs from what was encoded.
type VerifyError struct {
	Sample  uint64 // absolute sample number of the mismatch
	Channel int
	Want    int32
	Got     int32

	// Err is set when the decoder failed instead of returning samples.
	Err error
}

func (e *VerifyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("flac: verify: block at sample %d: %v", e.Sample, e.Err)
	}
	return fmt.Sprintf("flac: verify: sample %d channel %d = %d, want %d", e.Sample, e.Channel, e.Got, e.Want)
}

func (e *VerifyError) Unwrap() error {
	return e.Err
}

type frameIndex struct {
	sample  uint64
	offset  int64
	samples uint32
}

// Encoder writes a FLAC stream. It is not safe for concurrent use.
type Encoder struct {
	cfg EncoderConfig
	w   io.Writer
	log *slog.Logger
	enc *encode.Encoder

	chans     []*encode.Channel
	mid, side encode.Channel
	pending   [][]int32 // one block of input per channel
	views     [][]int32
	n         int // samples buffered per channel
	data      [][]int64
	midData   []int64
	sideData  []int64
	frameBuf  []byte

	info        meta.StreamInfo
	md5         *output.MD5
	frameNumber uint32
	samples     uint64
	frames      []frameIndex
	written     int64
	start       int64 // offset of the stream in a seekable output, -1 otherwise
	firstFrame  int64

	verify *verifier
	err    error
	closed bool
}

// NewEncoder writes the stream marker and metadata for cfg to w and
// returns an Encoder ready for samples.
func NewEncoder(w io.Writer, cfg EncoderConfig) (*Encoder, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	e := &Encoder{
		cfg:   cfg,
		w:     w,
		log:   cfg.Logger,
		md5:   output.NewMD5(),
		start: -1,
	}
	if e.log == nil {
		e.log = slog.New(slog.DiscardHandler)
	}

	params := encode.DefaultParams
	params.MaxLPCOrder = max(cfg.MaxLPCOrder, 0)
	params.QLPCoeffPrecision = cfg.QLPCoeffPrecision
	params.MaxPartitionOrder = cfg.MaxPartitionOrder
	params.ExhaustiveLPC = cfg.ExhaustiveLPC
	e.enc = encode.New(params)

	nch := int(cfg.Channels)
	e.chans = make([]*encode.Channel, nch)
	e.pending = make([][]int32, nch)
	e.views = make([][]int32, nch)
	e.data = make([][]int64, nch)
	for c := range e.chans {
		e.chans[c] = &encode.Channel{}
		e.pending[c] = make([]int32, cfg.BlockSize)
		e.data[c] = make([]int64, cfg.BlockSize)
	}
	if nch == 2 {
		e.midData = make([]int64, cfg.BlockSize)
		e.sideData = make([]int64, cfg.BlockSize)
	}

	e.info = meta.StreamInfo{
		MinBlockSize:  cfg.BlockSize,
		MaxBlockSize:  cfg.BlockSize,
		SampleRate:    cfg.SampleRate,
		Channels:      cfg.Channels,
		BitsPerSample: cfg.BitsPerSample,
		TotalSamples:  cfg.TotalSamples,
	}
	if ws, ok := w.(io.WriteSeeker); ok {
		if pos, err := ws.Seek(0, io.SeekCurrent); err == nil {
			e.start = pos
		}
	}

	head, err := e.metadata(e.placeholderPoints())
	if err != nil {
		return nil, err
	}
	if cfg.Verify {
		if e.verify, err = newVerifier(e.log); err != nil {
			return nil, err
		}
		if err := e.verify.start(head); err != nil {
			return nil, err
		}
	}
	if err := e.write(head); err != nil {
		return nil, err
	}
	e.firstFrame = e.written
	return e, nil
}

// metadata serializes the stream marker and metadata blocks.
func (e *Encoder) metadata(points []meta.SeekPoint) ([]byte, error) {
	bodies := []meta.Body{&e.info}
	if e.cfg.SeekPoints > 0 {
		bodies = append(bodies, &meta.SeekTable{Points: points})
	}
	bodies = append(bodies, &meta.VorbisComment{Vendor: e.cfg.Vendor, Comments: e.cfg.Tags})
	if e.cfg.Padding > 0 {
		bodies = append(bodies, &meta.Padding{Length: e.cfg.Padding})
	}

	out := append([]byte(nil), streamMarker[:]...)
	for i, body := range bodies {
		b, err := meta.Marshal(body, i == len(bodies)-1)
		if err != nil {
			return nil, fmt.Errorf("flac: %s block: %w", body.Type(), err)
		}
		out = append(out, b...)
	}
	return out, nil
}

func (e *Encoder) placeholderPoints() []meta.SeekPoint {
	points := make([]meta.SeekPoint, e.cfg.SeekPoints)
	for i := range points {
		points[i].SampleNumber = meta.PlaceholderSample
	}
	return points
}

// seekPoints spreads the seek table evenly over the frames written.
func (e *Encoder) seekPoints() []meta.SeekPoint {
	n := e.cfg.SeekPoints
	points := make([]meta.SeekPoint, 0, n)
	j := 0
	for k := 0; k < n && len(e.frames) > 0; k++ {
		target := uint64(k) * e.samples / uint64(n)
		for j+1 < len(e.frames) && e.frames[j+1].sample <= target {
			j++
		}
		f := e.frames[j]
		if len(points) > 0 && points[len(points)-1].SampleNumber == f.sample {
			continue
		}
		points = append(points, meta.SeekPoint{
			SampleNumber: f.sample,
			StreamOffset: uint64(f.offset - e.firstFrame),
			FrameSamples: f.samples,
		})
	}
	for len(points) < n {
		points = append(points, meta.SeekPoint{SampleNumber: meta.PlaceholderSample})
	}
	return points
}

func (e *Encoder) write(p []byte) error {
	n, err := e.w.Write(p)
	e.written += int64(n)
	if err != nil {
		e.err = fmt.Errorf("flac: write: %w", err)
		return e.err
	}
	return nil
}

// Write encodes samples, one slice per channel, all of the same length.
// Input is buffered into blocks; Close flushes the last partial one.
func (e *Encoder) Write(samples [][]int32) error {
	if err := e.usable(); err != nil {
		return err
	}
	if len(samples) != len(e.pending) {
		return ErrChannelMismatch
	}
	n := len(samples[0])
	for _, ch := range samples[1:] {
		if len(ch) != n {
			return ErrChannelMismatch
		}
	}
	for i := 0; i < n; {
		k := min(n-i, len(e.pending[0])-e.n)
		for c, ch := range samples {
			copy(e.pending[c][e.n:], ch[i:i+k])
		}
		e.n += k
		i += k
		if e.n == len(e.pending[0]) {
			if err := e.encodeBlock(); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteInterleaved encodes interleaved samples, as found in PCM buffers.
func (e *Encoder) WriteInterleaved(samples []int) error {
	if err := e.usable(); err != nil {
		return err
	}
	nch := len(e.pending)
	if len(samples)%nch != 0 {
		return ErrChannelMismatch
	}
	for len(samples) > 0 {
		k := min(len(samples)/nch, len(e.pending[0])-e.n)
		for c := range e.views {
			e.views[c] = e.pending[c][e.n : e.n+k]
		}
		output.Deinterleave(e.views, samples[:k*nch])
		samples = samples[k*nch:]
		e.n += k
		if e.n == len(e.pending[0]) {
			if err := e.encodeBlock(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Encoder) usable() error {
	if e.closed {
		return ErrEncoderClosed
	}
	return e.err
}

// encodeBlock codes and writes the buffered block.
func (e *Encoder) encodeBlock() error {
	n := e.n
	bps := uint(e.cfg.BitsPerSample)
	lo, hi := int64(-1)<<(bps-1), int64(1)<<(bps-1)-1

	block := e.views
	for c := range block {
		block[c] = e.pending[c][:n]
		data := e.data[c][:n]
		for i, v := range block[c] {
			if int64(v) < lo || int64(v) > hi {
				e.err = fmt.Errorf("%w: %d at sample %d", ErrSampleRange, v, e.samples+uint64(i))
				return e.err
			}
			data[i] = int64(v)
		}
		e.enc.Encode(e.chans[c], data, bps)
	}

	h := syntax.FrameHeader{
		BlockSize:         uint32(n),
		SampleRate:        e.cfg.SampleRate,
		Channels:          e.cfg.Channels,
		ChannelAssignment: syntax.ChannelIndependent,
		BitsPerSample:     e.cfg.BitsPerSample,
		NumberType:        syntax.NumberFrame,
		FrameNumber:       e.frameNumber,
	}
	coded := e.chans
	if len(e.chans) == 2 && e.cfg.Stereo != StereoIndependent {
		h.ChannelAssignment, coded = e.stereo(n, bps)
	}

	frame, err := encode.AppendFrame(e.frameBuf[:0], &h, coded)
	if err != nil {
		e.err = fmt.Errorf("flac: frame %d: %w", e.frameNumber, err)
		return e.err
	}
	e.frameBuf = frame

	if e.verify != nil {
		if err := e.verify.check(frame, block, e.samples); err != nil {
			e.err = err
			return err
		}
	}
	e.frames = append(e.frames, frameIndex{sample: e.samples, offset: e.written, samples: uint32(n)})
	if err := e.write(frame); err != nil {
		return err
	}
	size := uint32(len(frame))
	if e.info.MinFrameSize == 0 || size < e.info.MinFrameSize {
		e.info.MinFrameSize = size
	}
	e.info.MaxFrameSize = max(e.info.MaxFrameSize, size)
	e.md5.Write(block, bps)

	e.frameNumber++
	e.samples += uint64(n)
	e.n = 0
	return nil
}

// stereo codes mid and side and picks the cheapest channel assignment.
func (e *Encoder) stereo(n int, bps uint) (syntax.ChannelAssignment, []*encode.Channel) {
	mid, side := e.midData[:n], e.sideData[:n]
	predict.Correlate(e.data[0][:n], e.data[1][:n], mid, side)
	e.enc.Encode(&e.mid, mid, bps)
	e.enc.Encode(&e.side, side, bps+1)

	left, right := e.chans[0], e.chans[1]
	if e.cfg.Stereo == StereoMidSide {
		return syntax.ChannelMidSide, []*encode.Channel{&e.mid, &e.side}
	}
	options := []struct {
		a     syntax.ChannelAssignment
		chans []*encode.Channel
	}{
		{syntax.ChannelIndependent, []*encode.Channel{left, right}},
		{syntax.ChannelLeftSide, []*encode.Channel{left, &e.side}},
		{syntax.ChannelRightSide, []*encode.Channel{&e.side, right}},
		{syntax.ChannelMidSide, []*encode.Channel{&e.mid, &e.side}},
	}
	best := 0
	bestBits := options[0].chans[0].Bits + options[0].chans[1].Bits
	for i, o := range options[1:] {
		if b := o.chans[0].Bits + o.chans[1].Bits; b < bestBits {
			best, bestBits = i+1, b
		}
	}
	return options[best].a, options[best].chans
}

// Samples returns the samples per channel encoded so far.
func (e *Encoder) Samples() uint64 {
	return e.samples
}

// Close flushes the last block and, when the output is an io.WriteSeeker,
// rewrites STREAMINFO and the seek table with the final values. It does
// not close the underlying writer.
func (e *Encoder) Close() error {
	if e.closed {
		return ErrEncoderClosed
	}
	e.closed = true
	if e.err != nil {
		return e.err
	}
	if e.n > 0 {
		if err := e.encodeBlock(); err != nil {
			return err
		}
	}
	e.info.TotalSamples = e.samples
	e.info.MD5 = e.md5.Sum()
	e.log.Debug("encoded stream",
		"samples", e.samples, "frames", len(e.frames), "bytes", e.written,
		"md5", fmt.Sprintf("%x", e.info.MD5))

	if e.verify != nil {
		if err := e.verify.finish(); err != nil {
			return err
		}
	}

	ws, ok := e.w.(io.WriteSeeker)
	if !ok || e.start < 0 {
		if e.cfg.TotalSamples != 0 && e.cfg.TotalSamples != e.samples {
			e.log.Warn("STREAMINFO total samples left stale", "declared", e.cfg.TotalSamples, "encoded", e.samples)
		}
		return nil
	}
	return e.patch(ws)
}

// patch rewrites the metadata in place and returns to the end.
func (e *Encoder) patch(ws io.WriteSeeker) error {
	head, err := e.metadata(e.seekPoints())
	if err != nil {
		return err
	}
	if int64(len(head)) != e.firstFrame {
		return fmt.Errorf("flac: metadata size changed from %d to %d bytes", e.firstFrame, len(head))
	}
	if _, err := ws.Seek(e.start, io.SeekStart); err != nil {
		return fmt.Errorf("flac: seek to metadata: %w", err)
	}
	if _, err := ws.Write(head); err != nil {
		return fmt.Errorf("flac: rewrite metadata: %w", err)
	}
	if _, err := ws.Seek(e.start+e.written, io.SeekStart); err != nil {
		return fmt.Errorf("flac: seek to end: %w", err)
	}
	return nil
}
