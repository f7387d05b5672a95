package flac

import (
	"errors"
	"fmt"
	"io"

	"github.com/llehouerou/go-flac/internal/bits"
	"github.com/llehouerou/go-flac/internal/meta"
	"github.com/llehouerou/go-flac/internal/predict"
	"github.com/llehouerou/go-flac/internal/syntax"
)

// streamMarker opens every native FLAC stream.
var streamMarker = [4]byte{'f', 'L', 'a', 'C'}

var id3Marker = [3]byte{'I', 'D', '3'}

// Silence fill limits.
const (
	maxFillSeconds = 5
	maxFillBlocks  = 50
)

// ProcessSingle decodes one metadata block or one frame, whichever comes
// next. At the end of the stream it returns nil with the state set to
// StateEndOfStream.
func (d *Decoder) ProcessSingle() error {
	for {
		if d.state == StateEndOfStream {
			return nil
		}
		done, err := d.step(true)
		if err != nil || done {
			return err
		}
	}
}

// ProcessUntilEndOfMetadata decodes every metadata block and stops at the
// first frame sync search.
func (d *Decoder) ProcessUntilEndOfMetadata() error {
	for d.state == StateSearchForMetadata || d.state == StateReadMetadata {
		if _, err := d.step(true); err != nil {
			return err
		}
	}
	if d.state > StateEndOfStream {
		return d.stateError()
	}
	return nil
}

// ProcessUntilEndOfStream decodes everything that is left.
func (d *Decoder) ProcessUntilEndOfStream() error {
	for d.state != StateEndOfStream {
		if _, err := d.step(true); err != nil {
			return err
		}
	}
	return nil
}

// SkipSingleFrame parses the next frame and checks its CRC without
// reconstructing or delivering it. It is only allowed once the metadata
// has been read. MD5 checking is turned off.
func (d *Decoder) SkipSingleFrame() error {
	switch d.state {
	case StateSearchForFrameSync, StateReadFrame:
	case StateEndOfStream:
		return nil
	default:
		if d.state > StateEndOfStream {
			return d.stateError()
		}
		return ErrInvalidState
	}
	d.md5Checking = false
	for d.state != StateEndOfStream {
		done, err := d.step(false)
		if err != nil || done {
			return err
		}
	}
	return nil
}

// step advances the state machine once. done reports that a metadata
// block or a frame was handled.
func (d *Decoder) step(decode bool) (done bool, err error) {
	switch d.state {
	case StateSearchForMetadata:
		return false, d.findMetadata()
	case StateReadMetadata:
		return true, d.readMetadata()
	case StateSearchForFrameSync:
		return false, d.frameSync()
	case StateReadFrame:
		return d.readFrame(decode)
	case StateEndOfStream:
		return true, nil
	}
	return false, d.stateError()
}

// readByte returns the next input byte, honoring the lookahead cache.
func (d *Decoder) readByte() (byte, error) {
	if d.lookahead >= 0 {
		x := byte(d.lookahead)
		d.lookahead = -1
		return x, nil
	}
	x, err := d.r.ReadBits(8)
	return byte(x), err
}

// findMetadata scans for the stream marker, skipping an ID3v2 tag. A
// frame sync code found first starts frame decoding directly.
func (d *Decoder) findMetadata() error {
	first := true
	for i, id := 0, 0; i < len(streamMarker); {
		x, err := d.readByte()
		if err != nil {
			return d.fatal(err)
		}
		if x == streamMarker[i] {
			first = true
			i++
			id = 0
			continue
		}
		if x == id3Marker[id] {
			id++
			i = 0
			if id == len(id3Marker) {
				if err := meta.SkipID3v2(d.r); err != nil {
					return d.fatal(err)
				}
				d.log.Debug("skipped ID3v2 tag", "offset", d.position())
				id = 0
			}
			continue
		}
		id = 0
		if x == 0xFF {
			y, err := d.readByte()
			if err != nil {
				return d.fatal(err)
			}
			if y == 0xFF {
				d.lookahead = int(y)
			} else if y>>1 == 0x7C {
				d.gotSync(y)
				d.firstFrameOffset = d.syncOffset - 2
				d.md5Checking = false
				return nil
			}
		}
		i = 0
		if first {
			d.report(ErrorLostSync)
			first = false
		}
	}
	d.state = StateReadMetadata
	return nil
}

func (d *Decoder) readMetadata() error {
	h, err := meta.ReadHeader(d.r)
	if err != nil {
		return d.metadataError(err)
	}

	keep := h.Type == meta.TypeStreamInfo || h.Type == meta.TypeSeekTable || d.respond[h.Type]
	if keep {
		body, err := meta.ReadBody(d.r, h)
		if err != nil {
			return d.metadataError(err)
		}
		switch b := body.(type) {
		case *meta.StreamInfo:
			d.streamInfo = *b
			d.hasStreamInfo = true
			if b.MD5 == [16]byte{} {
				d.md5Checking = false
			}
		case *meta.SeekTable:
			d.seekTable = b
		}
		if d.respond[h.Type] && d.cb.Metadata != nil {
			d.cb.Metadata(&meta.Block{Header: h, Body: body})
		}
	} else if err := meta.Skip(d.r, h); err != nil {
		return d.metadataError(err)
	}

	if h.IsLast {
		d.endMetadata()
	}
	return nil
}

func (d *Decoder) endMetadata() {
	d.firstFrameOffset = d.position()
	if !d.hasStreamInfo {
		d.md5Checking = false
	}
	d.state = StateSearchForFrameSync
}

// metadataError reports malformed metadata and moves on to the frames.
func (d *Decoder) metadataError(err error) error {
	if !errors.Is(err, meta.ErrBadMetadata) && !errors.Is(err, meta.ErrInvalidType) {
		return d.fatal(err)
	}
	d.log.Debug("bad metadata", "offset", d.position(), "err", err)
	d.report(ErrorBadMetadata)
	d.endMetadata()
	return nil
}

// frameSync searches byte by byte for a frame sync code.
func (d *Decoder) frameSync() error {
	if n := d.r.BitsLeftForByteAlignment(); n > 0 {
		if err := d.r.SkipBits(n); err != nil {
			return d.fatal(err)
		}
	}
	first := true
	for {
		x, err := d.readByte()
		if err != nil {
			return d.fatal(err)
		}
		if x == 0xFF {
			y, err := d.readByte()
			if err != nil {
				return d.fatal(err)
			}
			if y == 0xFF {
				d.lookahead = int(y)
			} else if y>>1 == 0x7C {
				d.gotSync(y)
				return nil
			}
		}
		if first {
			d.report(ErrorLostSync)
			first = false
		}
	}
}

// gotSync records a sync code whose second byte is y.
func (d *Decoder) gotSync(y byte) {
	d.warmup = [2]byte{0xFF, y}
	d.r.SetFramesyncLocation()
	d.syncOffset = d.position()
	d.state = StateReadFrame
}

func (d *Decoder) defaults() syntax.Defaults {
	si := &d.streamInfo
	return syntax.Defaults{
		Valid:         d.hasStreamInfo,
		SampleRate:    si.SampleRate,
		BitsPerSample: si.BitsPerSample,
		MinBlockSize:  si.MinBlockSize,
		MaxBlockSize:  si.MaxBlockSize,
	}
}

// readFrame decodes the frame whose sync code was just read. With decode
// unset the frame is parsed and checked but neither reconstructed nor
// delivered.
func (d *Decoder) readFrame(decode bool) (bool, error) {
	d.r.ResetCRC16(bits.CRC16(0, d.warmup[:]))

	h := &d.header
	lookahead, err := syntax.ReadFrameHeader(d.r, d.warmup, d.defaults(), h)
	if err != nil {
		if lookahead >= 0 {
			d.lookahead = lookahead
		}
		return false, d.streamError(err, false)
	}
	if h.NumberType == syntax.NumberFrame {
		h.SampleNumber = d.frameSample(h)
	}

	bs := int(h.BlockSize)
	d.grow(bs, int(h.Channels))
	side := h.ChannelAssignment.SideChannel()
	var side64 []int64
	for ch := 0; ch < int(h.Channels); ch++ {
		bps := uint(h.BitsPerSample)
		if ch == side {
			bps++
		}
		buf := syntax.SubframeBuffers{
			Out:      d.out[ch][:bs],
			Out64:    d.out64[:bs],
			Residual: d.residual[:bs],
			Rice:     &d.rice[ch],
		}
		sf := &d.subframes[ch]
		if err := syntax.ReadSubframe(d.r, sf, bs, bps, &buf); err != nil {
			return false, d.streamError(err, true)
		}
		if decode && predict.Restore(sf, bps, buf.Out, buf.Out64) {
			side64 = buf.Out64
		}
	}

	if n := d.r.BitsLeftForByteAlignment(); n > 0 {
		pad, err := d.r.ReadBits(n)
		if err != nil {
			return false, d.fatal(err)
		}
		if pad != 0 {
			return false, d.streamError(syntax.ErrLostSync, true)
		}
	}
	crc := d.r.CRC16()
	footer, err := d.r.ReadBits(syntax.FrameFooterCRCLen)
	if err != nil {
		return false, d.fatal(err)
	}
	if uint16(footer) != crc {
		d.log.Debug("frame CRC mismatch", "sample", h.SampleNumber, "offset", d.syncOffset-2)
		d.report(ErrorFrameCRCMismatch)
		d.resync()
		return false, nil
	}

	d.state = StateSearchForFrameSync
	if h.NumberType == syntax.NumberFrame && d.fixedBlockSize == 0 {
		d.fixedBlockSize = h.BlockSize
	}
	fh := frameHeader(h)
	if decode {
		samples := d.frame.Samples[:0]
		for ch := 0; ch < int(h.Channels); ch++ {
			samples = append(samples, d.out[ch][:bs])
		}
		d.frame.Samples = samples
		if h.Channels == 2 {
			predict.Decorrelate(h.ChannelAssignment, samples[0], samples[1], side64)
		}
		if !fits(samples, h.BitsPerSample) {
			d.report(ErrorOutOfBounds)
			return false, nil
		}
		if err := d.fillGap(fh); err != nil {
			return false, err
		}
		if err := d.deliver(fh, samples); err != nil {
			return false, err
		}
	}
	d.samplesDecoded = fh.SampleNumber + uint64(fh.BlockSize)
	return true, nil
}

// frameSample converts the frame number of a fixed-blocksize frame to its
// first sample number.
func (d *Decoder) frameSample(h *syntax.FrameHeader) uint64 {
	n := uint64(h.FrameNumber)
	si := &d.streamInfo
	switch {
	case d.hasStreamInfo && si.MinBlockSize == si.MaxBlockSize && si.MinBlockSize > 0:
		return n * uint64(si.MinBlockSize)
	case d.fixedBlockSize != 0:
		return n * uint64(d.fixedBlockSize)
	}
	// Without STREAMINFO only a frame's own blocksize is known; the last
	// frame of a stream may be shorter, so this is a guess for it.
	return n * uint64(h.BlockSize)
}

// grow sizes the per-channel buffers for a frame.
func (d *Decoder) grow(blocksize, channels int) {
	for ch := 0; ch < channels; ch++ {
		if cap(d.out[ch]) < blocksize {
			d.out[ch] = make([]int32, blocksize)
		}
		d.out[ch] = d.out[ch][:blocksize]
	}
	if cap(d.out64) < blocksize {
		d.out64 = make([]int64, blocksize)
		d.residual = make([]int32, blocksize)
	}
	d.out64 = d.out64[:blocksize]
	d.residual = d.residual[:blocksize]
}

// fits reports whether every sample fits in bps bits.
func fits(samples [][]int32, bps uint32) bool {
	if bps >= 32 {
		return true
	}
	lo, hi := int32(-1)<<(bps-1), int32(1)<<(bps-1)-1
	for _, ch := range samples {
		for _, v := range ch {
			if v < lo || v > hi {
				return false
			}
		}
	}
	return true
}

// fillGap delivers silence for samples missing between the previous frame
// and h. Gaps longer than a few seconds are only reported.
func (d *Decoder) fillGap(h FrameHeader) error {
	if d.seeking || !d.hasLast {
		return nil
	}
	prev := d.last
	end := prev.SampleNumber + uint64(prev.BlockSize)
	if h.SampleNumber <= end {
		return nil
	}
	gap := h.SampleNumber - end
	d.report(ErrorMissingFrame)
	if prev.Channels != h.Channels || prev.SampleRate != h.SampleRate ||
		prev.BitsPerSample != h.BitsPerSample || prev.BlockSize < 16 {
		return nil
	}
	limit := min(uint64(prev.SampleRate)*maxFillSeconds, uint64(prev.BlockSize)*maxFillBlocks)
	if gap > limit {
		d.log.Debug("gap too long to fill", "from", end, "samples", gap)
		return nil
	}
	d.log.Debug("filling gap with silence", "from", end, "samples", gap)

	if len(d.silence) < int(h.Channels) || len(d.silence[0]) < int(prev.BlockSize) {
		d.silence = make([][]int32, h.Channels)
		for i := range d.silence {
			d.silence[i] = make([]int32, prev.BlockSize)
		}
	}
	fill := prev
	fill.ChannelAssignment = ChannelIndependent
	fill.VariableBlockSize = true
	for fill.SampleNumber = end; fill.SampleNumber < h.SampleNumber; fill.SampleNumber += uint64(fill.BlockSize) {
		fill.BlockSize = uint32(min(uint64(prev.BlockSize), h.SampleNumber-fill.SampleNumber))
		if cap(d.silenceBlock) < int(h.Channels) {
			d.silenceBlock = make([][]int32, h.Channels)
		}
		samples := d.silenceBlock[:h.Channels]
		for i := range samples {
			samples[i] = d.silence[i][:fill.BlockSize]
		}
		if err := d.deliver(fill, samples); err != nil {
			return err
		}
	}
	return nil
}

// deliver hands a block to the client, or during a seek checks whether
// it holds the target sample.
func (d *Decoder) deliver(h FrameHeader, samples [][]int32) error {
	if d.seeking {
		d.probe = h
		d.probeStart = d.syncOffset - 2
		d.gotProbe = true
		next := h.SampleNumber + uint64(h.BlockSize)
		if d.target < h.SampleNumber || d.target >= next {
			return nil
		}
		d.seeking = false
		if delta := uint32(d.target - h.SampleNumber); delta > 0 {
			h.BlockSize -= delta
			h.SampleNumber += uint64(delta)
			for i := range samples {
				samples[i] = samples[i][delta:]
			}
		}
	}

	if d.md5Checking {
		d.md5.Write(samples, uint(h.BitsPerSample))
	}
	d.frame.Header = h
	d.frame.Samples = samples
	if err := d.cb.Write(&d.frame); err != nil {
		d.state = StateAborted
		return fmt.Errorf("%w: write: %w", ErrAborted, err)
	}
	d.last = h
	d.hasLast = true
	return nil
}

// report passes a stream error to the client. While seeking errors are
// only counted.
func (d *Decoder) report(s ErrorStatus) {
	if d.seeking {
		d.seekErrors++
		return
	}
	if d.cb.Error != nil {
		d.cb.Error(s)
	}
}

// streamError maps a frame parse error. Stream corruption is reported and
// decoding resumes at the sync search, backing up to just past the sync
// code when rewind is set. Anything else is fatal.
func (d *Decoder) streamError(err error, rewind bool) error {
	var status ErrorStatus
	switch {
	case errors.Is(err, syntax.ErrLostSync), errors.Is(err, bits.ErrRiceOverflow):
		status = ErrorLostSync
	case errors.Is(err, syntax.ErrBadHeader):
		status = ErrorBadHeader
	case errors.Is(err, syntax.ErrUnparseable):
		status = ErrorUnparseableStream
	default:
		return d.fatal(err)
	}
	d.report(status)
	if rewind {
		d.resync()
	} else {
		d.state = StateSearchForFrameSync
	}
	return nil
}

// resync returns to the sync search just past the last sync code, so a
// frame hiding inside a corrupt one is not lost.
func (d *Decoder) resync() {
	d.state = StateSearchForFrameSync
	d.lookahead = -1
	if d.r.RewindToAfterLastSeenFramesync() {
		d.log.Debug("rewound to last frame sync", "offset", d.syncOffset)
		return
	}
	if d.cb.Seek == nil {
		return
	}
	if err := d.cb.Seek(d.syncOffset); err != nil {
		d.log.Debug("seek to last frame sync failed", "offset", d.syncOffset, "err", err)
		return
	}
	d.r.Clear()
	d.offset = d.syncOffset
	d.eof = false
	d.log.Debug("seeked back to last frame sync", "offset", d.syncOffset)
}

// fatal ends decoding: cleanly at the end of input, as aborted otherwise.
func (d *Decoder) fatal(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		d.state = StateEndOfStream
		return nil
	}
	d.state = StateAborted
	if errors.Is(err, ErrAborted) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrAborted, err)
}
