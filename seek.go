package flac

import (
	"errors"
	"fmt"
)

var (
	errBoundsInverted = errors.New("search bounds inverted")
	errCorruptSeek    = errors.New("frame before lower bound")
	errBackwardMiss   = errors.New("no frame at lower bound")
)

// SeekAbsolute positions the decoder on sample and delivers the block
// holding it, trimmed to start at sample, through the write callback.
// MD5 checking is turned off.
//
// The search bisects the byte range of the frames, narrowed by the
// current position and by the seek table when there is one. A failed
// search leaves the decoder in StateSeekError; Flush or Reset recover it.
func (d *Decoder) SeekAbsolute(sample uint64) error {
	if d.state == StateUninitialized {
		return ErrNotInitialized
	}
	if d.cb.Seek == nil || d.cb.Tell == nil || d.cb.Length == nil {
		return ErrSeekUnsupported
	}
	if err := d.ProcessUntilEndOfMetadata(); err != nil {
		return err
	}
	if d.state > StateEndOfStream {
		return d.stateError()
	}
	if total := d.TotalSamples(); total > 0 && sample >= total {
		return ErrSeekOutOfRange
	}
	length, err := d.cb.Length()
	if err != nil {
		d.state = StateSeekError
		return fmt.Errorf("%w: length: %w", ErrSeekFailed, err)
	}

	d.md5Checking = false
	d.seeking = true
	d.target = sample
	err = d.bisect(length, sample)
	d.seeking = false
	if err != nil {
		d.state = StateSeekError
		d.log.Debug("seek failed", "sample", sample, "err", err)
		if errors.Is(err, ErrSeekFailed) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrSeekFailed, err)
	}
	return nil
}

// approxFrameBytes guesses the coded size of a frame.
func (d *Decoder) approxFrameBytes() int64 {
	si := &d.streamInfo
	channels, bps := int64(d.Channels()), int64(d.BitsPerSample())
	switch {
	case si.MaxFrameSize > 0:
		return int64(si.MaxFrameSize+si.MinFrameSize)/2 + 1
	case si.MinBlockSize == si.MaxBlockSize && si.MinBlockSize > 0:
		return int64(si.MinBlockSize)*channels*bps/8 + 64
	}
	return 4096*channels*bps/8 + 64
}

// bisect runs the seek probes. Byte bounds [lower, upper) hold the start
// of the frame containing target; lowerSample is the first sample of the
// frame at lower and upperSample the first sample of the frame at upper.
func (d *Decoder) bisect(length int64, target uint64) error {
	total := d.TotalSamples()
	lower, lowerSample := d.firstFrameOffset, uint64(0)
	upper, upperSample := length, total
	upperKnown := total > 0
	if !upperKnown {
		upperSample = target + 1
	}

	if d.hasLast && d.samplesDecoded > 0 && d.state == StateSearchForFrameSync && d.lookahead < 0 {
		pos := d.position()
		if target < d.samplesDecoded {
			upper, upperSample, upperKnown = pos, d.samplesDecoded, true
		} else {
			lower, lowerSample = pos, d.samplesDecoded
		}
	}

	if d.seekTable != nil {
		lo, loSample, hi, hiSample := lower, lowerSample, upper, upperSample
		hiKnown := upperKnown
		points := d.seekTable.Points
		for i := len(points) - 1; i >= 0; i-- {
			p := points[i]
			if d.validPoint(p) && p.SampleNumber <= target {
				if off := d.firstFrameOffset + int64(p.StreamOffset); p.SampleNumber >= loSample {
					lo, loSample = off, p.SampleNumber
				}
				break
			}
		}
		for _, p := range points {
			if d.validPoint(p) && p.SampleNumber > target {
				if off := d.firstFrameOffset + int64(p.StreamOffset); !hiKnown || p.SampleNumber <= hiSample {
					hi, hiSample, hiKnown = off, p.SampleNumber, true
				}
				break
			}
		}
		// An unsorted table can invert the bounds; ignore it then.
		if hi >= lo {
			lower, lowerSample, upper, upperSample, upperKnown = lo, loSample, hi, hiSample, hiKnown
		}
	}
	if upperSample == lowerSample {
		upperSample++
	}

	backoff := d.approxFrameBytes()
	misses := 0
	for probe := 0; ; probe++ {
		if lowerSample >= upperSample || lower >= upper {
			return errBoundsInverted
		}
		var pos int64
		if probe == 0 && upperKnown {
			frac := float64(target-lowerSample) / float64(upperSample-lowerSample)
			pos = lower + int64(frac*float64(upper-lower)) - backoff
		} else {
			pos = lower + (upper-lower)/2
			if misses > 0 {
				pos -= backoff
			}
		}
		pos = max(lower, min(pos, upper-1))

		d.log.Debug("seek probe", "target", target, "pos", pos, "lower", lower, "upper", upper)
		if err := d.probeAt(pos); err != nil {
			return err
		}
		if !d.seeking {
			return nil
		}

		if !d.gotProbe {
			// No frame starts at or after pos.
			if pos == lower {
				return errBackwardMiss
			}
			upper = pos
			continue
		}
		h := d.probe
		if h.SampleNumber < lowerSample {
			return errCorruptSeek
		}
		if upperKnown && h.SampleNumber >= upperSample {
			// Landed on the frame at upper: back off further.
			if pos == lower {
				return errBackwardMiss
			}
			if misses > 0 {
				backoff *= 2
			}
			misses++
			continue
		}
		misses = 0
		end := d.position()
		if target < h.SampleNumber {
			upper, upperSample, upperKnown = d.probeStart, h.SampleNumber, true
		} else {
			lower, lowerSample = end, h.SampleNumber+uint64(h.BlockSize)
		}
		backoff = 2*(end-pos)/3 + 16
	}
}

// validPoint reports whether a seek point may bound the search.
func (d *Decoder) validPoint(p SeekPoint) bool {
	if p.IsPlaceholder() || p.FrameSamples == 0 {
		return false
	}
	total := d.TotalSamples()
	return total == 0 || p.SampleNumber < total
}

// probeAt decodes the first frame found at or after pos.
func (d *Decoder) probeAt(pos int64) error {
	if err := d.cb.Seek(pos); err != nil {
		return fmt.Errorf("%w: %w", ErrSeekFailed, err)
	}
	d.offset = pos
	d.flush()
	d.seekErrors = 0
	d.gotProbe = false
	if err := d.ProcessSingle(); err != nil {
		return err
	}
	if d.state > StateEndOfStream {
		return d.stateError()
	}
	return nil
}
