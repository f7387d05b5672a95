// internal/syntax/subframe.go
package syntax

import (
	"github.com/llehouerou/go-flac/internal/bits"
)

// SubframeType tags the live variant of a Subframe.
type SubframeType uint8

// Subframe types.
const (
	SubframeConstant SubframeType = iota
	SubframeVerbatim
	SubframeFixed
	SubframeLPC
)

var subframeTypeNames = [...]string{"CONSTANT", "VERBATIM", "FIXED", "LPC"}

func (t SubframeType) String() string {
	if int(t) < len(subframeTypeNames) {
		return subframeTypeNames[t]
	}
	return "UNKNOWN"
}

// Constant is a subframe holding one value for every sample.
type Constant struct {
	Value int64
}

// Verbatim is an uncompressed subframe. Exactly one of Data and Data64 is
// set; Data64 is used for 33-bit side channels.
type Verbatim struct {
	Data   []int32
	Data64 []int64
}

// Fixed is a subframe predicted with a fixed polynomial.
type Fixed struct {
	Order    int
	Warmup   [MaxFixedOrder]int64
	Entropy  EntropyCodingMethod
	Residual []int32
}

// LPC is a subframe predicted with quantized linear prediction.
type LPC struct {
	Order     int
	Precision uint // bits per coefficient
	Shift     int  // quantization level
	Coeffs    [MaxLPCOrder]int32
	Warmup    [MaxLPCOrder]int64
	Entropy   EntropyCodingMethod
	Residual  []int32
}

// Subframe is the coded payload of one channel. Type selects which of
// the variant fields is live.
type Subframe struct {
	Type       SubframeType
	WastedBits uint
	Constant   Constant
	Verbatim   Verbatim
	Fixed      Fixed
	LPC        LPC
}

// SubframeBuffers holds the destination storage for one channel.
type SubframeBuffers struct {
	Out      []int32 // samples, len == blocksize
	Out64    []int64 // samples of a 33-bit channel, len == blocksize
	Residual []int32 // len >= blocksize
	Rice     *PartitionedRiceContents
}

// ReadSubframe parses one subframe of blocksize samples at bps bits
// (including the extra side-channel bit). Verbatim samples are stored in
// buf.Out (or buf.Out64 when the depth after wasted bits is 33); predicted
// subframes leave their warm-up in sf and residual in buf.Residual.
//
// Subframe header (8 bits + optional unary):
//   - zero padding: 1 bit
//   - type: 6 bits (000000 constant, 000001 verbatim, 001xxx fixed,
//     1xxxxx LPC)
//   - wasted bits flag: 1 bit, then unary count - 1
func ReadSubframe(r *bits.Reader, sf *Subframe, blocksize int, bps uint, buf *SubframeBuffers) error {
	x, err := r.ReadBits(8)
	if err != nil {
		return err
	}
	wasted := x&1 != 0
	x &= 0xFE

	sf.WastedBits = 0
	if wasted {
		u, err := r.ReadUnary()
		if err != nil {
			return err
		}
		sf.WastedBits = uint(u) + 1
		if sf.WastedBits >= bps {
			return ErrLostSync
		}
		bps -= sf.WastedBits
	}

	switch {
	case x&0x80 != 0:
		return ErrLostSync
	case x == 0:
		return readConstant(r, sf, bps)
	case x == 2:
		return readVerbatim(r, sf, blocksize, bps, buf)
	case x < 16:
		return ErrUnparseable
	case x <= 24:
		order := int(x>>1) & 7
		if blocksize <= order {
			return ErrLostSync
		}
		return readFixed(r, sf, blocksize, bps, order, buf)
	case x < 64:
		return ErrUnparseable
	default:
		order := int(x>>1)&31 + 1
		if blocksize <= order {
			return ErrLostSync
		}
		return readLPC(r, sf, blocksize, bps, order, buf)
	}
}

func readConstant(r *bits.Reader, sf *Subframe, bps uint) error {
	v, err := r.ReadSignedBits64(bps)
	if err != nil {
		return err
	}
	sf.Type = SubframeConstant
	sf.Constant.Value = v
	return nil
}

func readVerbatim(r *bits.Reader, sf *Subframe, blocksize int, bps uint, buf *SubframeBuffers) error {
	sf.Type = SubframeVerbatim
	sf.Verbatim = Verbatim{}
	if bps > 32 {
		data := buf.Out64[:blocksize]
		for i := range data {
			v, err := r.ReadSignedBits64(bps)
			if err != nil {
				return err
			}
			data[i] = v
		}
		sf.Verbatim.Data64 = data
		return nil
	}
	data := buf.Out[:blocksize]
	for i := range data {
		v, err := r.ReadSignedBits(bps)
		if err != nil {
			return err
		}
		data[i] = v
	}
	sf.Verbatim.Data = data
	return nil
}

func readWarmup(r *bits.Reader, warmup []int64, bps uint) error {
	for i := range warmup {
		v, err := r.ReadSignedBits64(bps)
		if err != nil {
			return err
		}
		warmup[i] = v
	}
	return nil
}

func readFixed(r *bits.Reader, sf *Subframe, blocksize int, bps uint, order int, buf *SubframeBuffers) error {
	sf.Type = SubframeFixed
	f := &sf.Fixed
	f.Order = order
	if err := readWarmup(r, f.Warmup[:order], bps); err != nil {
		return err
	}
	if err := readEntropyMethod(r, &f.Entropy, blocksize, order, buf.Rice); err != nil {
		return err
	}
	f.Residual = buf.Residual[:blocksize-order]
	return ReadResidual(r, &f.Entropy, blocksize, order, f.Residual)
}

func readLPC(r *bits.Reader, sf *Subframe, blocksize int, bps uint, order int, buf *SubframeBuffers) error {
	sf.Type = SubframeLPC
	l := &sf.LPC
	l.Order = order
	if err := readWarmup(r, l.Warmup[:order], bps); err != nil {
		return err
	}

	p, err := r.ReadBits(SubframeLPCPrecisionLen)
	if err != nil {
		return err
	}
	if p == 1<<SubframeLPCPrecisionLen-1 {
		return ErrLostSync
	}
	l.Precision = uint(p) + 1

	shift, err := r.ReadSignedBits(SubframeLPCShiftLen)
	if err != nil {
		return err
	}
	if shift < 0 {
		return ErrLostSync
	}
	l.Shift = int(shift)

	for i := 0; i < order; i++ {
		c, err := r.ReadSignedBits(l.Precision)
		if err != nil {
			return err
		}
		l.Coeffs[i] = c
	}

	if err := readEntropyMethod(r, &l.Entropy, blocksize, order, buf.Rice); err != nil {
		return err
	}
	l.Residual = buf.Residual[:blocksize-order]
	return ReadResidual(r, &l.Entropy, blocksize, order, l.Residual)
}
