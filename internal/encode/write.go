package encode

import (
	"bytes"

	"github.com/icza/bitio"
	"github.com/llehouerou/go-flac/internal/bits"
	"github.com/llehouerou/go-flac/internal/syntax"
)

// syncCode is the 14-bit frame sync pattern.
const syncCode = 0x3FFE

// AppendFrame appends a complete frame to dst: header, one subframe per
// channel, zero padding to a byte boundary and the CRC-16 footer. The
// channels are in stream order, side channel included.
func AppendFrame(dst []byte, h *syntax.FrameHeader, chans []*Channel) ([]byte, error) {
	start := len(dst)
	buf := bytes.NewBuffer(dst)
	w := bitio.NewWriter(buf)

	writeFrameHeader(w, h)
	if w.TryError != nil {
		return dst, w.TryError
	}
	// The header is byte aligned, so all of it has reached buf.
	crc := bits.CRC8(0, buf.Bytes()[start:])
	w.TryWriteBits(uint64(crc), 8)

	side := h.ChannelAssignment.SideChannel()
	for i, ch := range chans {
		bps := uint(h.BitsPerSample)
		if i == side {
			bps++
		}
		WriteSubframe(w, &ch.Subframe, int(h.BlockSize), bps)
	}
	if w.TryError != nil {
		return dst, w.TryError
	}
	if err := w.Close(); err != nil {
		return dst, err
	}

	out := buf.Bytes()
	footer := bits.CRC16(0, out[start:])
	return append(out, byte(footer>>8), byte(footer)), nil
}

func writeFrameHeader(w *bitio.Writer, h *syntax.FrameHeader) {
	w.TryWriteBits(syncCode, syntax.SyncCodeLen)
	w.TryWriteBool(false)
	w.TryWriteBool(h.NumberType == syntax.NumberSample)

	bsCode, bsHint := syntax.BlockSizeCode(h.BlockSize)
	srCode, srHint := syntax.SampleRateCode(h.SampleRate)
	w.TryWriteBits(uint64(bsCode), 4)
	w.TryWriteBits(uint64(srCode), 4)

	var chCode uint64
	switch h.ChannelAssignment {
	case syntax.ChannelLeftSide:
		chCode = 8
	case syntax.ChannelRightSide:
		chCode = 9
	case syntax.ChannelMidSide:
		chCode = 10
	default:
		chCode = uint64(h.Channels - 1)
	}
	w.TryWriteBits(chCode, 4)
	w.TryWriteBits(uint64(syntax.SampleSizeCode(h.BitsPerSample)), 3)
	w.TryWriteBool(false)

	number := uint64(h.FrameNumber)
	if h.NumberType == syntax.NumberSample {
		number = h.SampleNumber
	}
	w.TryWrite(bits.AppendUTF8(nil, number))

	if bsHint > 0 {
		w.TryWriteBits(uint64(h.BlockSize-1), bsHint)
	}
	if srHint > 0 {
		v := h.SampleRate
		switch srCode {
		case 12:
			v /= 1000
		case 14:
			v /= 10
		}
		w.TryWriteBits(uint64(v), srHint)
	}
}

// WriteSubframe serializes sf. bps is the channel's sample width before
// wasted bits are removed.
func WriteSubframe(w *bitio.Writer, sf *syntax.Subframe, blocksize int, bps uint) {
	var typ uint64
	switch sf.Type {
	case syntax.SubframeVerbatim:
		typ = 0x01
	case syntax.SubframeFixed:
		typ = 0x08 | uint64(sf.Fixed.Order)
	case syntax.SubframeLPC:
		typ = 0x20 | uint64(sf.LPC.Order-1)
	}
	var wastedFlag uint64
	if sf.WastedBits > 0 {
		wastedFlag = 1
	}
	w.TryWriteBits(typ<<1|wastedFlag, 8)
	if sf.WastedBits > 0 {
		writeUnary(w, uint64(sf.WastedBits-1))
	}
	bps -= sf.WastedBits
	n := uint8(bps)

	switch sf.Type {
	case syntax.SubframeConstant:
		w.TryWriteBits(uint64(sf.Constant.Value), n)
	case syntax.SubframeVerbatim:
		for _, v := range sf.Verbatim.Data {
			w.TryWriteBits(uint64(v), n)
		}
		for _, v := range sf.Verbatim.Data64 {
			w.TryWriteBits(uint64(v), n)
		}
	case syntax.SubframeFixed:
		f := &sf.Fixed
		for _, v := range f.Warmup[:f.Order] {
			w.TryWriteBits(uint64(v), n)
		}
		writeResidual(w, &f.Entropy, f.Residual, blocksize, f.Order)
	case syntax.SubframeLPC:
		l := &sf.LPC
		for _, v := range l.Warmup[:l.Order] {
			w.TryWriteBits(uint64(v), n)
		}
		w.TryWriteBits(uint64(l.Precision-1), syntax.SubframeLPCPrecisionLen)
		w.TryWriteBits(uint64(l.Shift), syntax.SubframeLPCShiftLen)
		for _, c := range l.Coeffs[:l.Order] {
			w.TryWriteBits(uint64(c), uint8(l.Precision))
		}
		writeResidual(w, &l.Entropy, l.Residual, blocksize, l.Order)
	}
}

// writeResidual writes a partitioned Rice residual. Escape partitions are
// never produced.
func writeResidual(w *bitio.Writer, m *syntax.EntropyCodingMethod, res []int32, blocksize, order int) {
	w.TryWriteBits(uint64(m.Type), syntax.EntropyMethodTypeLen)
	w.TryWriteBits(uint64(m.PartitionOrder), syntax.RicePartitionOrderLen)
	plen := uint8(m.Type.ParameterLen())
	size := blocksize >> m.PartitionOrder
	start := 0
	for p := 0; p < 1<<m.PartitionOrder; p++ {
		n := size
		if p == 0 {
			n -= order
		}
		k := m.Contents.Parameters[p]
		w.TryWriteBits(uint64(k), plen)
		for _, v := range res[start : start+n] {
			u := uint64(uint32(v<<1) ^ uint32(v>>31))
			q := u >> k
			if q+1+uint64(k) <= 64 {
				w.TryWriteBits(1<<k|u&(1<<k-1), uint8(q+1+uint64(k)))
				continue
			}
			writeUnary(w, q)
			w.TryWriteBits(u, uint8(k))
		}
		start += n
	}
}

// writeUnary writes q zero bits followed by a one bit.
func writeUnary(w *bitio.Writer, q uint64) {
	for q >= 63 {
		w.TryWriteBits(0, 63)
		q -= 63
	}
	w.TryWriteBits(1, uint8(q+1))
}
