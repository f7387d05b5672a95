// Package encode chooses and serializes FLAC subframes and frames.
package encode

import (
	mbits "math/bits"

	"github.com/llehouerou/go-flac/internal/lpc"
	"github.com/llehouerou/go-flac/internal/predict"
	"github.com/llehouerou/go-flac/internal/syntax"
)

// Params controls the subframe search.
type Params struct {
	MaxLPCOrder       int  // 0 disables LPC
	QLPCoeffPrecision uint // 0 derives it from the blocksize
	MaxPartitionOrder uint
	ExhaustiveLPC     bool // try every LPC order instead of the estimate
	TukeyP            float64
}

// DefaultParams mirror a mid compression level.
var DefaultParams = Params{
	MaxLPCOrder:       8,
	MaxPartitionOrder: 6,
	TukeyP:            lpc.DefaultTukeyP,
}

// DefaultPrecision returns the coefficient precision used for a blocksize.
func DefaultPrecision(blocksize int) uint {
	switch {
	case blocksize <= 192:
		return 7
	case blocksize <= 384:
		return 8
	case blocksize <= 576:
		return 9
	case blocksize <= 1152:
		return 10
	case blocksize <= 2304:
		return 11
	case blocksize <= 4608:
		return 12
	}
	return 13
}

// residualLimit bounds predictor residuals the encoder will code.
const residualLimit = 1 << 30

// Channel is the chosen coding of one channel of a block. The subframe
// refers to the channel's own buffers and stays valid until the channel
// is encoded again.
type Channel struct {
	Subframe syntax.Subframe
	Bits     int // coded size of the subframe

	shifted []int64
	verb    []int32
	verb64  []int64
	res64   []int64
	res     [2][]int32
	rice    [2]syntax.PartitionedRiceContents
	best    int // index of the residual/rice pair held by Subframe
}

// Encoder searches subframe codings. It is not safe for concurrent use.
type Encoder struct {
	params   Params
	analyzer *lpc.Analyzer
	qlp      [syntax.MaxLPCOrder]int32
	search   riceSearch
}

// New returns an Encoder using p.
func New(p Params) *Encoder {
	if p.MaxLPCOrder > syntax.MaxLPCOrder {
		p.MaxLPCOrder = syntax.MaxLPCOrder
	}
	if p.MaxPartitionOrder > syntax.MaxRicePartitionOrder {
		p.MaxPartitionOrder = syntax.MaxRicePartitionOrder
	}
	if p.QLPCoeffPrecision > syntax.MaxQLPCoeffPrecision {
		p.QLPCoeffPrecision = syntax.MaxQLPCoeffPrecision
	}
	return &Encoder{params: p, analyzer: lpc.NewAnalyzer(p.TukeyP)}
}

// Encode picks the smallest coding of data, whose samples are bps bits
// wide (side channels included), and stores it in ch.
func (e *Encoder) Encode(ch *Channel, data []int64, bps uint) {
	n := len(data)
	sf := &ch.Subframe
	*sf = syntax.Subframe{}

	if constant(data) {
		sf.Type = syntax.SubframeConstant
		sf.Constant.Value = data[0]
		ch.Bits = 8 + int(bps)
		return
	}

	wasted := wastedBits(data)
	if wasted >= bps {
		wasted = 0
	}
	ebps := bps - wasted
	ch.shifted = grow64(ch.shifted, n)
	for i, v := range data {
		ch.shifted[i] = v >> wasted
	}
	x := ch.shifted
	header := 8
	if wasted > 0 {
		header += int(wasted)
	}

	// Verbatim is always possible and bounds every other candidate.
	e.setVerbatim(ch, x, ebps)
	sf.WastedBits = wasted
	ch.Bits = header + n*int(ebps)
	ch.res64 = grow64(ch.res64, n)

	for order := 0; order <= syntax.MaxFixedOrder && order < n; order++ {
		predict.FixedResidual(x, order, ch.res64)
		bits, ok := e.tryResidual(ch, order, header+order*int(ebps))
		if !ok || bits >= ch.Bits {
			continue
		}
		e.keep(ch, bits)
		sf.Type = syntax.SubframeFixed
		sf.Fixed = syntax.Fixed{Order: order}
		copy(sf.Fixed.Warmup[:], x[:order])
		sf.Fixed.Entropy = e.method(ch)
		sf.Fixed.Residual = ch.res[ch.best][:n-order]
	}

	if e.params.MaxLPCOrder > 0 {
		e.tryLPC(ch, x, ebps, header)
	}
}

func (e *Encoder) tryLPC(ch *Channel, x []int64, ebps uint, header int) {
	n := len(x)
	orders := e.analyzer.Analyze(x, e.params.MaxLPCOrder)
	if orders == 0 {
		return
	}
	precision := e.params.QLPCoeffPrecision
	if precision == 0 {
		precision = DefaultPrecision(n)
	}

	lo, hi := 1, orders
	if !e.params.ExhaustiveLPC {
		lo = lpc.BestOrder(e.analyzer.Errors(orders), n, int(ebps+precision))
		hi = lo
	}
	for order := lo; order <= hi; order++ {
		qlp := e.qlp[:order]
		shift, ok := lpc.Quantize(e.analyzer.Coeffs(order), precision, qlp)
		if !ok {
			continue
		}
		predict.LPCResidual(x, qlp, shift, ch.res64)
		overhead := header + order*int(ebps) + syntax.SubframeLPCPrecisionLen +
			syntax.SubframeLPCShiftLen + order*int(precision)
		bits, ok := e.tryResidual(ch, order, overhead)
		if !ok || bits >= ch.Bits {
			continue
		}
		e.keep(ch, bits)
		sf := &ch.Subframe
		sf.Type = syntax.SubframeLPC
		sf.LPC = syntax.LPC{Order: order, Precision: precision, Shift: shift}
		copy(sf.LPC.Coeffs[:], qlp)
		copy(sf.LPC.Warmup[:], x[:order])
		sf.LPC.Entropy = e.method(ch)
		sf.LPC.Residual = ch.res[ch.best][:n-order]
	}
}

// tryResidual converts ch.res64 for a predictor of the given order into
// the candidate slot and sizes its best Rice coding. ok is false when the
// residual is out of range.
func (e *Encoder) tryResidual(ch *Channel, order, overhead int) (bits int, ok bool) {
	n := len(ch.shifted)
	slot := 1 - ch.best
	ch.res[slot] = grow32(ch.res[slot], n)
	res := ch.res[slot][:n-order]
	for i, v := range ch.res64[:n-order] {
		if v >= residualLimit || v <= -residualLimit {
			return 0, false
		}
		res[i] = int32(v)
	}
	rb := e.search.best(res, n, order, e.params.MaxPartitionOrder, &ch.rice[slot])
	return overhead + rb, true
}

// keep promotes the candidate slot to the chosen coding.
func (e *Encoder) keep(ch *Channel, bits int) {
	ch.best = 1 - ch.best
	ch.Bits = bits
	ch.Subframe.Verbatim = syntax.Verbatim{}
}

func (e *Encoder) method(ch *Channel) syntax.EntropyCodingMethod {
	return syntax.EntropyCodingMethod{
		Type:           e.search.typ,
		PartitionOrder: e.search.order,
		Contents:       &ch.rice[ch.best],
	}
}

func (e *Encoder) setVerbatim(ch *Channel, x []int64, bps uint) {
	sf := &ch.Subframe
	sf.Type = syntax.SubframeVerbatim
	if bps > 32 {
		ch.verb64 = grow64(ch.verb64, len(x))
		copy(ch.verb64, x)
		sf.Verbatim.Data64 = ch.verb64[:len(x)]
		return
	}
	ch.verb = grow32(ch.verb, len(x))
	for i, v := range x {
		ch.verb[i] = int32(v)
	}
	sf.Verbatim.Data = ch.verb[:len(x)]
}

func constant(data []int64) bool {
	for _, v := range data[1:] {
		if v != data[0] {
			return false
		}
	}
	return true
}

// wastedBits returns the number of trailing zero bits shared by every
// sample.
func wastedBits(data []int64) uint {
	var or uint64
	for _, v := range data {
		or |= uint64(v)
		if or&1 != 0 {
			return 0
		}
	}
	if or == 0 {
		return 0
	}
	return uint(mbits.TrailingZeros64(or))
}

func grow64(b []int64, n int) []int64 {
	if cap(b) < n {
		return make([]int64, n)
	}
	return b[:n]
}

func grow32(b []int32, n int) []int32 {
	if cap(b) < n {
		return make([]int32, n)
	}
	return b[:n]
}

// ilog2 returns floor(log2(v)) for v > 0.
func ilog2(v uint64) uint {
	return uint(63 - mbits.LeadingZeros64(v))
}
