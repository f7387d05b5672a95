package predict

import "github.com/llehouerou/go-flac/internal/syntax"

// Restore reconstructs the samples of a parsed subframe coded at bps bits
// (side-channel bit included, wasted bits not yet removed) and applies
// the wasted-bits shift.
//
// Samples land in out, or in out64 when the channel needs 33 bits. The
// return value reports which of the two holds the result.
func Restore(sf *syntax.Subframe, bps uint, out []int32, out64 []int64) (wide bool) {
	eff := bps - sf.WastedBits
	if eff > 32 {
		restore64(sf, eff, out64)
		return true
	}

	restore32(sf, eff, out)
	w := sf.WastedBits
	if w == 0 {
		return false
	}
	if bps < 33 {
		for i, v := range out {
			out[i] = int32(uint32(v) << w)
		}
		return false
	}
	for i, v := range out {
		out64[i] = int64(v) << w
	}
	return true
}

func restore32(sf *syntax.Subframe, bps uint, out []int32) {
	switch sf.Type {
	case syntax.SubframeConstant:
		v := int32(sf.Constant.Value)
		for i := range out {
			out[i] = v
		}
	case syntax.SubframeVerbatim:
		// Parsed in place.
	case syntax.SubframeFixed:
		f := &sf.Fixed
		for i := 0; i < f.Order; i++ {
			out[i] = int32(f.Warmup[i])
		}
		if bps+uint(f.Order) <= 32 {
			RestoreFixed(f.Residual, f.Order, out)
		} else {
			RestoreFixedWide(f.Residual, f.Order, out)
		}
	case syntax.SubframeLPC:
		l := &sf.LPC
		for i := 0; i < l.Order; i++ {
			out[i] = int32(l.Warmup[i])
		}
		coeffs := l.Coeffs[:l.Order]
		if MaxResidualBPS(bps, coeffs, l.Shift) <= 32 && MaxPredictionBeforeShiftBPS(bps, coeffs) <= 32 {
			RestoreLPC(l.Residual, coeffs, l.Shift, out)
		} else {
			RestoreLPCWide(l.Residual, coeffs, l.Shift, out)
		}
	}
}

func restore64(sf *syntax.Subframe, bps uint, out []int64) {
	switch sf.Type {
	case syntax.SubframeConstant:
		for i := range out {
			out[i] = sf.Constant.Value
		}
	case syntax.SubframeVerbatim:
	case syntax.SubframeFixed:
		f := &sf.Fixed
		copy(out, f.Warmup[:f.Order])
		RestoreFixed33(f.Residual, f.Order, out)
	case syntax.SubframeLPC:
		l := &sf.LPC
		copy(out, l.Warmup[:l.Order])
		RestoreLPC33(l.Residual, l.Coeffs[:l.Order], l.Shift, out)
	}
}
