package predict

import mbits "math/bits"

// silog2 returns the bits needed to hold v as a signed value.
func silog2(v int64) uint {
	switch {
	case v == 0:
		return 0
	case v == -1:
		return 2
	case v < 0:
		v = -(v + 1)
	}
	return uint(63-mbits.LeadingZeros64(uint64(v))) + 2
}

// MaxPredictionBeforeShiftBPS bounds the width of the LPC accumulator
// before the quantization shift for samples of bps bits.
func MaxPredictionBeforeShiftBPS(bps uint, coeffs []int32) uint {
	var sum int64
	for _, c := range coeffs {
		if c < 0 {
			sum -= int64(c)
		} else {
			sum += int64(c)
		}
	}
	if sum == 0 {
		sum = 1
	}
	return bps + silog2(sum)
}

// MaxResidualBPS bounds the width of an LPC residual.
func MaxResidualBPS(bps uint, coeffs []int32, shift int) uint {
	predictorBPS := int(MaxPredictionBeforeShiftBPS(bps, coeffs)) - shift
	if int(bps) > predictorBPS {
		return bps + 1
	}
	return uint(predictorBPS) + 1
}

// RestoreLPC reconstructs data[len(coeffs):] with a 32-bit accumulator.
func RestoreLPC(residual []int32, coeffs []int32, shift int, data []int32) {
	order := len(coeffs)
	for i := order; i < len(data); i++ {
		var sum int32
		for j, c := range coeffs {
			sum += c * data[i-1-j]
		}
		data[i] = residual[i-order] + sum>>shift
	}
}

// RestoreLPCWide reconstructs data[len(coeffs):] with a 64-bit
// accumulator and 32-bit storage.
func RestoreLPCWide(residual []int32, coeffs []int32, shift int, data []int32) {
	order := len(coeffs)
	for i := order; i < len(data); i++ {
		var sum int64
		for j, c := range coeffs {
			sum += int64(c) * int64(data[i-1-j])
		}
		data[i] = int32(int64(residual[i-order]) + sum>>shift)
	}
}

// RestoreLPC33 reconstructs data[len(coeffs):] over 64-bit storage.
func RestoreLPC33(residual []int32, coeffs []int32, shift int, data []int64) {
	order := len(coeffs)
	for i := order; i < len(data); i++ {
		var sum int64
		for j, c := range coeffs {
			sum += int64(c) * data[i-1-j]
		}
		data[i] = int64(residual[i-order]) + sum>>shift
	}
}

// LPCResidual computes the LPC residual of data for i >= len(coeffs) into
// residual[i-len(coeffs)].
func LPCResidual(data []int64, coeffs []int32, shift int, residual []int64) {
	order := len(coeffs)
	for i := order; i < len(data); i++ {
		var sum int64
		for j, c := range coeffs {
			sum += int64(c) * data[i-1-j]
		}
		residual[i-order] = data[i] - sum>>shift
	}
}
