package lpc

import (
	"math"

	"github.com/llehouerou/go-flac/internal/syntax"
)

// MinShift and MaxShift bound the quantization shift.
const (
	MinShift = -16
	MaxShift = 15
)

// Analyzer derives predictors for blocks of one size. It caches the
// analysis window and scratch buffers between blocks.
type Analyzer struct {
	tukeyP   float64
	window   []float64
	windowed []float64
	autoc    [syntax.MaxLPCOrder + 1]float64
	coeffs   [syntax.MaxLPCOrder][syntax.MaxLPCOrder]float64
	errs     [syntax.MaxLPCOrder]float64
}

// NewAnalyzer returns an Analyzer using a Tukey(p) window.
func NewAnalyzer(p float64) *Analyzer {
	return &Analyzer{tukeyP: p}
}

// Analyze computes the predictors of every order up to maxOrder for data
// and returns the number of orders available. It may be less than maxOrder
// when the signal is perfectly predicted early, and 0 for silence.
func (a *Analyzer) Analyze(data []int64, maxOrder int) int {
	n := len(data)
	if maxOrder >= n {
		maxOrder = n - 1
	}
	if maxOrder <= 0 {
		return 0
	}
	if len(a.window) != n {
		a.window = make([]float64, n)
		a.windowed = make([]float64, n)
		Tukey(a.window, a.tukeyP)
	}
	for i, v := range data {
		a.windowed[i] = float64(v) * a.window[i]
	}
	Autocorrelation(a.windowed, a.autoc[:maxOrder+1])
	if a.autoc[0] == 0 {
		return 0
	}
	return Levinson(a.autoc[:maxOrder+1], a.coeffs[:maxOrder], a.errs[:maxOrder])
}

// Coeffs returns the predictor of the given order (1-based) computed by
// the last Analyze.
func (a *Analyzer) Coeffs(order int) []float64 {
	return a.coeffs[order-1][:order]
}

// Errors returns the prediction error energy per order from the last
// Analyze.
func (a *Analyzer) Errors(orders int) []float64 {
	return a.errs[:orders]
}

// Autocorrelation computes autoc[lag] = sum data[i]*data[i+lag] for every
// lag below len(autoc).
func Autocorrelation(data []float64, autoc []float64) {
	for lag := range autoc {
		var sum float64
		for i := lag; i < len(data); i++ {
			sum += data[i] * data[i-lag]
		}
		autoc[lag] = sum
	}
}

// Levinson solves for the predictors of orders 1..len(coeffs) from the
// autocorrelation. coeffs[k] receives the order k+1 predictor such that
// x[i] ~ sum coeffs[k][j]*x[i-1-j], and errs[k] its error energy. It
// returns the number of orders solved; recursion stops early on a zero
// error.
func Levinson(autoc []float64, coeffs [][syntax.MaxLPCOrder]float64, errs []float64) int {
	var lpc [syntax.MaxLPCOrder]float64
	e := autoc[0]
	for i := range coeffs {
		r := -autoc[i+1]
		for j := 0; j < i; j++ {
			r -= lpc[j] * autoc[i-j]
		}
		r /= e

		lpc[i] = r
		for j := 0; j < i>>1; j++ {
			tmp := lpc[j]
			lpc[j] += r * lpc[i-1-j]
			lpc[i-1-j] += r * tmp
		}
		if i&1 != 0 {
			lpc[i>>1] += lpc[i>>1] * r
		}
		e *= 1 - r*r

		for j := 0; j <= i; j++ {
			coeffs[i][j] = -lpc[j]
		}
		errs[i] = e
		if e == 0 {
			return i + 1
		}
	}
	return len(coeffs)
}

// Quantize converts coeffs to precision-bit integers and returns them with
// the right shift that restores their scale. Rounding error is carried
// into the next coefficient. ok is false when the predictor is all zeros
// or needs a shift below MinShift.
func Quantize(coeffs []float64, precision uint, qlp []int32) (shift int, ok bool) {
	precision--
	qmax := int32(1)<<precision - 1
	qmin := -(int32(1) << precision)

	var cmax float64
	for _, c := range coeffs {
		cmax = math.Max(cmax, math.Abs(c))
	}
	if cmax <= 0 {
		return 0, false
	}

	_, log2cmax := math.Frexp(cmax)
	log2cmax--
	shift = int(precision) - log2cmax - 1
	switch {
	case shift > MaxShift:
		shift = MaxShift
	case shift < MinShift:
		return 0, false
	}

	scale := math.Ldexp(1, shift)
	var carry float64
	for i, c := range coeffs {
		carry += c * scale
		q := int32(math.Round(carry))
		q = max(qmin, min(qmax, q))
		carry -= float64(q)
		qlp[i] = q
	}
	if shift < 0 {
		shift = 0
	}
	return shift, true
}

// ExpectedBitsPerSample estimates the residual cost of a predictor with
// the given error energy over n samples.
func ExpectedBitsPerSample(err float64, n int) float64 {
	if err <= 0 {
		return 0
	}
	bps := 0.5 * math.Log2(err*0.5/float64(n)*math.Ln2*math.Ln2)
	return math.Max(bps, 0)
}

// BestOrder picks the order minimising the estimated subframe size given
// the error energies, block length, and the bits spent per warm-up sample
// and coefficient.
func BestOrder(errs []float64, n int, bitsPerOrder int) int {
	best := 1
	bestBits := math.Inf(1)
	for i, e := range errs {
		order := i + 1
		bits := ExpectedBitsPerSample(e, n)*float64(n-order) + float64(order*bitsPerOrder)
		if bits < bestBits {
			best, bestBits = order, bits
		}
	}
	return best
}
