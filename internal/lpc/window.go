// Package lpc computes quantized linear predictors for the encoder.
package lpc

import "math"

// DefaultTukeyP is the taper fraction of the default analysis window.
const DefaultTukeyP = 0.5

// Tukey fills w with a Tukey window whose tapered portion covers p of its
// length. p <= 0 gives a rectangle and p >= 1 a Hann window.
func Tukey(w []float64, p float64) {
	n := len(w)
	switch {
	case p <= 0:
		for i := range w {
			w[i] = 1
		}
		return
	case p >= 1:
		Hann(w)
		return
	}

	np := int(p/2*float64(n)) - 1
	for i := range w {
		w[i] = 1
	}
	if np <= 0 {
		return
	}
	for i := 0; i <= np; i++ {
		w[i] = 0.5 - 0.5*math.Cos(math.Pi*float64(i)/float64(np))
		w[n-np-1+i] = 0.5 - 0.5*math.Cos(math.Pi*float64(i+np)/float64(np))
	}
}

// Hann fills w with a Hann window.
func Hann(w []float64) {
	n := len(w)
	if n == 1 {
		w[0] = 1
		return
	}
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
}
