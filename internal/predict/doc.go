// Package predict reconstructs subframe samples from warm-up samples and
// residuals, and undoes stereo decorrelation.
//
// Reconstruction runs in one of three arithmetic paths chosen from a
// static bound on the accumulator: 32-bit, 32-bit storage with a 64-bit
// accumulator, or 64-bit storage for 33-bit side channels.
package predict
