// Package output converts decoded FLAC blocks into interleaved PCM.
package output

import "math"

// BytesPerSample returns the container width for bps-bit samples.
func BytesPerSample(bps uint) int {
	return int(bps+7) / 8
}

// AppendInterleavedLE appends the block held in channels as interleaved
// little-endian signed samples of BytesPerSample(bps) bytes each. This is
// the byte layout the STREAMINFO MD5 is computed over.
func AppendInterleavedLE(dst []byte, channels [][]int32, bps uint) []byte {
	if len(channels) == 0 {
		return dst
	}
	width := BytesPerSample(bps)
	n := len(channels[0])
	dst = growBytes(dst, n*len(channels)*width)
	for i := 0; i < n; i++ {
		for _, ch := range channels {
			v := uint32(ch[i])
			switch width {
			case 1:
				dst = append(dst, byte(v))
			case 2:
				dst = append(dst, byte(v), byte(v>>8))
			case 3:
				dst = append(dst, byte(v), byte(v>>8), byte(v>>16))
			default:
				dst = append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
			}
		}
	}
	return dst
}

// Interleave appends the block held in channels to dst as interleaved
// samples.
func Interleave(dst []int, channels [][]int32) []int {
	if len(channels) == 0 {
		return dst
	}
	n := len(channels[0])
	for i := 0; i < n; i++ {
		for _, ch := range channels {
			dst = append(dst, int(ch[i]))
		}
	}
	return dst
}

// Deinterleave splits interleaved samples into per-channel slices of
// len(src)/len(dst) samples, reusing dst's storage.
func Deinterleave(dst [][]int32, src []int) {
	nch := len(dst)
	n := len(src) / nch
	for c := range dst {
		if cap(dst[c]) < n {
			dst[c] = make([]int32, n)
		}
		dst[c] = dst[c][:n]
	}
	for i := 0; i < n; i++ {
		for c := range dst {
			dst[c][i] = int32(src[i*nch+c])
		}
	}
}

// ConvertDepth rescales a sample from one bit depth to another. Narrowing
// rounds to nearest, ties to even, and clips to the target range.
func ConvertDepth(v int32, from, to uint) int32 {
	switch {
	case from == to:
		return v
	case to > from:
		return int32(int64(v) << (to - from))
	}
	scaled := float64(v) / float64(int64(1)<<(from-to))
	return clip(scaled, to)
}

// clip rounds sample and clamps it to the signed range of bps bits.
func clip(sample float64, bps uint) int32 {
	hi := float64(int64(1)<<(bps-1) - 1)
	lo := -float64(int64(1) << (bps - 1))
	if sample >= hi {
		return int32(hi)
	}
	if sample <= lo {
		return int32(lo)
	}
	return int32(math.RoundToEven(sample))
}

func growBytes(b []byte, n int) []byte {
	if cap(b)-len(b) >= n {
		return b
	}
	nb := make([]byte, len(b), len(b)+n)
	copy(nb, b)
	return nb
}
