package predict

import "github.com/llehouerou/go-flac/internal/syntax"

// Decorrelate converts a stereo pair back to left/right in place.
//
// ch0 and ch1 hold the two decoded subframes in stream order. When side64
// is non-nil the side channel needed 33 bits and is read from side64
// instead of its 32-bit slot.
func Decorrelate(a syntax.ChannelAssignment, ch0, ch1 []int32, side64 []int64) {
	switch a {
	case syntax.ChannelLeftSide:
		if side64 != nil {
			for i := range ch0 {
				ch1[i] = int32(int64(ch0[i]) - side64[i])
			}
			return
		}
		for i := range ch0 {
			ch1[i] = ch0[i] - ch1[i]
		}

	case syntax.ChannelRightSide:
		if side64 != nil {
			for i := range ch1 {
				ch0[i] = int32(int64(ch1[i]) + side64[i])
			}
			return
		}
		for i := range ch1 {
			ch0[i] = ch1[i] + ch0[i]
		}

	case syntax.ChannelMidSide:
		if side64 != nil {
			for i := range ch0 {
				side := side64[i]
				mid := int64(ch0[i])<<1 | side&1
				ch0[i] = int32((mid + side) >> 1)
				ch1[i] = int32((mid - side) >> 1)
			}
			return
		}
		for i := range ch0 {
			side := ch1[i]
			mid := int32(uint32(ch0[i])<<1) | side&1
			ch0[i] = (mid + side) >> 1
			ch1[i] = (mid - side) >> 1
		}
	}
}

// Correlate is the encoder-side inverse of Decorrelate for one block. It
// returns the mid and side signals of left and right.
func Correlate(left, right, mid, side []int64) {
	for i := range left {
		side[i] = left[i] - right[i]
		mid[i] = (left[i] + right[i]) >> 1
	}
}
