package output

// Channel positions of a 6-channel FLAC stream.
const (
	ChannelFrontLeft  = 0
	ChannelFrontRight = 1
	ChannelCenter     = 2
	ChannelLFE        = 3
	ChannelRearLeft   = 4
	ChannelRearRight  = 5
)

// DMMul normalizes the ITU-R BS.775 5.1 to stereo downmix:
// 1/(1+sqrt(2)+1/sqrt(2)).
const DMMul = 0.3203772410170407

// RSQRT2 is 1/sqrt(2).
const RSQRT2 = 0.7071067811865475244

// DownmixStereo folds a block of channels into left and right, reusing
// dst's storage. Mono is duplicated, stereo copied, and 5.1 mixed with the
// ITU weights (LFE dropped). Other layouts keep their first two channels.
func DownmixStereo(dst [2][]int32, src [][]int32, bps uint) [2][]int32 {
	n := len(src[0])
	for c := range dst {
		if cap(dst[c]) < n {
			dst[c] = make([]int32, n)
		}
		dst[c] = dst[c][:n]
	}

	switch len(src) {
	case 1:
		copy(dst[0], src[0])
		copy(dst[1], src[0])
	case 6:
		l, r := src[ChannelFrontLeft], src[ChannelFrontRight]
		c := src[ChannelCenter]
		ls, rs := src[ChannelRearLeft], src[ChannelRearRight]
		for i := 0; i < n; i++ {
			mid := float64(c[i]) * RSQRT2
			dst[0][i] = clip(DMMul*(float64(l[i])+mid+float64(ls[i])*RSQRT2), bps)
			dst[1][i] = clip(DMMul*(float64(r[i])+mid+float64(rs[i])*RSQRT2), bps)
		}
	default:
		copy(dst[0], src[0])
		copy(dst[1], src[1])
	}
	return dst
}
