package output

import "testing"

func TestDownmixStereo(t *testing.T) {
	tests := []struct {
		name      string
		src       [][]int32
		wantLeft  []int32
		wantRight []int32
	}{
		{
			name:      "mono duplicated",
			src:       [][]int32{{1, -2, 3}},
			wantLeft:  []int32{1, -2, 3},
			wantRight: []int32{1, -2, 3},
		},
		{
			name:      "stereo copied",
			src:       [][]int32{{1, 2}, {3, 4}},
			wantLeft:  []int32{1, 2},
			wantRight: []int32{3, 4},
		},
		{
			name:      "quad keeps fronts",
			src:       [][]int32{{1}, {2}, {3}, {4}},
			wantLeft:  []int32{1},
			wantRight: []int32{2},
		},
		{
			name: "5.1 front only",
			// L R C LFE Ls Rs
			src:       [][]int32{{10000}, {-10000}, {0}, {30000}, {0}, {0}},
			wantLeft:  []int32{3204},
			wantRight: []int32{-3204},
		},
		{
			name:      "5.1 mixes center and surrounds",
			src:       [][]int32{{1000}, {-1000}, {2000}, {123}, {-500}, {400}},
			wantLeft:  []int32{660},
			wantRight: []int32{223},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dst [2][]int32
			dst = DownmixStereo(dst, tt.src, 16)
			for i := range tt.wantLeft {
				if dst[0][i] != tt.wantLeft[i] {
					t.Errorf("left[%d] = %d, want %d", i, dst[0][i], tt.wantLeft[i])
				}
				if dst[1][i] != tt.wantRight[i] {
					t.Errorf("right[%d] = %d, want %d", i, dst[1][i], tt.wantRight[i])
				}
			}
		})
	}
}

func TestDownmixStereo_ReusesStorage(t *testing.T) {
	dst := [2][]int32{make([]int32, 8), make([]int32, 8)}
	out := DownmixStereo(dst, [][]int32{{1, 2}}, 16)
	if &out[0][0] != &dst[0][0] {
		t.Error("DownmixStereo reallocated left channel")
	}
	if len(out[0]) != 2 {
		t.Errorf("len(left) = %d, want 2", len(out[0]))
	}
}
