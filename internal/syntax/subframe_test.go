package syntax

import (
	"bytes"
	"errors"
	"testing"

	"github.com/icza/bitio"
)

// field is one fixed-width value of a hand-built bitstream.
type field struct {
	v uint64
	n uint8
}

func build(t *testing.T, fields ...field) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := bitio.NewWriter(&buf)
	for _, f := range fields {
		if err := w.WriteBits(f.v&(1<<f.n-1), f.n); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newBuffers(blocksize int) *SubframeBuffers {
	return &SubframeBuffers{
		Out:      make([]int32, blocksize),
		Out64:    make([]int64, blocksize),
		Residual: make([]int32, blocksize),
		Rice:     &PartitionedRiceContents{},
	}
}

func TestReadSubframe_Constant(t *testing.T) {
	tests := []struct {
		name string
		bps  uint
		v    int64
	}{
		{"8 bit", 8, -128},
		{"16 bit", 16, 1234},
		{"33 bit side", 33, -(1 << 32)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := build(t, field{0x00, 8}, field{uint64(tt.v), uint8(tt.bps)})
			var sf Subframe
			if err := ReadSubframe(newReader(data), &sf, 16, tt.bps, newBuffers(16)); err != nil {
				t.Fatalf("ReadSubframe: %v", err)
			}
			if sf.Type != SubframeConstant {
				t.Fatalf("Type = %v, want CONSTANT", sf.Type)
			}
			if sf.Constant.Value != tt.v {
				t.Errorf("Value = %d, want %d", sf.Constant.Value, tt.v)
			}
		})
	}
}

func TestReadSubframe_Verbatim(t *testing.T) {
	samples := []int64{0, -1, 5, -(1 << 32), (1 << 32) - 1, 42}

	t.Run("narrow", func(t *testing.T) {
		fields := []field{{0x02, 8}}
		for _, v := range samples {
			fields = append(fields, field{uint64(v), 12})
		}
		var sf Subframe
		buf := newBuffers(len(samples))
		if err := ReadSubframe(newReader(build(t, fields...)), &sf, len(samples), 12, buf); err != nil {
			t.Fatalf("ReadSubframe: %v", err)
		}
		if sf.Verbatim.Data64 != nil {
			t.Fatal("Data64 set for 12-bit subframe")
		}
		for i, v := range samples {
			want := int32(v << 52 >> 52) // sign-extended low 12 bits
			if sf.Verbatim.Data[i] != want {
				t.Errorf("Data[%d] = %d, want %d", i, sf.Verbatim.Data[i], want)
			}
		}
	})

	t.Run("33 bit", func(t *testing.T) {
		fields := []field{{0x02, 8}}
		for _, v := range samples {
			fields = append(fields, field{uint64(v), 33})
		}
		var sf Subframe
		buf := newBuffers(len(samples))
		if err := ReadSubframe(newReader(build(t, fields...)), &sf, len(samples), 33, buf); err != nil {
			t.Fatalf("ReadSubframe: %v", err)
		}
		if sf.Verbatim.Data != nil {
			t.Fatal("Data set for 33-bit subframe")
		}
		for i, v := range samples {
			if sf.Verbatim.Data64[i] != v {
				t.Errorf("Data64[%d] = %d, want %d", i, sf.Verbatim.Data64[i], v)
			}
			if buf.Out64[i] != v {
				t.Errorf("Out64[%d] = %d, want %d", i, buf.Out64[i], v)
			}
		}
	})
}

func TestReadSubframe_WastedBits(t *testing.T) {
	// Constant header with the wasted flag, unary 2 (3 wasted bits), then
	// a 13-bit value.
	data := build(t, field{0x01, 8}, field{0x1, 3}, field{uint64(0x0FFF), 13})
	var sf Subframe
	if err := ReadSubframe(newReader(data), &sf, 4, 16, newBuffers(4)); err != nil {
		t.Fatalf("ReadSubframe: %v", err)
	}
	if sf.WastedBits != 3 {
		t.Errorf("WastedBits = %d, want 3", sf.WastedBits)
	}
	if sf.Constant.Value != 0x0FFF {
		t.Errorf("Value = %d, want %d", sf.Constant.Value, 0x0FFF)
	}
}

func TestReadSubframe_LPC(t *testing.T) {
	// Order 2, 16-bit warm-up, precision 12, shift 9, RICE order 0 with
	// parameter 0 and six zero residuals.
	fields := []field{
		{0x42, 8}, // 0 100001 0
		{100, 16}, {uint64(0xFFFF & -50), 16},
		{11, 4}, {9, 5},
		{1000, 12}, {uint64(0xFFF & -200), 12},
		{0, 2}, {0, 4}, {0, 4},
	}
	for i := 0; i < 6; i++ {
		fields = append(fields, field{1, 1})
	}
	var sf Subframe
	if err := ReadSubframe(newReader(build(t, fields...)), &sf, 8, 16, newBuffers(8)); err != nil {
		t.Fatalf("ReadSubframe: %v", err)
	}
	l := sf.LPC
	if sf.Type != SubframeLPC || l.Order != 2 {
		t.Fatalf("subframe = %v order %d, want LPC order 2", sf.Type, l.Order)
	}
	if l.Warmup[0] != 100 || l.Warmup[1] != -50 {
		t.Errorf("Warmup = %v, want [100 -50]", l.Warmup[:2])
	}
	if l.Precision != 12 || l.Shift != 9 {
		t.Errorf("Precision, Shift = %d, %d, want 12, 9", l.Precision, l.Shift)
	}
	if l.Coeffs[0] != 1000 || l.Coeffs[1] != -200 {
		t.Errorf("Coeffs = %v, want [1000 -200]", l.Coeffs[:2])
	}
	if len(l.Residual) != 6 {
		t.Errorf("len(Residual) = %d, want 6", len(l.Residual))
	}
}

func TestReadSubframe_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		fields    []field
		blocksize int
		bps       uint
		wantErr   error
	}{
		{"padding bit", []field{{0x80, 8}}, 16, 16, ErrLostSync},
		{"reserved type", []field{{0x04, 8}}, 16, 16, ErrUnparseable},
		{"reserved fixed order", []field{{0x1A, 8}}, 16, 16, ErrUnparseable},
		{"fixed order over blocksize", []field{{0x18, 8}}, 4, 16, ErrLostSync},
		{"lpc order over blocksize", []field{{0x7E, 8}}, 16, 16, ErrLostSync},
		{"wasted bits swallow sample", []field{{0x01, 8}, {0x1, 8}}, 16, 8, ErrLostSync},
		{"lpc precision 15", []field{{0x40, 8}, {0, 16}, {15, 4}}, 16, 16, ErrLostSync},
		{"lpc negative shift", []field{{0x40, 8}, {0, 16}, {11, 4}, {0x1F, 5}}, 16, 16, ErrLostSync},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := build(t, append(tt.fields, field{0, 32})...)
			var sf Subframe
			err := ReadSubframe(newReader(data), &sf, tt.blocksize, tt.bps, newBuffers(tt.blocksize))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
