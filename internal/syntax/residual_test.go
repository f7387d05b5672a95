package syntax

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/icza/bitio"
)

// partition describes how one residual partition is written.
type partition struct {
	param uint32 // Rice parameter, or the escape code
	raw   uint8  // sample width of an escaped partition
}

// writeResidual writes an entropy coding method and its partitions.
func writeResidual(t *testing.T, w *bitio.Writer, typ EntropyType, order uint8, parts []partition, values []int32, predOrder int, blocksize int) {
	t.Helper()
	must := func(err error) {
		if err != nil {
			t.Fatal(err)
		}
	}
	must(w.WriteBits(uint64(typ), 2))
	must(w.WriteBits(uint64(order), 4))
	n := blocksize >> order
	pos := 0
	for i, p := range parts {
		count := n
		if i == 0 {
			count -= predOrder
		}
		must(w.WriteBits(uint64(p.param), uint8(typ.ParameterLen())))
		vals := values[pos : pos+count]
		pos += count
		if p.param == typ.EscapeParameter() {
			must(w.WriteBits(uint64(p.raw), 5))
			for _, v := range vals {
				if p.raw > 0 {
					must(w.WriteBits(uint64(uint32(v))&(1<<p.raw-1), p.raw))
				}
			}
			continue
		}
		k := uint8(p.param)
		for _, v := range vals {
			u := uint32(v<<1) ^ uint32(v>>31)
			for q := u >> k; q > 0; q-- {
				must(w.WriteBool(false))
			}
			must(w.WriteBool(true))
			if k > 0 {
				must(w.WriteBits(uint64(u)&(1<<k-1), k))
			}
		}
	}
}

func residualValues(n int, amp int32) []int32 {
	out := make([]int32, n)
	x := uint32(12345)
	for i := range out {
		x = x*1103515245 + 12345
		out[i] = int32(x>>8)%(2*amp+1) - amp
	}
	return out
}

func TestReadResidual_PartitionOrders(t *testing.T) {
	const blocksize = 64
	const predOrder = 2
	for order := uint8(0); order <= 4; order++ {
		t.Run(fmt.Sprintf("order %d", order), func(t *testing.T) {
			parts := make([]partition, 1<<order)
			values := residualValues(blocksize-predOrder, 200)
			for i := range parts {
				parts[i] = partition{param: uint32(3 + i%5)}
			}
			if len(parts) > 1 {
				// Escaped partition with raw 10-bit samples.
				parts[1] = partition{param: RiceEscapeParameter, raw: 10}
			}
			if len(parts) > 2 {
				// Escaped partition of zeros.
				parts[2] = partition{param: RiceEscapeParameter, raw: 0}
				n := blocksize >> order
				start := n - predOrder + n
				clear(values[start : start+n])
			}

			var buf bytes.Buffer
			w := bitio.NewWriter(&buf)
			writeResidual(t, w, EntropyRice, order, parts, values, predOrder, blocksize)
			if err := w.Close(); err != nil {
				t.Fatal(err)
			}

			r := newReader(buf.Bytes())
			var m EntropyCodingMethod
			if err := readEntropyMethod(r, &m, blocksize, predOrder, nil); err != nil {
				t.Fatalf("readEntropyMethod: %v", err)
			}
			if m.PartitionOrder != uint(order) {
				t.Fatalf("PartitionOrder = %d, want %d", m.PartitionOrder, order)
			}
			out := make([]int32, blocksize-predOrder)
			for i := range out {
				out[i] = -7 // must be overwritten, including zero partitions
			}
			if err := ReadResidual(r, &m, blocksize, predOrder, out); err != nil {
				t.Fatalf("ReadResidual: %v", err)
			}
			for i := range values {
				if out[i] != values[i] {
					t.Fatalf("order %d: residual[%d] = %d, want %d", order, i, out[i], values[i])
				}
			}
			for i, p := range parts {
				if m.Contents.Parameters[i] != p.param {
					t.Errorf("Parameters[%d] = %d, want %d", i, m.Contents.Parameters[i], p.param)
				}
				if m.Contents.RawBits[i] != uint32(p.raw) {
					t.Errorf("RawBits[%d] = %d, want %d", i, m.Contents.RawBits[i], p.raw)
				}
			}
		})
	}
}

func TestReadResidual_Rice2(t *testing.T) {
	const blocksize = 32
	values := residualValues(blocksize-1, 1<<20)
	parts := []partition{{param: 19}, {param: Rice2EscapeParameter, raw: 22}}

	var buf bytes.Buffer
	w := bitio.NewWriter(&buf)
	writeResidual(t, w, EntropyRice2, 1, parts, values, 1, blocksize)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r := newReader(buf.Bytes())
	var m EntropyCodingMethod
	if err := readEntropyMethod(r, &m, blocksize, 1, &PartitionedRiceContents{}); err != nil {
		t.Fatalf("readEntropyMethod: %v", err)
	}
	if m.Type != EntropyRice2 {
		t.Fatalf("Type = %d, want RICE2", m.Type)
	}
	out := make([]int32, blocksize-1)
	if err := ReadResidual(r, &m, blocksize, 1, out); err != nil {
		t.Fatalf("ReadResidual: %v", err)
	}
	for i := range values {
		if out[i] != values[i] {
			t.Fatalf("residual[%d] = %d, want %d", i, out[i], values[i])
		}
	}
}

func TestReadEntropyMethod_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		typ       uint64
		order     uint64
		blocksize int
		predOrder int
		wantErr   error
	}{
		{"reserved method", 2, 0, 64, 0, ErrUnparseable},
		{"partition shorter than predictor", 0, 4, 64, 5, ErrLostSync},
		{"blocksize not divisible", 0, 3, 100, 0, ErrLostSync},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := bitio.NewWriter(&buf)
			_ = w.WriteBits(tt.typ, 2)
			_ = w.WriteBits(tt.order, 4)
			_ = w.Close()

			var m EntropyCodingMethod
			err := readEntropyMethod(newReader(buf.Bytes()), &m, tt.blocksize, tt.predOrder, nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPartitionedRiceContents_EnsureSize(t *testing.T) {
	var c PartitionedRiceContents
	c.EnsureSize(6)
	if len(c.Parameters) != 64 || len(c.RawBits) != 64 {
		t.Fatalf("len = %d/%d, want 64", len(c.Parameters), len(c.RawBits))
	}
	c.Parameters[0] = 9
	c.EnsureSize(3)
	if len(c.Parameters) != 64 || c.Parameters[0] != 9 {
		t.Error("EnsureSize(3) reallocated storage")
	}
	c.EnsureSize(8)
	if len(c.Parameters) != 256 {
		t.Errorf("len = %d, want 256", len(c.Parameters))
	}
}
