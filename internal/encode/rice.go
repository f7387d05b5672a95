package encode

import "github.com/llehouerou/go-flac/internal/syntax"

// Largest non-escape parameters of each coding method.
const (
	maxRiceParam  = syntax.RiceEscapeParameter - 1
	maxRice2Param = syntax.Rice2EscapeParameter - 1
)

// riceSearch finds the cheapest partitioned Rice coding of a residual. The
// method of the last search is left in typ and order.
type riceSearch struct {
	typ    syntax.EntropyType
	order  uint
	u      []uint32
	params []uint32
}

// best codes res, the residual of a predictor of predOrder over blocksize
// samples, trying every partition order up to maxOrder. It stores the
// chosen parameters in contents and returns the residual size in bits,
// method fields included.
func (s *riceSearch) best(res []int32, blocksize, predOrder int, maxOrder uint, contents *syntax.PartitionedRiceContents) int {
	if cap(s.u) < len(res) {
		s.u = make([]uint32, len(res))
	}
	s.u = s.u[:len(res)]
	for i, v := range res {
		s.u[i] = uint32(v<<1) ^ uint32(v>>31)
	}

	var top uint
	for p := uint(1); p <= maxOrder; p++ {
		if blocksize%(1<<p) != 0 || blocksize>>p <= predOrder {
			break
		}
		top = p
	}
	contents.EnsureSize(max(6, top))
	if cap(s.params) < 1<<top {
		s.params = make([]uint32, 1<<top)
	}

	bestBits := -1
	for p := int(top); p >= 0; p-- {
		typ, bits := s.partition(blocksize, predOrder, uint(p))
		if bestBits >= 0 && bits >= bestBits {
			continue
		}
		bestBits = bits
		s.typ = typ
		s.order = uint(p)
		copy(contents.Parameters, s.params[:1<<p])
		clear(contents.RawBits)
	}
	return bestBits
}

// partition sizes one partition order, leaving the parameters in s.params.
func (s *riceSearch) partition(blocksize, predOrder int, order uint) (syntax.EntropyType, int) {
	parts := 1 << order
	size := blocksize >> order
	typ := syntax.EntropyRice
	bits := syntax.EntropyMethodTypeLen + syntax.RicePartitionOrderLen
	start := 0
	for p := 0; p < parts; p++ {
		n := size
		if p == 0 {
			n -= predOrder
		}
		k, b := bestParam(s.u[start : start+n])
		s.params[p] = k
		bits += b
		if k > maxRiceParam {
			typ = syntax.EntropyRice2
		}
		start += n
	}
	return typ, bits + parts*int(typ.ParameterLen())
}

// bestParam returns the cheapest Rice parameter for u and the cost of the
// samples coded with it, parameter field excluded.
func bestParam(u []uint32) (uint32, int) {
	n := len(u)
	if n == 0 {
		return 0, 0
	}
	var sum uint64
	for _, v := range u {
		sum += uint64(v)
	}
	var k0 uint
	if mean := sum / uint64(n); mean > 0 {
		k0 = ilog2(mean)
	}

	bestK, bestBits := uint(0), -1
	for k := int(k0) - 1; k <= int(k0)+1; k++ {
		if k < 0 || k > maxRice2Param {
			continue
		}
		bits := riceBits(u, uint(k))
		if bestBits < 0 || bits < bestBits {
			bestK, bestBits = uint(k), bits
		}
	}
	return uint32(bestK), bestBits
}

// riceBits returns the size of u coded with parameter k.
func riceBits(u []uint32, k uint) int {
	bits := len(u) * int(k+1)
	for _, v := range u {
		bits += int(v >> k)
	}
	return bits
}
