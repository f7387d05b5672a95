package bits

import (
	"math"
	mbits "math/bits"
)

// leadingZeros maps a byte to its count of leading zero bits (8 for 0).
var leadingZeros [256]uint8

func init() {
	for i := range leadingZeros {
		leadingZeros[i] = uint8(mbits.LeadingZeros8(uint8(i)))
	}
}

// scanWord counts the zero bits above the first set bit of w, one byte at
// a time. w must be non-zero.
func scanWord(w uint32) uint32 {
	var n uint32
	for w&0xFF000000 == 0 {
		n += 8
		w <<= 8
	}
	return n + uint32(leadingZeros[w>>24])
}

// ReadUnary reads zero bits up to and including the next one bit and
// returns the number of zeros. Under a read budget the whole code is
// charged once read; a code running past the budget fails with
// ErrLimitExceeded.
func (r *Reader) ReadUnary() (uint32, error) {
	v, err := r.readUnary()
	if err != nil || !r.limitSet {
		return v, err
	}
	if err := r.useLimit(uint(v) + 1); err != nil {
		return 0, err
	}
	return v, nil
}

func (r *Reader) readUnary() (uint32, error) {
	var v uint32
	for {
		for r.cwords < r.words {
			w := r.buf[r.cwords] << r.cbits
			if w != 0 {
				n := scanWord(w)
				v += n
				r.cbits += uint(n) + 1
				if r.cbits == wordBits {
					r.cwords++
					r.cbits = 0
				}
				return v, nil
			}
			v += uint32(wordBits - r.cbits)
			r.cwords++
			r.cbits = 0
		}

		// Partial tail word; bits past the last buffered byte are zero.
		if r.bytes > 0 {
			end := uint(r.bytes) * 8
			if r.cbits < end {
				w := r.buf[r.cwords] << r.cbits
				if w != 0 {
					n := scanWord(w)
					v += n
					r.cbits += uint(n) + 1
					return v, nil
				}
				v += uint32(end - r.cbits)
				r.cbits = end
			}
		}

		if err := r.fill(); err != nil {
			return 0, err
		}
	}
}

// ReadRiceSignedBlock decodes len(out) zig-zag mapped Rice codes with the
// given parameter.
func (r *Reader) ReadRiceSignedBlock(out []int32, param uint) error {
	maxQuotient := uint32(math.MaxInt32) >> param
	for i := range out {
		q, err := r.ReadUnary()
		if err != nil {
			return err
		}
		if q > maxQuotient {
			return ErrRiceOverflow
		}
		u := q << param
		if param > 0 {
			lo, err := r.ReadBits(param)
			if err != nil {
				return err
			}
			u |= lo
		}
		out[i] = int32(u>>1) ^ -int32(u&1)
	}
	return nil
}

// ReadRiceSigned decodes a single Rice code.
func (r *Reader) ReadRiceSigned(param uint) (int32, error) {
	var v [1]int32
	if err := r.ReadRiceSignedBlock(v[:], param); err != nil {
		return 0, err
	}
	return v[0], nil
}
