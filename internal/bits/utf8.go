package bits

// Sentinels returned for malformed UTF-8 coded numbers.
const (
	InvalidUTF8Uint32 = ^uint32(0)
	InvalidUTF8Uint64 = ^uint64(0)
)

// ReadUTF8Uint32 reads a frame number coded in at most 6 bytes. The bytes
// read are appended to raw. A malformed sequence yields InvalidUTF8Uint32
// with a nil error.
func (r *Reader) ReadUTF8Uint32(raw []byte) (uint32, []byte, error) {
	v, raw, err := r.readUTF8(raw, 5)
	if err != nil {
		return 0, raw, err
	}
	if v == InvalidUTF8Uint64 {
		return InvalidUTF8Uint32, raw, nil
	}
	return uint32(v), raw, nil
}

// ReadUTF8Uint64 reads a sample number coded in at most 7 bytes. The bytes
// read are appended to raw. A malformed sequence yields InvalidUTF8Uint64
// with a nil error.
func (r *Reader) ReadUTF8Uint64(raw []byte) (uint64, []byte, error) {
	return r.readUTF8(raw, 6)
}

func (r *Reader) readUTF8(raw []byte, maxCont int) (uint64, []byte, error) {
	x, err := r.ReadBits(8)
	if err != nil {
		return 0, raw, err
	}
	raw = append(raw, byte(x))

	ones := int(leadingZeros[^uint8(x)])
	var cont int
	var v uint64
	switch {
	case ones == 0:
		return uint64(x), raw, nil
	case ones == 1 || ones == 8:
		return InvalidUTF8Uint64, raw, nil
	default:
		cont = ones - 1
		v = uint64(x & (0x7F >> ones))
	}
	if cont > maxCont {
		return InvalidUTF8Uint64, raw, nil
	}

	for ; cont > 0; cont-- {
		x, err = r.ReadBits(8)
		if err != nil {
			return 0, raw, err
		}
		raw = append(raw, byte(x))
		if x&0xC0 != 0x80 {
			return InvalidUTF8Uint64, raw, nil
		}
		v = v<<6 | uint64(x&0x3F)
	}
	return v, raw, nil
}

// AppendUTF8 appends v (at most 36 bits) in the UTF-8 shaped coding used
// for frame and sample numbers.
func AppendUTF8(dst []byte, v uint64) []byte {
	if v < 0x80 {
		return append(dst, byte(v))
	}
	var n uint
	switch {
	case v < 1<<11:
		n = 2
	case v < 1<<16:
		n = 3
	case v < 1<<21:
		n = 4
	case v < 1<<26:
		n = 5
	case v < 1<<31:
		n = 6
	default:
		n = 7
	}
	dst = append(dst, byte(0xFF<<(8-n))|byte(v>>(6*(n-1))))
	for i := int(n) - 2; i >= 0; i-- {
		dst = append(dst, 0x80|byte(v>>(6*uint(i)))&0x3F)
	}
	return dst
}
