// internal/syntax/frame.go
package syntax

import "github.com/llehouerou/go-flac/internal/bits"

// ChannelAssignment is the inter-channel coding of a frame.
type ChannelAssignment uint8

// Channel assignments.
const (
	ChannelIndependent ChannelAssignment = iota
	ChannelLeftSide                      // left, side = left - right
	ChannelRightSide                     // side, right
	ChannelMidSide                       // mid, side
)

var channelAssignmentNames = [...]string{"INDEPENDENT", "LEFT_SIDE", "RIGHT_SIDE", "MID_SIDE"}

func (a ChannelAssignment) String() string {
	if int(a) < len(channelAssignmentNames) {
		return channelAssignmentNames[a]
	}
	return "UNKNOWN"
}

// SideChannel returns the index of the channel carrying the side signal,
// or -1 for independent coding.
func (a ChannelAssignment) SideChannel() int {
	switch a {
	case ChannelLeftSide, ChannelMidSide:
		return 1
	case ChannelRightSide:
		return 0
	}
	return -1
}

// NumberType tags the frame/sample number union of a header.
type NumberType uint8

// Number types.
const (
	NumberFrame  NumberType = iota // fixed blocksize stream
	NumberSample                   // variable blocksize stream
)

// FrameHeader is a decoded frame header.
//
// Header structure (after the 14-bit sync code):
//   - reserved: 1 bit (must be 0)
//   - blocking strategy: 1 bit (0=fixed, 1=variable)
//   - blocksize code: 4 bits
//   - sample rate code: 4 bits
//   - channel assignment: 4 bits
//   - sample size code: 3 bits
//   - reserved: 1 bit (must be 0)
//   - frame or sample number: UTF-8 coded, 1-7 bytes
//   - blocksize hint: 0, 8 or 16 bits
//   - sample rate hint: 0, 8 or 16 bits
//   - CRC-8: 8 bits
type FrameHeader struct {
	BlockSize         uint32
	SampleRate        uint32
	Channels          uint32
	ChannelAssignment ChannelAssignment
	BitsPerSample     uint32
	NumberType        NumberType
	FrameNumber       uint32 // valid when NumberType == NumberFrame
	SampleNumber      uint64 // always valid once the decoder accepts the frame
	CRC8              uint8
	Raw               []byte // header bytes covered by CRC-8
}

// Defaults carries the STREAMINFO values a header may borrow.
type Defaults struct {
	Valid         bool
	SampleRate    uint32
	BitsPerSample uint32
	MinBlockSize  uint32
	MaxBlockSize  uint32
}

// SampleRates maps sample rate codes 1-11 to Hz.
var SampleRates = [12]uint32{0, 88200, 176400, 192000, 8000, 16000, 22050, 24000, 32000, 44100, 48000, 96000}

// SampleSizes maps sample size codes to bits per sample (0 = reserved or
// borrowed).
var SampleSizes = [8]uint32{0, 8, 12, 0, 16, 20, 24, 32}

// ReadFrameHeader parses a frame header whose two sync bytes have already
// been consumed and are passed in warmup.
//
// It returns ErrBadHeader for malformed headers and ErrUnparseable for
// headers that pass CRC-8 but use reserved codes. When lookahead is >= 0,
// that byte was consumed but may begin the next sync code and must be
// re-examined by the sync search.
func ReadFrameHeader(r *bits.Reader, warmup [2]byte, d Defaults, h *FrameHeader) (lookahead int, err error) {
	raw := append(h.Raw[:0], warmup[0], warmup[1])
	*h = FrameHeader{}
	unparseable := warmup[1]&0x02 != 0

	for i := 0; i < 2; i++ {
		x, err := r.ReadBits(8)
		if err != nil {
			return -1, err
		}
		if x == 0xFF {
			// A sync code cannot appear inside a header.
			h.Raw = raw
			return 0xFF, ErrBadHeader
		}
		raw = append(raw, byte(x))
	}

	var blocksizeHint, sampleRateHint uint32
	switch x := uint32(raw[2] >> 4); {
	case x == 0:
		unparseable = true
	case x == 1:
		h.BlockSize = 192
	case x <= 5:
		h.BlockSize = 576 << (x - 2)
	case x <= 7:
		blocksizeHint = x
	default:
		h.BlockSize = 256 << (x - 8)
	}

	switch x := uint32(raw[2] & 0x0F); {
	case x == 0:
		if d.Valid {
			h.SampleRate = d.SampleRate
		} else {
			unparseable = true
		}
	case x <= 11:
		h.SampleRate = SampleRates[x]
	case x <= 14:
		sampleRateHint = x
	default:
		h.Raw = raw
		return -1, ErrBadHeader
	}

	x := uint32(raw[3] >> 4)
	if x&8 != 0 {
		h.Channels = 2
		switch x & 7 {
		case 0:
			h.ChannelAssignment = ChannelLeftSide
		case 1:
			h.ChannelAssignment = ChannelRightSide
		case 2:
			h.ChannelAssignment = ChannelMidSide
		default:
			unparseable = true
		}
	} else {
		h.Channels = x + 1
		h.ChannelAssignment = ChannelIndependent
	}

	switch x := uint32(raw[3]&0x0E) >> 1; x {
	case 0:
		if d.Valid {
			h.BitsPerSample = d.BitsPerSample
		} else {
			unparseable = true
		}
	case 3:
		unparseable = true
	default:
		h.BitsPerSample = SampleSizes[x]
	}

	if raw[3]&0x01 != 0 {
		unparseable = true
	}

	if warmup[1]&0x01 != 0 || (d.Valid && d.MinBlockSize != d.MaxBlockSize) {
		v, next, err := r.ReadUTF8Uint64(raw)
		raw = next
		if err != nil {
			return -1, err
		}
		if v == bits.InvalidUTF8Uint64 {
			h.Raw = raw
			return int(raw[len(raw)-1]), ErrBadHeader
		}
		h.NumberType = NumberSample
		h.SampleNumber = v
	} else {
		v, next, err := r.ReadUTF8Uint32(raw)
		raw = next
		if err != nil {
			return -1, err
		}
		if v == bits.InvalidUTF8Uint32 {
			h.Raw = raw
			return int(raw[len(raw)-1]), ErrBadHeader
		}
		h.NumberType = NumberFrame
		h.FrameNumber = v
	}

	if blocksizeHint != 0 {
		v, err := r.ReadBits(8)
		if err != nil {
			return -1, err
		}
		raw = append(raw, byte(v))
		if blocksizeHint == 7 {
			lo, err := r.ReadBits(8)
			if err != nil {
				return -1, err
			}
			raw = append(raw, byte(lo))
			v = v<<8 | lo
		}
		h.BlockSize = v + 1
	}

	if sampleRateHint != 0 {
		v, err := r.ReadBits(8)
		if err != nil {
			return -1, err
		}
		raw = append(raw, byte(v))
		if sampleRateHint != 12 {
			lo, err := r.ReadBits(8)
			if err != nil {
				return -1, err
			}
			raw = append(raw, byte(lo))
			v = v<<8 | lo
		}
		switch sampleRateHint {
		case 12:
			h.SampleRate = v * 1000
		case 13:
			h.SampleRate = v
		default:
			h.SampleRate = v * 10
		}
	}

	crc, err := r.ReadBits(8)
	if err != nil {
		return -1, err
	}
	h.CRC8 = uint8(crc)
	h.Raw = raw
	if bits.CRC8(0, raw) != h.CRC8 {
		return -1, ErrBadHeader
	}
	if unparseable {
		return -1, ErrUnparseable
	}
	return -1, nil
}

// BlockSizeCode returns the 4-bit blocksize code for n and the width of
// the hint that must follow the header (0, 8 or 16 bits).
func BlockSizeCode(n uint32) (code uint8, hintBits uint8) {
	switch n {
	case 192:
		return 1, 0
	case 576, 1152, 2304, 4608:
		return uint8(2 + log2(n/576)), 0
	case 256, 512, 1024, 2048, 4096, 8192, 16384, 32768:
		return uint8(8 + log2(n/256)), 0
	}
	if n <= 256 {
		return 6, 8
	}
	return 7, 16
}

// SampleRateCode returns the 4-bit sample rate code for hz and the width
// of the hint that must follow the header. Code 0 defers to STREAMINFO.
func SampleRateCode(hz uint32) (code uint8, hintBits uint8) {
	for i := 1; i < len(SampleRates); i++ {
		if SampleRates[i] == hz {
			return uint8(i), 0
		}
	}
	switch {
	case hz%1000 == 0 && hz/1000 <= 255:
		return 12, 8
	case hz <= 65535:
		return 13, 16
	case hz%10 == 0 && hz/10 <= 65535:
		return 14, 16
	}
	return 0, 0
}

// SampleSizeCode returns the 3-bit sample size code for bps, or 0 to defer
// to STREAMINFO.
func SampleSizeCode(bps uint32) uint8 {
	for i, v := range SampleSizes {
		if v == bps && v != 0 {
			return uint8(i)
		}
	}
	return 0
}

func log2(n uint32) uint32 {
	var k uint32
	for n > 1 {
		n >>= 1
		k++
	}
	return k
}
