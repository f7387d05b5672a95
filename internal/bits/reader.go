// internal/bits/reader.go
package bits

import "encoding/binary"

// Word geometry. Bits are packed MSB-first; a partial tail word holds its
// bytes left-justified.
const (
	wordBits  = 32
	wordBytes = 4
	allOnes   = ^uint32(0)

	// DefaultCapacity is the buffer size in words (8 KiB).
	DefaultCapacity = 2048

	noLimit = ^uint32(0)
)

// ReadFunc supplies bytes to the reader. It returns the number of bytes
// copied into p. A non-nil error stops the read in progress and is passed
// through unchanged.
type ReadFunc func(p []byte) (int, error)

// Reader is a word-buffered, MSB-first bit reader that pulls its input
// from a ReadFunc on demand.
//
// The reader tracks a running CRC-16 over every bit consumed since the
// last ResetCRC16, across buffer compactions, and can bookmark the byte
// following a frame sync code so a corrupt frame can be backed out without
// a physical seek.
type Reader struct {
	buf     []uint32 // word buffer
	scratch []byte   // staging area for client reads
	words   int      // complete words in buf
	bytes   int      // bytes in the partial tail word buf[words]
	cwords  int      // fully consumed words
	cbits   uint     // consumed bits of buf[cwords]

	crc       uint16
	crcOffset int  // first word not yet folded into crc
	crcAlign  uint // bits of buf[crcOffset] already folded

	limit      uint32 // remaining bit budget when limitSet
	limitSet   bool
	framesync  int // byte offset just past the last sync code, -1 if gone
	read       ReadFunc
	emptyReads int
}

// NewReader creates a Reader with the default capacity.
func NewReader(read ReadFunc) *Reader {
	return NewReaderSize(read, DefaultCapacity)
}

// NewReaderSize creates a Reader holding at most capacity words.
func NewReaderSize(read ReadFunc, capacity int) *Reader {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Reader{
		buf:       make([]uint32, capacity),
		scratch:   make([]byte, capacity*wordBytes),
		framesync: -1,
		limit:     noLimit,
		read:      read,
	}
}

// Clear drops all buffered input and resets the CRC and bookmark.
func (r *Reader) Clear() {
	r.words = 0
	r.bytes = 0
	r.cwords = 0
	r.cbits = 0
	r.crc = 0
	r.crcOffset = 0
	r.crcAlign = 0
	r.framesync = -1
	r.limitSet = false
	r.limit = noLimit
	r.emptyReads = 0
}

// available returns the number of buffered, unconsumed bits.
func (r *Reader) available() uint {
	return uint(r.words-r.cwords)*wordBits + uint(r.bytes)*8 - r.cbits
}

// UnconsumedBits returns the number of buffered bits not yet read.
func (r *Reader) UnconsumedBits() uint {
	return r.available()
}

// IsConsumedByteAligned reports whether the read cursor sits on a byte
// boundary.
func (r *Reader) IsConsumedByteAligned() bool {
	return r.cbits&7 == 0
}

// BitsLeftForByteAlignment returns the bits to read before the cursor is
// byte aligned.
func (r *Reader) BitsLeftForByteAlignment() uint {
	return (8 - r.cbits&7) & 7
}

// fill compacts the buffer and appends whatever the client supplies.
func (r *Reader) fill() error {
	if r.cwords > 0 {
		r.foldCRC()
		start := r.cwords
		end := r.words
		if r.bytes > 0 {
			end++
		}
		copy(r.buf, r.buf[start:end])
		r.words -= start
		r.cwords = 0
		r.crcOffset -= start
		if r.framesync >= 0 {
			r.framesync -= start * wordBytes
			if r.framesync < 0 {
				r.framesync = -1
			}
		}
	}

	room := (len(r.buf)-r.words)*wordBytes - r.bytes
	if room == 0 {
		return ErrBufferFull
	}

	n, err := r.read(r.scratch[:room])
	if n > 0 {
		r.emptyReads = 0
		r.pack(r.scratch[:n])
		return nil
	}
	if err != nil {
		return err
	}
	r.emptyReads++
	if r.emptyReads >= maxEmptyReads {
		return ErrNoProgress
	}
	return nil
}

// maxEmptyReads bounds consecutive zero-byte client reads.
const maxEmptyReads = 100

// pack appends bytes to the word buffer, continuing the partial tail word.
func (r *Reader) pack(p []byte) {
	pos := r.words*wordBytes + r.bytes
	for _, b := range p {
		w := pos / wordBytes
		shift := uint(24 - 8*(pos%wordBytes))
		if pos%wordBytes == 0 {
			r.buf[w] = 0
		}
		r.buf[w] = r.buf[w]&^(0xFF<<shift) | uint32(b)<<shift
		pos++
	}
	r.words = pos / wordBytes
	r.bytes = pos % wordBytes
}

// useLimit charges n bits against the read budget.
func (r *Reader) useLimit(n uint) error {
	if !r.limitSet {
		return nil
	}
	if uint(r.limit) < n {
		r.limit = noLimit
		r.limitSet = false
		return ErrLimitExceeded
	}
	r.limit -= uint32(n)
	return nil
}

// SetLimit arms a read budget of bits. The first read that would exceed
// it fails with ErrLimitExceeded and disarms the budget.
func (r *Reader) SetLimit(bits uint32) {
	r.limit = bits
	r.limitSet = true
}

// RemoveLimit disarms the read budget.
func (r *Reader) RemoveLimit() {
	r.limit = noLimit
	r.limitSet = false
}

// LimitRemaining returns the unspent budget, or 0 when no budget is armed.
func (r *Reader) LimitRemaining() uint32 {
	if !r.limitSet {
		return 0
	}
	return r.limit
}

// ReadBits reads n (0-32) bits as an unsigned value.
func (r *Reader) ReadBits(n uint) (uint32, error) {
	if n == 0 {
		return 0, nil
	}
	if err := r.useLimit(n); err != nil {
		return 0, err
	}
	for r.available() < n {
		if err := r.fill(); err != nil {
			return 0, err
		}
	}

	word := r.buf[r.cwords]
	avail := wordBits - r.cbits
	if n < avail {
		// Also covers the partial tail word: fewer than 32 bits live there.
		v := (word << r.cbits) >> (wordBits - n)
		r.cbits += n
		return v, nil
	}

	v := word & (allOnes >> r.cbits)
	r.cwords++
	r.cbits = 0
	n -= avail
	if n > 0 {
		v = v<<n | r.buf[r.cwords]>>(wordBits-n)
		r.cbits = n
	}
	return v, nil
}

// ReadSignedBits reads n (1-32) bits as a two's complement value.
func (r *Reader) ReadSignedBits(n uint) (int32, error) {
	if n == 0 {
		return 0, nil
	}
	v, err := r.ReadBits(n)
	if err != nil {
		return 0, err
	}
	shift := wordBits - n
	return int32(v<<shift) >> shift, nil
}

// ReadBits64 reads n (0-64) bits as an unsigned value.
func (r *Reader) ReadBits64(n uint) (uint64, error) {
	if n <= 32 {
		v, err := r.ReadBits(n)
		return uint64(v), err
	}
	hi, err := r.ReadBits(n - 32)
	if err != nil {
		return 0, err
	}
	lo, err := r.ReadBits(32)
	if err != nil {
		return 0, err
	}
	return uint64(hi)<<32 | uint64(lo), nil
}

// ReadSignedBits64 reads n (1-64) bits as a two's complement value.
func (r *Reader) ReadSignedBits64(n uint) (int64, error) {
	if n == 0 {
		return 0, nil
	}
	v, err := r.ReadBits64(n)
	if err != nil {
		return 0, err
	}
	shift := 64 - n
	return int64(v<<shift) >> shift, nil
}

// ReadUint32LE reads a little-endian 32-bit value.
func (r *Reader) ReadUint32LE() (uint32, error) {
	var v uint32
	for i := uint(0); i < 4; i++ {
		b, err := r.ReadBits(8)
		if err != nil {
			return 0, err
		}
		v |= b << (8 * i)
	}
	return v, nil
}

// SkipBits discards n bits.
func (r *Reader) SkipBits(n uint) error {
	for n > 0 {
		k := n
		if k > 32 {
			k = 32
		}
		if _, err := r.ReadBits(k); err != nil {
			return err
		}
		n -= k
	}
	return nil
}

// ReadBytes fills p from a byte-aligned cursor.
func (r *Reader) ReadBytes(p []byte) error {
	if !r.IsConsumedByteAligned() {
		return ErrNotAligned
	}
	for i := range p {
		b, err := r.ReadBits(8)
		if err != nil {
			return err
		}
		p[i] = byte(b)
	}
	return nil
}

// SkipBytes discards n bytes from a byte-aligned cursor.
func (r *Reader) SkipBytes(n uint32) error {
	if !r.IsConsumedByteAligned() {
		return ErrNotAligned
	}
	if err := r.useLimit(uint(n) * 8); err != nil {
		return err
	}
	armed, budget := r.limitSet, r.limit
	r.limitSet = false
	defer func() { r.limitSet, r.limit = armed, budget }()

	// Head bytes up to the next word boundary, then whole words.
	for n > 0 && r.cbits != 0 {
		if _, err := r.ReadBits(8); err != nil {
			return err
		}
		n--
	}
	for n >= wordBytes {
		if r.cwords < r.words {
			r.cwords++
			n -= wordBytes
			continue
		}
		if err := r.fill(); err != nil {
			return err
		}
	}
	for ; n > 0; n-- {
		if _, err := r.ReadBits(8); err != nil {
			return err
		}
	}
	return nil
}

// ResetCRC16 restarts the frame CRC-16 at seed from the current,
// byte-aligned cursor.
func (r *Reader) ResetCRC16(seed uint16) {
	r.crc = seed
	r.crcOffset = r.cwords
	r.crcAlign = r.cbits
}

// CRC16 returns the CRC-16 of all bytes consumed since ResetCRC16. The
// cursor must be byte aligned.
func (r *Reader) CRC16() uint16 {
	r.foldCRC()
	if r.cbits > r.crcAlign {
		var tmp [wordBytes]byte
		binary.BigEndian.PutUint32(tmp[:], r.buf[r.cwords])
		r.crc = CRC16(r.crc, tmp[r.crcAlign/8:r.cbits/8])
		r.crcAlign = r.cbits
	}
	return r.crc
}

// foldCRC folds fully consumed words into the running CRC, once each.
func (r *Reader) foldCRC() {
	var tmp [wordBytes]byte
	for r.crcOffset < r.cwords {
		binary.BigEndian.PutUint32(tmp[:], r.buf[r.crcOffset])
		r.crc = CRC16(r.crc, tmp[r.crcAlign/8:])
		r.crcOffset++
		r.crcAlign = 0
	}
}

// SetFramesyncLocation bookmarks the current byte offset, which the
// decoder places just past a frame sync code.
func (r *Reader) SetFramesyncLocation() {
	r.framesync = r.cwords*wordBytes + int(r.cbits/8)
}

// RewindToAfterLastSeenFramesync restores the cursor to the bookmark. It
// returns false when the bookmarked bytes have already been discarded.
func (r *Reader) RewindToAfterLastSeenFramesync() bool {
	if r.framesync < 0 {
		return false
	}
	r.cwords = r.framesync / wordBytes
	r.cbits = uint(r.framesync%wordBytes) * 8
	r.crcOffset = r.cwords
	r.crcAlign = r.cbits
	return true
}
