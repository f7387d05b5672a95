package output

import (
	"crypto/md5"
	"hash"
)

// MD5 accumulates the signature of decoded audio as stored in STREAMINFO.
type MD5 struct {
	h   hash.Hash
	buf []byte
}

// NewMD5 returns an empty signature.
func NewMD5() *MD5 {
	return &MD5{h: md5.New()}
}

// Write adds one block of bps-bit samples.
func (m *MD5) Write(channels [][]int32, bps uint) {
	m.buf = AppendInterleavedLE(m.buf[:0], channels, bps)
	m.h.Write(m.buf)
}

// Sum returns the signature of everything written so far.
func (m *MD5) Sum() [16]byte {
	var out [16]byte
	m.h.Sum(out[:0])
	return out
}

// Reset discards everything written.
func (m *MD5) Reset() {
	m.h.Reset()
}
