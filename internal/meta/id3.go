package meta

import "github.com/llehouerou/go-flac/internal/bits"

// SkipID3v2 discards the rest of an ID3v2 tag whose "ID3" identifier has
// already been read. Some taggers prepend one to the "fLaC" marker.
func SkipID3v2(r *bits.Reader) error {
	// Version (2 bytes) and flags.
	if err := r.SkipBits(24); err != nil {
		return err
	}
	// Syncsafe size: 4 bytes of 7 bits each.
	var size uint32
	for i := 0; i < 4; i++ {
		x, err := r.ReadBits(8)
		if err != nil {
			return err
		}
		size = size<<7 | x&0x7F
	}
	return r.SkipBytes(size)
}
