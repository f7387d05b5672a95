package meta

import (
	"strings"

	"github.com/llehouerou/go-flac/internal/bits"
)

// VorbisComment holds the vendor string and NAME=value tags. Lengths are
// little-endian on the wire.
type VorbisComment struct {
	Vendor   string
	Comments []string
}

// Type implements Body.
func (*VorbisComment) Type() Type { return TypeVorbisComment }

// Get returns the values of every comment whose name matches name, ignoring
// case.
func (vc *VorbisComment) Get(name string) []string {
	var out []string
	for _, c := range vc.Comments {
		k, v, ok := strings.Cut(c, "=")
		if ok && strings.EqualFold(k, name) {
			out = append(out, v)
		}
	}
	return out
}

func readVorbisComment(r *bits.Reader) (*VorbisComment, error) {
	vc := &VorbisComment{}
	vendor, err := readLEString(r)
	if err != nil {
		return nil, err
	}
	vc.Vendor = vendor

	n, err := r.ReadUint32LE()
	if err != nil {
		return nil, err
	}
	// Each comment takes at least its 4-byte length.
	if uint64(n)*32 > uint64(r.LimitRemaining()) {
		return nil, ErrBadMetadata
	}
	vc.Comments = make([]string, n)
	for i := range vc.Comments {
		if vc.Comments[i], err = readLEString(r); err != nil {
			return nil, err
		}
	}
	return vc, nil
}

func readLEString(r *bits.Reader) (string, error) {
	n, err := r.ReadUint32LE()
	if err != nil {
		return "", err
	}
	p, err := readBytes(r, n)
	if err != nil {
		return "", err
	}
	return string(p), nil
}
