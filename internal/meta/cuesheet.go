package meta

import (
	"strings"

	"github.com/llehouerou/go-flac/internal/bits"
)

// CueSheet describes the track layout of a CD or other medium.
type CueSheet struct {
	MediaCatalogNumber string
	LeadIn             uint64 // samples
	IsCD               bool
	Tracks             []CueSheetTrack
}

// CueSheetTrack is one track of a cue sheet.
type CueSheetTrack struct {
	Offset      uint64 // samples
	Number      uint8
	ISRC        string
	IsAudio     bool
	PreEmphasis bool
	Indices     []CueSheetIndex
}

// CueSheetIndex is an index point within a track.
type CueSheetIndex struct {
	Offset uint64 // samples, relative to the track offset
	Number uint8
}

// Type implements Body.
func (*CueSheet) Type() Type { return TypeCueSheet }

// Cue sheet field widths.
const (
	cueCatalogLen   = 128
	cueReservedBits = 7 + 258*8
	trackISRCLen    = 12
	trackReserved   = 6 + 13*8
	indexReserved   = 3 * 8
)

func readCueSheet(r *bits.Reader) (*CueSheet, error) {
	cs := &CueSheet{}
	catalog := make([]byte, cueCatalogLen)
	if err := r.ReadBytes(catalog); err != nil {
		return nil, err
	}
	cs.MediaCatalogNumber = strings.TrimRight(string(catalog), "\x00")

	var err error
	if cs.LeadIn, err = r.ReadBits64(64); err != nil {
		return nil, err
	}
	x, err := r.ReadBits(1)
	if err != nil {
		return nil, err
	}
	cs.IsCD = x != 0
	if err := r.SkipBits(cueReservedBits); err != nil {
		return nil, err
	}

	n, err := r.ReadBits(8)
	if err != nil {
		return nil, err
	}
	cs.Tracks = make([]CueSheetTrack, n)
	for i := range cs.Tracks {
		if err := readCueSheetTrack(r, &cs.Tracks[i]); err != nil {
			return nil, err
		}
	}
	return cs, nil
}

func readCueSheetTrack(r *bits.Reader, t *CueSheetTrack) error {
	var err error
	if t.Offset, err = r.ReadBits64(64); err != nil {
		return err
	}
	num, err := r.ReadBits(8)
	if err != nil {
		return err
	}
	t.Number = uint8(num)

	isrc := make([]byte, trackISRCLen)
	if err := r.ReadBytes(isrc); err != nil {
		return err
	}
	t.ISRC = strings.TrimRight(string(isrc), "\x00")

	flags, err := r.ReadBits(2)
	if err != nil {
		return err
	}
	t.IsAudio = flags&2 == 0
	t.PreEmphasis = flags&1 != 0
	if err := r.SkipBits(trackReserved); err != nil {
		return err
	}

	n, err := r.ReadBits(8)
	if err != nil {
		return err
	}
	t.Indices = make([]CueSheetIndex, n)
	for i := range t.Indices {
		idx := &t.Indices[i]
		if idx.Offset, err = r.ReadBits64(64); err != nil {
			return err
		}
		num, err := r.ReadBits(8)
		if err != nil {
			return err
		}
		idx.Number = uint8(num)
		if err := r.SkipBits(indexReserved); err != nil {
			return err
		}
	}
	return nil
}
