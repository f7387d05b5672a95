package meta

import "github.com/llehouerou/go-flac/internal/bits"

// PlaceholderSample marks an unused seek point.
const PlaceholderSample = ^uint64(0)

// SeekPointLen is the size of a seek point in bytes.
const SeekPointLen = 18

// SeekPoint locates the frame starting at SampleNumber, StreamOffset bytes
// after the first frame header.
type SeekPoint struct {
	SampleNumber uint64
	StreamOffset uint64
	FrameSamples uint32
}

// IsPlaceholder reports whether p is an unused point.
func (p SeekPoint) IsPlaceholder() bool {
	return p.SampleNumber == PlaceholderSample
}

// SeekTable lists seek points in ascending sample order, placeholders
// last.
type SeekTable struct {
	Points []SeekPoint
}

// Type implements Body.
func (*SeekTable) Type() Type { return TypeSeekTable }

func readSeekTable(r *bits.Reader, length uint32) (*SeekTable, error) {
	st := &SeekTable{Points: make([]SeekPoint, length/SeekPointLen)}
	for i := range st.Points {
		p := &st.Points[i]
		var err error
		if p.SampleNumber, err = r.ReadBits64(64); err != nil {
			return nil, err
		}
		if p.StreamOffset, err = r.ReadBits64(64); err != nil {
			return nil, err
		}
		if p.FrameSamples, err = r.ReadBits(16); err != nil {
			return nil, err
		}
	}
	return st, nil
}
