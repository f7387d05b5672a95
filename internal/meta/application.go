package meta

import "github.com/llehouerou/go-flac/internal/bits"

// Application carries data for a registered third-party application.
type Application struct {
	ID   [4]byte
	Data []byte
}

// Type implements Body.
func (*Application) Type() Type { return TypeApplication }

func readApplication(r *bits.Reader, length uint32) (*Application, error) {
	a := &Application{}
	if err := r.ReadBytes(a.ID[:]); err != nil {
		return nil, err
	}
	if length < 4 {
		return nil, ErrBadMetadata
	}
	data, err := readBytes(r, length-4)
	if err != nil {
		return nil, err
	}
	a.Data = data
	return a, nil
}

// Padding is reserved space. Its content is not read.
type Padding struct {
	Length uint32
}

// Type implements Body.
func (*Padding) Type() Type { return TypePadding }

// Unknown is a block of a type this package does not parse.
type Unknown struct {
	BlockType Type
	Data      []byte
}

// Type implements Body.
func (u *Unknown) Type() Type { return u.BlockType }
