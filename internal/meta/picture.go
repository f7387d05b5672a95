package meta

import "github.com/llehouerou/go-flac/internal/bits"

// PictureType is the ID3v2 APIC picture type.
type PictureType uint32

// Common picture types.
const (
	PictureOther      PictureType = 0
	PictureFileIcon   PictureType = 1
	PictureFrontCover PictureType = 3
	PictureBackCover  PictureType = 4
)

// Picture is embedded artwork.
type Picture struct {
	PictureType PictureType
	MIME        string
	Description string
	Width       uint32
	Height      uint32
	Depth       uint32 // bits per pixel
	Colors      uint32 // palette size, 0 for non-indexed images
	Data        []byte
}

// Type implements Body.
func (*Picture) Type() Type { return TypePicture }

func readPicture(r *bits.Reader) (*Picture, error) {
	p := &Picture{}
	t, err := r.ReadBits(32)
	if err != nil {
		return nil, err
	}
	p.PictureType = PictureType(t)

	if p.MIME, err = readBEString(r); err != nil {
		return nil, err
	}
	if p.Description, err = readBEString(r); err != nil {
		return nil, err
	}
	for _, dst := range []*uint32{&p.Width, &p.Height, &p.Depth, &p.Colors} {
		if *dst, err = r.ReadBits(32); err != nil {
			return nil, err
		}
	}

	n, err := r.ReadBits(32)
	if err != nil {
		return nil, err
	}
	if p.Data, err = readBytes(r, n); err != nil {
		return nil, err
	}
	return p, nil
}

func readBEString(r *bits.Reader) (string, error) {
	n, err := r.ReadBits(32)
	if err != nil {
		return "", err
	}
	b, err := readBytes(r, n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
