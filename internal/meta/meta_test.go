package meta

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/icza/bitio"
	"github.com/llehouerou/go-flac/internal/bits"
)

func newReader(data []byte) *bits.Reader {
	return bits.NewReader(func(p []byte) (int, error) {
		if len(data) == 0 {
			return 0, io.EOF
		}
		n := copy(p, data)
		data = data[n:]
		return n, nil
	})
}

// readBlock parses one block and checks the byte that follows it.
func readBlock(t *testing.T, data []byte) (Header, Body) {
	t.Helper()
	r := newReader(append(data, 0xA5))
	h, err := ReadHeader(r)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	body, err := ReadBody(r, h)
	if err != nil {
		t.Fatalf("ReadBody: %v", err)
	}
	next, err := r.ReadBits(8)
	if err != nil || next != 0xA5 {
		t.Fatalf("byte after block = %#x, %v, want 0xa5", next, err)
	}
	return h, body
}

func TestMarshal_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		body Body
		last bool
	}{
		{
			name: "streaminfo",
			body: &StreamInfo{
				MinBlockSize: 4096, MaxBlockSize: 4096,
				MinFrameSize: 14, MaxFrameSize: 12345,
				SampleRate: 44100, Channels: 2, BitsPerSample: 16,
				TotalSamples: 1<<36 - 1,
				MD5:          [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
			},
		},
		{
			name: "seektable",
			body: &SeekTable{Points: []SeekPoint{
				{SampleNumber: 0, StreamOffset: 0, FrameSamples: 4096},
				{SampleNumber: 441000, StreamOffset: 123456, FrameSamples: 4096},
				{SampleNumber: PlaceholderSample},
			}},
		},
		{
			name: "vorbis comment",
			body: &VorbisComment{
				Vendor:   "go-flac",
				Comments: []string{"TITLE=Señor", "ARTIST=Someone", "ARTIST=Someone Else"},
			},
			last: true,
		},
		{
			name: "application",
			body: &Application{ID: [4]byte{'t', 'e', 's', 't'}, Data: []byte{0, 1, 2}},
		},
		{
			name: "padding",
			body: &Padding{Length: 1024},
			last: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Marshal(tt.body, tt.last)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			h, body := readBlock(t, data)
			if h.Type != tt.body.Type() {
				t.Errorf("Type = %v, want %v", h.Type, tt.body.Type())
			}
			if h.IsLast != tt.last {
				t.Errorf("IsLast = %v, want %v", h.IsLast, tt.last)
			}
			if int(h.Length) != len(data)-HeaderLen {
				t.Errorf("Length = %d, want %d", h.Length, len(data)-HeaderLen)
			}
			if !reflect.DeepEqual(body, tt.body) {
				t.Errorf("body = %+v, want %+v", body, tt.body)
			}
		})
	}
}

func TestMarshal_StreamInfoLen(t *testing.T) {
	data, err := Marshal(&StreamInfo{Channels: 1, BitsPerSample: 8}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != HeaderLen+StreamInfoLen {
		t.Errorf("len = %d, want %d", len(data), HeaderLen+StreamInfoLen)
	}
}

func TestMarshal_Unsupported(t *testing.T) {
	if _, err := Marshal(&Picture{}, false); !errors.Is(err, ErrUnsupportedBody) {
		t.Errorf("err = %v, want ErrUnsupportedBody", err)
	}
}

func TestReadBody_CueSheet(t *testing.T) {
	var buf bytes.Buffer
	w := bitio.NewWriter(&buf)
	catalog := make([]byte, 128)
	copy(catalog, "1234567890123")
	w.TryWrite(catalog)
	w.TryWriteBits(88200, 64)
	w.TryWriteBool(true)
	w.TryWriteBits(0, 7)
	w.TryWrite(make([]byte, 258))
	w.TryWriteBits(2, 8)

	// Track 1 with two indices, track 170 (lead-out) with none.
	w.TryWriteBits(0, 64)
	w.TryWriteBits(1, 8)
	w.TryWrite([]byte("USABC1234567"))
	w.TryWriteBits(0b01, 2)
	w.TryWriteBits(0, 6)
	w.TryWrite(make([]byte, 13))
	w.TryWriteBits(2, 8)
	for i, off := range []uint64{0, 588 * 75} {
		w.TryWriteBits(off, 64)
		w.TryWriteBits(uint64(i), 8)
		w.TryWriteBits(0, 24)
	}
	w.TryWriteBits(441000, 64)
	w.TryWriteBits(170, 8)
	w.TryWrite(make([]byte, 12))
	w.TryWriteBits(0b10, 2)
	w.TryWriteBits(0, 6)
	w.TryWrite(make([]byte, 13))
	w.TryWriteBits(0, 8)
	if w.TryError != nil {
		t.Fatal(w.TryError)
	}
	_ = w.Close()

	header := []byte{byte(TypeCueSheet), 0, byte(buf.Len() >> 8), byte(buf.Len())}
	_, body := readBlock(t, append(header, buf.Bytes()...))

	want := &CueSheet{
		MediaCatalogNumber: "1234567890123",
		LeadIn:             88200,
		IsCD:               true,
		Tracks: []CueSheetTrack{
			{
				Offset: 0, Number: 1, ISRC: "USABC1234567", IsAudio: true, PreEmphasis: true,
				Indices: []CueSheetIndex{{Offset: 0, Number: 0}, {Offset: 588 * 75, Number: 1}},
			},
			{Offset: 441000, Number: 170, IsAudio: false, Indices: []CueSheetIndex{}},
		},
	}
	if !reflect.DeepEqual(body, want) {
		t.Errorf("body = %+v, want %+v", body, want)
	}
}

func TestReadBody_Picture(t *testing.T) {
	var buf bytes.Buffer
	w := bitio.NewWriter(&buf)
	w.TryWriteBits(uint64(PictureFrontCover), 32)
	w.TryWriteBits(9, 32)
	w.TryWrite([]byte("image/png"))
	w.TryWriteBits(5, 32)
	w.TryWrite([]byte("cover"))
	for _, v := range []uint64{600, 400, 24, 0} {
		w.TryWriteBits(v, 32)
	}
	w.TryWriteBits(4, 32)
	w.TryWrite([]byte{0x89, 'P', 'N', 'G'})
	_ = w.Close()

	header := []byte{0x80 | byte(TypePicture), 0, 0, byte(buf.Len())}
	h, body := readBlock(t, append(header, buf.Bytes()...))
	if !h.IsLast {
		t.Error("IsLast = false, want true")
	}
	want := &Picture{
		PictureType: PictureFrontCover, MIME: "image/png", Description: "cover",
		Width: 600, Height: 400, Depth: 24, Data: []byte{0x89, 'P', 'N', 'G'},
	}
	if !reflect.DeepEqual(body, want) {
		t.Errorf("body = %+v, want %+v", body, want)
	}
}

func TestReadBody_Unknown(t *testing.T) {
	_, body := readBlock(t, []byte{9, 0, 0, 3, 'a', 'b', 'c'})
	u, ok := body.(*Unknown)
	if !ok {
		t.Fatalf("body = %T, want *Unknown", body)
	}
	if u.Type() != 9 || string(u.Data) != "abc" {
		t.Errorf("body = %+v, want type 9 data abc", u)
	}
}

func TestReadBody_TrailingBytesSkipped(t *testing.T) {
	// One seek point plus two spare bytes.
	data := append([]byte{byte(TypeSeekTable), 0, 0, 20}, make([]byte, 20)...)
	data[4+17] = 7 // frame samples
	_, body := readBlock(t, data)
	st := body.(*SeekTable)
	if len(st.Points) != 1 || st.Points[0].FrameSamples != 7 {
		t.Errorf("points = %+v, want one point of 7 samples", st.Points)
	}
}

func TestReadBody_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"short streaminfo", append([]byte{0, 0, 0, 20}, make([]byte, 40)...)},
		{"vorbis vendor overrun", append([]byte{4, 0, 0, 8}, 0xFF, 0, 0, 0, 0, 0, 0, 0, 0, 0)},
		{"vorbis comment count overrun", append([]byte{4, 0, 0, 8}, 0, 0, 0, 0, 0xFF, 0xFF, 0, 0, 0, 0)},
		{"short application", append([]byte{2, 0, 0, 2}, 'a', 'b', 'c', 'd')},
		{"picture data overrun", append([]byte{6, 0, 0, 32}, make([]byte, 40)...)},
	}
	tests[4].data[4+31] = 200 // data length
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newReader(tt.data)
			h, err := ReadHeader(r)
			if err != nil {
				t.Fatalf("ReadHeader: %v", err)
			}
			if _, err := ReadBody(r, h); !errors.Is(err, ErrBadMetadata) {
				t.Errorf("err = %v, want ErrBadMetadata", err)
			}
		})
	}
}

func TestReadHeader_InvalidType(t *testing.T) {
	if _, err := ReadHeader(newReader([]byte{0xFF, 0, 0, 0})); !errors.Is(err, ErrInvalidType) {
		t.Errorf("err = %v, want ErrInvalidType", err)
	}
}

func TestSkip(t *testing.T) {
	r := newReader([]byte{1, 0, 0, 5, 0, 0, 0, 0, 0, 'x'})
	h, err := ReadHeader(r)
	if err != nil {
		t.Fatal(err)
	}
	if err := Skip(r, h); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if x, _ := r.ReadBits(8); x != 'x' {
		t.Errorf("next byte = %q, want 'x'", x)
	}
}

func TestSkipID3v2(t *testing.T) {
	// Version 4.0, no flags, syncsafe size 130 (0x01 0x02).
	tag := []byte{4, 0, 0, 0, 0, 1, 2}
	data := append(tag, make([]byte, 130)...)
	data = append(data, 'f', 'L', 'a', 'C')
	r := newReader(data)
	if err := SkipID3v2(r); err != nil {
		t.Fatalf("SkipID3v2: %v", err)
	}
	if x, _ := r.ReadBits(32); x != 0x664C6143 {
		t.Errorf("next word = %#x, want fLaC", x)
	}
}

func TestVorbisComment_Get(t *testing.T) {
	vc := &VorbisComment{Comments: []string{"ARTIST=a", "title=t", "artist=b", "broken"}}
	if got := vc.Get("Artist"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Get(Artist) = %v, want [a b]", got)
	}
	if got := vc.Get("ALBUM"); got != nil {
		t.Errorf("Get(ALBUM) = %v, want nil", got)
	}
}
