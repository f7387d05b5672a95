package meta

import (
	"bytes"
	"encoding/binary"

	"github.com/icza/bitio"
)

// MaxBodyLen is the largest body the 24-bit length field can describe.
const MaxBodyLen = 1<<24 - 1

// Marshal encodes body as a complete metadata block. Supported bodies are
// StreamInfo, SeekTable, VorbisComment, Application and Padding.
func Marshal(body Body, last bool) ([]byte, error) {
	var b bytes.Buffer
	w := bitio.NewWriter(&b)
	switch v := body.(type) {
	case *StreamInfo:
		writeStreamInfo(w, v)
	case *SeekTable:
		for _, p := range v.Points {
			w.TryWriteBits(p.SampleNumber, 64)
			w.TryWriteBits(p.StreamOffset, 64)
			w.TryWriteBits(uint64(p.FrameSamples), 16)
		}
	case *VorbisComment:
		writeLEString(w, v.Vendor)
		w.TryWrite(binary.LittleEndian.AppendUint32(nil, uint32(len(v.Comments))))
		for _, c := range v.Comments {
			writeLEString(w, c)
		}
	case *Application:
		w.TryWrite(v.ID[:])
		w.TryWrite(v.Data)
	case *Padding:
		w.TryWrite(make([]byte, v.Length))
	default:
		return nil, ErrUnsupportedBody
	}
	if w.TryError != nil {
		return nil, w.TryError
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	if b.Len() > MaxBodyLen {
		return nil, ErrBlockTooLarge
	}

	out := make([]byte, HeaderLen, HeaderLen+b.Len())
	binary.BigEndian.PutUint32(out, uint32(body.Type())<<24|uint32(b.Len()))
	if last {
		out[0] |= 0x80
	}
	return append(out, b.Bytes()...), nil
}

func writeStreamInfo(w *bitio.Writer, si *StreamInfo) {
	w.TryWriteBits(uint64(si.MinBlockSize), 16)
	w.TryWriteBits(uint64(si.MaxBlockSize), 16)
	w.TryWriteBits(uint64(si.MinFrameSize), 24)
	w.TryWriteBits(uint64(si.MaxFrameSize), 24)
	w.TryWriteBits(uint64(si.SampleRate), 20)
	w.TryWriteBits(uint64(si.Channels-1), 3)
	w.TryWriteBits(uint64(si.BitsPerSample-1), 5)
	w.TryWriteBits(si.TotalSamples, 36)
	w.TryWrite(si.MD5[:])
}

func writeLEString(w *bitio.Writer, s string) {
	w.TryWrite(binary.LittleEndian.AppendUint32(nil, uint32(len(s))))
	w.TryWrite([]byte(s))
}
