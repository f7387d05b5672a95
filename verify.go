package flac

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
)

var errNoFrame = errors.New("no frame decoded")

// verifier decodes the encoder's own output as it is produced. The
// encoder feeds it one frame at a time and checks the block that comes
// back against the input.
type verifier struct {
	dec    *Decoder
	fifo   bytes.Buffer
	want   [][]int32
	sample uint64
	got    bool
	err    error
}

func newVerifier(log *slog.Logger) (*verifier, error) {
	v := &verifier{dec: NewDecoder()}
	v.dec.SetConfiguration(Config{Logger: log})
	err := v.dec.Init(Callbacks{
		Read:  v.read,
		Write: v.write,
		Error: v.report,
	})
	return v, err
}

func (v *verifier) read(p []byte) (int, error) {
	if v.fifo.Len() == 0 {
		return 0, io.EOF
	}
	return v.fifo.Read(p)
}

// start decodes the stream marker and metadata.
func (v *verifier) start(head []byte) error {
	v.fifo.Write(head)
	if err := v.dec.ProcessUntilEndOfMetadata(); err != nil {
		return &VerifyError{Err: err}
	}
	return v.err
}

// check decodes one frame and compares it with want, the block of input
// starting at sample.
func (v *verifier) check(frame []byte, want [][]int32, sample uint64) error {
	v.fifo.Write(frame)
	v.want = want
	v.sample = sample
	v.got = false
	if err := v.dec.ProcessSingle(); err != nil && v.err == nil {
		v.err = &VerifyError{Sample: sample, Err: err}
	}
	if v.err == nil && !v.got {
		v.err = &VerifyError{Sample: sample, Err: errNoFrame}
	}
	return v.err
}

func (v *verifier) write(f *Frame) error {
	v.got = true
	if f.Header.SampleNumber != v.sample || int(f.Header.BlockSize) != len(v.want[0]) {
		v.err = &VerifyError{Sample: f.Header.SampleNumber, Err: errNoFrame}
		return v.err
	}
	for c, want := range v.want {
		got := f.Samples[c]
		for i := range want {
			if got[i] != want[i] {
				v.err = &VerifyError{
					Sample:  v.sample + uint64(i),
					Channel: c,
					Want:    want[i],
					Got:     got[i],
				}
				return v.err
			}
		}
	}
	return nil
}

func (v *verifier) report(s ErrorStatus) {
	if v.err == nil {
		v.err = &VerifyError{Sample: v.sample, Err: s}
	}
}

func (v *verifier) finish() error {
	if err := v.dec.Finish(); err != nil && v.err == nil {
		v.err = &VerifyError{Sample: v.sample, Err: err}
	}
	return v.err
}
