// Package flac decodes and encodes FLAC (Free Lossless Audio Codec)
// streams in pure Go.
//
// # Decoding
//
// A Decoder pulls bytes through a Read callback and pushes metadata
// blocks, decoded frames and recoverable stream errors back through
// callbacks:
//
//	dec := flac.NewDecoder()
//	cb := flac.ReaderCallbacks(f) // f is an *os.File
//	cb.Write = func(fr *flac.Frame) error {
//	    // fr.Samples holds one slice per channel, valid until return.
//	    return nil
//	}
//	if err := dec.Init(cb); err != nil {
//	    log.Fatal(err)
//	}
//	if err := dec.ProcessUntilEndOfStream(); err != nil {
//	    log.Fatal(err)
//	}
//	if err := dec.Finish(); err != nil {
//	    log.Fatal(err) // ErrMD5Mismatch when the audio is damaged
//	}
//
// Corrupt frames do not stop decoding. The decoder reports them through
// the Error callback, resynchronizes on the next frame and fills short
// gaps in the sample numbering with silence, so the output keeps its
// length.
//
// SeekAbsolute positions a decoder reading a seekable input on any sample.
// It uses the stream's SEEKTABLE when there is one.
//
// # Encoding
//
// An Encoder writes a stream with fixed and LPC prediction, Rice-coded
// residuals and stereo decorrelation:
//
//	enc, err := flac.NewEncoder(w, flac.EncoderConfig{
//	    SampleRate:    44100,
//	    Channels:      2,
//	    BitsPerSample: 16,
//	})
//	...
//	err = enc.Write(samples) // [][]int32, one slice per channel
//	...
//	err = enc.Close()
//
// When w is an io.WriteSeeker, Close rewrites STREAMINFO with the final
// sample count and MD5 signature and fills in the seek table.
//
// # Thread Safety
//
// Decoder and Encoder instances are not safe for concurrent use. Each
// goroutine should have its own.
package flac
