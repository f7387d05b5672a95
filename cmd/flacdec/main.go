// Command flacdec decodes FLAC files to WAV or raw PCM, and reports on
// their structure.
//
// Usage:
//
//	flacdec [flags] input.flac
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/llehouerou/go-flac"
	"github.com/llehouerou/go-flac/internal/config"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "flacdec:", err)
		}
		os.Exit(1)
	}
}

type options struct {
	input   string
	output  string
	info    bool
	analyze bool
	seek    uint64
	count   uint64
	dec     config.DecodeConfig
	log     config.LogConfig
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("flacdec", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "YAML settings file")
		output     = fs.String("o", "", "output file, - for stdout (default: input with .wav or .raw)")
		format     = fs.String("format", "", "output format: wav or raw")
		bitDepth   = fs.Uint("bits", 0, "output bit depth (default: the stream's, rounded up to whole bytes)")
		downmix    = fs.Bool("downmix", false, "fold the channels into stereo")
		md5        = fs.Bool("md5", false, "check the decoded audio against the STREAMINFO signature")
		info       = fs.Bool("info", false, "print the stream metadata as JSON and exit")
		analyze    = fs.Bool("analyze", false, "print one JSON line per frame instead of decoding")
		seek       = fs.Uint64("seek", 0, "first sample to decode")
		count      = fs.Uint64("count", 0, "number of samples to decode (default: all)")
		logLevel   = fs.String("log-level", "", "debug, info, warn or error")
		logFile    = fs.String("log-file", "", "also append logs to this file")
	)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: flacdec [flags] input.flac")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, errors.New("expected one input file")
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return nil, err
		}
	}
	// Flags given on the command line win over the file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "format":
			cfg.Decode.Format = *format
		case "bits":
			cfg.Decode.BitDepth = *bitDepth
		case "downmix":
			cfg.Decode.Downmix = *downmix
		case "md5":
			cfg.Decode.MD5 = *md5
		case "log-level":
			cfg.Log.Level = *logLevel
		case "log-file":
			cfg.Log.File = *logFile
		}
	})
	if cfg.Decode.Format != "wav" && cfg.Decode.Format != "raw" {
		return nil, fmt.Errorf("format %q: want wav or raw", cfg.Decode.Format)
	}
	if d := cfg.Decode.BitDepth; d != 0 && (d < 4 || d > 32) {
		return nil, fmt.Errorf("bit depth %d out of range", d)
	}

	o := &options{
		input:   fs.Arg(0),
		output:  *output,
		info:    *info,
		analyze: *analyze,
		seek:    *seek,
		count:   *count,
		dec:     cfg.Decode,
		log:     cfg.Log,
	}
	if o.output == "" {
		o.output = strings.TrimSuffix(o.input, ".flac") + "." + cfg.Decode.Format
	}
	return o, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	log, closeLog, err := config.NewLogger(o.log, stderr)
	if err != nil {
		return err
	}
	defer func() {
		_ = closeLog()
	}()

	in, err := os.Open(o.input)
	if err != nil {
		return err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(in)

	switch {
	case o.info:
		return printInfo(in, stdout, log)
	case o.analyze:
		w := bufio.NewWriter(stdout)
		if err := analyze(in, w, log); err != nil {
			return err
		}
		return w.Flush()
	}
	return decodeFile(in, o, stdout, log)
}

// newDecoder opens a decoder on in with the caller's write callback.
func newDecoder(in io.Reader, cfg flac.Config, write func(*flac.Frame) error, log *slog.Logger) (*flac.Decoder, error) {
	dec := flac.NewDecoder()
	cfg.Logger = log
	dec.SetConfiguration(cfg)
	cb := flac.ReaderCallbacks(in)
	cb.Write = write
	cb.Error = func(s flac.ErrorStatus) {
		pos, _ := dec.DecodePosition()
		log.Warn("stream error", "status", s.String(), "offset", pos)
	}
	if err := dec.Init(cb); err != nil {
		return nil, err
	}
	return dec, nil
}

// errDone stops decoding once the requested samples are out.
var errDone = errors.New("done")

func decodeFile(in io.Reader, o *options, stdout io.Writer, log *slog.Logger) error {
	var pcm *sink
	remaining := o.count
	dec, err := newDecoder(in, flac.Config{MD5Checking: o.dec.MD5 && o.count == 0}, func(f *flac.Frame) error {
		samples := f.Samples
		if o.count > 0 {
			if remaining == 0 {
				return errDone
			}
			if n := uint64(f.Header.BlockSize); n > remaining {
				samples = make([][]int32, len(f.Samples))
				for c := range samples {
					samples[c] = f.Samples[c][:remaining]
				}
			}
			remaining -= min(remaining, uint64(f.Header.BlockSize))
		}
		return pcm.write(samples, f.Header.BitsPerSample)
	}, log)
	if err != nil {
		return err
	}
	if err := dec.ProcessUntilEndOfMetadata(); err != nil {
		return err
	}
	si, ok := dec.StreamInfo()
	if !ok {
		return errors.New("no STREAMINFO block; cannot size the output")
	}

	out, closeOut, err := openOutput(o.output, stdout)
	if err != nil {
		return err
	}
	pcm, err = newSink(out, o.dec, si)
	if err != nil {
		_ = closeOut()
		return err
	}
	log.Debug("decoding", "input", o.input, "output", o.output,
		"rate", si.SampleRate, "channels", si.Channels, "bits", si.BitsPerSample, "samples", si.TotalSamples)

	if o.seek > 0 {
		if err := dec.SeekAbsolute(o.seek); err != nil {
			_ = closeOut()
			return err
		}
	}
	err = dec.ProcessUntilEndOfStream()
	if errors.Is(err, errDone) {
		err = nil
	}
	if err == nil {
		err = pcm.close()
	}
	if cerr := closeOut(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	checked := o.dec.MD5 && o.seek == 0 && o.count == 0 && si.MD5 != [16]byte{}
	if err := dec.Finish(); err != nil {
		return err
	}
	if checked {
		log.Info("MD5 signature matches", "md5", fmt.Sprintf("%x", si.MD5))
	}
	return nil
}

func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
