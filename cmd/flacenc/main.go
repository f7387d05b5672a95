// Command flacenc encodes WAV files to FLAC.
//
// Usage:
//
//	flacenc [flags] input.wav
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/llehouerou/go-flac"
	"github.com/llehouerou/go-flac/internal/config"
)

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "flacenc:", err)
		}
		os.Exit(1)
	}
}

type options struct {
	input  string
	output string
	enc    config.EncodeConfig
	log    config.LogConfig
}

// tagList collects repeated -tag flags.
type tagList []string

func (t *tagList) String() string { return strings.Join(*t, ", ") }

func (t *tagList) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("tag %q: want NAME=value", v)
	}
	*t = append(*t, v)
	return nil
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("flacenc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var tags tagList
	var (
		configPath     = fs.String("config", "", "YAML settings file")
		output         = fs.String("o", "", "output file (default: input with .flac)")
		blockSize      = fs.Uint("blocksize", flac.DefaultBlockSize, "samples per block")
		lpcOrder       = fs.Int("lpc-order", flac.DefaultMaxLPCOrder, "highest LPC order, 0 for fixed predictors only")
		precision      = fs.Uint("qlp-precision", 0, "quantized LPC coefficient precision (default: by blocksize)")
		partitionOrder = fs.Uint("partition-order", flac.DefaultMaxPartitionOrder, "highest Rice partition order")
		exhaustive     = fs.Bool("exhaustive", false, "try every LPC order")
		stereo         = fs.String("stereo", "search", "stereo coding: search, independent or mid-side")
		seekPoints     = fs.Int("seekpoints", 100, "seek table size")
		padding        = fs.Uint("padding", 4096, "PADDING block size")
		verify         = fs.Bool("verify", false, "decode every frame as it is written and compare")
		logLevel       = fs.String("log-level", "", "debug, info, warn or error")
		logFile        = fs.String("log-file", "", "also append logs to this file")
	)
	fs.Var(&tags, "tag", "NAME=value Vorbis comment, repeatable")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: flacenc [flags] input.wav")
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
	e := &cfg.Encode
	if e.BlockSize == 0 {
		e.BlockSize = uint32(*blockSize)
	}
	if e.MaxLPCOrder == 0 {
		e.MaxLPCOrder = *lpcOrder
	}
	if e.MaxPartitionOrder == 0 {
		e.MaxPartitionOrder = *partitionOrder
	}
	// Flags given on the command line win over the file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "blocksize":
			e.BlockSize = uint32(*blockSize)
		case "lpc-order":
			e.MaxLPCOrder = *lpcOrder
		case "qlp-precision":
			e.QLPCoeffPrecision = *precision
		case "partition-order":
			e.MaxPartitionOrder = *partitionOrder
		case "exhaustive":
			e.ExhaustiveLPC = *exhaustive
		case "stereo":
			e.Stereo = *stereo
		case "seekpoints":
			e.SeekPoints = *seekPoints
		case "padding":
			e.Padding = uint32(*padding)
		case "verify":
			e.Verify = *verify
		case "tag":
			e.Tags = append(e.Tags, tags...)
		case "log-level":
			cfg.Log.Level = *logLevel
		case "log-file":
			cfg.Log.File = *logFile
		}
	})

	o := &options{input: fs.Arg(0), output: *output, enc: cfg.Encode, log: cfg.Log}
	if o.output == "" {
		o.output = strings.TrimSuffix(o.input, ".wav") + ".flac"
	}
	return o, nil
}

func stereoMode(name string) (flac.StereoMode, error) {
	switch name {
	case "", "search":
		return flac.StereoSearch, nil
	case "independent":
		return flac.StereoIndependent, nil
	case "mid-side":
		return flac.StereoMidSide, nil
	}
	return 0, fmt.Errorf("stereo mode %q: want search, independent or mid-side", name)
}

func run(args []string, stderr io.Writer) error {
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
	return encodeFile(o, log)
}

func encodeFile(o *options, log *slog.Logger) error {
	in, err := os.Open(o.input)
	if err != nil {
		return err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(in)

	d := wav.NewDecoder(in)
	if !d.IsValidFile() {
		return fmt.Errorf("%s: not a PCM WAV file", o.input)
	}
	if d.WavAudioFormat != wavPCM && d.WavAudioFormat != wavExtensible {
		return fmt.Errorf("%s: WAV format %d, want PCM", o.input, d.WavAudioFormat)
	}
	stereo, err := stereoMode(o.enc.Stereo)
	if err != nil {
		return err
	}
	if err := d.FwdToPCM(); err != nil {
		return fmt.Errorf("%s: %w", o.input, err)
	}

	channels, bps := int(d.NumChans), int(d.BitDepth)
	cfg := flac.EncoderConfig{
		SampleRate:        d.SampleRate,
		Channels:          uint32(channels),
		BitsPerSample:     uint32(bps),
		BlockSize:         o.enc.BlockSize,
		MaxLPCOrder:       o.enc.MaxLPCOrder,
		QLPCoeffPrecision: o.enc.QLPCoeffPrecision,
		MaxPartitionOrder: o.enc.MaxPartitionOrder,
		ExhaustiveLPC:     o.enc.ExhaustiveLPC,
		Stereo:            stereo,
		SeekPoints:        o.enc.SeekPoints,
		Vendor:            o.enc.Vendor,
		Tags:              o.enc.Tags,
		Padding:           o.enc.Padding,
		Verify:            o.enc.Verify,
		Logger:            log,
	}
	if frame := int64(channels * bps / 8); frame > 0 {
		cfg.TotalSamples = uint64(d.PCMLen() / frame)
	}
	// An LPC order of 0 selects fixed predictors only.
	if cfg.MaxLPCOrder == 0 {
		cfg.MaxLPCOrder = -1
	}

	out, err := os.Create(o.output)
	if err != nil {
		return err
	}
	enc, err := flac.NewEncoder(out, cfg)
	if err != nil {
		_ = out.Close()
		return err
	}
	log.Debug("encoding", "input", o.input, "output", o.output,
		"rate", cfg.SampleRate, "channels", channels, "bits", bps, "samples", cfg.TotalSamples)

	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: channels, SampleRate: int(d.SampleRate)},
		Data:   make([]int, int(cfg.BlockSize)*channels),
	}
	for {
		n, err := d.PCMBuffer(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			_ = out.Close()
			return fmt.Errorf("read %s: %w", o.input, err)
		}
		if n == 0 {
			break
		}
		last := err != nil
		data := buf.Data[:n]
		// 8-bit WAV is unsigned.
		if bps == 8 {
			for i := range data {
				data[i] -= 128
			}
		}
		if err := enc.WriteInterleaved(data); err != nil {
			_ = out.Close()
			return err
		}
		if last {
			break
		}
	}
	if err := enc.Close(); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	log.Info("encoded", "output", o.output, "samples", enc.Samples())
	return nil
}

// WAV format tags.
const (
	wavPCM        = 1
	wavExtensible = 0xFFFE
)
