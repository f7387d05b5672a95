// Package config loads the YAML settings shared by the command-line tools
// and builds their loggers.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// LogConfig selects where log records go.
type LogConfig struct {
	Level string `yaml:"level,omitempty"` // debug, info, warn or error
	File  string `yaml:"file,omitempty"`  // appended to in addition to stderr
}

// DecodeConfig holds flacdec settings.
type DecodeConfig struct {
	Format   string `yaml:"format,omitempty"` // wav or raw
	BitDepth uint   `yaml:"bit_depth,omitempty"`
	Downmix  bool   `yaml:"downmix,omitempty"`
	MD5      bool   `yaml:"md5,omitempty"`
}

// EncodeConfig holds flacenc settings.
type EncodeConfig struct {
	BlockSize         uint32   `yaml:"block_size,omitempty"`
	MaxLPCOrder       int      `yaml:"max_lpc_order,omitempty"`
	QLPCoeffPrecision uint     `yaml:"qlp_coeff_precision,omitempty"`
	MaxPartitionOrder uint     `yaml:"max_partition_order,omitempty"`
	ExhaustiveLPC     bool     `yaml:"exhaustive_lpc,omitempty"`
	Stereo            string   `yaml:"stereo,omitempty"` // search, independent or mid-side
	SeekPoints        int      `yaml:"seek_points,omitempty"`
	Padding           uint32   `yaml:"padding,omitempty"`
	Vendor            string   `yaml:"vendor,omitempty"`
	Tags              []string `yaml:"tags,omitempty"`
	Verify            bool     `yaml:"verify,omitempty"`
}

// Config is the whole settings file.
type Config struct {
	Log    LogConfig    `yaml:"log,omitempty"`
	Decode DecodeConfig `yaml:"decode,omitempty"`
	Encode EncodeConfig `yaml:"encode,omitempty"`
}

// Default returns the settings used without a file.
func Default() Config {
	return Config{
		Log:    LogConfig{Level: "info"},
		Decode: DecodeConfig{Format: "wav", MD5: true},
		Encode: EncodeConfig{Stereo: "search", SeekPoints: 100, Padding: 4096},
	}
}

// Load reads the settings file at path over the defaults.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)
	cfg, err := Read(f)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Read decodes settings from r over the defaults. Unknown keys are
// rejected.
func Read(r io.Reader) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Decode.Format {
	case "wav", "raw":
	default:
		return fmt.Errorf("decode.format %q: want wav or raw", c.Decode.Format)
	}
	switch c.Encode.Stereo {
	case "search", "independent", "mid-side":
	default:
		return fmt.Errorf("encode.stereo %q: want search, independent or mid-side", c.Encode.Stereo)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to its slog level. An empty name is info.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if name == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", name, err)
	}
	return level, nil
}

// NewLogger builds a text logger writing to stderr and, when set, to the
// log file. The returned function closes the file.
func NewLogger(c LogConfig, stderr io.Writer) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(c.Level)
	if err != nil {
		return nil, nil, err
	}
	w := stderr
	closeFn := func() error { return nil }
	if c.File != "" {
		f, err := os.OpenFile(c.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(stderr, f)
		closeFn = f.Close
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler), closeFn, nil
}
