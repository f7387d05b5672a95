package main

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/go-audio/wav"

	"github.com/llehouerou/go-flac"
)

// signal returns a stereo test signal with opposite ramps on the two
// channels.
func signal(n int, bps uint) [][]int32 {
	span := int32(1) << (bps - 2)
	out := [][]int32{make([]int32, n), make([]int32, n)}
	for i := range n {
		v := int32(i*37)%(2*span) - span
		out[0][i] = v
		out[1][i] = -v / 2
	}
	return out
}

// writeFLAC encodes samples to a file in dir and returns its path.
func writeFLAC(t *testing.T, dir string, samples [][]int32, bps uint32, blockSize uint32) string {
	t.Helper()
	path := filepath.Join(dir, "in.flac")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc, err := flac.NewEncoder(f, flac.EncoderConfig{
		SampleRate:    44100,
		Channels:      uint32(len(samples)),
		BitsPerSample: bps,
		BlockSize:     blockSize,
		SeekPoints:    4,
		Tags:          []string{"TITLE=ramp"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := enc.Write(samples); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_WAV(t *testing.T) {
	tests := []struct {
		name string
		bps  uint32
		args []string
		want func(v int32) int // expected WAV sample value
	}{
		{"16-bit", 16, nil, func(v int32) int { return int(v) }},
		{"8-bit", 8, nil, func(v int32) int { return int(v) + 128 }},
		{"12-bit padded", 12, nil, func(v int32) int { return int(v) << 4 }},
		{"16 to 24", 16, []string{"-bits", "24"}, func(v int32) int { return int(v) << 8 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src := signal(5000, uint(tt.bps))
			in := writeFLAC(t, dir, src, tt.bps, 1024)
			out := filepath.Join(dir, "out.wav")

			var stdout, stderr bytes.Buffer
			args := append(append([]string{"-o", out}, tt.args...), in)
			if err := run(args, &stdout, &stderr); err != nil {
				t.Fatalf("run: %v\n%s", err, stderr.String())
			}
			if !strings.Contains(stderr.String(), "MD5 signature matches") {
				t.Errorf("stderr = %q, want the MD5 confirmation", stderr.String())
			}

			f, err := os.Open(out)
			if err != nil {
				t.Fatal(err)
			}
			defer func() {
				_ = f.Close()
			}()
			d := wav.NewDecoder(f)
			buf, err := d.FullPCMBuffer()
			if err != nil {
				t.Fatalf("FullPCMBuffer: %v", err)
			}
			if d.NumChans != 2 || d.SampleRate != 44100 {
				t.Errorf("WAV format = %d ch %d Hz, want 2 ch 44100 Hz", d.NumChans, d.SampleRate)
			}
			if len(buf.Data) != 2*5000 {
				t.Fatalf("len(Data) = %d, want %d", len(buf.Data), 2*5000)
			}
			for i, got := range buf.Data {
				if want := tt.want(src[i%2][i/2]); got != want {
					t.Fatalf("sample %d = %d, want %d", i, got, want)
				}
			}
		})
	}
}

func TestRun_Raw(t *testing.T) {
	dir := t.TempDir()
	src := signal(6000, 16)
	in := writeFLAC(t, dir, src, 16, 1024)

	tests := []struct {
		name  string
		args  []string
		first int
		count int
	}{
		{"all", nil, 0, 6000},
		{"seek", []string{"-seek", "2500"}, 2500, 3500},
		{"count", []string{"-count", "1500"}, 0, 1500},
		{"seek and count", []string{"-seek", "1000", "-count", "100"}, 1000, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			args := append(append([]string{"-format", "raw", "-o", "-"}, tt.args...), in)
			if err := run(args, &stdout, &stderr); err != nil {
				t.Fatalf("run: %v\n%s", err, stderr.String())
			}
			raw := stdout.Bytes()
			if len(raw) != tt.count*2*2 {
				t.Fatalf("len(output) = %d, want %d", len(raw), tt.count*2*2)
			}
			for i := range tt.count * 2 {
				got := int16(binary.LittleEndian.Uint16(raw[2*i:]))
				want := src[i%2][tt.first+i/2]
				if int32(got) != want {
					t.Fatalf("sample %d = %d, want %d", i, got, want)
				}
			}
		})
	}
}

func TestRun_Downmix(t *testing.T) {
	dir := t.TempDir()
	src := make([][]int32, 6)
	for c := range src {
		src[c] = make([]int32, 2000)
		for i := range src[c] {
			src[c][i] = int32((i*(c+1))%2000 - 1000)
		}
	}
	in := writeFLAC(t, dir, src, 16, 1024)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"-format", "raw", "-downmix", "-o", "-", in}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\n%s", err, stderr.String())
	}
	if got, want := stdout.Len(), 2000*2*2; got != want {
		t.Errorf("len(output) = %d, want %d", got, want)
	}
}

func TestRun_Info(t *testing.T) {
	dir := t.TempDir()
	in := writeFLAC(t, dir, signal(3000, 16), 16, 1024)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"-info", in}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\n%s", err, stderr.String())
	}
	var info fileInfo
	if err := sonic.Unmarshal(stdout.Bytes(), &info); err != nil {
		t.Fatalf("Unmarshal: %v\n%s", err, stdout.String())
	}
	if info.StreamInfo == nil {
		t.Fatal("no stream_info")
	}
	si := info.StreamInfo
	if si.TotalSamples != 3000 || si.Channels != 2 || si.BitsPerSample != 16 || si.SampleRate != 44100 {
		t.Errorf("stream_info = %+v", *si)
	}
	if len(si.MD5) != 32 {
		t.Errorf("md5 = %q, want 32 hex digits", si.MD5)
	}

	var comments, points int
	for _, b := range info.Blocks {
		switch b.Type {
		case "VORBIS_COMMENT":
			comments++
			if len(b.Comments) != 1 || b.Comments[0] != "TITLE=ramp" {
				t.Errorf("comments = %q", b.Comments)
			}
		case "SEEKTABLE":
			points = len(b.SeekPoints)
		}
	}
	if comments != 1 {
		t.Errorf("%d VORBIS_COMMENT blocks, want 1", comments)
	}
	if points == 0 {
		t.Error("seek table has no points")
	}
}

func TestRun_Analyze(t *testing.T) {
	dir := t.TempDir()
	in := writeFLAC(t, dir, signal(4500, 16), 16, 1024)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"-analyze", in}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\n%s", err, stderr.String())
	}
	stat, err := os.Stat(in)
	if err != nil {
		t.Fatal(err)
	}

	var frames []frameInfo
	sc := bufio.NewScanner(&stdout)
	for sc.Scan() {
		var f frameInfo
		if err := sonic.Unmarshal(sc.Bytes(), &f); err != nil {
			t.Fatalf("Unmarshal %q: %v", sc.Text(), err)
		}
		frames = append(frames, f)
	}
	if len(frames) != 5 {
		t.Fatalf("%d frames, want 5", len(frames))
	}
	for i, f := range frames {
		if f.Frame != i || f.Sample != uint64(i*1024) {
			t.Errorf("frame %d: number %d sample %d", i, f.Frame, f.Sample)
		}
		if i > 0 && f.Offset != frames[i-1].Offset+frames[i-1].Bytes {
			t.Errorf("frame %d starts at %d, previous ends at %d", i, f.Offset, frames[i-1].Offset+frames[i-1].Bytes)
		}
	}
	last := frames[len(frames)-1]
	if last.BlockSize != 4500-4*1024 {
		t.Errorf("last block size = %d, want %d", last.BlockSize, 4500-4*1024)
	}
	if end := last.Offset + last.Bytes; end != stat.Size() {
		t.Errorf("frames end at %d, file size %d", end, stat.Size())
	}
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	in := writeFLAC(t, dir, signal(2000, 16), 16, 1024)
	badYAML := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(badYAML, []byte("decode:\n  format: ogg\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"no input", nil},
		{"missing file", []string{filepath.Join(dir, "missing.flac")}},
		{"bad format", []string{"-format", "mp3", in}},
		{"bad depth", []string{"-bits", "40", in}},
		{"bad config", []string{"-config", badYAML, in}},
		{"wav to stdout", []string{"-o", "-", in}},
		{"seek beyond end", []string{"-format", "raw", "-o", "-", "-seek", "5000", in}},
		{"not flac", []string{badYAML}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if err := run(tt.args, &stdout, &stderr); err == nil {
				t.Error("run succeeded, want error")
			}
		})
	}
}

func TestRun_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	in := writeFLAC(t, dir, signal(2000, 16), 16, 1024)
	cfg := filepath.Join(dir, "flac.yaml")
	yaml := "decode:\n  format: raw\n  bit_depth: 8\nlog:\n  level: warn\n"
	if err := os.WriteFile(cfg, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if err := run([]string{"-config", cfg, "-o", "-", in}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\n%s", err, stderr.String())
	}
	if got, want := stdout.Len(), 2000*2; got != want {
		t.Errorf("len(output) = %d, want %d", got, want)
	}
	if stderr.Len() != 0 {
		t.Errorf("stderr = %q, want nothing at warn level", stderr.String())
	}
}
