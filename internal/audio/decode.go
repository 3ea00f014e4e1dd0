package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrEmptyTrack        = errors.New("audio file contains no samples")
)

// Extensions decoded natively.
var Extensions = []string{".mp3", ".wav", ".flac", ".ogg"}

// ffmpegExtensions are decoded through ffmpeg when it is installed.
var ffmpegExtensions = []string{".m4a", ".aac", ".opus", ".wma", ".aiff"}

var haveFFmpeg = sync.OnceValue(func() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
})

// FFmpegRate is the sample rate ffmpeg decodes to.
const FFmpegRate = 44100

// Supported reports whether name has an extension that can be decoded.
func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	if !haveFFmpeg() {
		return false
	}
	for _, e := range ffmpegExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// DecodeFile decodes the file at path into a Track.
func DecodeFile(ctx context.Context, path string) (*Track, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range ffmpegExtensions {
		if e == ext {
			return decodeFFmpeg(ctx, path)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return Decode(ctx, path, f)
}

// Decode decodes r, whose format is chosen from the extension of name.
func Decode(ctx context.Context, name string, r io.ReadCloser) (*Track, error) {
	var (
		s      beep.StreamSeekCloser
		format beep.Format
		err    error
	)

	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3":
		s, format, err = mp3.Decode(r)
	case ".wav":
		s, format, err = wav.Decode(r)
	case ".flac":
		s, format, err = flac.Decode(r)
	case ".ogg":
		s, format, err = vorbis.Decode(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(name))
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	defer s.Close()

	track := NewTrack(name, format, &cancelable{ctx: ctx, s: s})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	if track.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyTrack)
	}
	return track, nil
}

// decodeFFmpeg runs ffmpeg to decode path to interleaved stereo float32.
func decodeFFmpeg(ctx context.Context, path string) (*Track, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-v", "quiet",
		"-i", path,
		"-f", "f32le",
		"-ac", "2",
		"-ar", fmt.Sprint(FFmpegRate),
		"pipe:1",
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: %w", path, err)
	}

	n := len(out) / 8
	if n == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyTrack)
	}
	data := make([][2]float64, n)
	for i := range data {
		data[i][0] = float64(math.Float32frombits(binary.LittleEndian.Uint32(out[i*8:])))
		data[i][1] = float64(math.Float32frombits(binary.LittleEndian.Uint32(out[i*8+4:])))
	}
	return FromSamples(path, FFmpegRate, data), nil
}

// cancelable stops a decode early when its context is done.
type cancelable struct {
	ctx context.Context
	s   beep.Streamer
}

func (c *cancelable) Stream(samples [][2]float64) (int, bool) {
	if c.ctx.Err() != nil {
		return 0, false
	}
	return c.s.Stream(samples)
}

func (c *cancelable) Err() error {
	return c.s.Err()
}
