package audio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/go-audio/wav"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/vorbis"
)

// DefaultMaxDuration caps how much audio a Normalizer will decode.
const DefaultMaxDuration = 5 * time.Minute

var (
	// ErrUnsupportedFormat is returned for extensions outside SupportedFormats.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrTooLong is returned when an upload plays for longer than MaxDuration.
	ErrTooLong = errors.New("audio too long")
)

type decodeFunc func(f *os.File) (beep.StreamSeekCloser, beep.Format, error)

var streamDecoders = map[string]decodeFunc{
	".mp3": func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
		return mp3.Decode(f)
	},
	".ogg": func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
		return vorbis.Decode(f)
	},
	".flac": func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
		return flac.Decode(f)
	},
}

// Normalizer converts supported uploads into canonical 16 kHz mono 16-bit
// PCM WAV files.
type Normalizer struct {
	// FFmpegPath is used for .m4a, which has no pure-Go decoder.
	FFmpegPath string
	// TempDir holds converted files; empty means os.TempDir().
	TempDir string
	// MaxDuration bounds decoded audio; zero or less disables the check.
	MaxDuration time.Duration

	decoders map[string]decodeFunc
	logger   *log.Logger
}

func NewNormalizer(ffmpegPath, tempDir string, logger *log.Logger) *Normalizer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	decoders := make(map[string]decodeFunc, len(streamDecoders))
	for ext, fn := range streamDecoders {
		decoders[ext] = fn
	}
	return &Normalizer{
		FFmpegPath:  ffmpegPath,
		TempDir:     tempDir,
		MaxDuration: DefaultMaxDuration,
		decoders:    decoders,
		logger:      logger,
	}
}

// Normalize returns the path of a canonical WAV for the file at path.
// WAV input is returned unchanged. Otherwise a new temp file is created and
// the caller must remove it. Audio longer than MaxDuration fails with
// ErrTooLong.
func (n *Normalizer) Normalize(ctx context.Context, path, ext string) (string, error) {
	ext = NormalizeExt(ext)
	switch ext {
	case ".wav":
		// Headers the decoder cannot read are left for LoadRecording to report.
		if d, err := wavDuration(path); err == nil && n.exceeds(d) {
			return "", n.tooLong()
		}
		return path, nil
	case ".m4a":
		return n.transcodeFFmpeg(ctx, path)
	}

	decode, ok := n.decoders[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return n.transcode(path, ext, decode)
}

func (n *Normalizer) transcode(path, ext string, decode decodeFunc) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	stream, format, err := decode(f)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", ext, err)
	}
	defer stream.Close()

	maxFrames := -1
	if n.MaxDuration > 0 {
		maxFrames = format.SampleRate.N(n.MaxDuration)
	}
	mono, err := readMono(stream, maxFrames)
	if errors.Is(err, ErrTooLong) {
		return "", n.tooLong()
	}
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", ext, err)
	}

	samples, err := resampleFloats(mono, float64(format.SampleRate), CanonicalSampleRate)
	if err != nil {
		return "", err
	}

	data, err := EncodeWAV(samples, CanonicalSampleRate)
	if err != nil {
		return "", err
	}

	out, err := n.writeTemp(data)
	if err != nil {
		return "", err
	}
	if n.logger != nil {
		n.logger.Printf("[Normalizer] %s: %d Hz -> %d Hz, %d samples -> %s",
			ext, int(format.SampleRate), CanonicalSampleRate, len(samples), out)
	}
	return out, nil
}

// readMono drains s and averages its two channels. It stops with ErrTooLong
// once more than maxFrames frames arrive; a negative maxFrames means no cap.
func readMono(s beep.Streamer, maxFrames int) ([]float64, error) {
	var mono []float64
	buf := make([][2]float64, 4096)
	for {
		n, ok := s.Stream(buf)
		if maxFrames >= 0 && len(mono)+n > maxFrames {
			return nil, ErrTooLong
		}
		for i := 0; i < n; i++ {
			mono = append(mono, (buf[i][0]+buf[i][1])/2)
		}
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return mono, nil
}

func (n *Normalizer) writeTemp(data []byte) (string, error) {
	f, err := os.CreateTemp(n.TempDir, "aarogya-*.wav")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return f.Name(), nil
}

func (n *Normalizer) exceeds(d time.Duration) bool {
	return n.MaxDuration > 0 && d > n.MaxDuration
}

func (n *Normalizer) tooLong() error {
	return fmt.Errorf("%w (max %s)", ErrTooLong, n.MaxDuration)
}

// wavDuration reads the duration implied by a WAV file's headers without
// decoding its samples.
func wavDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, errInvalidWAV
	}
	return dec.Duration()
}

func (n *Normalizer) transcodeFFmpeg(ctx context.Context, path string) (string, error) {
	f, err := os.CreateTemp(n.TempDir, "aarogya-*.wav")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	out := f.Name()
	f.Close()

	args := []string{"-hide_banner", "-loglevel", "error", "-i", path}
	if n.MaxDuration > 0 {
		// One extra second so over-long input is detected, not silently cut.
		args = append(args, "-t", strconv.Itoa(int((n.MaxDuration+time.Second).Seconds())))
	}
	args = append(args,
		"-ar", strconv.Itoa(CanonicalSampleRate),
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-y", out,
	)
	cmd := exec.CommandContext(ctx, n.FFmpegPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(out)
		return "", fmt.Errorf("ffmpeg: %w: %s", err, truncate(string(output), 300))
	}

	if err := checkWAV(out); err != nil {
		os.Remove(out)
		return "", fmt.Errorf("ffmpeg output: %w", err)
	}
	if d, err := wavDuration(out); err == nil && n.exceeds(d) {
		os.Remove(out)
		return "", n.tooLong()
	}
	if n.logger != nil {
		n.logger.Printf("[Normalizer] .m4a -> %s via %s", out, n.FFmpegPath)
	}
	return out, nil
}

func checkWAV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, _, err = DecodeWAV(f)
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
