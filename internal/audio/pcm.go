package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	resampling "github.com/tphakala/go-audio-resampling"
)

// CanonicalSampleRate is the sample rate of every canonical WAV produced here.
const CanonicalSampleRate = 16000

var errInvalidWAV = errors.New("invalid WAV file")

// writeSeeker is an in-memory io.WriteSeeker for WAV encoding.
type writeSeeker struct {
	buf []byte
	pos int
}

func (ws *writeSeeker) Write(p []byte) (int, error) {
	end := ws.pos + len(p)
	if end > len(ws.buf) {
		ws.buf = append(ws.buf, make([]byte, end-len(ws.buf))...)
	}
	copy(ws.buf[ws.pos:], p)
	ws.pos = end
	return len(p), nil
}

func (ws *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	var newPos int
	switch whence {
	case io.SeekStart:
		newPos = int(offset)
	case io.SeekCurrent:
		newPos = ws.pos + int(offset)
	case io.SeekEnd:
		newPos = len(ws.buf) + int(offset)
	default:
		return 0, fmt.Errorf("invalid whence: %d", whence)
	}
	if newPos < 0 || newPos > len(ws.buf) {
		return 0, fmt.Errorf("seek position %d out of bounds [0, %d]", newPos, len(ws.buf))
	}
	ws.pos = newPos
	return int64(ws.pos), nil
}

// EncodeWAV encodes mono int16 PCM samples as a 16-bit WAV file in memory.
func EncodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	ws := &writeSeeker{}

	intBuf := &goaudio.IntBuffer{
		Data: make([]int, len(samples)),
		Format: &goaudio.Format{
			SampleRate:  sampleRate,
			NumChannels: 1,
		},
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		intBuf.Data[i] = int(s)
	}

	enc := wav.NewEncoder(ws, sampleRate, 16, 1, 1)
	if err := enc.Write(intBuf); err != nil {
		return nil, fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close wav encoder: %w", err)
	}

	return ws.buf, nil
}

// DecodeWAV decodes PCM WAV data of any bit depth and channel count into
// mono int16 samples. It returns the samples and the source sample rate.
func DecodeWAV(r io.ReadSeeker) ([]int16, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, errInvalidWAV
	}

	pcmBuf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode wav: %w", err)
	}

	channels := int(dec.NumChans)
	if channels < 1 {
		channels = 1
	}
	bitDepth := int(dec.BitDepth)

	interleaved := make([]int16, len(pcmBuf.Data))
	for i, v := range pcmBuf.Data {
		interleaved[i] = toInt16(v, bitDepth)
	}

	return Downmix(interleaved, channels), int(dec.SampleRate), nil
}

// DecodeWAVBytes is DecodeWAV over an in-memory buffer.
func DecodeWAVBytes(data []byte) ([]int16, int, error) {
	return DecodeWAV(bytes.NewReader(data))
}

func toInt16(v, bitDepth int) int16 {
	switch bitDepth {
	case 8:
		return int16((v - 128) << 8)
	case 24:
		return int16(v >> 8)
	case 32:
		return int16(v >> 16)
	default:
		return int16(v)
	}
}

// Downmix converts interleaved samples with the given channel count to mono
// by averaging the channels of each frame.
func Downmix(interleaved []int16, channels int) []int16 {
	if channels <= 1 {
		return interleaved
	}
	mono := make([]int16, len(interleaved)/channels)
	for i := range mono {
		var sum int32
		for c := 0; c < channels; c++ {
			sum += int32(interleaved[i*channels+c])
		}
		mono[i] = int16(sum / int32(channels))
	}
	return mono
}

// Resample converts PCM int16 samples from inputRate to outputRate using
// polyphase FIR filtering (go-audio-resampling, QualityLow preset which is
// plenty for speech).
func Resample(samples []int16, inputRate, outputRate float64) ([]int16, error) {
	if inputRate == outputRate || len(samples) == 0 {
		return samples, nil
	}

	floats := make([]float64, len(samples))
	for i, s := range samples {
		floats[i] = float64(s) / 32768.0
	}

	return resampleFloats(floats, inputRate, outputRate)
}

func resampleFloats(floats []float64, inputRate, outputRate float64) ([]int16, error) {
	if inputRate != outputRate && len(floats) > 0 {
		resampled, err := resampling.ResampleMono(floats, inputRate, outputRate, resampling.QualityLow)
		if err != nil {
			return nil, fmt.Errorf("resample mono: %w", err)
		}
		floats = resampled
	}

	out := make([]int16, len(floats))
	for i, f := range floats {
		v := f * 32768.0
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		out[i] = int16(math.Round(v))
	}
	return out, nil
}

// rms returns the root-mean-square amplitude of samples in raw int16 units.
func rms(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
