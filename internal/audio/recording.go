package audio

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// CalibrationWindow is how much leading audio is spent on ambient-noise
// calibration before capture.
const CalibrationWindow = 500 * time.Millisecond

const dynamicEnergyRatio = 1.5

// ErrNoAudio is returned when nothing is left after calibration.
var ErrNoAudio = errors.New("no audio captured after calibration")

// Recording is an in-memory capture ready for a recognizer.
type Recording struct {
	WAV             []byte
	SampleRate      int
	Samples         int
	EnergyThreshold float64
}

// Duration returns the captured audio length.
func (r *Recording) Duration() time.Duration {
	if r.SampleRate == 0 {
		return 0
	}
	return time.Duration(r.Samples) * time.Second / time.Duration(r.SampleRate)
}

// LoadRecording reads a WAV file into a canonical 16 kHz mono recording.
// The first calibration of audio is consumed to estimate the ambient energy
// threshold and is not part of the captured buffer.
func LoadRecording(path string, calibration time.Duration) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	samples, rate, err := DecodeWAV(f)
	if err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	if rate <= 0 {
		return nil, fmt.Errorf("read recording: %w", errInvalidWAV)
	}

	samples, err = Resample(samples, float64(rate), CanonicalSampleRate)
	if err != nil {
		return nil, err
	}

	calib := int(int64(CanonicalSampleRate) * int64(calibration) / int64(time.Second))
	if calib > len(samples) {
		calib = len(samples)
	}
	threshold := rms(samples[:calib]) * dynamicEnergyRatio
	captured := samples[calib:]
	if len(captured) == 0 {
		return nil, ErrNoAudio
	}

	data, err := EncodeWAV(captured, CanonicalSampleRate)
	if err != nil {
		return nil, err
	}

	return &Recording{
		WAV:             data,
		SampleRate:      CanonicalSampleRate,
		Samples:         len(captured),
		EnergyThreshold: threshold,
	}, nil
}
