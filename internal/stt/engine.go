package stt

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"time"

	"aarogya/internal/audio"
	"aarogya/internal/locale"
	"aarogya/internal/metrics"
)

// Backends do not report comparable confidence, so it is fixed per tier.
const (
	primaryConfidence  = 0.9
	fallbackConfidence = 0.7

	errUnintelligible = "could not understand audio"
	errAllFailed      = "all recognition methods failed"
)

// Normalizer converts an upload into a canonical WAV file.
type Normalizer interface {
	Normalize(ctx context.Context, path, ext string) (string, error)
}

// Engine runs the transcription pipeline: normalize, record, recognize with
// the primary backend, and fall back to the offline backend for English
// when the primary is unavailable.
type Engine struct {
	normalizer  Normalizer
	primary     Provider
	fallback    Provider
	calibration time.Duration
	logger      *log.Logger
}

// NewEngine builds an Engine. fallback may be nil.
func NewEngine(normalizer Normalizer, primary, fallback Provider, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Engine{
		normalizer:  normalizer,
		primary:     primary,
		fallback:    fallback,
		calibration: audio.CalibrationWindow,
		logger:      logger,
	}
}

// PrimaryName returns the primary backend name.
func (e *Engine) PrimaryName() string {
	if e.primary == nil {
		return ""
	}
	return e.primary.Name()
}

// FallbackName returns the fallback backend name, or "" when none is set.
func (e *Engine) FallbackName() string {
	if e.fallback == nil {
		return ""
	}
	return e.fallback.Name()
}

// Transcribe converts the audio file at path into text. ext is the
// upload's extension, language a two-letter code. The caller owns path; any
// file created while normalizing is removed before Transcribe returns.
func (e *Engine) Transcribe(ctx context.Context, path, ext, language string) Result {
	lang := locale.Normalize(language)

	canonical, err := e.normalizer.Normalize(ctx, path, ext)
	if errors.Is(err, audio.ErrTooLong) {
		metrics.RecordTranscription(string(MethodPrimary), "rejected")
		return Result{Language: lang, Error: err.Error(), Rejected: true}
	}
	if err != nil {
		e.logger.Printf("[STT Engine] normalize %s failed: %v", path, err)
		metrics.RecordTranscription(string(MethodPrimary), "error")
		return Result{Language: lang, Error: "transcription failed: " + err.Error()}
	}
	if canonical != path {
		defer func() {
			if err := os.Remove(canonical); err != nil && !errors.Is(err, os.ErrNotExist) {
				e.logger.Printf("[STT Engine] failed to remove %s: %v", canonical, err)
			}
		}()
	}

	tag := locale.Lookup(lang).LocaleTag

	rec, err := audio.LoadRecording(canonical, e.calibration)
	if errors.Is(err, audio.ErrNoAudio) {
		metrics.RecordTranscription(string(MethodPrimary), Unintelligible.String())
		return Result{Language: lang, Error: errUnintelligible}
	}
	if err != nil {
		e.logger.Printf("[STT Engine] load recording failed: %v", err)
		metrics.RecordTranscription(string(MethodPrimary), "error")
		return Result{Language: lang, Error: "transcription failed: " + err.Error()}
	}

	primary := e.primary.Recognize(ctx, rec, tag)
	metrics.RecordTranscription(string(MethodPrimary), primary.Outcome.String())
	switch primary.Outcome {
	case Recognized:
		return Result{
			Success:    true,
			Text:       primary.Text,
			Confidence: primaryConfidence,
			Language:   lang,
			Method:     MethodPrimary,
			Backend:    e.primary.Name(),
		}
	case Unintelligible:
		e.logger.Printf("[STT Engine] %s could not understand audio (locale=%s)", e.primary.Name(), tag)
		return Result{Language: lang, Error: errUnintelligible}
	}

	e.logger.Printf("[STT Engine] %s unavailable: %v", e.primary.Name(), primary.Err)

	// The offline recognizer only has an English model.
	if lang != locale.Default || e.fallback == nil {
		return Result{Language: lang, Error: errAllFailed}
	}

	fallback := e.fallback.Recognize(ctx, rec, tag)
	metrics.RecordTranscription(string(MethodFallback), fallback.Outcome.String())
	if fallback.Outcome != Recognized {
		e.logger.Printf("[STT Engine] fallback %s failed: %s %v", e.fallback.Name(), fallback.Outcome, fallback.Err)
		return Result{Language: lang, Error: errAllFailed}
	}

	return Result{
		Success:    true,
		Text:       fallback.Text,
		Confidence: fallbackConfidence,
		Language:   lang,
		Method:     MethodFallback,
		Backend:    e.fallback.Name(),
	}
}
