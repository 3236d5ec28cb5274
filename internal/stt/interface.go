package stt

import (
	"context"

	"aarogya/internal/audio"
)

// Provider is a speech recognition backend.
type Provider interface {
	// Recognize transcribes rec in the language identified by localeTag
	// (e.g. "hi-IN"). Failures are reported through the returned
	// Recognition, never by panicking.
	Recognize(ctx context.Context, rec *audio.Recording, localeTag string) Recognition

	// Name returns the backend name (e.g. "google", "google-grpc", "command")
	Name() string
}
