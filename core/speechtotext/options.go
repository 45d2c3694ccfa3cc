package speechtotext

import (
	"errors"

	"github.com/Ishfaq-code/Recallify/core/audio"
)

// ErrUnauthorized marks failures that no amount of retrying will fix: a
// missing or rejected API key. Callers should stop reconnecting when a
// returned error matches it.
var ErrUnauthorized = errors.New("speech-to-text request was not authorized")

type TranscriptionOptions struct {
	InterimTranscriptCallback func(transcript string)
	TranscriptCallback        func(transcript string)

	SpeechStartedCallback func()
	SpeechEndedCallback   func()

	ErrorCallback  func(err error)
	ClosedCallback func()

	EncodingInfo audio.EncodingInfo
}

type TranscriptionOption func(*TranscriptionOptions)

// WithTranscriptCallback registers a callback for finalized transcript
// segments. Segments arrive in recognition order and are never revised.
func WithTranscriptCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.TranscriptCallback = callback
	}
}

// WithInterimTranscriptCallback registers a callback for interim transcript
// previews. Previews are mutable and may be dropped entirely by a later
// result, so they must not be treated as answer material.
func WithInterimTranscriptCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.InterimTranscriptCallback = callback
	}
}

// WithSpeechStartedCallback registers a callback for voice activity opening a
// new utterance. Registering it asks the provider for voice activity events.
func WithSpeechStartedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechStartedCallback = callback
	}
}

// WithSpeechEndedCallback registers a callback for an utterance ending,
// whether through an end-of-speech result or a silence timeout. It fires at
// most once per detected utterance.
func WithSpeechEndedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechEndedCallback = callback
	}
}

// WithErrorCallback registers a callback for the stream failing. At most one
// of the error and closed callbacks fires per stream.
func WithErrorCallback(callback func(err error)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.ErrorCallback = callback
	}
}

// WithClosedCallback registers a callback for the stream closing normally,
// whether on request or because the provider ended it.
func WithClosedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.ClosedCallback = callback
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.EncodingInfo = encodingInfo
	}
}
