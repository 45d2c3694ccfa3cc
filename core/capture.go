package recall

import (
	"context"
	"fmt"

	"github.com/Ishfaq-code/Recallify/core/audio"
	"github.com/Ishfaq-code/Recallify/core/speechtotext"
)

// captureCallbacks routes transcription stream signals back to the supervisor
// that opened the stream.
type captureCallbacks struct {
	onInterimTranscript func(transcript string)
	onTranscript        func(transcript string)
	onSpeechEnded       func()
	onError             func(err error)
	onClosed            func()
}

type speechCapture struct {
	// client stores the configured speech-to-text implementation.
	client SpeechToText
}

func newSpeechCapture(client SpeechToText) *speechCapture {
	return &speechCapture{client: client}
}

func (s *speechCapture) set(client SpeechToText) {
	if s != nil {
		s.client = client
	}
}

func (s *speechCapture) start(ctx context.Context, callbacks captureCallbacks, encodingInfo *audio.EncodingInfo) error {
	if !s.isConfigured() {
		return nil
	}

	sttOptions := []speechtotext.TranscriptionOption{
		speechtotext.WithInterimTranscriptCallback(callbacks.onInterimTranscript),
		speechtotext.WithTranscriptCallback(callbacks.onTranscript),
		speechtotext.WithSpeechEndedCallback(callbacks.onSpeechEnded),
		speechtotext.WithErrorCallback(callbacks.onError),
		speechtotext.WithClosedCallback(callbacks.onClosed),
		speechtotext.WithEncodingInfo(*encodingInfo),
	}

	if err := s.client.Transcribe(ctx, sttOptions...); err != nil {
		return fmt.Errorf("failed to start transcribing: %w", err)
	}

	return nil
}

func (s *speechCapture) SendAudio(audio []byte) error {
	if !s.isConfigured() {
		return nil
	}

	return s.client.SendAudio(audio)
}

// Stop ends the live transcription stream. Clients with a graceful stop get
// to flush buffered results before the closed callback fires.
func (s *speechCapture) Stop(ctx context.Context) error {
	if !s.isConfigured() {
		return nil
	}

	switch c := s.client.(type) {
	case interface{ StopStream() error }:
		if err := c.StopStream(); err != nil {
			return fmt.Errorf("failed to stop transcription stream: %w", err)
		}
	case interface{ Close(context.Context) error }:
		if err := c.Close(ctx); err != nil {
			return fmt.Errorf("failed to close speech-to-text client: %w", err)
		}
	case interface{ Close() error }:
		if err := c.Close(); err != nil {
			return fmt.Errorf("failed to close speech-to-text client: %w", err)
		}
	case interface{ Close() }:
		c.Close()
	}

	return nil
}

func (s *speechCapture) isConfigured() bool {
	return s != nil && s.client != nil
}
