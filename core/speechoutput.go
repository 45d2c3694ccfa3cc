package recall

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Ishfaq-code/Recallify/core/events"
	"github.com/Ishfaq-code/Recallify/core/texttospeech"
)

// speechOutput speaks one question at a time. Starting a new utterance
// cancels whatever is still playing; questions are never queued as speech.
type speechOutput struct {
	// client stores the configured text-to-speech implementation.
	client TextToSpeech

	// enabled gates speaking on the session's voice toggle.
	enabled func() bool

	audioOutput *audioOutput
	emitEvent   eventEmitter

	clientMu sync.Mutex
	// stream is the live speech stream, nil between utterances.
	stream texttospeech.SpeechStream
	// utterance identifies the live stream. Callbacks from replaced streams
	// compare against it and drop themselves.
	utterance atomic.Uint64

	speaking atomic.Bool
}

func newSpeechOutput(audioOutput *audioOutput) *speechOutput {
	return &speechOutput{
		enabled:     func() bool { return true },
		audioOutput: audioOutput,
		emitEvent:   noopEventEmitter,
	}
}

func (s *speechOutput) set(client TextToSpeech) {
	if s != nil {
		s.client = client
	}
}

func (s *speechOutput) setEnabledCheck(enabled func() bool) {
	if s != nil && enabled != nil {
		s.enabled = enabled
	}
}

func (s *speechOutput) setEventEmitter(emitEvent eventEmitter) {
	if s != nil {
		if emitEvent != nil {
			s.emitEvent = emitEvent
		} else {
			s.emitEvent = noopEventEmitter
		}
	}
}

func (s *speechOutput) isConfigured() bool {
	return s != nil && s.client != nil
}

func (s *speechOutput) IsSpeaking() bool {
	return s != nil && s.speaking.Load()
}

// Speak synthesizes text and plays it through the configured audio output.
// It returns once synthesis is underway; playback finishes in the
// background. A no-op when no client is configured or voice is off.
func (s *speechOutput) Speak(ctx context.Context, text string) error {
	if !s.isConfigured() || text == "" || !s.enabled() {
		return nil
	}

	s.Cancel()

	id := s.utterance.Add(1)

	ttsOptions := []texttospeech.TextToSpeechOption{
		texttospeech.WithSpeechAudioCallback(func(audio []byte) {
			if s.utterance.Load() != id {
				return
			}
			s.audioOutput.SendAudio(audio)
		}),
		texttospeech.WithSpeechMarkCallback(func(string) {
			if s.utterance.Load() != id {
				return
			}
			go s.awaitPlayback(id)
		}),
		texttospeech.WithSpeechEndedCallback(func(texttospeech.SpeechEndedReport) {
			s.clearStream(id)
		}),
		texttospeech.WithErrorCallback(func(error) {
			s.clearStream(id)
			s.finish(id, events.NewSpeechCancelled())
		}),
		texttospeech.WithEncodingInfo(s.audioOutput.EncodingInfo()),
	}

	stream, err := s.client.NewSpeechStream(ctx, ttsOptions...)
	if err != nil {
		return fmt.Errorf("failed to open speech stream: %w", err)
	}

	s.clientMu.Lock()
	if s.utterance.Load() != id {
		s.clientMu.Unlock()
		_ = stream.Close()
		return nil
	}
	s.stream = stream
	s.clientMu.Unlock()

	s.speaking.Store(true)
	s.emitEvent(events.NewSpeechStarted(text))

	if err := sendUtterance(stream, text); err != nil {
		s.clearStream(id)
		s.finish(id, events.NewSpeechCancelled())
		return err
	}

	return nil
}

// sendUtterance pushes the whole text at once. The trailing mark is what
// later reports playback completion, so it must precede the end of text.
func sendUtterance(stream texttospeech.SpeechStream, text string) error {
	if err := stream.SendText(text); err != nil {
		return fmt.Errorf("failed to send text to speech stream: %w", err)
	}
	if err := stream.Mark(); err != nil {
		return fmt.Errorf("failed to mark end of speech text: %w", err)
	}
	if err := stream.EndOfText(); err != nil {
		return fmt.Errorf("failed to finish speech stream: %w", err)
	}

	return nil
}

// Cancel stops the current utterance and flushes audio that has not played
// yet. Safe to call when nothing is speaking.
func (s *speechOutput) Cancel() {
	if s == nil {
		return
	}

	s.utterance.Add(1)

	s.clientMu.Lock()
	stream := s.stream
	s.stream = nil
	s.clientMu.Unlock()

	if stream != nil {
		_ = stream.Cancel()
	}

	if s.speaking.CompareAndSwap(true, false) {
		s.audioOutput.Clear()
		s.emitEvent(events.NewSpeechCancelled())
	}
}

// awaitPlayback waits for the playback device to drain the utterance before
// reporting the end of speech. Synthesis finishing early does not matter,
// the user cares about hearing the whole question.
func (s *speechOutput) awaitPlayback(id uint64) {
	_ = s.audioOutput.AwaitMark()
	s.finish(id, events.NewSpeechEnded())
}

func (s *speechOutput) finish(id uint64, event events.Event) {
	if s.utterance.Load() != id {
		return
	}

	if s.speaking.CompareAndSwap(true, false) {
		s.emitEvent(event)
	}
}

func (s *speechOutput) clearStream(id uint64) {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()

	if s.utterance.Load() != id {
		return
	}
	s.stream = nil
}
