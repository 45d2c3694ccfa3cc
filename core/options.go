package recall

import (
	"context"
	"time"

	"github.com/Ishfaq-code/Recallify/core/audio"
	"github.com/Ishfaq-code/Recallify/core/backend"
	"github.com/Ishfaq-code/Recallify/core/speechtotext"
	"github.com/Ishfaq-code/Recallify/core/texttospeech"
)

type SessionOption func(*Session)

// SpeechToText is a streaming recognition client. Transcribe opens one live
// stream and returns once it accepts audio; results arrive through the
// callbacks registered with the transcription options.
type SpeechToText interface {
	Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error
	SendAudio(audio []byte) error
}

func WithSpeechToTextClient(client SpeechToText) SessionOption {
	return func(s *Session) {
		s.capture.set(client)
	}
}

// TextToSpeech opens one synthesis stream per spoken utterance.
type TextToSpeech interface {
	NewSpeechStream(ctx context.Context, opts ...texttospeech.TextToSpeechOption) (texttospeech.SpeechStream, error)
}

func WithTextToSpeechClient(client TextToSpeech) SessionOption {
	return func(s *Session) {
		s.speechOutput.set(client)
	}
}

// QuestionService produces the questions a study session asks. It is
// implemented by [backend.Client].
type QuestionService interface {
	OpeningQuestion(ctx context.Context, documentID string) (string, error)
	FollowupQuestion(ctx context.Context, req backend.FollowupRequest) (string, error)
}

func WithQuestionService(service QuestionService) SessionOption {
	return func(s *Session) { s.questions = service }
}

type AudioInput interface {
	audioInputBase
}

func WithAudioInput(client AudioInput) SessionOption {
	return func(s *Session) { s.audioInput.Set(client) }
}

type AudioOutput interface {
	audioOutputBase
	AwaitMark() error
}

func WithAudioOutput(client AudioOutput) SessionOption {
	return func(s *Session) { s.audioOutput.Set(client) }
}

// WithWakePhrases overrides the spoken commands that start and stop answer
// recording. Matching is case-insensitive.
func WithWakePhrases(startPhrase, stopPhrase string) SessionOption {
	return func(s *Session) {
		s.supervisor.setWakePhrases(startPhrase, stopPhrase)
	}
}

// WithRestartPolicy overrides how long the capture supervisor waits before
// reconnecting: restartDelay after an engine-initiated end, errorRetryDelay
// after a recoverable error.
func WithRestartPolicy(restartDelay, errorRetryDelay time.Duration) SessionOption {
	return func(s *Session) {
		s.supervisor.setRestartPolicy(restartDelay, errorRetryDelay)
	}
}

type StartOptions struct {
	onInterimTranscript     func(transcript string)
	onTranscript            func(transcript string)
	onCaptureFailed         func(err error)
	onRecordingStateChanged func(state RecordingState)
	onAnswerSubmitted       func(answer string)
	onQuestionReceived      func(question string)
	onRequestFailed         func(operation string, err error)
	onSpeakingStateChanged  func(isSpeaking bool)
	onVoiceStateChanged     func(enabled bool)
}

type StartOption func(*StartOptions)

// WithInterimTranscriptCallback registers a callback for interim recognition
// previews. Previews may be revised or dropped by later results; they never
// enter the answer transcript.
func WithInterimTranscriptCallback(callback func(transcript string)) StartOption {
	return func(o *StartOptions) {
		o.onInterimTranscript = callback
	}
}

// WithTranscriptCallback registers a callback for finalized recognition
// segments, before any wake-phrase handling.
func WithTranscriptCallback(callback func(transcript string)) StartOption {
	return func(o *StartOptions) {
		o.onTranscript = callback
	}
}

// WithCaptureFailedCallback registers a callback for capture errors. The
// supervisor retries recoverable errors on its own; the callback is for
// surfacing them to the user.
func WithCaptureFailedCallback(callback func(err error)) StartOption {
	return func(o *StartOptions) {
		o.onCaptureFailed = callback
	}
}

func WithRecordingStateCallback(callback func(state RecordingState)) StartOption {
	return func(o *StartOptions) {
		o.onRecordingStateChanged = callback
	}
}

// WithAnswerSubmittedCallback registers a callback for answers entering the
// history, whether typed or committed by voice.
func WithAnswerSubmittedCallback(callback func(answer string)) StartOption {
	return func(o *StartOptions) {
		o.onAnswerSubmitted = callback
	}
}

func WithQuestionCallback(callback func(question string)) StartOption {
	return func(o *StartOptions) {
		o.onQuestionReceived = callback
	}
}

// WithRequestFailedCallback registers a callback for failed question
// requests. The submitted answer stays in the history; the session does not
// retry on its own.
func WithRequestFailedCallback(callback func(operation string, err error)) StartOption {
	return func(o *StartOptions) {
		o.onRequestFailed = callback
	}
}

func WithSpeakingStateCallback(callback func(isSpeaking bool)) StartOption {
	return func(o *StartOptions) {
		o.onSpeakingStateChanged = callback
	}
}

func WithVoiceStateCallback(callback func(enabled bool)) StartOption {
	return func(o *StartOptions) {
		o.onVoiceStateChanged = callback
	}
}

type audioInputBase interface {
	EncodingInfo() audio.EncodingInfo
	Stream(ctx context.Context, onAudio func(audio []byte)) error
	Close()
}

type audioOutputBase interface {
	EncodingInfo() audio.EncodingInfo
	SendAudio(audio []byte) error
	ClearBuffer()
}
