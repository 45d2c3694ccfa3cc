package recall

import (
	"errors"

	events "github.com/Ishfaq-code/Recallify/core/events"
)

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

func newCallbackEventEmitter(opts StartOptions) eventEmitter {
	return func(event events.Event) {
		switch typedEvent := event.(type) {
		case events.CaptureTranscriptInterim:
			if opts.onInterimTranscript != nil {
				opts.onInterimTranscript(typedEvent.Transcript)
			}
		case events.CaptureTranscriptFinal:
			if opts.onTranscript != nil {
				opts.onTranscript(typedEvent.Transcript)
			}
		case events.CaptureFailed:
			if opts.onCaptureFailed != nil {
				opts.onCaptureFailed(errors.New(typedEvent.Error))
			}
		case events.RecordingArmed:
			if opts.onRecordingStateChanged != nil {
				opts.onRecordingStateChanged(RecordingArmed)
			}
		case events.RecordingStarted:
			if opts.onRecordingStateChanged != nil {
				opts.onRecordingStateChanged(RecordingAnswer)
			}
		case events.RecordingStopped:
			if opts.onRecordingStateChanged != nil {
				opts.onRecordingStateChanged(RecordingIdle)
			}
		case events.AnswerSubmitted:
			if opts.onAnswerSubmitted != nil {
				opts.onAnswerSubmitted(typedEvent.Answer)
			}
		case events.QuestionReceived:
			if opts.onQuestionReceived != nil {
				opts.onQuestionReceived(typedEvent.Question)
			}
		case events.RequestFailed:
			if opts.onRequestFailed != nil {
				opts.onRequestFailed(typedEvent.Operation, errors.New(typedEvent.Error))
			}
		case events.SpeechStarted:
			if opts.onSpeakingStateChanged != nil {
				opts.onSpeakingStateChanged(true)
			}
		case events.SpeechEnded:
			if opts.onSpeakingStateChanged != nil {
				opts.onSpeakingStateChanged(false)
			}
		case events.SpeechCancelled:
			if opts.onSpeakingStateChanged != nil {
				opts.onSpeakingStateChanged(false)
			}
		case events.VoiceEnabled:
			if opts.onVoiceStateChanged != nil {
				opts.onVoiceStateChanged(true)
			}
		case events.VoiceDisabled:
			if opts.onVoiceStateChanged != nil {
				opts.onVoiceStateChanged(false)
			}
		}
	}
}
