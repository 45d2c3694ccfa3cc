package events

const (
	// KindRecordingArmed identifies the listener waiting for the start phrase.
	KindRecordingArmed Kind = "recording.armed"
	// KindRecordingStarted identifies the start phrase being heard.
	KindRecordingStarted Kind = "recording.started"
	// KindRecordingStopped identifies the stop phrase being heard.
	KindRecordingStopped Kind = "recording.stopped"
)

// RecordingArmed marks the listener waiting for the start phrase. Transcripts
// received while armed are not treated as answer material.
type RecordingArmed struct{ Base }

// NewRecordingArmed creates a recording armed event.
func NewRecordingArmed() RecordingArmed {
	return RecordingArmed{Base: NewBase(KindRecordingArmed)}
}

// RecordingStarted marks the start phrase being heard. Finalized transcripts
// from this point on accumulate into the pending answer.
type RecordingStarted struct{ Base }

// NewRecordingStarted creates a recording started event.
func NewRecordingStarted() RecordingStarted {
	return RecordingStarted{Base: NewBase(KindRecordingStarted)}
}

// RecordingStopped marks the stop phrase being heard. Transcript holds the
// cleaned answer text extracted from the recording window, which may be
// empty.
type RecordingStopped struct {
	Base
	Transcript string
}

// NewRecordingStopped creates a recording stopped event.
func NewRecordingStopped(transcript string) RecordingStopped {
	return RecordingStopped{Base: NewBase(KindRecordingStopped), Transcript: transcript}
}
