package events

const (
	// KindSpeechStarted identifies speech synthesis starting.
	KindSpeechStarted Kind = "speech.started"
	// KindSpeechEnded identifies speech playback completing.
	KindSpeechEnded Kind = "speech.ended"
	// KindSpeechCancelled identifies speech being cut off.
	KindSpeechCancelled Kind = "speech.cancelled"
)

// SpeechStarted marks synthesis starting for the given text.
type SpeechStarted struct {
	Base
	Text string
}

// NewSpeechStarted creates a speech started event.
func NewSpeechStarted(text string) SpeechStarted {
	return SpeechStarted{Base: NewBase(KindSpeechStarted), Text: text}
}

// SpeechEnded marks playback of the current utterance completing.
type SpeechEnded struct{ Base }

// NewSpeechEnded creates a speech ended event.
func NewSpeechEnded() SpeechEnded {
	return SpeechEnded{Base: NewBase(KindSpeechEnded)}
}

// SpeechCancelled marks the current utterance being cut off before playback
// completed, either explicitly or by a newer utterance replacing it.
type SpeechCancelled struct{ Base }

// NewSpeechCancelled creates a speech cancelled event.
func NewSpeechCancelled() SpeechCancelled {
	return SpeechCancelled{Base: NewBase(KindSpeechCancelled)}
}
