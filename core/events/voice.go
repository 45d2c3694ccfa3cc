package events

const (
	// KindVoiceEnabled identifies voice recognition being switched on.
	KindVoiceEnabled Kind = "voice.enabled"
	// KindVoiceDisabled identifies voice recognition being switched off.
	KindVoiceDisabled Kind = "voice.disabled"
)

// VoiceEnabled marks voice recognition being switched on.
type VoiceEnabled struct{ Base }

// NewVoiceEnabled creates a voice enabled event.
func NewVoiceEnabled() VoiceEnabled {
	return VoiceEnabled{Base: NewBase(KindVoiceEnabled)}
}

// VoiceDisabled marks voice recognition being switched off. Any recording in
// progress is discarded, not submitted.
type VoiceDisabled struct{ Base }

// NewVoiceDisabled creates a voice disabled event.
func NewVoiceDisabled() VoiceDisabled {
	return VoiceDisabled{Base: NewBase(KindVoiceDisabled)}
}
