package deepgram

import "fmt"

type deepgramVoice string

// Voices available through the realtime speak API.
const (
	VoiceThalia    deepgramVoice = "aura-2-thalia-en"
	VoiceAsteria   deepgramVoice = "aura-2-asteria-en"
	VoiceLuna      deepgramVoice = "aura-2-luna-en"
	VoiceStella    deepgramVoice = "aura-2-stella-en"
	VoiceAthena    deepgramVoice = "aura-2-athena-en"
	VoiceHera      deepgramVoice = "aura-2-hera-en"
	VoiceOrion     deepgramVoice = "aura-2-orion-en"
	VoiceArcas     deepgramVoice = "aura-2-arcas-en"
	VoicePerseus   deepgramVoice = "aura-2-perseus-en"
	VoiceAngus     deepgramVoice = "aura-2-angus-en"
	VoiceOrpheus   deepgramVoice = "aura-2-orpheus-en"
	VoiceHelios    deepgramVoice = "aura-2-helios-en"
	VoiceZeus      deepgramVoice = "aura-2-zeus-en"
	VoiceAndromeda deepgramVoice = "aura-2-andromeda-en"
)

var defaultVoice = VoiceThalia

func GetAvailableVoices() []deepgramVoice {
	return []deepgramVoice{
		VoiceThalia,
		VoiceAsteria,
		VoiceLuna,
		VoiceStella,
		VoiceAthena,
		VoiceHera,
		VoiceOrion,
		VoiceArcas,
		VoicePerseus,
		VoiceAngus,
		VoiceOrpheus,
		VoiceHelios,
		VoiceZeus,
		VoiceAndromeda,
	}
}

// ParseVoice resolves a voice by its model name, e.g. "aura-2-thalia-en".
// An empty name resolves to the default voice.
func ParseVoice(name string) (deepgramVoice, error) {
	if name == "" {
		return defaultVoice, nil
	}
	for _, voice := range GetAvailableVoices() {
		if string(voice) == name {
			return voice, nil
		}
	}
	return "", fmt.Errorf("unknown voice %q", name)
}
