package deepgram

import (
	"fmt"
	"slices"
)

// TextToSpeechClient opens realtime synthesis streams against Deepgram's
// speak API. The client itself holds no connection, each stream owns its
// own websocket.
type TextToSpeechClient struct {
	voice deepgramVoice
}

func NewTextToSpeechClient(voice deepgramVoice) (*TextToSpeechClient, error) {
	if !slices.Contains(GetAvailableVoices(), voice) {
		return nil, fmt.Errorf("invalid voice %q", voice)
	}

	return &TextToSpeechClient{voice: voice}, nil
}

// SetVoice changes the voice used by streams opened after the call. Streams
// already open keep the voice they were opened with.
func (c *TextToSpeechClient) SetVoice(voice deepgramVoice) error {
	if !slices.Contains(GetAvailableVoices(), voice) {
		return fmt.Errorf("invalid voice %q", voice)
	}

	c.voice = voice
	return nil
}

func (c *TextToSpeechClient) Voice() deepgramVoice {
	return c.voice
}
