package recall

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/Ishfaq-code/Recallify/core/audio"
)

type audioInput struct {
	// base stores the configured input client used for streaming audio.
	base audioInputBase

	// connected reports whether a concrete input client is currently configured.
	connected atomic.Bool
	// isCapturing reports whether the input client is currently capturing audio.
	isCapturing atomic.Bool
	// forwardAudio gates whether captured audio is handed to the transcription
	// layer. The device keeps capturing while voice is off so re-enabling does
	// not have to reopen it.
	forwardAudio atomic.Bool

	// onInputAudio is called when input audio is received
	onInputAudio func(audio []byte)
}

func newAudioInput(client audioInputBase, onInputAudio func(audio []byte)) *audioInput {
	if onInputAudio == nil {
		onInputAudio = func(audio []byte) {}
	}

	audioInput := audioInput{onInputAudio: onInputAudio}
	audioInput.Set(client)
	return &audioInput
}

func (a *audioInput) Set(client audioInputBase) {
	if a == nil {
		return
	}

	a.base = client
	a.connected.Store(false)
	a.isCapturing.Store(false)

	if client == nil {
		return
	}

	a.connected.Store(true)
}

func (a *audioInput) IsConfigured() bool { return a != nil && a.connected.Load() }
func (a *audioInput) IsCapturing() bool  { return a != nil && a.isCapturing.Load() }
func (a *audioInput) IsForwarding() bool { return a != nil && a.forwardAudio.Load() }

func (a *audioInput) EnableForwarding() {
	if a == nil {
		return
	}

	a.forwardAudio.Store(true)
}

func (a *audioInput) DisableForwarding() {
	if a == nil {
		return
	}

	a.forwardAudio.Store(false)
}

func (a *audioInput) Start(ctx context.Context) {
	if a.IsConfigured() {
		a.Capture(ctx)
	}
}

func (a *audioInput) Capture(ctx context.Context) error {
	if a == nil {
		return nil
	}

	if !a.isCapturing.CompareAndSwap(false, true) {
		return nil
	}

	if a.base != nil {
		go func() {
			if err := a.base.Stream(ctx, a.onAudio); err != nil {
				a.isCapturing.Store(false)
				// TODO: Surface device failures to the capture supervisor
				// instead of only logging them.
				log.Printf("Failed to start audio input: %v", err)
			}
		}()
		return nil
	}

	a.isCapturing.Store(false)
	return nil
}

func (a *audioInput) Close() {
	if a.base != nil && a.IsConfigured() {
		a.base.Close()
	}
	a.isCapturing.Store(false)
}

func (a *audioInput) EncodingInfo() audio.EncodingInfo {
	if a == nil || a.base == nil {
		return audio.GetDefaultEncodingInfo()
	}

	return a.base.EncodingInfo()
}

func (a *audioInput) onAudio(audio []byte) {
	if !a.forwardAudio.Load() {
		return
	}

	a.onInputAudio(audio)
}
