package recall

import (
	"context"
	"testing"
	"time"

	"github.com/Ishfaq-code/Recallify/core/audio"
)

func TestAudioInputForwardsOnlyWhileEnabled(t *testing.T) {
	received := make(chan []byte, 4)
	input := newAudioInput(nil, func(chunk []byte) { received <- chunk })

	onAudioReady := make(chan func([]byte), 1)
	input.Set(audioInputClientStub{stream: func(ctx context.Context, onAudio func([]byte)) error {
		onAudioReady <- onAudio
		<-ctx.Done()
		return nil
	}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	input.Start(ctx)
	if !input.IsCapturing() {
		t.Fatalf("expected input to be capturing after start")
	}

	var onAudio func([]byte)
	select {
	case onAudio = <-onAudioReady:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the stream to open")
	}

	onAudio([]byte{1})

	input.EnableForwarding()
	onAudio([]byte{2})

	input.DisableForwarding()
	onAudio([]byte{3})

	select {
	case chunk := <-received:
		if len(chunk) != 1 || chunk[0] != 2 {
			t.Fatalf("expected only the chunk sent while forwarding, got %v", chunk)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the forwarded chunk")
	}

	select {
	case chunk := <-received:
		t.Fatalf("expected no further chunks, got %v", chunk)
	default:
	}
}

func TestAudioInputStartWithoutClientIsNoop(t *testing.T) {
	input := newAudioInput(nil, nil)

	input.Start(context.Background())

	if input.IsConfigured() {
		t.Fatalf("expected input to be unconfigured")
	}
	if input.IsCapturing() {
		t.Fatalf("expected input not to capture without a client")
	}
}

func TestAudioInputRepeatedCaptureOpensOneStream(t *testing.T) {
	streams := make(chan struct{}, 4)
	input := newAudioInput(audioInputClientStub{stream: func(ctx context.Context, _ func([]byte)) error {
		streams <- struct{}{}
		<-ctx.Done()
		return nil
	}}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := input.Capture(ctx); err != nil {
		t.Fatalf("expected capture to succeed, got %v", err)
	}
	if err := input.Capture(ctx); err != nil {
		t.Fatalf("expected repeated capture to be a no-op, got %v", err)
	}

	select {
	case <-streams:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the stream to open")
	}

	select {
	case <-streams:
		t.Fatalf("expected a single stream")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAudioInputForwardingSurvivesSet(t *testing.T) {
	input := newAudioInput(nil, nil)
	input.EnableForwarding()

	input.Set(audioInputClientStub{})

	if !input.IsForwarding() {
		t.Fatalf("expected forwarding to survive a client swap")
	}
	if !input.IsConfigured() {
		t.Fatalf("expected input to be configured after set")
	}
}

func TestAudioInputEncodingFallsBackToDefault(t *testing.T) {
	input := newAudioInput(nil, nil)

	if got := input.EncodingInfo(); got != audio.GetDefaultEncodingInfo() {
		t.Fatalf("expected default encoding without a client, got %+v", got)
	}

	configured := audio.EncodingInfo{SampleRate: 16000, Format: audio.EncodingLinear16}
	input.Set(audioInputClientStub{encodingInfo: func() audio.EncodingInfo { return configured }})

	if got := input.EncodingInfo(); got != configured {
		t.Fatalf("expected the client encoding, got %+v", got)
	}
}

type audioInputClientStub struct {
	encodingInfo func() audio.EncodingInfo
	stream       func(ctx context.Context, onAudio func(audio []byte)) error
	close        func()
}

func (stub audioInputClientStub) EncodingInfo() audio.EncodingInfo {
	if stub.encodingInfo != nil {
		return stub.encodingInfo()
	}
	return audio.GetDefaultEncodingInfo()
}

func (stub audioInputClientStub) Stream(ctx context.Context, onAudio func(audio []byte)) error {
	if stub.stream != nil {
		return stub.stream(ctx, onAudio)
	}
	return nil
}

func (stub audioInputClientStub) Close() {
	if stub.close != nil {
		stub.close()
	}
}
