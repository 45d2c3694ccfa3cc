package recall

import (
	"reflect"

	"github.com/Ishfaq-code/Recallify/core/audio"
)

// audioOutput wraps the configured playback client so session code does not
// have to nil-check it at every call site.
//
// NOTE: methods intentionally do best-effort forwarding and ignore client
// return errors because playback is treated as a non-fatal side effect of
// speaking a question.
type audioOutput struct {
	// base stores the configured output client.
	base AudioOutput
}

func newAudioOutput(client AudioOutput) *audioOutput {
	audioOutput := audioOutput{}
	audioOutput.Set(client)
	return &audioOutput
}

// Set replaces the configured output client. Nil and typed-nil clients are
// treated as unconfigured.
func (a *audioOutput) Set(client AudioOutput) {
	if a == nil {
		return
	}

	a.base = nil
	if isNilAudioOutput(client) {
		return
	}
	a.base = client
}

func (a *audioOutput) isConfigured() bool {
	return a != nil && a.base != nil
}

// SendAudio forwards a chunk to the configured output client. If no client is
// configured, the chunk is dropped.
func (a *audioOutput) SendAudio(audio []byte) {
	if a.base != nil {
		a.base.SendAudio(audio)
	}
}

// AwaitMark blocks until playback reaches the most recent mark. Without
// output configured it returns immediately so speech tracking can continue
// progressing.
func (a *audioOutput) AwaitMark() error {
	if a.base != nil {
		return a.base.AwaitMark()
	}

	return nil
}

// Clear flushes buffered output on the configured client.
func (a *audioOutput) Clear() {
	if a.base != nil {
		a.base.ClearBuffer()
	}
}

// EncodingInfo returns the active output encoding metadata, falling back to
// the project default when no client is configured.
func (a *audioOutput) EncodingInfo() audio.EncodingInfo {
	if a.base != nil {
		return a.base.EncodingInfo()
	}

	return audio.GetDefaultEncodingInfo()
}

// isNilAudioOutput detects nil and typed-nil interface values so Set can
// avoid storing unusable interface wrappers as configured clients.
func isNilAudioOutput(client AudioOutput) bool {
	if client == nil {
		return true
	}

	v := reflect.ValueOf(client)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}
