package deepgram

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Ishfaq-code/Recallify/core/speechtotext"
)

// TranscriptionClient streams microphone audio to Deepgram's realtime listen
// API and reports recognition results through callbacks. A client can be
// reused across streams, but only one stream may be live at a time.
type TranscriptionClient struct {
	conn   *websocket.Conn
	connMu sync.Mutex

	lastMsgTs time.Time

	// unendedSegment tracks whether a detected utterance is still open, so
	// the silence-timeout signal only fires for speech that never got an
	// end-of-speech result. Touched only by the stream's read loop.
	unendedSegment bool
}

func NewTranscriptionClient() *TranscriptionClient {
	return &TranscriptionClient{lastMsgTs: time.Now()}
}

type transcriptionCallbacks struct {
	interimTranscriptCallback func(transcript string)
	transcriptCallback        func(transcript string)
	speechStartedCallback     func()
	speechEndedCallback       func()
	errorCallback             func(err error)
	closedCallback            func()
}

type websocketConfig struct {
	shouldRequestInterimResults bool
	shouldDetectSpeechStart     bool
	shouldDetectSpeechEnd       bool
}

// newCallbackConfig fills unset callbacks with noops so the processing loop
// never has to nil-check, and derives the websocket features to request.
func newCallbackConfig(options speechtotext.TranscriptionOptions) (transcriptionCallbacks, websocketConfig) {
	callbacks := transcriptionCallbacks{
		interimTranscriptCallback: options.InterimTranscriptCallback,
		transcriptCallback:        options.TranscriptCallback,
		speechStartedCallback:     options.SpeechStartedCallback,
		speechEndedCallback:       options.SpeechEndedCallback,
		errorCallback:             options.ErrorCallback,
		closedCallback:            options.ClosedCallback,
	}
	if callbacks.interimTranscriptCallback == nil {
		callbacks.interimTranscriptCallback = func(string) {}
	}
	if callbacks.transcriptCallback == nil {
		callbacks.transcriptCallback = func(string) {}
	}
	if callbacks.speechStartedCallback == nil {
		callbacks.speechStartedCallback = func() {}
	}
	if callbacks.speechEndedCallback == nil {
		callbacks.speechEndedCallback = func() {}
	}
	if callbacks.errorCallback == nil {
		callbacks.errorCallback = func(error) {}
	}
	if callbacks.closedCallback == nil {
		callbacks.closedCallback = func() {}
	}

	return callbacks, websocketConfig{
		shouldRequestInterimResults: options.InterimTranscriptCallback != nil,
		shouldDetectSpeechStart:     options.SpeechStartedCallback != nil,
		shouldDetectSpeechEnd:       options.SpeechEndedCallback != nil,
	}
}
