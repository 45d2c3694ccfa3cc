package recall

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Ishfaq-code/Recallify/core/audio"
	"github.com/Ishfaq-code/Recallify/core/events"
	"github.com/Ishfaq-code/Recallify/core/speechtotext"
)

// RecordingState describes what the capture supervisor is listening for.
type RecordingState int

const (
	// RecordingIdle means spoken answers are not being collected.
	RecordingIdle RecordingState = iota
	// RecordingArmed means capture is waiting for the start phrase.
	RecordingArmed
	// RecordingAnswer means the start phrase was heard and transcripts
	// accumulate until the stop phrase.
	RecordingAnswer
)

func (s RecordingState) String() string {
	switch s {
	case RecordingIdle:
		return "idle"
	case RecordingArmed:
		return "armed"
	case RecordingAnswer:
		return "recording"
	}

	return "unknown"
}

const (
	defaultRestartDelay    = time.Second
	defaultErrorRetryDelay = 3 * time.Second
)

// supervisorHooks connect the supervisor to the session that owns it.
type supervisorHooks struct {
	// canListen reports whether capture should be running at all.
	canListen func() bool
	// onAnswer receives each committed answer.
	onAnswer func(answer string)
	// onFatal receives errors that retrying cannot fix.
	onFatal func(err error)
	// encoding provides the capture encoding for new streams.
	encoding func() audio.EncodingInfo
}

// captureSupervisor keeps a transcription stream alive while the session
// wants to hear the user, scans finalized transcripts for the wake phrases
// and accumulates everything between them into an answer.
//
// Handlers collect events under the lock and emit them after releasing it,
// so a callback that re-enters the supervisor cannot deadlock.
type captureSupervisor struct {
	capture *speechCapture
	hooks   supervisorHooks

	emitEvent eventEmitter
	schedule  scheduleFunc

	// generation identifies the live capture stream. Stream callbacks hold
	// the generation they were created under and drop themselves once it
	// goes stale.
	generation atomic.Uint64

	mu          sync.Mutex
	state       RecordingState
	answerParts []string
	live        bool
	manualStop  bool
	captureID   string

	startPhrase     string
	stopPhrase      string
	restartDelay    time.Duration
	errorRetryDelay time.Duration

	restart     restartTimer
	baseContext context.Context
}

func newCaptureSupervisor(capture *speechCapture, hooks supervisorHooks) *captureSupervisor {
	if hooks.canListen == nil {
		hooks.canListen = func() bool { return true }
	}
	if hooks.onAnswer == nil {
		hooks.onAnswer = func(string) {}
	}
	if hooks.onFatal == nil {
		hooks.onFatal = func(error) {}
	}
	if hooks.encoding == nil {
		hooks.encoding = audio.GetDefaultEncodingInfo
	}

	return &captureSupervisor{
		capture:   capture,
		hooks:     hooks,
		emitEvent: noopEventEmitter,
		schedule:  scheduleAfterFunc,

		startPhrase:     defaultStartPhrase,
		stopPhrase:      defaultStopPhrase,
		restartDelay:    defaultRestartDelay,
		errorRetryDelay: defaultErrorRetryDelay,

		baseContext: context.Background(),
	}
}

func (s *captureSupervisor) setWakePhrases(startPhrase, stopPhrase string) {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if startPhrase != "" {
		s.startPhrase = startPhrase
	}
	if stopPhrase != "" {
		s.stopPhrase = stopPhrase
	}
}

func (s *captureSupervisor) setRestartPolicy(restartDelay, errorRetryDelay time.Duration) {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if restartDelay > 0 {
		s.restartDelay = restartDelay
	}
	if errorRetryDelay > 0 {
		s.errorRetryDelay = errorRetryDelay
	}
}

func (s *captureSupervisor) configure(ctx context.Context, emitEvent eventEmitter) {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx != nil {
		s.baseContext = ctx
	}
	if emitEvent != nil {
		s.emitEvent = emitEvent
	}
}

func (s *captureSupervisor) RecordingState() RecordingState {
	if s == nil {
		return RecordingIdle
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Listen arms the supervisor and keeps a capture stream alive until Stop is
// called or listening stops making sense. Calling Listen while already
// listening is a no-op.
func (s *captureSupervisor) Listen() {
	if s == nil || !s.capture.isConfigured() {
		return
	}

	s.mu.Lock()
	s.manualStop = false

	if !s.hooks.canListen() {
		s.mu.Unlock()
		return
	}

	var evts []events.Event
	if s.state == RecordingIdle {
		s.state = RecordingArmed
		evts = append(evts, events.NewRecordingArmed())
	}

	var after func()
	if !s.live {
		s.restart.Cancel()
		var startEvts []events.Event
		startEvts, after = s.startCaptureLocked()
		evts = append(evts, startEvts...)
	}
	s.mu.Unlock()

	s.dispatch(evts)
	if after != nil {
		after()
	}
}

// Stop ends supervised capture. A recording in progress is discarded.
func (s *captureSupervisor) Stop() error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	s.manualStop = true
	s.restart.Cancel()
	// Orphan the stream's callbacks so results that trickle in during the
	// graceful close cannot re-arm anything.
	s.generation.Add(1)

	var evts []events.Event
	if s.state != RecordingIdle {
		s.state = RecordingIdle
		evts = append(evts, events.NewRecordingStopped(""))
	}
	s.answerParts = nil

	var err error
	if s.live {
		s.live = false
		err = s.capture.Stop(s.baseContext)
		evts = append(evts, events.NewCaptureEnded(s.captureID))
	}
	s.mu.Unlock()

	s.dispatch(evts)
	return err
}

// startCaptureLocked opens a new transcription stream. It returns the events
// to emit and an optional call to make, both once the lock is released.
func (s *captureSupervisor) startCaptureLocked() ([]events.Event, func()) {
	gen := s.generation.Add(1)
	s.captureID = uuid.NewString()
	captureID := s.captureID

	callbacks := captureCallbacks{
		onInterimTranscript: func(transcript string) { s.handleInterim(gen, transcript) },
		onTranscript:        func(transcript string) { s.handleTranscript(gen, transcript) },
		onSpeechEnded:       func() { s.handleSpeechEnded(gen) },
		onError:             func(err error) { s.handleCaptureError(gen, err) },
		onClosed:            func() { s.handleCaptureClosed(gen) },
	}

	encodingInfo := s.hooks.encoding()
	if err := s.capture.start(s.baseContext, callbacks, &encodingInfo); err != nil {
		evts := []events.Event{events.NewCaptureFailed(captureID, err.Error())}
		if errors.Is(err, speechtotext.ErrUnauthorized) {
			return evts, func() { s.hooks.onFatal(err) }
		}

		s.scheduleRestartLocked(s.errorRetryDelay)
		return evts, nil
	}

	s.live = true

	evts := []events.Event{events.NewCaptureStarted(captureID)}
	// A reconnect mid answer restores the preview of what was already
	// accumulated.
	if s.state == RecordingAnswer && len(s.answerParts) > 0 {
		evts = append(evts, events.NewCaptureTranscriptInterim(strings.Join(s.answerParts, " ")))
	}

	return evts, nil
}

func (s *captureSupervisor) scheduleRestartLocked(delay time.Duration) {
	s.restart.Schedule(s.schedule, delay, func() {
		s.mu.Lock()
		if s.live || s.manualStop || !s.hooks.canListen() {
			s.mu.Unlock()
			return
		}

		evts, after := s.startCaptureLocked()
		s.mu.Unlock()

		s.dispatch(evts)
		if after != nil {
			after()
		}
	})
}

func (s *captureSupervisor) handleInterim(gen uint64, transcript string) {
	s.mu.Lock()
	if s.generation.Load() != gen {
		s.mu.Unlock()
		return
	}

	preview := transcript
	if s.state == RecordingAnswer && len(s.answerParts) > 0 {
		preview = strings.Join(s.answerParts, " ") + " " + transcript
	}
	s.mu.Unlock()

	s.emitEvent(events.NewCaptureTranscriptInterim(preview))
}

// handleSpeechEnded resets the live preview to what was actually kept once
// the user falls silent. Without it the last interim guess of an utterance
// outlives the speech it previewed.
func (s *captureSupervisor) handleSpeechEnded(gen uint64) {
	s.mu.Lock()
	if s.generation.Load() != gen {
		s.mu.Unlock()
		return
	}
	preview := strings.Join(s.answerParts, " ")
	s.mu.Unlock()

	s.emitEvent(events.NewCaptureTranscriptInterim(preview))
}

// handleTranscript feeds a finalized transcript through the wake phrase
// state machine. Only finalized results are scanned; interim previews are
// too unstable to trigger recording.
func (s *captureSupervisor) handleTranscript(gen uint64, transcript string) {
	s.mu.Lock()
	if s.generation.Load() != gen {
		s.mu.Unlock()
		return
	}

	evts := []events.Event{events.NewCaptureTranscriptFinal(transcript)}

	var after func()
	switch s.state {
	case RecordingArmed:
		remainder, found := textAfterPhrase(transcript, s.startPhrase)
		if !found {
			break
		}

		s.state = RecordingAnswer
		s.answerParts = nil
		if remainder != "" {
			s.answerParts = append(s.answerParts, remainder)
		}
		evts = append(evts, events.NewRecordingStarted())

		// Both wake phrases can arrive in the same result.
		var commitEvts []events.Event
		commitEvts, after = s.tryCommitLocked()
		evts = append(evts, commitEvts...)

	case RecordingAnswer:
		s.answerParts = append(s.answerParts, transcript)

		var commitEvts []events.Event
		commitEvts, after = s.tryCommitLocked()
		evts = append(evts, commitEvts...)
	}
	s.mu.Unlock()

	s.dispatch(evts)
	if after != nil {
		after()
	}
}

// tryCommitLocked scans the accumulated answer for the stop phrase and, if
// heard, commits everything between the wake phrases. Within one result the
// last stop phrase occurrence wins, so an answer that quotes the phrase is
// not cut short.
func (s *captureSupervisor) tryCommitLocked() ([]events.Event, func()) {
	combined := strings.Join(s.answerParts, " ")
	body, found := textBeforeLastPhrase(combined, s.stopPhrase)
	if !found {
		return nil, nil
	}

	answer := stripPhrases(body, s.startPhrase, s.stopPhrase)
	s.answerParts = nil

	if answer == "" {
		// Nothing but wake phrases was heard; re-arm and keep listening.
		s.state = RecordingArmed
		return []events.Event{
			events.NewRecordingStopped(""),
			events.NewRecordingArmed(),
		}, nil
	}

	s.state = RecordingIdle

	evts := []events.Event{events.NewRecordingStopped(answer)}
	// Capture pauses while the answer is processed; the session arms it
	// again once the next question arrives. The stream closes gracefully on
	// its own time, handleCaptureClosed does the bookkeeping.
	if err := s.capture.Stop(s.baseContext); err != nil {
		evts = append(evts, events.NewCaptureFailed(s.captureID, err.Error()))
	}

	return evts, func() { s.hooks.onAnswer(answer) }
}

func (s *captureSupervisor) handleCaptureClosed(gen uint64) {
	s.mu.Lock()
	if s.generation.Load() != gen {
		s.mu.Unlock()
		return
	}

	s.live = false
	evts := []events.Event{events.NewCaptureEnded(s.captureID)}

	if !s.manualStop && s.state != RecordingIdle && s.hooks.canListen() {
		s.scheduleRestartLocked(s.restartDelay)
	}
	s.mu.Unlock()

	s.dispatch(evts)
}

func (s *captureSupervisor) handleCaptureError(gen uint64, err error) {
	s.mu.Lock()
	if s.generation.Load() != gen {
		s.mu.Unlock()
		return
	}

	s.live = false
	evts := []events.Event{events.NewCaptureFailed(s.captureID, err.Error())}

	var after func()
	if errors.Is(err, speechtotext.ErrUnauthorized) {
		after = func() { s.hooks.onFatal(err) }
	} else if !s.manualStop && s.state != RecordingIdle && s.hooks.canListen() {
		s.scheduleRestartLocked(s.errorRetryDelay)
	}
	s.mu.Unlock()

	s.dispatch(evts)
	if after != nil {
		after()
	}
}

func (s *captureSupervisor) dispatch(evts []events.Event) {
	for _, event := range evts {
		s.emitEvent(event)
	}
}
