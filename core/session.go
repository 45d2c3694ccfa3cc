package recall

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Ishfaq-code/Recallify/core/backend"
	"github.com/Ishfaq-code/Recallify/core/events"
)

// Session drives one active-recall study loop over an uploaded document:
// the backend asks a question, the user answers by voice or text, and the
// answer is traded for the next question.
type Session struct {
	// ID identifies the session.
	ID string

	conversation conversationLog
	runtime      *sessionRuntime

	// capture is the speech-to-text facade used to handle optional client
	// wiring.
	capture *speechCapture
	// supervisor owns the wake phrase state machine and keeps capture alive.
	supervisor *captureSupervisor
	// speechOutput reads questions out loud.
	speechOutput *speechOutput
	// audioInput is the input facade used to normalize capture behavior.
	audioInput  *audioInput
	audioOutput *audioOutput

	questions QuestionService

	voiceEnabled atomic.Bool
	documentID   string

	startOptions StartOptions
	emitEvent    eventEmitter
	baseContext  context.Context

	closeOnce sync.Once
	closeHook chan struct{}
}

func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		ID:          uuid.NewString(),
		runtime:     newSessionRuntime(),
		capture:     newSpeechCapture(nil),
		emitEvent:   noopEventEmitter,
		baseContext: context.Background(),
	}

	s.audioInput = newAudioInput(nil, func(audio []byte) {
		s.capture.SendAudio(audio)
	})
	s.audioOutput = newAudioOutput(nil)

	s.speechOutput = newSpeechOutput(s.audioOutput)
	s.speechOutput.setEnabledCheck(s.voiceEnabled.Load)

	s.supervisor = newCaptureSupervisor(s.capture, supervisorHooks{
		canListen: s.canListen,
		onAnswer:  s.submitRecordedAnswer,
		onFatal:   s.handleFatalCaptureError,
		encoding:  s.audioInput.EncodingInfo,
	})

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens a study session over an uploaded document: it requests the
// opening question, starts the answer pipeline and, when voice is enabled,
// arms capture and speaks the question out loud.
//
// ctx is the base context for capture, speech and question requests;
// cancelling it closes the session.
//
// On failure the session is left inactive and Start can be called again.
// Concurrent calls are unsupported.
func (s *Session) Start(ctx context.Context, documentID string, opts ...StartOption) error {
	if s.runtime.isClosed() {
		return fmt.Errorf("session is closed")
	}
	if s.questions == nil {
		return fmt.Errorf("a question service is required to start a session")
	}
	if s.conversation.active.Load() {
		return ErrSessionActive
	}

	s.startOptions = StartOptions{}
	for _, opt := range opts {
		opt(&s.startOptions)
	}

	s.baseContext = ctx
	s.emitEvent = newCallbackEventEmitter(s.startOptions)
	s.supervisor.configure(ctx, s.emitEvent)
	s.speechOutput.setEventEmitter(s.emitEvent)
	s.runtime.configure(ctx, s.processAnswer)

	question, err := s.questions.OpeningQuestion(ctx, documentID)
	if err != nil {
		s.emitEvent(events.NewRequestFailed("opening question", err.Error()))
		return fmt.Errorf("failed to fetch opening question: %w", err)
	}

	s.documentID = documentID
	s.conversation.reset()
	message, err := s.conversation.append(RoleQuestion, question)
	if err != nil {
		return fmt.Errorf("failed to record opening question: %w", err)
	}
	s.conversation.active.Store(true)

	if started := s.runtime.start(); started {
		s.closeHook = withContextCancelHook(ctx, s.Close)
	}

	s.emitEvent(events.NewSessionStarted(s.ID, documentID))
	s.emitEvent(events.NewQuestionReceived(message.ID, message.Text))

	if s.voiceEnabled.Load() {
		s.audioInput.Start(ctx)
		s.supervisor.Listen()
		s.speakQuestion(message.Text)
	}

	return nil
}

// SubmitAnswer records an answer to the current question and requests the
// follow-up. At most one request is in flight; until it resolves further
// submissions are rejected with ErrRequestPending.
func (s *Session) SubmitAnswer(answer string) error {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return ErrEmptyAnswer
	}
	if !s.conversation.active.Load() {
		return ErrSessionInactive
	}

	if !s.conversation.requestPending.CompareAndSwap(false, true) {
		return ErrRequestPending
	}

	// The context window is captured before the answer enters the history;
	// the answer itself travels separately in the request.
	previousQuestion, history := s.conversation.followupContext()

	message, err := s.conversation.append(RoleAnswer, answer)
	if err != nil {
		s.conversation.requestPending.Store(false)
		return err
	}

	s.emitEvent(events.NewAnswerSubmitted(message.ID, message.Text))

	if !s.runtime.enqueue(queuedAnswer{
		answer:           message,
		previousQuestion: previousQuestion,
		history:          history,
	}) {
		s.conversation.requestPending.Store(false)
		return fmt.Errorf("session is closed")
	}

	return nil
}

// processAnswer resolves one queued answer into the next question. It runs
// on the runtime's drain goroutine.
func (s *Session) processAnswer(ctx context.Context, item queuedAnswer) error {
	question, err := s.questions.FollowupQuestion(ctx, backend.FollowupRequest{
		UserAnswer:          item.answer.Text,
		PreviousQuestion:    item.previousQuestion,
		ConversationHistory: item.history,
	})
	s.conversation.requestPending.Store(false)

	if err != nil {
		// The submitted answer stays in the history; retrying is the user's
		// call.
		s.emitEvent(events.NewRequestFailed("follow-up question", err.Error()))
		s.supervisor.Listen()
		return fmt.Errorf("failed to fetch follow-up question: %w", err)
	}

	if !s.conversation.active.Load() {
		return nil
	}

	message, err := s.conversation.append(RoleQuestion, question)
	if err != nil {
		return fmt.Errorf("failed to record follow-up question: %w", err)
	}

	s.emitEvent(events.NewQuestionReceived(message.ID, message.Text))

	s.speakQuestion(message.Text)
	s.supervisor.Listen()

	return nil
}

// EndSession deactivates the session and clears its history. Capture stops
// and current speech is cut off; voice stays enabled for the next session.
func (s *Session) EndSession() {
	if !s.conversation.active.CompareAndSwap(true, false) {
		return
	}

	if err := s.supervisor.Stop(); err != nil {
		s.recordError(fmt.Errorf("failed to stop capture: %w", err))
	}
	s.speechOutput.Cancel()

	s.conversation.reset()
	s.emitEvent(events.NewSessionEnded(s.ID))
}

// Close ends the session permanently and releases audio resources. A closed
// session cannot be started again.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.EndSession()
		s.runtime.end()

		s.audioInput.Close()

		if s.closeHook != nil {
			close(s.closeHook)
		}

		s.runtime.waitUntilEnded()
	})
}

// EnableVoice turns on audio capture and spoken questions. Listening only
// begins once a session is active. Idempotent.
func (s *Session) EnableVoice() {
	if !s.voiceEnabled.CompareAndSwap(false, true) {
		return
	}

	s.audioInput.EnableForwarding()
	s.emitEvent(events.NewVoiceEnabled())

	if s.conversation.active.Load() {
		s.audioInput.Start(s.baseContext)
		s.supervisor.Listen()
	}
}

// DisableVoice turns off capture and speech. A recording in progress is
// discarded and current speech is cut off. Idempotent.
func (s *Session) DisableVoice() {
	if !s.voiceEnabled.CompareAndSwap(true, false) {
		return
	}

	s.audioInput.DisableForwarding()
	s.speechOutput.Cancel()

	if err := s.supervisor.Stop(); err != nil {
		s.recordError(fmt.Errorf("failed to stop capture: %w", err))
	}

	s.emitEvent(events.NewVoiceDisabled())
}

// Conversation returns a point-in-time copy of the session history.
func (s *Session) Conversation() []ConversationMessage {
	return s.conversation.Snapshot()
}

func (s *Session) RecordingState() RecordingState { return s.supervisor.RecordingState() }
func (s *Session) IsActive() bool                 { return s.conversation.active.Load() }
func (s *Session) IsVoiceEnabled() bool           { return s.voiceEnabled.Load() }
func (s *Session) IsRequestPending() bool         { return s.conversation.requestPending.Load() }
func (s *Session) IsSpeaking() bool               { return s.speechOutput.IsSpeaking() }
func (s *Session) DocumentID() string             { return s.documentID }

// canListen gates supervised capture: voice must be on, the session active,
// and no question request in flight.
func (s *Session) canListen() bool {
	return s.voiceEnabled.Load() &&
		s.conversation.active.Load() &&
		!s.conversation.requestPending.Load()
}

// submitRecordedAnswer feeds a committed voice recording through the same
// path as typed input.
func (s *Session) submitRecordedAnswer(answer string) {
	if err := s.SubmitAnswer(answer); err != nil {
		s.emitEvent(events.NewRequestFailed("submit answer", err.Error()))
	}
}

// handleFatalCaptureError forces voice off when capture failed in a way
// retrying cannot fix, such as a rejected API key.
func (s *Session) handleFatalCaptureError(err error) {
	logger.ErrorContext(s.baseContext, "Disabling voice after an unrecoverable capture failure",
		"error", err)
	s.DisableVoice()
}

// speakQuestion reads a question out loud. Speech failures are recorded but
// never fail the question round-trip; the question is already on screen.
func (s *Session) speakQuestion(text string) {
	if err := s.speechOutput.Speak(s.baseContext, text); err != nil {
		s.recordError(fmt.Errorf("failed to speak question: %w", err))
	}
}

func (s *Session) recordError(err error) {
	span := trace.SpanFromContext(s.baseContext)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
