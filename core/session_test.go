package recall

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Ishfaq-code/Recallify/core/backend"
)

func TestStartRequiresQuestionService(t *testing.T) {
	session := NewSession()
	defer session.Close()

	if err := session.Start(context.Background(), "doc-1"); err == nil {
		t.Fatalf("expected start without a question service to fail")
	}
	if session.IsActive() {
		t.Fatalf("expected session to stay inactive")
	}
}

func TestStartFetchesOpeningQuestion(t *testing.T) {
	session := NewSession(WithQuestionService(questionServiceStub{
		openingQuestion: func(_ context.Context, documentID string) (string, error) {
			if documentID != "doc-1" {
				t.Fatalf("expected document doc-1, got %q", documentID)
			}
			return "What is the mitochondria?", nil
		},
	}))
	defer session.Close()

	questions := []string{}
	err := session.Start(context.Background(), "doc-1",
		WithQuestionCallback(func(question string) {
			questions = append(questions, question)
		}),
	)
	if err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	if !session.IsActive() {
		t.Fatalf("expected session to be active")
	}
	if session.DocumentID() != "doc-1" {
		t.Fatalf("expected document doc-1, got %q", session.DocumentID())
	}
	if len(questions) != 1 || questions[0] != "What is the mitochondria?" {
		t.Fatalf("expected the opening question callback, got %v", questions)
	}

	messages := session.Conversation()
	if len(messages) != 1 {
		t.Fatalf("expected one history entry, got %d", len(messages))
	}
	if messages[0].Role != RoleQuestion || messages[0].Text != "What is the mitochondria?" {
		t.Fatalf("expected the opening question in the history, got %+v", messages[0])
	}

	if err := session.Start(context.Background(), "doc-2"); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive on a second start, got %v", err)
	}
}

func TestStartFailureLeavesSessionRetryable(t *testing.T) {
	attempts := 0
	session := NewSession(WithQuestionService(questionServiceStub{
		openingQuestion: func(context.Context, string) (string, error) {
			attempts++
			if attempts == 1 {
				return "", errors.New("backend unavailable")
			}
			return "opening question", nil
		},
	}))
	defer session.Close()

	failures := []string{}
	err := session.Start(context.Background(), "doc-1",
		WithRequestFailedCallback(func(operation string, _ error) {
			failures = append(failures, operation)
		}),
	)
	if err == nil {
		t.Fatalf("expected start to fail")
	}
	if session.IsActive() {
		t.Fatalf("expected session to stay inactive after a failed start")
	}
	if len(failures) != 1 || failures[0] != "opening question" {
		t.Fatalf("expected an opening question failure, got %v", failures)
	}

	if err := session.Start(context.Background(), "doc-1"); err != nil {
		t.Fatalf("expected retried start to succeed, got %v", err)
	}
	if !session.IsActive() {
		t.Fatalf("expected session to be active after retry")
	}
}

func TestSubmitAnswerValidation(t *testing.T) {
	session := NewSession(WithQuestionService(questionServiceStub{}))
	defer session.Close()

	if err := session.SubmitAnswer("too early"); !errors.Is(err, ErrSessionInactive) {
		t.Fatalf("expected ErrSessionInactive before start, got %v", err)
	}

	if err := session.Start(context.Background(), "doc-1"); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	if err := session.SubmitAnswer(""); !errors.Is(err, ErrEmptyAnswer) {
		t.Fatalf("expected ErrEmptyAnswer, got %v", err)
	}
	if err := session.SubmitAnswer("   \t "); !errors.Is(err, ErrEmptyAnswer) {
		t.Fatalf("expected ErrEmptyAnswer for whitespace, got %v", err)
	}
}

func TestSubmitAnswerRoundTrip(t *testing.T) {
	var requestsMu sync.Mutex
	requests := []backend.FollowupRequest{}

	session := NewSession(WithQuestionService(questionServiceStub{
		openingQuestion: func(context.Context, string) (string, error) {
			return "opening question", nil
		},
		followupQuestion: func(_ context.Context, req backend.FollowupRequest) (string, error) {
			requestsMu.Lock()
			requests = append(requests, req)
			requestsMu.Unlock()
			return "follow-up question", nil
		},
	}))
	defer session.Close()

	questionReceived := make(chan string, 4)
	answers := make(chan string, 4)
	err := session.Start(context.Background(), "doc-1",
		WithQuestionCallback(func(question string) { questionReceived <- question }),
		WithAnswerSubmittedCallback(func(answer string) { answers <- answer }),
	)
	if err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	<-questionReceived

	if err := session.SubmitAnswer("  the powerhouse of the cell  "); err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}

	select {
	case answer := <-answers:
		if answer != "the powerhouse of the cell" {
			t.Fatalf("expected trimmed answer, got %q", answer)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the answer callback")
	}

	select {
	case question := <-questionReceived:
		if question != "follow-up question" {
			t.Fatalf("expected the follow-up question, got %q", question)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the follow-up question")
	}

	if session.IsRequestPending() {
		t.Fatalf("expected no pending request after the round trip")
	}

	messages := session.Conversation()
	if len(messages) != 3 {
		t.Fatalf("expected question, answer, question in the history, got %d entries", len(messages))
	}
	if messages[1].Role != RoleAnswer || messages[1].Text != "the powerhouse of the cell" {
		t.Fatalf("expected the answer in the history, got %+v", messages[1])
	}
	if messages[2].Role != RoleQuestion || messages[2].Text != "follow-up question" {
		t.Fatalf("expected the follow-up in the history, got %+v", messages[2])
	}

	requestsMu.Lock()
	defer requestsMu.Unlock()
	if len(requests) != 1 {
		t.Fatalf("expected one follow-up request, got %d", len(requests))
	}
	if requests[0].UserAnswer != "the powerhouse of the cell" {
		t.Fatalf("expected the answer in the request, got %q", requests[0].UserAnswer)
	}
	if requests[0].PreviousQuestion != "opening question" {
		t.Fatalf("expected the previous question in the request, got %q", requests[0].PreviousQuestion)
	}
	if len(requests[0].ConversationHistory) != 1 || requests[0].ConversationHistory[0].Answer != "" {
		t.Fatalf("expected the context window from before the answer, got %+v", requests[0].ConversationHistory)
	}
}

func TestSubmitAnswerRejectsSecondRequestInFlight(t *testing.T) {
	release := make(chan struct{}, 2)
	session := NewSession(WithQuestionService(questionServiceStub{
		followupQuestion: func(context.Context, backend.FollowupRequest) (string, error) {
			<-release
			return "follow-up question", nil
		},
	}))
	defer session.Close()

	questionReceived := make(chan string, 4)
	if err := session.Start(context.Background(), "doc-1",
		WithQuestionCallback(func(question string) { questionReceived <- question }),
	); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	<-questionReceived

	if err := session.SubmitAnswer("first answer"); err != nil {
		t.Fatalf("expected first submit to succeed, got %v", err)
	}
	if !session.IsRequestPending() {
		t.Fatalf("expected a pending request")
	}
	if err := session.SubmitAnswer("second answer"); !errors.Is(err, ErrRequestPending) {
		t.Fatalf("expected ErrRequestPending, got %v", err)
	}

	release <- struct{}{}

	select {
	case <-questionReceived:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the follow-up question")
	}

	if err := session.SubmitAnswer("second answer"); err != nil {
		t.Fatalf("expected submit after the round trip to succeed, got %v", err)
	}
	release <- struct{}{}
}

func TestFailedFollowupKeepsAnswerAndAllowsResubmit(t *testing.T) {
	attempts := 0
	session := NewSession(WithQuestionService(questionServiceStub{
		followupQuestion: func(context.Context, backend.FollowupRequest) (string, error) {
			attempts++
			if attempts == 1 {
				return "", errors.New("backend unavailable")
			}
			return "follow-up question", nil
		},
	}))
	defer session.Close()

	questionReceived := make(chan string, 4)
	requestFailed := make(chan string, 4)
	if err := session.Start(context.Background(), "doc-1",
		WithQuestionCallback(func(question string) { questionReceived <- question }),
		WithRequestFailedCallback(func(operation string, _ error) { requestFailed <- operation }),
	); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	<-questionReceived

	if err := session.SubmitAnswer("first try"); err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}

	select {
	case operation := <-requestFailed:
		if operation != "follow-up question" {
			t.Fatalf("expected a follow-up failure, got %q", operation)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the request failure")
	}

	if session.IsRequestPending() {
		t.Fatalf("expected the pending request to clear after failure")
	}
	if !session.IsActive() {
		t.Fatalf("expected the session to stay active after failure")
	}

	messages := session.Conversation()
	if len(messages) != 2 {
		t.Fatalf("expected the failed answer to stay in the history, got %d entries", len(messages))
	}
	if messages[1].Role != RoleAnswer || messages[1].Text != "first try" {
		t.Fatalf("expected the submitted answer in the history, got %+v", messages[1])
	}

	if err := session.SubmitAnswer("second try"); err != nil {
		t.Fatalf("expected resubmit to succeed, got %v", err)
	}

	select {
	case <-questionReceived:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the follow-up question")
	}

	messages = session.Conversation()
	if len(messages) != 4 {
		t.Fatalf("expected both answers and the follow-up in the history, got %d entries", len(messages))
	}
	if messages[2].Role != RoleAnswer || messages[2].Text != "second try" {
		t.Fatalf("expected the resubmitted answer in the history, got %+v", messages[2])
	}
}

func TestEndSessionClearsHistoryAndAllowsRestart(t *testing.T) {
	session := NewSession(WithQuestionService(questionServiceStub{}))
	defer session.Close()

	if err := session.Start(context.Background(), "doc-1"); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	session.EndSession()

	if session.IsActive() {
		t.Fatalf("expected session to be inactive after end")
	}
	if len(session.Conversation()) != 0 {
		t.Fatalf("expected history to clear on end")
	}
	if err := session.SubmitAnswer("too late"); !errors.Is(err, ErrSessionInactive) {
		t.Fatalf("expected ErrSessionInactive after end, got %v", err)
	}

	if err := session.Start(context.Background(), "doc-2"); err != nil {
		t.Fatalf("expected a fresh start after end, got %v", err)
	}
	if session.DocumentID() != "doc-2" {
		t.Fatalf("expected the new document, got %q", session.DocumentID())
	}
}

func TestContextCancellationClosesSession(t *testing.T) {
	session := NewSession(WithQuestionService(questionServiceStub{}))

	ctx, cancel := context.WithCancel(context.Background())
	if err := session.Start(ctx, "doc-1"); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	cancel()

	select {
	case <-session.runtime.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the session to close")
	}

	if session.IsActive() {
		t.Fatalf("expected cancellation to end the session")
	}
	if err := session.Start(context.Background(), "doc-1"); err == nil {
		t.Fatalf("expected a closed session to refuse starting")
	}
	if err := session.SubmitAnswer("answer"); !errors.Is(err, ErrSessionInactive) {
		t.Fatalf("expected ErrSessionInactive after close, got %v", err)
	}
}

func TestVoiceAnswerRoundTrip(t *testing.T) {
	stt := &speechToTextClientStub{}
	var requestsMu sync.Mutex
	requests := []backend.FollowupRequest{}

	session := NewSession(
		WithQuestionService(questionServiceStub{
			openingQuestion: func(context.Context, string) (string, error) {
				return "opening question", nil
			},
			followupQuestion: func(_ context.Context, req backend.FollowupRequest) (string, error) {
				requestsMu.Lock()
				requests = append(requests, req)
				requestsMu.Unlock()
				return "follow-up question", nil
			},
		}),
		WithSpeechToTextClient(stt),
	)
	defer session.Close()

	session.EnableVoice()
	if !session.IsVoiceEnabled() {
		t.Fatalf("expected voice to be enabled")
	}

	questionReceived := make(chan string, 4)
	recordingStates := make(chan RecordingState, 8)
	if err := session.Start(context.Background(), "doc-1",
		WithQuestionCallback(func(question string) { questionReceived <- question }),
		WithRecordingStateCallback(func(state RecordingState) { recordingStates <- state }),
	); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	<-questionReceived

	expectRecordingState(t, recordingStates, RecordingArmed)
	if stt.streamCount() != 1 {
		t.Fatalf("expected capture to start with the session, got %d streams", stt.streamCount())
	}

	stream := stt.lastStream()
	stream.TranscriptCallback("gemini start the powerhouse of the cell gemini stop")

	expectRecordingState(t, recordingStates, RecordingAnswer)
	expectRecordingState(t, recordingStates, RecordingIdle)

	select {
	case question := <-questionReceived:
		if question != "follow-up question" {
			t.Fatalf("expected the follow-up question, got %q", question)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the follow-up question")
	}

	expectRecordingState(t, recordingStates, RecordingArmed)

	messages := session.Conversation()
	if len(messages) != 3 {
		t.Fatalf("expected question, answer, question in the history, got %d entries", len(messages))
	}
	if messages[1].Role != RoleAnswer || messages[1].Text != "the powerhouse of the cell" {
		t.Fatalf("expected the spoken answer in the history, got %+v", messages[1])
	}

	requestsMu.Lock()
	defer requestsMu.Unlock()
	if len(requests) != 1 || requests[0].UserAnswer != "the powerhouse of the cell" {
		t.Fatalf("expected the spoken answer in the follow-up request, got %+v", requests)
	}
}

func TestDisableVoiceDiscardsRecording(t *testing.T) {
	stt := &speechToTextClientStub{}
	session := NewSession(
		WithQuestionService(questionServiceStub{}),
		WithSpeechToTextClient(stt),
	)
	defer session.Close()

	session.EnableVoice()

	voiceStates := []bool{}
	questionReceived := make(chan string, 4)
	if err := session.Start(context.Background(), "doc-1",
		WithVoiceStateCallback(func(enabled bool) { voiceStates = append(voiceStates, enabled) }),
		WithQuestionCallback(func(question string) { questionReceived <- question }),
	); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	<-questionReceived

	stream := stt.lastStream()
	stream.TranscriptCallback("gemini start half an answer")
	if session.RecordingState() != RecordingAnswer {
		t.Fatalf("expected to be recording, got %v", session.RecordingState())
	}

	session.DisableVoice()

	if session.IsVoiceEnabled() {
		t.Fatalf("expected voice to be disabled")
	}
	if session.RecordingState() != RecordingIdle {
		t.Fatalf("expected recording to be discarded, got %v", session.RecordingState())
	}

	stream.TranscriptCallback("half an answer gemini stop")
	if len(session.Conversation()) != 1 {
		t.Fatalf("expected the orphaned recording not to submit, got %d entries", len(session.Conversation()))
	}

	if err := session.SubmitAnswer("typed answer"); err != nil {
		t.Fatalf("expected typed answers to work with voice off, got %v", err)
	}

	select {
	case <-questionReceived:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the follow-up question")
	}

	session.EnableVoice()
	if session.RecordingState() != RecordingArmed {
		t.Fatalf("expected re-enabling voice to arm capture, got %v", session.RecordingState())
	}
	if stt.streamCount() != 2 {
		t.Fatalf("expected a fresh capture stream, got %d", stt.streamCount())
	}

	if len(voiceStates) != 2 || voiceStates[0] != false || voiceStates[1] != true {
		t.Fatalf("expected voice state callbacks off then on, got %v", voiceStates)
	}
}

func expectRecordingState(t *testing.T, states chan RecordingState, expected RecordingState) {
	t.Helper()

	select {
	case state := <-states:
		if state != expected {
			t.Fatalf("expected recording state %v, got %v", expected, state)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for recording state %v", expected)
	}
}

type questionServiceStub struct {
	openingQuestion  func(ctx context.Context, documentID string) (string, error)
	followupQuestion func(ctx context.Context, req backend.FollowupRequest) (string, error)
}

func (stub questionServiceStub) OpeningQuestion(ctx context.Context, documentID string) (string, error) {
	if stub.openingQuestion != nil {
		return stub.openingQuestion(ctx, documentID)
	}
	return "opening question", nil
}

func (stub questionServiceStub) FollowupQuestion(ctx context.Context, req backend.FollowupRequest) (string, error) {
	if stub.followupQuestion != nil {
		return stub.followupQuestion(ctx, req)
	}
	return "follow-up question", nil
}
