package events

const (
	// KindSessionStarted identifies a study session starting.
	KindSessionStarted Kind = "conversation.session_started"
	// KindSessionEnded identifies a study session ending.
	KindSessionEnded Kind = "conversation.session_ended"
	// KindAnswerSubmitted identifies a user answer entering the history.
	KindAnswerSubmitted Kind = "conversation.answer_submitted"
	// KindQuestionReceived identifies a question entering the history.
	KindQuestionReceived Kind = "conversation.question_received"
	// KindRequestFailed identifies a failed question request.
	KindRequestFailed Kind = "conversation.request_failed"
)

// SessionStarted marks a study session starting against a document.
type SessionStarted struct {
	Base
	SessionID  string
	DocumentID string
}

// NewSessionStarted creates a session started event.
func NewSessionStarted(sessionID, documentID string) SessionStarted {
	return SessionStarted{Base: NewBase(KindSessionStarted), SessionID: sessionID, DocumentID: documentID}
}

// SessionEnded marks a study session ending.
type SessionEnded struct {
	Base
	SessionID string
}

// NewSessionEnded creates a session ended event.
func NewSessionEnded(sessionID string) SessionEnded {
	return SessionEnded{Base: NewBase(KindSessionEnded), SessionID: sessionID}
}

// AnswerSubmitted marks a user answer being appended to the history. The
// entry stays in the history even if the follow-up request later fails.
type AnswerSubmitted struct {
	Base
	MessageID int64
	Answer    string
}

// NewAnswerSubmitted creates an answer submitted event.
func NewAnswerSubmitted(messageID int64, answer string) AnswerSubmitted {
	return AnswerSubmitted{Base: NewBase(KindAnswerSubmitted), MessageID: messageID, Answer: answer}
}

// QuestionReceived marks a question being appended to the history.
type QuestionReceived struct {
	Base
	MessageID int64
	Question  string
}

// NewQuestionReceived creates a question received event.
func NewQuestionReceived(messageID int64, question string) QuestionReceived {
	return QuestionReceived{Base: NewBase(KindQuestionReceived), MessageID: messageID, Question: question}
}

// RequestFailed marks a question request failing. Operation names the
// request that failed.
type RequestFailed struct {
	Base
	Operation string
	Error     string
}

// NewRequestFailed creates a request failed event.
func NewRequestFailed(operation, err string) RequestFailed {
	return RequestFailed{Base: NewBase(KindRequestFailed), Operation: operation, Error: err}
}
