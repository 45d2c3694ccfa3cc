package recall

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jinzhu/copier"

	"github.com/Ishfaq-code/Recallify/core/backend"
)

// contextWindowPairs bounds how much history a follow-up request carries.
const contextWindowPairs = 3

var (
	ErrEmptyAnswer      = errors.New("answer is empty")
	ErrRequestPending   = errors.New("a question request is already pending")
	ErrSessionInactive  = errors.New("session is not active")
	ErrSessionActive    = errors.New("session is already active")
	ErrQuestionRepeated = errors.New("question follows another question")
)

type Role string

const (
	RoleQuestion Role = "question"
	RoleAnswer   Role = "answer"
)

// ConversationMessage is one history entry. Messages are immutable once
// appended; IDs increase monotonically within a session.
type ConversationMessage struct {
	ID        int64
	Role      Role
	Text      string
	CreatedAt time.Time
}

// conversationLog owns the question/answer history of one session. Appends
// are the only mutation; entries are never reordered or edited in place.
type conversationLog struct {
	mu       sync.RWMutex
	messages []ConversationMessage
	nextID   int64

	active         atomic.Bool
	requestPending atomic.Bool
}

func (c *conversationLog) append(role Role, text string) (ConversationMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A question only ever follows an answer; two in a row means session
	// logic double-fired. Consecutive answers are legitimate: a failed
	// follow-up request leaves the history ending with an answer, and the
	// retry arrives as a fresh submission.
	if role == RoleQuestion && len(c.messages) > 0 && c.messages[len(c.messages)-1].Role == role {
		return ConversationMessage{}, ErrQuestionRepeated
	}

	c.nextID++
	message := ConversationMessage{
		ID:        c.nextID,
		Role:      role,
		Text:      text,
		CreatedAt: time.Now(),
	}
	c.messages = append(c.messages, message)
	return message, nil
}

// Snapshot returns a point-in-time copy of the history. Callers can hold or
// mutate the copy freely.
func (c *conversationLog) Snapshot() []ConversationMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()

	messages := make([]ConversationMessage, 0, len(c.messages))
	if err := copier.Copy(&messages, c.messages); err != nil {
		return nil
	}
	return messages
}

// followupContext captures everything a follow-up request needs in one
// consistent read: the most recent question and the trailing question/answer
// pairs. Each of the last few questions is paired with the nearest answer
// that follows it; a question still waiting on its answer pairs with an
// empty string. Pairs are ordered oldest first.
func (c *conversationLog) followupContext() (previousQuestion string, history []backend.ContextPair) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	history = []backend.ContextPair{}
	for i, message := range c.messages {
		if message.Role != RoleQuestion {
			continue
		}

		previousQuestion = message.Text

		answer := ""
		for _, next := range c.messages[i+1:] {
			if next.Role == RoleAnswer {
				answer = next.Text
				break
			}
		}
		history = append(history, backend.ContextPair{Question: message.Text, Answer: answer})
	}

	if len(history) > contextWindowPairs {
		history = history[len(history)-contextWindowPairs:]
	}
	return previousQuestion, history
}

func (c *conversationLog) reset() {
	c.mu.Lock()
	c.messages = nil
	c.mu.Unlock()

	c.requestPending.Store(false)
}
