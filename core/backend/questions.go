package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
)

// ContextPair is one completed question and answer exchange, sent as context
// for follow-up generation.
type ContextPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// OpeningQuestion asks the backend to generate the first question of a study
// session about the given document.
func (c *Client) OpeningQuestion(ctx context.Context, documentID string) (string, error) {
	ctx, span := tracer.Start(ctx, "generate opening question")
	defer span.End()
	span.SetAttributes(attribute.String("request.document_id", documentID))

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("document_id", documentID).
		Get("/api/gemini/generate-question")
	if err != nil {
		err = fmt.Errorf("failed to reach backend: %w", err)
		span.RecordError(err)
		return "", err
	}

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode()))
	if resp.StatusCode() != http.StatusOK {
		err := apiError("opening question", resp)
		span.RecordError(err)
		return "", err
	}

	return parseQuestion(resp.Body())
}

type FollowupRequest struct {
	UserAnswer          string        `json:"user_answer"`
	PreviousQuestion    string        `json:"previous_question"`
	ConversationHistory []ContextPair `json:"conversation_history"`
}

// FollowupQuestion asks the backend for the next question given the user's
// answer and recent exchanges. An empty answer is a valid submission.
func (c *Client) FollowupQuestion(ctx context.Context, req FollowupRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "generate follow-up question")
	defer span.End()
	span.SetAttributes(attribute.Int("request.history_length", len(req.ConversationHistory)))

	// The backend expects a list, a null history is rejected.
	if req.ConversationHistory == nil {
		req.ConversationHistory = []ContextPair{}
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/api/gemini/followup-question")
	if err != nil {
		err = fmt.Errorf("failed to reach backend: %w", err)
		span.RecordError(err)
		return "", err
	}

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode()))
	if resp.StatusCode() != http.StatusOK {
		err := apiError("follow-up question", resp)
		span.RecordError(err)
		return "", err
	}

	return parseQuestion(resp.Body())
}

func parseQuestion(body []byte) (string, error) {
	var payload struct {
		Question string `json:"question"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("failed to parse question response: %w", err)
	}
	return payload.Question, nil
}
