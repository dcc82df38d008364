// Package revise implements conversational editing of a staffing plan.
//
// One model call per user message, with a mandated response grammar: a reply
// that changes the plan must start with the PLAN_UPDATE: marker followed by a
// complete replacement set of staffing lines, then free-text explanation.
// Replies without the marker are read-only answers.
package revise

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stafflinehq/staffline/internal/llm"
	"github.com/stafflinehq/staffline/internal/plan"
	"go.uber.org/zap"
)

// Context budget: only a sliding window of recent turns plus a truncated RFP
// excerpt go into the prompt, bounding prompt size at the cost of long-range
// memory.
const (
	historyWindow = 5
	rfpExcerptLen = 1000
)

// Soft failure markers surfaced in Response.Err.
const (
	ErrInvalidUpdate = "invalid_update"
	ErrContextLength = "context_length"
)

const systemPromptFormat = `You are a staffing plan assistant. The user is revising the staffing
plan below, which was generated from a government RFP.

If the user's message asks you to change the plan, your reply MUST begin with the literal
token %s followed immediately by a JSON object of the form
{"tasks":[{"taskId":"...","lcat":"...","hours":0,"mathRationale":"...","basis":"..."}]}
containing the COMPLETE set of staffing lines: every line you did not change must be echoed
verbatim, never omitted and never altered. After the JSON object, explain what you changed.

If the user's message does not require a plan change, answer it plainly without the token.

Current staffing plan:
%s

RFP excerpt:
%s`

// Request carries one revision turn.
type Request struct {
	Message string
	Plan    plan.StaffingPlan
	RFPText string
	History []plan.ChatMessage
}

// Response is the outcome of a revision turn. UpdatedPlan is nil for
// read-only answers and soft failures; Err distinguishes soft failures from
// plain answers.
type Response struct {
	Message     string             `json:"message"`
	UpdatedPlan *plan.StaffingPlan `json:"updatedPlan,omitempty"`
	Err         string             `json:"error,omitempty"`
}

// Reviser drives the revision protocol against a model client.
type Reviser struct {
	client llm.Client
	logger *zap.Logger
}

// NewReviser creates a Reviser. A nil logger is replaced with a no-op.
func NewReviser(client llm.Client, logger *zap.Logger) *Reviser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reviser{client: client, logger: logger}
}

// Revise sends the user's message with bounded context and interprets the
// reply. Invalid updates are downgraded to a clarification message and never
// partially applied; a context-window overflow becomes a user-facing request
// to shorten; any other transport failure is returned as an error.
func (r *Reviser) Revise(ctx context.Context, req Request) (*Response, error) {
	if req.Message == "" {
		return nil, fmt.Errorf("message is empty")
	}

	system, err := r.buildSystemPrompt(req)
	if err != nil {
		return nil, err
	}

	reply, err := r.client.Complete(ctx, llm.CompletionRequest{
		System:      system,
		Messages:    append(historyMessages(req.History), llm.Message{Role: llm.RoleUser, Content: req.Message}),
		Temperature: 0.3,
	})
	if err != nil {
		if llm.IsContextLength(err) {
			r.logger.Warn("revision prompt exceeded context window", zap.Error(err))
			return &Response{
				Message: "Your request plus the current plan is too large for me to process. Please shorten your request or start a new conversation.",
				Err:     ErrContextLength,
			}, nil
		}
		return nil, fmt.Errorf("revision call: %w", err)
	}

	payload, explanation, found := splitUpdate(reply)
	if !found {
		return &Response{Message: reply}, nil
	}

	updated, err := plan.ParseFinalPlan([]byte(payload))
	if err != nil {
		var structuralErr *plan.StructuralError
		if errors.As(err, &structuralErr) {
			r.logger.Warn("plan update failed structural validation", zap.String("reason", structuralErr.Reason))
		} else {
			r.logger.Warn("plan update failed to parse", zap.Error(err))
		}
		return &Response{
			Message: "I tried to update the plan but produced an invalid result. Could you rephrase your request?",
			Err:     ErrInvalidUpdate,
		}, nil
	}

	// Full replacement: the new task set is exactly what the model returned,
	// per the response grammar's echo-unmodified-lines mandate.
	next := req.Plan.Clone()
	next.Final = updated
	next.UpdatedAt = time.Now().UTC()

	if explanation == "" {
		explanation = "Plan updated."
	}
	return &Response{Message: explanation, UpdatedPlan: &next}, nil
}

func (r *Reviser) buildSystemPrompt(req Request) (string, error) {
	snapshot, err := req.Plan.MarshalSnapshot()
	if err != nil {
		return "", fmt.Errorf("serializing plan snapshot: %w", err)
	}

	excerpt := req.RFPText
	if len(excerpt) > rfpExcerptLen {
		excerpt = excerpt[:rfpExcerptLen]
	}

	return fmt.Sprintf(systemPromptFormat, UpdateMarker, snapshot, excerpt), nil
}

// historyMessages converts the most recent history turns into model messages.
func historyMessages(history []plan.ChatMessage) []llm.Message {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	out := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		role := llm.RoleUser
		if m.Role == plan.RoleAssistant {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return out
}
